/*
Package config describes collection deployment and minting settings.

Configuration is read from YAML (.yaml, .yml) or TOML (.toml) file, fields
missing in the file keep their default values. Coin amounts are decimal
strings like "0.05".
*/
package config

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedFormat is returned for configuration files of unknown type.
var ErrUnsupportedFormat = errors.New("unsupported configuration format")

// Royalty describes royalty parameters of the collection.
type Royalty struct {
	Factor int `yaml:"factor" toml:"factor"`
	Base   int `yaml:"base" toml:"base"`
	// Address of the beneficiary, collection owner if empty.
	Address string `yaml:"address" toml:"address"`
}

// Values groups coin amounts attached to messages.
type Values struct {
	Deploy          string `yaml:"deploy" toml:"deploy"`
	Mint            string `yaml:"mint" toml:"mint"`
	CoinsForStorage string `yaml:"coins_for_storage" toml:"coins_for_storage"`
	BatchMint       string `yaml:"batch_mint" toml:"batch_mint"`
	RoyaltyRequest  string `yaml:"royalty_request" toml:"royalty_request"`
}

// Config is a collection configuration.
type Config struct {
	// Name the collection is recorded with in the registry.
	Name      string `yaml:"name" toml:"name"`
	Workchain int8   `yaml:"workchain" toml:"workchain"`
	Testnet   bool   `yaml:"testnet" toml:"testnet"`
	// Owner of the collection, sender if empty.
	Owner                string  `yaml:"owner" toml:"owner"`
	NextItemIndex        uint64  `yaml:"next_item_index" toml:"next_item_index"`
	CollectionContentURL string  `yaml:"collection_content_url" toml:"collection_content_url"`
	CommonContentURL     string  `yaml:"common_content_url" toml:"common_content_url"`
	Royalty              Royalty `yaml:"royalty" toml:"royalty"`
	Values               Values  `yaml:"values" toml:"values"`
	// Contracts is a directory with compiled programs.
	Contracts string `yaml:"contracts" toml:"contracts"`
	// Registry is a path to the deployment registry database.
	Registry string `yaml:"registry" toml:"registry"`
}

// Default returns configuration of the reference collection.
func Default() Config {
	return Config{
		Name:                 "nft-minter",
		CollectionContentURL: "https://nft.ton.diamonds/diamonds.json",
		CommonContentURL:     "https://crypto-pepe-dev.github.io/pepe/nfts/metadata/",
		Royalty: Royalty{
			Factor: 15,
			Base:   100,
		},
		Values: Values{
			Deploy:          "0.05",
			Mint:            "0.05",
			CoinsForStorage: "0.05",
			BatchMint:       "3",
			RoyaltyRequest:  "0.05",
		},
		Contracts: "build",
		Registry:  "registry.db",
	}
}

// Load reads configuration file overlaying Default values.
func Load(path string) (Config, error) {
	cfg := Default()

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		f, err := os.Open(path)
		if err != nil {
			return cfg, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		dec.KnownFields(true)

		if err = dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("decode YAML config: %w", err)
		}
	case ".toml":
		meta, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("decode TOML config: %w", err)
		}

		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("decode TOML config: unknown key %q", undecoded[0].String())
		}
	default:
		return cfg, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}

	return cfg, nil
}

// Validate checks field values.
func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("empty collection name")
	}
	if c.CollectionContentURL == "" {
		return errors.New("empty collection content URL")
	}

	if c.Owner != "" {
		if _, err := address.Parse(c.Owner); err != nil {
			return fmt.Errorf("owner: %w", err)
		}
	}
	if c.Royalty.Address != "" {
		if _, err := address.Parse(c.Royalty.Address); err != nil {
			return fmt.Errorf("royalty address: %w", err)
		}
	}

	for _, r := range []struct {
		name string
		v    int
	}{
		{"royalty factor", c.Royalty.Factor},
		{"royalty base", c.Royalty.Base},
	} {
		if r.v < 0 || r.v >= 1<<message.RoyaltyBits {
			return fmt.Errorf("%w: %s=%d", message.ErrFieldOutOfRange, r.name, r.v)
		}
	}
	if c.Royalty.Base == 0 {
		return errors.New("zero royalty base")
	}
	if c.Royalty.Factor > c.Royalty.Base {
		return fmt.Errorf("royalty factor %d exceeds base %d", c.Royalty.Factor, c.Royalty.Base)
	}

	if _, err := c.Values.Parse(); err != nil {
		return err
	}

	return nil
}

// ParsedValues are Values in nanocoins.
type ParsedValues struct {
	Deploy          *big.Int
	Mint            *big.Int
	CoinsForStorage *big.Int
	BatchMint       *big.Int
	RoyaltyRequest  *big.Int
}

// Parse converts Values into nanocoins.
func (v Values) Parse() (ParsedValues, error) {
	var (
		res ParsedValues
		err error
	)

	for _, f := range []struct {
		name string
		s    string
		dst  **big.Int
	}{
		{"deploy", v.Deploy, &res.Deploy},
		{"mint", v.Mint, &res.Mint},
		{"coins for storage", v.CoinsForStorage, &res.CoinsForStorage},
		{"batch mint", v.BatchMint, &res.BatchMint},
		{"royalty request", v.RoyaltyRequest, &res.RoyaltyRequest},
	} {
		*f.dst, err = message.ToNano(f.s)
		if err != nil {
			return res, fmt.Errorf("%s value: %w", f.name, err)
		}
	}

	return res, nil
}

// CollectionState builds initial collection state. Empty owner and royalty
// beneficiary are replaced with sender.
func (c Config) CollectionState(sender address.Address, itemCode *cell.Node) (message.CollectionState, error) {
	owner, err := addressOr(c.Owner, sender)
	if err != nil {
		return message.CollectionState{}, fmt.Errorf("owner: %w", err)
	}

	beneficiary, err := addressOr(c.Royalty.Address, owner)
	if err != nil {
		return message.CollectionState{}, fmt.Errorf("royalty address: %w", err)
	}

	return message.CollectionState{
		Owner:                owner,
		NextItemIndex:        c.NextItemIndex,
		CollectionContentURL: c.CollectionContentURL,
		CommonContentURL:     c.CommonContentURL,
		ItemCode:             itemCode,
		Royalty: message.RoyaltyParams{
			Factor:  c.Royalty.Factor,
			Base:    c.Royalty.Base,
			Address: beneficiary,
		},
	}, nil
}

func addressOr(s string, def address.Address) (address.Address, error) {
	if s == "" {
		return def, nil
	}

	return address.Parse(s)
}
