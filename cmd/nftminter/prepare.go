package main

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/config"
	"github.com/crypto-pepe-dev/nft-minter/contracts"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/crypto-pepe-dev/nft-minter/metadata"
	"github.com/crypto-pepe-dev/nft-minter/registry"
	"github.com/google/uuid"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var (
	addressCommand = cli.Command{
		Name:   "address",
		Usage:  "Print address of the configured collection",
		Flags:  []cli.Flag{SenderFlag},
		Action: printAddress,
	}
	deployCommand = cli.Command{
		Name:   "deploy",
		Usage:  "Prepare deployment message of the configured collection",
		Flags:  []cli.Flag{SenderFlag, ValueFlag, NoRecordFlag},
		Action: prepareDeploy,
	}
	mintCommand = cli.Command{
		Name:   "mint",
		Usage:  "Prepare message minting the next item",
		Flags:  []cli.Flag{SenderFlag, CollectionFlag, ValueFlag, QueryIDFlag},
		Action: prepareMint,
	}
	batchMintCommand = cli.Command{
		Name:   "batch-mint",
		Usage:  "Prepare message minting as many items as the attached value funds",
		Flags:  []cli.Flag{SenderFlag, CollectionFlag, ValueFlag, QueryIDFlag},
		Action: prepareBatchMint,
	}
	royaltyCommand = cli.Command{
		Name:   "royalty",
		Usage:  "Prepare royalty parameters request",
		Flags:  []cli.Flag{SenderFlag, CollectionFlag, ValueFlag, QueryIDFlag},
		Action: prepareRoyaltyRequest,
	}
	predictCommand = cli.Command{
		Name:   "predict",
		Usage:  "Print address of the collection item with given index",
		Flags:  []cli.Flag{SenderFlag, CollectionFlag, IndexFlag},
		Action: predictItemAddress,
	}
	decodeContentCommand = cli.Command{
		Name:      "decode-content",
		Usage:     "Decode off-chain content from hex or base64 bag of cells",
		ArgsUsage: "<boc>",
		Action:    decodeContent,
	}
	registryCommand = cli.Command{
		Name:   "registry",
		Usage:  "List recorded collections",
		Action: listRegistry,
	}
)

// env is a loaded command environment.
type env struct {
	cfg    config.Config
	log    *zap.Logger
	out    io.Writer
	values config.ParsedValues
}

func loadEnv(c *cli.Context) (*env, error) {
	cfg := config.Default()

	if path := c.GlobalString(ConfigFlag.Name); path != "" {
		var err error

		cfg, err = config.Load(path)
		if err != nil {
			return nil, err
		}
	}

	values, err := cfg.Values.Parse()
	if err != nil {
		return nil, err
	}

	log, err := newLogger(c)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	return &env{cfg: cfg, log: log, out: c.App.Writer, values: values}, nil
}

func (e *env) programs() (itemProg, collectionProg contracts.Contract, err error) {
	itemProg, collectionProg, err = contracts.GetNFT(os.DirFS(e.cfg.Contracts))
	if err != nil {
		return itemProg, collectionProg, fmt.Errorf("read programs from %s: %w", e.cfg.Contracts, err)
	}

	return itemProg, collectionProg, nil
}

func (e *env) sender(c *cli.Context) (address.Address, error) {
	s := c.String(SenderFlag.Name)
	if s == "" {
		s = e.cfg.Owner
	}
	if s == "" {
		return address.Address{}, errors.New("sender is required when collection owner is not configured")
	}

	return address.Parse(s)
}

// stateInit builds StateInit of the configured collection.
func (e *env) stateInit(c *cli.Context) (*message.StateInit, address.Address, error) {
	sender, err := e.sender(c)
	if err != nil {
		return nil, address.Address{}, err
	}

	item, collection, err := e.programs()
	if err != nil {
		return nil, address.Address{}, err
	}

	st, err := e.cfg.CollectionState(sender, item.Code)
	if err != nil {
		return nil, address.Address{}, err
	}

	data, err := st.Node()
	if err != nil {
		return nil, address.Address{}, fmt.Errorf("pack collection state: %w", err)
	}

	init := &message.StateInit{Code: collection.Code, Data: data}

	addr, err := init.Address(e.cfg.Workchain)
	if err != nil {
		return nil, address.Address{}, err
	}

	return init, addr, nil
}

// collectionAddress resolves the target collection: flag, then registry, then
// configuration.
func (e *env) collectionAddress(c *cli.Context) (address.Address, error) {
	if s := c.String(CollectionFlag.Name); s != "" {
		return address.Parse(s)
	}

	if _, err := os.Stat(e.cfg.Registry); err == nil {
		store, err := registry.Open(e.cfg.Registry)
		if err != nil {
			return address.Address{}, err
		}
		defer store.Close()

		r, err := store.Get(e.cfg.Name)
		if err == nil {
			e.log.Debug("collection found in the registry", zap.String("name", r.Name), zap.Stringer("address", r.Address))
			return r.Address, nil
		}
		if !errors.Is(err, registry.ErrNotFound) {
			return address.Address{}, err
		}
	}

	_, addr, err := e.stateInit(c)
	return addr, err
}

func (e *env) value(c *cli.Context, def *big.Int) (*big.Int, error) {
	s := c.String(ValueFlag.Name)
	if s == "" {
		return def, nil
	}

	v, err := message.ToNano(s)
	if err != nil {
		return nil, fmt.Errorf("value: %w", err)
	}

	return v, nil
}

func (e *env) friendly(a address.Address) string {
	return a.Friendly(true, e.cfg.Testnet)
}

func encodeBoC(n *cell.Node) (string, string, error) {
	b, err := cell.SerializeBoC(n, true)
	if err != nil {
		return "", "", err
	}

	return hex.EncodeToString(b), base64.StdEncoding.EncodeToString(b), nil
}

func (e *env) printMessage(to address.Address, value *big.Int, init *message.StateInit, body *cell.Node) error {
	w := tabwriter.NewWriter(e.out, 0, 4, 1, ' ', 0)

	fmt.Fprintf(w, "to:\t%s\n", e.friendly(to))
	fmt.Fprintf(w, "value:\t%s\n", message.FromNano(value))

	if init != nil {
		n, err := init.Node()
		if err != nil {
			return fmt.Errorf("pack state init: %w", err)
		}

		h, b, err := encodeBoC(n)
		if err != nil {
			return fmt.Errorf("serialize state init: %w", err)
		}

		fmt.Fprintf(w, "state init (hex):\t%s\n", h)
		fmt.Fprintf(w, "state init (base64):\t%s\n", b)
	}

	h, b, err := encodeBoC(body)
	if err != nil {
		return fmt.Errorf("serialize body: %w", err)
	}

	fmt.Fprintf(w, "body (hex):\t%s\n", h)
	fmt.Fprintf(w, "body (base64):\t%s\n", b)

	return w.Flush()
}

func (e *env) prepare(c *cli.Context, def *big.Int, op message.Operation) error {
	to, err := e.collectionAddress(c)
	if err != nil {
		return err
	}

	value, err := e.value(c, def)
	if err != nil {
		return err
	}

	body, err := message.Build(op)
	if err != nil {
		return fmt.Errorf("build message body: %w", err)
	}

	return e.printMessage(to, value, nil, body)
}

func printAddress(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	_, addr, err := e.stateInit(c)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "raw:\t\t%s\nbounceable:\t%s\nnon-bounceable:\t%s\n",
		addr, addr.Friendly(true, e.cfg.Testnet), addr.Friendly(false, e.cfg.Testnet))

	return nil
}

func prepareDeploy(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	init, addr, err := e.stateInit(c)
	if err != nil {
		return err
	}

	value, err := e.value(c, e.values.Deploy)
	if err != nil {
		return err
	}

	if err = e.printMessage(addr, value, init, cell.Empty()); err != nil {
		return err
	}

	if c.Bool(NoRecordFlag.Name) {
		return nil
	}

	store, err := registry.Open(e.cfg.Registry)
	if err != nil {
		return err
	}
	defer store.Close()

	r, err := registry.NewRecord(e.cfg.Name, addr, init.Code, init.Data, uuid.Nil)
	if err != nil {
		return err
	}

	if err = store.Put(r); err != nil {
		return err
	}

	e.log.Info("collection recorded", zap.String("name", r.Name), zap.Stringer("address", addr),
		zap.String("registry", e.cfg.Registry))

	return nil
}

func prepareMint(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	return e.prepare(c, e.values.Mint, message.Mint{
		QueryID:         c.Uint64(QueryIDFlag.Name),
		CoinsForStorage: e.values.CoinsForStorage,
	})
}

func prepareBatchMint(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	return e.prepare(c, e.values.BatchMint, message.BatchMint{QueryID: c.Uint64(QueryIDFlag.Name)})
}

func prepareRoyaltyRequest(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	return e.prepare(c, e.values.RoyaltyRequest, message.GetRoyaltyParams{QueryID: c.Uint64(QueryIDFlag.Name)})
}

func predictItemAddress(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	coll, err := e.collectionAddress(c)
	if err != nil {
		return err
	}

	item, _, err := e.programs()
	if err != nil {
		return err
	}

	index := c.Uint64(IndexFlag.Name)

	addr, err := message.PredictItemAddress(item.Code, index, coll)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "item %d of %s: %s\n", index, e.friendly(coll), e.friendly(addr))

	return nil
}

func decodeContent(c *cli.Context) error {
	arg := strings.TrimSpace(c.Args().First())
	if arg == "" {
		return errors.New("missing bag of cells argument")
	}

	b, err := hex.DecodeString(strings.TrimPrefix(arg, "0x"))
	if err != nil {
		if b, err = base64.StdEncoding.DecodeString(arg); err != nil {
			return errors.New("argument is neither hex nor base64")
		}
	}

	n, err := cell.ParseBoC(b)
	if err != nil {
		return fmt.Errorf("parse bag of cells: %w", err)
	}

	url, err := metadata.DecodeOffChainContent(n)
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, url)

	return nil
}

func listRegistry(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	store, err := registry.Open(e.cfg.Registry)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tADDRESS\tCODE HASH\tDEPLOYED")

	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Name, e.friendly(r.Address), r.CodeHash.StringBE(), r.DeployedAt.Format("2006-01-02 15:04:05"))
	}

	return w.Flush()
}
