package main

import (
	"bytes"
	"encoding/hex"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/crypto-pepe-dev/nft-minter/metadata"
	"github.com/crypto-pepe-dev/nft-minter/registry"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli"
)

type testSetup struct {
	dir      string
	config   string
	owner    address.Address
	itemCode *cell.Node
	collCode *cell.Node
}

func writeProgram(t *testing.T, dir, name string, payload string) *cell.Node {
	code, err := cell.Build([]byte(payload))
	require.NoError(t, err)

	b, err := cell.SerializeBoC(code, true)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, name), 0700))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name, "contract.boc"), b, 0600))

	return code
}

func newTestSetup(t *testing.T, withPrograms bool) *testSetup {
	s := &testSetup{
		dir:   t.TempDir(),
		owner: address.New(0, util.Uint256{0xaa}),
	}

	contractsDir := filepath.Join(s.dir, "build")
	if withPrograms {
		s.itemCode = writeProgram(t, contractsDir, "item", "item")
		s.collCode = writeProgram(t, contractsDir, "collection", "collection")
	}

	s.config = filepath.Join(s.dir, "config.yml")
	require.NoError(t, os.WriteFile(s.config, []byte(`
name: pepe
owner: `+s.owner.String()+`
contracts: `+contractsDir+`
registry: `+filepath.Join(s.dir, "registry.db")+`
`), 0600))

	return s
}

func (s *testSetup) run(t *testing.T, args ...string) (string, error) {
	app := newApp()

	var out bytes.Buffer
	app.Writer = &out

	err := app.Run(append([]string{"nftminter", "--config", s.config}, args...))

	return out.String(), err
}

func (s *testSetup) collectionAddress(t *testing.T) address.Address {
	st := message.CollectionState{
		Owner:                s.owner,
		CollectionContentURL: "https://nft.ton.diamonds/diamonds.json",
		CommonContentURL:     "https://crypto-pepe-dev.github.io/pepe/nfts/metadata/",
		ItemCode:             s.itemCode,
		Royalty:              message.RoyaltyParams{Factor: 15, Base: 100, Address: s.owner},
	}

	data, err := st.Node()
	require.NoError(t, err)

	addr, err := message.DeriveAddress(s.collCode, data, 0)
	require.NoError(t, err)

	return addr
}

func TestGlobalFlags(t *testing.T) {
	var (
		path  string
		debug bool
	)

	app := newApp()
	app.Commands = []cli.Command{{
		Name: "check",
		Action: func(c *cli.Context) error {
			path = c.GlobalString(ConfigFlag.Name)
			debug = c.GlobalBool(DebugFlag.Name)
			return nil
		},
	}}

	require.NoError(t, app.Run([]string{"nftminter", "--config", "/etc/nftminter.yml", "--debug", "check"}))
	require.Equal(t, "/etc/nftminter.yml", path)
	require.True(t, debug)
}

func TestConfigIsApplied(t *testing.T) {
	s := newTestSetup(t, true)

	// Default configuration has no owner, so the sender can only come from the
	// file.
	out, err := s.run(t, "address")
	require.NoError(t, err)
	require.Contains(t, out, s.collectionAddress(t).String())

	err = newApp().Run([]string{"nftminter", "address"})
	require.Error(t, err)
}

func TestAddress(t *testing.T) {
	s := newTestSetup(t, true)

	out, err := s.run(t, "address")
	require.NoError(t, err)

	addr := s.collectionAddress(t)
	require.Contains(t, out, addr.String())
	require.Contains(t, out, addr.Friendly(true, false))
	require.Contains(t, out, addr.Friendly(false, false))

	t.Run("missing programs", func(t *testing.T) {
		_, err := newTestSetup(t, false).run(t, "address")
		require.Error(t, err)
	})
}

func TestDeployAndMint(t *testing.T) {
	s := newTestSetup(t, true)
	addr := s.collectionAddress(t)

	out, err := s.run(t, "deploy")
	require.NoError(t, err)
	require.Contains(t, out, addr.Friendly(true, false))
	require.Contains(t, out, "0.05")
	require.Contains(t, out, "state init (hex)")

	store, err := registry.Open(filepath.Join(s.dir, "registry.db"))
	require.NoError(t, err)
	r, err := store.Get("pepe")
	require.NoError(t, err)
	require.Equal(t, addr, r.Address)
	require.NoError(t, store.Close())

	t.Run("registry", func(t *testing.T) {
		out, err := s.run(t, "registry")
		require.NoError(t, err)
		require.Contains(t, out, "pepe")
		require.Contains(t, out, addr.Friendly(true, false))
	})

	t.Run("mint", func(t *testing.T) {
		out, err := s.run(t, "mint", "--query-id", "7")
		require.NoError(t, err)
		require.Contains(t, out, addr.Friendly(true, false))

		body, err := message.Build(message.Mint{QueryID: 7, CoinsForStorage: coins(t, "0.05")})
		require.NoError(t, err)
		require.Contains(t, out, bocHex(t, body))
	})

	t.Run("batch mint", func(t *testing.T) {
		other := address.New(0, util.Uint256{0xbb})

		out, err := s.run(t, "batch-mint", "--collection", other.String(), "--value", "24.99")
		require.NoError(t, err)
		require.Contains(t, out, other.Friendly(true, false))
		require.Contains(t, out, "24.99")

		body, err := message.Build(message.BatchMint{})
		require.NoError(t, err)
		require.Contains(t, out, bocHex(t, body))
	})

	t.Run("royalty", func(t *testing.T) {
		out, err := s.run(t, "royalty", "--query-id", "1")
		require.NoError(t, err)

		body, err := message.Build(message.GetRoyaltyParams{QueryID: 1})
		require.NoError(t, err)
		require.Contains(t, out, bocHex(t, body))
	})

	t.Run("predict", func(t *testing.T) {
		out, err := s.run(t, "predict", "--index", "3")
		require.NoError(t, err)

		item, err := message.PredictItemAddress(s.itemCode, 3, addr)
		require.NoError(t, err)
		require.Contains(t, out, item.Friendly(true, false))
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := s.run(t, "mint", "--value", "lots")
		require.Error(t, err)
	})
}

func TestDecodeContent(t *testing.T) {
	const url = "https://crypto-pepe-dev.github.io/pepe/nfts/metadata/Penis.json"

	n, err := metadata.EncodeOffChainContent(url)
	require.NoError(t, err)

	s := newTestSetup(t, false)

	out, err := s.run(t, "decode-content", bocHex(t, n))
	require.NoError(t, err)
	require.Equal(t, url, strings.TrimSpace(out))

	_, err = s.run(t, "decode-content")
	require.Error(t, err)

	_, err = s.run(t, "decode-content", "not a boc")
	require.Error(t, err)
}

func TestEmulate(t *testing.T) {
	for _, withPrograms := range []bool{true, false} {
		s := newTestSetup(t, withPrograms)

		out, err := s.run(t, "emulate", "--batches", "2")
		require.NoError(t, err)
		require.Contains(t, out, "items:")
		require.Contains(t, out, "61")
		require.Contains(t, out, "15/100")
		require.Contains(t, out, "https://crypto-pepe-dev.github.io/pepe/nfts/metadata/60.json")
	}
}

func coins(t *testing.T, s string) *big.Int {
	v, err := message.ToNano(s)
	require.NoError(t, err)
	return v
}

func bocHex(t *testing.T, n *cell.Node) string {
	b, err := cell.SerializeBoC(n, true)
	require.NoError(t, err)
	return hex.EncodeToString(b)
}
