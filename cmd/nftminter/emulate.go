package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/contracts"
	"github.com/crypto-pepe-dev/nft-minter/deploy"
	"github.com/crypto-pepe-dev/nft-minter/rpc/collection"
	"github.com/crypto-pepe-dev/nft-minter/rpc/item"
	"github.com/crypto-pepe-dev/nft-minter/sandbox"
	"github.com/urfave/cli"
	"go.uber.org/zap"
)

var emulateCommand = cli.Command{
	Name:  "emulate",
	Usage: "Deploy configured collection into the in-memory ledger and mint items",
	Description: `Programs are read from the configured contracts directory, stand-in
   programs are used if the directory has none. The scenario deploys the
   collection, mints one item, sends batch mint messages and prints the
   resulting collection state.`,
	Flags:  []cli.Flag{BatchesFlag},
	Action: emulate,
}

func emulate(c *cli.Context) error {
	e, err := loadEnv(c)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	itemProg, collectionProg, err := e.programs()
	if err != nil {
		e.log.Warn("using stand-in programs", zap.Error(err))

		if itemProg, collectionProg, err = standInPrograms(); err != nil {
			return err
		}
	}

	ledger := sandbox.New(sandbox.Prm{Logger: e.log.Named("ledger")})
	ledger.Register(collectionProg.Code, sandbox.CollectionProgram{})
	ledger.Register(itemProg.Code, sandbox.ItemProgram{})

	wallet := ledger.Treasury("deployer")

	st, err := e.cfg.CollectionState(wallet.Address(), itemProg.Code)
	if err != nil {
		return err
	}

	res, err := deploy.Collection(ctx, deploy.Prm{
		Logger:    e.log.Named("deploy"),
		Actor:     wallet,
		Code:      collectionProg.Code,
		State:     st,
		Workchain: e.cfg.Workchain,
		Value:     e.values.Deploy,
	})
	if err != nil {
		return fmt.Errorf("deploy collection: %w", err)
	}

	coll := collection.New(wallet, res.Address)

	eff, err := coll.SendMint(ctx, collection.MintPrm{Value: e.values.Mint, CoinsForStorage: e.values.CoinsForStorage})
	if err != nil {
		return fmt.Errorf("mint: %w", err)
	}
	if err = eff.Err(); err != nil {
		return fmt.Errorf("mint: %w", err)
	}

	for i, n := 0, c.Int(BatchesFlag.Name); i < n; i++ {
		eff, err = coll.SendBatchMint(ctx, collection.BatchMintPrm{Value: e.values.BatchMint, QueryID: uint64(i)})
		if err != nil {
			return fmt.Errorf("batch mint: %w", err)
		}

		if err = eff.Err(); err != nil {
			e.log.Warn("batch mint rejected", zap.Int("batch", i), zap.Error(err))
			continue
		}

		e.log.Info("batch minted", zap.Int("batch", i), zap.Int("transactions", len(eff.Transactions)))
	}

	return e.printCollection(ctx, wallet, coll)
}

func (e *env) printCollection(ctx context.Context, wallet *sandbox.Wallet, coll *collection.Contract) error {
	data, err := coll.GetCollectionData(ctx)
	if err != nil {
		return err
	}

	royalty, err := coll.GetRoyaltyParams(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(e.out, 0, 4, 1, ' ', 0)

	fmt.Fprintf(w, "collection:\t%s\n", e.friendly(coll.Address()))
	fmt.Fprintf(w, "owner:\t%s\n", e.friendly(data.OwnerAddress))
	fmt.Fprintf(w, "content:\t%s\n", data.CollectionContentURL)
	fmt.Fprintf(w, "items:\t%d\n", data.NextItemIndex)
	fmt.Fprintf(w, "royalty:\t%d/%d to %s\n", royalty.Factor, royalty.Base, e.friendly(royalty.Address))

	if data.NextItemIndex > 0 {
		last := data.NextItemIndex - 1

		addr, err := coll.GetNftAddressByIndex(ctx, last)
		if err != nil {
			return err
		}

		nft, err := item.NewReader(wallet, addr).GetNftData(ctx)
		if err != nil {
			return err
		}

		url, err := coll.GetNftContent(ctx, nft.Index, nft.Content)
		if err != nil {
			return err
		}

		fmt.Fprintf(w, "last item:\t%s\n", e.friendly(addr))
		fmt.Fprintf(w, "last item content:\t%s\n", url)
	}

	return w.Flush()
}

// standInPrograms returns programs with placeholder code, the ledger runs
// bundled program models regardless of the code.
func standInPrograms() (itemProg, collectionProg contracts.Contract, err error) {
	itemCode, err := cell.Build([]byte("nft-item"))
	if err != nil {
		return itemProg, collectionProg, err
	}

	collectionCode, err := cell.Build([]byte("nft-collection"))
	if err != nil {
		return itemProg, collectionProg, err
	}

	return contracts.Contract{Name: "nft-item", Code: itemCode},
		contracts.Contract{Name: "nft-collection", Code: collectionCode}, nil
}
