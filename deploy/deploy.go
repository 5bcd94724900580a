package deploy

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/crypto-pepe-dev/nft-minter/provider"
	"github.com/crypto-pepe-dev/nft-minter/registry"
	"github.com/crypto-pepe-dev/nft-minter/rpc/collection"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Defaults of the deployment waiting.
const (
	DefaultPollInterval = time.Second
	DefaultAttempts     = 30
)

// Registry records deployed collections.
type Registry interface {
	Put(registry.Record) error
}

// Prm groups all parameters of the collection deployment procedure.
type Prm struct {
	// Writes progress into the log.
	Logger *zap.Logger

	// Sends deployment message and polls collection state.
	Actor provider.Actor

	// Compiled collection program.
	Code *cell.Node

	// Initial state of the collection.
	State message.CollectionState

	Workchain int8

	// Value attached to the deployment message.
	Value *big.Int

	// Optional registry the deployed collection is recorded to under Name.
	Registry Registry
	Name     string

	// Waiting for the collection to become available, DefaultPollInterval
	// and DefaultAttempts are used if unset.
	PollInterval time.Duration
	Attempts     int
}

// Result describes deployed collection.
type Result struct {
	Address address.Address
	// AlreadyDeployed is set when the collection was found on the ledger and
	// no message was sent.
	AlreadyDeployed bool
	// Effects of the deployment message, nil if AlreadyDeployed.
	Effects *provider.Effects
}

// Collection deploys NFT collection described by Prm and waits until it
// answers get-methods.
//
// Collection address is derived from the program code and initial state, so
// repeated calls with the same Prm are no-op: if the collection already
// responds, nothing is sent. Deployment progress is logged.
func Collection(ctx context.Context, prm Prm) (*Result, error) {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.Actor == nil {
		return nil, errors.New("missing actor")
	}
	if prm.PollInterval <= 0 {
		prm.PollInterval = DefaultPollInterval
	}
	if prm.Attempts <= 0 {
		prm.Attempts = DefaultAttempts
	}

	c, err := collection.CreateFromConfig(prm.Actor, prm.State, prm.Code, prm.Workchain)
	if err != nil {
		return nil, fmt.Errorf("prepare collection: %w", err)
	}

	res := &Result{Address: c.Address()}
	l := prm.Logger.With(zap.Stringer("address", res.Address))

	data, err := c.GetCollectionData(ctx)
	if err == nil {
		l.Info("collection is already deployed, skip", zap.Uint64("next item index", data.NextItemIndex))

		res.AlreadyDeployed = true

		return res, record(prm, c, uuid.Nil)
	}

	l.Info("collection is not deployed yet, sending deployment message...",
		zap.String("value", message.FromNano(prm.Value)), zap.NamedError("probe", err))

	res.Effects, err = c.SendDeploy(ctx, prm.Value)
	if err != nil {
		return nil, fmt.Errorf("send deployment message: %w", err)
	}

	l = l.With(zap.Stringer("trace", res.Effects.Trace))

	if err = res.Effects.Err(); err != nil {
		return res, fmt.Errorf("deployment rejected: %w", err)
	}

	l.Info("deployment message sent, waiting for the collection...")

	data, err = waitForDeploy(ctx, l, c, prm.PollInterval, prm.Attempts)
	if err != nil {
		return res, err
	}

	l.Info("collection successfully deployed",
		zap.Stringer("owner", data.OwnerAddress), zap.String("content", data.CollectionContentURL))

	return res, record(prm, c, res.Effects.Trace)
}

func waitForDeploy(ctx context.Context, l *zap.Logger, c *collection.Contract, interval time.Duration, attempts int) (*message.CollectionData, error) {
	var (
		data *message.CollectionData
		err  error
	)

	for i := 0; i < attempts; i++ {
		data, err = c.GetCollectionData(ctx)
		if err == nil {
			return data, nil
		}

		l.Debug("collection is not available yet", zap.Int("attempt", i+1), zap.Error(err))

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait for collection: %w", ctx.Err())
		case <-time.After(interval):
		}
	}

	return nil, fmt.Errorf("collection is not available after %d attempts: %w", attempts, err)
}

func record(prm Prm, c *collection.Contract, trace uuid.UUID) error {
	if prm.Registry == nil {
		return nil
	}

	r, err := registry.NewRecord(prm.Name, c.Address(), prm.Code, c.StateInit().Data, trace)
	if err != nil {
		return fmt.Errorf("prepare registry record: %w", err)
	}

	if err = prm.Registry.Put(r); err != nil {
		return fmt.Errorf("record collection: %w", err)
	}

	prm.Logger.Info("collection recorded", zap.String("name", prm.Name), zap.Stringer("address", c.Address()))

	return nil
}
