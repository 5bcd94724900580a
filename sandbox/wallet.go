package sandbox

import (
	"context"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/provider"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// TreasuryBalance is an initial balance of the treasury wallet in nanocoins.
var TreasuryBalance = new(big.Int).Mul(big.NewInt(1_000_000), big.NewInt(1_000_000_000))

// Wallet sends messages on behalf of the ledger account. It implements
// provider.Actor.
type Wallet struct {
	ledger *Ledger
	addr   address.Address
}

// Treasury returns wallet with the address derived from name. Wallet is
// funded with TreasuryBalance on the first call, subsequent calls with the
// same name return the same account.
func (l *Ledger) Treasury(name string) *Wallet {
	addr := address.New(address.BaseChain, hash.Sha256([]byte("treasury:"+name)))

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.accounts[addr]; !ok {
		l.accounts[addr] = &Account{
			Address: addr,
			Balance: new(big.Int).Set(TreasuryBalance),
			wallet:  true,
		}
	}

	return &Wallet{ledger: l, addr: addr}
}

// Address returns wallet address.
func (w *Wallet) Address() address.Address {
	return w.addr
}

// Sender implements provider.Actor.
func (w *Wallet) Sender() *address.Address {
	a := w.addr
	return &a
}

// Send implements provider.Actor.
func (w *Wallet) Send(ctx context.Context, msg provider.Message) (*provider.Effects, error) {
	return w.ledger.submit(ctx, w.addr, msg)
}

// RunGetMethod implements provider.Invoker.
func (w *Wallet) RunGetMethod(ctx context.Context, addr address.Address, method string, args ...stackitem.Item) (*result.Invoke, error) {
	return w.ledger.RunGetMethod(ctx, addr, method, args...)
}
