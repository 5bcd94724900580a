// Package item contains RPC wrappers for NFT item program.
package item

import (
	"context"
	"fmt"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/crypto-pepe-dev/nft-minter/provider"
)

// Invoker is used by ContractReader to call get-methods.
type Invoker interface {
	provider.Invoker
}

// Actor is used by Contract to send state-changing messages.
type Actor interface {
	Invoker

	provider.Actor
}

// ContractReader implements get-methods of the item.
type ContractReader struct {
	invoker Invoker
	addr    address.Address
}

// Contract implements all item methods.
type Contract struct {
	ContractReader
	actor Actor
	init  *message.StateInit
}

// NewReader creates an instance of ContractReader using provided program
// address and the given Invoker.
func NewReader(invoker Invoker, addr address.Address) *ContractReader {
	return &ContractReader{invoker, addr}
}

// New creates an instance of Contract using provided program address and the
// given Actor.
func New(actor Actor, addr address.Address) *Contract {
	return &Contract{ContractReader{actor, addr}, actor, nil}
}

// CreateFromAddress wraps already deployed item. No network calls are made.
func CreateFromAddress(actor Actor, addr address.Address) *Contract {
	return New(actor, addr)
}

// CreateFromConfig packs standalone item state and computes address of the
// item with given code in given workchain.
func CreateFromConfig(actor Actor, state message.ItemState, code *cell.Node, workchain int8) (*Contract, error) {
	data, err := state.Node()
	if err != nil {
		return nil, fmt.Errorf("pack item state: %w", err)
	}

	init := &message.StateInit{Code: code, Data: data}

	addr, err := init.Address(workchain)
	if err != nil {
		return nil, fmt.Errorf("derive item address: %w", err)
	}

	c := New(actor, addr)
	c.init = init

	return c, nil
}

// Address returns address of the item.
func (c *ContractReader) Address() address.Address {
	return c.addr
}

// GetNftData invokes `get_nft_data` method of the item.
func (c *ContractReader) GetNftData(ctx context.Context) (*message.NftData, error) {
	return message.ParseNftData(c.invoker.RunGetMethod(ctx, c.addr, message.MethodGetNftData))
}

// SendDeploy sends empty message with given value and StateInit of the item
// attached.
func (c *Contract) SendDeploy(ctx context.Context, value *big.Int) (*provider.Effects, error) {
	body, err := message.Build(message.Deploy{})
	if err != nil {
		return nil, err
	}

	msg := provider.NewMessage(c.addr, value, body)
	msg.Init = c.init

	return c.actor.Send(ctx, msg)
}
