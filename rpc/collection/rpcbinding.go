// Package collection contains RPC wrappers for NFT collection program.
package collection

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

// ContractReader implements get-methods of the collection.
type ContractReader struct {
	invoker Invoker
	addr    address.Address
}

// Contract implements all collection methods.
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

// CreateFromAddress wraps already deployed collection. No network calls are
// made.
func CreateFromAddress(actor Actor, addr address.Address) *Contract {
	return New(actor, addr)
}

// CreateFromConfig packs state into the program data and computes address of
// the collection with given code in given workchain. Returned Contract
// carries StateInit sent by SendDeploy.
func CreateFromConfig(actor Actor, state message.CollectionState, code *cell.Node, workchain int8) (*Contract, error) {
	data, err := state.Node()
	if err != nil {
		return nil, fmt.Errorf("pack collection state: %w", err)
	}

	init := &message.StateInit{Code: code, Data: data}

	addr, err := init.Address(workchain)
	if err != nil {
		return nil, fmt.Errorf("derive collection address: %w", err)
	}

	c := New(actor, addr)
	c.init = init

	return c, nil
}

// Address returns address of the collection.
func (c *ContractReader) Address() address.Address {
	return c.addr
}

// StateInit returns code and data the collection is deployed with, nil if
// Contract wasn't created by CreateFromConfig.
func (c *Contract) StateInit() *message.StateInit {
	return c.init
}

// GetCollectionData invokes `get_collection_data` method of the collection.
func (c *ContractReader) GetCollectionData(ctx context.Context) (*message.CollectionData, error) {
	return message.ParseCollectionData(c.invoker.RunGetMethod(ctx, c.addr, message.MethodGetCollectionData))
}

// GetRoyaltyParams invokes `royalty_params` method of the collection.
func (c *ContractReader) GetRoyaltyParams(ctx context.Context) (*message.RoyaltyParams, error) {
	return message.ParseRoyaltyParams(c.invoker.RunGetMethod(ctx, c.addr, message.MethodRoyaltyParams))
}

// GetNftContent invokes `get_nft_content` method of the collection and
// returns full content URL of the item with given index and individual
// content.
func (c *ContractReader) GetNftContent(ctx context.Context, index uint64, individual *cell.Node) (string, error) {
	if individual == nil {
		return "", fmt.Errorf("individual content: %w", cell.ErrNilReference)
	}

	return message.ParseNftContent(c.invoker.RunGetMethod(ctx, c.addr, message.MethodGetNftContent,
		message.IntItem(index), message.NodeItem(individual)))
}

// GetNftAddressByIndex invokes `get_nft_address_by_index` method of the
// collection.
func (c *ContractReader) GetNftAddressByIndex(ctx context.Context, index uint64) (address.Address, error) {
	return message.ParseNftAddress(c.invoker.RunGetMethod(ctx, c.addr, message.MethodGetNftAddressByIndex,
		message.IntItem(index)))
}

// PredictNftAddress computes address of the item with given index locally,
// it must match GetNftAddressByIndex result for the same item code.
func (c *ContractReader) PredictNftAddress(itemCode *cell.Node, index uint64) (address.Address, error) {
	return message.PredictItemAddress(itemCode, index, c.addr)
}

// MintPrm groups parameters of SendMint.
type MintPrm struct {
	// Value attached to the message.
	Value           *big.Int
	QueryID         uint64
	CoinsForStorage *big.Int
}

// BatchMintPrm groups parameters of SendBatchMint.
type BatchMintPrm struct {
	// Value attached to the message, it determines number of minted items.
	Value   *big.Int
	QueryID uint64
}

// SendDeploy sends empty message with given value and StateInit of the
// collection attached.
func (c *Contract) SendDeploy(ctx context.Context, value *big.Int) (*provider.Effects, error) {
	msg, err := c.message(value, message.Deploy{})
	if err != nil {
		return nil, err
	}

	msg.Init = c.init

	return c.actor.Send(ctx, msg)
}

// SendMint sends Mint message.
func (c *Contract) SendMint(ctx context.Context, prm MintPrm) (*provider.Effects, error) {
	return c.send(ctx, prm.Value, message.Mint{QueryID: prm.QueryID, CoinsForStorage: prm.CoinsForStorage})
}

// SendBatchMint sends BatchMint message. Collection limits number of items
// per batch, the rejection is returned in resulting effects unchanged.
func (c *Contract) SendBatchMint(ctx context.Context, prm BatchMintPrm) (*provider.Effects, error) {
	return c.send(ctx, prm.Value, message.BatchMint{QueryID: prm.QueryID})
}

// SendGetRoyaltyParams sends GetRoyaltyParams message, collection replies
// with ReportRoyaltyParams to the sender.
func (c *Contract) SendGetRoyaltyParams(ctx context.Context, value *big.Int, queryID uint64) (*provider.Effects, error) {
	return c.send(ctx, value, message.GetRoyaltyParams{QueryID: queryID})
}

// SendChangeOwner sends ChangeOwner message, only current owner is allowed to
// send it.
func (c *Contract) SendChangeOwner(ctx context.Context, value *big.Int, queryID uint64, newOwner address.Address) (*provider.Effects, error) {
	return c.send(ctx, value, message.ChangeOwner{QueryID: queryID, NewOwner: newOwner})
}

// SendChangeContent sends ChangeContent message, only current owner is
// allowed to send it.
func (c *Contract) SendChangeContent(ctx context.Context, value *big.Int, op message.ChangeContent) (*provider.Effects, error) {
	return c.send(ctx, value, op)
}

func (c *Contract) message(value *big.Int, op message.Operation) (provider.Message, error) {
	body, err := message.Build(op)
	if err != nil {
		return provider.Message{}, fmt.Errorf("build %T body: %w", op, err)
	}

	return provider.NewMessage(c.addr, value, body), nil
}

func (c *Contract) send(ctx context.Context, value *big.Int, op message.Operation) (*provider.Effects, error) {
	msg, err := c.message(value, op)
	if err != nil {
		return nil, err
	}

	return c.actor.Send(ctx, msg)
}
