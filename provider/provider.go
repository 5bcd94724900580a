/*
Package provider defines the capabilities contract wrappers need from the
ledger: read-only get-method invocation and submission of internal messages
returning transaction effects.

Transport, signing and account funding are left to implementations, see
sandbox package for the in-memory one.
*/
package provider

import (
	"context"
	"fmt"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Invoker runs get-methods of deployed programs.
type Invoker interface {
	RunGetMethod(ctx context.Context, addr address.Address, method string, args ...stackitem.Item) (*result.Invoke, error)
}

// Actor is an Invoker able to send internal messages on behalf of its wallet.
type Actor interface {
	Invoker
	// Sender returns address of the wallet messages are sent from, nil if
	// unknown.
	Sender() *address.Address
	Send(ctx context.Context, msg Message) (*Effects, error)
}

// SendMode is a set of flags of outgoing message.
type SendMode uint8

// Send mode flags.
const (
	// PayGasSeparately makes sender pay fees on top of the message value.
	PayGasSeparately SendMode = 1
	// IgnoreErrors skips the message if it can't be sent.
	IgnoreErrors SendMode = 2
	// CarryRemainingValue attaches the rest of the inbound message value.
	CarryRemainingValue SendMode = 64
	// CarryAllBalance attaches the whole remaining balance.
	CarryAllBalance SendMode = 128
)

// Message is an internal message to be sent by Actor.
type Message struct {
	To     address.Address
	Value  *big.Int
	Bounce bool
	Mode   SendMode
	// Init is attached to deploy the recipient, nil otherwise.
	Init *message.StateInit
	Body *cell.Node
}

// NewMessage returns bounceable message paying fees separately.
func NewMessage(to address.Address, value *big.Int, body *cell.Node) Message {
	return Message{
		To:     to,
		Value:  value,
		Bounce: true,
		Mode:   PayGasSeparately,
		Body:   body,
	}
}

// Transaction describes processing of one message by its recipient.
type Transaction struct {
	// Hash identifies transaction within the trace.
	Hash util.Uint256
	// From is nil for external messages.
	From *address.Address
	To   address.Address
	// Deploy is set when the recipient was initialized by this transaction.
	Deploy bool
	// Success is set when computation ended with successful exit code and
	// all outgoing messages were sent.
	Success bool
	Aborted bool
	// Skipped is set when the recipient had no code to run, ExitCode is
	// meaningless then.
	Skipped  bool
	ExitCode int
	Value    *big.Int
	Body     *cell.Node
}

// Effects is a result of message submission: the trace of transactions
// caused by it in processing order.
type Effects struct {
	Trace        uuid.UUID
	Transactions []Transaction
}

// ExitError is a failure reported by the remote program, Code is passed
// unchanged. Skipped errors mean there was no program at Address.
type ExitError struct {
	Address address.Address
	Code    int
	Skipped bool
}

func (e *ExitError) Error() string {
	if e.Skipped {
		return fmt.Sprintf("program %s was not executed: account has no code", e.Address)
	}

	return fmt.Sprintf("program %s failed with exit code %d", e.Address, e.Code)
}

// Err returns ExitError for the first failed transaction, nil if all
// transactions succeeded.
func (e *Effects) Err() error {
	for i := range e.Transactions {
		if !e.Transactions[i].Success {
			tx := &e.Transactions[i]
			return &ExitError{Address: tx.To, Code: tx.ExitCode, Skipped: tx.Skipped}
		}
	}

	return nil
}

// TxFilter matches transactions, unset fields match anything.
type TxFilter struct {
	From     *address.Address
	To       *address.Address
	Deploy   *bool
	Success  *bool
	ExitCode *int
}

func (f TxFilter) match(tx Transaction) bool {
	switch {
	case f.From != nil && (tx.From == nil || !tx.From.Equals(*f.From)):
		return false
	case f.To != nil && !tx.To.Equals(*f.To):
		return false
	case f.Deploy != nil && tx.Deploy != *f.Deploy:
		return false
	case f.Success != nil && tx.Success != *f.Success:
		return false
	case f.ExitCode != nil && tx.ExitCode != *f.ExitCode:
		return false
	default:
		return true
	}
}

// Find returns the first transaction matching f.
func (e *Effects) Find(f TxFilter) (Transaction, bool) {
	for _, tx := range e.Transactions {
		if f.match(tx) {
			return tx, true
		}
	}

	return Transaction{}, false
}

// Has checks whether any transaction matches f.
func (e *Effects) Has(f TxFilter) bool {
	_, ok := e.Find(f)
	return ok
}
