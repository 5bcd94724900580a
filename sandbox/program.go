package sandbox

import (
	"errors"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/crypto-pepe-dev/nft-minter/provider"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// Exit codes reported by the ledger and the bundled programs.
const (
	ExitTypeCheck        = 7
	ExitCellUnderflow    = 9
	ExitUnknownMethod    = 11
	ExitNotEnoughBalance = 37
	ExitBatchTooLarge    = 399
	ExitNotOwner         = 401
	ExitNotEnoughValue   = 402
	ExitNotCollection    = 405
	ExitUnknownOp        = 0xffff
)

// Inbound is a message delivered to the program.
type Inbound struct {
	Self address.Address
	// Sender is nil for external messages.
	Sender *address.Address
	Value  *big.Int
	// Bounced is set for messages returned after failed processing.
	Bounced bool
	Body    *cell.Node
	// Data is the current persistent data of the program.
	Data *cell.Node
}

// Outcome is a result of successful message processing.
type Outcome struct {
	// Data replaces program persistent data, nil keeps it.
	Data     *cell.Node
	Messages []provider.Message
}

// Program is a model of the on-chain program bound to the code it's
// registered with.
type Program interface {
	// Receive processes inbound message. Exit returns error with particular
	// exit code, other errors are reported as failed parsing.
	Receive(in Inbound) (Outcome, error)
	// Get runs get-method against current persistent data.
	Get(self address.Address, data *cell.Node, method string, args *message.Stack) ([]stackitem.Item, error)
}

// Exit returns error terminating the program with given exit code.
func Exit(code int) error {
	return &provider.ExitError{Code: code}
}

func exitCode(err error) int {
	var e *provider.ExitError

	switch {
	case errors.As(err, &e):
		return e.Code
	case errors.Is(err, message.ErrUnexpectedStackShape):
		return ExitTypeCheck
	default:
		return ExitCellUnderflow
	}
}
