/*
Package sandbox provides in-memory ledger executing Go models of the
collection and item programs.

Ledger processes every submitted message synchronously together with all the
messages it causes and reports them as single trace. Fees aren't charged,
failed messages are bounced back with full value when requested.
*/
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/crypto-pepe-dev/nft-minter/provider"
	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"go.uber.org/zap"
)

// DefaultMaxTransactions limits number of transactions in a trace by default.
const DefaultMaxTransactions = 1024

// bouncedPrefix starts the body of the bounced message.
const bouncedPrefix = 0xffffffff

var (
	// ErrAccountNotActive is returned on get-method call of the account
	// without code.
	ErrAccountNotActive = errors.New("account is not active")
	// ErrUnknownProgram is returned when account code isn't registered.
	ErrUnknownProgram = errors.New("unknown program code")
	// ErrInsufficientFunds is returned when wallet balance doesn't cover
	// message value.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTraceTooLong is returned when message causes too many transactions.
	ErrTraceTooLong = errors.New("trace is too long")
)

// Prm groups Ledger parameters.
type Prm struct {
	// Writes processing details into the log.
	Logger *zap.Logger

	// Limits trace length, DefaultMaxTransactions if zero.
	MaxTransactions int
}

// Account is a state of the ledger account.
type Account struct {
	Address address.Address
	Balance *big.Int
	Code    *cell.Node
	Data    *cell.Node

	wallet bool
}

// Active checks whether account can process messages.
func (a Account) Active() bool {
	return a.wallet || a.Code != nil
}

// Submission is a message sent by one of the wallets.
type Submission struct {
	Trace   uuid.UUID
	From    address.Address
	Message provider.Message
}

// Ledger is an in-memory ledger. It's safe for concurrent use, messages are
// processed one by one.
type Ledger struct {
	log   *zap.Logger
	maxTx int

	mu          sync.Mutex
	accounts    map[address.Address]*Account
	programs    map[util.Uint256]Program
	submissions []Submission
}

type pending struct {
	from    address.Address
	msg     provider.Message
	bounced bool
}

// New returns empty Ledger.
func New(prm Prm) *Ledger {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}
	if prm.MaxTransactions <= 0 {
		prm.MaxTransactions = DefaultMaxTransactions
	}

	return &Ledger{
		log:      prm.Logger,
		maxTx:    prm.MaxTransactions,
		accounts: make(map[address.Address]*Account),
		programs: make(map[util.Uint256]Program),
	}
}

// Register binds program model to the code. Accounts deployed with this code
// are executed by p.
func (l *Ledger) Register(code *cell.Node, p Program) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.programs[code.Hash()] = p
}

// Account returns copy of the account state.
func (l *Ledger) Account(addr address.Address) (Account, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[addr]
	if !ok {
		return Account{}, false
	}

	res := *acc
	res.Balance = new(big.Int).Set(acc.Balance)

	return res, true
}

// Submissions returns all messages sent by wallets so far.
func (l *Ledger) Submissions() []Submission {
	l.mu.Lock()
	defer l.mu.Unlock()

	return append([]Submission(nil), l.submissions...)
}

// RunGetMethod implements provider.Invoker. Program exit codes are reported
// as FAULT state.
func (l *Ledger) RunGetMethod(ctx context.Context, addr address.Address, method string, args ...stackitem.Item) (*result.Invoke, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[addr]
	if !ok || acc.Code == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotActive, addr)
	}

	prog, ok := l.programs[acc.Code.Hash()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownProgram, acc.Code.Hash().StringBE())
	}

	items, err := prog.Get(addr, acc.Data, method, message.NewItemStack(args))
	if err != nil {
		code := exitCode(err)

		l.log.Debug("get-method failed",
			zap.Stringer("address", addr), zap.String("method", method), zap.Int("exit code", code), zap.Error(err))

		return &result.Invoke{
			State:          vmstate.Fault.String(),
			FaultException: fmt.Sprintf("exit code %d: %v", code, err),
		}, nil
	}

	return &result.Invoke{
		State: vmstate.Halt.String(),
		Stack: items,
	}, nil
}

// submit processes message sent by the wallet and all the messages caused by
// it.
func (l *Ledger) submit(ctx context.Context, from address.Address, msg provider.Message) (*provider.Effects, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if msg.Value == nil {
		msg.Value = new(big.Int)
	}
	if msg.Value.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %v", message.ErrFieldOutOfRange, msg.Value)
	}
	if msg.Body == nil {
		msg.Body = cell.Empty()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.accounts[from]
	if !ok || !w.wallet {
		return nil, fmt.Errorf("%w: %s is not a wallet", ErrAccountNotActive, from)
	}
	if w.Balance.Cmp(msg.Value) < 0 {
		return nil, fmt.Errorf("%w: balance %s, value %s", ErrInsufficientFunds,
			message.FromNano(w.Balance), message.FromNano(msg.Value))
	}

	eff := &provider.Effects{Trace: uuid.New()}

	l.submissions = append(l.submissions, Submission{Trace: eff.Trace, From: from, Message: msg})

	l.log.Info("message submitted",
		zap.Stringer("trace", eff.Trace),
		zap.Stringer("from", from),
		zap.Stringer("to", msg.To),
		zap.String("value", message.FromNano(msg.Value)),
		zap.Bool("deploy", msg.Init != nil))

	w.Balance.Sub(w.Balance, msg.Value)
	l.appendTx(eff, provider.Transaction{To: from, Success: true, Value: new(big.Int), Body: cell.Empty()})

	queue := []pending{{from: from, msg: msg}}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return eff, err
		}
		if len(eff.Transactions) >= l.maxTx {
			return eff, fmt.Errorf("%w: more than %d transactions", ErrTraceTooLong, l.maxTx)
		}

		p := queue[0]
		queue = queue[1:]

		tx, out, err := l.process(p)
		if err != nil {
			return eff, err
		}

		l.appendTx(eff, tx)
		queue = append(queue, out...)
	}

	return eff, nil
}

func (l *Ledger) appendTx(eff *provider.Effects, tx provider.Transaction) {
	w := io.NewBufBinWriter()
	w.WriteBytes(eff.Trace[:])
	w.WriteU32LE(uint32(len(eff.Transactions)))
	w.WriteB(byte(tx.To.Workchain))
	w.WriteBytes(tx.To.Hash.BytesBE())
	w.WriteBytes(tx.Body.Hash().BytesBE())

	tx.Hash = hash.Sha256(w.Bytes())

	l.log.Debug("transaction",
		zap.Stringer("trace", eff.Trace),
		zap.Stringer("hash", tx.Hash),
		zap.Stringer("to", tx.To),
		zap.Bool("deploy", tx.Deploy),
		zap.Bool("success", tx.Success),
		zap.Int("exit code", tx.ExitCode))

	eff.Transactions = append(eff.Transactions, tx)
}

func (l *Ledger) process(p pending) (provider.Transaction, []pending, error) {
	from := p.from
	tx := provider.Transaction{
		From:  &from,
		To:    p.msg.To,
		Value: p.msg.Value,
		Body:  p.msg.Body,
	}

	acc, ok := l.accounts[p.msg.To]
	if !ok {
		acc = &Account{Address: p.msg.To, Balance: new(big.Int)}
		l.accounts[p.msg.To] = acc
	}

	if !acc.Active() && p.msg.Init != nil {
		a, err := p.msg.Init.Address(p.msg.To.Workchain)
		if err == nil && a.Equals(p.msg.To) {
			acc.Code, acc.Data = p.msg.Init.Code, p.msg.Init.Data
			tx.Deploy = true
		}
	}

	acc.Balance.Add(acc.Balance, p.msg.Value)

	if acc.wallet {
		tx.Success = true
		return tx, nil, nil
	}
	if acc.Code == nil {
		tx.Aborted = true
		tx.Skipped = true
		return tx, l.bounce(acc, p), nil
	}

	prog, ok := l.programs[acc.Code.Hash()]
	if !ok {
		return tx, nil, fmt.Errorf("%w: %s at %s", ErrUnknownProgram, acc.Code.Hash().StringBE(), acc.Address)
	}

	out, err := prog.Receive(Inbound{
		Self:    acc.Address,
		Sender:  &from,
		Value:   new(big.Int).Set(p.msg.Value),
		Bounced: p.bounced,
		Body:    p.msg.Body,
		Data:    acc.Data,
	})
	if err != nil {
		tx.Aborted = true
		tx.ExitCode = exitCode(err)

		l.log.Debug("message processing failed",
			zap.Stringer("address", acc.Address), zap.Int("exit code", tx.ExitCode), zap.Error(err))

		return tx, l.bounce(acc, p), nil
	}

	total := new(big.Int)
	for i := range out.Messages {
		if out.Messages[i].Value != nil {
			total.Add(total, out.Messages[i].Value)
		}
	}

	if acc.Balance.Cmp(total) < 0 {
		tx.Aborted = true
		tx.ExitCode = ExitNotEnoughBalance

		return tx, l.bounce(acc, p), nil
	}

	acc.Balance.Sub(acc.Balance, total)
	if out.Data != nil {
		acc.Data = out.Data
	}

	tx.Success = true

	res := make([]pending, 0, len(out.Messages))
	for _, m := range out.Messages {
		if m.Value == nil {
			m.Value = new(big.Int)
		}
		if m.Body == nil {
			m.Body = cell.Empty()
		}

		res = append(res, pending{from: acc.Address, msg: m})
	}

	return tx, res, nil
}

// bounce returns inbound value to the sender if message is bounceable.
func (l *Ledger) bounce(acc *Account, p pending) []pending {
	if !p.msg.Bounce || p.bounced {
		return nil
	}

	value := new(big.Int).Set(p.msg.Value)
	if acc.Balance.Cmp(value) < 0 {
		value.Set(acc.Balance)
	}

	acc.Balance.Sub(acc.Balance, value)

	bits := min(p.msg.Body.BitsLen(), 256)

	body, err := cell.NewBuilder().
		StoreUint(bouncedPrefix, 32).
		StoreBits(p.msg.Body.Data(), bits).
		EndCell()
	if err != nil {
		l.log.Error("failed to build bounced body", zap.Error(err))
		body = cell.Empty()
	}

	return []pending{{
		from:    acc.Address,
		msg:     provider.Message{To: p.from, Value: value, Body: body},
		bounced: true,
	}}
}
