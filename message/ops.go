/*
Package message builds and parses message bodies of the NFT collection
program, its persistent data layouts and results of its get-methods.

Every body except Deploy starts with 32-bit operation code and 64-bit query
identifier followed by operation-specific fields, all big-endian without
padding. The set of operations is closed: Operation is implemented only by
the types of this package.
*/
package message

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
)

// Operation codes.
const (
	OpMint                uint32 = 1
	OpBatchMint           uint32 = 2
	OpChangeOwner         uint32 = 3
	OpChangeContent       uint32 = 4
	OpGetRoyaltyParams    uint32 = 0x693d3950
	OpReportRoyaltyParams uint32 = 0xa8cb00ad
)

// Field widths in bits.
const (
	OpcodeBits  = 32
	QueryIDBits = 64
	IndexBits   = 64
	RoyaltyBits = 16
)

var (
	// ErrFieldOutOfRange is returned when field value doesn't fit its width.
	ErrFieldOutOfRange = cell.ErrFieldOutOfRange
	// ErrUnknownOpcode is returned on parsing body with unsupported opcode.
	ErrUnknownOpcode = errors.New("unknown operation code")
)

// Operation is a message body of the collection program.
type Operation interface {
	// Opcode returns operation code, Deploy has no code and returns 0.
	Opcode() uint32

	isOperation()
}

// Deploy is an empty body carried by the deployment message.
type Deploy struct{}

// Mint requests minting of the next item.
type Mint struct {
	QueryID         uint64
	CoinsForStorage *big.Int
}

// BatchMint requests minting of as many items as the attached value funds.
type BatchMint struct {
	QueryID uint64
}

// GetRoyaltyParams requests ReportRoyaltyParams reply.
type GetRoyaltyParams struct {
	QueryID uint64
}

// ReportRoyaltyParams is a reply to GetRoyaltyParams.
type ReportRoyaltyParams struct {
	QueryID uint64
	Royalty RoyaltyParams
}

// ChangeOwner transfers collection ownership.
type ChangeOwner struct {
	QueryID  uint64
	NewOwner address.Address
}

// ChangeContent replaces collection content and royalty parameters.
type ChangeContent struct {
	QueryID              uint64
	CollectionContentURL string
	CommonContentURL     string
	Royalty              RoyaltyParams
}

func (Deploy) Opcode() uint32              { return 0 }
func (Mint) Opcode() uint32                { return OpMint }
func (BatchMint) Opcode() uint32           { return OpBatchMint }
func (GetRoyaltyParams) Opcode() uint32    { return OpGetRoyaltyParams }
func (ReportRoyaltyParams) Opcode() uint32 { return OpReportRoyaltyParams }
func (ChangeOwner) Opcode() uint32         { return OpChangeOwner }
func (ChangeContent) Opcode() uint32       { return OpChangeContent }

func (Deploy) isOperation()              {}
func (Mint) isOperation()                {}
func (BatchMint) isOperation()           {}
func (GetRoyaltyParams) isOperation()    {}
func (ReportRoyaltyParams) isOperation() {}
func (ChangeOwner) isOperation()         {}
func (ChangeContent) isOperation()       {}

// Build validates op fields and packs op into a message body.
func Build(op Operation) (*cell.Node, error) {
	if op == nil {
		return nil, errors.New("nil operation")
	}

	if _, ok := op.(Deploy); ok {
		return cell.Empty(), nil
	}

	b := cell.NewBuilder().
		StoreUint(uint64(op.Opcode()), OpcodeBits)

	switch op := op.(type) {
	case Mint:
		if err := checkCoins("coins for storage", op.CoinsForStorage); err != nil {
			return nil, err
		}

		b.StoreUint(op.QueryID, QueryIDBits).StoreCoins(op.CoinsForStorage)
	case BatchMint:
		b.StoreUint(op.QueryID, QueryIDBits)
	case GetRoyaltyParams:
		b.StoreUint(op.QueryID, QueryIDBits)
	case ReportRoyaltyParams:
		if err := op.Royalty.validate(); err != nil {
			return nil, err
		}

		b.StoreUint(op.QueryID, QueryIDBits)
		op.Royalty.store(b)
	case ChangeOwner:
		b.StoreUint(op.QueryID, QueryIDBits).StoreAddress(&op.NewOwner)
	case ChangeContent:
		if err := op.Royalty.validate(); err != nil {
			return nil, err
		}

		content, err := contentNode(op.CollectionContentURL, op.CommonContentURL)
		if err != nil {
			return nil, err
		}

		royalty, err := op.Royalty.Node()
		if err != nil {
			return nil, err
		}

		b.StoreUint(op.QueryID, QueryIDBits).StoreRef(content).StoreRef(royalty)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownOpcode, op)
	}

	res, err := b.EndCell()
	if err != nil {
		return nil, fmt.Errorf("pack 0x%08x body: %w", op.Opcode(), err)
	}

	return res, nil
}

// Parse decodes message body. Empty body is decoded as Deploy.
func Parse(body *cell.Node) (Operation, error) {
	if body == nil {
		return nil, cell.ErrNilReference
	}
	if body.BitsLen() == 0 && body.RefsNum() == 0 {
		return Deploy{}, nil
	}

	s := body.BeginParse()

	op, err := s.LoadUint(OpcodeBits)
	if err != nil {
		return nil, fmt.Errorf("opcode: %w", err)
	}

	queryID, err := s.LoadUint(QueryIDBits)
	if err != nil {
		return nil, fmt.Errorf("query ID: %w", err)
	}

	switch uint32(op) {
	case OpMint:
		coins, err := s.LoadCoins()
		if err != nil {
			return nil, fmt.Errorf("coins for storage: %w", err)
		}

		return Mint{QueryID: queryID, CoinsForStorage: coins}, nil
	case OpBatchMint:
		return BatchMint{QueryID: queryID}, nil
	case OpGetRoyaltyParams:
		return GetRoyaltyParams{QueryID: queryID}, nil
	case OpReportRoyaltyParams:
		r, err := loadRoyalty(s)
		if err != nil {
			return nil, err
		}

		return ReportRoyaltyParams{QueryID: queryID, Royalty: r}, nil
	case OpChangeOwner:
		owner, err := loadRequiredAddress(s, "new owner")
		if err != nil {
			return nil, err
		}

		return ChangeOwner{QueryID: queryID, NewOwner: owner}, nil
	case OpChangeContent:
		res := ChangeContent{QueryID: queryID}

		content, err := s.LoadRef()
		if err != nil {
			return nil, fmt.Errorf("content: %w", err)
		}

		res.CollectionContentURL, res.CommonContentURL, err = parseContentNode(content)
		if err != nil {
			return nil, err
		}

		royalty, err := s.LoadRef()
		if err != nil {
			return nil, fmt.Errorf("royalty: %w", err)
		}

		res.Royalty, err = ParseRoyaltyNode(royalty)
		if err != nil {
			return nil, err
		}

		return res, nil
	default:
		return nil, fmt.Errorf("%w: 0x%08x", ErrUnknownOpcode, op)
	}
}

func checkCoins(name string, v *big.Int) error {
	if v == nil {
		return nil
	}
	if v.Sign() < 0 || v.BitLen() > cell.MaxCoinsBytes*8 {
		return fmt.Errorf("%w: %s=%v", ErrFieldOutOfRange, name, v)
	}

	return nil
}

func checkUint(name string, v int, bits int) error {
	if v < 0 || v >= 1<<bits {
		return fmt.Errorf("%w: %s=%d doesn't fit %d bits", ErrFieldOutOfRange, name, v, bits)
	}

	return nil
}
