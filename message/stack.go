package message

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
)

var (
	// ErrUnexpectedStackShape is returned when get-method result has
	// unexpected number or types of items.
	ErrUnexpectedStackShape = errors.New("unexpected result stack shape")
	// ErrGetMethodFailed is returned when get-method execution faulted.
	ErrGetMethodFailed = errors.New("get-method execution failed")
)

// Stack reads get-method result items in order. Integers are expected as
// Integer items; booleans as Boolean items or integers -1 and 0; nodes and
// slices as Interop items holding *cell.Node or as byte arrays with
// serialized bag of cells.
type Stack struct {
	items []stackitem.Item
	next  int
}

// NewStack checks get-method invocation result and returns Stack over its
// items. It's designed to be called directly with the results of
// Invoker.RunGetMethod.
func NewStack(r *result.Invoke, err error) (*Stack, error) {
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: nil result", ErrUnexpectedStackShape)
	}
	if r.State != vmstate.Halt.String() {
		return nil, fmt.Errorf("%w: %s", ErrGetMethodFailed, r.FaultException)
	}

	return &Stack{items: r.Stack}, nil
}

// NewItemStack returns Stack over given items, e.g. get-method arguments.
func NewItemStack(items []stackitem.Item) *Stack {
	return &Stack{items: items}
}

// Len returns total number of items.
func (s *Stack) Len() int {
	return len(s.items)
}

// Remaining returns number of unread items.
func (s *Stack) Remaining() int {
	return len(s.items) - s.next
}

// ExpectLen checks that stack consists of exactly n items.
func (s *Stack) ExpectLen(n int) error {
	if len(s.items) != n {
		return fmt.Errorf("%w: %d items instead of %d", ErrUnexpectedStackShape, len(s.items), n)
	}

	return nil
}

func (s *Stack) pop() (stackitem.Item, int, error) {
	if s.Remaining() == 0 {
		return nil, s.next, fmt.Errorf("%w: item #%d is missing", ErrUnexpectedStackShape, s.next)
	}

	s.next++

	return s.items[s.next-1], s.next - 1, nil
}

func typeMismatch(i int, item stackitem.Item, exp string) error {
	return fmt.Errorf("%w: item #%d is %s instead of %s", ErrUnexpectedStackShape, i, item.Type(), exp)
}

// ReadBigInt reads integer.
func (s *Stack) ReadBigInt() (*big.Int, error) {
	item, i, err := s.pop()
	if err != nil {
		return nil, err
	}
	if item.Type() != stackitem.IntegerT {
		return nil, typeMismatch(i, item, "integer")
	}

	return item.TryInteger()
}

// ReadUint reads integer and checks it fits n-bit unsigned integer.
func (s *Stack) ReadUint(n int) (uint64, error) {
	v, err := s.ReadBigInt()
	if err != nil {
		return 0, err
	}
	if v.Sign() < 0 || v.BitLen() > n || n > 64 {
		return 0, fmt.Errorf("%w: item #%d value %v doesn't fit %d bits", ErrFieldOutOfRange, s.next-1, v, n)
	}

	return v.Uint64(), nil
}

// ReadBool reads boolean.
func (s *Stack) ReadBool() (bool, error) {
	item, i, err := s.pop()
	if err != nil {
		return false, err
	}

	switch item.Type() {
	case stackitem.BooleanT:
		return item.TryBool()
	case stackitem.IntegerT:
		v, err := item.TryInteger()
		if err != nil {
			return false, err
		}

		switch {
		case v.Sign() == 0:
			return false, nil
		case v.IsInt64() && v.Int64() == -1:
			return true, nil
		default:
			return false, fmt.Errorf("%w: item #%d integer %v is not a boolean", ErrUnexpectedStackShape, i, v)
		}
	default:
		return false, typeMismatch(i, item, "boolean")
	}
}

// ReadNode reads node or slice.
func (s *Stack) ReadNode() (*cell.Node, error) {
	item, i, err := s.pop()
	if err != nil {
		return nil, err
	}

	return nodeFromItem(i, item)
}

// ReadMaybeNode is similar to ReadNode but accepts Null item returning nil.
func (s *Stack) ReadMaybeNode() (*cell.Node, error) {
	item, i, err := s.pop()
	if err != nil {
		return nil, err
	}
	if item.Type() == stackitem.AnyT {
		return nil, nil
	}

	return nodeFromItem(i, item)
}

func nodeFromItem(i int, item stackitem.Item) (*cell.Node, error) {
	switch item.Type() {
	case stackitem.InteropT:
		n, ok := item.Value().(*cell.Node)
		if !ok || n == nil {
			return nil, fmt.Errorf("%w: item #%d holds %T instead of node", ErrUnexpectedStackShape, i, item.Value())
		}

		return n, nil
	case stackitem.ByteArrayT, stackitem.BufferT:
		b, err := item.TryBytes()
		if err != nil {
			return nil, err
		}

		n, err := cell.ParseBoC(b)
		if err != nil {
			return nil, fmt.Errorf("%w: item #%d: %w", ErrUnexpectedStackShape, i, err)
		}

		return n, nil
	default:
		return nil, typeMismatch(i, item, "node")
	}
}

// ReadAddress reads slice holding an address. Nil is returned for addr_none
// and Null item.
func (s *Stack) ReadAddress() (*address.Address, error) {
	n, err := s.ReadMaybeNode()
	if err != nil || n == nil {
		return nil, err
	}

	a, err := n.BeginParse().LoadAddress()
	if err != nil {
		return nil, fmt.Errorf("%w: item #%d: %w", ErrUnexpectedStackShape, s.next-1, err)
	}

	return a, nil
}

// IntItem returns stack item for get-method integer argument.
func IntItem(v uint64) stackitem.Item {
	return stackitem.NewBigInteger(new(big.Int).SetUint64(v))
}

// NodeItem returns stack item for get-method node or slice argument.
func NodeItem(n *cell.Node) stackitem.Item {
	return stackitem.NewInterop(n)
}

// AddressItem returns stack item of the slice holding given address.
func AddressItem(a *address.Address) (stackitem.Item, error) {
	n, err := cell.NewBuilder().StoreAddress(a).EndCell()
	if err != nil {
		return nil, err
	}

	return NodeItem(n), nil
}
