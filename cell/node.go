/*
Package cell implements the bounded storage unit of the ledger and its binary
representations.

A Node (cell) holds up to MaxBits bits of payload and up to MaxRefs references
to other nodes. Nodes are immutable: representation hash and depth are
computed once at construction time, so a Node may be shared between any
number of trees and goroutines.

Nodes are written with Builder and read with Slice. Trees of nodes are
serialized with the bag-of-cells format, see SerializeBoC and ParseBoC.
*/
package cell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Capacity of a single Node.
const (
	// MaxBits is a maximum payload size in bits.
	MaxBits = 1023
	// MaxBytes is a maximum payload size in whole bytes.
	MaxBytes = MaxBits / 8
	// MaxRefs is a maximum number of references.
	MaxRefs = 4
)

var (
	// ErrCapacityExceeded is returned when payload or references don't fit
	// into a single Node.
	ErrCapacityExceeded = errors.New("node capacity exceeded")
	// ErrIndexOutOfRange is returned on access to a missing reference.
	ErrIndexOutOfRange = errors.New("reference index out of range")
	// ErrFieldOutOfRange is returned when a value can't be represented with
	// requested number of bits.
	ErrFieldOutOfRange = errors.New("field value out of range")
	// ErrNotEnoughData is returned on read past the end of a Slice.
	ErrNotEnoughData = errors.New("not enough data")
	// ErrNilReference is returned on attempt to reference nil Node.
	ErrNilReference = errors.New("nil reference")
)

// Node is an immutable ordinary cell.
type Node struct {
	data  []byte
	bits  int
	refs  []*Node
	hash  util.Uint256
	depth uint16
}

// Build creates Node holding given bytes and references.
func Build(payload []byte, refs ...*Node) (*Node, error) {
	if len(payload) > MaxBytes {
		return nil, fmt.Errorf("%w: %d bytes of payload, max %d", ErrCapacityExceeded, len(payload), MaxBytes)
	}

	return newNode(payload, len(payload)*8, refs)
}

// Empty returns Node without payload and references.
func Empty() *Node {
	n, _ := newNode(nil, 0, nil)
	return n
}

func newNode(data []byte, bits int, refs []*Node) (*Node, error) {
	if bits > MaxBits {
		return nil, fmt.Errorf("%w: %d bits of payload, max %d", ErrCapacityExceeded, bits, MaxBits)
	}
	if len(refs) > MaxRefs {
		return nil, fmt.Errorf("%w: %d references, max %d", ErrCapacityExceeded, len(refs), MaxRefs)
	}

	n := &Node{
		data: make([]byte, (bits+7)/8),
		bits: bits,
		refs: make([]*Node, len(refs)),
	}

	copy(n.data, data)
	if tail := bits % 8; tail != 0 {
		n.data[len(n.data)-1] &= 0xFF << (8 - tail)
	}

	for i := range refs {
		if refs[i] == nil {
			return nil, fmt.Errorf("%w: reference #%d", ErrNilReference, i)
		}

		n.refs[i] = refs[i]
		if d := refs[i].depth + 1; d > n.depth {
			n.depth = d
		}
	}

	n.hash = hash.Sha256(n.repr())

	return n, nil
}

// descriptors returns d1 and d2 descriptor bytes of the ordinary level-0 cell.
func (n *Node) descriptors() (byte, byte) {
	return byte(len(n.refs)), byte(n.bits/8 + (n.bits+7)/8)
}

// paddedData returns payload with completion tag appended if payload isn't
// byte-aligned.
func (n *Node) paddedData() []byte {
	res := append([]byte(nil), n.data...)
	if tail := n.bits % 8; tail != 0 {
		res[len(res)-1] |= 0x80 >> tail
	}

	return res
}

// repr returns representation of the Node which is hashed.
func (n *Node) repr() []byte {
	d1, d2 := n.descriptors()

	res := make([]byte, 0, 2+len(n.data)+len(n.refs)*(2+util.Uint256Size))
	res = append(res, d1, d2)
	res = append(res, n.paddedData()...)

	for i := range n.refs {
		res = append(res, byte(n.refs[i].depth>>8), byte(n.refs[i].depth))
	}

	for i := range n.refs {
		res = append(res, n.refs[i].hash.BytesBE()...)
	}

	return res
}

// BitsLen returns payload size in bits.
func (n *Node) BitsLen() int {
	return n.bits
}

// Len returns number of bytes returned by Data.
func (n *Node) Len() int {
	return len(n.data)
}

// Data returns copy of the payload bytes. If payload isn't byte-aligned, the
// last byte is zero-padded.
func (n *Node) Data() []byte {
	return append([]byte(nil), n.data...)
}

// RefsNum returns number of references.
func (n *Node) RefsNum() int {
	return len(n.refs)
}

// Ref returns i-th reference.
func (n *Node) Ref(i int) (*Node, error) {
	if i < 0 || i >= len(n.refs) {
		return nil, fmt.Errorf("%w: %d of %d", ErrIndexOutOfRange, i, len(n.refs))
	}

	return n.refs[i], nil
}

// Hash returns representation hash of the Node.
func (n *Node) Hash() util.Uint256 {
	return n.hash
}

// Depth returns maximum length of reference chain starting from the Node.
func (n *Node) Depth() uint16 {
	return n.depth
}

// Equal checks whether both nodes have the same payload and the same
// references recursively.
func (n *Node) Equal(other *Node) bool {
	if n == nil || other == nil {
		return n == other
	}

	return n.hash.Equals(other.hash)
}

// BeginParse returns Slice reading the Node from the beginning.
func (n *Node) BeginParse() *Slice {
	return &Slice{node: n}
}

// String returns payload in "x{HEX}" notation followed by references, one per
// line with indentation.
func (n *Node) String() string {
	var sb strings.Builder
	n.dump(&sb, 0)
	return strings.TrimSuffix(sb.String(), "\n")
}

func (n *Node) dump(sb *strings.Builder, indent int) {
	sb.WriteString(strings.Repeat(" ", indent))
	sb.WriteString("x{")

	const hexDigits = "0123456789ABCDEF"

	data := n.data
	nibbles := n.bits / 4
	if n.bits%4 != 0 {
		data = n.paddedData()
		nibbles++
	}

	for i := 0; i < nibbles; i++ {
		b := data[i/2]
		if i%2 == 0 {
			b >>= 4
		}
		sb.WriteByte(hexDigits[b&0x0F])
	}

	if n.bits%4 != 0 {
		sb.WriteByte('_')
	}

	sb.WriteString("}\n")

	for i := range n.refs {
		n.refs[i].dump(sb, indent+1)
	}
}
