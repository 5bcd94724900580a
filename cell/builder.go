package cell

import (
	"fmt"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
)

// MaxCoinsBytes is a maximum length of the coin amount magnitude.
const MaxCoinsBytes = 15

// Builder composes a single Node. Store methods never panic: the first
// failure is kept in Err, turns all subsequent calls into no-op and is
// returned from EndCell.
type Builder struct {
	BitString

	refs []*Node

	// Err is the first error occurred during writing.
	Err error
}

// NewBuilder returns empty Builder.
func NewBuilder() *Builder {
	return new(Builder)
}

// BitsLeft returns number of bits which can still be stored.
func (b *Builder) BitsLeft() int {
	return MaxBits - b.bits
}

// RefsLeft returns number of references which can still be stored.
func (b *Builder) RefsLeft() int {
	return MaxRefs - len(b.refs)
}

func (b *Builder) reserve(n int) bool {
	if b.Err != nil {
		return false
	}
	if n > b.BitsLeft() {
		b.Err = fmt.Errorf("%w: %d more bits requested, %d left", ErrCapacityExceeded, n, b.BitsLeft())
		return false
	}

	return true
}

// StoreBit writes single bit.
func (b *Builder) StoreBit(bit bool) *Builder {
	if b.reserve(1) {
		b.AppendBit(bit)
	}
	return b
}

// StoreBool is an alias of StoreBit.
func (b *Builder) StoreBool(v bool) *Builder {
	return b.StoreBit(v)
}

// StoreUint writes n-bit unsigned integer, n must be in [0; 64] range. Values
// which don't fit n bits are rejected with ErrFieldOutOfRange.
func (b *Builder) StoreUint(v uint64, n int) *Builder {
	if b.Err != nil {
		return b
	}
	if n < 0 || n > 64 {
		b.Err = fmt.Errorf("%w: unsupported width %d", ErrFieldOutOfRange, n)
		return b
	}
	if n < 64 && v>>n != 0 {
		b.Err = fmt.Errorf("%w: %d doesn't fit %d bits", ErrFieldOutOfRange, v, n)
		return b
	}

	if b.reserve(n) {
		for i := n - 1; i >= 0; i-- {
			b.AppendBit(v>>i&1 == 1)
		}
	}

	return b
}

// StoreInt writes n-bit two's complement signed integer, n must be in
// [1; 64] range.
func (b *Builder) StoreInt(v int64, n int) *Builder {
	if b.Err != nil {
		return b
	}
	if n < 1 || n > 64 {
		b.Err = fmt.Errorf("%w: unsupported width %d", ErrFieldOutOfRange, n)
		return b
	}
	if n < 64 {
		if lim := int64(1) << (n - 1); v < -lim || v >= lim {
			b.Err = fmt.Errorf("%w: %d doesn't fit %d bits", ErrFieldOutOfRange, v, n)
			return b
		}
	}

	u := uint64(v)
	if n < 64 {
		u &= 1<<n - 1
	}

	return b.StoreUint(u, n)
}

// StoreBigUint writes n-bit unsigned integer of arbitrary width.
func (b *Builder) StoreBigUint(v *big.Int, n int) *Builder {
	if b.Err != nil {
		return b
	}
	if v == nil || v.Sign() < 0 || v.BitLen() > n {
		b.Err = fmt.Errorf("%w: %v doesn't fit %d unsigned bits", ErrFieldOutOfRange, v, n)
		return b
	}

	if b.reserve(n) {
		buf := v.FillBytes(make([]byte, (n+7)/8))
		b.appendBitsFrom(buf, len(buf)*8-n, n)
	}

	return b
}

// StoreCoins writes coin amount as variable-length unsigned integer: 4-bit
// byte length followed by big-endian magnitude. Nil is treated as zero.
func (b *Builder) StoreCoins(v *big.Int) *Builder {
	if v == nil {
		return b.StoreUint(0, 4)
	}
	if b.Err != nil {
		return b
	}
	if v.Sign() < 0 {
		b.Err = fmt.Errorf("%w: negative coin amount %v", ErrFieldOutOfRange, v)
		return b
	}

	l := (v.BitLen() + 7) / 8
	if l > MaxCoinsBytes {
		b.Err = fmt.Errorf("%w: coin amount %v exceeds %d bytes", ErrFieldOutOfRange, v, MaxCoinsBytes)
		return b
	}

	return b.StoreUint(uint64(l), 4).StoreBigUint(v, l*8)
}

// StoreBytes writes given bytes.
func (b *Builder) StoreBytes(data []byte) *Builder {
	return b.StoreBits(data, len(data)*8)
}

// StoreBits writes first n bits of data.
func (b *Builder) StoreBits(data []byte, n int) *Builder {
	if b.Err == nil && (n < 0 || n > len(data)*8) {
		b.Err = fmt.Errorf("%w: %d bits requested from %d bytes", ErrNotEnoughData, n, len(data))
	}

	if b.reserve(n) {
		b.AppendBits(data, n)
	}

	return b
}

// StoreAddress writes standard internal address. Nil address is written as
// addr_none.
func (b *Builder) StoreAddress(a *address.Address) *Builder {
	if a == nil {
		return b.StoreUint(0, 2)
	}

	return b.StoreUint(0b100, 3).
		StoreInt(int64(a.Workchain), 8).
		StoreBytes(a.Hash.BytesBE())
}

// StoreRef appends reference to n.
func (b *Builder) StoreRef(n *Node) *Builder {
	if b.Err != nil {
		return b
	}
	if n == nil {
		b.Err = ErrNilReference
		return b
	}
	if b.RefsLeft() == 0 {
		b.Err = fmt.Errorf("%w: more than %d references", ErrCapacityExceeded, MaxRefs)
		return b
	}

	b.refs = append(b.refs, n)

	return b
}

// StoreMaybeRef writes presence bit and reference to n if it's not nil.
func (b *Builder) StoreMaybeRef(n *Node) *Builder {
	if n == nil {
		return b.StoreBit(false)
	}

	return b.StoreBit(true).StoreRef(n)
}

// StoreSlice writes remaining bits and references of s.
func (b *Builder) StoreSlice(s *Slice) *Builder {
	if b.Err != nil {
		return b
	}

	b.StoreBitsFromSlice(s)

	for i := s.refPos; i < len(s.node.refs); i++ {
		b.StoreRef(s.node.refs[i])
	}

	return b
}

// StoreBitsFromSlice writes remaining bits of s ignoring its references.
func (b *Builder) StoreBitsFromSlice(s *Slice) *Builder {
	n := s.BitsLeft()
	if b.reserve(n) {
		b.appendBitsFrom(s.node.data, s.pos, n)
	}

	return b
}

// EndCell finalizes writing and returns the resulting Node.
func (b *Builder) EndCell() (*Node, error) {
	if b.Err != nil {
		return nil, b.Err
	}

	return newNode(b.data, b.bits, b.refs)
}
