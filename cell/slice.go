package cell

import (
	"fmt"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Slice reads Node contents sequentially.
type Slice struct {
	node   *Node
	pos    int
	refPos int
}

// BitsLeft returns number of unread bits.
func (s *Slice) BitsLeft() int {
	return s.node.bits - s.pos
}

// RefsLeft returns number of unread references.
func (s *Slice) RefsLeft() int {
	return len(s.node.refs) - s.refPos
}

func (s *Slice) ensure(n int) error {
	if n < 0 || n > s.BitsLeft() {
		return fmt.Errorf("%w: %d bits requested, %d left", ErrNotEnoughData, n, s.BitsLeft())
	}

	return nil
}

// LoadBit reads single bit.
func (s *Slice) LoadBit() (bool, error) {
	if err := s.ensure(1); err != nil {
		return false, err
	}

	res := bitAt(s.node.data, s.pos)
	s.pos++

	return res, nil
}

// LoadBool is an alias of LoadBit.
func (s *Slice) LoadBool() (bool, error) {
	return s.LoadBit()
}

// LoadUint reads n-bit unsigned integer, n must be in [0; 64] range.
func (s *Slice) LoadUint(n int) (uint64, error) {
	if n > 64 {
		return 0, fmt.Errorf("%w: unsupported width %d", ErrFieldOutOfRange, n)
	}
	if err := s.ensure(n); err != nil {
		return 0, err
	}

	var res uint64
	for i := 0; i < n; i++ {
		res <<= 1
		if bitAt(s.node.data, s.pos+i) {
			res |= 1
		}
	}

	s.pos += n

	return res, nil
}

// LoadInt reads n-bit two's complement signed integer, n must be in [1; 64]
// range.
func (s *Slice) LoadInt(n int) (int64, error) {
	if n < 1 {
		return 0, fmt.Errorf("%w: unsupported width %d", ErrFieldOutOfRange, n)
	}

	u, err := s.LoadUint(n)
	if err != nil {
		return 0, err
	}

	if n < 64 && u>>(n-1) == 1 {
		u |= ^uint64(0) << n
	}

	return int64(u), nil
}

// LoadBigUint reads n-bit unsigned integer of arbitrary width.
func (s *Slice) LoadBigUint(n int) (*big.Int, error) {
	b, err := s.LoadBits(n)
	if err != nil {
		return nil, err
	}

	res := new(big.Int).SetBytes(b)
	if tail := n % 8; tail != 0 {
		res.Rsh(res, uint(8-tail))
	}

	return res, nil
}

// LoadCoins reads coin amount written by Builder.StoreCoins.
func (s *Slice) LoadCoins() (*big.Int, error) {
	l, err := s.LoadUint(4)
	if err != nil {
		return nil, fmt.Errorf("coins length: %w", err)
	}

	res, err := s.LoadBigUint(int(l) * 8)
	if err != nil {
		return nil, fmt.Errorf("coins magnitude: %w", err)
	}

	return res, nil
}

// LoadBits reads n bits packed into bytes, the last byte is zero-padded.
func (s *Slice) LoadBits(n int) ([]byte, error) {
	if err := s.ensure(n); err != nil {
		return nil, err
	}

	var res BitString
	res.appendBitsFrom(s.node.data, s.pos, n)
	s.pos += n

	return res.data, nil
}

// LoadBytes reads n bytes.
func (s *Slice) LoadBytes(n int) ([]byte, error) {
	return s.LoadBits(n * 8)
}

// LoadAddress reads internal address. Nil is returned for addr_none. Only
// standard addresses without anycast are supported.
func (s *Slice) LoadAddress() (*address.Address, error) {
	tag, err := s.LoadUint(2)
	if err != nil {
		return nil, fmt.Errorf("address tag: %w", err)
	}

	switch tag {
	case 0b00:
		return nil, nil
	case 0b10:
	default:
		return nil, fmt.Errorf("%w: unsupported address tag %02b", address.ErrInvalidAddress, tag)
	}

	anycast, err := s.LoadBit()
	if err != nil {
		return nil, fmt.Errorf("address anycast: %w", err)
	}
	if anycast {
		return nil, fmt.Errorf("%w: anycast is not supported", address.ErrInvalidAddress)
	}

	wc, err := s.LoadInt(8)
	if err != nil {
		return nil, fmt.Errorf("address workchain: %w", err)
	}

	h, err := s.LoadBytes(util.Uint256Size)
	if err != nil {
		return nil, fmt.Errorf("address hash: %w", err)
	}

	hash, err := util.Uint256DecodeBytesBE(h)
	if err != nil {
		return nil, fmt.Errorf("address hash: %w", err)
	}

	res := address.New(int8(wc), hash)

	return &res, nil
}

// LoadRef reads next reference.
func (s *Slice) LoadRef() (*Node, error) {
	if s.RefsLeft() == 0 {
		return nil, fmt.Errorf("%w: no references left", ErrNotEnoughData)
	}

	res := s.node.refs[s.refPos]
	s.refPos++

	return res, nil
}

// LoadMaybeRef reads presence bit and reference if it's set.
func (s *Slice) LoadMaybeRef() (*Node, error) {
	ok, err := s.LoadBit()
	if err != nil || !ok {
		return nil, err
	}

	return s.LoadRef()
}

// ToNode returns Node holding unread bits and references of s.
func (s *Slice) ToNode() (*Node, error) {
	return NewBuilder().StoreSlice(s).EndCell()
}
