package cell

// BitString is an unbounded big-endian bit accumulator. Bits are packed
// starting from the most significant bit of the first byte, unused trailing
// bits of the last byte are always zero.
type BitString struct {
	data []byte
	bits int
}

// Len returns number of bits written so far.
func (s *BitString) Len() int {
	return s.bits
}

// Bytes returns accumulated bits packed into bytes.
func (s *BitString) Bytes() []byte {
	return append([]byte(nil), s.data...)
}

// AppendBit appends single bit.
func (s *BitString) AppendBit(bit bool) {
	if s.bits%8 == 0 {
		s.data = append(s.data, 0)
	}
	if bit {
		s.data[s.bits/8] |= 0x80 >> (s.bits % 8)
	}
	s.bits++
}

// AppendBits appends first n bits of src.
func (s *BitString) AppendBits(src []byte, n int) {
	s.appendBitsFrom(src, 0, n)
}

// appendBitsFrom appends n bits of src starting from bit offset off.
func (s *BitString) appendBitsFrom(src []byte, off, n int) {
	if s.bits%8 == 0 && off%8 == 0 {
		whole := n / 8
		s.data = append(s.data, src[off/8:off/8+whole]...)
		s.bits += whole * 8
		off += whole * 8
		n -= whole * 8
	}

	for i := 0; i < n; i++ {
		s.AppendBit(bitAt(src, off+i))
	}
}

func bitAt(data []byte, i int) bool {
	return data[i/8]&(0x80>>(i%8)) != 0
}
