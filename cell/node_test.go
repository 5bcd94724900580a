package cell

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	t.Run("capacity", func(t *testing.T) {
		_, err := Build(make([]byte, MaxBytes))
		require.NoError(t, err)

		_, err = Build(make([]byte, MaxBytes+1))
		require.ErrorIs(t, err, ErrCapacityExceeded)

		leaf := Empty()
		_, err = Build(nil, leaf, leaf, leaf, leaf)
		require.NoError(t, err)

		_, err = Build(nil, leaf, leaf, leaf, leaf, leaf)
		require.ErrorIs(t, err, ErrCapacityExceeded)

		_, err = Build(nil, leaf, nil)
		require.ErrorIs(t, err, ErrNilReference)
	})

	t.Run("accessors", func(t *testing.T) {
		leaf, err := Build([]byte("leaf"))
		require.NoError(t, err)

		n, err := Build([]byte("root"), leaf)
		require.NoError(t, err)

		require.Equal(t, 4, n.Len())
		require.Equal(t, 32, n.BitsLen())
		require.Equal(t, []byte("root"), n.Data())
		require.Equal(t, 1, n.RefsNum())
		require.EqualValues(t, 1, n.Depth())
		require.EqualValues(t, 0, leaf.Depth())

		r, err := n.Ref(0)
		require.NoError(t, err)
		require.Same(t, leaf, r)

		_, err = n.Ref(1)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
		_, err = n.Ref(-1)
		require.ErrorIs(t, err, ErrIndexOutOfRange)
	})

	t.Run("immutable payload", func(t *testing.T) {
		payload := []byte{1, 2, 3}
		n, err := Build(payload)
		require.NoError(t, err)

		payload[0] = 42
		require.Equal(t, []byte{1, 2, 3}, n.Data())

		n.Data()[1] = 42
		require.Equal(t, []byte{1, 2, 3}, n.Data())
	})
}

func TestHash(t *testing.T) {
	require.Equal(t, "96a296d224f285c67bee93c30f8a309157f0daa35dc5b87e410b78630a09cfc7", Empty().Hash().StringBE())

	n, err := NewBuilder().StoreUint(1, 8).EndCell()
	require.NoError(t, err)
	require.Equal(t, "8d9fe7317f066deaca4fdb6c313194e5bb5d2269ecf672f1af9fc790a2205991", n.Hash().StringBE())
}

func TestEqual(t *testing.T) {
	mk := func(payload string, refs ...*Node) *Node {
		n, err := Build([]byte(payload), refs...)
		require.NoError(t, err)
		return n
	}

	require.True(t, mk("a", mk("b")).Equal(mk("a", mk("b"))))
	require.False(t, mk("a", mk("b")).Equal(mk("a", mk("c"))))
	require.False(t, mk("a").Equal(mk("a", mk(""))))
	require.False(t, mk("a").Equal(nil))

	// same bytes, different bit length
	x, err := NewBuilder().StoreUint(0, 7).EndCell()
	require.NoError(t, err)
	y, err := NewBuilder().StoreUint(0, 8).EndCell()
	require.NoError(t, err)
	require.Equal(t, x.Data(), y.Data())
	require.False(t, x.Equal(y))
}

func TestString(t *testing.T) {
	n, err := NewBuilder().StoreUint(0xAB, 8).StoreUint(1, 1).EndCell()
	require.NoError(t, err)
	require.Equal(t, "x{ABC_}", n.String())

	root, err := NewBuilder().StoreUint(0xF, 4).StoreRef(n).EndCell()
	require.NoError(t, err)
	require.Equal(t, "x{F}\n x{ABC_}", root.String())

	require.Equal(t, "x{}", Empty().String())
}

func TestBuilderSlice(t *testing.T) {
	coins := big.NewInt(50_000_000)
	addr := address.New(address.MasterChain, util.Uint256{0xAA, 0xBB})
	ref, err := Build([]byte("ref"))
	require.NoError(t, err)

	n, err := NewBuilder().
		StoreUint(0x693d3950, 32).
		StoreInt(-5, 9).
		StoreBool(true).
		StoreCoins(coins).
		StoreAddress(&addr).
		StoreAddress(nil).
		StoreBigUint(big.NewInt(3), 3).
		StoreMaybeRef(nil).
		StoreMaybeRef(ref).
		EndCell()
	require.NoError(t, err)
	require.Equal(t, 32+9+1+(4+32)+267+2+3+1+1, n.BitsLen())

	s := n.BeginParse()

	op, err := s.LoadUint(32)
	require.NoError(t, err)
	require.EqualValues(t, 0x693d3950, op)

	i, err := s.LoadInt(9)
	require.NoError(t, err)
	require.EqualValues(t, -5, i)

	b, err := s.LoadBool()
	require.NoError(t, err)
	require.True(t, b)

	c, err := s.LoadCoins()
	require.NoError(t, err)
	require.Zero(t, coins.Cmp(c))

	a, err := s.LoadAddress()
	require.NoError(t, err)
	require.Equal(t, &addr, a)

	a, err = s.LoadAddress()
	require.NoError(t, err)
	require.Nil(t, a)

	bi, err := s.LoadBigUint(3)
	require.NoError(t, err)
	require.EqualValues(t, 3, bi.Int64())

	r, err := s.LoadMaybeRef()
	require.NoError(t, err)
	require.Nil(t, r)

	r, err = s.LoadMaybeRef()
	require.NoError(t, err)
	require.True(t, ref.Equal(r))

	require.Zero(t, s.BitsLeft())
	require.Zero(t, s.RefsLeft())

	_, err = s.LoadUint(1)
	require.ErrorIs(t, err, ErrNotEnoughData)
	_, err = s.LoadRef()
	require.ErrorIs(t, err, ErrNotEnoughData)
}

func TestBuilderErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		b    *Builder
		err  error
	}{
		{"uint overflow", NewBuilder().StoreUint(65536, 16), ErrFieldOutOfRange},
		{"int overflow", NewBuilder().StoreInt(128, 8), ErrFieldOutOfRange},
		{"int underflow", NewBuilder().StoreInt(-129, 8), ErrFieldOutOfRange},
		{"big uint overflow", NewBuilder().StoreBigUint(big.NewInt(8), 3), ErrFieldOutOfRange},
		{"negative big uint", NewBuilder().StoreBigUint(big.NewInt(-1), 8), ErrFieldOutOfRange},
		{"negative coins", NewBuilder().StoreCoins(big.NewInt(-1)), ErrFieldOutOfRange},
		{"coins overflow", NewBuilder().StoreCoins(new(big.Int).Lsh(big.NewInt(1), 120)), ErrFieldOutOfRange},
		{"bits overflow", NewBuilder().StoreBytes(make([]byte, 128)), ErrCapacityExceeded},
		{"refs overflow", NewBuilder().StoreRef(Empty()).StoreRef(Empty()).StoreRef(Empty()).StoreRef(Empty()).StoreRef(Empty()), ErrCapacityExceeded},
		{"nil ref", NewBuilder().StoreRef(nil), ErrNilReference},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.b.EndCell()
			require.ErrorIs(t, err, tc.err)
		})
	}

	t.Run("first error is kept", func(t *testing.T) {
		b := NewBuilder().StoreUint(2, 1).StoreRef(nil)
		require.ErrorIs(t, b.Err, ErrFieldOutOfRange)
		require.Zero(t, b.Len())
	})

	t.Run("exact capacity", func(t *testing.T) {
		n, err := NewBuilder().StoreBytes(make([]byte, MaxBytes)).StoreUint(0, 7).EndCell()
		require.NoError(t, err)
		require.Equal(t, MaxBits, n.BitsLen())
	})

	t.Run("max coins", func(t *testing.T) {
		v := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 120), big.NewInt(1))
		n, err := NewBuilder().StoreCoins(v).EndCell()
		require.NoError(t, err)

		res, err := n.BeginParse().LoadCoins()
		require.NoError(t, err)
		require.Zero(t, v.Cmp(res))
	})
}

func TestUnalignedBits(t *testing.T) {
	b := NewBuilder().StoreUint(0b101, 3)
	for i := 0; i < 20; i++ {
		b.StoreBytes([]byte{byte(i), 0xFF})
	}

	n, err := b.EndCell()
	require.NoError(t, err)
	require.Equal(t, 3+20*16, n.BitsLen())

	s := n.BeginParse()
	v, err := s.LoadUint(3)
	require.NoError(t, err)
	require.EqualValues(t, 0b101, v)

	for i := 0; i < 20; i++ {
		data, err := s.LoadBytes(2)
		require.NoError(t, err)
		require.Equal(t, []byte{byte(i), 0xFF}, data)
	}

	// copying unaligned slice tail keeps the bits
	s = n.BeginParse()
	_, err = s.LoadUint(3)
	require.NoError(t, err)

	tail, err := s.ToNode()
	require.NoError(t, err)
	require.Equal(t, 20*16, tail.BitsLen())
	require.True(t, bytes.HasPrefix(tail.Data(), []byte{0, 0xFF, 1, 0xFF}))
}
