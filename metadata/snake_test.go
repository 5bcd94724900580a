package metadata

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/stretchr/testify/require"
)

func randomBytes(n int) []byte {
	a := make([]byte, n)
	rand.Read(a) //nolint:staticcheck // SA1019: rand.Read has been deprecated since Go 1.20
	return a
}

// chainLen returns number of nodes reachable by first references.
func chainLen(n *cell.Node) int {
	var res int
	for {
		res++
		if n.RefsNum() == 0 {
			return res
		}
		n, _ = n.Ref(0)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, size := range []int{0, 1, 126, ChunkSize, ChunkSize + 1, 2 * ChunkSize, 2*ChunkSize + 1, 4096, 10000} {
		data := randomBytes(size)

		n, err := Encode(data)
		require.NoError(t, err, size)
		require.Equal(t, max(1, (size+ChunkSize-1)/ChunkSize), chainLen(n), size)

		res, err := Decode(n)
		require.NoError(t, err, size)
		require.True(t, bytes.Equal(data, res), size)
	}
}

func TestEncodeLayout(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		n, err := Encode(nil)
		require.NoError(t, err)
		require.Zero(t, n.BitsLen())
		require.Zero(t, n.RefsNum())
	})

	t.Run("single chunk", func(t *testing.T) {
		data := randomBytes(ChunkSize)

		n, err := Encode(data)
		require.NoError(t, err)
		require.Equal(t, data, n.Data())
		require.Zero(t, n.RefsNum())
	})

	t.Run("two chunks", func(t *testing.T) {
		data := randomBytes(ChunkSize + 1)

		n, err := Encode(data)
		require.NoError(t, err)
		require.Equal(t, data[:ChunkSize], n.Data())
		require.Equal(t, 1, n.RefsNum())

		next, err := n.Ref(0)
		require.NoError(t, err)
		require.Equal(t, data[ChunkSize:], next.Data())
		require.Zero(t, next.RefsNum())
	})

	t.Run("deterministic", func(t *testing.T) {
		data := randomBytes(1000)

		n1, err := Encode(data)
		require.NoError(t, err)
		n2, err := Encode(data)
		require.NoError(t, err)
		require.True(t, n1.Equal(n2))
	})
}

func TestDecode(t *testing.T) {
	t.Run("empty node ends chain", func(t *testing.T) {
		tail, err := cell.Build([]byte("unreachable"))
		require.NoError(t, err)
		stop, err := cell.Build(nil, tail)
		require.NoError(t, err)
		head, err := cell.Build([]byte("head"), stop)
		require.NoError(t, err)

		res, err := Decode(head)
		require.NoError(t, err)
		require.Equal(t, []byte("head"), res)
	})

	t.Run("only first reference", func(t *testing.T) {
		a, err := cell.Build([]byte("a"))
		require.NoError(t, err)
		b, err := cell.Build([]byte("b"))
		require.NoError(t, err)
		head, err := cell.Build([]byte("head-"), a, b)
		require.NoError(t, err)

		res, err := Decode(head)
		require.NoError(t, err)
		require.Equal(t, []byte("head-a"), res)
	})

	t.Run("unaligned nodes", func(t *testing.T) {
		// 0x0F split into 4+4 bits across two nodes
		tail, err := cell.NewBuilder().StoreUint(0xF, 4).EndCell()
		require.NoError(t, err)
		head, err := cell.NewBuilder().StoreUint(0x0, 4).StoreRef(tail).EndCell()
		require.NoError(t, err)

		res, err := Decode(head)
		require.NoError(t, err)
		require.Equal(t, []byte{0x0F}, res)

		_, err = Decode(tail)
		require.ErrorIs(t, err, ErrNotByteAligned)
	})
}

func TestOffChainContent(t *testing.T) {
	for _, s := range []string{
		"",
		"https://nft.ton.diamonds/diamonds.json",
		"https://crypto-pepe-dev.github.io/pepe/nfts/metadata/" + strings.Repeat("x", 300),
		"ipfs://кириллица/🐸.json",
	} {
		n, err := EncodeOffChainContent(s)
		require.NoError(t, err)

		data, err := Decode(n)
		require.NoError(t, err)
		require.EqualValues(t, OffChain, data[0])

		res, err := DecodeOffChainContent(n)
		require.NoError(t, err)
		require.Equal(t, s, res)
	}

	t.Run("126 bytes fit single node", func(t *testing.T) {
		n, err := EncodeOffChainContent(strings.Repeat("a", ChunkSize-1))
		require.NoError(t, err)
		require.Zero(t, n.RefsNum())

		n, err = EncodeOffChainContent(strings.Repeat("a", ChunkSize))
		require.NoError(t, err)
		require.Equal(t, 1, n.RefsNum())
	})

	t.Run("unknown scheme", func(t *testing.T) {
		n, err := Encode([]byte{0x00, 'u', 'r', 'l'})
		require.NoError(t, err)

		_, err = DecodeOffChainContent(n)
		require.ErrorIs(t, err, ErrUnknownContentScheme)

		_, err = DecodeOffChainContent(cell.Empty())
		require.ErrorIs(t, err, ErrUnknownContentScheme)

		_, err = Content{Scheme: 0x00}.Encode()
		require.ErrorIs(t, err, ErrUnknownContentScheme)
	})

	t.Run("invalid UTF-8", func(t *testing.T) {
		n, err := Encode([]byte{byte(OffChain), 0xff, 0xfe})
		require.NoError(t, err)

		_, err = DecodeOffChainContent(n)
		require.ErrorIs(t, err, ErrInvalidUTF8)
	})
}
