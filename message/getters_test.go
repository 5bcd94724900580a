package message

import (
	"errors"
	"math/big"
	"testing"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/metadata"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

func halt(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{State: "HALT", Stack: items}
}

func addressItem(t *testing.T, a *address.Address) stackitem.Item {
	item, err := AddressItem(a)
	require.NoError(t, err)
	return item
}

func TestNewStack(t *testing.T) {
	_, err := NewStack(nil, errors.New("bad"))
	require.Error(t, err)

	_, err = NewStack(nil, nil)
	require.ErrorIs(t, err, ErrUnexpectedStackShape)

	_, err = NewStack(&result.Invoke{State: "FAULT", FaultException: "exit code 11"}, nil)
	require.ErrorIs(t, err, ErrGetMethodFailed)
	require.Contains(t, err.Error(), "exit code 11")

	s, err := NewStack(halt(IntItem(1)), nil)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	require.NoError(t, s.ExpectLen(1))
	require.ErrorIs(t, s.ExpectLen(2), ErrUnexpectedStackShape)
}

func TestStackReads(t *testing.T) {
	content, err := metadata.EncodeOffChainContent("https://example.com/x.json")
	require.NoError(t, err)

	boc, err := cell.SerializeBoC(content, true)
	require.NoError(t, err)

	s, err := NewStack(halt(
		stackitem.NewBigInteger(big.NewInt(-1)),
		stackitem.NewBool(false),
		stackitem.NewBigInteger(big.NewInt(0)),
		stackitem.NewByteArray(boc),
		NodeItem(content),
		stackitem.Null{},
		addressItem(t, nil),
		stackitem.NewBigInteger(big.NewInt(65536)),
	), nil)
	require.NoError(t, err)

	b, err := s.ReadBool()
	require.NoError(t, err)
	require.True(t, b)

	b, err = s.ReadBool()
	require.NoError(t, err)
	require.False(t, b)

	b, err = s.ReadBool()
	require.NoError(t, err)
	require.False(t, b)

	n, err := s.ReadNode()
	require.NoError(t, err)
	require.True(t, content.Equal(n))

	n, err = s.ReadNode()
	require.NoError(t, err)
	require.True(t, content.Equal(n))

	n, err = s.ReadMaybeNode()
	require.NoError(t, err)
	require.Nil(t, n)

	a, err := s.ReadAddress()
	require.NoError(t, err)
	require.Nil(t, a)

	_, err = s.ReadUint(RoyaltyBits)
	require.ErrorIs(t, err, ErrFieldOutOfRange)

	require.Zero(t, s.Remaining())
	_, err = s.ReadBigInt()
	require.ErrorIs(t, err, ErrUnexpectedStackShape)
}

func TestStackTypeMismatch(t *testing.T) {
	testCases := []struct {
		name string
		item stackitem.Item
		read func(*Stack) error
	}{
		{"int from bytes", stackitem.NewByteArray([]byte{1}), func(s *Stack) error {
			_, err := s.ReadBigInt()
			return err
		}},
		{"bool from 1", stackitem.NewBigInteger(big.NewInt(1)), func(s *Stack) error {
			_, err := s.ReadBool()
			return err
		}},
		{"node from int", IntItem(1), func(s *Stack) error {
			_, err := s.ReadNode()
			return err
		}},
		{"node from garbage", stackitem.NewByteArray([]byte{1, 2, 3}), func(s *Stack) error {
			_, err := s.ReadNode()
			return err
		}},
		{"node from foreign interop", stackitem.NewInterop(42), func(s *Stack) error {
			_, err := s.ReadNode()
			return err
		}},
		{"node from null", stackitem.Null{}, func(s *Stack) error {
			_, err := s.ReadNode()
			return err
		}},
		{"address from non-address", NodeItem(cell.Empty()), func(s *Stack) error {
			_, err := s.ReadAddress()
			return err
		}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := NewStack(halt(tc.item), nil)
			require.NoError(t, err)
			require.ErrorIs(t, tc.read(s), ErrUnexpectedStackShape)
		})
	}
}

func TestParseCollectionData(t *testing.T) {
	const url = "https://nft.ton.diamonds/diamonds.json"

	content, err := metadata.EncodeOffChainContent(url)
	require.NoError(t, err)

	res, err := ParseCollectionData(halt(IntItem(0), NodeItem(content), addressItem(t, &testOwner)), nil)
	require.NoError(t, err)
	require.Equal(t, &CollectionData{
		NextItemIndex:        0,
		CollectionContentURL: url,
		OwnerAddress:         testOwner,
	}, res)

	_, err = ParseCollectionData(halt(IntItem(0), NodeItem(content)), nil)
	require.ErrorIs(t, err, ErrUnexpectedStackShape)

	_, err = ParseCollectionData(halt(NodeItem(content), IntItem(0), addressItem(t, &testOwner)), nil)
	require.ErrorIs(t, err, ErrUnexpectedStackShape)

	_, err = ParseCollectionData(halt(IntItem(0), NodeItem(content), addressItem(t, nil)), nil)
	require.ErrorIs(t, err, ErrMissingAddress)

	raw, err := cell.Build([]byte{0x00, 'x'})
	require.NoError(t, err)
	_, err = ParseCollectionData(halt(IntItem(0), NodeItem(raw), addressItem(t, &testOwner)), nil)
	require.ErrorIs(t, err, metadata.ErrUnknownContentScheme)

	_, err = ParseCollectionData(nil, errors.New("network"))
	require.Error(t, err)
}

func TestParseNftAddress(t *testing.T) {
	a, err := ParseNftAddress(halt(addressItem(t, &testBeneficiary)), nil)
	require.NoError(t, err)
	require.Equal(t, testBeneficiary, a)

	_, err = ParseNftAddress(halt(), nil)
	require.ErrorIs(t, err, ErrUnexpectedStackShape)

	_, err = ParseNftAddress(halt(addressItem(t, nil)), nil)
	require.ErrorIs(t, err, ErrMissingAddress)
}

func TestParseRoyaltyParams(t *testing.T) {
	res, err := ParseRoyaltyParams(halt(IntItem(10), IntItem(100), addressItem(t, &testOwner)), nil)
	require.NoError(t, err)
	require.Equal(t, &RoyaltyParams{Factor: 10, Base: 100, Address: testOwner}, res)

	_, err = ParseRoyaltyParams(halt(IntItem(65536), IntItem(100), addressItem(t, &testOwner)), nil)
	require.ErrorIs(t, err, ErrFieldOutOfRange)

	_, err = ParseRoyaltyParams(halt(IntItem(10), IntItem(100)), nil)
	require.ErrorIs(t, err, ErrUnexpectedStackShape)
}

func TestParseNftContent(t *testing.T) {
	const (
		common     = "https://crypto-pepe-dev.github.io/pepe/nfts/metadata/"
		individual = "Penis.json"
	)

	ind, err := cell.Build([]byte(individual))
	require.NoError(t, err)

	full, err := cell.NewBuilder().
		StoreUint(uint64(metadata.OffChain), 8).
		StoreBytes([]byte(common)).
		StoreRef(ind).
		EndCell()
	require.NoError(t, err)

	url, err := ParseNftContent(halt(NodeItem(full)), nil)
	require.NoError(t, err)
	require.Equal(t, common+individual, url)

	_, err = ParseNftContent(halt(NodeItem(ind)), nil)
	require.ErrorIs(t, err, metadata.ErrUnknownContentScheme)
}

func TestParseNftData(t *testing.T) {
	content, err := metadata.EncodeOffChainContent("0.json")
	require.NoError(t, err)

	res, err := ParseNftData(halt(
		stackitem.NewBigInteger(big.NewInt(-1)),
		IntItem(0),
		addressItem(t, &testOwner),
		addressItem(t, &testBeneficiary),
		NodeItem(content),
	), nil)
	require.NoError(t, err)
	require.True(t, res.Initialized)
	require.EqualValues(t, 0, res.Index)
	require.Equal(t, testOwner, *res.CollectionAddress)
	require.Equal(t, testBeneficiary, *res.OwnerAddress)

	url, err := res.OffChainContent()
	require.NoError(t, err)
	require.Equal(t, "0.json", url)

	t.Run("uninitialized", func(t *testing.T) {
		res, err := ParseNftData(halt(
			stackitem.NewBool(false),
			IntItem(5),
			addressItem(t, &testOwner),
			stackitem.Null{},
			stackitem.Null{},
		), nil)
		require.NoError(t, err)
		require.False(t, res.Initialized)
		require.EqualValues(t, 5, res.Index)
		require.Nil(t, res.OwnerAddress)
		require.Nil(t, res.Content)

		_, err = res.OffChainContent()
		require.ErrorIs(t, err, cell.ErrNilReference)
	})
}

func TestCoins(t *testing.T) {
	v, err := ToNano("0.05")
	require.NoError(t, err)
	require.EqualValues(t, 50_000_000, v.Int64())
	require.Equal(t, "0.05", FromNano(v))

	v, err = ToNano("25")
	require.NoError(t, err)
	require.EqualValues(t, 25_000_000_000, v.Int64())

	_, err = ToNano("-1")
	require.ErrorIs(t, err, ErrFieldOutOfRange)

	_, err = ToNano("abc")
	require.Error(t, err)

	require.Equal(t, "0", FromNano(nil))
}
