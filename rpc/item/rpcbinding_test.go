package item

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/crypto-pepe-dev/nft-minter/provider"
	"github.com/crypto-pepe-dev/nft-minter/sandbox"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type testInv struct {
	err error
	res *result.Invoke
}

func (t *testInv) RunGetMethod(context.Context, address.Address, string, ...stackitem.Item) (*result.Invoke, error) {
	return t.res, t.err
}

func TestGetNftDataErrors(t *testing.T) {
	ti := new(testInv)
	r := NewReader(ti, address.New(0, util.Uint256{1}))

	ti.err = errors.New("bad")
	_, err := r.GetNftData(context.Background())
	require.Error(t, err)

	ti.err = nil
	ti.res = &result.Invoke{
		State: "HALT",
		Stack: []stackitem.Item{message.IntItem(0)},
	}
	_, err = r.GetNftData(context.Background())
	require.ErrorIs(t, err, message.ErrUnexpectedStackShape)
}

func TestStandaloneItem(t *testing.T) {
	ctx := context.Background()

	code, err := cell.Build([]byte("nft item"))
	require.NoError(t, err)

	l := sandbox.New(sandbox.Prm{Logger: zaptest.NewLogger(t)})
	l.Register(code, sandbox.ItemProgram{})

	deployer := l.Treasury("deployer")
	collection := address.New(0, util.Uint256{0xc0})

	c, err := CreateFromConfig(deployer, message.ItemState{
		Index:             0,
		CollectionAddress: collection,
		OwnerAddress:      deployer.Address(),
		Content:           "https://crypto-pepe-dev.github.io/pepe/nfts/metadata/0.json",
	}, code, 0)
	require.NoError(t, err)

	eff, err := c.SendDeploy(ctx, big.NewInt(50_000_000))
	require.NoError(t, err)
	require.NoError(t, eff.Err())

	yes := true
	to := c.Address()
	require.True(t, eff.Has(provider.TxFilter{To: &to, Deploy: &yes, Success: &yes}))

	data, err := c.GetNftData(ctx)
	require.NoError(t, err)
	require.True(t, data.Initialized)
	require.EqualValues(t, 0, data.Index)
	require.Equal(t, collection, *data.CollectionAddress)
	require.Equal(t, deployer.Address(), *data.OwnerAddress)

	url, err := data.OffChainContent()
	require.NoError(t, err)
	require.Equal(t, "https://crypto-pepe-dev.github.io/pepe/nfts/metadata/0.json", url)

	same := CreateFromAddress(deployer, c.Address())
	other, err := same.GetNftData(ctx)
	require.NoError(t, err)
	require.Equal(t, data.Index, other.Index)
}
