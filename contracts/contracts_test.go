package contracts

import (
	"encoding/hex"
	"encoding/json"
	"testing"
	"testing/fstest"

	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/stretchr/testify/require"
)

func TestGetNFT(t *testing.T) {
	itemCode, bItem := anyValidBoC(t, "item")
	collectionCode, bCollection := anyValidBoC(t, "collection")

	jCollection, err := json.Marshal(compiled{Hex: hex.EncodeToString(bCollection)})
	require.NoError(t, err)

	_fs := fstest.MapFS{
		itemDir + "/" + bocName:            &fstest.MapFile{Data: bItem},
		collectionDir + "/" + compiledName: &fstest.MapFile{Data: jCollection},
	}

	item, collection, err := GetNFT(_fs)
	require.NoError(t, err)
	require.Equal(t, itemDir, item.Name)
	require.True(t, itemCode.Equal(item.Code))
	require.Equal(t, collectionDir, collection.Name)
	require.True(t, collectionCode.Equal(collection.Code))

	res, err := Read(_fs, collectionDir)
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.True(t, collectionCode.Equal(res[0].Code))
}

func TestGetMissingFiles(t *testing.T) {
	_fs := fstest.MapFS{}

	_, _, err := GetNFT(_fs)
	require.Error(t, err)

	_, bItem := anyValidBoC(t, "item")
	_fs[itemDir+"/"+bocName] = &fstest.MapFile{Data: bItem}

	// Missing collection.
	_, _, err = GetNFT(_fs)
	require.Error(t, err)
}

func TestReadInvalidFormat(t *testing.T) {
	var (
		_fs          = fstest.MapFS{}
		bocPath      = itemDir + "/" + bocName
		compiledPath = collectionDir + "/" + compiledName
	)

	_fs[bocPath] = &fstest.MapFile{Data: []byte("not a BoC")}

	_, err := read(_fs, []string{itemDir})
	require.ErrorIs(t, err, errInvalidBoC)

	_fs[compiledPath] = &fstest.MapFile{Data: []byte("not a JSON")}

	_, err = read(_fs, []string{collectionDir})
	require.ErrorIs(t, err, errInvalidCompiled)

	_fs[compiledPath] = &fstest.MapFile{Data: []byte(`{"hex":"zz"}`)}

	_, err = read(_fs, []string{collectionDir})
	require.ErrorIs(t, err, errInvalidCompiled)

	_fs[compiledPath] = &fstest.MapFile{Data: []byte(`{"hex":"b5ee9c72"}`)}

	_, err = read(_fs, []string{collectionDir})
	require.ErrorIs(t, err, errInvalidBoC)
}

func anyValidBoC(tb testing.TB, payload string) (*cell.Node, []byte) {
	code, err := cell.Build([]byte(payload))
	require.NoError(tb, err)

	b, err := cell.SerializeBoC(code, true)
	require.NoError(tb, err)

	return code, b
}
