/*
Package contracts reads compiled NFT programs from the file system.

Every program lives in its own directory holding either binary bag of cells
(contract.boc) or blueprint compilation result (compiled.json with hex
encoded bag of cells).
*/
package contracts

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/crypto-pepe-dev/nft-minter/cell"
)

const (
	collectionDir = "collection"
	itemDir       = "item"

	bocName      = "contract.boc"
	compiledName = "compiled.json"
)

// Contract groups information about program stored in the file system.
type Contract struct {
	Name string
	Code *cell.Node
}

// compiled is blueprint compilation result.
type compiled struct {
	Hex string `json:"hex"`
}

var (
	errInvalidBoC      = errors.New("invalid bag of cells")
	errInvalidCompiled = errors.New("invalid compilation result")

	// item code is a part of collection data, so it goes first.
	nftContracts = []string{
		itemDir,
		collectionDir,
	}
)

// GetNFT returns item and collection programs stored in given file system.
func GetNFT(fsys fs.FS) (item, collection Contract, err error) {
	res, err := read(fsys, nftContracts)
	if err != nil {
		return item, collection, err
	}

	return res[0], res[1], nil
}

// Read returns programs from the given directories of fsys in the same order.
func Read(fsys fs.FS, dirs ...string) ([]Contract, error) {
	return read(fsys, dirs)
}

func read(fsys fs.FS, dirs []string) ([]Contract, error) {
	var res = make([]Contract, 0, len(dirs))

	for i := range dirs {
		c, err := readContractFromDir(fsys, dirs[i])
		if err != nil {
			return nil, fmt.Errorf("read contract %s: %w", dirs[i], err)
		}

		res = append(res, c)
	}

	return res, nil
}

func readContractFromDir(fsys fs.FS, dir string) (Contract, error) {
	var c = Contract{Name: dir}

	// fs.FS paths are always slash-separated, so filepath.Join() is not
	// applicable.
	fBoC, err := fsys.Open(dir + "/" + bocName)
	if err == nil {
		defer fBoC.Close()

		c.Code, err = decodeBoC(fBoC)
		return c, err
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return c, fmt.Errorf("open BoC: %w", err)
	}

	fCompiled, err := fsys.Open(dir + "/" + compiledName)
	if err != nil {
		return c, fmt.Errorf("open compilation result: %w", err)
	}
	defer fCompiled.Close()

	var v compiled

	err = json.NewDecoder(fCompiled).Decode(&v)
	if err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidCompiled, err)
	}

	b, err := hex.DecodeString(v.Hex)
	if err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidCompiled, err)
	}

	c.Code, err = cell.ParseBoC(b)
	if err != nil {
		return c, fmt.Errorf("%w: %w", errInvalidBoC, err)
	}

	return c, nil
}

func decodeBoC(r io.Reader) (*cell.Node, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read BoC: %w", err)
	}

	n, err := cell.ParseBoC(b)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidBoC, err)
	}

	return n, nil
}
