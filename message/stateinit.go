package message

import (
	"errors"
	"fmt"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
)

// StateInit is a program code and its initial data. Hash of StateInit node
// is the address of the program instance.
type StateInit struct {
	Code *cell.Node
	Data *cell.Node
}

// Node packs StateInit: no split depth, no special flags, code and data
// references, no libraries.
func (x StateInit) Node() (*cell.Node, error) {
	if x.Code == nil || x.Data == nil {
		return nil, fmt.Errorf("state init: %w", cell.ErrNilReference)
	}

	return cell.NewBuilder().
		StoreBit(false). // split_depth
		StoreBit(false). // special
		StoreMaybeRef(x.Code).
		StoreMaybeRef(x.Data).
		StoreBit(false). // library
		EndCell()
}

// Address returns address of the program instance in given workchain.
func (x StateInit) Address(workchain int8) (address.Address, error) {
	n, err := x.Node()
	if err != nil {
		return address.Address{}, err
	}

	return address.New(workchain, n.Hash()), nil
}

// ParseStateInit decodes node built by StateInit.Node.
func ParseStateInit(n *cell.Node) (StateInit, error) {
	var (
		res StateInit
		s   = n.BeginParse()
	)

	flags, err := s.LoadUint(2)
	if err != nil {
		return res, fmt.Errorf("state init flags: %w", err)
	}
	if flags != 0 {
		return res, errors.New("state init: split depth and special flags are not supported")
	}

	res.Code, err = s.LoadMaybeRef()
	if err != nil {
		return res, fmt.Errorf("state init code: %w", err)
	}

	res.Data, err = s.LoadMaybeRef()
	if err != nil {
		return res, fmt.Errorf("state init data: %w", err)
	}

	if res.Code == nil || res.Data == nil {
		return res, fmt.Errorf("state init: %w", cell.ErrNilReference)
	}

	return res, nil
}

// DeriveAddress returns address of the program with given code and data in
// given workchain.
func DeriveAddress(code, data *cell.Node, workchain int8) (address.Address, error) {
	return StateInit{Code: code, Data: data}.Address(workchain)
}
