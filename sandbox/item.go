package sandbox

import (
	"fmt"
	"math/big"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

// ItemProgram models the NFT item program. Item deployed by the collection
// holds index and collection address only until the collection initializes
// it with owner and individual content.
type ItemProgram struct{}

type itemData struct {
	index      uint64
	collection address.Address
	owner      *address.Address
	content    *cell.Node
}

func (d itemData) initialized() bool {
	return d.content != nil
}

func parseItemData(n *cell.Node) (itemData, error) {
	var (
		res itemData
		err error
		s   = n.BeginParse()
	)

	res.index, err = s.LoadUint(message.IndexBits)
	if err != nil {
		return res, fmt.Errorf("index: %w", err)
	}

	collection, err := s.LoadAddress()
	if err != nil {
		return res, fmt.Errorf("collection address: %w", err)
	}
	if collection != nil {
		res.collection = *collection
	}

	if s.BitsLeft() == 0 && s.RefsLeft() == 0 {
		return res, nil
	}

	res.owner, err = s.LoadAddress()
	if err != nil {
		return res, fmt.Errorf("owner address: %w", err)
	}

	res.content, err = s.LoadRef()
	if err != nil {
		return res, fmt.Errorf("content: %w", err)
	}

	return res, nil
}

// Receive implements Program.
func (ItemProgram) Receive(in Inbound) (Outcome, error) {
	if in.Bounced {
		return Outcome{}, nil
	}

	d, err := parseItemData(in.Data)
	if err != nil {
		return Outcome{}, err
	}

	if d.initialized() {
		if in.Body.BitsLen() == 0 && in.Body.RefsNum() == 0 {
			return Outcome{}, nil
		}

		return Outcome{}, Exit(ExitUnknownOp)
	}

	if in.Sender == nil || !in.Sender.Equals(d.collection) {
		return Outcome{}, Exit(ExitNotCollection)
	}

	s := in.Body.BeginParse()

	owner, err := s.LoadAddress()
	if err != nil {
		return Outcome{}, fmt.Errorf("owner address: %w", err)
	}

	content, err := s.LoadRef()
	if err != nil {
		return Outcome{}, fmt.Errorf("content: %w", err)
	}

	data, err := cell.NewBuilder().
		StoreUint(d.index, message.IndexBits).
		StoreAddress(&d.collection).
		StoreAddress(owner).
		StoreRef(content).
		EndCell()
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Data: data}, nil
}

// Get implements Program.
func (ItemProgram) Get(_ address.Address, data *cell.Node, method string, _ *message.Stack) ([]stackitem.Item, error) {
	if method != message.MethodGetNftData {
		return nil, Exit(ExitUnknownMethod)
	}

	d, err := parseItemData(data)
	if err != nil {
		return nil, err
	}

	collection, err := message.AddressItem(&d.collection)
	if err != nil {
		return nil, err
	}

	if !d.initialized() {
		return []stackitem.Item{
			stackitem.NewBigInteger(big.NewInt(0)),
			message.IntItem(d.index),
			collection,
			stackitem.Null{},
			stackitem.Null{},
		}, nil
	}

	owner, err := message.AddressItem(d.owner)
	if err != nil {
		return nil, err
	}

	return []stackitem.Item{
		stackitem.NewBigInteger(big.NewInt(-1)),
		message.IntItem(d.index),
		collection,
		owner,
		message.NodeItem(d.content),
	}, nil
}
