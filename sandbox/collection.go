package sandbox

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/message"
	"github.com/crypto-pepe-dev/nft-minter/metadata"
	"github.com/crypto-pepe-dev/nft-minter/provider"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
)

const (
	// MaxBatchSize is an exclusive limit of items minted by single BatchMint.
	MaxBatchSize = 250
	// BatchItemPrice is a value in nanocoins charged per batch item.
	BatchItemPrice = 100_000_000
	// BatchItemStorage is a value in nanocoins sent to every batch item.
	BatchItemStorage = 50_000_000
)

// CollectionProgram models the NFT collection program. Anyone can mint,
// minted item is owned by the sender. Ownership and content changes are
// allowed to the collection owner only.
type CollectionProgram struct {
	// ItemContent returns individual content of the minted item, "<index>.json"
	// if nil.
	ItemContent func(index uint64) string
}

func (p CollectionProgram) itemContent(index uint64) string {
	if p.ItemContent != nil {
		return p.ItemContent(index)
	}

	return strconv.FormatUint(index, 10) + ".json"
}

// Receive implements Program.
func (p CollectionProgram) Receive(in Inbound) (Outcome, error) {
	if in.Bounced {
		return Outcome{}, nil
	}

	op, err := message.Parse(in.Body)
	if err != nil {
		if errors.Is(err, message.ErrUnknownOpcode) {
			return Outcome{}, Exit(ExitUnknownOp)
		}

		return Outcome{}, err
	}

	st, err := message.ParseCollectionState(in.Data)
	if err != nil {
		return Outcome{}, fmt.Errorf("collection data: %w", err)
	}

	switch op := op.(type) {
	case message.Deploy:
		return Outcome{}, nil
	case message.Mint:
		if in.Sender == nil {
			return Outcome{}, Exit(ExitNotOwner)
		}

		storage := op.CoinsForStorage
		if storage == nil {
			storage = new(big.Int)
		}
		if in.Value.Cmp(storage) < 0 {
			return Outcome{}, Exit(ExitNotEnoughValue)
		}

		msg, err := p.deployItem(in.Self, &st, *in.Sender, storage)
		if err != nil {
			return Outcome{}, err
		}

		return stateOutcome(st, msg)
	case message.BatchMint:
		if in.Sender == nil {
			return Outcome{}, Exit(ExitNotOwner)
		}

		n := new(big.Int).Quo(in.Value, big.NewInt(BatchItemPrice))
		if n.Cmp(big.NewInt(MaxBatchSize)) >= 0 {
			return Outcome{}, Exit(ExitBatchTooLarge)
		}
		if n.Sign() == 0 {
			return Outcome{}, Exit(ExitNotEnoughValue)
		}

		msgs := make([]provider.Message, 0, n.Int64())
		for i := int64(0); i < n.Int64(); i++ {
			msg, err := p.deployItem(in.Self, &st, *in.Sender, big.NewInt(BatchItemStorage))
			if err != nil {
				return Outcome{}, err
			}

			msgs = append(msgs, msg)
		}

		return stateOutcome(st, msgs...)
	case message.GetRoyaltyParams:
		if in.Sender == nil {
			return Outcome{}, Exit(ExitNotOwner)
		}

		body, err := message.Build(message.ReportRoyaltyParams{QueryID: op.QueryID, Royalty: st.Royalty})
		if err != nil {
			return Outcome{}, err
		}

		return Outcome{Messages: []provider.Message{{
			To:    *in.Sender,
			Value: in.Value,
			Mode:  provider.CarryRemainingValue,
			Body:  body,
		}}}, nil
	case message.ChangeOwner:
		if in.Sender == nil || !in.Sender.Equals(st.Owner) {
			return Outcome{}, Exit(ExitNotOwner)
		}

		st.Owner = op.NewOwner

		return stateOutcome(st)
	case message.ChangeContent:
		if in.Sender == nil || !in.Sender.Equals(st.Owner) {
			return Outcome{}, Exit(ExitNotOwner)
		}

		st.CollectionContentURL = op.CollectionContentURL
		st.CommonContentURL = op.CommonContentURL
		st.Royalty = op.Royalty

		return stateOutcome(st)
	default:
		return Outcome{}, Exit(ExitUnknownOp)
	}
}

func stateOutcome(st message.CollectionState, msgs ...provider.Message) (Outcome, error) {
	data, err := st.Node()
	if err != nil {
		return Outcome{}, err
	}

	return Outcome{Data: data, Messages: msgs}, nil
}

// deployItem returns message deploying the next item and increments the index.
func (p CollectionProgram) deployItem(self address.Address, st *message.CollectionState, owner address.Address, value *big.Int) (provider.Message, error) {
	data, err := message.ItemInitData(st.NextItemIndex, self)
	if err != nil {
		return provider.Message{}, err
	}

	init := &message.StateInit{Code: st.ItemCode, Data: data}

	addr, err := init.Address(self.Workchain)
	if err != nil {
		return provider.Message{}, err
	}

	content, err := metadata.Encode([]byte(p.itemContent(st.NextItemIndex)))
	if err != nil {
		return provider.Message{}, err
	}

	body, err := cell.NewBuilder().StoreAddress(&owner).StoreRef(content).EndCell()
	if err != nil {
		return provider.Message{}, err
	}

	st.NextItemIndex++

	return provider.Message{
		To:     addr,
		Value:  value,
		Bounce: true,
		Mode:   provider.PayGasSeparately,
		Init:   init,
		Body:   body,
	}, nil
}

// Get implements Program.
func (p CollectionProgram) Get(self address.Address, data *cell.Node, method string, args *message.Stack) ([]stackitem.Item, error) {
	st, err := message.ParseCollectionState(data)
	if err != nil {
		return nil, fmt.Errorf("collection data: %w", err)
	}

	switch method {
	case message.MethodGetCollectionData:
		content, err := metadata.EncodeOffChainContent(st.CollectionContentURL)
		if err != nil {
			return nil, err
		}

		owner, err := message.AddressItem(&st.Owner)
		if err != nil {
			return nil, err
		}

		return []stackitem.Item{message.IntItem(st.NextItemIndex), message.NodeItem(content), owner}, nil
	case message.MethodGetNftAddressByIndex:
		index, err := args.ReadUint(message.IndexBits)
		if err != nil {
			return nil, err
		}

		a, err := message.PredictItemAddress(st.ItemCode, index, self)
		if err != nil {
			return nil, err
		}

		item, err := message.AddressItem(&a)
		if err != nil {
			return nil, err
		}

		return []stackitem.Item{item}, nil
	case message.MethodRoyaltyParams:
		beneficiary, err := message.AddressItem(&st.Royalty.Address)
		if err != nil {
			return nil, err
		}

		return []stackitem.Item{
			message.IntItem(uint64(st.Royalty.Factor)),
			message.IntItem(uint64(st.Royalty.Base)),
			beneficiary,
		}, nil
	case message.MethodGetNftContent:
		if _, err := args.ReadUint(message.IndexBits); err != nil {
			return nil, err
		}

		individual, err := args.ReadNode()
		if err != nil {
			return nil, err
		}

		common, err := metadata.Encode([]byte(st.CommonContentURL))
		if err != nil {
			return nil, err
		}

		content, err := cell.NewBuilder().
			StoreUint(uint64(metadata.OffChain), 8).
			StoreSlice(common.BeginParse()).
			StoreRef(individual).
			EndCell()
		if err != nil {
			return nil, err
		}

		return []stackitem.Item{message.NodeItem(content)}, nil
	default:
		return nil, Exit(ExitUnknownMethod)
	}
}
