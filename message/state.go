package message

import (
	"errors"
	"fmt"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/metadata"
)

// ErrMissingAddress is returned when required address is stored as addr_none.
var ErrMissingAddress = errors.New("missing address")

// RoyaltyParams defines royalty as Factor/Base share paid to Address.
type RoyaltyParams struct {
	Factor  int
	Base    int
	Address address.Address
}

func (r RoyaltyParams) validate() error {
	if err := checkUint("royalty factor", r.Factor, RoyaltyBits); err != nil {
		return err
	}

	return checkUint("royalty base", r.Base, RoyaltyBits)
}

func (r RoyaltyParams) store(b *cell.Builder) {
	b.StoreUint(uint64(r.Factor), RoyaltyBits).
		StoreUint(uint64(r.Base), RoyaltyBits).
		StoreAddress(&r.Address)
}

// Node returns royalty parameters packed into a separate node.
func (r RoyaltyParams) Node() (*cell.Node, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	b := cell.NewBuilder()
	r.store(b)

	return b.EndCell()
}

// ParseRoyaltyNode decodes node built by RoyaltyParams.Node.
func ParseRoyaltyNode(n *cell.Node) (RoyaltyParams, error) {
	return loadRoyalty(n.BeginParse())
}

func loadRoyalty(s *cell.Slice) (RoyaltyParams, error) {
	var res RoyaltyParams

	factor, err := s.LoadUint(RoyaltyBits)
	if err != nil {
		return res, fmt.Errorf("royalty factor: %w", err)
	}

	base, err := s.LoadUint(RoyaltyBits)
	if err != nil {
		return res, fmt.Errorf("royalty base: %w", err)
	}

	res.Address, err = loadRequiredAddress(s, "royalty beneficiary")
	if err != nil {
		return res, err
	}

	res.Factor, res.Base = int(factor), int(base)

	return res, nil
}

func loadRequiredAddress(s *cell.Slice, name string) (address.Address, error) {
	a, err := s.LoadAddress()
	if err != nil {
		return address.Address{}, fmt.Errorf("%s: %w", name, err)
	}
	if a == nil {
		return address.Address{}, fmt.Errorf("%w: %s", ErrMissingAddress, name)
	}

	return *a, nil
}

// CollectionState is a persistent data of the collection program.
type CollectionState struct {
	Owner                address.Address
	NextItemIndex        uint64
	CollectionContentURL string
	// CommonContentURL is a prefix of every item content URL.
	CommonContentURL string
	ItemCode         *cell.Node
	Royalty          RoyaltyParams
}

// contentNode packs collection content and common item content prefix.
func contentNode(collectionURL, commonURL string) (*cell.Node, error) {
	collection, err := metadata.EncodeOffChainContent(collectionURL)
	if err != nil {
		return nil, fmt.Errorf("collection content: %w", err)
	}

	common, err := metadata.Encode([]byte(commonURL))
	if err != nil {
		return nil, fmt.Errorf("common content: %w", err)
	}

	return cell.NewBuilder().StoreRef(collection).StoreRef(common).EndCell()
}

func parseContentNode(n *cell.Node) (string, string, error) {
	collection, err := n.Ref(0)
	if err != nil {
		return "", "", fmt.Errorf("collection content: %w", err)
	}

	collectionURL, err := metadata.DecodeOffChainContent(collection)
	if err != nil {
		return "", "", fmt.Errorf("collection content: %w", err)
	}

	common, err := n.Ref(1)
	if err != nil {
		return "", "", fmt.Errorf("common content: %w", err)
	}

	commonURL, err := metadata.Decode(common)
	if err != nil {
		return "", "", fmt.Errorf("common content: %w", err)
	}

	return collectionURL, string(commonURL), nil
}

// Node packs the state into the program data node.
func (x CollectionState) Node() (*cell.Node, error) {
	if err := x.Royalty.validate(); err != nil {
		return nil, err
	}
	if x.ItemCode == nil {
		return nil, fmt.Errorf("item code: %w", cell.ErrNilReference)
	}

	content, err := contentNode(x.CollectionContentURL, x.CommonContentURL)
	if err != nil {
		return nil, err
	}

	royalty, err := x.Royalty.Node()
	if err != nil {
		return nil, err
	}

	return cell.NewBuilder().
		StoreAddress(&x.Owner).
		StoreUint(x.NextItemIndex, IndexBits).
		StoreRef(content).
		StoreRef(x.ItemCode).
		StoreRef(royalty).
		EndCell()
}

// ParseCollectionState decodes node built by CollectionState.Node.
func ParseCollectionState(n *cell.Node) (CollectionState, error) {
	var (
		res CollectionState
		err error
		s   = n.BeginParse()
	)

	res.Owner, err = loadRequiredAddress(s, "owner")
	if err != nil {
		return res, err
	}

	res.NextItemIndex, err = s.LoadUint(IndexBits)
	if err != nil {
		return res, fmt.Errorf("next item index: %w", err)
	}

	content, err := s.LoadRef()
	if err != nil {
		return res, fmt.Errorf("content: %w", err)
	}

	res.CollectionContentURL, res.CommonContentURL, err = parseContentNode(content)
	if err != nil {
		return res, err
	}

	res.ItemCode, err = s.LoadRef()
	if err != nil {
		return res, fmt.Errorf("item code: %w", err)
	}

	royalty, err := s.LoadRef()
	if err != nil {
		return res, fmt.Errorf("royalty: %w", err)
	}

	res.Royalty, err = ParseRoyaltyNode(royalty)
	if err != nil {
		return res, err
	}

	return res, nil
}

// ItemState is a persistent data of the standalone item program.
type ItemState struct {
	Index             uint64
	CollectionAddress address.Address
	OwnerAddress      address.Address
	// Content is an URL stored as off-chain content.
	Content string
}

// Node packs the state into the program data node.
func (x ItemState) Node() (*cell.Node, error) {
	content, err := metadata.EncodeOffChainContent(x.Content)
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	return cell.NewBuilder().
		StoreUint(x.Index, IndexBits).
		StoreAddress(&x.CollectionAddress).
		StoreAddress(&x.OwnerAddress).
		StoreRef(content).
		EndCell()
}

// ItemInitData returns initial data of the item deployed by the collection.
// It determines item address, see PredictItemAddress.
func ItemInitData(index uint64, collection address.Address) (*cell.Node, error) {
	return cell.NewBuilder().
		StoreUint(index, IndexBits).
		StoreAddress(&collection).
		EndCell()
}

// PredictItemAddress returns address of the item with given index deployed
// by the collection.
func PredictItemAddress(itemCode *cell.Node, index uint64, collection address.Address) (address.Address, error) {
	data, err := ItemInitData(index, collection)
	if err != nil {
		return address.Address{}, err
	}

	return DeriveAddress(itemCode, data, collection.Workchain)
}
