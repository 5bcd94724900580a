package message

import (
	"fmt"

	"github.com/crypto-pepe-dev/nft-minter/address"
	"github.com/crypto-pepe-dev/nft-minter/cell"
	"github.com/crypto-pepe-dev/nft-minter/metadata"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
)

// Get-method names.
const (
	MethodGetCollectionData    = "get_collection_data"
	MethodGetNftAddressByIndex = "get_nft_address_by_index"
	MethodRoyaltyParams        = "royalty_params"
	MethodGetNftContent        = "get_nft_content"
	MethodGetNftData           = "get_nft_data"
)

// CollectionData is a result of get_collection_data.
type CollectionData struct {
	NextItemIndex        uint64
	CollectionContentURL string
	OwnerAddress         address.Address
}

// NftData is a result of get_nft_data.
type NftData struct {
	Initialized       bool
	Index             uint64
	CollectionAddress *address.Address
	OwnerAddress      *address.Address
	// Content is nil until item is initialized.
	Content *cell.Node
}

// OffChainContent decodes Content as off-chain content pointer.
func (x NftData) OffChainContent() (string, error) {
	if x.Content == nil {
		return "", fmt.Errorf("nft content: %w", cell.ErrNilReference)
	}

	return metadata.DecodeOffChainContent(x.Content)
}

// ParseCollectionData parses get_collection_data result: next item index,
// collection content node, owner address slice.
func ParseCollectionData(r *result.Invoke, err error) (*CollectionData, error) {
	s, err := stackOf(r, err, 3)
	if err != nil {
		return nil, err
	}

	var res CollectionData

	res.NextItemIndex, err = s.ReadUint(IndexBits)
	if err != nil {
		return nil, fmt.Errorf("next item index: %w", err)
	}

	content, err := s.ReadNode()
	if err != nil {
		return nil, fmt.Errorf("collection content: %w", err)
	}

	res.CollectionContentURL, err = metadata.DecodeOffChainContent(content)
	if err != nil {
		return nil, fmt.Errorf("collection content: %w", err)
	}

	owner, err := s.ReadAddress()
	if err != nil {
		return nil, fmt.Errorf("owner: %w", err)
	}
	if owner == nil {
		return nil, fmt.Errorf("%w: owner", ErrMissingAddress)
	}

	res.OwnerAddress = *owner

	return &res, nil
}

// ParseNftAddress parses get_nft_address_by_index result: item address slice.
func ParseNftAddress(r *result.Invoke, err error) (address.Address, error) {
	s, err := stackOf(r, err, 1)
	if err != nil {
		return address.Address{}, err
	}

	a, err := s.ReadAddress()
	if err != nil {
		return address.Address{}, fmt.Errorf("nft address: %w", err)
	}
	if a == nil {
		return address.Address{}, fmt.Errorf("%w: nft address", ErrMissingAddress)
	}

	return *a, nil
}

// ParseRoyaltyParams parses royalty_params result: factor, base, beneficiary
// address slice.
func ParseRoyaltyParams(r *result.Invoke, err error) (*RoyaltyParams, error) {
	s, err := stackOf(r, err, 3)
	if err != nil {
		return nil, err
	}

	factor, err := s.ReadUint(RoyaltyBits)
	if err != nil {
		return nil, fmt.Errorf("royalty factor: %w", err)
	}

	base, err := s.ReadUint(RoyaltyBits)
	if err != nil {
		return nil, fmt.Errorf("royalty base: %w", err)
	}

	beneficiary, err := s.ReadAddress()
	if err != nil {
		return nil, fmt.Errorf("royalty beneficiary: %w", err)
	}
	if beneficiary == nil {
		return nil, fmt.Errorf("%w: royalty beneficiary", ErrMissingAddress)
	}

	return &RoyaltyParams{
		Factor:  int(factor),
		Base:    int(base),
		Address: *beneficiary,
	}, nil
}

// ParseNftContent parses get_nft_content result: full item content node
// decoded as off-chain content. Collection joins common content prefix with
// the individual one, so the result is the complete item content URL.
func ParseNftContent(r *result.Invoke, err error) (string, error) {
	s, err := stackOf(r, err, 1)
	if err != nil {
		return "", err
	}

	content, err := s.ReadNode()
	if err != nil {
		return "", fmt.Errorf("nft content: %w", err)
	}

	res, err := metadata.DecodeOffChainContent(content)
	if err != nil {
		return "", fmt.Errorf("nft content: %w", err)
	}

	return res, nil
}

// ParseNftData parses get_nft_data result: initialization flag, index,
// collection address slice, owner address slice, individual content node.
func ParseNftData(r *result.Invoke, err error) (*NftData, error) {
	s, err := stackOf(r, err, 5)
	if err != nil {
		return nil, err
	}

	var res NftData

	res.Initialized, err = s.ReadBool()
	if err != nil {
		return nil, fmt.Errorf("init flag: %w", err)
	}

	res.Index, err = s.ReadUint(IndexBits)
	if err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	res.CollectionAddress, err = s.ReadAddress()
	if err != nil {
		return nil, fmt.Errorf("collection address: %w", err)
	}

	res.OwnerAddress, err = s.ReadAddress()
	if err != nil {
		return nil, fmt.Errorf("owner address: %w", err)
	}

	res.Content, err = s.ReadMaybeNode()
	if err != nil {
		return nil, fmt.Errorf("content: %w", err)
	}

	return &res, nil
}

func stackOf(r *result.Invoke, err error, n int) (*Stack, error) {
	s, err := NewStack(r, err)
	if err != nil {
		return nil, err
	}

	if err = s.ExpectLen(n); err != nil {
		return nil, err
	}

	return s, nil
}
