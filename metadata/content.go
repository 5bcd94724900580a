package metadata

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/crypto-pepe-dev/nft-minter/cell"
)

// Scheme is a content layout tag stored in the first byte of the content.
type Scheme byte

// Supported content schemes.
const (
	// OffChain marks content as an URL of metadata hosted outside the
	// ledger.
	OffChain Scheme = 0x01
)

var (
	// ErrUnknownContentScheme is returned on decoding content with
	// unsupported leading tag.
	ErrUnknownContentScheme = errors.New("unknown content scheme")
	// ErrInvalidUTF8 is returned when decoded content isn't valid UTF-8 text.
	ErrInvalidUTF8 = errors.New("content is not valid UTF-8")
)

// String implements fmt.Stringer.
func (s Scheme) String() string {
	switch s {
	case OffChain:
		return "off-chain"
	default:
		return fmt.Sprintf("unknown(0x%02x)", byte(s))
	}
}

// Content is a decoded content descriptor.
type Content struct {
	Scheme Scheme
	Value  string
}

// Encode returns snake-encoded content with leading scheme tag.
func (c Content) Encode() (*cell.Node, error) {
	if c.Scheme != OffChain {
		return nil, fmt.Errorf("%w: %s", ErrUnknownContentScheme, c.Scheme)
	}

	data := make([]byte, 0, 1+len(c.Value))
	data = append(data, byte(c.Scheme))
	data = append(data, c.Value...)

	return Encode(data)
}

// DecodeContent decodes snake-encoded content descriptor.
func DecodeContent(n *cell.Node) (Content, error) {
	data, err := Decode(n)
	if err != nil {
		return Content{}, err
	}

	if len(data) == 0 {
		return Content{}, fmt.Errorf("%w: empty content", ErrUnknownContentScheme)
	}

	if s := Scheme(data[0]); s != OffChain {
		return Content{}, fmt.Errorf("%w: %s", ErrUnknownContentScheme, s)
	}

	if !utf8.Valid(data[1:]) {
		return Content{}, ErrInvalidUTF8
	}

	return Content{Scheme: Scheme(data[0]), Value: string(data[1:])}, nil
}

// EncodeOffChainContent returns snake-encoded off-chain content pointing to
// given URL.
func EncodeOffChainContent(url string) (*cell.Node, error) {
	return Content{Scheme: OffChain, Value: url}.Encode()
}

// DecodeOffChainContent returns URL from snake-encoded off-chain content.
func DecodeOffChainContent(n *cell.Node) (string, error) {
	c, err := DecodeContent(n)
	if err != nil {
		return "", err
	}

	return c.Value, nil
}
