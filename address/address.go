/*
Package address provides the account address type of the ledger: a workchain
identifier paired with a 256-bit account hash.

Two textual forms are supported. The raw form is "<workchain>:<hex hash>", the
user-friendly form is a base64url encoding of a tagged 36-byte structure with
a CRC16 checksum.
*/
package address

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/sigurn/crc16"
)

// Workchains used by the network.
const (
	BaseChain   int8 = 0
	MasterChain int8 = -1
)

const (
	friendlyLen = 36

	tagBounceable    = 0x11
	tagNonBounceable = 0x51
	tagTestnet       = 0x80
)

// ErrInvalidAddress is returned when address text can't be decoded.
var ErrInvalidAddress = errors.New("invalid address")

// Address is an internal standard account address.
type Address struct {
	Workchain int8
	Hash      util.Uint256
}

// New returns Address of the account with given hash in given workchain.
func New(workchain int8, hash util.Uint256) Address {
	return Address{Workchain: workchain, Hash: hash}
}

// String returns raw form of the address.
func (a Address) String() string {
	return strconv.Itoa(int(a.Workchain)) + ":" + a.Hash.StringBE()
}

// Friendly returns user-friendly form of the address.
func (a Address) Friendly(bounceable, testnet bool) string {
	var b [friendlyLen]byte

	b[0] = tagNonBounceable
	if bounceable {
		b[0] = tagBounceable
	}
	if testnet {
		b[0] |= tagTestnet
	}
	b[1] = byte(a.Workchain)
	copy(b[2:34], a.Hash.BytesBE())

	sum := checksum(b[:34])
	b[34] = byte(sum >> 8)
	b[35] = byte(sum)

	return base64.RawURLEncoding.EncodeToString(b[:])
}

// Equals checks whether both addresses point to the same account.
func (a Address) Equals(b Address) bool {
	return a.Workchain == b.Workchain && a.Hash.Equals(b.Hash)
}

// MarshalText implements encoding.TextMarshaler using raw form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, see Parse.
func (a *Address) UnmarshalText(text []byte) error {
	res, err := Parse(string(text))
	if err != nil {
		return err
	}

	*a = res

	return nil
}

// Parse decodes Address from either raw or user-friendly form.
func Parse(s string) (Address, error) {
	if strings.Contains(s, ":") {
		return ParseRaw(s)
	}

	return ParseFriendly(s)
}

// ParseRaw decodes Address from "<workchain>:<hex hash>" form.
func ParseRaw(s string) (Address, error) {
	wc, h, ok := strings.Cut(s, ":")
	if !ok {
		return Address{}, fmt.Errorf("%w: missing workchain separator", ErrInvalidAddress)
	}

	n, err := strconv.ParseInt(wc, 10, 8)
	if err != nil {
		return Address{}, fmt.Errorf("%w: workchain: %w", ErrInvalidAddress, err)
	}

	hash, err := util.Uint256DecodeStringBE(h)
	if err != nil {
		return Address{}, fmt.Errorf("%w: hash: %w", ErrInvalidAddress, err)
	}

	return New(int8(n), hash), nil
}

// ParseFriendly decodes Address from user-friendly form. Both base64url and
// standard base64 alphabets are accepted, flags are not returned.
func ParseFriendly(s string) (Address, error) {
	var enc = base64.RawURLEncoding
	if strings.ContainsAny(s, "+/") {
		enc = base64.RawStdEncoding
	}

	b, err := enc.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	if len(b) != friendlyLen {
		return Address{}, fmt.Errorf("%w: length %d instead of %d", ErrInvalidAddress, len(b), friendlyLen)
	}

	if tag := b[0] &^ tagTestnet; tag != tagBounceable && tag != tagNonBounceable {
		return Address{}, fmt.Errorf("%w: unknown tag 0x%02x", ErrInvalidAddress, b[0])
	}

	if sum := checksum(b[:34]); b[34] != byte(sum>>8) || b[35] != byte(sum) {
		return Address{}, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	hash, err := util.Uint256DecodeBytesBE(b[2:34])
	if err != nil {
		return Address{}, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}

	return New(int8(b[1]), hash), nil
}

var crcTable = crc16.MakeTable(crc16.CRC16_XMODEM)

func checksum(data []byte) uint16 {
	return crc16.Checksum(data, crcTable)
}
