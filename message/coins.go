package message

import (
	"fmt"
	"math/big"

	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
)

// CoinDecimals is a number of decimal places of the native coin: amounts are
// transferred in nanocoins.
const CoinDecimals = 9

// ToNano converts decimal coin amount like "0.05" into nanocoins.
func ToNano(s string) (*big.Int, error) {
	v, err := fixedn.FromString(s, CoinDecimals)
	if err != nil {
		return nil, fmt.Errorf("parse coin amount %q: %w", s, err)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative coin amount %q", ErrFieldOutOfRange, s)
	}

	return v, nil
}

// FromNano formats nanocoins as decimal coin amount.
func FromNano(v *big.Int) string {
	if v == nil {
		return "0"
	}

	return fixedn.ToString(v, CoinDecimals)
}
