package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Address identifies an account on the host: a caller, a provider, a
// subscriber or a transfer recipient.
type Address = common.Address

// ZeroAddress is the reserved "no account" value. A plan whose provider is the
// zero address does not exist.
var ZeroAddress Address

// IsZeroAddress reports whether a is the zero address.
func IsZeroAddress(a Address) bool { return a == ZeroAddress }

// ParseAddress parses a 0x-prefixed (or bare) 40 hex digit address.
func ParseAddress(s string) (Address, error) {
	if !common.IsHexAddress(s) {
		return ZeroAddress, fmt.Errorf("address: invalid hex address %q", s)
	}
	return common.HexToAddress(s), nil
}

// MustParseAddress is like ParseAddress but panics on error.
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// BytesToAddress converts b to an address, keeping the last 20 bytes.
func BytesToAddress(b []byte) Address { return common.BytesToAddress(b) }
