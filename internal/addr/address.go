// Package addr implements the bech32-encoded account identifiers used
// throughout the pool, mirroring the address scheme of the value-transfer
// ledger this module is built against.
package addr

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
)

// Prefix distinguishes the human-readable address namespace. BondMM-A only
// ever deals with a single cash asset, but the prefix is kept so the type
// can be round-tripped through the same encoding the ledger collaborator
// uses for its own accounts.
type Prefix string

// CashPrefix is the bech32 human-readable part used for pool participants.
const CashPrefix Prefix = "bmm"

// Address is a 20-byte account identifier.
type Address struct {
	prefix Prefix
	bytes  []byte
}

// Zero reports whether the address carries no identifying bytes.
func (a Address) Zero() bool {
	if len(a.bytes) == 0 {
		return true
	}
	for _, b := range a.bytes {
		if b != 0 {
			return false
		}
	}
	return true
}

// New constructs an address from a 20-byte slice.
func New(prefix Prefix, b []byte) (Address, error) {
	if len(b) != 20 {
		return Address{}, fmt.Errorf("addr: address must be 20 bytes, got %d", len(b))
	}
	cloned := append([]byte(nil), b...)
	return Address{prefix: prefix, bytes: cloned}, nil
}

// MustNew constructs an address and panics on invalid input. Reserved for
// tests and static wiring of well-known module accounts.
func MustNew(prefix Prefix, b []byte) Address {
	a, err := New(prefix, b)
	if err != nil {
		panic(err)
	}
	return a
}

// Bytes returns a defensive copy of the underlying identifier.
func (a Address) Bytes() []byte {
	return append([]byte(nil), a.bytes...)
}

// Prefix returns the address namespace.
func (a Address) Prefix() Prefix { return a.prefix }

// Equal reports whether two addresses carry the same prefix and bytes.
func (a Address) Equal(o Address) bool {
	if a.prefix != o.prefix {
		return false
	}
	if len(a.bytes) != len(o.bytes) {
		return false
	}
	for i := range a.bytes {
		if a.bytes[i] != o.bytes[i] {
			return false
		}
	}
	return true
}

func (a Address) String() string {
	if len(a.bytes) == 0 {
		return ""
	}
	conv, err := bech32.ConvertBits(a.bytes, 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Decode parses a bech32-encoded address string.
func Decode(s string) (Address, error) {
	prefix, decoded, err := bech32.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("addr: invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("addr: invalid bech32 payload: %w", err)
	}
	return New(Prefix(prefix), conv)
}
