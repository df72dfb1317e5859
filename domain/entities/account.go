package entities

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Account identifies a raffle participant by its on-chain address
type Account struct {
	addr common.Address
}

// ParseAccount parses a 0x-prefixed hex address. The zero address is rejected
// so that an unset winner can never be confused with a real account.
func ParseAccount(s string) (Account, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return Account{}, fmt.Errorf("%w: account %q must be 0x-prefixed", ErrInvalidAccount, s)
	}
	if !common.IsHexAddress(s) {
		return Account{}, fmt.Errorf("%w: account %q is not a 20-byte hex address", ErrInvalidAccount, s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return Account{}, fmt.Errorf("%w: zero address", ErrInvalidAccount)
	}
	return Account{addr: addr}, nil
}

// MustParseAccount is ParseAccount for constants and tests
func MustParseAccount(s string) Account {
	a, err := ParseAccount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AccountFromAddress wraps an address
func AccountFromAddress(addr common.Address) Account {
	return Account{addr: addr}
}

// Address returns the underlying address
func (a Account) Address() common.Address {
	return a.addr
}

// IsZero reports whether the account was never set
func (a Account) IsZero() bool {
	return a.addr == (common.Address{})
}

// String returns the EIP-55 checksummed form
func (a Account) String() string {
	return a.addr.Hex()
}

// Equal compares two accounts by address
func (a Account) Equal(other Account) bool {
	return a.addr == other.addr
}

// MarshalText implements encoding.TextMarshaler
func (a Account) MarshalText() ([]byte, error) {
	return []byte(a.addr.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (a *Account) UnmarshalText(text []byte) error {
	parsed, err := ParseAccount(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
