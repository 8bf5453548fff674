package blend

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stellar/go-stellar-sdk/strkey"
)

// --- PoolID Implementation ---

// PoolIDLength is the length of a contract address in its text form.
const PoolIDLength = 56

// ErrInvalidPoolID is returned when a string is not a valid contract address.
var ErrInvalidPoolID = errors.New("invalid pool id")

// PoolID identifies a lending pool by its contract address, a strkey with
// the contract version byte (rendered as a leading 'C').
//
// The zero value is not a valid id; use ParsePoolID to construct one.
type PoolID string

// ParsePoolID validates s and returns it as a PoolID.
// Surrounding whitespace is ignored; case is not (strkeys are upper case).
func ParsePoolID(s string) (PoolID, error) {
	s = strings.TrimSpace(s)
	if len(s) != PoolIDLength {
		return "", fmt.Errorf("%w: expected %d characters, got %d", ErrInvalidPoolID, PoolIDLength, len(s))
	}
	if _, err := strkey.Decode(strkey.VersionByteContract, s); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPoolID, err)
	}
	return PoolID(s), nil
}

// MustPoolID is ParsePoolID for compile-time constants; it panics on error.
func MustPoolID(s string) PoolID {
	id, err := ParsePoolID(s)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the address text.
func (p PoolID) String() string {
	return string(p)
}

// Compact returns the shortened "CCLB...X5B5" form used in tables.
func (p PoolID) Compact() string {
	s := string(p)
	if len(s) <= 8 {
		return s
	}
	return s[:4] + "..." + s[len(s)-4:]
}

// MarshalJSON serializes the id as a JSON string.
func (p PoolID) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(p))
}

// UnmarshalJSON parses and validates a JSON string into the id.
func (p *PoolID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	id, err := ParsePoolID(s)
	if err != nil {
		return err
	}
	*p = id
	return nil
}
