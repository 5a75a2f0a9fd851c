package models

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// Selector is the 4-byte identifier of a routed function: the first four
// bytes of keccak256 of its canonical signature.
type Selector [4]byte

// SelectorOf computes the selector of a signature such as
// "buyTicketTx(uint256,uint256,bytes32)".
func SelectorOf(signature string) Selector {
	var s Selector
	copy(s[:], crypto.Keccak256([]byte(signature))[:4])
	return s
}

// ParseSelector decodes a 0x-prefixed 4-byte hex string.
func ParseSelector(s string) (Selector, error) {
	var sel Selector
	b, err := hexutil.Decode(s)
	if err != nil {
		return sel, fmt.Errorf("selector %q: %w", s, err)
	}
	if len(b) != len(sel) {
		return sel, fmt.Errorf("selector %q: want 4 bytes, got %d", s, len(b))
	}
	copy(sel[:], b)
	return sel, nil
}

func (s Selector) String() string {
	return hexutil.Encode(s[:])
}

// MarshalText lets selectors be used as JSON object keys.
func (s Selector) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the hex form written by MarshalText.
func (s *Selector) UnmarshalText(text []byte) error {
	sel, err := ParseSelector(string(text))
	if err != nil {
		return err
	}
	*s = sel
	return nil
}
