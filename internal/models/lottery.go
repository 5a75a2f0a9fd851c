package models

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// RoundConfig holds the operator-supplied parameters of a new round.
// The content hash and URL describe the prize and are carried verbatim.
type RoundConfig struct {
	EndTime         time.Time    `json:"endTime"`
	TicketsOffered  uint64       `json:"ticketsOffered"`
	NumberOfWinners uint64       `json:"numberOfWinners"`
	MinPercentage   uint64       `json:"minPercentage"`
	TicketPrice     *uint256.Int `json:"ticketPrice"`
	ContentHash     common.Hash  `json:"contentHash"`
	URL             string       `json:"url"`
}

// Outcome is the resolution of a round once its reveal window has closed.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeFinalized
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeFinalized:
		return "finalized"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

// MarshalText renders the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText parses the name written by MarshalText.
func (o *Outcome) UnmarshalText(text []byte) error {
	for _, c := range []Outcome{OutcomePending, OutcomeFinalized, OutcomeCancelled} {
		if c.String() == string(text) {
			*o = c
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", text)
}

// RoundState is the lifecycle position of a round at a given instant.
type RoundState uint8

const (
	StateCreated RoundState = iota
	StateSelling
	StateRevealWindow
	StateCancelled
	StateFinalized
	StateSettled
)

func (s RoundState) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateSelling:
		return "selling"
	case StateRevealWindow:
		return "reveal-window"
	case StateCancelled:
		return "cancelled"
	case StateFinalized:
		return "finalized"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s RoundState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Round is the durable record of one lottery round.
type Round struct {
	No              uint64         `json:"no"`
	CreatedAt       time.Time      `json:"createdAt"`
	EndTime         time.Time      `json:"endTime"`
	RevealCloseTime time.Time      `json:"revealCloseTime"`
	TicketsOffered  uint64         `json:"ticketsOffered"`
	NumberOfWinners uint64         `json:"numberOfWinners"`
	MinPercentage   uint64         `json:"minPercentage"`
	TicketPrice     *uint256.Int   `json:"ticketPrice"`
	ContentHash     common.Hash    `json:"contentHash"`
	URL             string         `json:"url"`
	PaymentToken    common.Address `json:"paymentToken"`
	TicketsSold     uint64         `json:"ticketsSold"`

	Outcome           Outcome      `json:"outcome"`
	WinningTickets    []uint64     `json:"winningTickets,omitempty"`
	RefundedBatches   uint64       `json:"refundedBatches"`
	RefundsPaid       *uint256.Int `json:"refundsPaid"`
	ProceedsWithdrawn bool         `json:"proceedsWithdrawn"`
	Settled           bool         `json:"settled"`
}

// CancelDue reports whether the round falls short of its minimum-sold
// threshold, i.e. ticketsSold*100 < ticketsOffered*minPercentage.
func (r *Round) CancelDue() bool {
	sold := new(uint256.Int).Mul(uint256.NewInt(r.TicketsSold), uint256.NewInt(100))
	need := new(uint256.Int).Mul(uint256.NewInt(r.TicketsOffered), uint256.NewInt(r.MinPercentage))
	return sold.Lt(need)
}

// State derives the lifecycle state at now. A round whose reveal window has
// closed but which has not been resolved yet reports the state it will
// resolve into.
func (r *Round) State(now time.Time) RoundState {
	switch {
	case r.Settled:
		return StateSettled
	case r.Outcome == OutcomeCancelled:
		return StateCancelled
	case r.Outcome == OutcomeFinalized:
		return StateFinalized
	case now.Before(r.CreatedAt):
		return StateCreated
	case now.Before(r.EndTime):
		return StateSelling
	case now.Before(r.RevealCloseTime):
		return StateRevealWindow
	case r.CancelDue():
		return StateCancelled
	default:
		return StateFinalized
	}
}

// Clone returns a deep copy of the round.
func (r *Round) Clone() *Round {
	c := *r
	c.TicketPrice = cloneInt(r.TicketPrice)
	c.RefundsPaid = cloneInt(r.RefundsPaid)
	if r.WinningTickets != nil {
		c.WinningTickets = append([]uint64(nil), r.WinningTickets...)
	}
	return &c
}

// RoundInfo is the read view of a round returned to callers.
type RoundInfo struct {
	No              uint64       `json:"no"`
	EndTime         time.Time    `json:"endTime"`
	RevealCloseTime time.Time    `json:"revealCloseTime"`
	TicketsOffered  uint64       `json:"ticketsOffered"`
	NumberOfWinners uint64       `json:"numberOfWinners"`
	MinPercentage   uint64       `json:"minPercentage"`
	TicketPrice     *uint256.Int `json:"ticketPrice"`
	TicketsSold     uint64       `json:"ticketsSold"`
	State           RoundState   `json:"state"`
}

// ContentDescriptor is the opaque prize description attached to a round.
type ContentDescriptor struct {
	Hash common.Hash `json:"hash"`
	URL  string      `json:"url"`
}

// RevealState tracks the commit-reveal outcome of a purchase batch.
type RevealState uint8

const (
	Unrevealed RevealState = iota
	RevealValid
	RevealInvalid
)

func (s RevealState) String() string {
	switch s {
	case RevealValid:
		return "valid"
	case RevealInvalid:
		return "invalid"
	default:
		return "unrevealed"
	}
}

// MarshalText renders the reveal state by name.
func (s RevealState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses the name written by MarshalText.
func (s *RevealState) UnmarshalText(text []byte) error {
	for _, c := range []RevealState{Unrevealed, RevealValid, RevealInvalid} {
		if c.String() == string(text) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown reveal state %q", text)
}

// Purchase is one buy call: the contiguous tickets
// [Start, Start+Quantity-1] bought by Buyer under a single commitment.
type Purchase struct {
	Start      uint64         `json:"start"`
	Quantity   uint64         `json:"quantity"`
	Buyer      common.Address `json:"buyer"`
	Commitment common.Hash    `json:"commitment"`
	Paid       *uint256.Int   `json:"paid"`
	Reveal     RevealState    `json:"reveal"`
	Secret     *uint256.Int   `json:"secret,omitempty"`
	Refunded   bool           `json:"refunded"`
	Refund     *uint256.Int   `json:"refund,omitempty"`
}

// Last returns the highest ticket number in the batch.
func (p *Purchase) Last() uint64 {
	return p.Start + p.Quantity - 1
}

// Contains reports whether ticketNo falls inside the batch.
func (p *Purchase) Contains(ticketNo uint64) bool {
	return ticketNo >= p.Start && ticketNo <= p.Last()
}

// Clone returns a deep copy of the purchase.
func (p *Purchase) Clone() *Purchase {
	c := *p
	c.Paid = cloneInt(p.Paid)
	c.Secret = cloneInt(p.Secret)
	c.Refund = cloneInt(p.Refund)
	return &c
}

// BatchSlot is the (start, quantity) pair of the i-th purchase of a round.
type BatchSlot struct {
	Start    uint64 `json:"start"`
	Quantity uint64 `json:"quantity"`
}

// TicketInfo answers who holds a ticket and whether it can win.
type TicketInfo struct {
	TicketNo   uint64         `json:"ticketNo"`
	BatchStart uint64         `json:"batchStart"`
	Buyer      common.Address `json:"buyer"`
	Reveal     RevealState    `json:"reveal"`
}

func cloneInt(x *uint256.Int) *uint256.Int {
	if x == nil {
		return nil
	}
	return new(uint256.Int).Set(x)
}
