package models

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// EventKind names an observable state change.
type EventKind string

const (
	EventRoundCreated         EventKind = "RoundCreated"
	EventBatchPurchased       EventKind = "BatchPurchased"
	EventRevealOutcome        EventKind = "RevealOutcome"
	EventRoundFinalized       EventKind = "RoundFinalized"
	EventRoundCancelled       EventKind = "RoundCancelled"
	EventRefundPaid           EventKind = "RefundPaid"
	EventProceedsWithdrawn    EventKind = "ProceedsWithdrawn"
	EventPaymentTokenSet      EventKind = "PaymentTokenSet"
	EventOwnershipTransferred EventKind = "OwnershipTransferred"
	EventModulesCut           EventKind = "ModulesCut"
)

// Event is a log entry emitted by a committed call. Events are a side
// channel for indexers; every mutating call also returns its result directly.
type Event struct {
	Seq        uint64         `json:"seq"`
	Kind       EventKind      `json:"kind"`
	Round      uint64         `json:"round,omitempty"`
	BatchStart uint64         `json:"batchStart,omitempty"`
	Quantity   uint64         `json:"quantity,omitempty"`
	Account    common.Address `json:"account"`
	Valid      bool           `json:"valid,omitempty"`
	Amount     *uint256.Int   `json:"amount,omitempty"`
	Balance    *uint256.Int   `json:"balance,omitempty"`
	Config     *RoundConfig   `json:"config,omitempty"`

	// Outcome and Winners are set on the event of the call that resolved
	// the round.
	Outcome Outcome  `json:"outcome,omitempty"`
	Winners []uint64 `json:"winners,omitempty"`
}
