package services

import "errors"

// Error kinds reported by lottery operations. Every failing call is rejected
// as a whole; callers match these with errors.Is.
var (
	ErrNotOwner          = errors.New("caller is not the operator")
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrNoSuchRound       = errors.New("no such round")
	ErrNotSelling        = errors.New("round is not selling tickets")
	ErrSoldOut           = errors.New("not enough tickets left")
	ErrOutOfRange        = errors.New("index out of range")
	ErrNoSuchTicket      = errors.New("no such ticket")
	ErrNoSuchBatch       = errors.New("no such purchase batch")
	ErrNotBuyer          = errors.New("caller is not the buyer of the batch")
	ErrNotInRevealWindow = errors.New("round is not in its reveal window")
	ErrAlreadyRevealed   = errors.New("batch already revealed")
	ErrRoundNotFinalized = errors.New("round is not finalized yet")
	ErrAlreadySettled    = errors.New("batch already settled")
	ErrAlreadyWithdrawn  = errors.New("proceeds already withdrawn")
	ErrPaymentFailed     = errors.New("payment failed")
)
