package services

import (
	"fmt"

	"diamondlottery/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Commitment binds a secret to its buyer:
// keccak256(secret as 32 big-endian bytes || buyer address).
// A copied commitment is useless to anyone but the buyer.
func Commitment(secret *uint256.Int, buyer common.Address) common.Hash {
	b := secret.Bytes32()
	return crypto.Keccak256Hash(b[:], buyer.Bytes())
}

// Reveal discloses the secret behind the batch starting at start. A wrong
// secret marks the batch invalid for good; it is not an error.
func (s *LotteryService) Reveal(no, start, quantity uint64, secret *uint256.Int) (bool, error) {
	r, err := s.round(no)
	if err != nil {
		return false, err
	}
	if st := r.State(s.env.Now()); st != models.StateRevealWindow {
		return false, fmt.Errorf("%w: round %d is %s", ErrNotInRevealWindow, no, st)
	}
	p, err := s.batch(no, start)
	if err != nil {
		return false, err
	}
	if p.Quantity != quantity {
		return false, fmt.Errorf("%w: batch %d of round %d holds %d tickets, not %d", ErrNoSuchBatch, start, no, p.Quantity, quantity)
	}
	if p.Buyer != s.env.Sender() {
		return false, fmt.Errorf("%w: batch %d of round %d", ErrNotBuyer, start, no)
	}
	if p.Reveal != models.Unrevealed {
		return false, fmt.Errorf("%w: batch %d of round %d is %s", ErrAlreadyRevealed, start, no, p.Reveal)
	}
	if secret == nil {
		secret = new(uint256.Int)
	}

	valid := Commitment(secret, p.Buyer) == p.Commitment
	if valid {
		p.Reveal = models.RevealValid
		p.Secret = new(uint256.Int).Set(secret)
	} else {
		p.Reveal = models.RevealInvalid
	}
	s.env.Emit(models.Event{
		Kind:       models.EventRevealOutcome,
		Round:      no,
		BatchStart: start,
		Quantity:   quantity,
		Account:    p.Buyer,
		Valid:      valid,
	})
	return valid, nil
}
