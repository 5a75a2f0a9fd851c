package services

import (
	"fmt"

	"diamondlottery/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/logger"
	"github.com/holiman/uint256"
)

// resolve fixes the outcome of a round the first time it is needed after
// its reveal window closes: cancelled when under the minimum-sold threshold,
// otherwise finalized with its winners drawn and cached. It returns the event
// announcing the outcome when this call resolved the round, and leaves
// emitting it to the caller.
func (s *LotteryService) resolve(r *models.Round) (*models.Event, error) {
	if r.Outcome != models.OutcomePending {
		return nil, nil
	}
	now := s.env.Now()
	if now.Before(r.RevealCloseTime) {
		return nil, fmt.Errorf("%w: round %d reveals close at %s", ErrRoundNotFinalized, r.No, r.RevealCloseTime)
	}

	var ev models.Event
	if r.CancelDue() {
		r.Outcome = models.OutcomeCancelled
		ev = models.Event{Kind: models.EventRoundCancelled, Round: r.No, Outcome: r.Outcome}
		logger.Infof("Round %d cancelled: %d of %d tickets sold, %d%% required", r.No, r.TicketsSold, r.TicketsOffered, r.MinPercentage)
	} else {
		r.Outcome = models.OutcomeFinalized
		r.WinningTickets = drawWinners(r.No, r.NumberOfWinners, s.st.Purchases[r.No])
		ev = models.Event{Kind: models.EventRoundFinalized, Round: r.No, Outcome: r.Outcome, Winners: append([]uint64(nil), r.WinningTickets...)}
		logger.Infof("Round %d finalized with %d winning tickets", r.No, len(r.WinningTickets))
	}
	s.markSettled(r)
	return &ev, nil
}

// settle resolves r if due and announces the outcome in its own event.
func (s *LotteryService) settle(r *models.Round) error {
	ev, err := s.resolve(r)
	if err != nil {
		return err
	}
	if ev != nil {
		s.env.Emit(*ev)
	}
	return nil
}

// withResolution folds the outcome fixed during a payout call into the
// payout event, so the call still emits a single event.
func withResolution(ev models.Event, resolved *models.Event) models.Event {
	if resolved != nil {
		ev.Outcome = resolved.Outcome
		ev.Winners = resolved.Winners
	}
	return ev
}

// markSettled flags the round once nothing more is owed from it.
func (s *LotteryService) markSettled(r *models.Round) {
	if r.Settled || r.Outcome == models.OutcomePending {
		return
	}
	if r.RefundedBatches < uint64(len(s.st.Purchases[r.No])) {
		return
	}
	if r.Outcome == models.OutcomeFinalized && !r.ProceedsWithdrawn {
		return
	}
	r.Settled = true
	logger.Infof("Round %d settled", r.No)
}

// FinalizeRound resolves round no if its reveal window has closed and
// returns the outcome. Anyone may call it; later calls only report.
func (s *LotteryService) FinalizeRound(no uint64) (models.Outcome, error) {
	r, err := s.round(no)
	if err != nil {
		return models.OutcomePending, err
	}
	if err := s.settle(r); err != nil {
		return models.OutcomePending, err
	}
	return r.Outcome, nil
}

// UnresolvedRounds lists rounds whose reveal window has closed but whose
// outcome has not been fixed yet.
func (s *LotteryService) UnresolvedRounds() []uint64 {
	now := s.env.Now()
	var out []uint64
	for no := uint64(1); no <= s.st.RoundCount; no++ {
		r, ok := s.st.Rounds[no]
		if ok && r.Outcome == models.OutcomePending && !now.Before(r.RevealCloseTime) {
			out = append(out, no)
		}
	}
	return out
}

// WinningTickets returns the winners of round no, resolving it if due.
func (s *LotteryService) WinningTickets(no uint64) ([]uint64, error) {
	r, err := s.round(no)
	if err != nil {
		return nil, err
	}
	if err := s.settle(r); err != nil {
		return nil, err
	}
	return append([]uint64(nil), r.WinningTickets...), nil
}

// IthWinningTicket returns the i-th winning ticket, 1-indexed.
func (s *LotteryService) IthWinningTicket(no, i uint64) (uint64, error) {
	winners, err := s.WinningTickets(no)
	if err != nil {
		return 0, err
	}
	if i == 0 || i > uint64(len(winners)) {
		return 0, fmt.Errorf("%w: winner %d of %d in round %d", ErrOutOfRange, i, len(winners), no)
	}
	return winners[i-1], nil
}

// CheckIfTicketWon reports whether ticketNo is among the winners.
func (s *LotteryService) CheckIfTicketWon(no, ticketNo uint64) (bool, error) {
	winners, err := s.WinningTickets(no)
	if err != nil {
		return false, err
	}
	for _, w := range winners {
		if w == ticketNo {
			return true, nil
		}
	}
	return false, nil
}

// CheckIfAddrTicketWon reports whether ticketNo won and is held by addr.
func (s *LotteryService) CheckIfAddrTicketWon(addr common.Address, no, ticketNo uint64) (bool, error) {
	won, err := s.CheckIfTicketWon(no, ticketNo)
	if err != nil || !won {
		return false, err
	}
	p, err := s.batchOf(no, ticketNo)
	if err != nil {
		return false, err
	}
	return p.Buyer == addr, nil
}

// winsIn counts the winning tickets inside a batch.
func winsIn(r *models.Round, p *models.Purchase) uint64 {
	var n uint64
	for _, w := range r.WinningTickets {
		if p.Contains(w) {
			n++
		}
	}
	return n
}

// RefundOwed is what the buyer of p can withdraw from a resolved round.
// A cancelled round returns the full payment. A finalized round returns the
// price of every ticket in the batch that did not win; the price of a
// winning ticket is the prize obligation and goes to the operator.
func RefundOwed(r *models.Round, p *models.Purchase) *uint256.Int {
	switch r.Outcome {
	case models.OutcomeCancelled:
		return new(uint256.Int).Set(p.Paid)
	case models.OutcomeFinalized:
		kept := new(uint256.Int).Mul(r.TicketPrice, uint256.NewInt(winsIn(r, p)))
		return new(uint256.Int).Sub(p.Paid, kept)
	default:
		return new(uint256.Int)
	}
}

// ProceedsOwed is the operator's share of a resolved round: the price of
// each winning ticket, or nothing when the round was cancelled.
func ProceedsOwed(r *models.Round) *uint256.Int {
	if r.Outcome != models.OutcomeFinalized {
		return new(uint256.Int)
	}
	return new(uint256.Int).Mul(r.TicketPrice, uint256.NewInt(uint64(len(r.WinningTickets))))
}

// WithdrawRefund pays the buyer of the batch starting at start what the
// resolved round owes them, once.
func (s *LotteryService) WithdrawRefund(no, start uint64) (*uint256.Int, error) {
	r, err := s.round(no)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolve(r)
	if err != nil {
		return nil, err
	}
	p, err := s.batch(no, start)
	if err != nil {
		return nil, err
	}
	if p.Buyer != s.env.Sender() {
		return nil, fmt.Errorf("%w: batch %d of round %d", ErrNotBuyer, start, no)
	}
	if p.Refunded {
		return nil, fmt.Errorf("%w: batch %d of round %d", ErrAlreadySettled, start, no)
	}

	amount := RefundOwed(r, p)
	asset, err := s.asset(r)
	if err != nil {
		return nil, err
	}
	if !amount.IsZero() {
		if err := asset.Transfer(s.env.Self(), p.Buyer, amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
	}

	p.Refunded = true
	p.Refund = new(uint256.Int).Set(amount)
	r.RefundedBatches++
	r.RefundsPaid.Add(r.RefundsPaid, amount)
	s.env.Emit(withResolution(models.Event{
		Kind:       models.EventRefundPaid,
		Round:      no,
		BatchStart: start,
		Quantity:   p.Quantity,
		Account:    p.Buyer,
		Amount:     new(uint256.Int).Set(amount),
		Balance:    asset.BalanceOf(s.env.Self()),
	}, resolved))
	s.markSettled(r)
	return amount, nil
}

// WithdrawProceeds pays the operator its share of a resolved round, once.
func (s *LotteryService) WithdrawProceeds(no uint64) (*uint256.Int, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	r, err := s.round(no)
	if err != nil {
		return nil, err
	}
	resolved, err := s.resolve(r)
	if err != nil {
		return nil, err
	}
	if r.ProceedsWithdrawn {
		return nil, fmt.Errorf("%w: round %d", ErrAlreadyWithdrawn, no)
	}

	amount := ProceedsOwed(r)
	if !amount.IsZero() {
		asset, err := s.asset(r)
		if err != nil {
			return nil, err
		}
		if err := asset.Transfer(s.env.Self(), s.st.Owner, amount); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
		}
	}

	r.ProceedsWithdrawn = true
	s.env.Emit(withResolution(models.Event{
		Kind:    models.EventProceedsWithdrawn,
		Round:   no,
		Account: s.st.Owner,
		Amount:  new(uint256.Int).Set(amount),
	}, resolved))
	logger.Infof("Round %d proceeds of %s withdrawn by %s", no, amount.Dec(), s.st.Owner)
	s.markSettled(r)
	return amount, nil
}
