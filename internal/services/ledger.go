package services

import (
	"fmt"
	"sort"

	"diamondlottery/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BuyTickets sells quantity tickets of round no to the caller under
// commitment and returns the first ticket number of the new batch. Payment
// is pulled from the caller into custody before anything is recorded.
func (s *LotteryService) BuyTickets(no, quantity uint64, commitment common.Hash) (uint64, error) {
	r, err := s.round(no)
	if err != nil {
		return 0, err
	}
	if st := r.State(s.env.Now()); st != models.StateSelling {
		return 0, fmt.Errorf("%w: round %d is %s", ErrNotSelling, no, st)
	}
	if quantity == 0 {
		return 0, fmt.Errorf("%w: quantity must be positive", ErrInvalidConfig)
	}
	if quantity > r.TicketsOffered-r.TicketsSold {
		return 0, fmt.Errorf("%w: %d requested, %d left in round %d", ErrSoldOut, quantity, r.TicketsOffered-r.TicketsSold, no)
	}
	cost, overflow := new(uint256.Int).MulOverflow(r.TicketPrice, uint256.NewInt(quantity))
	if overflow {
		return 0, fmt.Errorf("%w: cost of %d tickets overflows", ErrInvalidConfig, quantity)
	}

	asset, err := s.asset(r)
	if err != nil {
		return 0, err
	}
	buyer := s.env.Sender()
	if err := asset.TransferFrom(s.env.Self(), buyer, s.env.Self(), cost); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}

	p := &models.Purchase{
		Start:      r.TicketsSold + 1,
		Quantity:   quantity,
		Buyer:      buyer,
		Commitment: commitment,
		Paid:       cost,
	}
	s.st.Purchases[no] = append(s.st.Purchases[no], p)
	r.TicketsSold += quantity

	s.env.Emit(models.Event{
		Kind:       models.EventBatchPurchased,
		Round:      no,
		BatchStart: p.Start,
		Quantity:   quantity,
		Account:    buyer,
		Amount:     new(uint256.Int).Set(cost),
	})
	return p.Start, nil
}

// TicketsSold returns how many tickets of round no have been sold.
func (s *LotteryService) TicketsSold(no uint64) (uint64, error) {
	r, err := s.round(no)
	if err != nil {
		return 0, err
	}
	return r.TicketsSold, nil
}

// PurchaseCount returns how many batches round no has.
func (s *LotteryService) PurchaseCount(no uint64) (uint64, error) {
	if _, err := s.round(no); err != nil {
		return 0, err
	}
	return uint64(len(s.st.Purchases[no])), nil
}

// IthPurchase returns the start and quantity of the i-th batch, 1-indexed.
func (s *LotteryService) IthPurchase(no, i uint64) (models.BatchSlot, error) {
	if _, err := s.round(no); err != nil {
		return models.BatchSlot{}, err
	}
	batches := s.st.Purchases[no]
	if i == 0 || i > uint64(len(batches)) {
		return models.BatchSlot{}, fmt.Errorf("%w: batch %d of %d", ErrOutOfRange, i, len(batches))
	}
	p := batches[i-1]
	return models.BatchSlot{Start: p.Start, Quantity: p.Quantity}, nil
}

// Ticket returns the holder and reveal state of a sold ticket.
func (s *LotteryService) Ticket(no, ticketNo uint64) (models.TicketInfo, error) {
	p, err := s.batchOf(no, ticketNo)
	if err != nil {
		return models.TicketInfo{}, err
	}
	return models.TicketInfo{
		TicketNo:   ticketNo,
		BatchStart: p.Start,
		Buyer:      p.Buyer,
		Reveal:     p.Reveal,
	}, nil
}

// batchOf finds the batch holding ticketNo. Batches partition [1, sold] in
// order, so a binary search on the last ticket of each batch suffices.
func (s *LotteryService) batchOf(no, ticketNo uint64) (*models.Purchase, error) {
	r, err := s.round(no)
	if err != nil {
		return nil, err
	}
	if ticketNo == 0 || ticketNo > r.TicketsSold {
		return nil, fmt.Errorf("%w: ticket %d of round %d (%d sold)", ErrNoSuchTicket, ticketNo, no, r.TicketsSold)
	}
	batches := s.st.Purchases[no]
	i := sort.Search(len(batches), func(i int) bool { return batches[i].Last() >= ticketNo })
	if i == len(batches) || !batches[i].Contains(ticketNo) {
		return nil, fmt.Errorf("%w: ticket %d of round %d", ErrNoSuchTicket, ticketNo, no)
	}
	return batches[i], nil
}

// batch finds the batch whose first ticket is start.
func (s *LotteryService) batch(no, start uint64) (*models.Purchase, error) {
	if _, err := s.round(no); err != nil {
		return nil, err
	}
	batches := s.st.Purchases[no]
	i := sort.Search(len(batches), func(i int) bool { return batches[i].Start >= start })
	if i == len(batches) || batches[i].Start != start {
		return nil, fmt.Errorf("%w: no batch starts at %d in round %d", ErrNoSuchBatch, start, no)
	}
	return batches[i], nil
}
