package services

import (
	"fmt"
	"time"

	"diamondlottery/internal/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/logger"
	"github.com/holiman/uint256"
)

// DefaultRevealWindow separates a round's end of sale from its reveal close.
const DefaultRevealWindow = 30 * time.Minute

// Owner returns the operator address.
func (s *LotteryService) Owner() common.Address {
	return s.st.Owner
}

// TransferOwnership hands operator rights to newOwner.
func (s *LotteryService) TransferOwnership(newOwner common.Address) error {
	if err := s.requireOwner(); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: zero owner", ErrInvalidConfig)
	}
	prev := s.st.Owner
	s.st.Owner = newOwner
	s.env.Emit(models.Event{Kind: models.EventOwnershipTransferred, Account: newOwner})
	logger.Infof("Operator changed from %s to %s", prev, newOwner)
	return nil
}

// SetPaymentToken configures the asset future rounds are sold in. Existing
// rounds keep the asset they snapshotted at creation.
func (s *LotteryService) SetPaymentToken(addr common.Address) error {
	if err := s.requireOwner(); err != nil {
		return err
	}
	if _, err := s.env.Asset(addr); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	s.st.PaymentToken = addr
	s.env.Emit(models.Event{Kind: models.EventPaymentTokenSet, Account: addr})
	return nil
}

// PaymentToken returns the currently configured asset.
func (s *LotteryService) PaymentToken() common.Address {
	return s.st.PaymentToken
}

// CreateRound opens a new round and returns its number.
func (s *LotteryService) CreateRound(cfg models.RoundConfig) (uint64, error) {
	if err := s.requireOwner(); err != nil {
		return 0, err
	}
	now := s.env.Now()
	switch {
	case !cfg.EndTime.After(now):
		return 0, fmt.Errorf("%w: end time %s is not after %s", ErrInvalidConfig, cfg.EndTime, now)
	case cfg.TicketsOffered == 0:
		return 0, fmt.Errorf("%w: no tickets offered", ErrInvalidConfig)
	case cfg.NumberOfWinners == 0 || cfg.NumberOfWinners > cfg.TicketsOffered:
		return 0, fmt.Errorf("%w: %d winners for %d tickets", ErrInvalidConfig, cfg.NumberOfWinners, cfg.TicketsOffered)
	case cfg.MinPercentage > 100:
		return 0, fmt.Errorf("%w: minimum percentage %d", ErrInvalidConfig, cfg.MinPercentage)
	case cfg.TicketPrice == nil || cfg.TicketPrice.IsZero():
		return 0, fmt.Errorf("%w: ticket price must be positive", ErrInvalidConfig)
	case s.st.PaymentToken == (common.Address{}):
		return 0, fmt.Errorf("%w: payment token not set", ErrInvalidConfig)
	}
	window := s.st.RevealWindow
	if window <= 0 {
		window = DefaultRevealWindow
	}

	s.st.RoundCount++
	r := &models.Round{
		No:              s.st.RoundCount,
		CreatedAt:       now,
		EndTime:         cfg.EndTime,
		RevealCloseTime: cfg.EndTime.Add(window),
		TicketsOffered:  cfg.TicketsOffered,
		NumberOfWinners: cfg.NumberOfWinners,
		MinPercentage:   cfg.MinPercentage,
		TicketPrice:     new(uint256.Int).Set(cfg.TicketPrice),
		ContentHash:     cfg.ContentHash,
		URL:             cfg.URL,
		PaymentToken:    s.st.PaymentToken,
		RefundsPaid:     new(uint256.Int),
	}
	s.st.Rounds[r.No] = r

	echo := cfg
	echo.TicketPrice = new(uint256.Int).Set(cfg.TicketPrice)
	s.env.Emit(models.Event{Kind: models.EventRoundCreated, Round: r.No, Account: s.env.Sender(), Config: &echo})
	logger.Infof("Round %d created: %d tickets at %s, %d winners, closes %s", r.No, r.TicketsOffered, r.TicketPrice.Dec(), r.NumberOfWinners, r.EndTime.Format(time.RFC3339))
	return r.No, nil
}

// RoundInfo returns the public parameters and progress of a round.
func (s *LotteryService) RoundInfo(no uint64) (*models.RoundInfo, error) {
	r, err := s.round(no)
	if err != nil {
		return nil, err
	}
	return &models.RoundInfo{
		No:              r.No,
		EndTime:         r.EndTime,
		RevealCloseTime: r.RevealCloseTime,
		TicketsOffered:  r.TicketsOffered,
		NumberOfWinners: r.NumberOfWinners,
		MinPercentage:   r.MinPercentage,
		TicketPrice:     new(uint256.Int).Set(r.TicketPrice),
		TicketsSold:     r.TicketsSold,
		State:           r.State(s.env.Now()),
	}, nil
}

// RoundURL returns the content descriptor of a round.
func (s *LotteryService) RoundURL(no uint64) (*models.ContentDescriptor, error) {
	r, err := s.round(no)
	if err != nil {
		return nil, err
	}
	return &models.ContentDescriptor{Hash: r.ContentHash, URL: r.URL}, nil
}

// RoundPaymentToken returns the asset a round was created with.
func (s *LotteryService) RoundPaymentToken(no uint64) (common.Address, error) {
	r, err := s.round(no)
	if err != nil {
		return common.Address{}, err
	}
	return r.PaymentToken, nil
}

// RevealTime returns when reveals open (the end of sale) for a round.
func (s *LotteryService) RevealTime(no uint64) (time.Time, error) {
	r, err := s.round(no)
	if err != nil {
		return time.Time{}, err
	}
	return r.EndTime, nil
}

// RoundCount returns how many rounds have been created.
func (s *LotteryService) RoundCount() uint64 {
	return s.st.RoundCount
}

// CurrentRoundNo returns the highest round still selling, or the most
// recently created round when none is, or 0 before the first round.
func (s *LotteryService) CurrentRoundNo() uint64 {
	now := s.env.Now()
	for no := s.st.RoundCount; no > 0; no-- {
		if r, ok := s.st.Rounds[no]; ok && now.Before(r.EndTime) {
			return no
		}
	}
	return s.st.RoundCount
}
