package services

import (
	"fmt"
	"time"

	"diamondlottery/internal/models"
	"diamondlottery/internal/store"
	"diamondlottery/internal/token"

	"github.com/ethereum/go-ethereum/common"
)

// Env is the call context a LotteryService runs in: who is calling, the
// clock reading for the call, the custody address, the payment assets and
// the event sink.
type Env interface {
	Sender() common.Address
	Now() time.Time
	Self() common.Address
	Asset(addr common.Address) (token.Asset, error)
	Emit(ev models.Event)
}

// LotteryService applies lottery operations to one call's view of the
// shared storage. It holds no state of its own; build one per call.
type LotteryService struct {
	st  *store.Storage
	env Env
}

// NewLotteryService binds the service to st for a call running in env.
func NewLotteryService(st *store.Storage, env Env) *LotteryService {
	return &LotteryService{st: st, env: env}
}

func (s *LotteryService) requireOwner() error {
	if s.env.Sender() != s.st.Owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, s.env.Sender())
	}
	return nil
}

func (s *LotteryService) round(no uint64) (*models.Round, error) {
	r, ok := s.st.Rounds[no]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoSuchRound, no)
	}
	return r, nil
}

func (s *LotteryService) asset(r *models.Round) (token.Asset, error) {
	a, err := s.env.Asset(r.PaymentToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	return a, nil
}
