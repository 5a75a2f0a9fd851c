// Package store defines the single storage region shared by every routed
// module, and its durable persistence.
package store

import (
	"sort"
	"time"

	"diamondlottery/internal/models"

	"github.com/ethereum/go-ethereum/common"
)

// Storage is the whole durable state behind the router. Modules own no
// state of their own; each routed call works on a clone of this value.
type Storage struct {
	Owner        common.Address `json:"owner"`
	PaymentToken common.Address `json:"paymentToken"`
	RevealWindow time.Duration  `json:"revealWindow"`
	RoundCount   uint64         `json:"roundCount"`

	Rounds    map[uint64]*models.Round      `json:"rounds"`
	Purchases map[uint64][]*models.Purchase `json:"purchases"`

	// Selectors maps each routed function to the module address serving it.
	Selectors map[models.Selector]common.Address `json:"selectors"`
}

// New returns empty storage for a fresh deployment.
func New(owner common.Address, revealWindow time.Duration) *Storage {
	s := &Storage{Owner: owner, RevealWindow: revealWindow}
	s.init()
	return s
}

func (s *Storage) init() {
	if s.Rounds == nil {
		s.Rounds = make(map[uint64]*models.Round)
	}
	if s.Purchases == nil {
		s.Purchases = make(map[uint64][]*models.Purchase)
	}
	if s.Selectors == nil {
		s.Selectors = make(map[models.Selector]common.Address)
	}
}

// Clone returns a deep copy that can be mutated freely.
func (s *Storage) Clone() *Storage {
	c := &Storage{
		Owner:        s.Owner,
		PaymentToken: s.PaymentToken,
		RevealWindow: s.RevealWindow,
		RoundCount:   s.RoundCount,
		Rounds:       make(map[uint64]*models.Round, len(s.Rounds)),
		Purchases:    make(map[uint64][]*models.Purchase, len(s.Purchases)),
		Selectors:    make(map[models.Selector]common.Address, len(s.Selectors)),
	}
	for no, r := range s.Rounds {
		c.Rounds[no] = r.Clone()
	}
	for no, batches := range s.Purchases {
		cb := make([]*models.Purchase, len(batches))
		for i, p := range batches {
			cb[i] = p.Clone()
		}
		c.Purchases[no] = cb
	}
	for sel, addr := range s.Selectors {
		c.Selectors[sel] = addr
	}
	return c
}

// SortedSelectors returns the mapped selectors in byte order.
func (s *Storage) SortedSelectors() []models.Selector {
	out := make([]models.Selector, 0, len(s.Selectors))
	for sel := range s.Selectors {
		out = append(out, sel)
	}
	sort.Slice(out, func(i, j int) bool {
		return string(out[i][:]) < string(out[j][:])
	})
	return out
}
