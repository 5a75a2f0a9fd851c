package services

import (
	"math/big"
	"testing"
	"time"

	"diamondlottery/internal/models"
	"diamondlottery/internal/store"
	"diamondlottery/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	sender common.Address
	now    time.Time
	self   common.Address
	tokens *token.Registry
	events []models.Event
}

func (e *testEnv) Sender() common.Address { return e.sender }
func (e *testEnv) Now() time.Time         { return e.now }
func (e *testEnv) Self() common.Address   { return e.self }
func (e *testEnv) Emit(ev models.Event)   { e.events = append(e.events, ev) }
func (e *testEnv) Asset(addr common.Address) (token.Asset, error) {
	return e.tokens.Asset(addr)
}

type harness struct {
	t      *testing.T
	st     *store.Storage
	env    *testEnv
	ledger *token.Ledger
	owner  common.Address
	start  time.Time
}

var testOwner = common.HexToAddress("0x00000000000000000000000000000000000000aa")

func buyer(i int) common.Address {
	return common.BigToAddress(big.NewInt(int64(0x1000 + i)))
}

func secretFor(i int) *uint256.Int {
	return new(uint256.Int).SetBytes(crypto.Keccak256([]byte{byte(i), 0x5e}))
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ledger := token.NewLedger("LT")
	start := time.Unix(1_700_000_000, 0).UTC()
	h := &harness{
		t:      t,
		st:     store.New(testOwner, time.Hour),
		ledger: ledger,
		owner:  testOwner,
		start:  start,
		env: &testEnv{
			now:    start,
			self:   common.HexToAddress("0x00000000000000000000000000000000000d1a00"),
			tokens: token.NewRegistry(ledger),
		},
	}
	require.NoError(t, h.as(testOwner).SetPaymentToken(ledger.Address()))
	return h
}

func (h *harness) as(addr common.Address) *LotteryService {
	h.env.sender = addr
	return NewLotteryService(h.st, h.env)
}

func (h *harness) at(d time.Duration) {
	h.env.now = h.start.Add(d)
}

func (h *harness) fund(addr common.Address, amount uint64) {
	h.ledger.Mint(addr, uint256.NewInt(amount))
	h.ledger.Approve(addr, h.env.self, uint256.NewInt(amount))
}

// createRound opens a round ending 30 minutes after the harness start; its
// reveal window is [30m, 90m).
func (h *harness) createRound(offered, winners, minPct, price uint64) uint64 {
	h.t.Helper()
	no, err := h.as(h.owner).CreateRound(models.RoundConfig{
		EndTime:         h.start.Add(30 * time.Minute),
		TicketsOffered:  offered,
		NumberOfWinners: winners,
		MinPercentage:   minPct,
		TicketPrice:     uint256.NewInt(price),
		ContentHash:     crypto.Keccak256Hash([]byte("Mock HTML contents")),
		URL:             "www.mock-url.com",
	})
	require.NoError(h.t, err)
	return no
}

// buy funds buyer i and buys quantity tickets committed to secretFor(i).
func (h *harness) buy(no uint64, i int, quantity uint64) uint64 {
	h.t.Helper()
	addr := buyer(i)
	price := h.st.Rounds[no].TicketPrice.Uint64()
	h.fund(addr, price*quantity)
	start, err := h.as(addr).BuyTickets(no, quantity, Commitment(secretFor(i), addr))
	require.NoError(h.t, err)
	return start
}

func (h *harness) reveal(no uint64, i int, start, quantity uint64) bool {
	h.t.Helper()
	valid, err := h.as(buyer(i)).Reveal(no, start, quantity, secretFor(i))
	require.NoError(h.t, err)
	return valid
}

func (h *harness) custody() uint64 {
	return h.ledger.BalanceOf(h.env.self).Uint64()
}
