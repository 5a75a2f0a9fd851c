package handlers

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"diamondlottery/internal/events"
	"diamondlottery/internal/models"
	"diamondlottery/internal/modules"
	"diamondlottery/internal/router"
	"diamondlottery/internal/services"
	"diamondlottery/internal/store"
	"diamondlottery/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	operator = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	alice    = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

type server struct {
	t      *testing.T
	engine *gin.Engine
	clock  *manualClock
	ledger *token.Ledger
	router *router.Router
}

func newServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ledger := token.NewLedger("LT")
	bus := events.NewBus()
	rec := events.NewRecorder(64)
	require.NoError(t, bus.Subscribe(rec.Record))

	clock := &manualClock{now: time.Unix(1_700_000_000, 0).UTC()}
	r := router.New(store.New(operator, time.Hour), router.Options{
		Address:   common.HexToAddress("0xd1a00"),
		Clock:     clock,
		Tokens:    token.NewRegistry(ledger),
		Publisher: bus,
	})
	require.NoError(t, modules.Deploy(r, modules.Default()...))
	require.NoError(t, modules.NewClient(r, operator).SetPaymentToken(ledger.Address()))

	h := NewHTTPHandler(r, ledger, rec, uint256.NewInt(1000))
	engine := gin.New()
	h.RegisterPublicRoutes(engine)
	g := engine.Group("/")
	g.Use(h.SenderMiddleware())
	h.RegisterSenderRoutes(g)

	return &server{t: t, engine: engine, clock: clock, ledger: ledger, router: r}
}

func (s *server) do(method, path string, sender common.Address, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if sender != (common.Address{}) {
		req.Header.Set("X-Sender", sender.Hex())
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (s *server) createRound(end time.Time) {
	s.t.Helper()
	body := fmt.Sprintf(`{"endTime":%q,"ticketsOffered":10,"numberOfWinners":1,"minPercentage":0,"ticketPrice":"10","url":"www.mock-url.com"}`,
		end.Format(time.RFC3339))
	w := s.do(http.MethodPost, "/call/"+modules.SigCreateLottery, operator, body)
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())
}

func TestHTTPHandler_CallFlow(t *testing.T) {
	s := newServer(t)
	start := s.clock.now
	s.createRound(start.Add(30 * time.Minute))

	t.Run("Test non-operator create is forbidden", func(t *testing.T) {
		body := fmt.Sprintf(`{"endTime":%q,"ticketsOffered":10,"numberOfWinners":1,"ticketPrice":"10"}`,
			start.Add(time.Hour).Format(time.RFC3339))
		w := s.do(http.MethodPost, "/call/"+modules.SigCreateLottery, alice, body)
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "NotOwner", decode(t, w)["kind"])
	})

	t.Run("Test faucet approve and buy", func(t *testing.T) {
		w := s.do(http.MethodPost, "/token/faucet", alice, "")
		require.Equal(t, http.StatusOK, w.Code)
		w = s.do(http.MethodPost, "/token/approve", alice, `{"amount":"30"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		commitment := services.Commitment(uint256.NewInt(77), alice)
		w = s.do(http.MethodPost, "/call/"+modules.SigBuyTicketTx, alice,
			fmt.Sprintf(`{"round":1,"quantity":3,"commitment":%q}`, commitment.Hex()))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, float64(1), decode(t, w)["result"])

		w = s.do(http.MethodGet, "/token/balance/"+alice.Hex(), common.Address{}, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "970", decode(t, w)["balance"])
	})

	t.Run("Test call by selector", func(t *testing.T) {
		sel := models.SelectorOf(modules.SigGetLotterySales)
		w := s.do(http.MethodPost, "/call/"+sel.String(), common.Address{}, `{"round":1}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, float64(3), decode(t, w)["result"])
	})

	t.Run("Test reveal and winners export", func(t *testing.T) {
		s.clock.now = start.Add(45 * time.Minute)
		w := s.do(http.MethodPost, "/call/"+modules.SigRevealRndNumberTx, alice, `{"round":1,"start":1,"quantity":3,"secret":"77"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, true, decode(t, w)["result"])

		w = s.do(http.MethodGet, "/rounds/1/winners.csv", common.Address{}, "")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "RoundNotFinalized", decode(t, w)["kind"])

		s.clock.now = start.Add(90 * time.Minute)
		w = s.do(http.MethodGet, "/rounds/1/winners.csv", common.Address{}, "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))

		records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(w.Body.String(), "\xef\xbb\xbf"))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, []string{"round", "ticket", "buyer", "batch_start"}, records[0])
		assert.Equal(t, alice.Hex(), records[1][2])
		assert.Equal(t, "1", records[1][3])
	})

	t.Run("Test events are listed in order", func(t *testing.T) {
		w := s.do(http.MethodGet, "/events?since=0", common.Address{}, "")
		require.Equal(t, http.StatusOK, w.Code)
		var evs []models.Event
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &evs))
		require.NotEmpty(t, evs)
		kinds := make([]models.EventKind, 0, len(evs))
		for _, ev := range evs {
			kinds = append(kinds, ev.Kind)
		}
		assert.Equal(t, models.EventPaymentTokenSet, kinds[0])
		assert.Contains(t, kinds, models.EventBatchPurchased)
		assert.Contains(t, kinds, models.EventRevealOutcome)
		assert.Contains(t, kinds, models.EventRoundFinalized)
	})
}

func TestHTTPHandler_Errors(t *testing.T) {
	s := newServer(t)

	cases := []struct {
		name   string
		path   string
		sender common.Address
		body   string
		status int
	}{
		{"unknown function", "/call/noSuchThing()", alice, "", http.StatusNotFound},
		{"malformed selector", "/call/0x12", alice, "", http.StatusBadRequest},
		{"malformed body", "/call/" + modules.SigGetLotteryInfo, alice, `{"round":`, http.StatusBadRequest},
		{"unknown round", "/call/" + modules.SigGetLotteryInfo, alice, `{"round":9}`, http.StatusNotFound},
		{"reveal without secret", "/call/" + modules.SigRevealRndNumberTx, alice, `{"round":1,"start":1,"quantity":1}`, http.StatusBadRequest},
		{"faucet without sender", "/token/faucet", common.Address{}, "", http.StatusBadRequest},
	}
	for _, c := range cases {
		w := s.do(http.MethodPost, c.path, c.sender, c.body)
		assert.Equal(t, c.status, w.Code, "%s: %s", c.name, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/token/faucet", nil)
	req.Header.Set("X-Sender", "alice")
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHTTPHandler_Modules(t *testing.T) {
	s := newServer(t)
	w := s.do(http.MethodGet, "/modules", common.Address{}, "")
	require.Equal(t, http.StatusOK, w.Code)

	var mods []router.ModuleInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mods))
	require.Len(t, mods, len(modules.Default()))

	names := make([]string, 0, len(mods))
	for _, m := range mods {
		names = append(names, m.Name)
		assert.Equal(t, len(m.Selectors), len(m.Functions))
	}
	assert.ElementsMatch(t, []string{"router-cut/v1", "lottery-admin/v1", "lottery-user/v1"}, names)
}

// ticketInfoV2 answers getTicketInfo with a shape older clients cannot read.
type ticketInfoV2 struct{}

func (ticketInfoV2) Name() string { return "lottery-ticket-info/v2" }

func (ticketInfoV2) Functions() []router.Function {
	return []router.Function{
		router.Func(modules.SigGetTicketInfo, func(_ *router.Env, args *modules.TicketArgs) (any, error) {
			return fmt.Sprintf("ticket %d", args.Ticket), nil
		}),
	}
}

func TestHTTPHandler_WinnersExportAfterIncompatibleUpgrade(t *testing.T) {
	s := newServer(t)
	start := s.clock.now
	s.createRound(start.Add(30 * time.Minute))

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/token/faucet", alice, "").Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/token/approve", alice, `{"amount":"10"}`).Code)
	commitment := services.Commitment(uint256.NewInt(5), alice)
	w := s.do(http.MethodPost, "/call/"+modules.SigBuyTicketTx, alice,
		fmt.Sprintf(`{"round":1,"quantity":1,"commitment":%q}`, commitment.Hex()))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	s.clock.now = start.Add(45 * time.Minute)
	w = s.do(http.MethodPost, "/call/"+modules.SigRevealRndNumberTx, alice, `{"round":1,"start":1,"quantity":1,"secret":"5"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	s.clock.now = start.Add(90 * time.Minute)

	v2 := s.router.Deploy(ticketInfoV2{})
	require.NoError(t, modules.NewClient(s.router, operator).Cut(router.Cut{
		Module:    v2,
		Action:    router.Replace,
		Selectors: []models.Selector{models.SelectorOf(modules.SigGetTicketInfo)},
	}))

	require.NotPanics(t, func() {
		w = s.do(http.MethodGet, "/rounds/1/winners.csv", common.Address{}, "")
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decode(t, w)["error"], modules.ErrUnexpectedResult.Error())
}
