package handlers

import (
	"encoding/csv"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"diamondlottery/internal/events"
	"diamondlottery/internal/models"
	"diamondlottery/internal/modules"
	"diamondlottery/internal/router"
	"diamondlottery/internal/services"
	"diamondlottery/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/holiman/uint256"
)

const senderKey = "sender"

// HTTPHandler holds the dependencies for the HTTP handlers: the router every
// lottery call goes through, the payment token and the event history.
type HTTPHandler struct {
	router   *router.Router
	ledger   *token.Ledger
	recorder *events.Recorder
	faucet   *uint256.Int
}

// NewHTTPHandler creates a new HTTPHandler.
func NewHTTPHandler(r *router.Router, ledger *token.Ledger, recorder *events.Recorder, faucet *uint256.Int) *HTTPHandler {
	return &HTTPHandler{
		router:   r,
		ledger:   ledger,
		recorder: recorder,
		faucet:   faucet,
	}
}

// RegisterPublicRoutes registers the routes that do not act for a sender.
func (h *HTTPHandler) RegisterPublicRoutes(r *gin.Engine) {
	r.GET("/modules", h.ListModules)
	r.GET("/events", h.ListEvents)
	r.GET("/token", h.TokenInfo)
	r.GET("/token/balance/:address", h.TokenBalance)
	r.GET("/rounds/:no/winners.csv", h.ExportWinnersCSV)
}

// RegisterSenderRoutes registers the routes that run as the request's sender.
func (h *HTTPHandler) RegisterSenderRoutes(g *gin.RouterGroup) {
	g.POST("/call/:fn", h.Call)
	g.POST("/token/faucet", h.Faucet)
	g.POST("/token/approve", h.Approve)
}

// SenderMiddleware reads the calling account from the X-Sender header. A
// request without one calls as the zero address, which only reads succeed
// for.
func (h *HTTPHandler) SenderMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Sender")
		sender := common.Address{}
		if raw != "" {
			if !common.IsHexAddress(raw) {
				c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "X-Sender is not an address"})
				return
			}
			sender = common.HexToAddress(raw)
		}
		c.Set(senderKey, sender)
		c.Next()
	}
}

func senderOf(c *gin.Context) common.Address {
	if v, ok := c.Get(senderKey); ok {
		if addr, ok := v.(common.Address); ok {
			return addr
		}
	}
	return common.Address{}
}

// Call routes one function call. The path names the function either by its
// canonical signature or by its 0x-prefixed selector, and the JSON body is
// decoded into that function's arguments.
func (h *HTTPHandler) Call(c *gin.Context) {
	name := c.Param("fn")
	sel := models.SelectorOf(name)
	if strings.HasPrefix(name, "0x") {
		parsed, err := models.ParseSelector(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		sel = parsed
	}

	fn, _, err := h.router.Lookup(sel)
	if err != nil {
		h.fail(c, err)
		return
	}
	args := fn.NewArgs()
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(args); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid arguments: " + err.Error(), "kind": "BadArguments"})
			return
		}
	}

	out, err := h.router.Dispatch(router.Call{Sender: senderOf(c), Selector: sel, Args: args})
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"function": fn.Signature, "result": out})
}

// ListModules returns the loupe view of the selector table.
func (h *HTTPHandler) ListModules(c *gin.Context) {
	c.JSON(http.StatusOK, h.router.Modules())
}

// ListEvents returns the recorded events after the ?since= sequence number.
func (h *HTTPHandler) ListEvents(c *gin.Context) {
	since, err := strconv.ParseUint(c.DefaultQuery("since", "0"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid since"})
		return
	}
	c.JSON(http.StatusOK, h.recorder.Since(since))
}

func (h *HTTPHandler) TokenInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"symbol":      h.ledger.Symbol(),
		"address":     h.ledger.Address(),
		"totalSupply": h.ledger.TotalSupply(),
		"custody":     h.router.Address(),
	})
}

func (h *HTTPHandler) TokenBalance(c *gin.Context) {
	raw := c.Param("address")
	if !common.IsHexAddress(raw) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid address"})
		return
	}
	addr := common.HexToAddress(raw)
	c.JSON(http.StatusOK, gin.H{
		"address":   addr,
		"balance":   h.ledger.BalanceOf(addr),
		"allowance": h.ledger.Allowance(addr, h.router.Address()),
	})
}

// Faucet mints the configured amount of the payment token to the sender.
func (h *HTTPHandler) Faucet(c *gin.Context) {
	sender := senderOf(c)
	if sender == (common.Address{}) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Sender is required"})
		return
	}
	h.ledger.Mint(sender, h.faucet)
	logger.Infof("Faucet minted %s %s to %s", h.faucet.Dec(), h.ledger.Symbol(), sender)
	c.JSON(http.StatusOK, gin.H{"address": sender, "balance": h.ledger.BalanceOf(sender)})
}

type approveRequest struct {
	Amount *uint256.Int `json:"amount" binding:"required"`
}

// Approve lets the router pull up to amount of the sender's tokens.
func (h *HTTPHandler) Approve(c *gin.Context) {
	sender := senderOf(c)
	if sender == (common.Address{}) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "X-Sender is required"})
		return
	}
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid amount: " + err.Error()})
		return
	}
	h.ledger.Approve(sender, h.router.Address(), req.Amount)
	c.JSON(http.StatusOK, gin.H{"spender": h.router.Address(), "allowance": h.ledger.Allowance(sender, h.router.Address())})
}

// ExportWinnersCSV handles the request to download the winners of a round
// as a CSV file.
func (h *HTTPHandler) ExportWinnersCSV(c *gin.Context) {
	no, err := strconv.ParseUint(c.Param("no"), 10, 64)
	if err != nil {
		c.String(http.StatusBadRequest, "Invalid round number")
		return
	}
	client := modules.NewClient(h.router, common.Address{})
	winners, err := client.WinningTickets(no)
	if err != nil {
		h.fail(c, err)
		return
	}

	rows := make([][]string, 0, len(winners))
	for _, ticket := range winners {
		info, err := client.TicketInfo(no, ticket)
		if err != nil {
			h.fail(c, err)
			return
		}
		rows = append(rows, []string{
			strconv.FormatUint(no, 10),
			strconv.FormatUint(ticket, 10),
			info.Buyer.Hex(),
			strconv.FormatUint(info.BatchStart, 10),
		})
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment;filename=round_"+c.Param("no")+"_winners.csv")

	// BOM for Excel
	c.Writer.Write([]byte("\xef\xbb\xbf"))

	w := csv.NewWriter(c.Writer)
	if err := w.Write([]string{"round", "ticket", "buyer", "batch_start"}); err != nil {
		logger.Infof("Error writing CSV header: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
		return
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			logger.Infof("Error writing CSV row: %v", err)
			c.String(http.StatusInternalServerError, "Error writing CSV")
			return
		}
	}
	w.Flush()

	if err := w.Error(); err != nil {
		logger.Infof("Error flushing CSV writer: %v", err)
		c.String(http.StatusInternalServerError, "Error writing CSV")
	}
}

var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{router.ErrUnknownSelector, "UnknownSelector", http.StatusNotFound},
	{router.ErrSelectorExists, "SelectorExists", http.StatusConflict},
	{router.ErrUnknownModule, "UnknownModule", http.StatusBadRequest},
	{router.ErrInvalidCut, "InvalidCut", http.StatusBadRequest},
	{router.ErrBadArguments, "BadArguments", http.StatusBadRequest},
	{services.ErrNotOwner, "NotOwner", http.StatusForbidden},
	{services.ErrNotBuyer, "NotBuyer", http.StatusForbidden},
	{services.ErrInvalidConfig, "InvalidConfig", http.StatusBadRequest},
	{services.ErrNoSuchRound, "NoSuchRound", http.StatusNotFound},
	{services.ErrNoSuchTicket, "NoSuchTicket", http.StatusNotFound},
	{services.ErrNoSuchBatch, "NoSuchBatch", http.StatusNotFound},
	{services.ErrOutOfRange, "OutOfRange", http.StatusNotFound},
	{services.ErrNotSelling, "NotSelling", http.StatusConflict},
	{services.ErrSoldOut, "SoldOut", http.StatusConflict},
	{services.ErrNotInRevealWindow, "NotInRevealWindow", http.StatusConflict},
	{services.ErrAlreadyRevealed, "AlreadyRevealed", http.StatusConflict},
	{services.ErrRoundNotFinalized, "RoundNotFinalized", http.StatusConflict},
	{services.ErrAlreadySettled, "AlreadySettled", http.StatusConflict},
	{services.ErrAlreadyWithdrawn, "AlreadyWithdrawn", http.StatusConflict},
	{services.ErrPaymentFailed, "PaymentFailed", http.StatusPaymentRequired},
}

func (h *HTTPHandler) fail(c *gin.Context, err error) {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			c.JSON(k.status, gin.H{"error": err.Error(), "kind": k.kind})
			return
		}
	}
	logger.Errorf("Unclassified error on %s: %v", c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
