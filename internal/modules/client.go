package modules

import (
	"errors"
	"fmt"
	"time"

	"diamondlottery/internal/models"
	"diamondlottery/internal/router"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// ErrUnexpectedResult is returned when a routed function answers with a
// type the client does not expect, as after an incompatible upgrade.
var ErrUnexpectedResult = errors.New("unexpected result type")

// Client makes typed routed calls on behalf of one sender.
type Client struct {
	r      *router.Router
	sender common.Address
}

func NewClient(r *router.Router, sender common.Address) *Client {
	return &Client{r: r, sender: sender}
}

// As returns a client for another sender on the same router.
func (c *Client) As(sender common.Address) *Client {
	return &Client{r: c.r, sender: sender}
}

func (c *Client) Sender() common.Address { return c.sender }

// Call dispatches signature with args as the client's sender.
func (c *Client) Call(signature string, args any) (any, error) {
	return c.r.Dispatch(router.Call{
		Sender:   c.sender,
		Selector: models.SelectorOf(signature),
		Args:     args,
	})
}

func result[T any](out any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrUnexpectedResult, out, zero)
	}
	return v, nil
}

func (c *Client) Owner() (common.Address, error) {
	return result[common.Address](c.Call(SigOwner, &NoArgs{}))
}

func (c *Client) TransferOwnership(to common.Address) error {
	_, err := c.Call(SigTransferOwnership, &AddressArgs{Address: to})
	return err
}

func (c *Client) SetPaymentToken(asset common.Address) error {
	_, err := c.Call(SigSetPaymentToken, &AddressArgs{Address: asset})
	return err
}

func (c *Client) CreateLottery(cfg models.RoundConfig) (uint64, error) {
	return result[uint64](c.Call(SigCreateLottery, &cfg))
}

func (c *Client) BuyTickets(round, quantity uint64, commitment common.Hash) (uint64, error) {
	return result[uint64](c.Call(SigBuyTicketTx, &BuyArgs{Round: round, Quantity: quantity, Commitment: commitment}))
}

func (c *Client) Reveal(round, start, quantity uint64, secret *uint256.Int) (bool, error) {
	return result[bool](c.Call(SigRevealRndNumberTx, &RevealArgs{Round: round, Start: start, Quantity: quantity, Secret: secret}))
}

func (c *Client) PurchaseCount(round uint64) (uint64, error) {
	return result[uint64](c.Call(SigGetNumPurchaseTxs, &RoundArgs{Round: round}))
}

func (c *Client) IthPurchase(round, i uint64) (models.BatchSlot, error) {
	return result[models.BatchSlot](c.Call(SigGetIthPurchasedTicketTx, &IndexArgs{Round: round, Index: i}))
}

func (c *Client) TicketInfo(round, ticket uint64) (models.TicketInfo, error) {
	return result[models.TicketInfo](c.Call(SigGetTicketInfo, &TicketArgs{Round: round, Ticket: ticket}))
}

func (c *Client) TicketsSold(round uint64) (uint64, error) {
	return result[uint64](c.Call(SigGetLotterySales, &RoundArgs{Round: round}))
}

func (c *Client) IthWinningTicket(round, i uint64) (uint64, error) {
	return result[uint64](c.Call(SigGetIthWinningTicket, &IndexArgs{Round: round, Index: i}))
}

func (c *Client) WinningTickets(round uint64) ([]uint64, error) {
	return result[[]uint64](c.Call(SigGetWinningTickets, &RoundArgs{Round: round}))
}

func (c *Client) CheckIfMyTicketWon(round, ticket uint64) (bool, error) {
	return result[bool](c.Call(SigCheckIfMyTicketWon, &TicketArgs{Round: round, Ticket: ticket}))
}

func (c *Client) WithdrawRefund(round, start uint64) (*uint256.Int, error) {
	return result[*uint256.Int](c.Call(SigWithdrawTicketRefund, &BatchArgs{Round: round, Start: start}))
}

func (c *Client) WithdrawProceeds(round uint64) (*uint256.Int, error) {
	return result[*uint256.Int](c.Call(SigWithdrawTicketProceeds, &RoundArgs{Round: round}))
}

func (c *Client) FinalizeLottery(round uint64) (models.Outcome, error) {
	return result[models.Outcome](c.Call(SigFinalizeLottery, &RoundArgs{Round: round}))
}

func (c *Client) CurrentLotteryNo() (uint64, error) {
	return result[uint64](c.Call(SigGetCurrentLotteryNo, &NoArgs{}))
}

func (c *Client) LotteryInfo(round uint64) (*models.RoundInfo, error) {
	return result[*models.RoundInfo](c.Call(SigGetLotteryInfo, &RoundArgs{Round: round}))
}

func (c *Client) RevealTime(round uint64) (time.Time, error) {
	return result[time.Time](c.Call(SigGetRevealTime, &RoundArgs{Round: round}))
}

func (c *Client) UnresolvedLotteries() ([]uint64, error) {
	return result[[]uint64](c.Call(SigGetUnresolvedLotteries, &NoArgs{}))
}

func (c *Client) Cut(cuts ...router.Cut) error {
	_, err := c.Call(SigDiamondCut, &CutArgs{Cuts: cuts})
	return err
}

func (c *Client) FacetAddress(sel models.Selector) (common.Address, error) {
	return result[common.Address](c.Call(SigFacetAddress, &SelectorArgs{Selector: sel}))
}
