// Package modules holds the lottery's routed modules. Each module is
// stateless code: its handlers build a LotteryService over the storage of
// the call they serve and return plain values.
package modules

import (
	"diamondlottery/internal/models"
	"diamondlottery/internal/router"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Canonical signatures of the routed functions.
const (
	SigDiamondCut              = "diamondCut((address,uint8,bytes4[])[])"
	SigFacets                  = "facets()"
	SigFacetAddresses          = "facetAddresses()"
	SigFacetAddress            = "facetAddress(bytes4)"
	SigFacetFunctionSelectors  = "facetFunctionSelectors(address)"
	SigOwner                   = "owner()"
	SigTransferOwnership       = "transferOwnership(address)"
	SigSetPaymentToken         = "setPaymentToken(address)"
	SigCreateLottery           = "createLottery(uint256,uint256,uint256,uint256,uint256,bytes32,string)"
	SigWithdrawTicketProceeds  = "withdrawTicketProceeds(uint256)"
	SigFinalizeLottery         = "finalizeLottery(uint256)"
	SigBuyTicketTx             = "buyTicketTx(uint256,uint256,bytes32)"
	SigRevealRndNumberTx       = "revealRndNumberTx(uint256,uint256,uint256,uint256)"
	SigGetNumPurchaseTxs       = "getNumPurchaseTxs(uint256)"
	SigGetIthPurchasedTicketTx = "getIthPurchasedTicketTx(uint256,uint256)"
	SigGetTicketInfo           = "getTicketInfo(uint256,uint256)"
	SigGetIthWinningTicket     = "getIthWinningTicket(uint256,uint256)"
	SigGetWinningTickets       = "getWinningTickets(uint256)"
	SigCheckIfMyTicketWon      = "checkIfMyTicketWon(uint256,uint256)"
	SigCheckIfAddrTicketWon    = "checkIfAddrTicketWon(address,uint256,uint256)"
	SigWithdrawTicketRefund    = "withdrawTicketRefund(uint256,uint256)"
	SigGetCurrentLotteryNo     = "getCurrentLotteryNo()"
	SigGetLotteryCount         = "getLotteryCount()"
	SigGetLotteryInfo          = "getLotteryInfo(uint256)"
	SigGetLotteryURL           = "getLotteryURL(uint256)"
	SigGetLotterySales         = "getLotterySales(uint256)"
	SigGetPaymentToken         = "getPaymentToken(uint256)"
	SigGetRevealTime           = "getRevealTime(uint256)"
	SigGetUnresolvedLotteries  = "getUnresolvedLotteries()"
)

// NoArgs is the argument value of functions that take none.
type NoArgs struct{}

type RoundArgs struct {
	Round uint64 `json:"round"`
}

type BuyArgs struct {
	Round      uint64      `json:"round"`
	Quantity   uint64      `json:"quantity"`
	Commitment common.Hash `json:"commitment"`
}

type RevealArgs struct {
	Round    uint64       `json:"round"`
	Start    uint64       `json:"start"`
	Quantity uint64       `json:"quantity"`
	Secret   *uint256.Int `json:"secret"`
}

// IndexArgs addresses the 1-indexed i-th entry of a round's list.
type IndexArgs struct {
	Round uint64 `json:"round"`
	Index uint64 `json:"index"`
}

type TicketArgs struct {
	Round  uint64 `json:"round"`
	Ticket uint64 `json:"ticket"`
}

type AccountTicketArgs struct {
	Account common.Address `json:"account"`
	Round   uint64         `json:"round"`
	Ticket  uint64         `json:"ticket"`
}

type BatchArgs struct {
	Round uint64 `json:"round"`
	Start uint64 `json:"start"`
}

type AddressArgs struct {
	Address common.Address `json:"address"`
}

type SelectorArgs struct {
	Selector models.Selector `json:"selector"`
}

type CutArgs struct {
	Cuts []router.Cut `json:"cuts"`
}

// Selectors lists the selectors of every function m exposes.
func Selectors(m router.Module) []models.Selector {
	fns := m.Functions()
	out := make([]models.Selector, 0, len(fns))
	for _, fn := range fns {
		out = append(out, fn.Selector())
	}
	return out
}
