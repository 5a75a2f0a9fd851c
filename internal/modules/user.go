package modules

import (
	"fmt"

	"diamondlottery/internal/router"
)

// UserModule carries the buyer-facing functions and the read queries.
type UserModule struct{}

func (UserModule) Name() string { return "lottery-user/v1" }

func (UserModule) Functions() []router.Function {
	return []router.Function{
		router.Func(SigBuyTicketTx, func(env *router.Env, args *BuyArgs) (any, error) {
			return service(env).BuyTickets(args.Round, args.Quantity, args.Commitment)
		}),
		router.Func(SigRevealRndNumberTx, func(env *router.Env, args *RevealArgs) (any, error) {
			if args.Secret == nil {
				return nil, fmt.Errorf("%w: missing secret", router.ErrBadArguments)
			}
			return service(env).Reveal(args.Round, args.Start, args.Quantity, args.Secret)
		}),
		router.Func(SigWithdrawTicketRefund, func(env *router.Env, args *BatchArgs) (any, error) {
			return service(env).WithdrawRefund(args.Round, args.Start)
		}),

		router.Func(SigGetNumPurchaseTxs, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).PurchaseCount(args.Round)
		}),
		router.Func(SigGetIthPurchasedTicketTx, func(env *router.Env, args *IndexArgs) (any, error) {
			return service(env).IthPurchase(args.Round, args.Index)
		}),
		router.Func(SigGetTicketInfo, func(env *router.Env, args *TicketArgs) (any, error) {
			return service(env).Ticket(args.Round, args.Ticket)
		}),
		router.Func(SigGetLotterySales, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).TicketsSold(args.Round)
		}),

		router.Func(SigGetIthWinningTicket, func(env *router.Env, args *IndexArgs) (any, error) {
			return service(env).IthWinningTicket(args.Round, args.Index)
		}),
		router.Func(SigGetWinningTickets, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).WinningTickets(args.Round)
		}),
		router.Func(SigCheckIfMyTicketWon, func(env *router.Env, args *TicketArgs) (any, error) {
			return service(env).CheckIfAddrTicketWon(env.Sender(), args.Round, args.Ticket)
		}),
		router.Func(SigCheckIfAddrTicketWon, func(env *router.Env, args *AccountTicketArgs) (any, error) {
			return service(env).CheckIfAddrTicketWon(args.Account, args.Round, args.Ticket)
		}),

		router.Func(SigGetCurrentLotteryNo, func(env *router.Env, _ *NoArgs) (any, error) {
			return service(env).CurrentRoundNo(), nil
		}),
		router.Func(SigGetLotteryCount, func(env *router.Env, _ *NoArgs) (any, error) {
			return service(env).RoundCount(), nil
		}),
		router.Func(SigGetLotteryInfo, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).RoundInfo(args.Round)
		}),
		router.Func(SigGetLotteryURL, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).RoundURL(args.Round)
		}),
		router.Func(SigGetPaymentToken, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).RoundPaymentToken(args.Round)
		}),
		router.Func(SigGetRevealTime, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).RevealTime(args.Round)
		}),
		router.Func(SigGetUnresolvedLotteries, func(env *router.Env, _ *NoArgs) (any, error) {
			return service(env).UnresolvedRounds(), nil
		}),
	}
}
