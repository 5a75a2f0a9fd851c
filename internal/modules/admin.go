package modules

import (
	"diamondlottery/internal/models"
	"diamondlottery/internal/router"
	"diamondlottery/internal/services"
)

// AdminModule carries the operator functions: round creation, payment-asset
// configuration, ownership and proceeds.
type AdminModule struct{}

func (AdminModule) Name() string { return "lottery-admin/v1" }

func (AdminModule) Functions() []router.Function {
	return []router.Function{
		router.Func(SigOwner, func(env *router.Env, _ *NoArgs) (any, error) {
			return service(env).Owner(), nil
		}),
		router.Func(SigTransferOwnership, func(env *router.Env, args *AddressArgs) (any, error) {
			return nil, service(env).TransferOwnership(args.Address)
		}),
		router.Func(SigSetPaymentToken, func(env *router.Env, args *AddressArgs) (any, error) {
			return nil, service(env).SetPaymentToken(args.Address)
		}),
		router.Func(SigCreateLottery, func(env *router.Env, args *models.RoundConfig) (any, error) {
			return service(env).CreateRound(*args)
		}),
		router.Func(SigWithdrawTicketProceeds, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).WithdrawProceeds(args.Round)
		}),
		router.Func(SigFinalizeLottery, func(env *router.Env, args *RoundArgs) (any, error) {
			return service(env).FinalizeRound(args.Round)
		}),
	}
}

func service(env *router.Env) *services.LotteryService {
	return services.NewLotteryService(env.Storage(), env)
}
