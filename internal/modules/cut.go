package modules

import (
	"fmt"

	"diamondlottery/internal/models"
	"diamondlottery/internal/router"
	"diamondlottery/internal/services"

	"github.com/ethereum/go-ethereum/common"
)

// CutModule exposes the selector table through the router itself: the
// operator-only cut function and the read-only loupe.
type CutModule struct{}

func (CutModule) Name() string { return "router-cut/v1" }

func (CutModule) Functions() []router.Function {
	return []router.Function{
		router.Func(SigDiamondCut, diamondCut),
		router.Func(SigFacets, func(env *router.Env, _ *NoArgs) (any, error) {
			return env.Modules(), nil
		}),
		router.Func(SigFacetAddresses, func(env *router.Env, _ *NoArgs) (any, error) {
			mods := env.Modules()
			out := make([]common.Address, 0, len(mods))
			for _, m := range mods {
				out = append(out, m.Address)
			}
			return out, nil
		}),
		router.Func(SigFacetAddress, func(env *router.Env, args *SelectorArgs) (any, error) {
			return env.Storage().Selectors[args.Selector], nil
		}),
		router.Func(SigFacetFunctionSelectors, func(env *router.Env, args *AddressArgs) (any, error) {
			for _, m := range env.Modules() {
				if m.Address == args.Address {
					return m.Selectors, nil
				}
			}
			return []models.Selector{}, nil
		}),
	}
}

func diamondCut(env *router.Env, args *CutArgs) (any, error) {
	if env.Sender() != env.Storage().Owner {
		return nil, fmt.Errorf("%w: %s", services.ErrNotOwner, env.Sender())
	}
	if err := env.Cut(args.Cuts); err != nil {
		return nil, err
	}
	env.Emit(models.Event{Kind: models.EventModulesCut, Account: env.Sender(), Quantity: uint64(len(args.Cuts))})
	return nil, nil
}
