package router

import (
	"fmt"
	"time"

	"diamondlottery/internal/models"
	"diamondlottery/internal/store"
	"diamondlottery/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// HandlerFunc executes one routed function against the call environment.
type HandlerFunc func(env *Env, args any) (any, error)

// Function is one entry of a module's public surface.
type Function struct {
	Signature string
	// NewArgs allocates the argument value the handler expects, so callers
	// such as the HTTP layer can decode into it.
	NewArgs func() any
	Handler HandlerFunc
}

// Selector returns the routing key of the function.
func (f Function) Selector() models.Selector {
	return models.SelectorOf(f.Signature)
}

// Func builds a Function whose handler receives *T.
func Func[T any](signature string, h func(env *Env, args *T) (any, error)) Function {
	return Function{
		Signature: signature,
		NewArgs:   func() any { return new(T) },
		Handler: func(env *Env, args any) (any, error) {
			if args == nil {
				return h(env, new(T))
			}
			a, ok := args.(*T)
			if !ok {
				return nil, fmt.Errorf("%w: %s takes %T, got %T", ErrBadArguments, signature, new(T), args)
			}
			return h(env, a)
		},
	}
}

// Module is stateless code installed at an address. All durable data a
// module touches lives in the router's storage, reached through Env.
type Module interface {
	Name() string
	Functions() []Function
}

// ModuleAddress derives the address a module is installed at.
func ModuleAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("module:" + name)))
}

// Env is what a handler sees during one call: the caller, the clock reading
// taken at the start of the call, and a working copy of the storage that is
// committed only if the handler succeeds. A call that neither emits an event
// nor cuts is read-only: its working copy is dropped and nothing is saved.
type Env struct {
	sender  common.Address
	self    common.Address
	now     time.Time
	storage *store.Storage
	tokens  token.Resolver
	router  *Router
	events  []models.Event
	dirty   bool
}

func (e *Env) Sender() common.Address  { return e.sender }
func (e *Env) Self() common.Address    { return e.self }
func (e *Env) Now() time.Time          { return e.now }
func (e *Env) Storage() *store.Storage { return e.storage }

// Asset resolves a payment asset by address.
func (e *Env) Asset(addr common.Address) (token.Asset, error) {
	if e.tokens == nil {
		return nil, fmt.Errorf("%w: %s", token.ErrUnknownAsset, addr)
	}
	return e.tokens.Asset(addr)
}

// Emit queues an event; it is published only after the call commits.
func (e *Env) Emit(ev models.Event) {
	e.events = append(e.events, ev)
	e.dirty = true
}

// Cut applies selector mapping changes to the working storage. The new
// mappings take effect for calls after this one.
func (e *Env) Cut(cuts []Cut) error {
	if err := e.router.applyCuts(e.storage, cuts); err != nil {
		return err
	}
	e.dirty = true
	return nil
}

// Modules lists the modules mapped in the working storage.
func (e *Env) Modules() []ModuleInfo {
	return e.router.modules(e.storage)
}
