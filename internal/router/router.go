// Package router routes calls by function selector to stateless modules that
// all run against one shared storage region, so modules can be added,
// replaced or removed without migrating state.
package router

import (
	"bytes"
	"fmt"
	"sort"
	"sync"
	"time"

	"diamondlottery/internal/models"
	"diamondlottery/internal/store"
	"diamondlottery/internal/token"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/logger"
)

// CutAction is the kind of change a Cut makes to the selector table.
type CutAction uint8

const (
	Add CutAction = iota
	Replace
	Remove
)

func (a CutAction) String() string {
	switch a {
	case Add:
		return "add"
	case Replace:
		return "replace"
	case Remove:
		return "remove"
	default:
		return fmt.Sprintf("action(%d)", uint8(a))
	}
}

// Cut maps (or unmaps) a set of selectors to a module address. The module
// address is ignored for Remove.
type Cut struct {
	Module    common.Address    `json:"module"`
	Action    CutAction         `json:"action"`
	Selectors []models.Selector `json:"selectors"`
}

// ModuleInfo describes one mapped module.
type ModuleInfo struct {
	Address   common.Address    `json:"address"`
	Name      string            `json:"name"`
	Selectors []models.Selector `json:"selectors"`
	Functions []string          `json:"functions"`
}

// Call is one inbound request.
type Call struct {
	Sender   common.Address
	Selector models.Selector
	Args     any
}

// Clock supplies the trusted time reading taken at the start of each call.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// Publisher receives the events of committed calls.
type Publisher interface {
	Publish(ev models.Event)
}

type deployed struct {
	module Module
	fns    map[models.Selector]Function
}

// Options configures a Router. Zero values fall back to the system clock,
// no persistence and no event publishing.
type Options struct {
	Address   common.Address
	Clock     Clock
	Tokens    token.Resolver
	Persister store.Persister
	Publisher Publisher
}

// Router serializes every call: each one runs on a clone of the committed
// storage and replaces it only when the handler and the durable save both
// succeed, so a failed call leaves no trace.
type Router struct {
	mu        sync.Mutex
	self      common.Address
	clock     Clock
	tokens    token.Resolver
	persister store.Persister
	publisher Publisher
	code      map[common.Address]*deployed
	storage   *store.Storage
}

// New creates a router over st.
func New(st *store.Storage, opts Options) *Router {
	r := &Router{
		self:      opts.Address,
		clock:     opts.Clock,
		tokens:    opts.Tokens,
		persister: opts.Persister,
		publisher: opts.Publisher,
		code:      make(map[common.Address]*deployed),
		storage:   st,
	}
	if r.clock == nil {
		r.clock = SystemClock{}
	}
	if r.persister == nil {
		r.persister = store.Nop{}
	}
	return r
}

// Address is the single external address of the router; it also holds
// custody of the payment asset.
func (r *Router) Address() common.Address {
	return r.self
}

// Deploy installs module code and returns its address. Deploying does not
// route anything to it; use Register or the cut function for that.
func (r *Router) Deploy(m Module) common.Address {
	addr := ModuleAddress(m.Name())
	d := &deployed{module: m, fns: make(map[models.Selector]Function)}
	for _, fn := range m.Functions() {
		d.fns[fn.Selector()] = fn
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.code[addr] = d
	logger.Infof("Deployed module %s at %s with %d functions", m.Name(), addr, len(d.fns))
	return addr
}

// Register applies cuts outside of any routed call, as done once at
// deployment.
func (r *Router) Register(cuts ...Cut) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	work := r.storage.Clone()
	if err := r.applyCuts(work, cuts); err != nil {
		return err
	}
	if err := r.persister.Save(work); err != nil {
		return fmt.Errorf("persist storage: %w", err)
	}
	r.storage = work
	return nil
}

// Dispatch routes a call to the module mapped for its selector.
func (r *Router) Dispatch(call Call) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fn, addr, err := r.lookup(r.storage, call.Selector)
	if err != nil {
		return nil, err
	}

	env := &Env{
		sender:  call.Sender,
		self:    r.self,
		now:     r.clock.Now(),
		storage: r.storage.Clone(),
		tokens:  r.tokens,
		router:  r,
	}
	out, err := fn.Handler(env, call.Args)
	if err != nil {
		logger.Infof("Call %s on %s from %s rejected: %v", fn.Signature, addr, call.Sender, err)
		return nil, err
	}
	if !env.dirty {
		return out, nil
	}
	if err := r.persister.Save(env.storage); err != nil {
		logger.Errorf("Call %s committed nothing, storage save failed: %v", fn.Signature, err)
		return nil, fmt.Errorf("persist storage: %w", err)
	}
	r.storage = env.storage

	if r.publisher != nil {
		for _, ev := range env.events {
			r.publisher.Publish(ev)
		}
	}
	return out, nil
}

// Lookup returns the function currently routed for sel.
func (r *Router) Lookup(sel models.Selector) (Function, common.Address, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lookup(r.storage, sel)
}

// Modules lists every mapped module with its selectors.
func (r *Router) Modules() []ModuleInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.modules(r.storage)
}

// ModuleOf returns the module address serving sel.
func (r *Router) ModuleOf(sel models.Selector) (common.Address, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	addr, ok := r.storage.Selectors[sel]
	return addr, ok
}

// HasSelectors reports whether any function is routed at all.
func (r *Router) HasSelectors() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.storage.Selectors) > 0
}

func (r *Router) lookup(st *store.Storage, sel models.Selector) (Function, common.Address, error) {
	addr, ok := st.Selectors[sel]
	if !ok {
		return Function{}, common.Address{}, fmt.Errorf("%w: %s", ErrUnknownSelector, sel)
	}
	d, ok := r.code[addr]
	if !ok {
		return Function{}, addr, fmt.Errorf("%w: %s", ErrUnknownModule, addr)
	}
	fn, ok := d.fns[sel]
	if !ok {
		return Function{}, addr, fmt.Errorf("%w: %s not implemented by %s", ErrUnknownSelector, sel, addr)
	}
	return fn, addr, nil
}

// applyCuts validates all cuts against a scratch table and installs it only
// if every cut is valid. Callers hold r.mu.
func (r *Router) applyCuts(st *store.Storage, cuts []Cut) error {
	next := make(map[models.Selector]common.Address, len(st.Selectors))
	for sel, addr := range st.Selectors {
		next[sel] = addr
	}

	for _, c := range cuts {
		if len(c.Selectors) == 0 {
			return fmt.Errorf("%w: no selectors for %s", ErrInvalidCut, c.Action)
		}
		var d *deployed
		if c.Action != Remove {
			if d = r.code[c.Module]; d == nil {
				return fmt.Errorf("%w: %s", ErrUnknownModule, c.Module)
			}
		}
		for _, sel := range c.Selectors {
			cur, mapped := next[sel]
			switch c.Action {
			case Add:
				if mapped {
					return fmt.Errorf("%w: %s served by %s", ErrSelectorExists, sel, cur)
				}
			case Replace:
				if !mapped {
					return fmt.Errorf("%w: %s", ErrUnknownSelector, sel)
				}
				if cur == c.Module {
					return fmt.Errorf("%w: %s already served by %s", ErrInvalidCut, sel, cur)
				}
			case Remove:
				if !mapped {
					return fmt.Errorf("%w: %s", ErrUnknownSelector, sel)
				}
				delete(next, sel)
				continue
			default:
				return fmt.Errorf("%w: %s", ErrInvalidCut, c.Action)
			}
			if _, ok := d.fns[sel]; !ok {
				return fmt.Errorf("%w: %s does not implement %s", ErrInvalidCut, c.Module, sel)
			}
			next[sel] = c.Module
		}
	}

	st.Selectors = next
	for _, c := range cuts {
		logger.Infof("Cut %s of %d selectors for %s", c.Action, len(c.Selectors), c.Module)
	}
	return nil
}

func (r *Router) modules(st *store.Storage) []ModuleInfo {
	byAddr := make(map[common.Address]*ModuleInfo)
	for _, sel := range st.SortedSelectors() {
		addr := st.Selectors[sel]
		info, ok := byAddr[addr]
		if !ok {
			info = &ModuleInfo{Address: addr}
			if d, ok := r.code[addr]; ok {
				info.Name = d.module.Name()
			}
			byAddr[addr] = info
		}
		info.Selectors = append(info.Selectors, sel)
		if d, ok := r.code[addr]; ok {
			info.Functions = append(info.Functions, d.fns[sel].Signature)
		}
	}

	out := make([]ModuleInfo, 0, len(byAddr))
	for _, info := range byAddr {
		out = append(out, *info)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	return out
}
