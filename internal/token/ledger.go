// Package token provides the payment-asset boundary of the lottery and an
// in-memory fungible token that satisfies it.
package token

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrUnknownAsset          = errors.New("unknown payment asset")
)

// Asset is the subset of a fungible token the lottery consumes.
type Asset interface {
	TransferFrom(spender, from, to common.Address, amount *uint256.Int) error
	Transfer(from, to common.Address, amount *uint256.Int) error
	BalanceOf(owner common.Address) *uint256.Int
}

// Resolver looks up a payment asset by its address.
type Resolver interface {
	Asset(addr common.Address) (Asset, error)
}

// Ledger is an in-memory token with balances and allowances.
type Ledger struct {
	mu         sync.RWMutex
	symbol     string
	address    common.Address
	supply     *uint256.Int
	balances   map[common.Address]*uint256.Int
	allowances map[common.Address]map[common.Address]*uint256.Int
}

// NewLedger creates an empty token. Its address is derived from the symbol.
func NewLedger(symbol string) *Ledger {
	return &Ledger{
		symbol:     symbol,
		address:    common.BytesToAddress(crypto.Keccak256([]byte("token:" + symbol))),
		supply:     new(uint256.Int),
		balances:   make(map[common.Address]*uint256.Int),
		allowances: make(map[common.Address]map[common.Address]*uint256.Int),
	}
}

func (l *Ledger) Symbol() string          { return l.symbol }
func (l *Ledger) Address() common.Address { return l.address }

// TotalSupply returns the amount minted so far.
func (l *Ledger) TotalSupply() *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(uint256.Int).Set(l.supply)
}

// Mint credits amount to the account out of thin air (faucet).
func (l *Ledger) Mint(to common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.supply.Add(l.supply, amount)
	l.credit(to, amount)
}

// BalanceOf returns a copy of the account balance.
func (l *Ledger) BalanceOf(owner common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if b, ok := l.balances[owner]; ok {
		return new(uint256.Int).Set(b)
	}
	return new(uint256.Int)
}

// Approve sets the amount spender may move out of owner's balance.
func (l *Ledger) Approve(owner, spender common.Address, amount *uint256.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.allowances[owner] == nil {
		l.allowances[owner] = make(map[common.Address]*uint256.Int)
	}
	l.allowances[owner][spender] = new(uint256.Int).Set(amount)
}

// Allowance returns what spender may still move out of owner's balance.
func (l *Ledger) Allowance(owner, spender common.Address) *uint256.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if a, ok := l.allowances[owner][spender]; ok {
		return new(uint256.Int).Set(a)
	}
	return new(uint256.Int)
}

// Transfer moves amount from one account to another.
func (l *Ledger) Transfer(from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(from, amount); err != nil {
		return err
	}
	l.credit(to, amount)
	return nil
}

// TransferFrom moves amount out of from's balance on behalf of spender,
// consuming allowance.
func (l *Ledger) TransferFrom(spender, from, to common.Address, amount *uint256.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	allowed, ok := l.allowances[from][spender]
	if !ok || allowed.Lt(amount) {
		return fmt.Errorf("%w: %s may not move %s from %s", ErrInsufficientAllowance, spender, amount.Dec(), from)
	}
	if err := l.debit(from, amount); err != nil {
		return err
	}
	allowed.Sub(allowed, amount)
	l.credit(to, amount)
	return nil
}

func (l *Ledger) debit(from common.Address, amount *uint256.Int) error {
	b, ok := l.balances[from]
	if !ok || b.Lt(amount) {
		return fmt.Errorf("%w: %s holds less than %s %s", ErrInsufficientBalance, from, amount.Dec(), l.symbol)
	}
	b.Sub(b, amount)
	return nil
}

func (l *Ledger) credit(to common.Address, amount *uint256.Int) {
	b, ok := l.balances[to]
	if !ok {
		b = new(uint256.Int)
		l.balances[to] = b
	}
	b.Add(b, amount)
}

// Registry resolves payment assets by address.
type Registry struct {
	mu     sync.RWMutex
	assets map[common.Address]Asset
}

// NewRegistry creates a registry holding the given ledgers.
func NewRegistry(ledgers ...*Ledger) *Registry {
	r := &Registry{assets: make(map[common.Address]Asset)}
	for _, l := range ledgers {
		r.Add(l.Address(), l)
	}
	return r
}

// Add makes asset resolvable at addr, replacing any previous entry.
func (r *Registry) Add(addr common.Address, asset Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.assets[addr] = asset
}

// Asset implements Resolver.
func (r *Registry) Asset(addr common.Address) (Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.assets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, addr)
	}
	return a, nil
}
