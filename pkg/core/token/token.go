// Package token implements a conserved fungible balance ledger with an
// allowance-based delegated transfer mechanism. The total supply is fixed at
// construction; every later balance change is a transfer, so the sum of all
// balances always equals the total supply.
package token

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunwoo-p/tokendex/pkg/core/events"
)

// Decimals is the fixed-point scaling exponent for all amounts.
const Decimals = 18

var (
	ErrInvalidRecipient      = errors.New("token: transfer to the zero address")
	ErrInvalidSpender        = errors.New("token: approve to the zero address")
	ErrInsufficientBalance   = errors.New("token: insufficient balance")
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	ErrInvalidAmount         = errors.New("token: negative or missing amount")
)

var unitScale = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Units scales a whole-token count to the fixed-point integer representation.
func Units(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), unitScale)
}

// Token is a single deployed token contract. Mutating operations take the
// caller identity explicitly; there is no ambient execution context.
type Token struct {
	address     common.Address
	name        string
	symbol      string
	totalSupply *big.Int

	mu         sync.RWMutex
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	log *events.Log
}

// New creates a token and seeds the entire supply (initialSupply scaled by
// 10^Decimals) to the deployer.
func New(address common.Address, name, symbol string, initialSupply int64, deployer common.Address, log *events.Log) *Token {
	supply := Units(initialSupply)
	t := &Token{
		address:     address,
		name:        name,
		symbol:      symbol,
		totalSupply: supply,
		balances:    make(map[common.Address]*big.Int),
		allowances:  make(map[common.Address]map[common.Address]*big.Int),
		log:         log,
	}
	t.balances[deployer] = new(big.Int).Set(supply)
	return t
}

func (t *Token) Address() common.Address { return t.address }
func (t *Token) Name() string            { return t.name }
func (t *Token) Symbol() string          { return t.symbol }
func (t *Token) Decimals() uint8         { return Decimals }

func (t *Token) TotalSupply() *big.Int {
	return new(big.Int).Set(t.totalSupply)
}

func (t *Token) BalanceOf(account common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return new(big.Int).Set(t.balance(account))
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if m, ok := t.allowances[owner]; ok {
		if a, ok := m[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// Transfer moves amount from the caller's balance to another account.
// Fails without state change on a zero recipient or a balance shortfall.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.balance(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	t.move(from, to, amount)
	t.emitTransfer(from, to, amount)
	return nil
}

// Approve overwrites the spender's remaining delegated-transfer capacity.
// The previous allowance is discarded, not added to.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if spender == (common.Address{}) {
		return ErrInvalidSpender
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	m[spender] = new(big.Int).Set(amount)

	t.log.Append(events.Event{Kind: events.KindApproval, Approval: &events.Approval{
		Token:   t.address,
		Owner:   owner,
		Spender: spender,
		Value:   new(big.Int).Set(amount),
	}})
	return nil
}

// TransferFrom moves amount out of the owner's balance on the authority of a
// previously approved spender. The allowance is decremented by exactly the
// amount moved. Both the allowance and the balance are checked before any
// mutation.
func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	if to == (common.Address{}) {
		return ErrInvalidRecipient
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	allowance := t.allowanceLocked(from, spender)
	if allowance.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if t.balance(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	allowance.Sub(allowance, amount)
	t.move(from, to, amount)
	t.emitTransfer(from, to, amount)
	return nil
}

func (t *Token) balance(account common.Address) *big.Int {
	if b, ok := t.balances[account]; ok {
		return b
	}
	return new(big.Int)
}

func (t *Token) allowanceLocked(owner, spender common.Address) *big.Int {
	m, ok := t.allowances[owner]
	if !ok {
		m = make(map[common.Address]*big.Int)
		t.allowances[owner] = m
	}
	a, ok := m[spender]
	if !ok {
		a = new(big.Int)
		m[spender] = a
	}
	return a
}

// move assumes the lock is held and the balance check already passed.
func (t *Token) move(from, to common.Address, amount *big.Int) {
	fromBal := t.balance(from)
	t.balances[from] = new(big.Int).Sub(fromBal, amount)
	toBal := t.balance(to)
	t.balances[to] = new(big.Int).Add(toBal, amount)
}

func (t *Token) emitTransfer(from, to common.Address, amount *big.Int) {
	t.log.Append(events.Event{Kind: events.KindTransfer, Transfer: &events.Transfer{
		Token: t.address,
		From:  from,
		To:    to,
		Value: new(big.Int).Set(amount),
	}})
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}
