// Package exchange implements the custodial trading ledger: per-(token, user)
// balances held in trust, an order book keyed by incrementing id, and taker
// fee collection on fills.
//
// The exchange never mutates token state directly. It acts only as an
// approved spender through the TokenResolver it is constructed with, so the
// token ledger remains the sole owner of wallet balances and allowances.
package exchange

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunwoo-p/tokendex/pkg/core/events"
	"github.com/hyunwoo-p/tokendex/pkg/util"
)

var (
	ErrUnknownToken                 = errors.New("exchange: unknown token")
	ErrInvalidAmount                = errors.New("exchange: negative or missing amount")
	ErrInsufficientBalance          = errors.New("exchange: insufficient tokens on exchange")
	ErrInsufficientCustodialBalance = errors.New("exchange: insufficient tokens to withdraw")
	ErrOrderNotFound                = errors.New("exchange: order does not exist")
	ErrNotOrderOwner                = errors.New("exchange: not order owner")
	ErrOrderFilled                  = errors.New("exchange: order already filled")
	ErrOrderCancelled               = errors.New("exchange: order already cancelled")
)

// TokenLedger is the transfer surface the exchange needs from a token
// contract when pulling deposits in and pushing withdrawals out.
type TokenLedger interface {
	Transfer(from, to common.Address, amount *big.Int) error
	TransferFrom(spender, from, to common.Address, amount *big.Int) error
}

// TokenResolver maps a token contract address to its ledger.
type TokenResolver interface {
	Ledger(token common.Address) (TokenLedger, error)
}

// Order is immutable once created. Cancellation and fill are tracked in
// separate flag maps, never by editing the record.
type Order struct {
	ID         uint64         `json:"id"`
	User       common.Address `json:"user"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"` // creation time, unix milliseconds
}

// Exchange holds custodial balances and the order book. A single mutex
// serializes every mutating operation: each call either commits all of its
// balance and book mutations and emits its event, or aborts with none.
type Exchange struct {
	address    common.Address // custody identity on the token ledgers
	feeAccount common.Address
	feePercent int64

	resolver TokenResolver
	clock    util.Clock
	log      *events.Log

	mu          sync.Mutex
	balances    map[common.Address]map[common.Address]*big.Int // token -> user -> custodial balance
	orders      map[uint64]*Order
	ordersCount uint64
	cancelled   map[uint64]bool
	filled      map[uint64]bool
}

// New creates an exchange. feeAccount and feePercent are immutable for the
// lifetime of the exchange; the fee is charged to takers only.
func New(address, feeAccount common.Address, feePercent int64, resolver TokenResolver, clock util.Clock, log *events.Log) *Exchange {
	return &Exchange{
		address:    address,
		feeAccount: feeAccount,
		feePercent: feePercent,
		resolver:   resolver,
		clock:      clock,
		log:        log,
		balances:   make(map[common.Address]map[common.Address]*big.Int),
		orders:     make(map[uint64]*Order),
		cancelled:  make(map[uint64]bool),
		filled:     make(map[uint64]bool),
	}
}

func (e *Exchange) Address() common.Address    { return e.address }
func (e *Exchange) FeeAccount() common.Address { return e.feeAccount }
func (e *Exchange) FeePercent() int64          { return e.feePercent }

// BalanceOf returns the custodial balance the exchange holds in trust for
// user, distinct from the user's wallet balance on the token contract.
func (e *Exchange) BalanceOf(token, user common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return new(big.Int).Set(e.balance(token, user))
}

func (e *Exchange) OrdersCount() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ordersCount
}

// Order returns a copy of the stored order record.
func (e *Exchange) Order(id uint64) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, ok := e.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return *o, nil
}

func (e *Exchange) OrderCancelled(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cancelled[id]
}

func (e *Exchange) OrderFilled(id uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.filled[id]
}

// DepositToken pulls amount from the user's wallet into exchange custody via
// a delegated transfer, then credits the custodial ledger. The user must have
// approved the exchange beforehand; any token-side failure aborts the deposit
// before the custodial ledger is touched.
func (e *Exchange) DepositToken(user, token common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	ledger, err := e.resolver.Ledger(token)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	// Pull first: a failed delegated transfer must leave custody untouched.
	if err := ledger.TransferFrom(e.address, user, e.address, amount); err != nil {
		return err
	}

	bal := e.balance(token, user)
	bal.Add(bal, amount)

	e.log.Append(events.Event{Kind: events.KindDeposit, Deposit: &events.Deposit{
		Token:   token,
		User:    user,
		Amount:  new(big.Int).Set(amount),
		Balance: new(big.Int).Set(bal),
	}})
	return nil
}

// WithdrawToken releases amount from custody back to the user's wallet.
func (e *Exchange) WithdrawToken(user, token common.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	ledger, err := e.resolver.Ledger(token)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	bal := e.balance(token, user)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientCustodialBalance
	}

	// Push the wallet transfer before debiting custody so a token-side
	// failure aborts the whole withdrawal.
	if err := ledger.Transfer(e.address, user, amount); err != nil {
		return err
	}
	bal.Sub(bal, amount)

	e.log.Append(events.Event{Kind: events.KindWithdrawal, Withdrawal: &events.Withdrawal{
		Token:   token,
		User:    user,
		Amount:  new(big.Int).Set(amount),
		Balance: new(big.Int).Set(bal),
	}})
	return nil
}

// MakeOrder creates a new order and returns its id. The maker must already
// hold the give side in custody; the get side is only checked at fill time.
func (e *Exchange) MakeOrder(user, tokenGet common.Address, amountGet *big.Int, tokenGive common.Address, amountGive *big.Int) (uint64, error) {
	if err := checkAmount(amountGet); err != nil {
		return 0, err
	}
	if err := checkAmount(amountGive); err != nil {
		return 0, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.balance(tokenGive, user).Cmp(amountGive) < 0 {
		return 0, ErrInsufficientBalance
	}

	e.ordersCount++
	o := &Order{
		ID:         e.ordersCount,
		User:       user,
		TokenGet:   tokenGet,
		AmountGet:  new(big.Int).Set(amountGet),
		TokenGive:  tokenGive,
		AmountGive: new(big.Int).Set(amountGive),
		Timestamp:  e.clock.Now().UnixMilli(),
	}
	e.orders[o.ID] = o

	e.log.Append(events.Event{Kind: events.KindOrder, Order: &events.Order{
		ID:         o.ID,
		User:       o.User,
		TokenGet:   o.TokenGet,
		AmountGet:  new(big.Int).Set(o.AmountGet),
		TokenGive:  o.TokenGive,
		AmountGive: new(big.Int).Set(o.AmountGive),
		Timestamp:  o.Timestamp,
	}})
	return o.ID, nil
}

// CancelOrder flags the order cancelled. Only the maker may cancel, and a
// terminal order stays terminal: cancelling an already filled or cancelled
// order fails, so cancel and fill are mutually exclusive in outcome.
func (e *Exchange) CancelOrder(user common.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if o.User != user {
		return ErrNotOrderOwner
	}
	if e.filled[id] {
		return ErrOrderFilled
	}
	if e.cancelled[id] {
		return ErrOrderCancelled
	}

	e.cancelled[id] = true

	e.log.Append(events.Event{Kind: events.KindCancel, Cancel: &events.Cancel{
		ID:         o.ID,
		User:       o.User,
		TokenGet:   o.TokenGet,
		AmountGet:  new(big.Int).Set(o.AmountGet),
		TokenGive:  o.TokenGive,
		AmountGive: new(big.Int).Set(o.AmountGive),
		Timestamp:  e.clock.Now().UnixMilli(),
	}})
	return nil
}

// FillOrder executes an open order. The taker pays amountGet plus the fee in
// tokenGet and receives amountGive in tokenGive; the maker's give-side
// sufficiency is re-validated at fill time since custody may have moved since
// the order was created. All checks precede all mutations, so a rejected fill
// leaves every balance unchanged.
func (e *Exchange) FillOrder(taker common.Address, id uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	o, ok := e.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if e.filled[id] {
		return ErrOrderFilled
	}
	if e.cancelled[id] {
		return ErrOrderCancelled
	}

	// fee = amountGet * feePercent / 100, truncating. Paid by the taker on
	// top of amountGet, never deducted from the maker's proceeds.
	fee := new(big.Int).Mul(o.AmountGet, big.NewInt(e.feePercent))
	fee.Div(fee, big.NewInt(100))

	takerOwes := new(big.Int).Add(o.AmountGet, fee)
	takerGet := e.balance(o.TokenGet, taker)
	makerGive := e.balance(o.TokenGive, o.User)
	if takerGet.Cmp(takerOwes) < 0 {
		return ErrInsufficientBalance
	}
	if makerGive.Cmp(o.AmountGive) < 0 {
		return ErrInsufficientBalance
	}

	// Checks passed; commit the whole trade.
	takerGet.Sub(takerGet, o.AmountGet)
	makerGet := e.balance(o.TokenGet, o.User)
	makerGet.Add(makerGet, o.AmountGet)

	takerGet.Sub(takerGet, fee)
	feeBal := e.balance(o.TokenGet, e.feeAccount)
	feeBal.Add(feeBal, fee)

	makerGive.Sub(makerGive, o.AmountGive)
	takerGive := e.balance(o.TokenGive, taker)
	takerGive.Add(takerGive, o.AmountGive)

	e.filled[id] = true

	e.log.Append(events.Event{Kind: events.KindTrade, Trade: &events.Trade{
		ID:         o.ID,
		User:       taker,
		TokenGet:   o.TokenGet,
		AmountGet:  new(big.Int).Set(o.AmountGet),
		TokenGive:  o.TokenGive,
		AmountGive: new(big.Int).Set(o.AmountGive),
		Maker:      o.User,
		Timestamp:  e.clock.Now().UnixMilli(),
		Fee:        fee,
	}})
	return nil
}

func (e *Exchange) balance(token, user common.Address) *big.Int {
	m, ok := e.balances[token]
	if !ok {
		m = make(map[common.Address]*big.Int)
		e.balances[token] = m
	}
	b, ok := m[user]
	if !ok {
		b = new(big.Int)
		m[user] = b
	}
	return b
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	return nil
}
