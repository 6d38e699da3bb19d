// Package indexer rebuilds order-book, trade-history, and custodial-balance
// views by replaying the exchange event stream. It never reads the mutable
// ledgers: terminal orders are only flagged there, never purged, so the event
// log is the one channel that carries full history.
//
// Replay is deterministic: applying the same event sequence to a fresh view
// always yields the same result.
package indexer

import (
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunwoo-p/tokendex/pkg/core/events"
)

// View is the derived read model. An order is open iff it was created and is
// neither cancelled nor filled.
type View struct {
	mu         sync.RWMutex
	feeAccount common.Address
	lastSeq    uint64

	orders    map[uint64]events.Order
	sequence  []uint64 // creation order
	cancelled map[uint64]events.Cancel
	filled    map[uint64]events.Trade
	trades    []events.Trade

	balances map[common.Address]map[common.Address]*big.Int // token -> user -> custodial balance
}

// NewView creates an empty view. The fee account is public exchange
// configuration; the view needs it to attribute fee credits from Trade
// events when reconstructing custodial balances.
func NewView(feeAccount common.Address) *View {
	return &View{
		feeAccount: feeAccount,
		orders:     make(map[uint64]events.Order),
		cancelled:  make(map[uint64]events.Cancel),
		filled:     make(map[uint64]events.Trade),
		balances:   make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Apply folds one event into the view. Events must be applied in commit
// order; stale or duplicate sequence numbers are ignored.
func (v *View) Apply(e events.Event) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if e.Seq <= v.lastSeq {
		return
	}
	v.lastSeq = e.Seq

	switch e.Kind {
	case events.KindOrder:
		o := *e.Order
		v.orders[o.ID] = o
		v.sequence = append(v.sequence, o.ID)

	case events.KindCancel:
		v.cancelled[e.Cancel.ID] = *e.Cancel

	case events.KindTrade:
		t := *e.Trade
		v.filled[t.ID] = t
		v.trades = append(v.trades, t)
		v.applyTrade(t)

	case events.KindDeposit:
		d := e.Deposit
		v.setBalance(d.Token, d.User, d.Balance)

	case events.KindWithdrawal:
		w := e.Withdrawal
		v.setBalance(w.Token, w.User, w.Balance)
	}
}

// Replay folds a batch of events in order.
func (v *View) Replay(batch []events.Event) {
	for _, e := range batch {
		v.Apply(e)
	}
}

// Source re-reads committed events that a lossy subscription may have
// dropped. events.Log satisfies it.
type Source interface {
	Since(seq uint64) []events.Event
}

// Run consumes a live event subscription until the channel is closed.
// Intended to be launched as a goroutine against events.Log.Subscribe().
// The fanout drops under load, so on a sequence gap Run refetches the
// missing range from src; the view never silently skips an event.
func (v *View) Run(ch <-chan events.Event, src Source) {
	for e := range ch {
		if src != nil && e.Seq > v.LastSeq()+1 {
			v.Replay(src.Since(v.LastSeq()))
			continue
		}
		v.Apply(e)
	}
}

// LastSeq returns the sequence number of the last applied event.
func (v *View) LastSeq() uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastSeq
}

// OrderByID returns the order record and whether it exists.
func (v *View) OrderByID(id uint64) (events.Order, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	o, ok := v.orders[id]
	return o, ok
}

// OpenOrders returns orders that are neither cancelled nor filled, in
// creation order.
func (v *View) OpenOrders() []events.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []events.Order
	for _, id := range v.sequence {
		if _, gone := v.cancelled[id]; gone {
			continue
		}
		if _, gone := v.filled[id]; gone {
			continue
		}
		out = append(out, v.orders[id])
	}
	return out
}

// OpenOrdersFor filters the open set down to a single maker.
func (v *View) OpenOrdersFor(user common.Address) []events.Order {
	var out []events.Order
	for _, o := range v.OpenOrders() {
		if o.User == user {
			out = append(out, o)
		}
	}
	return out
}

// CancelledOrders returns cancel records sorted by order id.
func (v *View) CancelledOrders() []events.Cancel {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]events.Cancel, 0, len(v.cancelled))
	for _, c := range v.cancelled {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Trades returns the trade history in commit order.
func (v *View) Trades() []events.Trade {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]events.Trade, len(v.trades))
	copy(out, v.trades)
	return out
}

// TradesFor returns trades where user was maker or taker.
func (v *View) TradesFor(user common.Address) []events.Trade {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var out []events.Trade
	for _, t := range v.trades {
		if t.User == user || t.Maker == user {
			out = append(out, t)
		}
	}
	return out
}

// Balance returns the reconstructed custodial balance for (token, user).
func (v *View) Balance(tokenAddr, user common.Address) *big.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	if m, ok := v.balances[tokenAddr]; ok {
		if b, ok := m[user]; ok {
			return new(big.Int).Set(b)
		}
	}
	return new(big.Int)
}

// applyTrade adjusts reconstructed custody for both parties and the fee
// account. Deposit/Withdrawal events carry authoritative post-operation
// balances; trades only carry deltas, so they are applied incrementally.
func (v *View) applyTrade(t events.Trade) {
	takerGet := v.balance(t.TokenGet, t.User)
	takerGet.Sub(takerGet, t.AmountGet)
	takerGet.Sub(takerGet, t.Fee)

	makerGet := v.balance(t.TokenGet, t.Maker)
	makerGet.Add(makerGet, t.AmountGet)

	feeBal := v.balance(t.TokenGet, v.feeAccount)
	feeBal.Add(feeBal, t.Fee)

	makerGive := v.balance(t.TokenGive, t.Maker)
	makerGive.Sub(makerGive, t.AmountGive)

	takerGive := v.balance(t.TokenGive, t.User)
	takerGive.Add(takerGive, t.AmountGive)
}

func (v *View) setBalance(tokenAddr, user common.Address, value *big.Int) {
	b := v.balance(tokenAddr, user)
	b.Set(value)
}

func (v *View) balance(tokenAddr, user common.Address) *big.Int {
	m, ok := v.balances[tokenAddr]
	if !ok {
		m = make(map[common.Address]*big.Int)
		v.balances[tokenAddr] = m
	}
	b, ok := m[user]
	if !ok {
		b = new(big.Int)
		m[user] = b
	}
	return b
}
