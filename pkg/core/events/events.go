// Package events defines the append-only event log emitted by the token and
// exchange ledgers. Events are the only channel off-chain consumers may rely
// on to reconstruct state: terminal orders are never purged from the ledgers,
// so current-state reads cannot recover history.
package events

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunwoo-p/tokendex/pkg/util"
)

// Kind discriminates the payload carried by an Event envelope.
type Kind string

const (
	KindTransfer   Kind = "transfer"
	KindApproval   Kind = "approval"
	KindDeposit    Kind = "deposit"
	KindWithdrawal Kind = "withdrawal"
	KindOrder      Kind = "order"
	KindCancel     Kind = "cancel"
	KindTrade      Kind = "trade"
)

// Transfer is emitted by the token ledger on every balance movement,
// direct or delegated.
type Transfer struct {
	Token common.Address `json:"token"`
	From  common.Address `json:"from"`
	To    common.Address `json:"to"`
	Value *big.Int       `json:"value"`
}

// Approval is emitted when an owner overwrites a spender's allowance.
type Approval struct {
	Token   common.Address `json:"token"`
	Owner   common.Address `json:"owner"`
	Spender common.Address `json:"spender"`
	Value   *big.Int       `json:"value"`
}

// Deposit is emitted when the exchange takes custody of tokens.
// Balance is the user's custodial balance after the deposit.
type Deposit struct {
	Token   common.Address `json:"token"`
	User    common.Address `json:"user"`
	Amount  *big.Int       `json:"amount"`
	Balance *big.Int       `json:"balance"`
}

// Withdrawal is emitted when the exchange releases custody back to a wallet.
type Withdrawal struct {
	Token   common.Address `json:"token"`
	User    common.Address `json:"user"`
	Amount  *big.Int       `json:"amount"`
	Balance *big.Int       `json:"balance"`
}

// Order is emitted when a maker places a new order.
type Order struct {
	ID         uint64         `json:"id"`
	User       common.Address `json:"user"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"`
}

// Cancel mirrors the cancelled order's fields plus the cancellation time.
type Cancel struct {
	ID         uint64         `json:"id"`
	User       common.Address `json:"user"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Timestamp  int64          `json:"timestamp"`
}

// Trade is emitted on a successful fill. User is the taker, Maker the
// order's creator; Fee is what the taker paid on top of AmountGet.
type Trade struct {
	ID         uint64         `json:"id"`
	User       common.Address `json:"user"`
	TokenGet   common.Address `json:"tokenGet"`
	AmountGet  *big.Int       `json:"amountGet"`
	TokenGive  common.Address `json:"tokenGive"`
	AmountGive *big.Int       `json:"amountGive"`
	Maker      common.Address `json:"maker"`
	Timestamp  int64          `json:"timestamp"`
	Fee        *big.Int       `json:"fee"`
}

// Event is the envelope appended to the log. Seq is assigned by the log in
// commit order and never reused. Exactly one payload field is non-nil,
// matching Kind.
type Event struct {
	Seq  uint64 `json:"seq"`
	Kind Kind   `json:"kind"`
	Time int64  `json:"time"` // commit time, unix milliseconds

	Transfer   *Transfer   `json:"transfer,omitempty"`
	Approval   *Approval   `json:"approval,omitempty"`
	Deposit    *Deposit    `json:"deposit,omitempty"`
	Withdrawal *Withdrawal `json:"withdrawal,omitempty"`
	Order      *Order      `json:"order,omitempty"`
	Cancel     *Cancel     `json:"cancel,omitempty"`
	Trade      *Trade      `json:"trade,omitempty"`
}

// Log is an append-only, in-order event log with subscriber fanout.
// Appends happen inside the chain's commit path, so subscribers observe
// events in exactly the commit order of the operations that produced them.
type Log struct {
	mu     sync.RWMutex
	clock  util.Clock
	base   uint64 // sequence numbers start at base+1
	events []Event
	subs   []chan Event
}

func NewLog() *Log {
	return &Log{clock: util.RealClock{}}
}

// NewLogWithClock builds a log whose commit timestamps come from clock.
func NewLogWithClock(clock util.Clock) *Log {
	return &Log{clock: clock}
}

// NewLogAt builds a log whose first event gets sequence number base+1, so a
// restarted node can continue the numbering of an existing archive instead of
// overwriting it.
func NewLogAt(clock util.Clock, base uint64) *Log {
	return &Log{clock: clock, base: base}
}

// Append assigns the next sequence number and commit time, stores the event,
// and fans it out to subscribers. Returns the stored event with Seq set.
func (l *Log) Append(e Event) Event {
	l.mu.Lock()
	e.Seq = l.base + uint64(len(l.events)) + 1
	if e.Time == 0 {
		e.Time = l.clock.Now().UnixMilli()
	}
	l.events = append(l.events, e)
	subs := l.subs
	l.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// Slow subscriber: drop rather than stall the commit path.
			// Consumers needing completeness should re-read via Since.
		}
	}
	return e
}

// Since returns a copy of all events with Seq > seq, in order. Cursors below
// the log's base are clamped: events from before the base were committed by a
// previous run and live only in the archive.
func (l *Log) Since(seq uint64) []Event {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq < l.base {
		seq = l.base
	}
	idx := seq - l.base
	if idx >= uint64(len(l.events)) {
		return nil
	}
	out := make([]Event, uint64(len(l.events))-idx)
	copy(out, l.events[idx:])
	return out
}

// All returns a copy of the full event history held by this log.
func (l *Log) All() []Event {
	return l.Since(0)
}

// Len returns the number of committed events.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.events)
}

// LastSeq returns the sequence number of the newest committed event, or the
// base when the log is empty.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.base + uint64(len(l.events))
}

// Subscribe registers a buffered fanout channel. The channel receives every
// event appended after the call, in commit order.
func (l *Log) Subscribe() <-chan Event {
	ch := make(chan Event, 256)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}
