// Package chain wires the token and exchange ledgers into a single logical
// machine: a registry of deployed token contracts, one exchange, one event
// log, and the durability hooks (WAL + pebble archive) that record every
// committed event in commit order.
package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/hyunwoo-p/tokendex/pkg/core/events"
	"github.com/hyunwoo-p/tokendex/pkg/core/exchange"
	"github.com/hyunwoo-p/tokendex/pkg/core/token"
	"github.com/hyunwoo-p/tokendex/pkg/util"
)

var ErrUnknownToken = errors.New("chain: unknown token contract")

// WAL is the append-only journal the chain writes committed events to.
type WAL interface {
	Append(line string)
}

// Archive receives every committed event for durable storage.
type Archive interface {
	AppendEvent(e events.Event) error
}

// Config carries the immutable parameters fixed at chain construction.
type Config struct {
	Deployer   common.Address
	FeeAccount common.Address
	FeePercent int64

	// StartSeq is the newest sequence number already held by the archive.
	// Event numbering resumes at StartSeq+1 so a restart appends to the
	// archive instead of overwriting it.
	StartSeq uint64
}

// Chain owns the contract registry and the exchange. Contract deployment is
// serialized by the chain's own mutex; ledger operations are serialized by
// the component locks, with the shared event log assigning the global commit
// order.
type Chain struct {
	log    *events.Log
	clock  util.Clock
	logger *zap.SugaredLogger
	wal    WAL
	store  Archive

	deployer common.Address
	exchange *exchange.Exchange

	mu     sync.RWMutex
	nonce  uint64
	tokens map[common.Address]*token.Token
	order  []common.Address // deployment order, for stable listings

	done chan struct{}
}

// New constructs a chain with an exchange configured from cfg. The exchange
// itself occupies the deployer's first nonce, so token addresses start at
// nonce 1.
func New(cfg Config, clock util.Clock, logger *zap.SugaredLogger, wal WAL, store Archive) *Chain {
	c := &Chain{
		log:      events.NewLogAt(clock, cfg.StartSeq),
		clock:    clock,
		logger:   logger,
		wal:      wal,
		store:    store,
		deployer: cfg.Deployer,
		tokens:   make(map[common.Address]*token.Token),
		done:     make(chan struct{}),
	}

	exchangeAddr := crypto.CreateAddress(cfg.Deployer, c.nextNonce())
	c.exchange = exchange.New(exchangeAddr, cfg.FeeAccount, cfg.FeePercent, c, clock, c.log)
	logger.Infow("exchange_deployed",
		"address", exchangeAddr.Hex(),
		"fee_account", cfg.FeeAccount.Hex(),
		"fee_percent", cfg.FeePercent,
	)

	go c.archive(c.log.Subscribe(), cfg.StartSeq)
	return c
}

// DeployToken registers a new token contract seeded to the chain deployer.
func (c *Chain) DeployToken(name, symbol string, initialSupply int64) *token.Token {
	addr := crypto.CreateAddress(c.deployer, c.nextNonce())
	t := token.New(addr, name, symbol, initialSupply, c.deployer, c.log)

	c.mu.Lock()
	c.tokens[addr] = t
	c.order = append(c.order, addr)
	c.mu.Unlock()

	c.logger.Infow("token_deployed",
		"address", addr.Hex(),
		"name", name,
		"symbol", symbol,
		"supply", initialSupply,
	)
	return t
}

// Token returns the deployed token at addr.
func (c *Chain) Token(addr common.Address) (*token.Token, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tokens[addr]
	if !ok {
		return nil, ErrUnknownToken
	}
	return t, nil
}

// Tokens lists deployed tokens in deployment order.
func (c *Chain) Tokens() []*token.Token {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*token.Token, 0, len(c.order))
	for _, addr := range c.order {
		out = append(out, c.tokens[addr])
	}
	return out
}

// Ledger implements exchange.TokenResolver.
func (c *Chain) Ledger(addr common.Address) (exchange.TokenLedger, error) {
	t, err := c.Token(addr)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (c *Chain) Exchange() *exchange.Exchange { return c.exchange }
func (c *Chain) Events() *events.Log          { return c.log }
func (c *Chain) Deployer() common.Address     { return c.deployer }

// Close stops the archive goroutine. Events committed after Close are still
// in the in-memory log but no longer journaled.
func (c *Chain) Close() {
	close(c.done)
}

func (c *Chain) nextNonce() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.nonce
	c.nonce++
	return n
}

// archive drains the event subscription into the WAL and the durable store.
// The fanout channel drops under load, so the loop tracks the last persisted
// sequence number and re-reads any gap from the log; a periodic sweep catches
// drops at the tail of a burst, when no later delivery exposes the gap. The
// archive stays gapless even when the subscription is lossy.
func (c *Chain) archive(ch <-chan events.Event, last uint64) {
	sweep := time.NewTicker(200 * time.Millisecond)
	defer sweep.Stop()
	for {
		select {
		case <-c.done:
			// Final sweep so events committed just before Close still land.
			c.persistSince(last)
			return
		case e := <-ch:
			switch {
			case e.Seq <= last:
				continue
			case e.Seq == last+1:
				c.persistEvent(e)
				last = e.Seq
			default:
				last = c.persistSince(last)
			}
		case <-sweep.C:
			last = c.persistSince(last)
		}
	}
}

// persistSince re-reads everything after last from the log and persists it,
// returning the new high-water mark.
func (c *Chain) persistSince(last uint64) uint64 {
	for _, missed := range c.log.Since(last) {
		c.persistEvent(missed)
		last = missed.Seq
	}
	return last
}

func (c *Chain) persistEvent(e events.Event) {
	if c.wal != nil {
		line, err := json.Marshal(e)
		if err != nil {
			c.logger.Errorw("event_marshal_failed", "seq", e.Seq, "err", err)
		} else {
			c.wal.Append(string(line))
		}
	}
	if c.store != nil {
		if err := c.store.AppendEvent(e); err != nil {
			c.logger.Errorw("event_archive_failed", "seq", e.Seq, "err", err)
		}
	}
}

// FundAccounts transfers whole tokens from the deployer to each account, one
// genesis-style grant per (account, token) pair.
func (c *Chain) FundAccounts(accounts []common.Address, whole int64) error {
	amount := token.Units(whole)
	for _, t := range c.Tokens() {
		for _, acct := range accounts {
			if err := t.Transfer(c.deployer, acct, new(big.Int).Set(amount)); err != nil {
				return fmt.Errorf("fund %s with %s: %w", acct.Hex(), t.Symbol(), err)
			}
		}
	}
	return nil
}
