package storage

import (
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/hyunwoo-p/tokendex/pkg/core/events"
)

var (
	alice = common.HexToAddress("0xA1000000000000000000000000000000000000A1")
	bob   = common.HexToAddress("0xB2000000000000000000000000000000000000B2")
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func appendHistory(t *testing.T, s *Store, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		e := events.Event{
			Seq:  uint64(i),
			Kind: events.KindDeposit,
			Time: int64(1_700_000_000_000 + i),
			Deposit: &events.Deposit{
				User:    alice,
				Amount:  big.NewInt(int64(i)),
				Balance: big.NewInt(int64(i)),
			},
		}
		// every third event is a trade, exercising the trade index
		if i%3 == 0 {
			e.Kind = events.KindTrade
			e.Deposit = nil
			e.Trade = &events.Trade{
				ID:         uint64(i),
				User:       bob,
				Maker:      alice,
				AmountGet:  big.NewInt(int64(i)),
				AmountGive: big.NewInt(int64(i)),
				Fee:        big.NewInt(1),
			}
		}
		if err := s.AppendEvent(e); err != nil {
			t.Fatalf("append event %d: %v", i, err)
		}
	}
}

func TestEventsRange(t *testing.T) {
	s := openTestStore(t)
	appendHistory(t, s, 10)

	all, err := s.Events(0, 0)
	if err != nil {
		t.Fatalf("read all: %v", err)
	}
	if len(all) != 10 {
		t.Fatalf("events = %d, want 10", len(all))
	}
	for i, e := range all {
		if e.Seq != uint64(i)+1 {
			t.Errorf("event %d has seq %d, want %d", i, e.Seq, i+1)
		}
	}

	// after=7 skips the first seven committed events
	tail, err := s.Events(7, 0)
	if err != nil {
		t.Fatalf("read tail: %v", err)
	}
	if len(tail) != 3 || tail[0].Seq != 8 {
		t.Errorf("tail = %d events starting at %d, want 3 starting at 8", len(tail), tail[0].Seq)
	}

	capped, err := s.Events(0, 4)
	if err != nil {
		t.Fatalf("read capped: %v", err)
	}
	if len(capped) != 4 {
		t.Errorf("capped read = %d events, want 4", len(capped))
	}
}

func TestRecentTrades(t *testing.T) {
	s := openTestStore(t)
	appendHistory(t, s, 10) // trades at seq 3, 6, 9

	trades, err := s.RecentTrades(2)
	if err != nil {
		t.Fatalf("recent trades: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades = %d, want 2", len(trades))
	}
	// newest first
	if trades[0].Seq != 9 || trades[1].Seq != 6 {
		t.Errorf("trade seqs = %d, %d, want 9, 6", trades[0].Seq, trades[1].Seq)
	}
	if trades[0].Trade == nil || trades[0].Trade.Maker != alice {
		t.Errorf("trade payload = %+v", trades[0].Trade)
	}

	all, err := s.RecentTrades(100)
	if err != nil {
		t.Fatalf("recent trades: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("all trades = %d, want 3", len(all))
	}
}

func TestLastSeq(t *testing.T) {
	s := openTestStore(t)

	seq, err := s.LastSeq()
	if err != nil {
		t.Fatalf("lastSeq on empty store: %v", err)
	}
	if seq != 0 {
		t.Errorf("empty store lastSeq = %d, want 0", seq)
	}

	appendHistory(t, s, 5)
	seq, err = s.LastSeq()
	if err != nil {
		t.Fatalf("lastSeq: %v", err)
	}
	if seq != 5 {
		t.Errorf("lastSeq = %d, want 5", seq)
	}
}

func TestReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "events.db")
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	appendHistory(t, s, 6)
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()

	seq, err := s2.LastSeq()
	if err != nil {
		t.Fatalf("lastSeq after reopen: %v", err)
	}
	if seq != 6 {
		t.Errorf("lastSeq after reopen = %d, want 6", seq)
	}
	all, err := s2.Events(0, 0)
	if err != nil || len(all) != 6 {
		t.Errorf("events after reopen = %d (%v), want 6", len(all), err)
	}
}

func TestFileWAL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.log")
	wal, err := NewFileWAL(path)
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}

	wal.Append(`{"seq":1}`)
	wal.Append(`{"seq":2}`)
	if err := wal.Close(); err != nil {
		t.Fatalf("close wal: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read wal: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 || lines[0] != `{"seq":1}` || lines[1] != `{"seq":2}` {
		t.Errorf("wal contents = %q", lines)
	}
}
