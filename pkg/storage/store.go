// Package storage persists the committed event stream. Events are keyed by
// sequence number so range reads come back in commit order; trades are
// additionally indexed under their own prefix for the trade-history endpoint.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"

	"github.com/hyunwoo-p/tokendex/pkg/chain"
	"github.com/hyunwoo-p/tokendex/pkg/core/events"
)

var _ chain.Archive = (*Store)(nil)

var (
	eventPrefix = []byte("evt/")
	tradePrefix = []byte("trd/")
)

// Store is a pebble-backed event archive.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the archive at dbPath.
func Open(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                 pebble.NewCache(64 << 20),
		MemTableSize:          32 << 20,
		L0CompactionThreshold: 2,
		L0StopWritesThreshold: 12,
		MaxOpenFiles:          1000,
		BytesPerSync:          512 << 10,
	}
	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("open pebble db at %s: %w", dbPath, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AppendEvent persists one committed event. Trade events are written twice:
// once into the sequential archive and once under the trade index.
func (s *Store) AppendEvent(e events.Event) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %d: %w", e.Seq, err)
	}
	if err := s.db.Set(seqKey(eventPrefix, e.Seq), data, pebble.Sync); err != nil {
		return fmt.Errorf("archive event %d: %w", e.Seq, err)
	}
	if e.Kind == events.KindTrade {
		// Best-effort: the archive row above is authoritative, so a failed
		// index write only narrows RecentTrades and must not fail the append.
		_ = s.db.Set(seqKey(tradePrefix, e.Seq), data, pebble.NoSync)
	}
	return nil
}

// Events returns up to limit events with Seq > after, in commit order.
// limit <= 0 means no cap.
func (s *Store) Events(after uint64, limit int) ([]events.Event, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: seqKey(eventPrefix, after+1),
		UpperBound: keyUpperBound(eventPrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []events.Event
	for iter.First(); iter.Valid(); iter.Next() {
		var e events.Event
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue // skip corrupt rows
		}
		out = append(out, e)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// RecentTrades returns the newest limit trade events, newest first.
func (s *Store) RecentTrades(limit int) ([]events.Event, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: tradePrefix,
		UpperBound: keyUpperBound(tradePrefix),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var out []events.Event
	for iter.Last(); iter.Valid() && len(out) < limit; iter.Prev() {
		var e events.Event
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// LastSeq returns the highest archived sequence number, or zero when empty.
func (s *Store) LastSeq() (uint64, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: eventPrefix,
		UpperBound: keyUpperBound(eventPrefix),
	})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, nil
	}
	key := iter.Key()
	if len(key) != len(eventPrefix)+8 {
		return 0, fmt.Errorf("malformed archive key %q", key)
	}
	return binary.BigEndian.Uint64(key[len(eventPrefix):]), nil
}

func seqKey(prefix []byte, seq uint64) []byte {
	k := make([]byte, len(prefix)+8)
	copy(k, prefix)
	binary.BigEndian.PutUint64(k[len(prefix):], seq)
	return k
}

// keyUpperBound returns the smallest key greater than every key with the
// given prefix.
func keyUpperBound(prefix []byte) []byte {
	end := append([]byte(nil), prefix...)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
