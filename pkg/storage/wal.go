package storage

import (
	"fmt"
	"os"
	"sync"

	"github.com/hyunwoo-p/tokendex/pkg/chain"
)

var (
	_ chain.WAL = (*NopWAL)(nil)
	_ chain.WAL = (*FileWAL)(nil)
)

// NopWAL discards every line. Used when journaling is disabled.
type NopWAL struct{}

func NewNopWAL() *NopWAL          { return &NopWAL{} }
func (w *NopWAL) Append(_ string) {}

// FileWAL appends one JSON event per line to a flat file. The journal is a
// human-greppable mirror of the pebble archive, not the recovery source.
type FileWAL struct {
	mu sync.Mutex
	f  *os.File
}

func NewFileWAL(path string) (*FileWAL, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileWAL{f: f}, nil
}

func (w *FileWAL) Append(line string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.f, line)
}

func (w *FileWAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.f.Close()
}
