package api

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"swipebraille/internal/braille"
	"swipebraille/internal/watcher"
)

// TableStore holds the mapping table served to requests. Readers never
// block; a reload swaps the whole table at once.
type TableStore struct {
	path    string
	current atomic.Pointer[braille.Table]
	loads   atomic.Uint64
	logger  *slog.Logger

	mu     sync.Mutex
	onSwap []func(*braille.Table)
}

// NewTableStore returns a store serving t. path is the file Reload and
// Watch read from; it may be empty for a fixed table.
func NewTableStore(t *braille.Table, path string, logger *slog.Logger) *TableStore {
	if t == nil {
		t = braille.EmptyTable()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &TableStore{path: path, logger: logger}
	s.current.Store(t)
	return s
}

// Table returns the table currently in effect.
func (s *TableStore) Table() *braille.Table {
	return s.current.Load()
}

// Path returns the backing file, if any.
func (s *TableStore) Path() string {
	return s.path
}

// Generation counts successful swaps since the store was created.
func (s *TableStore) Generation() uint64 {
	return s.loads.Load()
}

// OnSwap registers a callback run after every Swap.
func (s *TableStore) OnSwap(fn func(*braille.Table)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onSwap = append(s.onSwap, fn)
}

// Swap replaces the current table.
func (s *TableStore) Swap(t *braille.Table) {
	if t == nil {
		t = braille.EmptyTable()
	}
	s.current.Store(t)
	s.loads.Add(1)

	s.mu.Lock()
	callbacks := append([]func(*braille.Table){}, s.onSwap...)
	s.mu.Unlock()
	for _, fn := range callbacks {
		fn(t)
	}
}

// Reload re-reads the backing file. On failure the current table stays in
// effect and the error is returned.
func (s *TableStore) Reload() (*braille.LoadReport, error) {
	if s.path == "" {
		return nil, fmt.Errorf("table store has no backing file")
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open mapping: %w", err)
	}
	defer f.Close()

	t, report, err := braille.Load(f)
	if err != nil {
		return nil, err
	}
	s.Swap(t)
	s.logger.Info("mapping table reloaded",
		"path", s.path,
		"entries", t.Len(),
		"skipped", len(report.Skipped),
		"overwritten", report.Overwritten,
	)
	return report, nil
}

// Watch reloads the table whenever the backing file changes, until ctx is
// done. A removed file leaves the last table in effect.
func (s *TableStore) Watch(ctx context.Context, debounce time.Duration) error {
	if s.path == "" {
		return fmt.Errorf("table store has no backing file")
	}
	w, err := watcher.New([]string{s.path}, debounce)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}

	go func() {
		defer w.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events():
				if !ok {
					return
				}
				if ev.Removed {
					s.logger.Warn("mapping table removed, keeping previous table", "path", ev.Path)
					continue
				}
				if _, err := s.Reload(); err != nil {
					s.logger.Error("mapping table reload failed", "path", ev.Path, "error", err)
				}
			case err, ok := <-w.Errors():
				if !ok {
					return
				}
				s.logger.Error("mapping watch error", "path", s.path, "error", err)
			}
		}
	}()
	return nil
}
