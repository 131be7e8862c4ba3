// Package watcher monitors mapping table files and reports content changes.
package watcher

import (
	"crypto/sha256"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must be quiet before a change is reported.
const DefaultDebounce = 200 * time.Millisecond

// Event reports that a watched file settled with new contents.
type Event struct {
	Path string
	// Hash is the SHA-256 of the contents; zero when the file is gone.
	Hash [32]byte
	Size int64
	// Removed is set when the file no longer exists.
	Removed   bool
	Timestamp time.Time
}

// Watcher monitors individual files for changes.
//
// Each file is watched through its parent directory so that editors which
// save by rename are still observed. A change is reported only after the
// file has been quiet for the debounce interval and only when its contents
// differ from the last reported state.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	paths     []string
	debounce  time.Duration

	// pending: path -> time of the latest unreported change
	pending map[string]time.Time
	// known: path -> last reported hash, or absent when unseen or removed
	known   map[string][32]byte
	stateMu sync.Mutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for paths. A debounce of zero selects DefaultDebounce.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	abs := make([]string, 0, len(paths))
	for _, p := range paths {
		a, err := filepath.Abs(p)
		if err != nil {
			fsWatcher.Close()
			return nil, err
		}
		abs = append(abs, a)
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		paths:     abs,
		debounce:  debounce,
		pending:   make(map[string]time.Time),
		known:     make(map[string][32]byte),
		events:    make(chan Event, 16),
		errors:    make(chan error, 4),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of change events.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Start records the current contents of every path and begins watching.
// A path that does not exist yet is watched for creation. On error the
// watcher is closed and cannot be started again.
func (w *Watcher) Start() error {
	if err := w.addPaths(); err != nil {
		w.fsWatcher.Close()
		return err
	}

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()

	return nil
}

func (w *Watcher) addPaths() error {
	dirs := make(map[string]bool)
	for _, path := range w.paths {
		dir := filepath.Dir(path)
		if !dirs[dir] {
			if err := w.fsWatcher.Add(dir); err != nil {
				return err
			}
			dirs[dir] = true
		}

		hash, _, err := HashFile(path)
		switch {
		case err == nil:
			w.known[path] = hash
		case errors.Is(err, fs.ErrNotExist):
		default:
			return err
		}
	}
	return nil
}

// Stop shuts down the watcher and closes both channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) watched(name string) bool {
	for _, p := range w.paths {
		if p == name {
			return true
		}
	}
	return false
}

// eventLoop handles fsnotify events.
func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			name, err := filepath.Abs(event.Name)
			if err != nil || !w.watched(name) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			w.stateMu.Lock()
			w.pending[name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.reportError(err)
		}
	}
}

// debounceLoop checks for settled files.
func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	tick := w.debounce / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return

		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

// flush reports every pending file that has been quiet for the debounce
// interval. The lock is released while files are read.
func (w *Watcher) flush(now time.Time) {
	threshold := now.Add(-w.debounce)

	var settled []string
	w.stateMu.Lock()
	for path, changed := range w.pending {
		if changed.Before(threshold) {
			settled = append(settled, path)
			delete(w.pending, path)
		}
	}
	w.stateMu.Unlock()

	for _, path := range settled {
		ev := Event{Path: path, Timestamp: now}
		hash, size, err := HashFile(path)
		switch {
		case err == nil:
			ev.Hash, ev.Size = hash, size
		case errors.Is(err, fs.ErrNotExist):
			ev.Removed = true
		default:
			w.reportError(err)
			continue
		}

		if !w.changed(ev) {
			continue
		}
		select {
		case w.events <- ev:
		case <-w.done:
			return
		}
	}
}

// changed records ev's state and reports whether it differs from the last one.
func (w *Watcher) changed(ev Event) bool {
	w.stateMu.Lock()
	defer w.stateMu.Unlock()

	prev, seen := w.known[ev.Path]
	if ev.Removed {
		delete(w.known, ev.Path)
		return seen
	}
	w.known[ev.Path] = ev.Hash
	return !seen || prev != ev.Hash
}

func (w *Watcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// HashFile computes the SHA-256 hash of a file using streaming.
func HashFile(path string) ([32]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, 0, err
	}
	defer f.Close()

	h := sha256.New()
	size, err := io.Copy(h, f)
	if err != nil {
		return [32]byte{}, 0, err
	}

	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return hash, size, nil
}

// WatchedPaths returns the absolute paths being watched.
func (w *Watcher) WatchedPaths() []string {
	return append([]string(nil), w.paths...)
}
