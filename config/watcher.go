package config

import (
	"errors"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/actionkit"
	"github.com/dshills/actionkit/guard"
	"github.com/dshills/actionkit/logging"
)

// ErrWatcherClosed is returned by operations on a closed Watcher.
var ErrWatcherClosed = errors.New("config watcher closed")

const defaultReloadDebounce = 250 * time.Millisecond

// Watcher watches a configuration file and re-applies it to a register
// when it changes. Events are debounced so editors that write in bursts
// trigger a single reload.
type Watcher struct {
	path     string
	register *actionkit.ActionRegister
	logger   logging.Logger

	watcher   *fsnotify.Watcher
	debouncer *guard.Debouncer
	onReload  func(*File, error)

	mu      sync.Mutex
	closed  bool
	closeCh chan struct{}
	wg      sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets the watcher's logger.
func WithLogger(logger logging.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithReloadDebounce sets the quiet period required after the last file
// event before the reload runs.
func WithReloadDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debouncer = guard.NewDebouncer(d)
		}
	}
}

// WithOnReload sets a callback invoked after each reload attempt with
// the loaded file and any error.
func WithOnReload(fn func(*File, error)) WatcherOption {
	return func(w *Watcher) {
		w.onReload = fn
	}
}

// NewWatcher starts watching the configuration file at path and applies
// changes to the given register. The file's directory is watched rather
// than the file itself, so atomic save-and-rename writes are seen.
func NewWatcher(path string, register *actionkit.ActionRegister, opts ...WatcherOption) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:      absPath,
		register:  register,
		logger:    logging.NoOpLogger{},
		debouncer: guard.NewDebouncer(defaultReloadDebounce),
		closeCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	w.watcher = fsw

	w.wg.Add(1)
	go w.processLoop()

	return w, nil
}

// Path returns the absolute path of the watched file.
func (w *Watcher) Path() string {
	return w.path
}

// Reload loads and applies the file immediately, bypassing the debounce.
func (w *Watcher) Reload() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return ErrWatcherClosed
	}
	w.mu.Unlock()

	return w.reload()
}

// Close stops the watcher. Any pending debounced reload is dropped.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.closeCh)
	w.mu.Unlock()

	w.debouncer.Cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) processLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.closeCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !w.relevant(event) {
				continue
			}
			w.debouncer.Trigger(func() {
				if err := w.reload(); err != nil {
					w.logger.Error("config reload failed", "path", w.path, "error", err)
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watch error", "path", w.path, "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Name != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) reload() error {
	file, err := Load(w.path)
	if err == nil && file != nil {
		err = file.Apply(w.register)
	}
	if w.onReload != nil {
		w.onReload(file, err)
	}
	if err == nil && file != nil {
		w.logger.Info("config reloaded", "path", w.path, "register", w.register.Name())
	}
	return err
}
