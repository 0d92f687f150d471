package am

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/teranos/capgen/errors"
	"github.com/teranos/capgen/logger"
)

// DefaultDebounce collapses bursts of file events into one change notification
const DefaultDebounce = 500 * time.Millisecond

// ChangeCallback receives the sorted paths that changed during one debounce window
type ChangeCallback func(paths []string)

// Watcher watches directories and files for changes and notifies callbacks.
// Only Write, Create, Remove and Rename events of paths accepted by the
// match function count; config backups are always ignored.
type Watcher struct {
	watcher        *fsnotify.Watcher
	match          func(path string) bool
	logger         *zap.SugaredLogger
	callbacks      []ChangeCallback
	mu             sync.Mutex
	pending        map[string]bool
	debounceTimer  *time.Timer
	debouncePeriod time.Duration
	done           chan struct{}
	stopOnce       sync.Once
}

// NewWatcher creates a watcher over paths. A nil match accepts every path.
func NewWatcher(paths []string, match func(path string) bool, log *zap.SugaredLogger) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}

	for _, p := range paths {
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return nil, errors.Wrapf(err, "failed to watch %s", p)
		}
	}

	if match == nil {
		match = func(string) bool { return true }
	}
	return &Watcher{
		watcher:        watcher,
		match:          match,
		logger:         logger.OrComponent(log, "watch"),
		pending:        make(map[string]bool),
		debouncePeriod: DefaultDebounce,
		done:           make(chan struct{}),
	}, nil
}

// SetDebounce changes the debounce period; call before Start
func (w *Watcher) SetDebounce(d time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.debouncePeriod = d
}

// OnChange registers a callback to be called after a debounced change
func (w *Watcher) OnChange(callback ChangeCallback) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.watchLoop()
}

// watchLoop monitors file system events
func (w *Watcher) watchLoop() {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&relevant == 0 || isBackupFile(event.Name) || !w.match(event.Name) {
				continue
			}
			w.logger.Debugw("Watcher detected change",
				logger.FieldFile, event.Name,
				"op", event.Op.String())
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warnw("Watcher error",
				logger.FieldError, err)

		case <-w.done:
			return
		}
	}
}

// schedule debounces rapid file changes
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[path] = true
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debouncePeriod, w.fire)
}

// fire hands the pending paths to every callback
func (w *Watcher) fire() {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return
	default:
	}
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]bool)
	callbacks := make([]ChangeCallback, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	sort.Strings(paths)
	for _, callback := range callbacks {
		callback(paths)
	}
}

// Stop stops watching. Pending notifications are discarded.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.mu.Lock()
		close(w.done)
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()
		err = w.watcher.Close()
	})
	return err
}

// isBackupFile checks if the file is a config backup (.back1, .back2, .back3)
func isBackupFile(path string) bool {
	base := filepath.Base(path)
	i := strings.LastIndex(base, ".back")
	if i < 0 {
		return false
	}
	n := base[i+len(".back"):]
	return len(n) == 1 && n[0] >= '1' && n[0] <= '0'+backupCount
}
