package query

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tanzil7890/schemarefly/internal/obslog"
)

// Watcher feeds file-system edits into a Cache's Inputs in
// language-server mode: an update to a file's text replaces its input,
// invalidating only its transitive dependents. One fsnotify.Watcher, a
// debounce window per path, and a stop channel for clean shutdown.
type Watcher struct {
	cache    *Cache
	fsw      *fsnotify.Watcher
	debounce time.Duration

	mu       sync.Mutex
	lastSeen map[string]time.Time

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewWatcher builds a Watcher that pushes changes under root (typically
// the project's models/ directory) into cache's Inputs.
func NewWatcher(cache *Cache, root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return fsw.Add(path)
		}
		return nil
	}); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		cache:    cache,
		fsw:      fsw,
		debounce: 250 * time.Millisecond,
		lastSeen: map[string]time.Time{},
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Start begins the watch loop in a background goroutine. Non-blocking.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop terminates the watch loop and closes the underlying fsnotify
// watcher, blocking until the loop goroutine has exited.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.fsw.Close()
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	log := obslog.For("query.watcher")
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if !w.shouldHandle(ev) {
				continue
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Sugar().Warnw("watcher error", "error", err)
		}
	}
}

func (w *Watcher) shouldHandle(ev fsnotify.Event) bool {
	if filepath.Ext(ev.Name) != ".sql" {
		return false
	}
	if !(ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0) {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	now := time.Now()
	if last, ok := w.lastSeen[ev.Name]; ok && now.Sub(last) < w.debounce {
		return false
	}
	w.lastSeen[ev.Name] = now
	return true
}

func (w *Watcher) handle(ev fsnotify.Event) {
	log := obslog.For("query.watcher")
	if ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.cache.Inputs.ClearFileText(ev.Name)
		log.Sugar().Debugw("file input cleared", "path", ev.Name)
		return
	}
	text, err := os.ReadFile(ev.Name)
	if err != nil {
		log.Sugar().Warnw("failed to read changed file", "path", ev.Name, "error", err)
		return
	}
	w.cache.Inputs.SetFileText(ev.Name, string(text))
	log.Sugar().Debugw("file input updated", "path", ev.Name)
}
