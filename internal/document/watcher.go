package document

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"pdfseek/internal/eventbus"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle
const DefaultDebounce = 200 * time.Millisecond

// Watcher publishes DocumentChangedEvent when the file at a path changes
type Watcher struct {
	bus      eventbus.EventBus
	path     string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	wg    sync.WaitGroup
}

// NewWatcher watches path. The parent directory is watched so that
// editors replacing the file atomically are noticed too.
func NewWatcher(bus eventbus.EventBus, path string, debounce time.Duration) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		bus:      bus,
		path:     abs,
		debounce: debounce,
		watcher:  fw,
	}, nil
}

// Start processes file events on a new goroutine until ctx is done or the
// watcher is closed
func (w *Watcher) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("Watcher error for %s: %v", w.path, err)
			w.bus.Publish(eventbus.ErrorEvent{
				Message: fmt.Sprintf("Watching %s failed", filepath.Base(w.path)),
				Err:     err,
			})
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		log.Printf("Document changed on disk: %s", w.path)
		w.bus.Publish(eventbus.DocumentChangedEvent{Path: w.path})
	})
}

// Close stops watching
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
