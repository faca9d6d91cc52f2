package config

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kesava/nanobasic/internal/event/topic"
)

// TopicConfigChanged is published after a successful live reload.
const TopicConfigChanged topic.Topic = "config.changed"

// ChangedEvent is the payload for TopicConfigChanged.
type ChangedEvent struct {
	Path   string  `json:"path"`
	Config *Config `json:"config"`
}

// EventTopic returns the event topic.
func (ChangedEvent) EventTopic() topic.Topic { return TopicConfigChanged }

// Publisher is the bus surface the watcher publishes through.
type Publisher interface {
	Publish(ctx context.Context, ev any) error
}

// Watcher reloads the configuration file when it changes on disk and
// publishes the result on the event bus. Editors replace files with
// rename+create sequences, so the watcher monitors the directory and
// filters to the configured file.
type Watcher struct {
	mu sync.Mutex

	path     string
	bus      Publisher
	logger   *log.Logger
	debounce time.Duration

	fsw    *fsnotify.Watcher
	closed bool
	done   chan struct{}
	wg     sync.WaitGroup
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period after a burst of file events.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithWatcherLogger sets the logger for reload failures.
func WithWatcherLogger(l *log.Logger) WatcherOption {
	return func(w *Watcher) {
		w.logger = l
	}
}

// NewWatcher watches the configuration file at path and publishes
// ChangedEvent on every successful reload. Reload failures are logged
// and the previous configuration stays in effect.
func NewWatcher(path string, bus Publisher, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		bus:      bus,
		logger:   log.Default(),
		debounce: 100 * time.Millisecond,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.fsw, err = fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
		w.fsw.Close()
		return nil, err
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Path returns the watched file path.
func (w *Watcher) Path() string {
	return w.path
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.done)
	w.mu.Unlock()

	err := w.fsw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Name != w.path {
				continue
			}
			if !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			// Debounce rapid write bursts from editors.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case <-timerC:
			w.reload()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Printf("config: watch error: %v", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Printf("config: reload failed, keeping previous: %v", err)
		return
	}
	if w.bus != nil {
		w.bus.Publish(context.Background(), ChangedEvent{Path: w.path, Config: cfg}) //nolint:errcheck // observer failures are logged by the bus
	}
}
