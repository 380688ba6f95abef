package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/varmesh/varmesh-go/internal/core/domain"
	"github.com/varmesh/varmesh-go/internal/core/vfile"
	"github.com/varmesh/varmesh-go/internal/telemetry/metric"
	"github.com/varmesh/varmesh-go/pkg/cmap"
)

const (
	// DefaultDebounce is how long a path must stay quiet after the last
	// write before it is reloaded and diffed.
	DefaultDebounce = 100 * time.Millisecond

	// DefaultQueueDepth bounds the pending event queue.
	DefaultQueueDepth = 64
)

// Watcher watches registered service files and emits change events.
type Watcher struct {
	fsw     *fsnotify.Watcher
	files   *cmap.Map[*vfile.VirtualFile]
	queue   chan domain.ChangeEvent
	logger  *slog.Logger
	metrics *metric.Metrics

	debounce time.Duration

	mu      sync.Mutex
	dirRefs map[string]int
	timers  map[string]*time.Timer
	started bool
	stopped bool

	done     chan struct{}
	stopOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		w.logger = logger
	}
}

// WithDebounce sets the per-path quiet interval.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithQueueDepth sets the pending event queue capacity.
func WithQueueDepth(n int) Option {
	return func(w *Watcher) {
		if n > 0 {
			w.queue = make(chan domain.ChangeEvent, n)
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metric.Metrics) Option {
	return func(w *Watcher) {
		w.metrics = m
	}
}

// New creates a watcher. Start must be called before events flow.
func New(opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, domain.ErrWatcherStopped.WithCause(err)
	}

	w := &Watcher{
		fsw:      fsw,
		files:    cmap.New[*vfile.VirtualFile](),
		queue:    make(chan domain.ChangeEvent, DefaultQueueDepth),
		logger:   slog.Default(),
		metrics:  metric.New(),
		debounce: DefaultDebounce,
		dirRefs:  make(map[string]int),
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Register starts watching the virtual file backed by path. The parent
// directory is subscribed once and shared between files in it.
func (w *Watcher) Register(path string, vf *vfile.VirtualFile) error {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return domain.ErrWatcherStopped
	}

	if _, exists := w.files.Get(path); exists {
		return domain.ErrDuplicateVariable.WithDetails(path)
	}

	dir := filepath.Dir(path)
	if w.dirRefs[dir] == 0 {
		if err := w.fsw.Add(dir); err != nil {
			w.logger.Error("failed to watch directory",
				"path", dir,
				"error", err,
			)
			return domain.ErrWatcherStopped.WithCause(err)
		}
	}
	w.dirRefs[dir]++
	w.files.Set(path, vf)

	w.logger.Debug("watching service file",
		"path", path,
		"service_id", vf.ServiceID(),
	)
	return nil
}

// Unregister stops watching path. The directory subscription is dropped
// when its last file is unregistered.
func (w *Watcher) Unregister(path string) {
	path = filepath.Clean(path)

	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.files.Delete(path) {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
		delete(w.timers, path)
	}

	dir := filepath.Dir(path)
	w.dirRefs[dir]--
	if w.dirRefs[dir] <= 0 {
		delete(w.dirRefs, dir)
		if !w.stopped {
			if err := w.fsw.Remove(dir); err != nil {
				w.logger.Debug("failed to unwatch directory",
					"path", dir,
					"error", err,
				)
			}
		}
	}
}

// Start launches the event loop. Calling it again is a no-op.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return domain.ErrWatcherStopped
	}
	if w.started {
		return nil
	}
	w.started = true

	go w.run()
	w.logger.Info("file watcher started")
	return nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.handleEvent(filepath.Clean(event.Name))
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("file watcher error",
				"error", err,
			)
		case <-w.done:
			return
		}
	}
}

// handleEvent re-arms the debounce timer for a registered path. The flush
// runs only after the path has been quiet for the debounce interval, so a
// burst of writes collapses into one diff pass.
func (w *Watcher) handleEvent(path string) {
	if _, ok := w.files.Get(path); !ok {
		return
	}
	w.metrics.WatchEvents.Inc()

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.flush(path)
	})
}

// flush reloads the file, diffs against the shadow, and queues one event
// covering everything that changed. The shadow is left untouched here, so
// a dropped or unconsumed event is not lost: the same ranges show up again
// on the next flush.
func (w *Watcher) flush(path string) {
	select {
	case <-w.done:
		return
	default:
	}

	vf, ok := w.files.Get(path)
	if !ok {
		return
	}

	if err := vf.ReloadFromAccessor(); err != nil {
		w.logger.Error("failed to reload service file",
			"path", path,
			"service_id", vf.ServiceID(),
			"error", err,
		)
		return
	}

	start := time.Now()
	names, ranges := vf.ChangedVariables()
	w.metrics.DiffPasses.Inc()
	w.metrics.DiffDuration.Observe(time.Since(start).Seconds())
	if len(ranges) == 0 {
		return
	}

	var changed uint64
	for _, r := range ranges {
		changed += r.Len()
	}
	w.metrics.ChangedBytes.Add(float64(changed))

	ev := domain.ChangeEvent{
		ServiceID: vf.ServiceID(),
		Path:      path,
		Variables: names,
		Ranges:    ranges,
	}

	select {
	case w.queue <- ev:
		w.metrics.EventsEmitted.Inc()
		w.metrics.QueueDepth.Set(float64(len(w.queue)))
	default:
		w.metrics.EventsDropped.Inc()
		w.logger.Warn("event queue full, dropping change event",
			"path", path,
			"service_id", vf.ServiceID(),
		)
	}
}

// Next blocks for the next change event. It returns the context error on
// cancellation and ErrWatcherStopped once Stop has been called and the
// queue is drained.
func (w *Watcher) Next(ctx context.Context) (domain.ChangeEvent, error) {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return domain.ChangeEvent{}, domain.ErrWatcherNotRunning
	}

	select {
	case ev := <-w.queue:
		w.metrics.QueueDepth.Set(float64(len(w.queue)))
		return ev, nil
	default:
	}

	select {
	case ev := <-w.queue:
		w.metrics.QueueDepth.Set(float64(len(w.queue)))
		return ev, nil
	case <-ctx.Done():
		return domain.ChangeEvent{}, ctx.Err()
	case <-w.done:
		return domain.ChangeEvent{}, domain.ErrWatcherStopped
	}
}

// TryNext returns a pending event without blocking.
func (w *Watcher) TryNext() (domain.ChangeEvent, bool) {
	select {
	case ev := <-w.queue:
		w.metrics.QueueDepth.Set(float64(len(w.queue)))
		return ev, true
	default:
		return domain.ChangeEvent{}, false
	}
}

// Stop tears the watcher down and wakes blocked consumers. Idempotent.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		w.stopped = true
		for path, t := range w.timers {
			t.Stop()
			delete(w.timers, path)
		}
		w.mu.Unlock()

		close(w.done)
		if err := w.fsw.Close(); err != nil {
			w.logger.Debug("failed to close fsnotify handle",
				"error", err,
			)
		}
		w.logger.Info("file watcher stopped")
	})
}
