// Package loop provides the single-threaded event loop that owns the tab tree.
// Expensive work runs on a bounded worker pool and reports back through Post.
package loop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

const (
	defaultWorkers   = 4
	defaultQueueSize = 64
)

var ErrStopped = errors.New("event loop stopped")

type Loop struct {
	tasks   chan func()
	stopped chan struct{}
	once    sync.Once

	workers  *semaphore.Weighted
	inFlight sync.WaitGroup
	logger   zerolog.Logger

	// pending holds Go completions that have not run yet. Completions left
	// over when the loop stops run in Wait.
	mu      sync.Mutex
	pending map[*completion]struct{}
}

type completion struct {
	once sync.Once
	fn   func()
}

var _ ports.Executor = (*Loop)(nil)

type Option func(*Loop)

func WithWorkers(n int64) Option {
	return func(l *Loop) {
		if n > 0 {
			l.workers = semaphore.NewWeighted(n)
		}
	}
}

func WithQueueSize(n int) Option {
	return func(l *Loop) {
		if n > 0 {
			l.tasks = make(chan func(), n)
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Loop) {
		l.logger = logger
	}
}

func New(opts ...Option) *Loop {
	l := &Loop{
		tasks:   make(chan func(), defaultQueueSize),
		stopped: make(chan struct{}),
		workers: semaphore.NewWeighted(defaultWorkers),
		logger:  zerolog.Nop(),
		pending: map[*completion]struct{}{},
	}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Run executes posted tasks until ctx is done. Tasks still queued at that
// point are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.tasks:
			fn()
		}
	}
}

func (l *Loop) stop() {
	l.once.Do(func() { close(l.stopped) })
}

func (l *Loop) isStopped() bool {
	select {
	case <-l.stopped:
		return true
	default:
		return false
	}
}

// Post queues fn for the loop. It never blocks once the loop has stopped.
func (l *Loop) Post(fn func()) {
	if l.isStopped() {
		l.logger.Debug().Msg("dropping task posted after loop stop")
		return
	}

	select {
	case l.tasks <- fn:
	case <-l.stopped:
		l.logger.Debug().Msg("dropping task posted after loop stop")
	}
}

// Do runs fn on the loop and waits for it to finish. It must not be called
// from the loop itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	if l.isStopped() {
		return ErrStopped
	}

	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		fn()
	}

	select {
	case l.tasks <- task:
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Go runs work on a worker goroutine and posts done back to the loop. A done
// that misses the loop because it stopped runs in Wait instead.
func (l *Loop) Go(work func(), done func()) {
	l.inFlight.Add(1)
	go func() {
		defer l.inFlight.Done()

		if err := l.workers.Acquire(context.Background(), 1); err != nil {
			return
		}
		work()
		l.workers.Release(1)

		if done == nil {
			return
		}
		c := &completion{fn: done}
		l.mu.Lock()
		l.pending[c] = struct{}{}
		l.mu.Unlock()
		l.Post(func() { l.finish(c) })
	}()
}

func (l *Loop) finish(c *completion) {
	l.mu.Lock()
	delete(l.pending, c)
	l.mu.Unlock()
	c.once.Do(c.fn)
}

// Wait blocks until every worker started through Go has finished. Once the
// loop has stopped, completions it never ran are run on the caller.
func (l *Loop) Wait() {
	l.inFlight.Wait()
	if !l.isStopped() {
		return
	}

	l.mu.Lock()
	leftover := make([]*completion, 0, len(l.pending))
	for c := range l.pending {
		leftover = append(leftover, c)
	}
	l.mu.Unlock()

	if len(leftover) > 0 {
		l.logger.Debug().Int("completions", len(leftover)).Msg("running completions after loop stop")
	}
	for _, c := range leftover {
		l.finish(c)
	}
}

// Every posts fn to the loop at each interval until stop is called.
func (l *Loop) Every(interval time.Duration, fn func()) (stop func()) {
	ticker := time.NewTicker(interval)
	quit := make(chan struct{})
	var stopOnce sync.Once

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.Post(fn)
			case <-quit:
				return
			case <-l.stopped:
				return
			}
		}
	}()

	return func() {
		stopOnce.Do(func() { close(quit) })
	}
}
