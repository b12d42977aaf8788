package domain

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

type fakeHandle struct {
	id  string
	url string
}

func (h *fakeHandle) HandleID() string { return h.id }

type fakeEngine struct {
	created   int
	destroyed []string
	navigated []string
	live      map[string]bool
	titles    map[string]func(string)
	createErr error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{live: map[string]bool{}, titles: map[string]func(string){}}
}

func (e *fakeEngine) Create(_ context.Context, url string) (ports.Handle, error) {
	if e.createErr != nil {
		return nil, e.createErr
	}
	e.created++
	h := &fakeHandle{id: fmt.Sprintf("h%d", e.created), url: url}
	e.live[h.id] = true
	return h, nil
}

func (e *fakeEngine) Destroy(h ports.Handle) error {
	if !e.live[h.HandleID()] {
		return errors.New("double destroy")
	}
	delete(e.live, h.HandleID())
	e.destroyed = append(e.destroyed, h.HandleID())
	return nil
}

func (e *fakeEngine) Navigate(_ context.Context, h ports.Handle, url string) error {
	e.navigated = append(e.navigated, h.HandleID()+" "+url)
	return nil
}

func (e *fakeEngine) CaptureSnapshot(context.Context, ports.Handle) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 4, 4)), nil
}

func (e *fakeEngine) OnTitleChanged(h ports.Handle, fn func(string)) {
	e.titles[h.HandleID()] = fn
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// deferredExecutor queues work so tests decide when completions land.
type deferredExecutor struct {
	queue []func()
}

func (e *deferredExecutor) Go(work func(), done func()) {
	e.queue = append(e.queue, func() {
		work()
		done()
	})
}

func (e *deferredExecutor) Post(fn func()) { fn() }

func (e *deferredExecutor) Drain() {
	queue := e.queue
	e.queue = nil
	for _, fn := range queue {
		fn()
	}
}

func newTestEnv() (*Env, *fakeEngine, *fakeClock) {
	engine := newFakeEngine()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	return &Env{Engine: engine, Clock: clock}, engine, clock
}
