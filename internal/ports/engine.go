package ports

import (
	"context"
	"image"
	"time"
)

// Handle is an opaque rendering-engine instance owned by exactly one tab.
type Handle interface {
	HandleID() string
}

// Engine is the rendering-engine factory. CaptureSnapshot returns a nil image
// when the handle has nothing to show yet.
type Engine interface {
	Create(ctx context.Context, url string) (Handle, error)
	Destroy(h Handle) error
	Navigate(ctx context.Context, h Handle, url string) error
	CaptureSnapshot(ctx context.Context, h Handle) (image.Image, error)
	OnTitleChanged(h Handle, fn func(title string))
}

// Executor runs work off the event loop and hands completions back to it.
type Executor interface {
	Go(work func(), done func())
	Post(fn func())
}

// Scheduler runs fn periodically on the event loop.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
}

// InlineExecutor runs everything on the calling goroutine.
type InlineExecutor struct{}

func (InlineExecutor) Go(work func(), done func()) {
	work()
	if done != nil {
		done()
	}
}

func (InlineExecutor) Post(fn func()) {
	fn()
}
