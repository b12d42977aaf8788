// Package detached provides an engine without a browser. One-shot CLI
// commands use it to edit the stored tree without rendering anything.
package detached

import (
	"context"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

type handle struct {
	id  string
	url string
}

func (h *handle) HandleID() string { return h.id }

type Engine struct {
	mu   sync.Mutex
	live map[string]*handle
}

var _ ports.Engine = (*Engine)(nil)

func New() *Engine {
	return &Engine{live: map[string]*handle{}}
}

func (e *Engine) Create(_ context.Context, url string) (ports.Handle, error) {
	h := &handle{id: uuid.NewString(), url: url}

	e.mu.Lock()
	e.live[h.id] = h
	e.mu.Unlock()

	return h, nil
}

func (e *Engine) Destroy(h ports.Handle) error {
	e.mu.Lock()
	delete(e.live, h.HandleID())
	e.mu.Unlock()
	return nil
}

func (e *Engine) Navigate(_ context.Context, h ports.Handle, url string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if found, ok := e.live[h.HandleID()]; ok {
		found.url = url
	}
	return nil
}

// CaptureSnapshot never has an image to offer.
func (e *Engine) CaptureSnapshot(context.Context, ports.Handle) (image.Image, error) {
	return nil, nil
}

func (e *Engine) OnTitleChanged(ports.Handle, func(string)) {}

// Live reports how many handles are currently open.
func (e *Engine) Live() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.live)
}

// Close drops every handle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	clear(e.live)
	return nil
}
