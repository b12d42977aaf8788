package chromium

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Tobito320/ryxsurf/internal/ports"
)

const (
	DefaultNavigationTimeout = 30 * time.Second
	DefaultWidth             = 1280
	DefaultHeight            = 800
)

var ErrForeignHandle = errors.New("handle does not belong to this engine")

type Config struct {
	// ControlURL attaches to a running browser instead of launching one.
	ControlURL        string
	Bin               string
	Headless          bool
	NavigationTimeout time.Duration
	Width             int
	Height            int
}

type handle struct {
	id     string
	page   *rod.Page
	cancel context.CancelFunc
}

func (h *handle) HandleID() string { return h.id }

// Engine drives one Chromium instance, one page per loaded tab. The browser
// starts on the first Create.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.Mutex
	browser *rod.Browser
	handles map[string]*handle
}

var _ ports.Engine = (*Engine)(nil)

func New(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = DefaultNavigationTimeout
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = DefaultWidth, DefaultHeight
	}

	return &Engine{
		cfg:     cfg,
		logger:  logger,
		handles: map[string]*handle{},
	}
}

func (e *Engine) ensureStarted() (*rod.Browser, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.browser != nil {
		return e.browser, nil
	}

	controlURL := e.cfg.ControlURL
	if controlURL == "" {
		launch := launcher.New().Headless(e.cfg.Headless)
		if e.cfg.Bin != "" {
			launch = launch.Bin(e.cfg.Bin)
		}
		url, err := launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch browser: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	e.browser = browser
	e.logger.Info().Str("control_url", controlURL).Msg("browser connected")

	return browser, nil
}

// Create opens a blank page; the tab navigates it afterwards.
func (e *Engine) Create(ctx context.Context, _ string) (ports.Handle, error) {
	browser, err := e.ensureStarted()
	if err != nil {
		return nil, err
	}

	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	page = page.Context(context.Background())

	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             e.cfg.Width,
		Height:            e.cfg.Height,
		DeviceScaleFactor: 1,
	}).Call(page); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("set viewport: %w", err)
	}

	h := &handle{id: uuid.NewString(), page: page}

	e.mu.Lock()
	e.handles[h.id] = h
	e.mu.Unlock()

	return h, nil
}

func (e *Engine) lookup(h ports.Handle) (*handle, error) {
	if h == nil {
		return nil, ErrForeignHandle
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	found, ok := e.handles[h.HandleID()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrForeignHandle, h.HandleID())
	}
	return found, nil
}

func (e *Engine) Destroy(h ports.Handle) error {
	found, err := e.lookup(h)
	if err != nil {
		return err
	}

	e.mu.Lock()
	delete(e.handles, found.id)
	e.mu.Unlock()

	if found.cancel != nil {
		found.cancel()
	}
	if err := found.page.Close(); err != nil {
		return fmt.Errorf("close page: %w", err)
	}
	return nil
}

func (e *Engine) Navigate(ctx context.Context, h ports.Handle, url string) error {
	found, err := e.lookup(h)
	if err != nil {
		return err
	}

	if err := found.page.Context(ctx).Timeout(e.cfg.NavigationTimeout).Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// CaptureSnapshot returns the visible viewport, or nil when the page has
// not painted anything yet.
func (e *Engine) CaptureSnapshot(ctx context.Context, h ports.Handle) (image.Image, error) {
	found, err := e.lookup(h)
	if err != nil {
		return nil, err
	}

	data, err := found.page.Context(ctx).Screenshot(false, nil)
	if err != nil {
		return nil, fmt.Errorf("capture screenshot: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode screenshot: %w", err)
	}
	return img, nil
}

// OnTitleChanged calls fn from a browser event goroutine after every load.
// The subscription ends when the handle is destroyed.
func (e *Engine) OnTitleChanged(h ports.Handle, fn func(title string)) {
	found, err := e.lookup(h)
	if err != nil {
		e.logger.Warn().Err(err).Msg("title subscription skipped")
		return
	}

	eventCtx, cancel := context.WithCancel(context.Background())
	e.mu.Lock()
	found.cancel = cancel
	e.mu.Unlock()

	page := found.page.Context(eventCtx)
	emit := func() {
		info, err := page.Info()
		if err != nil {
			return
		}
		fn(info.Title)
	}

	wait := page.EachEvent(
		func(*proto.PageLoadEventFired) { emit() },
		func(*proto.PageFrameNavigated) { emit() },
	)
	go wait()
}

// Close destroys every page and the browser.
func (e *Engine) Close() error {
	e.mu.Lock()
	handles := e.handles
	e.handles = map[string]*handle{}
	browser := e.browser
	e.browser = nil
	e.mu.Unlock()

	for _, h := range handles {
		if h.cancel != nil {
			h.cancel()
		}
		_ = h.page.Close()
	}

	if browser == nil {
		return nil
	}
	if err := browser.Close(); err != nil {
		return fmt.Errorf("close browser: %w", err)
	}
	return nil
}
