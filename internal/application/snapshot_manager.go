package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tobito320/ryxsurf/internal/domain"
	"github.com/Tobito320/ryxsurf/internal/ports"
)

var errNoImage = errors.New("engine returned no image")

// CaptureRequest is the loop-side view of a tab taken before capturing off
// the loop.
type CaptureRequest struct {
	TabID  string
	URL    string
	Title  string
	Handle ports.Handle
}

// NewCaptureRequest reads what a capture needs from tab. It reports false for
// tabs without an engine handle.
func NewCaptureRequest(tab *domain.Tab) (CaptureRequest, bool) {
	if tab == nil || !tab.Loaded() {
		return CaptureRequest{}, false
	}

	return CaptureRequest{
		TabID:  tab.ID(),
		URL:    tab.URL(),
		Title:  tab.Title(),
		Handle: tab.Handle(),
	}, true
}

// SnapshotManager captures tab images before unloading and keeps at most one
// artifact per tab.
type SnapshotManager struct {
	engine  ports.Engine
	store   ports.SnapshotStore
	enabled bool
	settings
}

func NewSnapshotManager(engine ports.Engine, store ports.SnapshotStore, enabled bool, opts ...Option) *SnapshotManager {
	return &SnapshotManager{
		engine:   engine,
		store:    store,
		enabled:  enabled && engine != nil && store != nil,
		settings: newSettings(opts),
	}
}

func (m *SnapshotManager) Enabled() bool { return m.enabled }

// NeedsSnapshot is true when the tab has no artifact or navigated since the
// last capture.
func (m *SnapshotManager) NeedsSnapshot(tab *domain.Tab) bool {
	return m.enabled && tab != nil && !tab.SnapshotCurrent()
}

// Capture grabs and stores an image. It touches no tree state and is safe to
// call off the loop.
func (m *SnapshotManager) Capture(ctx context.Context, req CaptureRequest) (string, error) {
	if !m.enabled {
		return "", nil
	}

	img, err := m.engine.CaptureSnapshot(ctx, req.Handle)
	if err == nil && img == nil {
		err = errNoImage
	}
	if err != nil {
		return "", &domain.ResourceError{Op: "capture snapshot", TabID: req.TabID, Kind: domain.ErrSnapshotCaptureFailed, Err: err}
	}

	ref, err := m.store.Write(ctx, img, ports.SnapshotMeta{
		TabID:      req.TabID,
		URL:        req.URL,
		Title:      req.Title,
		CapturedAt: m.clock.Now().UTC(),
	})
	if err != nil {
		return "", &domain.ResourceError{Op: "write snapshot", TabID: req.TabID, Kind: domain.ErrSnapshotCaptureFailed, Err: err}
	}

	return ref, nil
}

// Attach binds the result of Capture to tab on the loop. The superseded
// artifact is deleted; a tab closed meanwhile gets its new artifact deleted.
func (m *SnapshotManager) Attach(ctx context.Context, tab *domain.Tab, ref string, captureErr error) error {
	if captureErr != nil {
		m.metrics.SnapshotCaptured(false)
		m.logger.Warn().Err(captureErr).Str("tab_id", tab.ID()).Msg("snapshot capture failed")
		return captureErr
	}
	if ref == "" {
		return nil
	}
	m.metrics.SnapshotCaptured(true)

	if tab.Closed() {
		return m.DeleteSnapshot(ctx, ref)
	}

	previous := tab.SnapshotRef()
	tab.SetSnapshotRef(ref)
	if previous != "" && previous != ref {
		return m.DeleteSnapshot(ctx, previous)
	}

	return nil
}

// CreateSnapshot captures tab synchronously.
func (m *SnapshotManager) CreateSnapshot(ctx context.Context, tab *domain.Tab) (string, error) {
	if !m.enabled {
		return "", nil
	}

	req, ok := NewCaptureRequest(tab)
	if !ok {
		return "", &domain.ResourceError{Op: "capture snapshot", TabID: tab.ID(), Kind: domain.ErrSnapshotCaptureFailed, Err: domain.ErrNoEngine}
	}

	ref, err := m.Capture(ctx, req)
	if err := m.Attach(ctx, tab, ref, err); err != nil {
		return "", err
	}

	return ref, nil
}

func (m *SnapshotManager) DeleteSnapshot(ctx context.Context, ref string) error {
	if ref == "" || m.store == nil {
		return nil
	}
	if err := m.store.Delete(ctx, ref); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", ref, err)
	}
	return nil
}

// TabClosed removes the artifact of a destroyed tab. It is meant for
// domain.Env.TabClosed.
func (m *SnapshotManager) TabClosed(tab *domain.Tab) {
	ref := tab.SnapshotRef()
	if ref == "" {
		return
	}
	tab.ClearSnapshotRef()

	var err error
	m.executor.Go(func() {
		err = m.DeleteSnapshot(context.Background(), ref)
	}, func() {
		m.report(err)
	})
}
