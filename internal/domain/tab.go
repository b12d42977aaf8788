package domain

import (
	"context"
	"errors"
	"time"

	"github.com/Tobito320/ryxsurf/internal/ports"
	"github.com/google/uuid"
)

const DefaultTabTitle = "New Tab"

var errNilHandle = errors.New("engine returned no handle")

// TabState is the persistable part of a tab.
type TabState struct {
	ID          string
	URL         string
	Title       string
	LastActive  time.Time
	SnapshotRef string
}

// Tab is one addressable page. It owns its engine handle only while loaded.
type Tab struct {
	env *Env

	id    string
	url   string
	title string

	lastActiveMonotonic time.Time
	lastActiveWallClock time.Time

	handle  ports.Handle
	pending bool
	// generation invalidates in-flight creations when the tab is unloaded
	// or closed before they resolve.
	generation uint64
	closed     bool

	snapshotRef string
	snapshotURL string
}

func newTab(env *Env, url string) *Tab {
	return &Tab{
		env:   env,
		id:    uuid.NewString(),
		url:   url,
		title: DefaultTabTitle,
	}
}

func restoreTab(env *Env, state TabState) *Tab {
	tab := &Tab{
		env:                 env,
		id:                  state.ID,
		url:                 state.URL,
		title:               state.Title,
		lastActiveWallClock: state.LastActive,
		snapshotRef:         state.SnapshotRef,
		snapshotURL:         state.URL,
	}
	if tab.id == "" {
		tab.id = uuid.NewString()
	}
	if tab.title == "" {
		tab.title = DefaultTabTitle
	}

	return tab
}

func (t *Tab) ID() string    { return t.id }
func (t *Tab) URL() string   { return t.url }
func (t *Tab) Title() string { return t.title }

// Loaded reports whether an engine handle is bound to the tab.
func (t *Tab) Loaded() bool { return t.handle != nil }

// Pending reports whether a handle creation is in flight.
func (t *Tab) Pending() bool { return t.pending }

func (t *Tab) Closed() bool { return t.closed }

func (t *Tab) Handle() ports.Handle { return t.handle }

// LastActive is the monotonic activation stamp used for idle computation. It
// is zero for tabs never activated since restore.
func (t *Tab) LastActive() time.Time { return t.lastActiveMonotonic }

func (t *Tab) LastActiveWallClock() time.Time { return t.lastActiveWallClock }

func (t *Tab) SnapshotRef() string { return t.snapshotRef }

func (t *Tab) SetURL(url string) {
	if t.url == url {
		return
	}
	t.url = url
	t.env.notify()
}

func (t *Tab) SetTitle(title string) {
	if t.title == title {
		return
	}
	t.title = title
	t.env.notify()
}

// SetSnapshotRef records a fresh artifact for the tab's current URL.
func (t *Tab) SetSnapshotRef(ref string) {
	t.snapshotRef = ref
	t.snapshotURL = t.url
}

func (t *Tab) ClearSnapshotRef() {
	t.snapshotRef = ""
	t.snapshotURL = ""
}

// SnapshotCurrent reports whether the stored artifact still matches the page.
func (t *Tab) SnapshotCurrent() bool {
	return t.snapshotRef != "" && t.snapshotURL == t.url
}

// Navigate points the tab at url, driving the engine when loaded.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	t.SetURL(url)
	if t.handle == nil {
		return nil
	}

	if err := t.env.Engine.Navigate(ctx, t.handle, url); err != nil {
		return &ResourceError{Op: "navigate", TabID: t.id, Kind: ErrNavigationFailed, Err: err}
	}

	return nil
}

// Activate stamps recency and loads the tab when needed.
func (t *Tab) Activate(ctx context.Context) error {
	now := t.env.clock().Now()
	t.lastActiveMonotonic = now
	t.lastActiveWallClock = now.Round(0)

	return t.Load(ctx)
}

// Load creates and navigates an engine handle. Loading an already loaded or
// pending tab is a no-op. With an asynchronous executor the error of a late
// completion goes to Env.LoadFailed instead of the return value.
func (t *Tab) Load(ctx context.Context) error {
	if t.closed {
		return &ValidationError{Op: "load tab", Err: ErrTabClosed}
	}
	if t.handle != nil || t.pending {
		return nil
	}

	engine := t.env.Engine
	if engine == nil {
		return &ResourceError{Op: "load", TabID: t.id, Kind: ErrEngineCreateFailed, Err: ErrNoEngine}
	}

	t.pending = true
	t.generation++
	generation := t.generation
	url := t.url

	var (
		handle   ports.Handle
		loadErr  error
		bindErr  error
		returned bool
	)

	t.env.executor().Go(func() {
		handle, loadErr = createAndNavigate(ctx, engine, url)
	}, func() {
		bindErr = t.bind(generation, handle, loadErr)
		if returned && bindErr != nil && t.env.LoadFailed != nil {
			t.env.LoadFailed(t, bindErr)
		}
	})

	returned = true
	return bindErr
}

func createAndNavigate(ctx context.Context, engine ports.Engine, url string) (ports.Handle, error) {
	handle, err := engine.Create(ctx, url)
	if err != nil {
		return nil, err
	}
	if handle == nil {
		return nil, errNilHandle
	}

	if err := engine.Navigate(ctx, handle, url); err != nil {
		return nil, errors.Join(err, engine.Destroy(handle))
	}

	return handle, nil
}

func (t *Tab) bind(generation uint64, handle ports.Handle, err error) error {
	engine := t.env.Engine

	if generation != t.generation || t.closed {
		if handle != nil {
			_ = engine.Destroy(handle)
		}
		return nil
	}

	t.pending = false
	if err != nil {
		return &ResourceError{Op: "load", TabID: t.id, Kind: ErrEngineCreateFailed, Err: err}
	}

	t.handle = handle
	executor := t.env.executor()
	engine.OnTitleChanged(handle, func(title string) {
		executor.Post(func() {
			if t.handle == handle {
				t.SetTitle(title)
			}
		})
	})
	t.env.notify()

	return nil
}

// Unload destroys the engine handle and keeps the metadata. A pending creation
// is abandoned and its handle destroyed when it resolves.
func (t *Tab) Unload() error {
	if t.pending {
		t.pending = false
		t.generation++
	}
	if t.handle == nil {
		return nil
	}

	handle := t.handle
	t.handle = nil
	t.env.notify()

	if err := t.env.Engine.Destroy(handle); err != nil {
		return &ResourceError{Op: "unload", TabID: t.id, Kind: ErrEngineDestroyFailed, Err: err}
	}

	return nil
}

func (t *Tab) close() error {
	err := t.Unload()
	t.closed = true
	if t.env.TabClosed != nil {
		t.env.TabClosed(t)
	}
	return err
}

// release drops the handle when the whole tree is replaced. The snapshot
// artifact survives only when keep names it.
func (t *Tab) release(keep map[string]bool) error {
	err := t.Unload()
	t.closed = true
	if t.snapshotRef != "" && !keep[t.snapshotRef] && t.env.TabClosed != nil {
		t.env.TabClosed(t)
	}
	return err
}

func (t *Tab) State() TabState {
	return TabState{
		ID:          t.id,
		URL:         t.url,
		Title:       t.title,
		LastActive:  t.lastActiveWallClock,
		SnapshotRef: t.snapshotRef,
	}
}
