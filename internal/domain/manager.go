package domain

import (
	"context"
	"errors"
)

const DefaultWorkspaceName = "Main"

// TreeState is the persistable shape of the whole tree.
type TreeState struct {
	Workspaces   []WorkspaceState
	CurrentIndex int
}

// TabRef locates a tab inside the tree during a walk.
type TabRef struct {
	Workspace int
	Session   int
	Index     int
	Tab       *Tab
	// Visible is true only for the active tab of the active session of the
	// current workspace.
	Visible bool
}

// SessionManager is the root of the tree. It is created by the entry point
// and handed to every component that needs the tree; all calls must come
// from the event loop.
type SessionManager struct {
	env *Env

	workspaces []*Workspace
	current    int

	listeners    map[int]func()
	nextListener int
}

// NewSessionManager builds the default tree: one "Main" workspace with its
// Overview session.
func NewSessionManager(env *Env) *SessionManager {
	if env == nil {
		env = &Env{}
	}

	m := &SessionManager{
		env:       env,
		current:   noActive,
		listeners: map[int]func(){},
	}
	env.changed = m.notify
	m.ensureWorkspace()

	return m
}

func (m *SessionManager) Env() *Env { return m.env }

// Subscribe registers fn for tree-changed notifications.
func (m *SessionManager) Subscribe(fn func()) (unsubscribe func()) {
	id := m.nextListener
	m.nextListener++
	m.listeners[id] = fn

	return func() {
		delete(m.listeners, id)
	}
}

func (m *SessionManager) notify() {
	for _, fn := range m.listeners {
		fn()
	}
}

func (m *SessionManager) ensureWorkspace() {
	if len(m.workspaces) > 0 {
		return
	}

	workspace := newWorkspace(m.env, DefaultWorkspaceName)
	workspace.ensureOverview()
	m.workspaces = []*Workspace{workspace}
	m.current = 0
	m.notify()
}

func (m *SessionManager) Workspaces() []*Workspace {
	m.ensureWorkspace()
	return append([]*Workspace(nil), m.workspaces...)
}

func (m *SessionManager) Workspace(index int) (*Workspace, error) {
	m.ensureWorkspace()
	if index < 0 || index >= len(m.workspaces) {
		return nil, outOfRange("get workspace", index, len(m.workspaces))
	}
	return m.workspaces[index], nil
}

func (m *SessionManager) CurrentIndex() int {
	m.ensureWorkspace()
	return m.current
}

func (m *SessionManager) CurrentWorkspace() *Workspace {
	m.ensureWorkspace()
	return m.workspaces[m.current]
}

func (m *SessionManager) CurrentSession() *Session {
	return m.CurrentWorkspace().ActiveSession()
}

// CurrentTab returns the visible tab, nil when the current session is empty.
func (m *SessionManager) CurrentTab() *Tab {
	return m.CurrentSession().ActiveTab()
}

func (m *SessionManager) AddWorkspace(name string) *Workspace {
	m.ensureWorkspace()

	workspace := newWorkspace(m.env, name)
	workspace.ensureOverview()
	m.workspaces = append(m.workspaces, workspace)
	m.notify()

	return workspace
}

// RemoveWorkspace destroys a workspace; removing the last one recreates the
// default tree.
func (m *SessionManager) RemoveWorkspace(ctx context.Context, index int) error {
	m.ensureWorkspace()
	if index < 0 || index >= len(m.workspaces) {
		return outOfRange("remove workspace", index, len(m.workspaces))
	}

	workspace := m.workspaces[index]
	m.workspaces = append(m.workspaces[:index], m.workspaces[index+1:]...)
	err := workspace.closeAll()

	wasCurrent := index == m.current
	switch {
	case len(m.workspaces) == 0:
		m.current = noActive
		m.ensureWorkspace()
	case index < m.current:
		m.current--
	default:
		m.current = min(m.current, len(m.workspaces)-1)
	}
	m.notify()

	if wasCurrent {
		err = errors.Join(err, m.activateCurrent(ctx))
	}

	return err
}

func (m *SessionManager) SwitchWorkspace(ctx context.Context, index int) error {
	m.ensureWorkspace()
	if index < 0 || index >= len(m.workspaces) {
		return outOfRange("switch workspace", index, len(m.workspaces))
	}

	m.current = index
	m.notify()

	return m.activateCurrent(ctx)
}

func (m *SessionManager) SwitchSession(ctx context.Context, index int) error {
	return m.CurrentWorkspace().SetActiveSession(ctx, index)
}

// RemoveSession removes session index of the current workspace and activates
// the tab that becomes visible.
func (m *SessionManager) RemoveSession(ctx context.Context, index int) error {
	err := m.CurrentWorkspace().RemoveSession(index)
	m.notify()

	return errors.Join(err, m.activateCurrent(ctx))
}

func (m *SessionManager) SwitchTab(ctx context.Context, index int) error {
	return m.CurrentSession().SetActiveTab(ctx, index)
}

// NewTab opens url in the current session and activates it.
func (m *SessionManager) NewTab(ctx context.Context, url string) (*Tab, error) {
	tab := m.CurrentSession().AddTab(url)
	return tab, tab.Activate(ctx)
}

// CloseCurrentTab removes the visible tab. A non-overview session left empty
// is removed as well. The tab that becomes visible is activated.
func (m *SessionManager) CloseCurrentTab(ctx context.Context) error {
	workspace := m.CurrentWorkspace()
	session := workspace.ActiveSession()

	index, ok := session.ActiveIndex()
	if !ok {
		return nil
	}

	err := session.RemoveTab(index)
	if session.IsEmpty() && !session.IsOverview() {
		if position := workspace.indexOf(session); position >= 0 {
			err = errors.Join(err, workspace.RemoveSession(position))
		}
	}

	return errors.Join(err, m.activateCurrent(ctx))
}

func (m *SessionManager) NextTab(ctx context.Context) error {
	return m.stepTab(ctx, 1)
}

func (m *SessionManager) PreviousTab(ctx context.Context) error {
	return m.stepTab(ctx, -1)
}

func (m *SessionManager) stepTab(ctx context.Context, delta int) error {
	session := m.CurrentSession()
	index, ok := session.ActiveIndex()
	if !ok {
		return nil
	}

	return session.SetActiveTab(ctx, wrap(index+delta, session.Len()))
}

func (m *SessionManager) NextSession(ctx context.Context) error {
	return m.stepSession(ctx, 1)
}

func (m *SessionManager) PreviousSession(ctx context.Context) error {
	return m.stepSession(ctx, -1)
}

func (m *SessionManager) stepSession(ctx context.Context, delta int) error {
	workspace := m.CurrentWorkspace()
	return workspace.SetActiveSession(ctx, wrap(workspace.ActiveIndex()+delta, workspace.Len()))
}

func wrap(index, length int) int {
	return ((index % length) + length) % length
}

func (m *SessionManager) activateCurrent(ctx context.Context) error {
	if tab := m.CurrentTab(); tab != nil {
		return tab.Activate(ctx)
	}
	return nil
}

// Walk calls fn for every tab in tree order until fn returns false.
func (m *SessionManager) Walk(fn func(TabRef) bool) {
	m.ensureWorkspace()

	visible := m.CurrentTab()
	for wi, workspace := range m.workspaces {
		for si, session := range workspace.sessions {
			for ti, tab := range session.tabs {
				ref := TabRef{Workspace: wi, Session: si, Index: ti, Tab: tab, Visible: tab == visible}
				if !fn(ref) {
					return
				}
			}
		}
	}
}

// FindTab returns the tab with id anywhere in the tree.
func (m *SessionManager) FindTab(id string) (TabRef, error) {
	var found TabRef
	var ok bool
	m.Walk(func(ref TabRef) bool {
		if ref.Tab.id == id {
			found, ok = ref, true
			return false
		}
		return true
	})
	if !ok {
		return TabRef{}, &ValidationError{Op: "find tab " + id, Err: ErrTabNotFound}
	}

	return found, nil
}

func (m *SessionManager) LoadedCount() int {
	count := 0
	m.Walk(func(ref TabRef) bool {
		if ref.Tab.Loaded() {
			count++
		}
		return true
	})
	return count
}

// IsPristine reports whether the tree is still the untouched default.
func (m *SessionManager) IsPristine() bool {
	m.ensureWorkspace()
	if len(m.workspaces) != 1 || m.workspaces[0].name != DefaultWorkspaceName {
		return false
	}

	sessions := m.workspaces[0].sessions
	return len(sessions) == 1 && sessions[0].overview && sessions[0].IsEmpty()
}

// Reset drops every workspace, releasing engine handles, and optionally
// rebuilds the default tree.
func (m *SessionManager) Reset(createDefault bool) error {
	err := m.releaseAll(nil)
	m.workspaces = nil
	m.current = noActive
	if createDefault {
		m.ensureWorkspace()
	}
	m.notify()

	return err
}

// releaseAll releases the current tree. Snapshot artifacts referenced by
// next are kept.
func (m *SessionManager) releaseAll(next []*Workspace) error {
	keep := map[string]bool{}
	for _, workspace := range next {
		for _, session := range workspace.sessions {
			for _, tab := range session.tabs {
				if tab.snapshotRef != "" {
					keep[tab.snapshotRef] = true
				}
			}
		}
	}

	var errs []error
	for _, workspace := range m.workspaces {
		errs = append(errs, workspace.release(keep))
	}
	return errors.Join(errs...)
}

func (m *SessionManager) State() TreeState {
	m.ensureWorkspace()

	state := TreeState{
		CurrentIndex: m.current,
		Workspaces:   make([]WorkspaceState, 0, len(m.workspaces)),
	}
	for _, workspace := range m.workspaces {
		state.Workspaces = append(state.Workspaces, workspace.State())
	}

	return state
}

// Restore builds a fresh tree from state and swaps it in. Every restored tab
// starts unloaded. On a validation error the current tree is left untouched.
func (m *SessionManager) Restore(state TreeState) error {
	if len(state.Workspaces) == 0 {
		return &ValidationError{Op: "restore tree", Err: ErrInvalidTree}
	}
	if state.CurrentIndex < 0 || state.CurrentIndex >= len(state.Workspaces) {
		return outOfRange("restore tree", state.CurrentIndex, len(state.Workspaces))
	}

	workspaces := make([]*Workspace, 0, len(state.Workspaces))
	for _, workspaceState := range state.Workspaces {
		workspace, err := restoreWorkspace(m.env, workspaceState)
		if err != nil {
			return err
		}
		workspaces = append(workspaces, workspace)
	}

	err := m.releaseAll(workspaces)
	m.workspaces = workspaces
	m.current = state.CurrentIndex
	m.notify()

	return err
}
