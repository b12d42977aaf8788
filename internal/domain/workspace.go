package domain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type WorkspaceState struct {
	ID          string
	Name        string
	ActiveIndex int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Sessions    []SessionState
}

// Workspace is an ordered group of sessions. Once accessed it always holds at
// least one session, the Overview being recreated when needed.
type Workspace struct {
	env *Env

	id        string
	name      string
	sessions  []*Session
	active    int
	createdAt time.Time
	updatedAt time.Time
}

func newWorkspace(env *Env, name string) *Workspace {
	now := env.clock().Now().Round(0)
	return &Workspace{
		env:       env,
		id:        uuid.NewString(),
		name:      name,
		active:    noActive,
		createdAt: now,
		updatedAt: now,
	}
}

func (w *Workspace) ID() string           { return w.id }
func (w *Workspace) Name() string         { return w.name }
func (w *Workspace) CreatedAt() time.Time { return w.createdAt }
func (w *Workspace) UpdatedAt() time.Time { return w.updatedAt }

func (w *Workspace) Len() int {
	w.ensureOverview()
	return len(w.sessions)
}

func (w *Workspace) Rename(name string) {
	w.name = name
	w.touch()
}

func (w *Workspace) Sessions() []*Session {
	w.ensureOverview()
	return append([]*Session(nil), w.sessions...)
}

func (w *Workspace) Session(index int) (*Session, error) {
	w.ensureOverview()
	if index < 0 || index >= len(w.sessions) {
		return nil, outOfRange("get session", index, len(w.sessions))
	}
	return w.sessions[index], nil
}

func (w *Workspace) ActiveIndex() int {
	w.ensureOverview()
	return w.active
}

func (w *Workspace) ActiveSession() *Session {
	w.ensureOverview()
	return w.sessions[w.active]
}

// Overview returns the Overview session, creating it at the front if absent.
func (w *Workspace) Overview() *Session {
	for _, session := range w.sessions {
		if session.overview {
			return session
		}
	}

	overview := newSession(w.env, OverviewSessionName, true)
	w.sessions = append([]*Session{overview}, w.sessions...)
	if w.active == noActive {
		w.active = 0
	} else {
		w.active++
	}
	w.touch()

	return overview
}

func (w *Workspace) ensureOverview() {
	if len(w.sessions) == 0 {
		w.Overview()
	}
}

// AddSession appends a session and makes it active. Names are unique within a
// workspace; a taken name gets a numeric suffix.
func (w *Workspace) AddSession(name string) *Session {
	w.ensureOverview()

	session := newSession(w.env, w.uniqueName(name), false)
	w.sessions = append(w.sessions, session)
	w.active = len(w.sessions) - 1
	w.touch()

	return session
}

func (w *Workspace) uniqueName(name string) string {
	taken := make(map[string]bool, len(w.sessions))
	for _, session := range w.sessions {
		taken[session.name] = true
	}
	if !taken[name] {
		return name
	}

	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s (%d)", name, n)
		if !taken[candidate] {
			return candidate
		}
	}
}

// RemoveSession destroys the session and its tabs. Removing the last session
// leaves a fresh Overview behind.
func (w *Workspace) RemoveSession(index int) error {
	w.ensureOverview()
	if index < 0 || index >= len(w.sessions) {
		return outOfRange("remove session", index, len(w.sessions))
	}

	session := w.sessions[index]
	w.sessions = append(w.sessions[:index], w.sessions[index+1:]...)
	err := session.closeAll()

	if len(w.sessions) == 0 {
		w.active = noActive
	} else {
		w.active = min(w.active, len(w.sessions)-1)
	}
	if session.overview || len(w.sessions) == 0 {
		w.Overview()
	}
	w.touch()

	return err
}

// SetActiveSession switches sessions and activates the newly visible tab.
func (w *Workspace) SetActiveSession(ctx context.Context, index int) error {
	w.ensureOverview()
	if index < 0 || index >= len(w.sessions) {
		return outOfRange("set active session", index, len(w.sessions))
	}

	w.active = index
	w.touch()

	if tab := w.sessions[index].ActiveTab(); tab != nil {
		return tab.Activate(ctx)
	}

	return nil
}

func (w *Workspace) indexOf(session *Session) int {
	for i, candidate := range w.sessions {
		if candidate == session {
			return i
		}
	}
	return -1
}

func (w *Workspace) closeAll() error {
	var errs []error
	for _, session := range w.sessions {
		errs = append(errs, session.closeAll())
	}
	w.sessions = nil
	w.active = noActive

	return errors.Join(errs...)
}

func (w *Workspace) release(keep map[string]bool) error {
	var errs []error
	for _, session := range w.sessions {
		errs = append(errs, session.release(keep))
	}
	return errors.Join(errs...)
}

func (w *Workspace) touch() {
	w.updatedAt = w.env.clock().Now().Round(0)
	w.env.notify()
}

func (w *Workspace) State() WorkspaceState {
	w.ensureOverview()

	state := WorkspaceState{
		ID:          w.id,
		Name:        w.name,
		ActiveIndex: w.active,
		CreatedAt:   w.createdAt,
		UpdatedAt:   w.updatedAt,
		Sessions:    make([]SessionState, 0, len(w.sessions)),
	}
	for _, session := range w.sessions {
		state.Sessions = append(state.Sessions, session.State())
	}

	return state
}

func restoreWorkspace(env *Env, state WorkspaceState) (*Workspace, error) {
	if len(state.Sessions) == 0 {
		return nil, &ValidationError{Op: "restore workspace " + state.Name, Err: ErrInvalidTree}
	}
	if state.ActiveIndex < 0 || state.ActiveIndex >= len(state.Sessions) {
		return nil, outOfRange("restore workspace "+state.Name, state.ActiveIndex, len(state.Sessions))
	}

	workspace := &Workspace{
		env:       env,
		id:        state.ID,
		name:      state.Name,
		active:    state.ActiveIndex,
		createdAt: state.CreatedAt,
		updatedAt: state.UpdatedAt,
		sessions:  make([]*Session, 0, len(state.Sessions)),
	}
	if workspace.id == "" {
		workspace.id = uuid.NewString()
	}
	for _, sessionState := range state.Sessions {
		session, err := restoreSession(env, sessionState)
		if err != nil {
			return nil, err
		}
		workspace.sessions = append(workspace.sessions, session)
	}

	return workspace, nil
}
