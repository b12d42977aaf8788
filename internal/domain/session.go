package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

const OverviewSessionName = "Overview"

// noActive marks the active index of an empty collection.
const noActive = -1

type SessionState struct {
	ID          string
	Name        string
	Overview    bool
	ActiveIndex int
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Tabs        []TabState
}

// Session is an ordered group of tabs. The Overview session may be empty and
// is never removed automatically.
type Session struct {
	env *Env

	id        string
	name      string
	overview  bool
	tabs      []*Tab
	active    int
	createdAt time.Time
	updatedAt time.Time
}

func newSession(env *Env, name string, overview bool) *Session {
	now := env.clock().Now().Round(0)
	return &Session{
		env:       env,
		id:        uuid.NewString(),
		name:      name,
		overview:  overview,
		active:    noActive,
		createdAt: now,
		updatedAt: now,
	}
}

func (s *Session) ID() string           { return s.id }
func (s *Session) Name() string         { return s.name }
func (s *Session) IsOverview() bool     { return s.overview }
func (s *Session) CreatedAt() time.Time { return s.createdAt }
func (s *Session) UpdatedAt() time.Time { return s.updatedAt }
func (s *Session) Len() int             { return len(s.tabs) }
func (s *Session) IsEmpty() bool        { return len(s.tabs) == 0 }

func (s *Session) Rename(name string) {
	s.name = name
	s.touch()
}

// ActiveIndex returns the active tab index, false when the session is empty.
func (s *Session) ActiveIndex() (int, bool) {
	if s.active == noActive {
		return 0, false
	}
	return s.active, true
}

func (s *Session) ActiveTab() *Tab {
	if s.active == noActive {
		return nil
	}
	return s.tabs[s.active]
}

func (s *Session) Tab(index int) (*Tab, error) {
	if index < 0 || index >= len(s.tabs) {
		return nil, outOfRange("get tab", index, len(s.tabs))
	}
	return s.tabs[index], nil
}

func (s *Session) Tabs() []*Tab {
	return append([]*Tab(nil), s.tabs...)
}

// IndexOf returns the position of the tab with id, or -1.
func (s *Session) IndexOf(id string) int {
	for i, tab := range s.tabs {
		if tab.id == id {
			return i
		}
	}
	return -1
}

// AddTab appends an unloaded tab and makes it the active one.
func (s *Session) AddTab(url string) *Tab {
	tab := newTab(s.env, url)
	s.tabs = append(s.tabs, tab)
	s.active = len(s.tabs) - 1
	s.touch()

	return tab
}

// RemoveTab unloads and destroys the tab at index.
func (s *Session) RemoveTab(index int) error {
	if index < 0 || index >= len(s.tabs) {
		return outOfRange("remove tab", index, len(s.tabs))
	}

	tab := s.tabs[index]
	s.tabs = append(s.tabs[:index], s.tabs[index+1:]...)
	if len(s.tabs) == 0 {
		s.active = noActive
	} else {
		s.active = min(s.active, len(s.tabs)-1)
	}
	s.touch()

	return tab.close()
}

func (s *Session) SetActiveTab(ctx context.Context, index int) error {
	if index < 0 || index >= len(s.tabs) {
		return outOfRange("set active tab", index, len(s.tabs))
	}

	s.active = index
	s.touch()

	return s.tabs[index].Activate(ctx)
}

func (s *Session) closeAll() error {
	var errs []error
	for _, tab := range s.tabs {
		errs = append(errs, tab.close())
	}
	s.tabs = nil
	s.active = noActive

	return errors.Join(errs...)
}

func (s *Session) release(keep map[string]bool) error {
	var errs []error
	for _, tab := range s.tabs {
		errs = append(errs, tab.release(keep))
	}
	return errors.Join(errs...)
}

func (s *Session) touch() {
	s.updatedAt = s.env.clock().Now().Round(0)
	s.env.notify()
}

func (s *Session) State() SessionState {
	state := SessionState{
		ID:          s.id,
		Name:        s.name,
		Overview:    s.overview,
		ActiveIndex: s.active,
		CreatedAt:   s.createdAt,
		UpdatedAt:   s.updatedAt,
		Tabs:        make([]TabState, 0, len(s.tabs)),
	}
	for _, tab := range s.tabs {
		state.Tabs = append(state.Tabs, tab.State())
	}

	return state
}

func restoreSession(env *Env, state SessionState) (*Session, error) {
	if len(state.Tabs) == 0 && state.ActiveIndex != noActive {
		return nil, &ValidationError{Op: "restore session " + state.Name, Err: ErrInvalidTree}
	}
	if len(state.Tabs) > 0 && (state.ActiveIndex < 0 || state.ActiveIndex >= len(state.Tabs)) {
		return nil, outOfRange("restore session "+state.Name, state.ActiveIndex, len(state.Tabs))
	}

	session := &Session{
		env:       env,
		id:        state.ID,
		name:      state.Name,
		overview:  state.Overview,
		active:    state.ActiveIndex,
		createdAt: state.CreatedAt,
		updatedAt: state.UpdatedAt,
		tabs:      make([]*Tab, 0, len(state.Tabs)),
	}
	if session.id == "" {
		session.id = uuid.NewString()
	}
	for _, tabState := range state.Tabs {
		session.tabs = append(session.tabs, restoreTab(env, tabState))
	}

	return session, nil
}
