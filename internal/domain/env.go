package domain

import "github.com/Tobito320/ryxsurf/internal/ports"

// Env holds the collaborators shared by every node of one tree.
type Env struct {
	Engine   ports.Engine
	Executor ports.Executor
	Clock    ports.Clock

	// TabClosed runs after a tab has been removed for good.
	TabClosed func(tab *Tab)
	// LoadFailed receives engine failures of loads that completed after
	// Load already returned.
	LoadFailed func(tab *Tab, err error)

	changed func()
}

func (e *Env) executor() ports.Executor {
	if e.Executor == nil {
		return ports.InlineExecutor{}
	}
	return e.Executor
}

func (e *Env) clock() ports.Clock {
	if e.Clock == nil {
		return ports.SystemClock{}
	}
	return e.Clock
}

func (e *Env) notify() {
	if e.changed != nil {
		e.changed()
	}
}
