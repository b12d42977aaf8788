package ports

import "time"

// Metrics receives lifecycle counters. Implementations must be safe for
// concurrent use.
type Metrics interface {
	SetLoadedTabs(n int)
	TabsUnloaded(n int)
	SnapshotCaptured(ok bool)
	SaveFinished(elapsed time.Duration, err error)
	SaveSkipped()
}

type NopMetrics struct{}

func (NopMetrics) SetLoadedTabs(int)                 {}
func (NopMetrics) TabsUnloaded(int)                  {}
func (NopMetrics) SnapshotCaptured(bool)             {}
func (NopMetrics) SaveFinished(time.Duration, error) {}
func (NopMetrics) SaveSkipped()                      {}
