package application

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/Tobito320/ryxsurf/internal/domain"
	"github.com/Tobito320/ryxsurf/internal/ports"
)

const DefaultUnloadCheckInterval = 60 * time.Second

type UnloadPolicy struct {
	Timeout    time.Duration
	MaxLoaded  int
	Aggressive bool
}

var DefaultUnloadPolicy = UnloadPolicy{
	Timeout:   300 * time.Second,
	MaxLoaded: 10,
}

// UnloadReport describes one pass. Selected lists the tab ids handed to
// eviction; with an asynchronous executor they unload once their snapshot
// lands.
type UnloadReport struct {
	Loaded     int
	Candidates int
	Selected   []string
}

// TabUnloadManager releases engine handles of idle tabs. The visible tab is
// never evicted.
type TabUnloadManager struct {
	tree      *domain.SessionManager
	snapshots *SnapshotManager
	policy    UnloadPolicy
	evicting  map[string]bool
	settings
}

func NewTabUnloadManager(tree *domain.SessionManager, snapshots *SnapshotManager, policy UnloadPolicy, opts ...Option) *TabUnloadManager {
	return &TabUnloadManager{
		tree:      tree,
		snapshots: snapshots,
		policy:    policy,
		evicting:  map[string]bool{},
		settings:  newSettings(opts),
	}
}

func (m *TabUnloadManager) Policy() UnloadPolicy { return m.policy }

func (m *TabUnloadManager) SetPolicy(policy UnloadPolicy) {
	m.policy = policy
	m.logger.Info().
		Dur("timeout", policy.Timeout).
		Int("max_loaded", policy.MaxLoaded).
		Bool("aggressive", policy.Aggressive).
		Msg("unload policy updated")
}

type candidate struct {
	tab  *domain.Tab
	idle time.Duration
}

// RunPass evicts idle tabs according to the policy. Synchronous unload
// failures are joined into the returned error.
func (m *TabUnloadManager) RunPass(ctx context.Context) (UnloadReport, error) {
	now := m.clock.Now()

	var (
		report     UnloadReport
		candidates []candidate
		inFlight   int
	)
	m.tree.Walk(func(ref domain.TabRef) bool {
		if !ref.Tab.Loaded() {
			return true
		}
		report.Loaded++
		if m.evicting[ref.Tab.ID()] {
			inFlight++
			return true
		}
		if ref.Visible {
			return true
		}
		candidates = append(candidates, candidate{tab: ref.Tab, idle: now.Sub(ref.Tab.LastActive())})
		return true
	})
	report.Candidates = len(candidates)

	slices.SortStableFunc(candidates, func(a, b candidate) int {
		return a.tab.LastActive().Compare(b.tab.LastActive())
	})

	// Tabs already handed to eviction count as gone.
	loaded := report.Loaded - inFlight
	var errs []error
	for _, c := range candidates {
		if !m.policy.Aggressive {
			if loaded <= m.policy.MaxLoaded || c.idle <= m.policy.Timeout {
				break
			}
		}

		report.Selected = append(report.Selected, c.tab.ID())
		loaded--
		errs = append(errs, m.evict(ctx, c.tab))
	}

	m.metrics.TabsUnloaded(len(report.Selected))
	m.metrics.SetLoadedTabs(m.tree.LoadedCount())
	if len(report.Selected) > 0 {
		m.logger.Debug().
			Int("loaded", report.Loaded).
			Int("candidates", report.Candidates).
			Int("selected", len(report.Selected)).
			Msg("unload pass")
	}

	return report, errors.Join(errs...)
}

func (m *TabUnloadManager) evict(ctx context.Context, tab *domain.Tab) error {
	if m.snapshots == nil || !m.snapshots.NeedsSnapshot(tab) {
		return m.unload(tab)
	}

	req, ok := NewCaptureRequest(tab)
	if !ok {
		return nil
	}

	m.evicting[tab.ID()] = true

	var (
		ref        string
		captureErr error
		unloadErr  error
		returned   bool
	)
	m.executor.Go(func() {
		ref, captureErr = m.snapshots.Capture(ctx, req)
	}, func() {
		delete(m.evicting, tab.ID())
		// A failed capture is logged by Attach and does not block eviction.
		_ = m.snapshots.Attach(ctx, tab, ref, captureErr)
		unloadErr = m.unload(tab)
		if returned {
			m.report(unloadErr)
			m.metrics.SetLoadedTabs(m.tree.LoadedCount())
		}
	})

	returned = true
	return unloadErr
}

// unload re-checks visibility because the user may have switched to the tab
// while its snapshot was being taken.
func (m *TabUnloadManager) unload(tab *domain.Tab) error {
	if tab.Closed() || !tab.Loaded() || m.tree.CurrentTab() == tab {
		return nil
	}
	return tab.Unload()
}

// Start schedules a pass every interval and returns its stop function.
func (m *TabUnloadManager) Start(ctx context.Context, scheduler ports.Scheduler, interval time.Duration) (stop func()) {
	if interval <= 0 {
		interval = DefaultUnloadCheckInterval
	}

	return scheduler.Every(interval, func() {
		if _, err := m.RunPass(ctx); err != nil {
			m.report(err)
		}
	})
}
