package application

import (
	"time"

	"github.com/Tobito320/ryxsurf/internal/domain"
)

type TabView struct {
	ID          string
	URL         string
	Title       string
	Loaded      bool
	Pending     bool
	Active      bool
	Visible     bool
	LastActive  time.Time
	HasSnapshot bool
}

type SessionView struct {
	ID       string
	Name     string
	Overview bool
	Active   bool
	Tabs     []TabView
}

type WorkspaceView struct {
	ID       string
	Name     string
	Current  bool
	Sessions []SessionView
}

// TreeView is a read-only copy of the tree for rendering.
type TreeView struct {
	Workspaces []WorkspaceView
	Loaded     int
	Total      int
}

// BuildTreeView copies the tree. It must run on the loop.
func BuildTreeView(tree *domain.SessionManager) TreeView {
	view := TreeView{}
	visible := tree.CurrentTab()

	for wi, workspace := range tree.Workspaces() {
		workspaceView := WorkspaceView{
			ID:      workspace.ID(),
			Name:    workspace.Name(),
			Current: wi == tree.CurrentIndex(),
		}

		for si, session := range workspace.Sessions() {
			sessionView := SessionView{
				ID:       session.ID(),
				Name:     session.Name(),
				Overview: session.IsOverview(),
				Active:   si == workspace.ActiveIndex(),
			}

			activeIndex, hasActive := session.ActiveIndex()
			for ti, tab := range session.Tabs() {
				sessionView.Tabs = append(sessionView.Tabs, TabView{
					ID:          tab.ID(),
					URL:         tab.URL(),
					Title:       tab.Title(),
					Loaded:      tab.Loaded(),
					Pending:     tab.Pending(),
					Active:      hasActive && ti == activeIndex,
					Visible:     tab == visible,
					LastActive:  tab.LastActiveWallClock(),
					HasSnapshot: tab.SnapshotRef() != "",
				})
				view.Total++
				if tab.Loaded() {
					view.Loaded++
				}
			}
			workspaceView.Sessions = append(workspaceView.Sessions, sessionView)
		}
		view.Workspaces = append(view.Workspaces, workspaceView)
	}

	return view
}
