package tree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tobito320/ryxsurf/internal/application"
)

func TestRenderTree(t *testing.T) {
	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)

	output, err := Render(application.TreeView{
		Loaded: 2,
		Total:  3,
		Workspaces: []application.WorkspaceView{
			{
				Name:    "Main",
				Current: true,
				Sessions: []application.SessionView{
					{Name: "Overview", Overview: true},
					{
						Name:   "Research",
						Active: true,
						Tabs: []application.TabView{
							{URL: "https://a.example", Title: "Alpha", Loaded: true, LastActive: now.Add(-10 * time.Minute)},
							{URL: "https://b.example", Title: "Beta", Loaded: true, Active: true, Visible: true, LastActive: now},
						},
					},
				},
			},
			{
				Name: "Side",
				Sessions: []application.SessionView{
					{Name: "Overview", Overview: true, Active: true, Tabs: []application.TabView{
						{URL: "https://c.example", HasSnapshot: true},
					}},
				},
			},
		},
	}, RenderOptions{Now: now, IdleAfter: 5 * time.Minute, MaxLoaded: 10})

	require.NoError(t, err)
	assert.Contains(t, output, "workspaces: 2  tabs: 3  loaded: 2/10")
	assert.Contains(t, output, "Main (current)")
	assert.Contains(t, output, "> Research")
	assert.Contains(t, output, "(no tabs)")
	assert.Contains(t, output, "+ 1. Alpha https://a.example (active 10 min ago) [idle]")
	assert.Contains(t, output, "* 2. Beta https://b.example (active just now)")
	assert.Contains(t, output, "- 1. https://c.example https://c.example [snapshot]")
	assert.NotContains(t, output, "Side (current)")
}

func TestRenderEmptyTree(t *testing.T) {
	output, err := Render(application.TreeView{}, RenderOptions{})

	require.NoError(t, err)
	assert.Contains(t, output, "workspaces: 0  tabs: 0  loaded: 0")
	assert.Contains(t, output, "No workspaces.")
	assert.NotContains(t, output, "[")
}

func TestFormatLastActive(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	testCases := []struct {
		name       string
		lastActive time.Time
		want       string
	}{
		{name: "never", lastActive: time.Time{}, want: ""},
		{name: "seconds", lastActive: now.Add(-20 * time.Second), want: "active just now"},
		{name: "one hour", lastActive: now.Add(-61 * time.Minute), want: "active 1 hour ago"},
		{name: "hours", lastActive: now.Add(-3 * time.Hour), want: "active 3 hours ago"},
		{name: "days", lastActive: now.Add(-48 * time.Hour), want: "active 11:00 on 12 Feb"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, formatLastActive(tc.lastActive, now))
		})
	}
}

func TestProgressBarClamps(t *testing.T) {
	t.Parallel()

	s := newStyles()
	assert.Equal(t, "[====]", renderProgressBar(250, 4, s))
	assert.Equal(t, "[----]", renderProgressBar(-5, 4, s))
	assert.Empty(t, renderProgressBar(50, 0, s))
}

func TestIdleColorFades(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 2, 14, 11, 0, 0, 0, time.UTC)
	opts := RenderOptions{Now: now, IdleAfter: time.Minute}

	assert.Equal(t, "255", string(idleColor(now, opts)))
	assert.Equal(t, "240", string(idleColor(now.Add(-time.Hour), opts)))
	assert.Equal(t, "255", string(idleColor(now, RenderOptions{})))
}
