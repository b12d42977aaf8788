package tree

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Tobito320/ryxsurf/internal/application"
)

const (
	markerVisible  = "*"
	markerLoaded   = "+"
	markerPending  = "~"
	markerUnloaded = "-"
)

type RenderOptions struct {
	Now time.Time
	// IdleAfter flags unprotected tabs that the unload manager may evict.
	IdleAfter time.Duration
	MaxLoaded int
}

func renderView(view application.TreeView, opts RenderOptions, s styles) string {
	lines := []string{
		s.title.Render("ryxsurf"),
		s.header.Render(headerLine(view, opts, s)),
	}

	if len(view.Workspaces) == 0 {
		lines = append(lines, s.empty.Render("No workspaces."))
		return lipgloss.JoinVertical(lipgloss.Left, lines...)
	}

	for _, workspace := range view.Workspaces {
		lines = append(lines, s.section.Render(renderWorkspace(workspace, opts, s)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func headerLine(view application.TreeView, opts RenderOptions, s styles) string {
	line := fmt.Sprintf("workspaces: %d  tabs: %d  loaded: %d", len(view.Workspaces), view.Total, view.Loaded)
	if opts.MaxLoaded <= 0 {
		return line
	}

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		fmt.Sprintf("%s/%d", line, opts.MaxLoaded),
		" ",
		renderProgressBar(float64(view.Loaded)/float64(opts.MaxLoaded)*100, 20, s),
	)
}

func renderWorkspace(workspace application.WorkspaceView, opts RenderOptions, s styles) string {
	title := workspace.Name
	if workspace.Current {
		title += " (current)"
	}
	parts := []string{s.workspace.Render(title)}

	for _, session := range workspace.Sessions {
		parts = append(parts, renderSession(session, opts, s)...)
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func renderSession(session application.SessionView, opts RenderOptions, s styles) []string {
	title := session.Name
	if session.Active {
		title = "> " + title
	} else {
		title = "  " + title
	}
	lines := []string{s.session.Render(title)}

	if len(session.Tabs) == 0 {
		return append(lines, s.empty.Render("      (no tabs)"))
	}

	for i, tab := range session.Tabs {
		lines = append(lines, tabLine(i, tab, opts, s))
	}

	return lines
}

func tabLine(index int, tab application.TabView, opts RenderOptions, s styles) string {
	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		"    ",
		s.marker.Render(tabMarker(tab)),
		" ",
		s.tab.Render(fmt.Sprintf("%d. %s", index+1, tabTitle(tab))),
		" ",
		s.url.Render(tab.URL),
	)

	if seen := formatLastActive(tab.LastActive, opts.Now); seen != "" {
		style := lipgloss.NewStyle().Foreground(idleColor(tab.LastActive, opts))
		line += " " + style.Render("("+seen+")")
	}
	if tab.HasSnapshot {
		line += " " + s.header.Render("[snapshot]")
	}
	if isIdle(tab, opts) {
		line += " " + s.warning.Render("[idle]")
	}

	return line
}

func tabMarker(tab application.TabView) string {
	switch {
	case tab.Visible:
		return markerVisible
	case tab.Pending:
		return markerPending
	case tab.Loaded:
		return markerLoaded
	default:
		return markerUnloaded
	}
}

func tabTitle(tab application.TabView) string {
	if title := strings.TrimSpace(tab.Title); title != "" {
		return title
	}
	return tab.URL
}

func isIdle(tab application.TabView, opts RenderOptions) bool {
	if !tab.Loaded || tab.Visible || opts.IdleAfter <= 0 || opts.Now.IsZero() {
		return false
	}
	if tab.LastActive.IsZero() {
		return true
	}
	return opts.Now.Sub(tab.LastActive) > opts.IdleAfter
}

func renderProgressBar(percent float64, width int, s styles) string {
	if width <= 0 {
		return ""
	}

	filled := int(math.Round(float64(width) * clampPercent(percent) / 100))
	filled = max(0, min(filled, width))

	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.barBracket.Render("["),
		s.barFill.Render(strings.Repeat("=", filled)),
		s.barEmpty.Render(strings.Repeat("-", width-filled)),
		s.barBracket.Render("]"),
	)
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func formatLastActive(lastActive, now time.Time) string {
	if lastActive.IsZero() {
		return ""
	}
	if now.IsZero() {
		return "active " + lastActive.Format(time.RFC3339)
	}

	elapsed := now.Sub(lastActive)
	switch {
	case elapsed < time.Minute:
		return "active just now"
	case elapsed < time.Hour:
		return fmt.Sprintf("active %d min ago", int(elapsed.Minutes()))
	case elapsed < 24*time.Hour:
		hours := int(elapsed.Hours())
		suffix := "hours"
		if hours == 1 {
			suffix = "hour"
		}
		return fmt.Sprintf("active %d %s ago", hours, suffix)
	default:
		return "active " + lastActive.Format("15:04 on 02 Jan")
	}
}

func interpolateColor(value, floor, ceiling float64) lipgloss.Color {
	if ceiling == floor {
		return lipgloss.Color("255")
	}

	normalized := (value - floor) / (ceiling - floor)
	normalized = max(0, min(normalized, 1))

	// ANSI 256 greyscale ramp from 240 (faded) to 255 (bright).
	const base, target = 240.0, 255.0
	return lipgloss.Color(fmt.Sprintf("%d", int(base+(target-base)*normalized)))
}

// idleColor fades from bright for a fresh tab to grey once the idle window
// has passed.
func idleColor(lastActive time.Time, opts RenderOptions) lipgloss.Color {
	if opts.Now.IsZero() || opts.IdleAfter <= 0 {
		return lipgloss.Color("255")
	}

	window := opts.IdleAfter.Seconds()
	return interpolateColor(window-opts.Now.Sub(lastActive).Seconds(), 0, window)
}
