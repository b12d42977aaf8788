package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		line string
		want Command
	}{
		{line: "open https://go.dev", want: Command{Kind: CommandOpen, Arg: "https://go.dev"}},
		{line: "  next ", want: Command{Kind: CommandNextTab}},
		{line: "tab 2", want: Command{Kind: CommandSwitchTab, Index: 1}},
		{line: "session add Deep Work", want: Command{Kind: CommandAddSession, Arg: "Deep Work"}},
		{line: "session 1", want: Command{Kind: CommandSwitchSession, Index: 0}},
		{line: "session remove 2", want: Command{Kind: CommandRemoveSession, Index: 1}},
		{line: "workspace remove 3", want: Command{Kind: CommandRemoveWorkspace, Index: 2}},
		{line: "save", want: Command{Kind: CommandSave}},
	}

	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			got, err := ParseCommand(tc.line)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	for _, line := range []string{"", "fly away", "tab zero", "tab 0", "open"} {
		_, err := ParseCommand(line)
		assert.Error(t, err, line)
	}

	_, err := ParseCommand("fly")
	assert.ErrorIs(t, err, ErrUnknownCommand)
}

func TestApplyDrivesTree(t *testing.T) {
	tt := newTestTree()
	ctx := context.Background()

	for _, line := range []string{"open https://a", "open https://b", "prev", "session add Work", "open https://w", "workspace add Side", "workspace 1", "snapshot"} {
		cmd, err := ParseCommand(line)
		require.NoError(t, err, line)
		require.NoError(t, Apply(ctx, tt.tree, tt.snaps, cmd), line)
	}

	assert.Equal(t, 0, tt.tree.CurrentIndex())
	assert.Equal(t, "Work", tt.tree.CurrentSession().Name())
	assert.Equal(t, "https://w", tt.tree.CurrentTab().URL())
	assert.NotEmpty(t, tt.tree.CurrentTab().SnapshotRef())
	assert.Len(t, tt.tree.Workspaces(), 2)

	view := BuildTreeView(tt.tree)
	assert.Equal(t, 3, view.Total)
	assert.Equal(t, 3, view.Loaded)
	assert.True(t, view.Workspaces[0].Current)
	assert.True(t, view.Workspaces[0].Sessions[1].Tabs[0].Visible)
}

func TestApplyRemoveSessionKeepsOverview(t *testing.T) {
	tt := newTestTree()
	ctx := context.Background()

	for _, line := range []string{"session add Work", "open https://w", "session remove 1"} {
		cmd, err := ParseCommand(line)
		require.NoError(t, err, line)
		require.NoError(t, Apply(ctx, tt.tree, tt.snaps, cmd), line)
	}

	sessions := tt.tree.CurrentWorkspace().Sessions()
	require.Len(t, sessions, 2)
	assert.True(t, sessions[0].IsOverview())
	assert.Equal(t, "Work", tt.tree.CurrentSession().Name())
	assert.Equal(t, "https://w", tt.tree.CurrentTab().URL())
	assert.True(t, tt.tree.CurrentTab().Loaded())
}
