package application

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Tobito320/ryxsurf/internal/domain"
)

var ErrUnknownCommand = errors.New("unknown command")

type CommandKind string

const (
	CommandOpen            CommandKind = "open"
	CommandNavigate        CommandKind = "navigate"
	CommandClose           CommandKind = "close"
	CommandNextTab         CommandKind = "next"
	CommandPreviousTab     CommandKind = "prev"
	CommandSwitchTab       CommandKind = "tab"
	CommandAddSession      CommandKind = "session-add"
	CommandNextSession     CommandKind = "session-next"
	CommandPreviousSession CommandKind = "session-prev"
	CommandSwitchSession   CommandKind = "session"
	CommandRemoveSession   CommandKind = "session-remove"
	CommandAddWorkspace    CommandKind = "workspace-add"
	CommandSwitchWorkspace CommandKind = "workspace"
	CommandRemoveWorkspace CommandKind = "workspace-remove"
	CommandSnapshot        CommandKind = "snapshot"
	CommandUnload          CommandKind = "unload"
	CommandSave            CommandKind = "save"
	CommandTree            CommandKind = "tree"
)

// Command is one tree operation, as typed on the run console or passed by a
// one-shot CLI command. Index is zero-based.
type Command struct {
	Kind  CommandKind
	Arg   string
	Index int
}

// ParseCommand reads a console line such as "open https://go.dev" or
// "tab 2". Indexes on the console are one-based.
func ParseCommand(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, fmt.Errorf("%w: empty line", ErrUnknownCommand)
	}

	verb := fields[0]
	if len(fields) > 1 && (verb == "session" || verb == "workspace") {
		switch fields[1] {
		case "add", "next", "prev", "remove":
			verb += "-" + fields[1]
			fields = fields[1:]
		}
	}

	kind := CommandKind(verb)
	rest := strings.TrimSpace(strings.Join(fields[1:], " "))

	switch kind {
	case CommandOpen, CommandNavigate, CommandAddSession, CommandAddWorkspace:
		if rest == "" {
			return Command{}, fmt.Errorf("%s needs an argument", kind)
		}
		return Command{Kind: kind, Arg: rest}, nil
	case CommandSwitchTab, CommandSwitchSession, CommandRemoveSession, CommandSwitchWorkspace, CommandRemoveWorkspace:
		n, err := strconv.Atoi(rest)
		if err != nil || n < 1 {
			return Command{}, fmt.Errorf("%s needs a position starting at 1, got %q", kind, rest)
		}
		return Command{Kind: kind, Index: n - 1}, nil
	case CommandClose, CommandNextTab, CommandPreviousTab, CommandNextSession, CommandPreviousSession,
		CommandSnapshot, CommandUnload, CommandSave, CommandTree:
		return Command{Kind: kind}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, fields[0])
	}
}

// Apply runs the tree part of cmd. Save, unload and tree are handled by the
// caller, which owns the persistence and unload managers.
func Apply(ctx context.Context, tree *domain.SessionManager, snapshots *SnapshotManager, cmd Command) error {
	switch cmd.Kind {
	case CommandOpen:
		_, err := tree.NewTab(ctx, cmd.Arg)
		return err
	case CommandNavigate:
		tab := tree.CurrentTab()
		if tab == nil {
			_, err := tree.NewTab(ctx, cmd.Arg)
			return err
		}
		return tab.Navigate(ctx, cmd.Arg)
	case CommandClose:
		return tree.CloseCurrentTab(ctx)
	case CommandNextTab:
		return tree.NextTab(ctx)
	case CommandPreviousTab:
		return tree.PreviousTab(ctx)
	case CommandSwitchTab:
		return tree.SwitchTab(ctx, cmd.Index)
	case CommandAddSession:
		tree.CurrentWorkspace().AddSession(cmd.Arg)
		return nil
	case CommandNextSession:
		return tree.NextSession(ctx)
	case CommandPreviousSession:
		return tree.PreviousSession(ctx)
	case CommandSwitchSession:
		return tree.SwitchSession(ctx, cmd.Index)
	case CommandRemoveSession:
		return tree.RemoveSession(ctx, cmd.Index)
	case CommandAddWorkspace:
		tree.AddWorkspace(cmd.Arg)
		return tree.SwitchWorkspace(ctx, len(tree.Workspaces())-1)
	case CommandSwitchWorkspace:
		return tree.SwitchWorkspace(ctx, cmd.Index)
	case CommandRemoveWorkspace:
		return tree.RemoveWorkspace(ctx, cmd.Index)
	case CommandSnapshot:
		tab := tree.CurrentTab()
		if tab == nil || snapshots == nil {
			return nil
		}
		_, err := snapshots.CreateSnapshot(ctx, tab)
		return err
	case CommandSave, CommandUnload, CommandTree:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Kind)
	}
}
