package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Tobito320/ryxsurf/internal/adapters/engine/detached"
	"github.com/Tobito320/ryxsurf/internal/application"
	"github.com/Tobito320/ryxsurf/internal/domain"
)

// withProfile runs fn against the stored tree without a browser. The tree is
// saved afterwards when save is set and fn succeeded.
func (a *app) withProfile(cmd *cobra.Command, save bool, fn func(ctx context.Context, p *profile) error) (err error) {
	ctx := cmd.Context()

	p, err := a.openProfile(ctx, profileDeps{
		engine: detached.New(),
		unlock: unlockWithSpinner(cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}

	defer func() {
		if save && err == nil {
			err = p.persistence.Shutdown(ctx)
			return
		}
		err = errors.Join(err, p.persistence.Close())
	}()

	return fn(ctx, p)
}

// runLine applies one console command to the stored tree and prints where the
// user ended up.
func (a *app) runLine(cmd *cobra.Command, words ...string) error {
	command, err := application.ParseCommand(strings.Join(words, " "))
	if err != nil {
		return err
	}

	return a.withProfile(cmd, true, func(ctx context.Context, p *profile) error {
		if err := application.Apply(ctx, p.tree, p.snapshots, command); err != nil {
			return err
		}
		_, err := fmt.Fprintln(cmd.OutOrStdout(), describeCurrent(p.tree))
		return err
	})
}

func describeCurrent(tree *domain.SessionManager) string {
	workspace := tree.CurrentWorkspace()
	session := workspace.ActiveSession()
	location := fmt.Sprintf("%s / %s", workspace.Name(), session.Name())

	index, ok := session.ActiveIndex()
	if !ok {
		return location + " (no tabs)"
	}
	return fmt.Sprintf("%s / %d. %s", location, index+1, tree.CurrentTab().URL())
}

func writeTree(out io.Writer, app *app, tree *domain.SessionManager, asJSON bool) error {
	view := application.BuildTreeView(tree)
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	}

	rendered, err := app.treeRenderer(view, app.renderOptions())
	if err != nil {
		return fmt.Errorf("render tree: %w", err)
	}

	_, err = fmt.Fprintln(out, rendered)
	return err
}

func newTreeCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Show workspaces, sessions and tabs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withProfile(cmd, false, func(_ context.Context, p *profile) error {
				return writeTree(cmd.OutOrStdout(), app, p.tree, asJSON)
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the tree as JSON")

	return cmd
}

func newOpenCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "open <url>",
		Short: "Open a tab in the current session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runLine(cmd, string(application.CommandOpen), args[0])
		},
	}
}

func newNavigateCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "navigate <url>",
		Short: "Point the current tab at another URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runLine(cmd, string(application.CommandNavigate), args[0])
		},
	}
}

func newCloseCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close",
		Short: "Close the current tab",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runLine(cmd, string(application.CommandClose))
		},
	}
}

func newNextCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "next",
		Short: "Switch to the next tab, wrapping around",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runLine(cmd, string(application.CommandNextTab))
		},
	}
}

func newPrevCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prev",
		Short: "Switch to the previous tab, wrapping around",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.runLine(cmd, string(application.CommandPreviousTab))
		},
	}
}

func newTabCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tab",
		Short: "Manage tabs of the current session",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "switch <n>",
		Short: "Switch to tab n, counting from 1",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.runLine(cmd, string(application.CommandSwitchTab), args[0])
		},
	})

	return cmd
}

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage sessions of the current workspace",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a session and make it active",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runLine(cmd, append([]string{"session", "add"}, args...)...)
			},
		},
		&cobra.Command{
			Use:   "next",
			Short: "Switch to the next session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.runLine(cmd, "session", "next")
			},
		},
		&cobra.Command{
			Use:   "prev",
			Short: "Switch to the previous session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return app.runLine(cmd, "session", "prev")
			},
		},
		&cobra.Command{
			Use:   "switch <n>",
			Short: "Switch to session n, counting from 1",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runLine(cmd, "session", args[0])
			},
		},
		&cobra.Command{
			Use:   "remove <n>",
			Short: "Remove session n and its tabs",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runLine(cmd, "session", "remove", args[0])
			},
		},
	)

	return cmd
}

func newWorkspaceCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspace",
		Short: "Manage workspaces",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "add <name>",
			Short: "Add a workspace and switch to it",
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runLine(cmd, append([]string{"workspace", "add"}, args...)...)
			},
		},
		newWorkspaceListCmd(app),
		&cobra.Command{
			Use:   "switch <n>",
			Short: "Switch to workspace n, counting from 1",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runLine(cmd, "workspace", args[0])
			},
		},
		&cobra.Command{
			Use:   "remove <n>",
			Short: "Remove workspace n and its tabs",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.runLine(cmd, "workspace", "remove", args[0])
			},
		},
	)

	return cmd
}

func newWorkspaceListCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List workspaces",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withProfile(cmd, false, func(_ context.Context, p *profile) error {
				current := p.tree.CurrentIndex()
				for i, workspace := range p.tree.Workspaces() {
					marker := " "
					if i == current {
						marker = "*"
					}
					_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %d\t%s\t%d sessions\n", marker, i+1, workspace.Name(), workspace.Len())
				}
				return nil
			})
		},
	}
}

func newSaveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Rewrite the stored tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withProfile(cmd, true, func(_ context.Context, p *profile) error {
				view := application.BuildTreeView(p.tree)
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "saved %d workspaces, %d tabs\n", len(view.Workspaces), view.Total)
				return err
			})
		},
	}
}
