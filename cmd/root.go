package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Tobito320/ryxsurf/internal/logging"
)

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	app, err := wireApp()
	return buildRootCmd(app, err)
}

func buildRootCmd(app *app, err error) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ryxsurf",
		Short:         "ryxsurf: workspaces, sessions and tabs with lazy loading",
		Long:          "ryxsurf keeps browser tabs in workspaces and sessions, loads them on demand, unloads idle ones and stores the whole tree encrypted on disk.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	flags := rootCmd.PersistentFlags()
	flags.String("log-level", "", "Log level (trace, debug, info, warn, error)")
	flags.String("log-format", "", "Log format (console, json)")
	flags.String("data-dir", "", "Directory holding sessions.db and snapshots")
	flags.String("vault", "", "Credential backend (auto, pass, sqlite, file)")
	flags.BoolVar(&app.askPassword, "ask-password", false, "Prompt for the master password")
	app.bindFlag("log.level", flags.Lookup("log-level"))
	app.bindFlag("log.format", flags.Lookup("log-format"))
	app.bindFlag("data_dir", flags.Lookup("data-dir"))
	app.bindFlag("vault.backend", flags.Lookup("vault"))

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if err := app.bindErr; err != nil {
			return err
		}

		cfg, err := app.source.Load()
		if err != nil {
			return err
		}
		app.cfg = cfg
		app.logger = logging.New(logging.Options{
			Level:  cfg.Log.Level,
			Format: cfg.Log.Format,
			Out:    cmd.ErrOrStderr(),
		})

		if app.askPassword {
			password, err := app.readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), "Master password: ")
			if err != nil {
				return err
			}
			app.cfg.MasterPassword = password
		}

		return nil
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newConfigCmd(app),
		newTreeCmd(app),
		newOpenCmd(app),
		newNavigateCmd(app),
		newCloseCmd(app),
		newNextCmd(app),
		newPrevCmd(app),
		newTabCmd(app),
		newSessionCmd(app),
		newWorkspaceCmd(app),
		newSaveCmd(app),
		newRunCmd(app),
		newVaultCmd(app),
	)

	return rootCmd
}
