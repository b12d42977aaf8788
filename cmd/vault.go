package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Tobito320/ryxsurf/internal/application"
)

func (a *app) withVault(cmd *cobra.Command, fn func(ctx context.Context, vault *application.CredentialVault) error) (err error) {
	ctx := cmd.Context()

	vault, closeFn, err := a.openVault(ctx)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, closeFn())
	}()

	return fn(ctx, vault)
}

func newVaultCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vault",
		Short: "Manage stored site credentials",
	}

	cmd.AddCommand(
		newVaultSetCmd(app),
		newVaultGetCmd(app),
		newVaultDeleteCmd(app),
		newVaultDomainsCmd(app),
		newVaultGenerateCmd(),
	)

	return cmd
}

func newVaultSetCmd(app *app) *cobra.Command {
	var (
		password string
		generate bool
		length   int
		symbols  bool
	)

	cmd := &cobra.Command{
		Use:   "set <url|domain> <username>",
		Short: "Store or replace a credential",
		Long:  "set stores a credential for the host of the given URL. Without --password or --generate the password is read from the terminal.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password != "" && generate {
				return errors.New("--password and --generate are mutually exclusive")
			}

			domain := application.ExtractDomain(args[0])
			if domain == "" {
				return fmt.Errorf("%w: %q", application.ErrInvalidCredentialPart, args[0])
			}

			value := password
			switch {
			case generate:
				generated, err := application.GeneratePassword(length, symbols)
				if err != nil {
					return err
				}
				value = generated
			case value == "":
				read, err := app.readPassword(cmd.InOrStdin(), cmd.ErrOrStderr(), fmt.Sprintf("Password for %s@%s: ", args[1], domain))
				if err != nil {
					return err
				}
				value = read
			}

			return app.withVault(cmd, func(ctx context.Context, vault *application.CredentialVault) error {
				if err := vault.Save(ctx, domain, args[1], value); err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if generate {
					_, _ = fmt.Fprintf(out, "generated password: %s\n", value)
				}
				_, err := fmt.Fprintf(out, "stored %s@%s\n", args[1], domain)
				return err
			})
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&password, "password", "", "Password to store (visible in shell history)")
	flags.BoolVar(&generate, "generate", false, "Generate and store a random password")
	flags.IntVar(&length, "length", application.DefaultPasswordLength, "Length of a generated password")
	flags.BoolVar(&symbols, "symbols", false, "Include symbols in a generated password")

	return cmd
}

func newVaultGetCmd(app *app) *cobra.Command {
	var show bool

	cmd := &cobra.Command{
		Use:   "get <url|domain>",
		Short: "List credentials stored for a site",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := application.ExtractDomain(args[0])

			return app.withVault(cmd, func(ctx context.Context, vault *application.CredentialVault) error {
				credentials, err := vault.Get(ctx, domain)
				if err != nil {
					return err
				}
				if len(credentials) == 0 {
					return fmt.Errorf("%w: %s", application.ErrCredentialNotFound, domain)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				for _, credential := range credentials {
					password := "********"
					if show {
						password = credential.Password
					}
					_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", credential.Username, password, credential.LastUsed.Format("2006-01-02 15:04"))
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().BoolVar(&show, "show", false, "Print passwords in clear text")

	return cmd
}

func newVaultDeleteCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <url|domain> <username>",
		Short: "Delete a stored credential",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain := application.ExtractDomain(args[0])

			return app.withVault(cmd, func(ctx context.Context, vault *application.CredentialVault) error {
				if err := vault.Delete(ctx, domain, args[1]); err != nil {
					return err
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "deleted %s@%s\n", args[1], domain)
				return err
			})
		},
	}
}

func newVaultDomainsCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "domains",
		Short: "List sites with stored credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.withVault(cmd, func(ctx context.Context, vault *application.CredentialVault) error {
				domains, err := vault.Domains(ctx)
				if err != nil {
					return err
				}
				for _, domain := range domains {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), domain)
				}
				return nil
			})
		},
	}
}

func newVaultGenerateCmd() *cobra.Command {
	var (
		length  int
		symbols bool
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print a random password without storing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := application.GeneratePassword(length, symbols)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), password)
			return err
		},
	}

	cmd.Flags().IntVar(&length, "length", application.DefaultPasswordLength, "Password length")
	cmd.Flags().BoolVar(&symbols, "symbols", false, "Include symbols")

	return cmd
}
