package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"healthmate/internal/app"
)

type credentials struct {
	email    string
	password string
	name     string
}

func (c *credentials) bind(cmd *cobra.Command, withName bool) {
	cmd.Flags().StringVar(&c.email, "email", "", "Account email (prompted when empty)")
	cmd.Flags().StringVar(&c.password, "password", "", "Account password (prompted when empty)")
	if withName {
		cmd.Flags().StringVar(&c.name, "name", "", "Display name")
	}
}

func (c *credentials) prompt(p *prompter) error {
	if err := p.fill(&c.email, "Email", false); err != nil {
		return err
	}
	return p.fill(&c.password, "Password", true)
}

func newLoginCmd(opts *options) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and remember the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			if err := creds.prompt(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())); err != nil {
				return err
			}
			r, err := app.NewAuthService(d.identity, d.cfg.UI.AuthRedirectDelay).Login(cmd.Context(), creds.email, creds.password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.Notice)
			return nil
		},
	}
	creds.bind(cmd, false)
	return cmd
}

func newSignupCmd(opts *options) *cobra.Command {
	var creds credentials
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and log in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			if err := creds.prompt(newPrompter(cmd.InOrStdin(), cmd.OutOrStdout())); err != nil {
				return err
			}
			r, err := app.NewAuthService(d.identity, d.cfg.UI.AuthRedirectDelay).Signup(cmd.Context(), creds.email, creds.password, creds.name)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.Notice)
			return nil
		},
	}
	creds.bind(cmd, true)
	return cmd
}

func newLogoutCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End every session of the current user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			r, err := app.NewAuthService(d.identity, d.cfg.UI.AuthRedirectDelay).Logout(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), r.Notice)
			return nil
		},
	}
}

func newWhoamiCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer d.Close()

			u, err := app.NewAuthService(d.identity, d.cfg.UI.AuthRedirectDelay).Whoami(cmd.Context())
			if err != nil {
				return fmt.Errorf("not logged in: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:    %s\n", u.ID)
			fmt.Fprintf(out, "Email: %s\n", u.Email)
			if u.Name != "" {
				fmt.Fprintf(out, "Name:  %s\n", u.Name)
			}
			return nil
		},
	}
}
