package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/tunestream/streaming-api/internal/client/api"
	"github.com/tunestream/streaming-api/internal/client/flow"
)

type passwordFlags struct {
	password      string
	passwordStdin bool
}

func (p *passwordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.password, "password", "", "Password (prompted when omitted)")
	cmd.Flags().BoolVar(&p.passwordStdin, "password-stdin", false, "Read the password from stdin")
}

func (p *passwordFlags) read(cmd *cobra.Command) (string, error) {
	if p.passwordStdin {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("read password from stdin: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	if p.password != "" {
		return p.password, nil
	}

	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("no password provided (use --password or --password-stdin)")
	}
	cmd.Print("Password: ")
	raw, err := term.ReadPassword(fd)
	cmd.Println()
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var email string
	var pw passwordFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.read(cmd)
			if err != nil {
				return err
			}
			out, err := opts.app.flow.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			return reportOutcome(cmd, out)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	pw.register(cmd)
	return cmd
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var name, email string
	var pw passwordFlags

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.read(cmd)
			if err != nil {
				return err
			}
			out, err := opts.app.flow.Register(cmd.Context(), name, email, password)
			if err != nil {
				return err
			}
			return reportOutcome(cmd, out)
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	pw.register(cmd)
	return cmd
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			target, err := opts.app.flow.Logout(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("signed out, now at %s\n", target)
			return nil
		},
	}
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	var remote bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cred, ok, err := opts.app.store.Get(cmd.Context())
			if err != nil {
				return err
			}
			if !ok {
				cmd.Println("not signed in")
				return nil
			}
			if !remote {
				cmd.Printf("%s <%s> role=%s\n", cred.User.Name, cred.User.Email, cred.Role)
				return nil
			}

			user, err := opts.app.client.Me(cmd.Context())
			if err != nil {
				return errors.New(api.Message(err))
			}
			cmd.Printf("%s <%s> role=%s (verified)\n", user.Name, user.Email, user.Role)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Confirm the session with the server")
	return cmd
}

func reportOutcome(cmd *cobra.Command, out flow.Outcome) error {
	if out.State != flow.Success {
		for _, e := range out.Errors {
			cmd.PrintErrf("  - %s\n", e)
		}
		return errors.New(out.Message)
	}
	cmd.Printf("signed in as %s (%s), now at %s\n", out.User.Email, out.User.Role, out.Target)
	return nil
}
