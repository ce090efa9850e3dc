package main

import (
	"github.com/sethvargo/go-envconfig"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	apiURL      string
	store       string
	credentials string
	lookuper    envconfig.Lookuper

	app *app
}

func newRootCmd() *cobra.Command {
	return newRootCmdWith(envconfig.OsLookuper())
}

func newRootCmdWith(l envconfig.Lookuper) *cobra.Command {
	opts := &rootOptions{lookuper: l}

	cmd := &cobra.Command{
		Use:   "tunectl",
		Short: "Command-line client for the tunestream API",
		Long: `tunectl signs in to a tunestream server, keeps the session in a
credential store and applies the same navigation rules as the web client.

Environment Variables:
  TUNECTL_API_URL           Server URL (default: http://localhost:8080)
  TUNECTL_STORE             Credential store: file, redis or memory (default: file)
  TUNECTL_CREDENTIALS_FILE  Path used by the file store
  TUNECTL_REDIS_ADDR        Redis address used by the redis store`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadClientConfig(cmd.Context(), opts.lookuper)
			if err != nil {
				return err
			}
			if opts.apiURL != "" {
				cfg.APIURL = opts.apiURL
			}
			if opts.store != "" {
				cfg.Store = opts.store
			}
			if opts.credentials != "" {
				cfg.CredentialsFile = opts.credentials
			}

			a, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.close()
		},
	}

	cmd.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "Server URL (overrides TUNECTL_API_URL)")
	cmd.PersistentFlags().StringVar(&opts.store, "store", "", "Credential store: file, redis or memory (overrides TUNECTL_STORE)")
	cmd.PersistentFlags().StringVar(&opts.credentials, "credentials", "", "Credentials file for the file store (overrides TUNECTL_CREDENTIALS_FILE)")

	cmd.AddCommand(
		newLoginCmd(opts),
		newRegisterCmd(opts),
		newLogoutCmd(opts),
		newWhoamiCmd(opts),
		newOpenCmd(opts),
		newPayCmd(opts),
		newCallbackCmd(opts),
	)
	return cmd
}
