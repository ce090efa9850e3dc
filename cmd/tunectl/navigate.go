package main

import "github.com/spf13/cobra"

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Navigate to a path and print where the session is allowed to land",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settled, err := opts.app.nav.Navigate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Println(settled)
			return nil
		},
	}
}
