package main

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tunestream/streaming-api/internal/client/api"
	"github.com/tunestream/streaming-api/internal/client/payment"
)

func newPayCmd(opts *rootOptions) *cobra.Command {
	var amount int64
	var info string

	cmd := &cobra.Command{
		Use:   "pay",
		Short: "Start a checkout and print the gateway URL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			checkout, err := opts.app.client.CreatePayment(cmd.Context(), amount, info)
			if err != nil {
				return errors.New(api.Message(err))
			}
			cmd.Printf("txn_ref: %s\n%s\n", checkout.TxnRef, checkout.PaymentURL)
			return nil
		},
	}
	cmd.Flags().Int64Var(&amount, "amount", 0, "Amount in VND")
	cmd.Flags().StringVar(&info, "info", "tunestream premium", "Order description")
	return cmd
}

func newCallbackCmd(opts *rootOptions) *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:   "callback <return-url|query>",
		Short: "Interpret a gateway return URL and confirm it with the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := parseCallback(args[0])
			if err != nil {
				return err
			}

			result := payment.Interpret(q)
			cmd.Printf("redirect: %s (code %s, amount %d, ref %s)\n", result.Status, result.ResponseCode, result.Amount, result.TxnRef)
			var confirmErr error
			if !skipConfirm {
				st, err := payment.Confirm(cmd.Context(), opts.app.client, result)
				if err != nil {
					confirmErr = err
					cmd.Printf("server: unconfirmed (%v)\n", err)
				} else {
					cmd.Printf("server: %s, entitled: %t\n", st.Status, payment.Entitled(st))
				}
			}
			// The terminal screen always offers both ways out.
			for _, o := range result.Options() {
				cmd.Printf("  %s -> %s\n", o.Label, o.Path)
			}
			return confirmErr
		},
	}
	cmd.Flags().BoolVar(&skipConfirm, "no-confirm", false, "Only interpret the redirect; do not query the server")
	return cmd
}

func parseCallback(raw string) (url.Values, error) {
	if i := strings.IndexByte(raw, '?'); i >= 0 {
		raw = raw[i+1:]
	}
	return url.ParseQuery(raw)
}
