// Package payment reads the gateway's browser redirect and confirms the
// result with the server. The redirect query string is display data only;
// entitlement follows from Confirm.
package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/tunestream/streaming-api/internal/client/api"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

// Query parameters the gateway appends to the return URL.
const (
	ParamResponseCode = "vnp_ResponseCode"
	ParamAmount       = "vnp_Amount"
	ParamTxnRef       = "vnp_TxnRef"
)

const minorUnits = 100

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// Result is the unverified reading of one redirect.
type Result struct {
	Status       Status
	ResponseCode string
	// Amount is in major units; the gateway sends minor units.
	Amount int64
	TxnRef string
}

// Interpret classifies a redirect. Only the success sentinel counts as
// success; anything else, including a missing code, is a failure.
func Interpret(q url.Values) Result {
	r := Result{
		Status:       StatusFailed,
		ResponseCode: q.Get(ParamResponseCode),
		TxnRef:       q.Get(ParamTxnRef),
	}
	if r.ResponseCode == domain.GatewaySuccessCode {
		r.Status = StatusSuccess
	}
	if minor, err := strconv.ParseInt(q.Get(ParamAmount), 10, 64); err == nil && minor > 0 {
		r.Amount = minor / minorUnits
	}
	return r
}

// NavOption is a follow-up destination offered on the result screen.
type NavOption struct {
	Label string
	Path  string
}

// Options returns the terminal navigation choices: home and retry.
func (r Result) Options() []NavOption {
	return []NavOption{
		{Label: "home", Path: "/"},
		{Label: "retry", Path: "/premium"},
	}
}

var (
	ErrNoReference = errors.New("redirect carries no transaction reference")
	// ErrPending means the server had not reconciled the payment before Confirm gave up.
	ErrPending = errors.New("payment still pending")
)

// StatusQuerier is the authenticated status endpoint.
type StatusQuerier interface {
	PaymentStatus(ctx context.Context, txnRef string) (*api.PaymentStatus, error)
}

type confirmConfig struct {
	initial    time.Duration
	maxElapsed time.Duration
}

type ConfirmOption func(*confirmConfig)

// WithPolling sets the first retry interval and the total time Confirm waits
// for a pending payment to settle.
func WithPolling(initial, maxElapsed time.Duration) ConfirmOption {
	return func(c *confirmConfig) {
		c.initial = initial
		c.maxElapsed = maxElapsed
	}
}

// Confirm asks the server for the authoritative status of the payment named
// in r. A pending payment is polled with exponential backoff because the
// server reconciles return callbacks asynchronously. Client errors such as
// 401 or 404 stop polling immediately.
func Confirm(ctx context.Context, q StatusQuerier, r Result, opts ...ConfirmOption) (*api.PaymentStatus, error) {
	if r.TxnRef == "" {
		return nil, ErrNoReference
	}

	cfg := confirmConfig{initial: 500 * time.Millisecond, maxElapsed: 20 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.initial
	b.MaxInterval = 4 * cfg.initial

	op := func() (*api.PaymentStatus, error) {
		st, err := q.PaymentStatus(ctx, r.TxnRef)
		if err != nil {
			var apiErr *api.Error
			if errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		if st.Status == domain.PaymentPending {
			return st, ErrPending
		}
		return st, nil
	}

	st, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(cfg.maxElapsed))
	if err != nil {
		return st, fmt.Errorf("confirm payment %s: %w", r.TxnRef, err)
	}
	return st, nil
}

// Entitled reports whether a confirmed status grants the purchase.
func Entitled(st *api.PaymentStatus) bool {
	return st != nil && st.Status == domain.PaymentSuccess
}
