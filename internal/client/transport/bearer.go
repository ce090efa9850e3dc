// Package transport attaches the stored bearer credential to outgoing requests.
package transport

import (
	"context"
	"fmt"
	"net/http"
)

// TokenSource yields the current bearer token, or "" when none is held.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Bearer is an http.RoundTripper that reads the token from Source on every
// request. A token saved after the client was built is picked up by the next
// request without rebuilding the client.
type Bearer struct {
	Source TokenSource
	// Base is the underlying transport. http.DefaultTransport when nil.
	Base http.RoundTripper
}

func (b *Bearer) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := b.Source.Token(req.Context())
	if err != nil {
		closeBody(req)
		return nil, fmt.Errorf("bearer: read token: %w", err)
	}

	// RoundTrippers must not modify the caller's request.
	out := req.Clone(req.Context())
	if token != "" {
		out.Header.Set("Authorization", "Bearer "+token)
	} else {
		out.Header.Del("Authorization")
	}
	return b.base().RoundTrip(out)
}

func (b *Bearer) base() http.RoundTripper {
	if b.Base != nil {
		return b.Base
	}
	return http.DefaultTransport
}

func closeBody(req *http.Request) {
	if req.Body != nil {
		_ = req.Body.Close()
	}
}
