// Package api is a typed HTTP client for the tunestream server. Requests are
// authenticated by the transport, never by the caller.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tunestream/streaming-api/internal/client/credential"
	"github.com/tunestream/streaming-api/internal/client/transport"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

const defaultTimeout = 15 * time.Second

// GenericMessage is shown when the server did not supply a message of its own.
const GenericMessage = "Unable to reach the server. Please try again."

// ErrTransport wraps failures that happened before a response was received.
var ErrTransport = errors.New("transport error")

// Error is a response the server rejected with a non-2xx status.
type Error struct {
	Status  int
	Message string
	Errors  []string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// Message returns the text to show a user for err: the server's own message
// when it sent one, otherwise GenericMessage.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericMessage
}

// IsStatus reports whether err is a server rejection with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type AuthResponse struct {
	Token string          `json:"token"`
	User  credential.User `json:"user"`
}

type Checkout struct {
	TxnRef     string `json:"txn_ref"`
	PaymentURL string `json:"payment_url"`
}

type PaymentStatus struct {
	TxnRef       string               `json:"txn_ref"`
	Status       domain.PaymentStatus `json:"status"`
	Amount       int64                `json:"amount"`
	ResponseCode string               `json:"response_code,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*http.Client)

// WithTimeout bounds every request. A slow server never blocks the caller
// longer than d.
func WithTimeout(d time.Duration) Option {
	return func(c *http.Client) { c.Timeout = d }
}

// WithBaseTransport replaces the transport underneath the bearer authenticator.
func WithBaseTransport(rt http.RoundTripper) Option {
	return func(c *http.Client) {
		if b, ok := c.Transport.(*transport.Bearer); ok {
			b.Base = rt
		}
	}
}

// New returns a client for baseURL that authenticates with the token held by
// source at the time of each request.
func New(baseURL string, source transport.TokenSource, opts ...Option) *Client {
	hc := &http.Client{
		Timeout:   defaultTimeout,
		Transport: &transport.Bearer{Source: source},
	}
	for _, opt := range opts {
		opt(hc)
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: hc}
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account. The server answers with the same shape as Login.
func (c *Client) Register(ctx context.Context, name, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/register", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (*credential.User, error) {
	var out struct {
		User credential.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &out); err != nil {
		return nil, err
	}
	return &out.User, nil
}

func (c *Client) CreatePayment(ctx context.Context, amount int64, orderInfo string) (*Checkout, error) {
	var out Checkout
	body := map[string]any{"amount": amount, "order_info": orderInfo}
	if err := c.do(ctx, http.MethodPost, "/v1/payments", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) PaymentStatus(ctx context.Context, txnRef string) (*PaymentStatus, error) {
	var out PaymentStatus
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(txnRef), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", ErrTransport, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s response: %v", ErrTransport, path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{Status: resp.StatusCode}

	var payload struct {
		Message string          `json:"message"`
		Errors  json.RawMessage `json:"errors"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &payload) == nil {
		apiErr.Message = payload.Message
		apiErr.Errors = fieldMessages(payload.Errors)
	}
	return apiErr
}

// fieldMessages flattens the errors collection. Entries may be plain strings
// or objects carrying a msg or message field; anything else is skipped.
func fieldMessages(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(raw, &items) != nil {
		return nil
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
			continue
		}
		var obj struct {
			Msg     string `json:"msg"`
			Message string `json:"message"`
		}
		if json.Unmarshal(item, &obj) != nil {
			continue
		}
		switch {
		case obj.Msg != "":
			out = append(out, obj.Msg)
		case obj.Message != "":
			out = append(out, obj.Message)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
