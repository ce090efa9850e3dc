// Package flow drives login and registration: idle, submitting, then success
// or failure. A failure returns the machine to idle with the error kept for
// display; resubmission is always manual.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/tunestream/streaming-api/internal/client/api"
	"github.com/tunestream/streaming-api/internal/client/credential"
	"github.com/tunestream/streaming-api/internal/client/policy"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

type State int

const (
	Idle State = iota
	Submitting
	Success
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Submitting:
		return "submitting"
	case Success:
		return "success"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrInFlight rejects a submission while another one is still running.
var ErrInFlight = errors.New("a submission is already in progress")

const saveFailedMessage = "Signed in, but the session could not be stored."

// Authenticator is the slice of the API client the flow calls.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, name, email, password string) (*api.AuthResponse, error)
}

type CredentialStore interface {
	Save(ctx context.Context, token string, user credential.User) error
	Clear(ctx context.Context) error
}

type Navigator interface {
	Navigate(ctx context.Context, path string) (string, error)
	Sync(ctx context.Context) (string, error)
}

// Outcome is the result of one submission.
type Outcome struct {
	State State
	// Target is where navigation settled after a successful submission.
	Target string
	User   *credential.User
	// Message is the user-facing error of a failed submission.
	Message string
	Errors  []string
}

type loginForm struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type registerForm struct {
	Name     string `validate:"required"`
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type Machine struct {
	auth     Authenticator
	store    CredentialStore
	nav      Navigator
	policy   policy.Policy
	validate *validator.Validate
	log      zerolog.Logger

	mu      sync.Mutex
	state   State
	lastErr string
}

func New(auth Authenticator, store CredentialStore, nav Navigator, p policy.Policy, log zerolog.Logger) *Machine {
	return &Machine{
		auth:     auth,
		store:    store,
		nav:      nav,
		policy:   p,
		validate: validator.New(),
		log:      log,
	}
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// LastError returns the message of the most recent failed submission, or "".
func (m *Machine) LastError() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastErr
}

func (m *Machine) Login(ctx context.Context, email, password string) (Outcome, error) {
	return m.submit(ctx, loginForm{Email: email, Password: password}, func(ctx context.Context) (*api.AuthResponse, error) {
		return m.auth.Login(ctx, email, password)
	})
}

// Register creates an account and signs it in exactly like Login.
func (m *Machine) Register(ctx context.Context, name, email, password string) (Outcome, error) {
	return m.submit(ctx, registerForm{Name: name, Email: email, Password: password}, func(ctx context.Context) (*api.AuthResponse, error) {
		return m.auth.Register(ctx, name, email, password)
	})
}

// Logout clears the credential and re-applies the navigation policy.
func (m *Machine) Logout(ctx context.Context) (string, error) {
	if err := m.store.Clear(ctx); err != nil {
		return "", err
	}

	m.mu.Lock()
	m.state = Idle
	m.lastErr = ""
	m.mu.Unlock()

	return m.nav.Sync(ctx)
}

func (m *Machine) submit(ctx context.Context, form any, call func(context.Context) (*api.AuthResponse, error)) (Outcome, error) {
	m.mu.Lock()
	if m.state == Submitting {
		m.mu.Unlock()
		return Outcome{State: Submitting}, ErrInFlight
	}
	if err := m.validate.Struct(form); err != nil {
		msg := requiredMessage(err)
		m.state = Idle
		m.lastErr = msg
		m.mu.Unlock()
		return Outcome{State: Failed, Message: msg}, nil
	}
	m.state = Submitting
	m.lastErr = ""
	m.mu.Unlock()

	res, err := call(ctx)
	if err != nil {
		m.log.Debug().Err(err).Msg("auth submission rejected")
		var apiErr *api.Error
		var fields []string
		if errors.As(err, &apiErr) {
			fields = apiErr.Errors
		}
		return m.fail(api.Message(err), fields), nil
	}
	if res == nil {
		m.log.Warn().Msg("auth submission returned no payload")
		return m.fail(api.GenericMessage, nil), nil
	}

	if err := m.store.Save(ctx, res.Token, res.User); err != nil {
		m.log.Warn().Err(err).Msg("failed to persist credential")
		return m.fail(saveFailedMessage, nil), nil
	}

	target := m.policy.LandingPath
	if res.User.Role == domain.RoleAdmin {
		target = m.policy.AdminPath
	}
	settled, err := m.nav.Navigate(ctx, target)
	if err != nil {
		m.log.Warn().Err(err).Str("target", target).Msg("post-login navigation failed")
		settled = target
	}

	m.mu.Lock()
	m.state = Success
	m.mu.Unlock()

	user := res.User
	return Outcome{State: Success, Target: settled, User: &user}, nil
}

// fail records msg and returns the machine to idle.
func (m *Machine) fail(msg string, fields []string) Outcome {
	m.mu.Lock()
	m.state = Idle
	m.lastErr = msg
	m.mu.Unlock()
	return Outcome{State: Failed, Message: msg, Errors: fields}
}

func requiredMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, strings.ToLower(fe.Field())+" is required")
	}
	return strings.Join(msgs, "; ")
}
