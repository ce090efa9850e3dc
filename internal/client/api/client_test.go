package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunestream/streaming-api/internal/client/credential"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

func newStore() *credential.Store {
	return credential.NewStore(credential.NewMemoryBackend(), zerolog.Nop())
}

func TestClient_Login(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get("Authorization"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ada@example.com", body["email"])

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"token":"abc","user":{"id":"a1","email":"ada@example.com","role":"admin"}}`))
	}))
	defer srv.Close()

	res, err := New(srv.URL, newStore()).Login(context.Background(), "ada@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, "abc", res.Token)
	assert.Equal(t, domain.RoleAdmin, res.User.Role)
}

func TestClient_ServerErrorMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Validation failed","errors":["email is required"]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, newStore()).Login(context.Background(), "", "pw")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Equal(t, []string{"email is required"}, apiErr.Errors)
	assert.Equal(t, "Validation failed", Message(err))
	assert.True(t, IsStatus(err, http.StatusUnprocessableEntity))
}

func TestClient_ObjectShapedFieldErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"Email already exists","errors":[{"msg":"Email already exists","param":"email"},{"message":"name too long"},42]}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, newStore()).Register(context.Background(), "Ada", "ada@example.com", "secret1")
	require.Error(t, err)

	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, []string{"Email already exists", "name too long"}, apiErr.Errors)
	assert.Equal(t, "Email already exists", Message(err))
}

func TestClient_UnexpectedErrorsShapeKeepsMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials","errors":{"email":"unknown"}}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, newStore()).Login(context.Background(), "ada@example.com", "pw")
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", Message(err))
}

func TestClient_ErrorWithoutMessageFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, newStore()).Me(context.Background())
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Equal(t, GenericMessage, Message(err))
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url, newStore()).Login(context.Background(), "a@example.com", "pw")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransport)
	assert.Equal(t, GenericMessage, Message(err))
}

func TestClient_AuthenticatedCalls(t *testing.T) {
	ctx := context.Background()
	store := newStore()
	require.NoError(t, store.Save(ctx, "tok", credential.User{ID: "u1", Role: domain.RoleUser}))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/auth/me":
			_, _ = w.Write([]byte(`{"user":{"id":"u1","email":"u@example.com","role":"user"}}`))
		case "/v1/payments/REF%2F1", "/v1/payments/REF/1":
			assert.Equal(t, "/v1/payments/REF%2F1", r.URL.EscapedPath())
			_, _ = w.Write([]byte(`{"txn_ref":"REF/1","status":"success","amount":99000,"response_code":"00"}`))
		case "/v1/payments":
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"txn_ref":"REF1","payment_url":"https://pay.example/x"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := New(srv.URL, store)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)

	status, err := c.PaymentStatus(ctx, "REF/1")
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentSuccess, status.Status)

	checkout, err := c.CreatePayment(ctx, 99000, "Premium")
	require.NoError(t, err)
	assert.Equal(t, "REF1", checkout.TxnRef)
}
