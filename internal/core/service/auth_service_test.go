package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

type stubAuthRepo struct {
	users map[string]*domain.User
	seq   int
}

func newStubAuthRepo() *stubAuthRepo {
	return &stubAuthRepo{users: make(map[string]*domain.User)}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	clone := *u
	return &clone
}

func (r *stubAuthRepo) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	if _, exists := r.users[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	r.seq++
	copy := cloneUser(user)
	copy.ID = "user-" + string(rune('0'+r.seq))
	r.users[copy.Email] = cloneUser(copy)
	return cloneUser(copy), nil
}

func (r *stubAuthRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	if u, ok := r.users[email]; ok {
		return cloneUser(u), nil
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) FindByID(_ context.Context, id string) (*domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubAuthRepo) List(_ context.Context, limit int) ([]*domain.User, error) {
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		if len(out) == limit {
			break
		}
		out = append(out, cloneUser(u))
	}
	return out, nil
}

func newAuthSvc(repo *stubAuthRepo) *AuthService {
	return NewAuthService(repo, "secret", time.Hour, zerolog.Nop())
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newAuthSvc(repo)

	res, err := svc.Register(context.Background(), "Alice", " Alice@Example.com ", "pass123")
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected registration to issue a token")
	}
	if res.User.Email != "alice@example.com" {
		t.Fatalf("expected normalized email, got %s", res.User.Email)
	}
	if res.User.Role != domain.RoleUser {
		t.Fatalf("unexpected role: %s", res.User.Role)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(res.User.PasswordHash), []byte("pass123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
}

func TestAuthService_Register_Validation(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	if _, err := svc.Register(context.Background(), "", "a@example.com", "pass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for missing name, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "Bob", "", "pass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for missing email, got %v", err)
	}
	if _, err := svc.Register(context.Background(), "Bob", "bob@example.com", ""); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials for missing password, got %v", err)
	}
}

func TestAuthService_Register_Duplicate(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	_, _ = svc.Register(context.Background(), "Bob", "bob@example.com", "pass")
	if _, err := svc.Register(context.Background(), "Bob", "bob@example.com", "pass2"); err != domain.ErrUserExists {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthService_Login_Success(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newAuthSvc(repo)

	if err := svc.EnsureAdmin(context.Background(), "carol@example.com", "s3cret"); err != nil {
		t.Fatalf("ensure admin failed: %v", err)
	}

	res, err := svc.Login(context.Background(), "carol@example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.User == nil || res.User.Role != domain.RoleAdmin {
		t.Fatalf("unexpected user: %+v", res.User)
	}

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(res.Token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	})
	if err != nil || !parsed.Valid {
		t.Fatalf("token invalid: %v", err)
	}
	if claims["role"] != string(domain.RoleAdmin) {
		t.Fatalf("expected role %s, got %v", domain.RoleAdmin, claims["role"])
	}
	if claims["sub"] != res.User.ID {
		t.Fatalf("expected sub %s, got %v", res.User.ID, claims["sub"])
	}
	if claims["jti"] == "" || claims["jti"] == nil {
		t.Fatalf("expected token id")
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	_, _ = svc.Register(context.Background(), "Dave", "dave@example.com", "goodpass")
	if _, err := svc.Login(context.Background(), "dave@example.com", "badpass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_Login_UnknownUserLooksLikeBadPassword(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	if _, err := svc.Login(context.Background(), "ghost@example.com", "pass"); err != domain.ErrInvalidCredentials {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_EnsureAdmin_Idempotent(t *testing.T) {
	repo := newStubAuthRepo()
	svc := newAuthSvc(repo)

	for i := 0; i < 2; i++ {
		if err := svc.EnsureAdmin(context.Background(), "root@example.com", "pw"); err != nil {
			t.Fatalf("EnsureAdmin #%d: %v", i, err)
		}
	}
	if len(repo.users) != 1 {
		t.Fatalf("expected a single admin account, got %d", len(repo.users))
	}
}

func TestAuthService_Verify_RoundTrip(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	res, err := svc.Register(context.Background(), "Erin", "erin@example.com", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	id, err := svc.Verify(res.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if id.UserID != res.User.ID || id.Role != domain.RoleUser || id.Email != "erin@example.com" || id.TokenID == "" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestAuthService_Verify_Rejects(t *testing.T) {
	svc := newAuthSvc(newStubAuthRepo())

	sign := func(method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"sub":  "u1",
			"role": "user",
			"iss":  defaultIssuer,
			"exp":  time.Now().Add(time.Hour).Unix(),
		}
	}

	expired := valid()
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExp := valid()
	delete(noExp, "exp")
	badRole := valid()
	badRole["role"] = "superuser"
	foreignIssuer := valid()
	foreignIssuer["iss"] = "someone-else"

	cases := map[string]string{
		"garbage":        "not-a-token",
		"wrong secret":   sign(jwt.SigningMethodHS256, []byte("other"), valid()),
		"wrong alg":      sign(jwt.SigningMethodHS512, []byte("secret"), valid()),
		"expired":        sign(jwt.SigningMethodHS256, []byte("secret"), expired),
		"missing exp":    sign(jwt.SigningMethodHS256, []byte("secret"), noExp),
		"unknown role":   sign(jwt.SigningMethodHS256, []byte("secret"), badRole),
		"foreign issuer": sign(jwt.SigningMethodHS256, []byte("secret"), foreignIssuer),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Verify(token); !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
