// Package policy decides where a client session may go. One pure rule backs
// both the route guard and the role router.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/tunestream/streaming-api/internal/client/credential"
	"github.com/tunestream/streaming-api/internal/core/domain"
)

const (
	DefaultLoginPath   = "/login"
	DefaultLandingPath = "/"
	DefaultAdminPath   = "/admin"
)

// Session is a snapshot of the credential store taken for one decision.
type Session struct {
	Token string
	User  *credential.User
	Role  domain.Role
}

// Authenticated reports whether both halves of the credential are present.
func (s Session) Authenticated() bool {
	return s.Token != "" && s.User != nil
}

// SessionSource is the read side of the credential store.
type SessionSource interface {
	Get(ctx context.Context) (credential.Credential, bool, error)
}

// Load reads a fresh Session. An absent or discarded credential yields the
// zero Session.
func Load(ctx context.Context, src SessionSource) (Session, error) {
	cred, ok, err := src.Get(ctx)
	if err != nil {
		return Session{}, fmt.Errorf("load session: %w", err)
	}
	if !ok {
		return Session{}, nil
	}
	user := cred.User
	return Session{Token: cred.Token, User: &user, Role: cred.Role}, nil
}

// Rule describes the access requirements of a path.
type Rule struct {
	Protected    bool
	RequiredRole domain.Role
}

// Decision is either Allow or a redirect to Redirect.
type Decision struct {
	Allow    bool
	Redirect string
}

func allow() Decision { return Decision{Allow: true} }

func redirect(to string) Decision { return Decision{Redirect: to} }

type Policy struct {
	LoginPath   string
	LandingPath string
	AdminPath   string
}

func Default() Policy {
	return Policy{
		LoginPath:   DefaultLoginPath,
		LandingPath: DefaultLandingPath,
		AdminPath:   DefaultAdminPath,
	}
}

// Decide applies, in order:
//  1. protected rule without a credential: go to login.
//  2. protected rule whose required role is not held: go to landing.
//  3. for a known path, an admin outside the admin subtree goes to it and a
//     non-admin inside it goes to landing.
//
// The redirect never says which role would have been needed.
func (p Policy) Decide(s Session, path string, rule Rule) Decision {
	authed := s.Authenticated()

	if rule.Protected {
		if !authed {
			return redirect(p.LoginPath)
		}
		if rule.RequiredRole != "" && s.Role != rule.RequiredRole {
			return redirect(p.LandingPath)
		}
	}

	if authed && path != "" {
		inAdmin := p.InAdmin(path)
		switch {
		case s.Role == domain.RoleAdmin && !inAdmin:
			return redirect(p.AdminPath)
		case s.Role != domain.RoleAdmin && inAdmin:
			return redirect(p.LandingPath)
		}
	}

	return allow()
}

// Guard gates a protected subtree, optionally restricted to requiredRole.
func (p Policy) Guard(s Session, requiredRole domain.Role) Decision {
	return p.Decide(s, "", Rule{Protected: true, RequiredRole: requiredRole})
}

// Route keeps an authenticated session inside the subtree of its role.
// Unauthenticated sessions are left alone.
func (p Policy) Route(s Session, path string) Decision {
	return p.Decide(s, path, Rule{})
}

// InAdmin reports whether path lies in the admin subtree.
func (p Policy) InAdmin(path string) bool {
	return path == p.AdminPath || strings.HasPrefix(path, strings.TrimSuffix(p.AdminPath, "/")+"/")
}
