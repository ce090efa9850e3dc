package policy

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/tunestream/streaming-api/internal/core/domain"
)

const maxRedirects = 8

var ErrRedirectLoop = errors.New("navigation did not settle")

// DefaultRoutes is the route table of the streaming client.
func DefaultRoutes() map[string]Rule {
	return map[string]Rule{
		"/":         {},
		"/login":    {},
		"/register": {},
		"/payment":  {},
		"/premium":  {Protected: true},
		"/profile":  {Protected: true},
		"/history":  {Protected: true},
		"/admin":    {Protected: true, RequiredRole: domain.RoleAdmin},
	}
}

type route struct {
	prefix string
	rule   Rule
}

// Navigator tracks the current path and re-applies the policy on every
// navigation and every Sync. The session is re-read each time; nothing is
// cached between calls, so a change made by another process is honoured on
// the next evaluation.
type Navigator struct {
	policy Policy
	source SessionSource
	routes []route

	mu      sync.Mutex
	current string
}

func NewNavigator(p Policy, source SessionSource, routes map[string]Rule) *Navigator {
	rs := make([]route, 0, len(routes))
	for prefix, rule := range routes {
		rs = append(rs, route{prefix: prefix, rule: rule})
	}
	// Longest prefix first so the most specific rule wins.
	sort.Slice(rs, func(i, j int) bool { return len(rs[i].prefix) > len(rs[j].prefix) })

	return &Navigator{policy: p, source: source, routes: rs, current: p.LandingPath}
}

// Current returns the path the navigator last settled on.
func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate moves to path, following redirects until the policy allows the
// destination, and returns where it settled.
func (n *Navigator) Navigate(ctx context.Context, path string) (string, error) {
	session, err := Load(ctx, n.source)
	if err != nil {
		return "", err
	}

	settled, err := n.settle(session, path)
	if err != nil {
		return "", err
	}

	n.mu.Lock()
	n.current = settled
	n.mu.Unlock()
	return settled, nil
}

// Sync re-evaluates the current path after the credential changed.
func (n *Navigator) Sync(ctx context.Context) (string, error) {
	return n.Navigate(ctx, n.Current())
}

func (n *Navigator) settle(s Session, path string) (string, error) {
	for i := 0; i < maxRedirects; i++ {
		d := n.policy.Decide(s, path, n.ruleFor(path))
		if d.Allow || d.Redirect == path {
			return path, nil
		}
		path = d.Redirect
	}
	return "", ErrRedirectLoop
}

func (n *Navigator) ruleFor(path string) Rule {
	for _, r := range n.routes {
		if path == r.prefix || r.prefix == "/" || strings.HasPrefix(path, strings.TrimSuffix(r.prefix, "/")+"/") {
			return r.rule
		}
	}
	return Rule{}
}
