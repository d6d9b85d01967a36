package guard

import (
	"context"
	"sync"

	"github.com/desertthunder/tunz/internal/auth"
	"github.com/desertthunder/tunz/internal/session"
	"github.com/desertthunder/tunz/internal/shared"
)

// Kind is the outcome of a guard.
type Kind int

const (
	Render Kind = iota
	Redirect
	Pending
)

func (k Kind) String() string {
	switch k {
	case Render:
		return "render"
	case Redirect:
		return "redirect"
	case Pending:
		return "pending"
	default:
		return "unknown"
	}
}

// Decision is what a guard tells the caller to do.
type Decision struct {
	Kind     Kind
	Location string // set for Redirect
}

func RenderDecision() Decision            { return Decision{Kind: Render} }
func PendingDecision() Decision           { return Decision{Kind: Pending} }
func RedirectDecision(to string) Decision { return Decision{Kind: Redirect, Location: to} }

// TokenReader exposes the durable token.
type TokenReader interface {
	Token() string
}

// Checker is the part of the auth machine the protected guard needs.
type Checker interface {
	State() auth.State
	Subscribe(fn func(auth.State)) (unsubscribe func())
	CheckAuth(ctx context.Context) error
}

var (
	_ TokenReader = (*session.Store)(nil)
	_ Checker     = (*auth.Machine)(nil)
)

// AnonymousOnly redirects to the song list when a durable token is present.
func AnonymousOnly(tokens TokenReader) Decision {
	if tokens.Token() != "" {
		return RedirectDecision(PathSongs)
	}
	return RenderDecision()
}

// Status is the state of [AuthenticatedOnly].
type Status string

const (
	StatusChecking Status = "checking"
	StatusValid    Status = "valid"
	StatusInvalid  Status = "invalid"
)

// AuthenticatedOnly gates protected routes.
type AuthenticatedOnly struct {
	tokens TokenReader
	auth   Checker

	mu      sync.Mutex
	mounted bool
	token   string
	status  Status
}

func NewAuthenticatedOnly(tokens TokenReader, checker Checker) *AuthenticatedOnly {
	return &AuthenticatedOnly{tokens: tokens, auth: checker, status: StatusChecking}
}

// Status returns the last evaluated status.
func (g *AuthenticatedOnly) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}

// Mount evaluates the synchronous part of the guard.
//
// No token is invalid at once and a cached user is valid at once. Anything else is checking until [Await] runs. A
// decision is reused until the durable token changes.
func (g *AuthenticatedOnly) Mount() Decision {
	token := g.tokens.Token()

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mounted && token == g.token && g.status != StatusChecking {
		return decisionFor(g.status)
	}

	g.mounted = true
	g.token = token
	switch {
	case token == "":
		g.status = StatusInvalid
	case g.auth.State().User != nil:
		g.status = StatusValid
	default:
		g.status = StatusChecking
	}
	return decisionFor(g.status)
}

// Await resolves a checking guard by dispatching revalidation and blocking until it settles.
func (g *AuthenticatedOnly) Await(ctx context.Context) Decision {
	d := g.Mount()
	if d.Kind != Pending {
		return d
	}

	err := g.auth.CheckAuth(ctx)
	if auth.IsStale(err) {
		err = g.settle(ctx)
	}

	token := g.tokens.Token()

	g.mu.Lock()
	defer g.mu.Unlock()

	g.token = token
	if err != nil || token == "" {
		g.status = StatusInvalid
	} else {
		g.status = StatusValid
	}
	return decisionFor(g.status)
}

// settle waits for the dispatch that overtook this check to commit, then judges by its outcome.
func (g *AuthenticatedOnly) settle(ctx context.Context) error {
	changed := make(chan struct{}, 1)
	unsubscribe := g.auth.Subscribe(func(auth.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		s := g.auth.State()
		if s.Phase != auth.PhasePending {
			if s.Authenticated() {
				return nil
			}
			return shared.ErrNotAuthenticated
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Check is Mount followed by Await.
func (g *AuthenticatedOnly) Check(ctx context.Context) Decision {
	return g.Await(ctx)
}

func decisionFor(s Status) Decision {
	switch s {
	case StatusValid:
		return RenderDecision()
	case StatusInvalid:
		return RedirectDecision(PathLogin)
	default:
		return PendingDecision()
	}
}
