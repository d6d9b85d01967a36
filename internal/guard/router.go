package guard

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/tunz/internal/shared"
)

const (
	PathLogin    = "/"
	PathRegister = "/register"
	PathSongs    = "/songs"
	PathAdd      = "/add"
	PathEdit     = "/edit/:id"
)

// maxRedirects bounds [Router.Navigate].
const maxRedirects = 5

// Access says which guard protects a route.
type Access int

const (
	AccessAnonymous Access = iota
	AccessAuthenticated
)

// Route is an entry in the route table.
type Route struct {
	Name    string
	Pattern string
	Access  Access
}

// Routes is the client route table.
var Routes = []Route{
	{Name: "login", Pattern: PathLogin, Access: AccessAnonymous},
	{Name: "register", Pattern: PathRegister, Access: AccessAnonymous},
	{Name: "songs", Pattern: PathSongs, Access: AccessAuthenticated},
	{Name: "add", Pattern: PathAdd, Access: AccessAuthenticated},
	{Name: "edit", Pattern: PathEdit, Access: AccessAuthenticated},
}

// EditPath builds the edit route for id.
func EditPath(id string) string {
	return "/edit/" + url.PathEscape(id)
}

// Match is a path matched against a [Route].
type Match struct {
	Route  Route
	Path   string
	Params map[string]string
}

// Param returns a path parameter or "".
func (m Match) Param(name string) string {
	return m.Params[name]
}

// Outcome pairs a match with the guard's synchronous decision.
type Outcome struct {
	Match    Match
	Decision Decision
}

// Router resolves paths through the guards.
type Router struct {
	routes    []Route
	tokens    TokenReader
	protected *AuthenticatedOnly
}

func NewRouter(tokens TokenReader, protected *AuthenticatedOnly) *Router {
	return &Router{routes: Routes, tokens: tokens, protected: protected}
}

// Match finds the route for path, failing with [shared.ErrRouteNotFound].
func (r *Router) Match(path string) (Match, error) {
	if path == "" {
		path = PathLogin
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}

	for _, route := range r.routes {
		if params, ok := matchPattern(route.Pattern, path); ok {
			return Match{Route: route, Path: path, Params: params}, nil
		}
	}
	return Match{}, fmt.Errorf("%w: %s", shared.ErrRouteNotFound, path)
}

// Resolve matches path and runs the synchronous part of its guard.
func (r *Router) Resolve(path string) (Outcome, error) {
	m, err := r.Match(path)
	if err != nil {
		return Outcome{}, err
	}

	if m.Route.Access == AccessAnonymous {
		return Outcome{Match: m, Decision: AnonymousOnly(r.tokens)}, nil
	}
	return Outcome{Match: m, Decision: r.protected.Mount()}, nil
}

// Navigate follows guards and redirects from path until a route renders.
func (r *Router) Navigate(ctx context.Context, path string) (Match, error) {
	for range maxRedirects + 1 {
		m, err := r.Match(path)
		if err != nil {
			return Match{}, err
		}

		var d Decision
		if m.Route.Access == AccessAnonymous {
			d = AnonymousOnly(r.tokens)
		} else {
			d = r.protected.Await(ctx)
		}

		if d.Kind == Render {
			return m, nil
		}
		if err := ctx.Err(); err != nil {
			return Match{}, err
		}
		path = d.Location
	}
	return Match{}, fmt.Errorf("too many redirects navigating to %s", path)
}

func matchPattern(pattern, path string) (map[string]string, bool) {
	pp := strings.Split(strings.Trim(pattern, "/"), "/")
	sp := strings.Split(strings.Trim(path, "/"), "/")
	if len(pp) != len(sp) {
		return nil, false
	}

	params := map[string]string{}
	for i, seg := range pp {
		if name, ok := strings.CutPrefix(seg, ":"); ok {
			if sp[i] == "" {
				return nil, false
			}
			value, err := url.PathUnescape(sp[i])
			if err != nil {
				return nil, false
			}
			params[name] = value
			continue
		}
		if seg != sp[i] {
			return nil, false
		}
	}
	return params, true
}
