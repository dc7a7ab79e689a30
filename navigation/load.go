package navigation

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"net/url"

	"golang.org/x/sync/errgroup"
)

// Phase is the state of the controller's navigation.
type Phase int

const (
	Idle Phase = iota
	Loading
	Submitting
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// State is a snapshot of what is rendered.
type State struct {
	// Location is the last committed location.
	Location string
	Phase    Phase
	// Pending is the location being loaded or submitted to, if any.
	Pending string

	// Matches are the rendered routes, cut at the boundary of the shallowest error.
	Matches    []Match
	LoaderData map[string]any
	ActionData any
	// Errors maps error boundary route ids to the error they render.
	Errors map[string]error

	// Revision counts commits.
	Revision uint64
}

// Data returns the loader data of route id.
func (s State) Data(id string) any { return s.LoaderData[id] }

// Error returns the first error rendered by a boundary, from root to leaf.
func (s State) Error() (routeID string, err error) {
	for _, m := range s.Matches {
		if err, ok := s.Errors[m.Route.ID]; ok {
			return m.Route.ID, err
		}
	}
	return "", nil
}

func (s State) clone() State {
	s.Matches = append([]Match(nil), s.Matches...)
	s.LoaderData = maps.Clone(s.LoaderData)
	s.Errors = maps.Clone(s.Errors)
	return s
}

// Load runs every loader matched by location concurrently and returns the
// resulting state. Loader errors are attached to their nearest error boundary;
// an error no boundary handles is returned.
func Load(ctx context.Context, root *Route, location string) (State, error) {
	u, err := url.Parse(location)
	if err != nil {
		return State{}, NewRoutingError(http.StatusBadRequest, err.Error())
	}

	matches := MatchRoutes(root, u.Path)
	if matches == nil {
		return notMatched(root, location)
	}

	data := make([]any, len(matches))
	errs := make([]error, len(matches))
	var g errgroup.Group
	for i, m := range matches {
		if m.Route.Loader == nil {
			continue
		}
		g.Go(func() error {
			data[i], errs[i] = m.Route.Loader(ctx, LoaderArgs{Params: m.Params, URL: u})
			return nil
		})
	}
	_ = g.Wait() // loaders never fail the group, their errors are kept per route

	state := State{
		Location:   location,
		Matches:    matches,
		LoaderData: make(map[string]any, len(matches)),
		Errors:     make(map[string]error),
	}
	cut := len(matches)
	for i, err := range errs {
		if err == nil {
			continue
		}
		b := nearestBoundary(matches, i)
		if b < 0 {
			return State{}, fmt.Errorf("navigation: unhandled error in route %q: %w", matches[i].Route.ID, err)
		}
		id := matches[b].Route.ID
		if _, ok := state.Errors[id]; !ok {
			state.Errors[id] = err
		}
		cut = min(cut, b+1)
	}
	state.Matches = matches[:cut]
	for i, m := range state.Matches {
		if errs[i] == nil && m.Route.Loader != nil {
			state.LoaderData[m.Route.ID] = data[i]
		}
	}
	return state, nil
}

// Act runs the action of the route matching location.
// It fails with 404 when nothing matches and 405 when the route has no action.
func Act(ctx context.Context, root *Route, location string, form url.Values) (any, error) {
	result, _, err := act(ctx, root, location, form)
	return result, err
}

// act also returns the matches and the index of the boundary handling its error.
func act(ctx context.Context, root *Route, location string, form url.Values) (any, actionScope, error) {
	u, err := url.Parse(location)
	if err != nil {
		return nil, actionScope{}, NewRoutingError(http.StatusBadRequest, err.Error())
	}

	matches := MatchRoutes(root, u.Path)
	if matches == nil {
		scope := actionScope{matches: []Match{{Route: root, Params: Params{}}}, boundary: -1}
		if root.ErrorBoundary {
			scope.boundary = 0
		}
		return nil, scope, NotFound()
	}

	leaf := matches[len(matches)-1]
	scope := actionScope{matches: matches, boundary: nearestBoundary(matches, len(matches)-1)}
	if leaf.Route.Action == nil {
		return nil, scope, NewRoutingError(http.StatusMethodNotAllowed,
			fmt.Sprintf("route %q does not handle submissions", leaf.Route.ID))
	}

	if form == nil {
		form = url.Values{}
	}
	result, err := leaf.Route.Action(ctx, ActionArgs{Params: leaf.Params, Form: form})
	return result, scope, err
}

type actionScope struct {
	matches  []Match
	boundary int
}

func (s actionScope) boundaryID() string {
	if s.boundary < 0 {
		return ""
	}
	return s.matches[s.boundary].Route.ID
}

func notMatched(root *Route, location string) (State, error) {
	if !root.ErrorBoundary {
		return State{}, fmt.Errorf("navigation: no route matches %q: %w", location, NotFound())
	}
	return State{
		Location:   location,
		Matches:    []Match{{Route: root, Params: Params{}}},
		LoaderData: map[string]any{},
		Errors:     map[string]error{root.ID: NotFound()},
	}, nil
}
