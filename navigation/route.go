package navigation

import (
	"context"
	"net/url"
	"strings"
)

// Params holds the values of the dynamic segments of a matched location.
type Params map[string]string

type (
	LoaderArgs struct {
		Params Params
		URL    *url.URL
	}

	ActionArgs struct {
		Params Params
		Form   url.Values
	}

	// LoaderFunc returns the data a route needs before it renders.
	// Returning a [*RoutingError] renders the nearest error boundary with its status.
	LoaderFunc func(ctx context.Context, args LoaderArgs) (any, error)

	// ActionFunc handles a form submitted to a route. It returns a [*Redirect]
	// or any mutation result.
	ActionFunc func(ctx context.Context, args ActionArgs) (any, error)
)

// Route binds a path pattern to its loader and action. Child paths are
// relative to their parent; segments starting with ':' capture a param.
type Route struct {
	ID            string
	Path          string
	Loader        LoaderFunc
	Action        ActionFunc
	ErrorBoundary bool
	Children      []*Route
}

type Match struct {
	Route  *Route
	Params Params
}

// MatchRoutes returns the branch of routes from root to the route matching
// pathname entirely, or nil when nothing matches. Static segments are
// preferred over dynamic ones.
func MatchRoutes(root *Route, pathname string) []Match {
	params := Params{}
	branch, _, ok := matchRoute(root, segments(pathname), params)
	if !ok {
		return nil
	}
	matches := make([]Match, len(branch))
	for i, r := range branch {
		matches[i] = Match{Route: r, Params: params}
	}
	return matches
}

func matchRoute(r *Route, segs []string, params Params) ([]*Route, int, bool) {
	pattern := segments(r.Path)
	if len(pattern) > len(segs) {
		return nil, 0, false
	}

	score := 0
	captured := Params{}
	for i, p := range pattern {
		switch {
		case strings.HasPrefix(p, ":"):
			captured[p[1:]] = segs[i]
			score += 3
		case p == segs[i]:
			score += 10
		default:
			return nil, 0, false
		}
	}
	rest := segs[len(pattern):]

	var (
		best       []*Route
		bestScore  = -1
		bestParams Params
	)
	for _, child := range r.Children {
		childParams := Params{}
		branch, s, ok := matchRoute(child, rest, childParams)
		if ok && s > bestScore {
			best, bestScore, bestParams = branch, s, childParams
		}
	}

	switch {
	case best != nil:
		score += bestScore
	case len(rest) > 0:
		return nil, 0, false
	}

	for k, v := range captured {
		params[k] = v
	}
	for k, v := range bestParams {
		params[k] = v
	}
	return append([]*Route{r}, best...), score, true
}

func segments(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	segs := strings.Split(path, "/")
	for i, s := range segs {
		if u, err := url.PathUnescape(s); err == nil {
			segs[i] = u
		}
	}
	return segs
}

// nearestBoundary returns the index of the closest route at or above i that
// handles errors, or -1.
func nearestBoundary(matches []Match, i int) int {
	for ; i >= 0; i-- {
		if matches[i].Route.ErrorBoundary {
			return i
		}
	}
	return -1
}
