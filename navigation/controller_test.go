package navigation

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gate blocks a loader or action until released.
type gate struct {
	started chan struct{}
	release chan struct{}
}

func newGate() *gate {
	return &gate{started: make(chan struct{}), release: make(chan struct{})}
}

func (g *gate) pass() {
	close(g.started)
	<-g.release
}

// searchRoot echoes the query; queries with a gate block until released.
func searchRoot(gates map[string]*gate) *Route {
	return &Route{ID: "root", Path: "/", ErrorBoundary: true,
		Loader: func(_ context.Context, args LoaderArgs) (any, error) {
			q := args.URL.Query().Get("query")
			if g, ok := gates[q]; ok {
				g.pass()
			}
			return q, nil
		},
	}
}

func TestNavigate_CommitsLoaderData(t *testing.T) {
	c := NewController(searchRoot(nil), nil)

	require.NoError(t, c.Navigate(context.Background(), "/?query=ada"))

	s := c.State()
	assert.Equal(t, "/?query=ada", s.Location)
	assert.Equal(t, Idle, s.Phase)
	assert.Empty(t, s.Pending)
	assert.Equal(t, "ada", s.Data("root"))
	assert.Equal(t, uint64(1), s.Revision)
}

func TestNavigate_LastNavigationWins(t *testing.T) {
	ctx := context.Background()
	gates := map[string]*gate{"slow": newGate()}
	c := NewController(searchRoot(gates), nil)

	done := make(chan error)
	go func() { done <- c.Navigate(ctx, "/?query=slow") }()
	<-gates["slow"].started

	s := c.State()
	assert.Equal(t, Loading, s.Phase)
	assert.Equal(t, "/?query=slow", s.Pending)

	require.NoError(t, c.Navigate(ctx, "/?query=fast"))
	assert.Equal(t, "fast", c.State().Data("root"))

	close(gates["slow"].release)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	s = c.State()
	assert.Equal(t, "fast", s.Data("root"))
	assert.Equal(t, "/?query=fast", s.Location)
	assert.Equal(t, Idle, s.Phase)
}

func TestNavigate_SearchSupersedes(t *testing.T) {
	for _, order := range [][]string{{"a", "ad", "ada"}, {"ada", "ad", "a"}, {"ad", "ada", "a"}} {
		t.Run(fmt.Sprint(order), func(t *testing.T) {
			ctx := context.Background()
			gates := map[string]*gate{"a": newGate(), "ad": newGate(), "ada": newGate()}
			c := NewController(searchRoot(gates), nil)

			results := make(map[string]chan error)
			for _, q := range []string{"a", "ad", "ada"} {
				ch := make(chan error, 1)
				results[q] = ch
				go func() { ch <- c.Navigate(ctx, "/?query="+q) }()
				<-gates[q].started
			}

			for _, q := range order {
				close(gates[q].release)
				err := <-results[q]
				if q == "ada" {
					assert.NoError(t, err)
				} else {
					assert.ErrorIs(t, err, ErrSuperseded)
				}
			}

			s := c.State()
			assert.Equal(t, "ada", s.Data("root"))
			assert.Equal(t, uint64(1), s.Revision, "only the latest search commits")
		})
	}
}

func boundaryRoot(rootLoads *atomic.Int32) *Route {
	return &Route{ID: "root", Path: "/", ErrorBoundary: true,
		Loader: func(context.Context, LoaderArgs) (any, error) {
			rootLoads.Add(1)
			return "root-data", nil
		},
		Children: []*Route{
			{ID: "contact", Path: "contacts/:id",
				Loader: func(_ context.Context, args LoaderArgs) (any, error) {
					if args.Params["id"] == "missing" {
						return nil, NotFound()
					}
					return "contact-" + args.Params["id"], nil
				},
			},
			{ID: "team", Path: "teams/:team", ErrorBoundary: true,
				Loader: func(context.Context, LoaderArgs) (any, error) { return "team-data", nil },
				Children: []*Route{
					{ID: "member", Path: ":member",
						Loader: func(_ context.Context, args LoaderArgs) (any, error) {
							if args.Params["member"] == "bad" {
								return nil, errors.New("boom")
							}
							return args.Params["member"], nil
						},
					},
				},
			},
		},
	}
}

func TestNavigate_NotFoundRendersBoundary(t *testing.T) {
	ctx := context.Background()
	var loads atomic.Int32
	c := NewController(boundaryRoot(&loads), nil)

	require.NoError(t, c.Navigate(ctx, "/contacts/missing"))
	s := c.State()
	id, err := s.Error()
	assert.Equal(t, "root", id)
	var rerr *RoutingError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 404, rerr.Status)
	assert.Equal(t, []string{"root"}, routeIDs(s.Matches))
	assert.Nil(t, s.Data("contact"), "no undefined data is rendered")

	require.NoError(t, c.Navigate(ctx, "/contacts/abc"))
	s = c.State()
	_, err = s.Error()
	assert.NoError(t, err)
	assert.Equal(t, "contact-abc", s.Data("contact"))
	assert.Equal(t, "root-data", s.Data("root"))
}

func TestNavigate_UnmatchedLocation(t *testing.T) {
	var loads atomic.Int32
	c := NewController(boundaryRoot(&loads), nil)

	require.NoError(t, c.Navigate(context.Background(), "/nowhere"))
	id, err := c.State().Error()
	assert.Equal(t, "root", id)
	assert.Equal(t, NotFound(), err)
	assert.Zero(t, loads.Load())
}

func TestNavigate_ErrorIsolatedToNearestBoundary(t *testing.T) {
	var loads atomic.Int32
	c := NewController(boundaryRoot(&loads), nil)

	require.NoError(t, c.Navigate(context.Background(), "/teams/red/bad"))
	s := c.State()
	id, err := s.Error()
	assert.Equal(t, "team", id)
	assert.EqualError(t, err, "boom")
	assert.Equal(t, []string{"root", "team"}, routeIDs(s.Matches))
	assert.Equal(t, "root-data", s.Data("root"))
	assert.Equal(t, "team-data", s.Data("team"))
	assert.NotContains(t, s.LoaderData, "member")
}

func TestNavigate_UnhandledError(t *testing.T) {
	ctx := context.Background()
	root := &Route{ID: "root", Path: "/",
		Loader: func(_ context.Context, args LoaderArgs) (any, error) {
			if args.URL.Query().Has("fail") {
				return nil, errors.New("boom")
			}
			return "ok", nil
		},
	}
	c := NewController(root, nil)
	require.NoError(t, c.Navigate(ctx, "/"))

	err := c.Navigate(ctx, "/?fail")
	assert.EqualError(t, err, `navigation: unhandled error in route "root": boom`)
	s := c.State()
	assert.Equal(t, "/", s.Location, "state is not committed")
	assert.Equal(t, Idle, s.Phase)

	err = c.Navigate(ctx, "/nowhere")
	var rerr *RoutingError
	assert.ErrorAs(t, err, &rerr)
}

// favorites is a tiny mutable store for action tests.
type favorites struct {
	mu    sync.Mutex
	items map[string]bool
	loads atomic.Int32
	gates map[string]*gate
	// held gates the next contact loads, one each, in order.
	held []*gate
}

// hold makes the next contact load wait on a new gate.
func (f *favorites) hold() *gate {
	g := newGate()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.held = append(f.held, g)
	return g
}

func (f *favorites) stored(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[id]
}

func (f *favorites) routes() *Route {
	return &Route{ID: "root", Path: "/", ErrorBoundary: true,
		Loader: func(context.Context, LoaderArgs) (any, error) {
			f.loads.Add(1)
			f.mu.Lock()
			defer f.mu.Unlock()
			return fmt.Sprint(len(f.items)), nil
		},
		Action: func(context.Context, ActionArgs) (any, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			id := fmt.Sprintf("c%d", len(f.items)+1)
			f.items[id] = false
			return RedirectTo("/contacts/" + id), nil
		},
		Children: []*Route{
			{ID: "contact", Path: "contacts/:id",
				Loader: func(_ context.Context, args LoaderArgs) (any, error) {
					f.mu.Lock()
					var g *gate
					if len(f.held) > 0 {
						g, f.held = f.held[0], f.held[1:]
					}
					f.mu.Unlock()
					if g != nil {
						g.pass()
					}
					f.mu.Lock()
					defer f.mu.Unlock()
					fav, ok := f.items[args.Params["id"]]
					if !ok {
						return nil, NotFound()
					}
					return fav, nil
				},
				Action: func(_ context.Context, args ActionArgs) (any, error) {
					id := args.Params["id"]
					if g, ok := f.gates[id]; ok {
						g.pass()
					}
					f.mu.Lock()
					defer f.mu.Unlock()
					if _, ok := f.items[id]; !ok {
						return nil, fmt.Errorf("no contact found for id %s", id)
					}
					f.items[id] = args.Form.Get("favorite") == "true"
					return f.items[id], nil
				},
			},
			{ID: "readonly", Path: "readonly"},
		},
	}
}

func newFavorites(ids ...string) *favorites {
	f := &favorites{items: map[string]bool{}, gates: map[string]*gate{}}
	for _, id := range ids {
		f.items[id] = false
	}
	return f
}

func TestSubmit_RedirectNavigates(t *testing.T) {
	f := newFavorites()
	c := NewController(f.routes(), nil)
	ctx := context.Background()
	require.NoError(t, c.Navigate(ctx, "/"))

	require.NoError(t, c.Submit(ctx, "/", nil))

	s := c.State()
	assert.Equal(t, "/contacts/c1", s.Location)
	assert.Equal(t, false, s.Data("contact"))
	assert.Equal(t, "1", s.Data("root"), "root loader sees the mutation")
	assert.Nil(t, s.ActionData)
}

func TestSubmit_RevalidatesActiveLoaders(t *testing.T) {
	f := newFavorites("c1")
	c := NewController(f.routes(), nil)
	ctx := context.Background()
	require.NoError(t, c.Navigate(ctx, "/contacts/c1"))
	loads := f.loads.Load()

	require.NoError(t, c.Submit(ctx, "/contacts/c1", url.Values{"favorite": {"true"}}))

	s := c.State()
	assert.Equal(t, loads+1, f.loads.Load())
	assert.Equal(t, true, s.Data("contact"))
	assert.Equal(t, true, s.ActionData)
}

func TestSubmit_ActionErrorRendersBoundary(t *testing.T) {
	f := newFavorites("c1")
	c := NewController(f.routes(), nil)
	ctx := context.Background()
	require.NoError(t, c.Navigate(ctx, "/contacts/c1"))
	delete(f.items, "c1")
	f.items["c2"] = false

	require.NoError(t, c.Submit(ctx, "/contacts/c1", url.Values{"favorite": {"true"}}))
	s := c.State()
	id, err := s.Error()
	assert.Equal(t, "root", id)
	assert.EqualError(t, err, "no contact found for id c1")
	assert.Equal(t, "1", s.Data("root"), "data above the boundary is kept")

	require.NoError(t, c.Navigate(ctx, "/contacts/c2"), "application keeps working")
	_, err = c.State().Error()
	assert.NoError(t, err)
}

func TestSubmit_NoAction(t *testing.T) {
	f := newFavorites()
	c := NewController(f.routes(), nil)

	require.NoError(t, c.Submit(context.Background(), "/readonly", nil))
	_, err := c.State().Error()
	var rerr *RoutingError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 405, rerr.Status)
}

func TestSubmit_Superseded(t *testing.T) {
	f := newFavorites("c1")
	f.gates["c1"] = newGate()
	c := NewController(f.routes(), nil)
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- c.Submit(ctx, "/contacts/c1", url.Values{"favorite": {"true"}}) }()
	<-f.gates["c1"].started
	assert.Equal(t, Submitting, c.State().Phase)

	require.NoError(t, c.Navigate(ctx, "/"))
	close(f.gates["c1"].release)
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, "/", c.State().Location)
}

func TestSubmit_SupersededStillRevalidates(t *testing.T) {
	f := newFavorites("c1")
	f.gates["c1"] = newGate()
	c := NewController(f.routes(), nil)
	ctx := context.Background()

	done := make(chan error)
	go func() { done <- c.Submit(ctx, "/contacts/c1", url.Values{"favorite": {"true"}}) }()
	<-f.gates["c1"].started

	require.NoError(t, c.Navigate(ctx, "/contacts/c1"))
	assert.Equal(t, false, c.State().Data("contact"), "loaded before the mutation")

	close(f.gates["c1"].release)
	assert.ErrorIs(t, <-done, ErrSuperseded)

	s := c.State()
	assert.Equal(t, "/contacts/c1", s.Location)
	assert.Equal(t, Idle, s.Phase)
	assert.True(t, f.stored("c1"))
	assert.Equal(t, true, s.Data("contact"), "revalidated after the mutation")
	assert.Nil(t, s.ActionData)
}

func TestFetcher_Optimistic(t *testing.T) {
	f := newFavorites("c1", "c2")
	f.gates["c1"] = newGate()
	c := NewController(f.routes(), nil)
	ctx := context.Background()
	require.NoError(t, c.Navigate(ctx, "/contacts/c1"))
	loads := f.loads.Load()

	fetcher := c.Fetcher("c1")
	assert.Same(t, fetcher, c.Fetcher("c1"))
	assert.Equal(t, FetcherIdle, fetcher.Phase())
	_, pending := fetcher.FormData()
	assert.False(t, pending)

	done := make(chan error)
	go func() { done <- fetcher.Submit(ctx, "/contacts/c1", url.Values{"favorite": {"true"}}) }()
	<-f.gates["c1"].started

	form, pending := fetcher.FormData()
	require.True(t, pending)
	assert.Equal(t, "true", form.Get("favorite"))
	assert.Equal(t, FetcherPending, fetcher.Phase())
	assert.Equal(t, false, c.State().Data("contact"), "confirmed value is unchanged")
	assert.Equal(t, "/contacts/c1", c.State().Location, "fetchers do not navigate")

	other := c.Fetcher("c2")
	_, pending = other.FormData()
	assert.False(t, pending, "fetchers are independent")
	require.NoError(t, other.Submit(ctx, "/contacts/c2", url.Values{"favorite": {"true"}}))
	_, pending = fetcher.FormData()
	assert.True(t, pending, "settling another fetcher leaves this one pending")

	close(f.gates["c1"].release)
	require.NoError(t, <-done)

	_, pending = fetcher.FormData()
	assert.False(t, pending)
	assert.Equal(t, FetcherSettled, fetcher.Phase())
	data, err := fetcher.Data()
	require.NoError(t, err)
	assert.Equal(t, true, data)
	assert.Equal(t, true, c.State().Data("contact"), "revalidated after settling")
	assert.Equal(t, loads+2, f.loads.Load())
}

func TestFetcher_ErrorRendersBoundary(t *testing.T) {
	f := newFavorites("c1")
	c := NewController(f.routes(), nil)
	ctx := context.Background()
	require.NoError(t, c.Navigate(ctx, "/contacts/c1"))

	require.NoError(t, c.Fetcher("x").Submit(ctx, "/contacts/missing", url.Values{"favorite": {"true"}}))

	_, err := c.Fetcher("x").Data()
	assert.Error(t, err)
	id, err := c.State().Error()
	assert.Equal(t, "root", id)
	assert.Error(t, err)
	assert.Equal(t, []string{"root"}, routeIDs(c.State().Matches))
	assert.Equal(t, "1", c.State().Data("root"))
	assert.NotContains(t, c.State().LoaderData, "contact", "data below the boundary is dropped")
}

func TestFetcher_PendingUntilNewerNavigationLands(t *testing.T) {
	f := newFavorites("c1")
	c := NewController(f.routes(), nil)
	ctx := context.Background()
	require.NoError(t, c.Navigate(ctx, "/contacts/c1"))

	revalidation := f.hold()
	fetcher := c.Fetcher("c1")
	done := make(chan error)
	go func() { done <- fetcher.Submit(ctx, "/contacts/c1", url.Values{"favorite": {"true"}}) }()
	<-revalidation.started

	newer := f.hold()
	navigated := make(chan error)
	go func() { navigated <- c.Navigate(ctx, "/contacts/c1") }()
	<-newer.started

	close(revalidation.release)
	assert.Never(t, func() bool {
		_, pending := fetcher.FormData()
		return !pending
	}, 50*time.Millisecond, time.Millisecond, "the form stays pending while the newer navigation loads")

	close(newer.release)
	require.NoError(t, <-navigated)
	require.NoError(t, <-done)

	_, pending := fetcher.FormData()
	assert.False(t, pending)
	assert.Equal(t, FetcherSettled, fetcher.Phase())
	assert.Equal(t, true, c.State().Data("contact"))
}

func TestFetcher_NewerSubmissionWins(t *testing.T) {
	f := newFavorites("c1")
	g := newGate()
	f.gates["c1"] = g
	c := NewController(f.routes(), nil)
	ctx := context.Background()
	require.NoError(t, c.Navigate(ctx, "/contacts/c1"))

	fetcher := c.Fetcher("c1")
	first := make(chan error)
	go func() { first <- fetcher.Submit(ctx, "/contacts/c1", url.Values{"favorite": {"true"}}) }()
	<-g.started
	delete(f.gates, "c1")

	second := make(chan error)
	go func() { second <- fetcher.Submit(ctx, "/contacts/c1", url.Values{"favorite": {"false"}}) }()
	require.NoError(t, <-second)
	assert.Equal(t, FetcherSettled, fetcher.Phase())

	close(g.release)
	assert.ErrorIs(t, <-first, ErrSuperseded)
	data, _ := fetcher.Data()
	assert.Equal(t, false, data)
}

func TestSubscribe(t *testing.T) {
	c := NewController(searchRoot(nil), nil)
	ctx := context.Background()

	var mu sync.Mutex
	var phases []Phase
	unsubscribe := c.Subscribe(func(s State) {
		mu.Lock()
		defer mu.Unlock()
		phases = append(phases, s.Phase)
	})

	require.NoError(t, c.Navigate(ctx, "/"))
	unsubscribe()
	require.NoError(t, c.Navigate(ctx, "/?query=x"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Phase{Loading, Idle}, phases)
}

func TestRevalidate(t *testing.T) {
	f := newFavorites("c1")
	c := NewController(f.routes(), nil)
	ctx := context.Background()

	require.NoError(t, c.Revalidate(ctx), "nothing to revalidate before the first navigation")
	assert.Zero(t, f.loads.Load())

	require.NoError(t, c.Navigate(ctx, "/contacts/c1"))
	f.items["c1"] = true
	require.NoError(t, c.Revalidate(ctx))
	assert.Equal(t, true, c.State().Data("contact"))
	assert.Equal(t, int32(2), f.loads.Load())
}

func TestLoadAndAct(t *testing.T) {
	f := newFavorites("c1")
	ctx := context.Background()
	root := f.routes()

	s, err := Load(ctx, root, "/contacts/c1")
	require.NoError(t, err)
	assert.Equal(t, false, s.Data("contact"))

	result, err := Act(ctx, root, "/contacts/c1", url.Values{"favorite": {"true"}})
	require.NoError(t, err)
	assert.Equal(t, true, result)

	result, err = Act(ctx, root, "/", nil)
	require.NoError(t, err)
	assert.Equal(t, RedirectTo("/contacts/c2"), result)

	_, err = Act(ctx, root, "/nowhere", nil)
	assert.Equal(t, NotFound(), err)
}
