// Package navigation binds routes to the data their views need.
//
// A [Controller] runs the loaders of every route matched by a location before
// committing the result, runs route actions on submission and revalidates the
// active loaders after a successful mutation. Only the most recently started
// navigation may commit; results of older ones are dropped when they complete.
// [Fetcher] submissions run alongside navigations and expose their pending form
// for optimistic display.
package navigation

import (
	"context"
	"errors"
	"log/slog"
	"maps"
	"net/url"
	"sync"
)

type Controller struct {
	root   *Route
	logger *slog.Logger

	mu       sync.Mutex
	seq      uint64 // key of the latest navigation
	state    State
	fetchers map[string]*Fetcher
	subs     map[int]func(State)
	nextSub  int
}

func NewController(root *Route, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		root:     root,
		logger:   logger,
		state:    State{LoaderData: map[string]any{}, Errors: map[string]error{}},
		fetchers: make(map[string]*Fetcher),
		subs:     make(map[int]func(State)),
	}
}

// State returns a snapshot of the committed state and the navigation in flight.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.clone()
}

// Subscribe registers fn to be called with a snapshot whenever the state changes.
// Calls may come from any goroutine.
func (c *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.subs, id)
	}
}

// Navigate loads location and commits it unless a newer navigation started
// meanwhile, in which case [ErrSuperseded] is returned.
func (c *Controller) Navigate(ctx context.Context, location string) error {
	return c.navigate(ctx, c.begin(location, Loading), location, nil)
}

// Submit runs the action of the route matching location with form.
// A [*Redirect] result navigates to its location; any other result is kept as
// action data while the loaders of location run again. Action errors are
// rendered by the nearest error boundary. When a newer navigation started
// during the action, its navigation is dropped but the active loaders are
// still revalidated, and [ErrSuperseded] is returned.
func (c *Controller) Submit(ctx context.Context, location string, form url.Values) error {
	seq := c.begin(location, Submitting)

	result, scope, err := act(ctx, c.root, location, form)
	if err != nil {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "action failed",
			slog.String("location", location), slog.Any("err", err))
		if scope.boundary < 0 {
			c.abort(seq)
			return err
		}
		return c.commitError(seq, location, scope, err)
	}

	next := location
	if r, ok := result.(*Redirect); ok {
		next, result = r.Location, nil
	}
	seq, err = c.handoff(seq, next, Loading)
	if err != nil {
		// The mutation is done but a newer navigation may have loaded before it.
		if err := c.Revalidate(ctx); err != nil && !IsSuperseded(err) {
			return err
		}
		return ErrSuperseded
	}
	return c.navigate(ctx, seq, next, result)
}

// waitIdle blocks until no navigation is in flight.
func (c *Controller) waitIdle(ctx context.Context) error {
	idle := make(chan struct{})
	var once sync.Once
	unsubscribe := c.Subscribe(func(s State) {
		if s.Phase == Idle {
			once.Do(func() { close(idle) })
		}
	})
	defer unsubscribe()

	c.mu.Lock()
	phase := c.state.Phase
	c.mu.Unlock()
	if phase == Idle {
		return nil
	}
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Revalidate runs the active loaders again: those of the navigation in flight
// if any, else those of the committed location.
func (c *Controller) Revalidate(ctx context.Context) error {
	c.mu.Lock()
	location := c.state.Location
	if c.state.Phase != Idle {
		location = c.state.Pending
	}
	c.mu.Unlock()
	if location == "" {
		return nil
	}
	return c.Navigate(ctx, location)
}

// Fetcher returns the fetcher registered under key, creating it if needed.
func (c *Controller) Fetcher(key string) *Fetcher {
	c.mu.Lock()
	defer c.mu.Unlock()
	f, ok := c.fetchers[key]
	if !ok {
		f = &Fetcher{c: c, key: key}
		c.fetchers[key] = f
	}
	return f
}

func (c *Controller) navigate(ctx context.Context, seq uint64, location string, actionData any) error {
	state, err := Load(ctx, c.root, location)
	if err != nil {
		c.abort(seq)
		return err
	}
	state.ActionData = actionData
	return c.commit(seq, state)
}

func (c *Controller) begin(location string, phase Phase) uint64 {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.state.Phase, c.state.Pending = phase, location
	snapshot, subs := c.snapshotLocked()
	c.mu.Unlock()
	notify(subs, snapshot)
	return seq
}

// handoff continues the navigation seq as a new one, unless it was superseded.
func (c *Controller) handoff(seq uint64, location string, phase Phase) (uint64, error) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded submission", "location", location)
		return 0, ErrSuperseded
	}
	c.mu.Unlock()
	return c.begin(location, phase), nil
}

func (c *Controller) commit(seq uint64, state State) error {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		c.logger.Debug("discarding superseded navigation", "location", state.Location)
		return ErrSuperseded
	}
	state.Phase, state.Pending = Idle, ""
	state.Revision = c.state.Revision + 1
	c.state = state
	snapshot, subs := c.snapshotLocked()
	c.mu.Unlock()

	if id, err := state.Error(); err != nil {
		c.logger.Info("rendering error boundary", "route", id, "err", err)
	}
	notify(subs, snapshot)
	return nil
}

// commitError renders err at the scope's boundary, keeping the loader data
// already committed for the routes above it.
func (c *Controller) commitError(seq uint64, location string, scope actionScope, err error) error {
	matches := scope.matches[:scope.boundary+1]
	data := make(map[string]any, len(matches))
	c.mu.Lock()
	for _, m := range matches {
		if v, ok := c.state.LoaderData[m.Route.ID]; ok {
			data[m.Route.ID] = v
		}
	}
	c.mu.Unlock()

	return c.commit(seq, State{
		Location:   location,
		Matches:    matches,
		LoaderData: data,
		Errors:     map[string]error{scope.boundaryID(): err},
	})
}

// abort returns to idle when seq is still the latest navigation.
func (c *Controller) abort(seq uint64) {
	c.mu.Lock()
	if seq != c.seq {
		c.mu.Unlock()
		return
	}
	c.state.Phase, c.state.Pending = Idle, ""
	snapshot, subs := c.snapshotLocked()
	c.mu.Unlock()
	notify(subs, snapshot)
}

// fetcherError renders the error of a fetcher submission at boundary without
// changing the location. Routes below the boundary and their data are dropped.
func (c *Controller) fetcherError(scope actionScope, err error) {
	id := scope.boundaryID()
	c.mu.Lock()
	errs := maps.Clone(c.state.Errors)
	if errs == nil {
		errs = make(map[string]error, 1)
	}
	errs[id] = err
	c.state.Errors = errs
	for i, m := range c.state.Matches {
		if m.Route.ID == id {
			c.state.Matches = c.state.Matches[:i+1]
			break
		}
	}
	data := make(map[string]any, len(c.state.Matches))
	for _, m := range c.state.Matches {
		if v, ok := c.state.LoaderData[m.Route.ID]; ok {
			data[m.Route.ID] = v
		}
	}
	c.state.LoaderData = data
	c.state.Revision++
	snapshot, subs := c.snapshotLocked()
	c.mu.Unlock()
	notify(subs, snapshot)
}

func (c *Controller) snapshotLocked() (State, []func(State)) {
	subs := make([]func(State), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	return c.state.clone(), subs
}

func notify(subs []func(State), s State) {
	for _, fn := range subs {
		fn(s)
	}
}

// IsSuperseded reports whether err means the result of a navigation was dropped.
func IsSuperseded(err error) bool { return errors.Is(err, ErrSuperseded) }
