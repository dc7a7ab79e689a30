package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2"

	"github.com/oaiiae/huma-contacts/navigation"
)

// meters registers, on first use, a counter and a duration histogram per label set.
type meters struct {
	set       *metrics.Set
	counter   string
	histogram string
	buckets   []float64

	mu   sync.Mutex
	refs sync.Map // labels -> meter
}

type meter struct {
	*metrics.Counter
	*metrics.PrometheusHistogram
}

func newMeters(set *metrics.Set, counter, histogram string) *meters {
	return &meters{
		set:       set,
		counter:   counter,
		histogram: histogram,
		buckets:   metrics.ExponentialBuckets(1e-3, 5, 6), //nolint: mnd // arbitrary
	}
}

// observe counts one event labelled by labels, which started at start.
func (m *meters) observe(labels string, start time.Time) {
	val, ok := m.refs.Load(labels)
	if !ok {
		m.mu.Lock()
		val, ok = m.refs.Load(labels)
		if !ok {
			val = meter{
				m.set.NewCounter(m.counter + labels),
				m.set.NewPrometheusHistogramExt(m.histogram+labels, m.buckets),
			}
			m.refs.Store(labels, val)
		}
		m.mu.Unlock()
	}
	ref := val.(meter) //nolint: errcheck // always true
	ref.Counter.Inc()
	ref.PrometheusHistogram.UpdateDuration(start)
}

func meterRequests(set *metrics.Set) func(huma.Context, func(huma.Context)) {
	m := newMeters(set, "http_requests_total", "http_request_duration_seconds")
	return func(ctx huma.Context, next func(huma.Context)) {
		op, start := ctx.Operation(), time.Now()
		next(ctx)
		m.observe(joinQuote("{method=", op.Method, ",path=", op.Path, ",status=", strconv.Itoa(ctx.Status()), "}"), start)
	}
}

// MeterRoutes returns a copy of the route tree rooted at root whose loaders
// and actions are counted and timed in set, by route id and outcome.
func MeterRoutes(set *metrics.Set, root *navigation.Route) *navigation.Route {
	return meterRoute(newMeters(set, "contacts_route_calls_total", "contacts_route_call_duration_seconds"), root)
}

func meterRoute(m *meters, r *navigation.Route) *navigation.Route {
	metered := *r
	if loader := r.Loader; loader != nil {
		metered.Loader = func(ctx context.Context, args navigation.LoaderArgs) (any, error) {
			start := time.Now()
			data, err := loader(ctx, args)
			m.observe(routeLabels(r.ID, "loader", data, err), start)
			return data, err
		}
	}
	if action := r.Action; action != nil {
		metered.Action = func(ctx context.Context, args navigation.ActionArgs) (any, error) {
			start := time.Now()
			result, err := action(ctx, args)
			m.observe(routeLabels(r.ID, "action", result, err), start)
			return result, err
		}
	}
	metered.Children = make([]*navigation.Route, len(r.Children))
	for i, child := range r.Children {
		metered.Children[i] = meterRoute(m, child)
	}
	return &metered
}

func routeLabels(id, kind string, result any, err error) string {
	outcome := "ok"
	var rerr *navigation.RoutingError
	switch _, redirect := result.(*navigation.Redirect); {
	case errors.As(err, &rerr):
		outcome = strconv.Itoa(rerr.Status)
	case err != nil:
		outcome = strconv.Itoa(http.StatusInternalServerError)
	case redirect:
		outcome = "redirect"
	}
	return joinQuote("{route=", id, ",kind=", kind, ",outcome=", outcome, "}")
}
