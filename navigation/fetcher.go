package navigation

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"
)

// FetcherPhase is the state of a fetcher submission:
// Idle, then Pending with the submitted form, then Settled with the result.
type FetcherPhase int

const (
	FetcherIdle FetcherPhase = iota
	FetcherPending
	FetcherSettled
)

func (p FetcherPhase) String() string {
	switch p {
	case FetcherIdle:
		return "idle"
	case FetcherPending:
		return "pending"
	case FetcherSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Fetcher submits to route actions without navigating. While a submission is
// in flight its form is available from [Fetcher.FormData], so views can show
// the submitted value before the mutation is confirmed.
//
// Each key gets its own fetcher; submissions on one never affect another.
// A newer submission on the same fetcher supersedes the settlement of older ones.
type Fetcher struct {
	c   *Controller
	key string

	mu    sync.Mutex
	seq   uint64
	phase FetcherPhase
	form  url.Values
	data  any
	err   error
}

func (f *Fetcher) Key() string { return f.key }

// Submit runs the action of location with form. On success the controller's
// active loaders are revalidated before the fetcher settles, so the pending
// form stays visible until fresh data is committed. When a newer navigation
// supersedes the revalidation, the fetcher settles once no navigation is in flight.
func (f *Fetcher) Submit(ctx context.Context, location string, form url.Values) error {
	f.mu.Lock()
	f.seq++
	seq := f.seq
	f.phase, f.form = FetcherPending, cloneValues(form)
	f.mu.Unlock()

	result, scope, err := act(ctx, f.c.root, location, form)
	if err != nil {
		if !f.settle(seq, nil, err) {
			return ErrSuperseded
		}
		f.c.logger.LogAttrs(ctx, slog.LevelWarn, "fetcher action failed",
			slog.String("fetcher", f.key), slog.String("location", location), slog.Any("err", err))
		if scope.boundary < 0 {
			return err
		}
		f.c.fetcherError(scope, err)
		return nil
	}

	err = f.c.Revalidate(ctx)
	if errors.Is(err, ErrSuperseded) {
		// The newer navigation started after the mutation: keep the form
		// pending until it lands.
		err = f.c.waitIdle(ctx)
	}
	if err != nil {
		f.settle(seq, result, err)
		return err
	}
	if !f.settle(seq, result, nil) {
		return ErrSuperseded
	}
	return nil
}

func (f *Fetcher) settle(seq uint64, data any, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if seq != f.seq {
		return false
	}
	f.phase, f.form = FetcherSettled, nil
	f.data, f.err = data, err
	return true
}

func (f *Fetcher) Phase() FetcherPhase {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.phase
}

// FormData returns the form of the submission in flight.
func (f *Fetcher) FormData() (url.Values, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.phase != FetcherPending {
		return nil, false
	}
	return cloneValues(f.form), true
}

// Data returns the result of the last settled submission.
func (f *Fetcher) Data() (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data, f.err
}

func cloneValues(v url.Values) url.Values {
	out := make(url.Values, len(v))
	for k, vs := range v {
		out[k] = append([]string(nil), vs...)
	}
	return out
}
