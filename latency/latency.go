// Package latency emulates network round trips for local calls.
//
// Every call waits a bounded random delay unless its fingerprint was already
// seen in the current generation. A call without a fingerprint forgets every
// fingerprint and starts a new generation.
package latency

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
)

// DefaultMaxDelay bounds delays when no other value is configured.
const DefaultMaxDelay = 800 * time.Millisecond

type Simulator struct {
	maxDelay time.Duration

	// Rand returns a value in [0, 1) scaling the delay. Defaults to [rand.Float64].
	Rand func() float64
	// Sleep blocks for d or until ctx is done. Defaults to a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error

	mu         sync.Mutex
	seen       map[string]struct{}
	generation uint64

	hits, misses, resets *metrics.Counter
}

// New returns a simulator delaying calls by at most maxDelay.
// Counters are registered in set; a nil set keeps them private.
func New(maxDelay time.Duration, set *metrics.Set) *Simulator {
	if set == nil {
		set = metrics.NewSet()
	}
	return &Simulator{
		maxDelay: maxDelay,
		seen:     make(map[string]struct{}),
		hits:     set.GetOrCreateCounter("contacts_latency_memo_hits_total"),
		misses:   set.GetOrCreateCounter("contacts_latency_memo_misses_total"),
		resets:   set.GetOrCreateCounter("contacts_latency_generations_total"),
	}
}

// Wait emulates the round trip of the call identified by key.
func (s *Simulator) Wait(ctx context.Context, key string) error {
	s.mu.Lock()
	if key == "" {
		clear(s.seen)
		s.generation++
		s.resets.Inc()
	} else {
		if _, ok := s.seen[key]; ok {
			s.mu.Unlock()
			s.hits.Inc()
			return nil
		}
		s.seen[key] = struct{}{}
		s.misses.Inc()
	}
	s.mu.Unlock()

	if s.maxDelay <= 0 {
		return nil
	}
	random := s.Rand
	if random == nil {
		random = rand.Float64
	}
	sleep := s.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	return sleep(ctx, time.Duration(random()*float64(s.maxDelay)))
}

// Generation counts the unkeyed calls seen so far.
func (s *Simulator) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Seen reports whether key is memoized in the current generation.
func (s *Simulator) Seen(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[key]
	return ok
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
