package api

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/oaiiae/huma-contacts/datastores"
	"github.com/oaiiae/huma-contacts/kvstore"
	"github.com/oaiiae/huma-contacts/latency"
)

type StoreOptions struct {
	StoreDriver string        `doc:"store contacts in memory or sqlite"                  default:"memory"`
	StorePath   string        `doc:"sqlite database file"                                default:"contacts.db"`
	Seed        string        `doc:"YAML file of contacts stored when none exist yet"`
	Reseed      bool          `doc:"replace the stored contacts with the seed file"`
	MaxLatency  time.Duration `doc:"upper bound of the simulated network latency"        default:"800ms"`
}

// NewContactsStore opens the configured key-value store, wraps it with the
// latency simulator and seeds it. The returned closer releases the key-value store.
func NewContactsStore(
	ctx context.Context,
	options *StoreOptions,
	metriks *metrics.Set,
	logger *slog.Logger,
) (*datastores.ContactsKV, io.Closer, error) {
	var kv kvstore.Store
	switch strings.ToLower(options.StoreDriver) {
	case "", "memory":
		kv = kvstore.NewInmem()
	case "sqlite":
		var err error
		kv, err = kvstore.OpenSQLite(options.StorePath)
		if err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", options.StoreDriver)
	}

	store := datastores.NewContactsKV(kv, latency.New(options.MaxLatency, metriks))
	if options.Seed == "" {
		return store, kv, nil
	}

	f, err := os.Open(options.Seed)
	if err != nil {
		kv.Close()
		return nil, nil, fmt.Errorf("open seed: %w", err)
	}
	defer f.Close()

	contacts, err := datastores.LoadSeed(f)
	if err != nil {
		kv.Close()
		return nil, nil, err
	}
	if options.Reseed {
		if err := store.Reset(ctx); err != nil {
			kv.Close()
			return nil, nil, fmt.Errorf("reseed: %w", err)
		}
	}
	written, err := store.Seed(ctx, contacts)
	if err != nil {
		kv.Close()
		return nil, nil, fmt.Errorf("seed: %w", err)
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "contacts seeded",
		slog.String("file", options.Seed),
		slog.Bool("written", written),
		slog.Bool("reseed", options.Reseed),
		slog.Int("count", len(contacts)),
	)
	return store, kv, nil
}
