package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"

	"github.com/oaiiae/huma-contacts/cli/api"
	"github.com/oaiiae/huma-contacts/cli/logger"
	"github.com/oaiiae/huma-contacts/cli/shell"
	"github.com/oaiiae/huma-contacts/navigation"
	"github.com/oaiiae/huma-contacts/routes"
)

// Set at build time with -ldflags "-X main.version=...".
var (
	version  = "dev"
	revision = "unknown"
	created  = "unknown"
)

// Options for the CLI. Pass `--port` or set the `SERVICE_PORT` env var.
type Options struct {
	logger.Options
	api.ServerOptions
	api.RouterOptions
	api.StoreOptions
}

func main() {
	var (
		controller *navigation.Controller
		closer     io.Closer
	)

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		logger, logs := logger.New(&options.Options)
		metriks := metrics.NewSet()

		store, kv, err := api.NewContactsStore(context.Background(), &options.StoreOptions, metriks, logger)
		if err != nil {
			logger.Error("could not open contacts store", "err", err)
			os.Exit(1)
		}
		closer = kv
		controller = navigation.NewController(api.MeterRoutes(metriks, (&routes.App{Contacts: store}).Routes()), logger)

		srv := api.NewServer(&options.ServerOptions,
			api.NewRouter(&options.RouterOptions, "Contacts API", version, revision, created, metriks, store, logger),
			logger,
		)
		hooks.OnStart(func() {
			logger.Info("server starting", "addr", srv.Addr, "version", version)
			err := srv.ListenAndServe()
			if !errors.Is(err, http.ErrServerClosed) {
				logger.Error("failed to listen and serve", "err", err)
			} else {
				logger.Info("server closed")
			}
		})
		hooks.OnStop(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("could not shutdown the server", "err", err)
			}
			if err := closer.Close(); err != nil {
				logger.Warn("could not close the contacts store", "err", err)
			}
			logs.Close()
		})
	})

	cmd := shell.Command(func() *navigation.Controller { return controller })
	cmd.PostRunE = func(*cobra.Command, []string) error { return closer.Close() }
	cli.Root().AddCommand(cmd)

	cli.Run()
}
