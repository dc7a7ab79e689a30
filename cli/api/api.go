package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/oaiiae/huma-contacts/datastores"
	"github.com/oaiiae/huma-contacts/handlers"
	"github.com/oaiiae/huma-contacts/router"
	"github.com/oaiiae/huma-contacts/routes"
)

// ServerOptions configure the HTTP listener of the contacts API.
type ServerOptions struct {
	Host              string        `short:"H" doc:"host to listen on"                    default:""`
	Port              string        `short:"p" doc:"port to listen on"                    default:"8888"`
	ReadHeaderTimeout time.Duration `          doc:"time allowed to read request headers" default:"15s"`
}

// NewServer serves handler on the configured address. Server errors go to
// logger at error level.
func NewServer(options *ServerOptions, handler http.Handler, logger *slog.Logger) *http.Server {
	return &http.Server{
		Addr:              options.Host + ":" + options.Port,
		ReadHeaderTimeout: options.ReadHeaderTimeout,
		Handler:           handler,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}
}

// RouterOptions configure where the contacts and views operations are mounted.
type RouterOptions struct {
	EndpointsPrefix string `doc:"mount the contacts and views endpoints at a prefix" default:"/api"`
}

// NewRouter mounts the contacts REST operations at prefix/contacts and the
// route loaders and actions at prefix/views, behind the logging, metering and
// recovery middlewares. /metrics exposes metriks with build information.
func NewRouter(
	options *RouterOptions,
	title string,
	version string,
	revision string,
	created string,
	metriks *metrics.Set,
	store datastores.ContactsStore,
	logger *slog.Logger,
) http.Handler {
	buildinfoMetric := joinQuote("build_info{goversion=", runtime.Version(),
		",title=", title,
		",version=", version,
		",revision=", revision,
		",created=", created,
		"} 1\n")
	errorHandler := ctxlog{}.errorHandler(logger)
	return router.New(title, version,
		func(_ http.ResponseWriter, _ *http.Request) {},
		func(w http.ResponseWriter, _ *http.Request) {
			fmt.Fprint(w, buildinfoMetric)
			metriks.WritePrometheus(w)
			metrics.WriteProcessMetrics(w)
		},
		router.OptUseMiddleware(
			ctxlog{}.loggerMiddleware(logger),
			meterRequests(metriks),
			ctxlog{}.recoverMiddleware(logger),
		),
		router.OptGroup(options.EndpointsPrefix,
			router.OptGroup("/contacts", router.OptAutoRegister(&handlers.Contacts{
				Store:        store,
				ErrorHandler: errorHandler,
			})),
			router.OptGroup("/views", router.OptAutoRegister(&handlers.Views{
				Root:         MeterRoutes(metriks, (&routes.App{Contacts: store}).Routes()),
				ErrorHandler: errorHandler,
			})),
		),
	)
}

// joinQuote is [strings.Join] with " as separator.
func joinQuote(elems ...string) string { return strings.Join(elems, `"`) }

// joinSpace is [strings.Join] with space as separator.
func joinSpace(elems ...string) string { return strings.Join(elems, ` `) }
