// Package api configures and exposes the HTTP server, routes,
// metrics, docs and related middleware for the scan relay.
package api

import (
	"context"
	_ "embed"
	"net/http"
	"scanrelay/internal/api/handler/v1handler"
	"scanrelay/internal/config"
	"scanrelay/pkg/controller"
	"scanrelay/pkg/logger"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
)

// TimeoutBody is written when a request exceeds Options.RequestTimeout.
const TimeoutBody = `{"error":"Error scanning URL","details":"request timed out"}`

// v1Spec contains the embedded OpenAPI specification of the relay API.
//
//go:embed specs/v1.yaml
var v1Spec []byte

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
// All durations are used to configure server timeouts, and zero values
// should be considered as using the defaults provided by net/http where applicable.
type Options struct {
	// Addr is the TCP address the server listens on, e.g. ":3000".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MaxBodyBytes limits the size of an inbound scan request body.
	MaxBodyBytes int64
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// NewOptions constructs an Options value from the provided application configuration.
// It maps HTTP server-related settings from config.Config to the Options used by the API server.
func NewOptions(cfg *config.Config) Options {
	return Options{
		Addr:              cfg.Addr(),
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

type Deps struct {
	v1handler.Deps

	// Gatherer backs the metrics endpoint; prometheus.DefaultGatherer when nil.
	Gatherer prometheus.Gatherer
}

// NewRouter registers every route of the relay:
// - Prometheus metrics endpoint (MetricsPath)
// - Embedded OpenAPI spec and Swagger UI
// - GET /healthz and POST /api/scan
// - pprof endpoints for profiling
// CORS and access logging wrap all of them.
func NewRouter(deps Deps, opts Options) http.Handler {
	if deps.MaxBodyBytes <= 0 {
		deps.MaxBodyBytes = opts.MaxBodyBytes
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	r := chi.NewRouter()
	r.Use(controller.WithLogger, controller.WithCORS)

	// prometheus metrics server
	r.Handle(opts.MetricsPath, promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))

	// api specs file
	r.Get("/specs/v1.yaml", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(v1Spec)
	})
	// swagger playground
	r.Handle("/docs/*", v5emb.New(
		"URL Scan Relay",
		"/specs/v1.yaml",
		"/docs/",
	))

	h := v1handler.New(deps.Deps)
	r.Get("/healthz", h.Health)
	r.Post("/api/scan", h.Scan)

	// pprof
	r.Mount(controller.PprofPrefix, controller.PprofMux())

	return r
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// The router is wrapped in a request timeout so a stuck upstream cannot hold
// a connection longer than RequestTimeout.
func NewServer(ctx context.Context, deps Deps, opts Options) *http.Server {
	var handler http.Handler = NewRouter(deps, opts)
	if opts.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, opts.RequestTimeout, TimeoutBody)
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
		ErrorLog:          logger.StdLogger(ctx),
	}
}
