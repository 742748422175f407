package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/qj0r9j0vc2/rtm-bot/internal/adapter/handler"
	"github.com/qj0r9j0vc2/rtm-bot/internal/adapter/handler/middleware"
	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/observability"
)

// Handlers holds all HTTP handlers. Nil handlers are not mounted.
type Handlers struct {
	Health  *handler.HealthHandler
	Ready   *handler.ReadyHandler
	Metrics *handler.MetricsHandler
	Reload  *handler.ReloadHandler
}

// RouterOptions configures the middleware stack.
type RouterOptions struct {
	Metrics        *observability.Metrics
	RequestTimeout time.Duration
}

// NewRouter creates the operational HTTP router.
func NewRouter(handlers *Handlers, opts RouterOptions, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	var routes []string
	mount := func(path string, h http.Handler) {
		mux.Handle(path, h)
		routes = append(routes, path)
	}

	if handlers.Health != nil {
		mount("/health", handlers.Health)
	}
	if handlers.Ready != nil {
		mount("/ready", handlers.Ready)
	}
	if handlers.Metrics != nil {
		mount("/metrics", handlers.Metrics)
	}
	if handlers.Reload != nil {
		mount("/-/reload", handlers.Reload)
	}

	// Innermost first
	var h http.Handler = mux
	h = middleware.Timeout(opts.RequestTimeout)(h)
	if opts.Metrics != nil {
		h = middleware.Observability(opts.Metrics, routes...)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.Recovery(logger)(h)
	h = middleware.RequestID(h)

	return h
}
