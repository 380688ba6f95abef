package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// WSHandler serves the websocket endpoint at /ws.
	WSHandler http.Handler

	// Registry backs the /metrics endpoint. Nil disables it.
	Registry *prometheus.Registry

	// Logger for request logging.
	Logger *slog.Logger
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(cfg *RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	if cfg.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	// The websocket handshake runs its own long-lived loop; only the
	// recover wrapper applies.
	mux.Handle("/ws", Chain(cfg.WSHandler, Recover(logger)))

	return Chain(mux, Logging(logger))
}
