package api

import (
	"net/http"
	"time"

	"github.com/oriys/inkwell/internal/logging"
	"github.com/oriys/inkwell/internal/observability"
	"github.com/oriys/inkwell/internal/ratelimit"
	"github.com/oriys/inkwell/internal/service"
)

// ServerConfig contains dependencies for the HTTP server.
type ServerConfig struct {
	Engine *service.Engine
	// Limiter guards mutating routes; nil disables rate limiting.
	Limiter *ratelimit.Limiter
}

// NewHandler builds the routed handler with its middleware chain.
func NewHandler(cfg ServerConfig) http.Handler {
	mux := http.NewServeMux()
	h := &Handler{Engine: cfg.Engine}
	h.RegisterRoutes(mux)

	var handler http.Handler = mux
	if cfg.Limiter != nil {
		handler = ratelimit.Middleware(cfg.Limiter)(handler)
		logging.Op().Info("rate limiting enabled")
	}
	handler = requestLogger(handler)
	handler = observability.HTTPMiddleware(handler)
	return handler
}

// NewHTTPServer returns an unstarted server for addr.
func NewHTTPServer(addr string, cfg ServerConfig) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           NewHandler(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
