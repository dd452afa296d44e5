// Package server exposes a running engine.Loop over HTTP.
//
// Every request that touches the document goes through the loop: pointer
// and key events are submitted as device events, everything else runs as
// a Loop.Call closure. Handlers never hold a *engine.Session outside a
// closure.
//
// Routes:
//
//	POST   /gates                {tag, x, y}            create a gate
//	POST   /inputs               {tag, x, y}            create an input
//	POST   /outputs              {tag, x, y}            create an output
//	POST   /annotations          {text, x, y, style}    create an annotation
//	DELETE /entities/{id}                               remove an entity
//	POST   /pointer/{phase}      {x, y}                 phase: down, move, up
//	POST   /keys                 {key}                  press a key
//	POST   /inputs/{id}/toggle                          flip a switch
//	GET    /outputs/{id}/value                          computed value
//	GET    /hit?x=&y=                                   hit test
//	GET    /scene                                       read model as JSON
//	GET    /render.png                                  read model as PNG
//	GET    /metrics                                     Prometheus metrics
//	GET    /health
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/connectlab/internal/engine"
)

// Server serves one document.
type Server struct {
	loop     *engine.Loop
	renderer engine.Renderer
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithRenderer enables GET /render.png.
func WithRenderer(r engine.Renderer) Option {
	return func(s *Server) {
		s.renderer = r
	}
}

// WithMetrics enables GET /metrics over g, e.g. metrics.Collector.Registry().
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the request logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// New creates a server over loop. The loop must be running (or about to
// run) on its own goroutine.
func New(loop *engine.Loop, opts ...Option) *Server {
	s := &Server{loop: loop, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/health", s.health)

	r.Post("/gates", s.createNode(kindGate))
	r.Post("/inputs", s.createNode(kindInput))
	r.Post("/outputs", s.createNode(kindOutput))
	r.Post("/annotations", s.createAnnotation)
	r.Delete("/entities/{id}", s.remove)

	r.Post("/pointer/{phase}", s.pointer)
	r.Post("/keys", s.key)

	r.Post("/inputs/{id}/toggle", s.toggle)
	r.Get("/outputs/{id}/value", s.value)
	r.Get("/hit", s.hit)
	r.Get("/scene", s.scene)

	if s.renderer != nil {
		r.Get("/render.png", s.render)
	}
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
