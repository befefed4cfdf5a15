// Package server wires the HTTP surface of the e-PHIT backend: the video
// catalog REST API, the quiz endpoints, the streamed chat proxy, the
// websocket chat, and the operational endpoints (health, readiness,
// metrics).
package server

import (
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fitnessuom/ephit-mental-health/internal/catalog"
	"github.com/fitnessuom/ephit-mental-health/internal/chat"
	"github.com/fitnessuom/ephit-mental-health/internal/health"
	"github.com/fitnessuom/ephit-mental-health/internal/observe"
	"github.com/fitnessuom/ephit-mental-health/internal/quiz"
)

// Server assembles the HTTP API. Construct with [New], serve via
// [Server.Handler].
type Server struct {
	cat      *catalog.Catalog
	producer chat.Producer
	linker   *chat.Linker
	history  *quiz.History
	logger   *slog.Logger
	metrics  *observe.Metrics
	rng      *rand.Rand

	maxLinks       int
	recommendCount int
	turnTimeout    time.Duration

	router chi.Router
}

// Option is a functional option for [New].
type Option func(*Server)

// WithLogger sets the server's structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics sets the metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithRand fixes the randomness source used for quiz recommendations.
// Mainly for tests.
func WithRand(rng *rand.Rand) Option {
	return func(s *Server) {
		s.rng = rng
	}
}

// WithMaxLinks caps the videos linked under one assistant message.
func WithMaxLinks(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxLinks = n
		}
	}
}

// WithRecommendCount sets how many videos a finished quiz suggests.
func WithRecommendCount(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.recommendCount = n
		}
	}
}

// WithTurnTimeout caps a single chat turn on websocket sessions.
func WithTurnTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.turnTimeout = d
	}
}

// WithQuizHistoryCap bounds the retained quiz runs.
func WithQuizHistoryCap(n int) Option {
	return func(s *Server) {
		s.history = quiz.NewHistory(n)
	}
}

// New builds a Server over the given catalog and chat producer. producer
// may be nil, in which case the chat endpoints report unavailability and
// readiness fails.
func New(cat *catalog.Catalog, producer chat.Producer, opts ...Option) *Server {
	s := &Server{
		cat:            cat,
		producer:       producer,
		linker:         chat.NewLinker(cat),
		logger:         slog.Default(),
		maxLinks:       chat.DefaultMaxLinks,
		recommendCount: quiz.DefaultRecommendCount,
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	if s.history == nil {
		s.history = quiz.NewHistory(quiz.DefaultHistoryCap)
	}
	s.router = s.routes()
	return s
}

// Handler returns the fully-routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(observe.Middleware(s.metrics))

	hc := health.New(
		health.CatalogChecker(s.cat),
		health.GatewayChecker(s.producer != nil),
	)
	hc.Register(r)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/videos", s.handleListVideos)
		r.Get("/videos/{id}", s.handleGetVideo)
		r.Get("/categories", s.handleCategories)

		r.Route("/quiz", func(r chi.Router) {
			r.Post("/filter", s.handleQuizFilter)
			r.Post("/options", s.handleQuizOptions)
			r.Post("/recommend", s.handleQuizRecommend)
			r.Get("/history", s.handleQuizHistory)
		})

		r.Post("/chat", s.handleChatStream)
		r.Get("/chat/ws", s.handleChatSocket)
	})

	return r
}
