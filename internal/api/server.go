package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/analyzer"
	"github.com/JakeFAU/sourcescope/internal/metrics"
	"github.com/JakeFAU/sourcescope/internal/middleware"
	"github.com/JakeFAU/sourcescope/internal/osint"
	"github.com/JakeFAU/sourcescope/internal/render"
)

// Analyzer is the orchestrator the server delegates to.
type Analyzer interface {
	Analyze(ctx context.Context, rawURL string, policy osint.Policy) (osint.Report, error)
}

// Options configure a Server.
type Options struct {
	// APIKey, when non-empty, guards the analysis routes.
	APIKey         string
	RequestTimeout time.Duration
}

// Server exposes the source classifier over HTTP.
type Server struct {
	router   chi.Router
	analyzer Analyzer
	logger   *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(a Analyzer, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 60 * time.Second
	}
	s := &Server{
		analyzer: a,
		logger:   logger,
	}
	metrics.Init()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(opts.RequestTimeout))
		if opts.APIKey != "" {
			r.Use(middleware.APIKey(opts.APIKey))
		}
		r.Post("/analyze", s.analyze)
		r.Post("/v1/analyze", s.analyze)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	// Probes are created per request; nothing to warm up.
	render.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type analyzeRequest struct {
	URL    string `json:"url"`
	Policy string `json:"policy"`
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		render.Error(w, http.StatusBadRequest, analyzer.ErrEmptyURL.Error())
		return
	}
	var policy osint.Policy
	if req.Policy != "" {
		p, err := osint.ParsePolicy(req.Policy)
		if err != nil {
			render.Error(w, http.StatusBadRequest, err.Error())
			return
		}
		policy = p
	}

	report, err := s.analyzer.Analyze(r.Context(), req.URL, policy)
	switch {
	case err == nil:
		render.JSON(w, http.StatusOK, report)
	case errors.Is(err, analyzer.ErrEmptyURL):
		render.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, analyzer.ErrMalformedURL):
		render.JSON(w, http.StatusUnprocessableEntity, report)
	default:
		s.logger.Error("analysis failed", zap.String("url", req.URL), zap.Error(err))
		render.Error(w, http.StatusInternalServerError, "analysis failed")
	}
}
