// Package chatapi serves the chat proxy, user accounts, and profile articles.
package chatapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/auth"
	"github.com/JakeFAU/sourcescope/internal/llm"
	"github.com/JakeFAU/sourcescope/internal/metrics"
	"github.com/JakeFAU/sourcescope/internal/middleware"
	"github.com/JakeFAU/sourcescope/internal/profile"
	"github.com/JakeFAU/sourcescope/internal/render"
	"github.com/JakeFAU/sourcescope/internal/userstore"
)

const (
	chatTemperature    = 0.7
	chatMaxTokens      = 2000
	chatTimeout        = 60 * time.Second
	articleTemperature = 0.9
	articleMaxTokens   = 400
	articleTimeout     = 120 * time.Second
	warmupMaxTokens    = 10
	warmupTimeout      = 30 * time.Second
	healthTimeout      = 10 * time.Second
	warmupErrorBody    = 200

	noAnswer = "no answer received"
)

// LLM is the completion backend used by the chat routes.
type LLM interface {
	Configured() bool
	DefaultModel() string
	Models() []llm.Model
	Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error)
	Ping(ctx context.Context, prompt string) error
}

// Options configure a Server.
type Options struct {
	AllowedOrigins []string
	// Language is the language profile articles are written in.
	Language string
}

// Server hosts the chat HTTP surface.
type Server struct {
	router chi.Router
	llm    LLM
	users  *userstore.Store
	auth   *auth.Service
	opts   Options
	logger *zap.Logger
}

// NewServer wires routes and middleware.
func NewServer(client LLM, users *userstore.Store, authSvc *auth.Service, opts Options, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		llm:    client,
		users:  users,
		auth:   authSvc,
		opts:   opts,
		logger: logger.Named("chatapi"),
	}
	metrics.Init()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.Recover(s.logger))
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	r.Get("/", s.root)
	r.Get("/health", s.health)
	r.Post("/chat", s.chat)
	r.Get("/models", s.models)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		r.Route("/profile", func(r chi.Router) {
			r.Get("/warmup", s.warmup)
			r.Post("/analyze", s.analyzeProfile)
			r.Group(func(r chi.Router) {
				r.Use(s.auth.Middleware)
				r.Get("/me", s.getProfile)
				r.Post("/me", s.saveProfile)
			})
		})
	})

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, http.StatusOK, map[string]any{
		"message": "SourceScope chat API is running",
		"endpoints": map[string]string{
			"health": "/health",
			"chat":   "/chat",
			"models": "/models",
		},
	})
}

type healthResponse struct {
	Status   string `json:"status"`
	LLM      string `json:"mistral"`
	Database string `json:"database"`
	Error    string `json:"error,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{LLM: "disconnected", Database: "connected"}
	var problems []string
	if err := s.llm.Ping(ctx, "test"); err != nil {
		problems = append(problems, "llm: "+err.Error())
	} else {
		resp.LLM = "connected"
	}
	if err := s.users.Ping(ctx); err != nil {
		resp.Database = "disconnected"
		problems = append(problems, "database: "+err.Error())
	}
	resp.Status = "unhealthy"
	if resp.LLM == "connected" && resp.Database == "connected" {
		resp.Status = "healthy"
	}
	resp.Error = strings.Join(problems, ", ")
	render.JSON(w, http.StatusOK, resp)
}

type chatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

type chatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}

func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		render.Error(w, http.StatusBadRequest, "message is required")
		return
	}
	model := req.Model
	if model == "" {
		model = s.llm.DefaultModel()
	}

	out, err := s.llm.Complete(r.Context(), llm.CompletionRequest{
		Model:       model,
		Messages:    []llm.Message{{Role: "user", Content: req.Message}},
		Temperature: chatTemperature,
		MaxTokens:   chatMaxTokens,
		Timeout:     chatTimeout,
	})
	if err != nil {
		s.writeLLMError(w, err)
		return
	}
	text := out.Content
	if text == "" {
		text = noAnswer
	}
	render.JSON(w, http.StatusOK, chatResponse{Response: text, Model: model})
}

func (s *Server) models(w http.ResponseWriter, _ *http.Request) {
	render.JSON(w, http.StatusOK, map[string]any{
		"models":  s.llm.Models(),
		"default": s.llm.DefaultModel(),
	})
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userResponse struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	user, err := s.auth.Register(r.Context(), req.Username, req.Password)
	switch {
	case err == nil:
		render.JSON(w, http.StatusOK, userResponse{Username: user.Username, CreatedAt: user.CreatedAt})
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, userstore.ErrUserExists):
		render.Error(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("registration failed", zap.Error(err))
		render.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	user, err := s.auth.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidCredentials) {
			s.logger.Error("login failed", zap.Error(err))
		}
		w.Header().Set("WWW-Authenticate", "Bearer")
		render.Error(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	token, err := s.auth.IssueToken(user.Username)
	if err != nil {
		s.logger.Error("token issuance failed", zap.Error(err))
		render.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	render.JSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

type statusMessage struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) warmup(w http.ResponseWriter, r *http.Request) {
	if !s.llm.Configured() {
		render.JSON(w, http.StatusOK, statusMessage{Status: "error", Message: "llm api key not configured"})
		return
	}
	_, err := s.llm.Complete(r.Context(), llm.CompletionRequest{
		Messages:  []llm.Message{{Role: "user", Content: "Hello"}},
		MaxTokens: warmupMaxTokens,
		Timeout:   warmupTimeout,
	})
	if err != nil {
		msg := err.Error()
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) {
			msg = "failed to connect: " + llm.Truncate(statusErr.Body, warmupErrorBody)
		}
		render.JSON(w, http.StatusOK, statusMessage{Status: "error", Message: msg})
		return
	}
	render.JSON(w, http.StatusOK, statusMessage{Status: "success", Message: "llm api is ready"})
}

type articleResponse struct {
	Article string          `json:"article"`
	Topics  []profile.Topic `json:"topics"`
}

func (s *Server) analyzeProfile(w http.ResponseWriter, r *http.Request) {
	var p profile.Profile
	if err := render.Decode(r, &p); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := p.Validate(); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.llm.Complete(r.Context(), llm.CompletionRequest{
		Messages:    []llm.Message{{Role: "user", Content: profile.BuildArticlePrompt(p, s.opts.Language)}},
		Temperature: articleTemperature,
		MaxTokens:   articleMaxTokens,
		Timeout:     articleTimeout,
	})
	if err == nil && strings.TrimSpace(out.Content) == "" {
		err = llm.ErrEmptyCompletion
	}
	if err != nil {
		s.writeLLMError(w, err)
		return
	}
	topics := profile.ExtractTopics(out.Content)
	s.logger.Info("generated profile article", zap.Int("topics", len(topics)))
	render.JSON(w, http.StatusOK, articleResponse{Article: out.Content, Topics: topics})
}

func (s *Server) getProfile(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFrom(r.Context())
	p, err := s.users.GetProfile(r.Context(), username)
	if err != nil && !errors.Is(err, userstore.ErrUserNotFound) {
		s.logger.Error("profile lookup failed", zap.String("username", username), zap.Error(err))
		render.Error(w, http.StatusInternalServerError, "internal server error")
		return
	}
	render.JSON(w, http.StatusOK, map[string]any{"profile": p})
}

func (s *Server) saveProfile(w http.ResponseWriter, r *http.Request) {
	username, _ := auth.UsernameFrom(r.Context())
	var p profile.Profile
	if err := render.Decode(r, &p); err != nil {
		render.Error(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := p.Validate(); err != nil {
		render.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := s.users.SaveProfile(r.Context(), username, p.Fields())
	switch {
	case err == nil:
		render.JSON(w, http.StatusOK, map[string]any{
			"message": "Profile saved successfully",
			"profile": saved,
		})
	case errors.Is(err, userstore.ErrUserNotFound):
		render.Error(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Error("profile save failed", zap.String("username", username), zap.Error(err))
		render.Error(w, http.StatusInternalServerError, "internal server error")
	}
}

// writeLLMError maps completion failures onto HTTP statuses.
func (s *Server) writeLLMError(w http.ResponseWriter, err error) {
	var statusErr *llm.StatusError
	switch {
	case errors.As(err, &statusErr):
		render.Errorf(w, statusErr.Code, "llm api error (status %d): %s", statusErr.Code, statusErr.Body)
	case errors.Is(err, llm.ErrTimeout):
		render.Error(w, http.StatusGatewayTimeout, "llm api timed out")
	case errors.Is(err, llm.ErrUnreachable):
		render.Error(w, http.StatusServiceUnavailable, "could not connect to the llm api")
	case errors.Is(err, llm.ErrNotConfigured), errors.Is(err, llm.ErrEmptyCompletion):
		render.Error(w, http.StatusInternalServerError, err.Error())
	default:
		s.logger.Error("llm call failed", zap.Error(err))
		render.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
