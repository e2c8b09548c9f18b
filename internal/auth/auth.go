// Package auth registers chat users, checks their passwords, and issues the
// bearer tokens that guard profile routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/JakeFAU/sourcescope/internal/render"
	"github.com/JakeFAU/sourcescope/internal/userstore"
)

// Username and password bounds enforced by Register.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 6
)

var (
	// ErrInvalidCredentials hides which half of a login was wrong.
	ErrInvalidCredentials = errors.New("incorrect username or password")
	// ErrInvalidToken covers malformed, expired, or forged tokens.
	ErrInvalidToken = errors.New("could not validate credentials")
	// ErrInvalidInput wraps registration validation failures.
	ErrInvalidInput = errors.New("invalid registration")
)

// Store is the subset of the user store auth needs.
type Store interface {
	GetUser(ctx context.Context, username string) (userstore.User, error)
	CreateUser(ctx context.Context, user userstore.User) (userstore.User, error)
}

// Config controls token issuance.
type Config struct {
	Secret string
	TTL    time.Duration
}

// Service implements registration, login, and token checks.
type Service struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	logger *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides the token clock.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New builds a Service.
func New(store Store, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 30 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:  store,
		secret: []byte(cfg.Secret),
		ttl:    cfg.TTL,
		now:    time.Now,
		logger: logger.Named("auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register validates and stores a new user with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, username, password string) (userstore.User, error) {
	username = strings.TrimSpace(username)
	if n := utf8.RuneCountInString(username); n < MinUsernameLength || n > MaxUsernameLength {
		return userstore.User{}, fmt.Errorf("%w: username must be %d to %d characters",
			ErrInvalidInput, MinUsernameLength, MaxUsernameLength)
	}
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return userstore.User{}, fmt.Errorf("%w: password must be at least %d characters",
			ErrInvalidInput, MinPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return userstore.User{}, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.store.CreateUser(ctx, userstore.User{
		Username:       username,
		HashedPassword: string(hash),
		CreatedAt:      s.now().UTC(),
	})
	if err != nil {
		return userstore.User{}, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("user registered", zap.String("username", username))
	return user, nil
}

// Authenticate checks a username/password pair.
func (s *Service) Authenticate(ctx context.Context, username, password string) (userstore.User, error) {
	user, err := s.store.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, userstore.ErrUserNotFound) {
			return userstore.User{}, ErrInvalidCredentials
		}
		return userstore.User{}, fmt.Errorf("load user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return userstore.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// IssueToken signs an HS256 token whose subject is username.
func (s *Service) IssueToken(username string) (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   username,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// VerifyToken returns the subject of a valid token.
func (s *Service) VerifyToken(token string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

type usernameKey struct{}

// UsernameFrom returns the user stored by Middleware.
func UsernameFrom(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(usernameKey{}).(string)
	return name, ok && name != ""
}

// WithUsername stores username on ctx.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey{}, username)
}

// Middleware requires a valid bearer token and exposes its subject.
func (s *Service) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			render.Error(w, http.StatusForbidden, "not authenticated")
			return
		}
		username, err := s.VerifyToken(strings.TrimSpace(token))
		if err != nil {
			s.logger.Debug("rejected bearer token", zap.Error(err))
			render.Error(w, http.StatusForbidden, ErrInvalidToken.Error())
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
	})
}
