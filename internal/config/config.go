// Package config loads and validates sourcescope configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Chat       ChatConfig       `mapstructure:"chat"`
	Auth       AuthConfig       `mapstructure:"auth"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Probes     ProbesConfig     `mapstructure:"probes"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Storage    StorageConfig    `mapstructure:"storage"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls the analysis HTTP server.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// ChatConfig controls the chat/profile HTTP server.
type ChatConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API key authentication for the analysis server.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig configures the outbound probe client.
type HTTPConfig struct {
	UserAgent          string `mapstructure:"user_agent"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify"`
}

// ProbeConfig toggles and bounds one probe.
type ProbeConfig struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// Timeout returns the probe timeout as a duration.
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// ProbesConfig groups the four probes.
type ProbesConfig struct {
	Reachability ProbeConfig `mapstructure:"reachability"`
	Registration ProbeConfig `mapstructure:"registration"`
	CrawlPolicy  ProbeConfig `mapstructure:"crawl_policy"`
	Content      ProbeConfig `mapstructure:"content"`
}

// ClassifierConfig selects the default classification policy.
type ClassifierConfig struct {
	Policy string `mapstructure:"policy"`
}

// RateLimitConfig throttles analyses per target host.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// LLMConfig points at an OpenAI-compatible chat-completions endpoint.
type LLMConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// StorageConfig locates the JSON user store.
type StorageConfig struct {
	UsersFile string `mapstructure:"users_file"`
}

// JWTConfig controls bearer token issuance.
type JWTConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	Algorithm     string `mapstructure:"algorithm"`
	ExpireMinutes int    `mapstructure:"expire_minutes"`
}

// MinJWTSecretLength is the shortest accepted HS256 signing secret in bytes.
const MinJWTSecretLength = 32

// placeholderJWTSecret is the sample value older .env templates shipped with.
const placeholderJWTSecret = "your-secret-key-here-change-in-production"

// ErrWeakJWTSecret is returned when jwt.secret_key is unset, a known sample
// value, or too short to sign tokens safely.
var ErrWeakJWTSecret = errors.New("jwt.secret_key is weak")

// ValidateSecret checks that the signing secret is usable for the chat server.
func (j JWTConfig) ValidateSecret() error {
	switch {
	case j.SecretKey == "":
		return fmt.Errorf("%w: not set", ErrWeakJWTSecret)
	case j.SecretKey == placeholderJWTSecret:
		return fmt.Errorf("%w: sample value must be replaced", ErrWeakJWTSecret)
	case len(j.SecretKey) < MinJWTSecretLength:
		return fmt.Errorf("%w: need at least %d bytes", ErrWeakJWTSecret, MinJWTSecretLength)
	}
	return nil
}

// TTL returns the token lifetime.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.ExpireMinutes) * time.Minute
}

// CORSConfig lists browser origins allowed to call the chat server.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// legacyEnv maps keys to environment names older deployments still set.
var legacyEnv = map[string]string{
	"llm.api_key":    "MISTRAL_API_KEY",
	"llm.base_url":   "MISTRAL_API_BASE",
	"llm.model":      "MISTRAL_MODEL",
	"jwt.secret_key": "SECRET_KEY",
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SOURCESCOPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		envKey := "SOURCESCOPE_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, envKey, legacy); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.request_timeout_seconds", 60)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("chat.port", 8000)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("http.user_agent", "")
	v.SetDefault("http.insecure_skip_verify", false)
	v.SetDefault("probes.reachability.enabled", true)
	v.SetDefault("probes.reachability.timeout_seconds", 10)
	v.SetDefault("probes.registration.enabled", true)
	v.SetDefault("probes.registration.timeout_seconds", 10)
	v.SetDefault("probes.crawl_policy.enabled", true)
	v.SetDefault("probes.crawl_policy.timeout_seconds", 5)
	v.SetDefault("probes.content.enabled", true)
	v.SetDefault("probes.content.timeout_seconds", 10)
	v.SetDefault("classifier.policy", "full")
	v.SetDefault("ratelimit.rps", 1.0)
	v.SetDefault("ratelimit.burst", 3)
	v.SetDefault("llm.base_url", "https://api.mistral.ai/v1/chat/completions")
	v.SetDefault("llm.model", "mistral-small")
	v.SetDefault("storage.users_file", "users.json")
	v.SetDefault("jwt.algorithm", "HS256")
	v.SetDefault("jwt.expire_minutes", 30)
	v.SetDefault("cors.allowed_origins", []string{
		"http://localhost:3000", "http://localhost:3001", "http://127.0.0.1:3000",
	})
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Chat.Port <= 0 {
		return fmt.Errorf("chat.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	for name, p := range map[string]ProbeConfig{
		"reachability": c.Probes.Reachability,
		"registration": c.Probes.Registration,
		"crawl_policy": c.Probes.CrawlPolicy,
		"content":      c.Probes.Content,
	} {
		if p.Enabled && p.TimeoutSeconds <= 0 {
			return fmt.Errorf("probes.%s.timeout_seconds must be > 0", name)
		}
	}
	switch strings.ToLower(c.Classifier.Policy) {
	case "full", "simple":
	default:
		return fmt.Errorf("classifier.policy must be one of full, simple; got %q", c.Classifier.Policy)
	}
	if c.RateLimit.RPS < 0 {
		return fmt.Errorf("ratelimit.rps must be >= 0")
	}
	if c.JWT.Algorithm != "HS256" {
		return fmt.Errorf("jwt.algorithm %q is not supported", c.JWT.Algorithm)
	}
	if c.JWT.ExpireMinutes <= 0 {
		return fmt.Errorf("jwt.expire_minutes must be > 0")
	}
	if c.Storage.UsersFile == "" {
		return fmt.Errorf("storage.users_file must be set")
	}
	return nil
}

// RequestTimeout returns the per-request budget of the analysis server.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c Config) ShutdownTimeout() time.Duration {
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}
