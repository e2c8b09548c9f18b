// Package llm is a small client for OpenAI-compatible chat-completions endpoints.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/metrics"
)

const (
	// DefaultEndpoint is the Mistral chat-completions URL.
	DefaultEndpoint = "https://api.mistral.ai/v1/chat/completions"
	// DefaultModel is used when a request names no model.
	DefaultModel = "mistral-small"

	maxErrorBody = 500
	pingTokens   = 10
)

var (
	// ErrNotConfigured is returned when no API key is set.
	ErrNotConfigured = errors.New("llm api key not configured")
	// ErrTimeout is returned when the upstream call exceeds its deadline.
	ErrTimeout = errors.New("llm request timed out")
	// ErrUnreachable is returned when the upstream cannot be contacted.
	ErrUnreachable = errors.New("llm service unreachable")
	// ErrEmptyCompletion is returned by callers that require non-empty content.
	ErrEmptyCompletion = errors.New("llm returned an empty completion")
)

// StatusError carries a non-200 upstream answer.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("llm upstream returned %d: %s", e.Code, e.Body)
}

// Config points the client at an endpoint.
type Config struct {
	APIKey   string
	Endpoint string
	Model    string
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes one chat-completions call. Timeout bounds the
// call on top of ctx when positive.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Completion is the first choice returned by the upstream.
type Completion struct {
	Content string
	Model   string
}

// Model describes one entry of the model catalog.
type Model struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Client talks to the chat-completions endpoint. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *zap.Logger
}

// New builds a Client. A nil httpClient falls back to http.DefaultClient.
func New(cfg Config, httpClient *http.Client, logger *zap.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{cfg: cfg, http: httpClient, logger: logger.Named("llm")}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return strings.TrimSpace(c.cfg.APIKey) != ""
}

// DefaultModel returns the configured fallback model.
func (c *Client) DefaultModel() string {
	return c.cfg.Model
}

// Models returns the static model catalog.
func (c *Client) Models() []Model {
	return []Model{
		{Name: "mistral-tiny", Description: "Fast and efficient Mistral model (7B parameters)"},
		{Name: "mistral-small", Description: "Balanced Mistral model with good performance (8x7B parameters)"},
		{Name: "mistral-medium", Description: "Enhanced Mistral model (24B parameters)"},
		{Name: "mistral-large", Description: "Most powerful Mistral model (123B parameters)"},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// Complete sends req and returns the first choice. A 200 with no choices
// yields an empty Completion and no error.
func (c *Client) Complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	start := time.Now()
	out, err := c.complete(ctx, req)
	metrics.ObserveLLMRequest("complete", outcome(err), time.Since(start))
	return out, err
}

func (c *Client) complete(ctx context.Context, req CompletionRequest) (Completion, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}
	status, body, err := c.send(ctx, chatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, req.Timeout)
	if err != nil {
		return Completion{}, err
	}
	if status != http.StatusOK {
		return Completion{}, &StatusError{Code: status, Body: Truncate(string(body), maxErrorBody)}
	}

	var decoded chatResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return Completion{}, fmt.Errorf("decode completion: %w", err)
	}
	out := Completion{Model: model}
	if len(decoded.Choices) > 0 {
		out.Content = decoded.Choices[0].Message.Content
	}
	return out, nil
}

// Ping issues a tiny completion. Statuses 200 and 400 both prove the endpoint
// is reachable and the key is accepted.
func (c *Client) Ping(ctx context.Context, prompt string) error {
	start := time.Now()
	err := c.ping(ctx, prompt)
	metrics.ObserveLLMRequest("ping", outcome(err), time.Since(start))
	return err
}

func (c *Client) ping(ctx context.Context, prompt string) error {
	status, body, err := c.send(ctx, chatRequest{
		Model:     c.cfg.Model,
		Messages:  []Message{{Role: "user", Content: prompt}},
		MaxTokens: pingTokens,
	}, 0)
	if err != nil {
		return err
	}
	if status == http.StatusOK || status == http.StatusBadRequest {
		return nil
	}
	return &StatusError{Code: status, Body: Truncate(string(body), maxErrorBody)}
}

func (c *Client) send(ctx context.Context, payload chatRequest, timeout time.Duration) (int, []byte, error) {
	if !c.Configured() {
		return 0, nil, ErrNotConfigured
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("encode completion request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(encoded))
	if err != nil {
		return 0, nil, fmt.Errorf("build completion request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.logger.Warn("llm request failed", zap.String("model", payload.Model), zap.Error(err))
		return 0, nil, classify(err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, classify(fmt.Errorf("read completion body: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("llm upstream error",
			zap.String("model", payload.Model),
			zap.Int("status", resp.StatusCode),
		)
	}
	return resp.StatusCode, body, nil
}

func classify(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeOK
}

// Truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
