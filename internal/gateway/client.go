// Package gateway provides the HTTP client for the hosted AI gateway that
// powers the coach chat.
//
// The gateway speaks the OpenAI-compatible chat-completions protocol: a JSON
// request carrying the full prior message list, answered with a chunked
// `data:`-line event stream. This package only opens the stream and maps
// error responses; decoding the stream itself is internal/stream's job.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://ai.gateway.lovable.dev/v1"
	defaultModel   = "google/gemini-2.5-flash"
	defaultTimeout = 2 * time.Minute

	// Conservative client-side ceiling; the gateway rate-limits well above
	// this for normal tiers.
	defaultRateLimit = rate.Limit(1)
	defaultBurstSize = 5
)

// Message is one conversation entry in the gateway's wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the JSON request body for /chat/completions.
type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
}

// errorResponse is the JSON body the gateway returns on non-2xx statuses.
type errorResponse struct {
	Error string `json:"error"`
}

// StatusError is a non-success gateway response. The status code is kept so
// callers can distinguish rate limiting (429) and billing/availability (402)
// from generic failures.
type StatusError struct {
	// Code is the HTTP status code.
	Code int

	// Message is the gateway's error string, when one was parseable.
	Message string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway: status %d", e.Code)
	}
	return fmt.Sprintf("gateway: status %d: %s", e.Code, e.Message)
}

// Client talks to the AI gateway. It is safe for concurrent use.
type Client struct {
	httpClient   *http.Client
	limiter      *rate.Limiter
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
}

// config holds optional configuration for the client.
type config struct {
	baseURL      string
	model        string
	timeout      time.Duration
	systemPrompt string
	httpClient   *http.Client
	limit        rate.Limit
	burst        int
}

// Option is a functional option for [New].
type Option func(*config)

// WithBaseURL overrides the default gateway base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel overrides the default model name.
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout covering the whole stream.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithSystemPrompt sets the system message prepended to every conversation.
func WithSystemPrompt(prompt string) Option {
	return func(c *config) {
		c.systemPrompt = prompt
	}
}

// WithHTTPClient replaces the default HTTP client. Mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// WithRateLimit overrides the default client-side request rate ceiling.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(c *config) {
		c.limit = limit
		c.burst = burst
	}
}

// New constructs a gateway Client. A missing API key is a setup failure and
// is reported here rather than on first request.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gateway: apiKey must not be empty")
	}

	cfg := &config{
		baseURL: defaultBaseURL,
		model:   defaultModel,
		timeout: defaultTimeout,
		limit:   defaultRateLimit,
		burst:   defaultBurstSize,
	}
	for _, o := range opts {
		o(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{
			Timeout: cfg.timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}
	}

	return &Client{
		httpClient:   hc,
		limiter:      rate.NewLimiter(cfg.limit, cfg.burst),
		baseURL:      cfg.baseURL,
		apiKey:       apiKey,
		model:        cfg.model,
		systemPrompt: cfg.systemPrompt,
	}, nil
}

// Open submits the conversation and returns the raw event-stream body. The
// caller owns the returned reader and must close it; cancelling ctx aborts
// the in-flight read.
//
// Non-2xx responses are returned as a [*StatusError] with the gateway's
// error message when the body carried one.
func (c *Client) Open(ctx context.Context, history []Message) (io.ReadCloser, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("gateway: rate limiter: %w", err)
	}

	messages := make([]Message, 0, len(history)+1)
	if c.systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: c.systemPrompt})
	}
	messages = append(messages, history...)

	body, err := json.Marshal(chatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("gateway: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("gateway: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, parseError(resp)
	}

	return resp.Body, nil
}

// parseError reads a non-2xx response body into a [*StatusError]. Bodies
// that are not the expected JSON shape still produce a usable error.
func parseError(resp *http.Response) error {
	serr := &StatusError{Code: resp.StatusCode}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return serr
	}
	var er errorResponse
	if err := json.Unmarshal(body, &er); err == nil && er.Error != "" {
		serr.Message = er.Error
	}
	return serr
}
