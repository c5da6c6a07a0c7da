// Package llm is the completion stream client: it sends one prompt to
// the Anthropic Messages API under a token budget and a bounded retry
// policy, and exposes the streamed response as a lazy sequence of edit
// commands.
package llm

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Default client settings.
const (
	DefaultMaxAttempts     = 3
	DefaultMaxPromptTokens = 100000
	DefaultMaxOutputTokens = 8192
)

// toolOverheadTokens is the fixed budget reserved for the editor tool
// descriptor and protocol framing on every request.
const toolOverheadTokens = 1024

// promptSeparator joins system and user text for estimation only; it
// stands in for the framing between the two on the wire.
const promptSeparator = "\n\n"

// Prompt is one interpolated prompt ready to send.
type Prompt struct {
	System string
	User   string
}

// Config holds client configuration.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Anthropic endpoint (tests, proxies).
	BaseURL string

	// MaxAttempts bounds the retry loop around one prompt (default 3).
	MaxAttempts int

	// RetryDelay is the fixed sleep between attempts (default 0).
	RetryDelay time.Duration

	// MaxPromptTokens is the estimated-token budget (default 100000).
	MaxPromptTokens int

	// MaxOutputTokens is sent as the response cap (default 8192).
	MaxOutputTokens int
}

func (c Config) withDefaults() Config {
	out := c
	if out.BaseURL == "" {
		out.BaseURL = defaultBaseURL
	}
	if out.MaxAttempts == 0 {
		out.MaxAttempts = DefaultMaxAttempts
	}
	if out.MaxPromptTokens == 0 {
		out.MaxPromptTokens = DefaultMaxPromptTokens
	}
	if out.MaxOutputTokens == 0 {
		out.MaxOutputTokens = DefaultMaxOutputTokens
	}
	return out
}

// Client issues prompts to the provider. There is deliberately no
// per-request deadline: the retry attempt cap and fixed delay are the
// only time bounds, and a hung stream is ended by cancelling ctx.
type Client struct {
	cfg        Config
	httpClient *http.Client
	estimator  TokenEstimator
	logger     *slog.Logger

	// sleep is the inter-attempt delay, injectable for tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithEstimator overrides the token estimator.
func WithEstimator(estimator TokenEstimator) Option {
	return func(c *Client) { c.estimator = estimator }
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a Client.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg:        cfg.withDefaults(),
		httpClient: &http.Client{},
		estimator:  CharEstimator{},
		logger:     slog.Default(),
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// SendPrompt sends one prompt and returns the resulting command stream.
//
// The estimated size of system + user text plus the fixed tool
// overhead is checked against the budget before anything touches the
// network; an oversized prompt fails with *TokenBudgetError
// immediately. The request-to-stream-open operation is then retried up
// to MaxAttempts times with a fixed delay between attempts. Partial
// streams are never resumed or merged; once a stream is open, errors
// inside it are the stream's own and are not retried here.
func (c *Client) SendPrompt(ctx context.Context, prompt Prompt) (*CommandStream, error) {
	estimated := c.estimator.Estimate(prompt.System+promptSeparator+prompt.User) + toolOverheadTokens
	if estimated > c.cfg.MaxPromptTokens {
		return nil, &TokenBudgetError{Estimated: estimated, Limit: c.cfg.MaxPromptTokens}
	}

	request := buildRequest(c.cfg.Model, c.cfg.MaxOutputTokens, prompt)

	var body io.ReadCloser
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		body, lastErr = openStream(ctx, c.httpClient, c.cfg.BaseURL, c.cfg.APIKey, request)
		if lastErr == nil {
			return newCommandStream(body, c.logger), nil
		}

		c.logger.Warn("completion request failed",
			"attempt", attempt, "max_attempts", c.cfg.MaxAttempts, "error", lastErr)

		if attempt < c.cfg.MaxAttempts && c.cfg.RetryDelay > 0 {
			if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
				return nil, err
			}
		}
	}
	return nil, lastErr
}

// sleepContext sleeps for d unless ctx is cancelled first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
