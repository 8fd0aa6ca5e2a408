package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL targets Groq's OpenAI-compatible API.
	DefaultBaseURL = "https://api.groq.com/openai/v1"

	// DefaultMaxRetries is the connect-phase attempt bound.
	DefaultMaxRetries = 3

	// DefaultBackoffBase is the first retry delay.
	DefaultBackoffBase = 1 * time.Second

	// DefaultBackoffCap bounds the retry delay growth.
	DefaultBackoffCap = 10 * time.Second
)

// Config contains the static configuration of a Client. One Client is safely
// reusable across concurrent requests; each call opens an independent
// network exchange.
type Config struct {
	// BaseURL is the API endpoint base URL (no trailing slash).
	// Default: DefaultBaseURL
	BaseURL string

	// APIKey is the bearer credential. Required.
	APIKey string

	// Model is the model identifier sent with every request. Required.
	Model string

	// MaxTokens bounds the generated reply length. Default: 1024
	MaxTokens int

	// Temperature controls sampling randomness. Default: 0.7
	Temperature float64

	// Timeout bounds the connect phase (dial plus response headers).
	// It does not bound stream consumption. Default: 120s
	Timeout time.Duration

	// MaxRetries is the connect-phase attempt bound. Default: 3
	MaxRetries int

	// BackoffBase and BackoffCap shape the exponential retry delay.
	BackoffBase time.Duration
	BackoffCap  time.Duration

	// OnRetry, if set, is invoked before each retry attempt.
	OnRetry func(attempt int)
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// New creates a Client. A missing credential or model is a construction-time
// failure; per-request operations never re-validate configuration.
func New(config Config) (*Client, error) {
	if config.APIKey == "" {
		return nil, &ConfigError{Field: "api_key", Message: "API key is required"}
	}
	if config.Model == "" {
		return nil, &ConfigError{Field: "model", Message: "model is required"}
	}

	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.MaxTokens == 0 {
		config.MaxTokens = 1024
	}
	if config.Temperature == 0 {
		config.Temperature = 0.7
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	if config.MaxRetries == 0 {
		config.MaxRetries = DefaultMaxRetries
	}
	if config.BackoffBase == 0 {
		config.BackoffBase = DefaultBackoffBase
	}
	if config.BackoffCap == 0 {
		config.BackoffCap = DefaultBackoffCap
	}

	// The client timeout covers dial and response headers only; consuming
	// the stream is governed by the caller's context.
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: config.Timeout,
		}).DialContext,
		ResponseHeaderTimeout: config.Timeout,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	c := &Client{
		config: config,
		client: &http.Client{Transport: transport},
		logger: slog.Default().With("component", "completion"),
	}

	c.logger.Info("completion client initialized",
		"base_url", config.BaseURL,
		"model", config.Model,
		"timeout", config.Timeout,
		"max_retries", config.MaxRetries,
	)

	return c, nil
}

// Open starts a streaming completion exchange for the given turns and
// returns a Stream of text fragments.
//
// An empty turn list yields an immediately exhausted stream, not an error.
// Transient network failures during the connect phase are retried up to the
// configured bound with exponential backoff; a non-2xx status is fatal and
// returned as a *StatusError without retrying. The retry window closes when
// response headers arrive: a failure between a successful status and the
// first fragment surfaces through Recv as a stream error.
func (c *Client) Open(ctx context.Context, turns []Turn) (*Stream, error) {
	if len(turns) == 0 {
		c.logger.Warn("empty turn list, returning exhausted stream")
		return &Stream{done: true, logger: c.logger}, nil
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.config.Model,
		Messages:    turns,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.MaxTokens,
		Stream:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Debug("retrying connect",
				"attempt", attempt,
				"max_retries", c.config.MaxRetries,
				"backoff", backoff,
			)
			if c.config.OnRetry != nil {
				c.config.OnRetry(attempt)
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		resp, err := c.post(ctx, c.config.BaseURL+"/chat/completions", body, true)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			// Network-level failure before any data: retryable.
			lastErr = err
			c.logger.Warn("connect attempt failed, will retry",
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			// Non-success status is fatal regardless of code.
			defer resp.Body.Close()
			return nil, c.statusError(resp)
		}

		return newStream(resp.Body, c.logger), nil
	}

	return nil, &ConnectError{
		Attempts: c.config.MaxRetries,
		Timeout:  c.config.Timeout,
		Cause:    lastErr,
	}
}

// ValidateCredential issues a minimal non-streaming request to verify the
// configured API key. It never returns an error; the result describes the
// outcome either way.
func (c *Client) ValidateCredential(ctx context.Context) Validation {
	body, err := json.Marshal(chatRequest{
		Model:     c.config.Model,
		Messages:  []Turn{{Role: "user", Content: "Hello"}},
		MaxTokens: 5,
	})
	if err != nil {
		return Validation{Valid: false, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	resp, err := c.post(ctx, c.config.BaseURL+"/chat/completions", body, false)
	if err != nil {
		return Validation{Valid: false, Message: fmt.Sprintf("error validating API key: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return Validation{Valid: true, Message: "API key is valid."}
	}

	statusErr := c.statusError(resp)
	return Validation{Valid: false, Message: statusErr.Message}
}

// post sends one request. The stream flag selects the Accept header.
func (c *Client) post(ctx context.Context, url string, body []byte, stream bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	return c.client.Do(req)
}

// statusError reads the response body and builds a *StatusError, extracting
// the structured upstream message when the body parses.
func (c *Client) statusError(resp *http.Response) *StatusError {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	message := string(raw)
	var parsed errorBody
	if json.Unmarshal(raw, &parsed) == nil && parsed.Error.Message != "" {
		message = parsed.Error.Message
	}

	c.logger.Error("upstream returned error status",
		"status", resp.StatusCode,
		"message", message,
	)

	return &StatusError{StatusCode: resp.StatusCode, Message: message}
}

// backoff returns the delay before the given retry attempt (1-based),
// growing exponentially from BackoffBase up to BackoffCap.
func (c *Client) backoff(attempt int) time.Duration {
	d := time.Duration(math.Pow(2, float64(attempt-1)) * float64(c.config.BackoffBase))
	if d > c.config.BackoffCap {
		d = c.config.BackoffCap
	}
	return d
}

// Close releases idle connections held by the underlying transport.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}
