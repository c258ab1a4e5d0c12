package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"herpid/internal/logging"
	"herpid/internal/media"
)

const (
	defaultBaseURL     = "https://generativelanguage.googleapis.com"
	defaultModel       = "gemini-2.5-flash"
	defaultHTTPTimeout = 120 * time.Second
)

// Config captures the runtime settings required to talk to the Gemini API.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	TargetSpecies  string
	TimeoutSeconds int
}

// RetryPolicy bounds retries of transient transport failures. Delays double
// from BaseDelay up to MaxDelay; MaxAttempts counts the first try.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// DefaultRetryPolicy returns the standard budget: three attempts, backoff
// starting at two seconds, capped at ten.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: 2 * time.Second, MaxDelay: 10 * time.Second}
}

// Client wraps the Gemini generateContent API for image comparison requests.
type Client struct {
	cfg        Config
	httpClient *http.Client
	retry      RetryPolicy
	sleeper    func(time.Duration)
	logger     *slog.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the default retry budget.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.retry = policy
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// WithLogger attaches a logger for per-attempt warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient constructs a Gemini API client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			TargetSpecies:  strings.TrimSpace(cfg.TargetSpecies),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
		retry:      DefaultRetryPolicy(),
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.Model == "" {
		client.cfg.Model = defaultModel
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// StatusError reports a non-2xx response from the API.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gemini request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// EmptyResponseError reports a well-formed response that carried no text.
// It is permanent: the same request would produce the same empty answer.
type EmptyResponseError struct {
	FinishReason string
}

func (e *EmptyResponseError) Error() string {
	return fmt.Sprintf("gemini request: empty response (finish_reason=%q)", e.FinishReason)
}

// Identify sends the reference image, candidate image, and verification
// prompt as one multimodal request and returns the model's raw text.
// Transient transport failures are retried per the configured policy;
// everything else surfaces immediately.
func (c *Client) Identify(ctx context.Context, reference, candidate media.ImagePayload, description string) (string, error) {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return "", errors.New("gemini identify: api key required")
	}
	if len(reference.Data) == 0 || len(candidate.Data) == 0 {
		return "", &media.ContentError{Path: "", Err: errors.New("empty image payload")}
	}

	payload := generateContentRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{MIMEType: reference.MIMEType, Data: base64.StdEncoding.EncodeToString(reference.Data)}},
				{InlineData: &inlineData{MIMEType: candidate.MIMEType, Data: base64.StdEncoding.EncodeToString(candidate.Data)}},
				{Text: BuildPrompt(c.cfg.TargetSpecies, description)},
			},
		}},
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		text, err := c.sendOnce(ctx, payload)
		if err == nil {
			return text, nil
		}

		delay, transient := c.retryDelay(ctx, err, attempt)
		if !transient {
			return "", err
		}
		lastErr = err
		if attempt == attempts {
			break
		}
		c.logger.Warn("inference attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
			slog.Any("error", err),
		)
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return "", sleepErr
		}
	}

	return "", fmt.Errorf("gemini identify: failed after %d attempts: %w", attempts, lastErr)
}

type generateContentRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inline_data,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContentResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (c *Client) sendOnce(ctx context.Context, payload generateContentRequest) (string, error) {
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "v1beta", "models", c.cfg.Model+":generateContent")
	if err != nil {
		return "", fmt.Errorf("gemini request: build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("gemini request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return "", fmt.Errorf("gemini request: new request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("gemini request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return "", &StatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("gemini request: decode response: %w", err)
	}
	if decoded.Error != nil {
		return "", fmt.Errorf("gemini request: api error %s: %s", decoded.Error.Status, strings.TrimSpace(decoded.Error.Message))
	}

	var finishReason string
	for _, candidate := range decoded.Candidates {
		if finishReason == "" {
			finishReason = strings.TrimSpace(candidate.FinishReason)
		}
		var builder strings.Builder
		for _, p := range candidate.Content.Parts {
			builder.WriteString(p.Text)
		}
		if text := strings.TrimSpace(builder.String()); text != "" {
			return text, nil
		}
	}
	return "", &EmptyResponseError{FinishReason: finishReason}
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retry.MaxAttempts <= 0 {
		return 1
	}
	return c.retry.MaxAttempts
}

// retryDelay reports whether err is transient and how long to wait before
// the next attempt. Only transport-level failures qualify; content and
// application errors are permanent. The attempt budget is the caller's
// concern, not decided here.
func (c *Client) retryDelay(ctx context.Context, err error, attempt int) (time.Duration, bool) {
	if err == nil {
		return 0, false
	}
	if ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if media.IsContentError(err) {
		return 0, false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Connection refused/reset arrive as url.Error without the timeout
		// flag; they are still transport-level and worth retrying.
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retry.BaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := c.retry.MaxDelay

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if maxDelay > 0 && delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	if c.retry.MaxDelay > 0 && delay > c.retry.MaxDelay {
		return c.retry.MaxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
