// Package translate sends text to the DeepL translation API and drives the
// translation of whole documents, one string at a time.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Retry policy
// ---------------------------------------------------------------------------

// Retry defaults. A retryable failure on attempt n (starting at 1) waits
// min(BaseDelay * 2^(n-1), MaxDelay) before attempt n+1; after MaxRetries
// retries the failure is final.
const (
	MaxRetries = 3
	BaseDelay  = time.Second
	MaxDelay   = 10 * time.Second
)

// Endpoints. Keys of the free plan end in ":fx".
const (
	FreeBaseURL = "https://api-free.deepl.com"
	ProBaseURL  = "https://api.deepl.com"
)

// DefaultTimeout bounds a single HTTP request.
const DefaultTimeout = 30 * time.Second

// RetryPolicy holds the backoff parameters.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy returns the policy built from the package constants.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: MaxRetries, BaseDelay: BaseDelay, MaxDelay: MaxDelay}
}

// Delay returns the wait after a failed attempt.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	return min(d, p.MaxDelay)
}

// ---------------------------------------------------------------------------
// Client
// ---------------------------------------------------------------------------

// Client translates single strings through the DeepL v2 API.
type Client struct {
	apiKey  string
	baseURL string
	proxy   string
	timeout time.Duration
	http    *http.Client
	policy  RetryPolicy
	sleep   func(ctx context.Context, d time.Duration) error
	logf    func(format string, args ...any)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the endpoint chosen from the key.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient replaces the HTTP client. Proxy and timeout options are
// ignored when it is set.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithProxy routes requests through proxyURL instead of the proxy named by
// HTTP_PROXY/HTTPS_PROXY.
func WithProxy(proxyURL string) Option {
	return func(c *Client) { c.proxy = proxyURL }
}

// WithRetryPolicy replaces the default backoff parameters.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithSleep replaces the backoff wait, mainly for tests.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithLogger receives a line per retry.
func WithLogger(fn func(format string, args ...any)) Option {
	return func(c *Client) { c.logf = fn }
}

// NewClient returns a client for apiKey.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey:  apiKey,
		baseURL: BaseURLForKey(apiKey),
		timeout: DefaultTimeout,
		policy:  DefaultRetryPolicy(),
		sleep:   sleepContext,
	}
	for _, o := range opts {
		o(c)
	}
	if c.http == nil {
		c.http = makeHTTPClient(c.proxy, c.timeout)
	}
	return c
}

// BaseURLForKey picks the free or pro endpoint for a key.
func BaseURLForKey(apiKey string) string {
	if strings.HasSuffix(apiKey, ":fx") {
		return FreeBaseURL
	}
	return ProBaseURL
}

// BaseURL returns the endpoint the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	// Support both --proxy flag and HTTP_PROXY/HTTPS_PROXY env vars
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}

// Translate returns text translated from sourceLang to targetLang. An empty
// sourceLang lets the service detect the language. Rate limiting and
// transient network failures are retried with exponential backoff.
func (c *Client) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	for attempt := 1; ; attempt++ {
		out, err := c.do(ctx, text, sourceLang, targetLang)
		if err == nil {
			return out, nil
		}
		if !retryable(err) {
			return "", err
		}
		if attempt > c.policy.MaxRetries {
			return "", &RetryError{Attempts: attempt, Err: err}
		}
		wait := c.policy.Delay(attempt)
		if c.logf != nil {
			c.logf("%v, retrying in %v (attempt %d/%d)", err, wait, attempt, c.policy.MaxRetries)
		}
		if err := c.sleep(ctx, wait); err != nil {
			return "", err
		}
	}
}

type translateResponse struct {
	Translations []struct {
		DetectedSourceLanguage string `json:"detected_source_language"`
		Text                   string `json:"text"`
	} `json:"translations"`
}

// do performs a single request.
func (c *Client) do(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("target_lang", targetLang)
	if sourceLang != "" {
		form.Set("source_lang", sourceLang)
	}

	endpoint := c.baseURL + "/v2/translate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "DeepL-Auth-Key "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", classifyTransport(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", classifyTransport(err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return "", &RemoteError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tr translateResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(tr.Translations) == 0 {
		return "", ErrEmptyResult
	}
	return tr.Translations[0].Text, nil
}
