package apollo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/prospector/internal/resilience"
)

const defaultBaseURL = "https://api.apollo.io/api"

// Client performs search, match and enrich calls against the provider API.
type Client interface {
	SearchOrganizations(ctx context.Context, req CompanySearchRequest) (*CompanySearchResponse, error)
	SearchPeople(ctx context.Context, req PeopleSearchRequest) (*PeopleSearchResponse, error)
	MatchPerson(ctx context.Context, req MatchRequest, opts MatchOptions) (*MatchResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second request rate limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

// WithMaxRetries sets the attempt count for rate-limited calls.
func WithMaxRetries(n int) Option {
	return func(c *httpClient) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

type httpClient struct {
	apiKey     string
	baseURL    string
	http       *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

// NewClient creates a provider API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		limiter:    rate.NewLimiter(5, 5),
		maxRetries: 3,
		backoff:    time.Second,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) SearchOrganizations(ctx context.Context, req CompanySearchRequest) (*CompanySearchResponse, error) {
	var result CompanySearchResponse
	if err := c.post(ctx, "/v1/mixed_companies/search", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) SearchPeople(ctx context.Context, req PeopleSearchRequest) (*PeopleSearchResponse, error) {
	var result PeopleSearchResponse
	if err := c.post(ctx, "/v1/mixed_people/search", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *httpClient) MatchPerson(ctx context.Context, req MatchRequest, opts MatchOptions) (*MatchResponse, error) {
	q := url.Values{}
	q.Set("reveal_personal_emails", strconv.FormatBool(opts.RevealPersonalEmails))
	q.Set("reveal_phone_number", strconv.FormatBool(opts.RevealPhoneNumber))
	if opts.WebhookURL != "" {
		q.Set("webhook_url", opts.WebhookURL)
	}

	var result MatchResponse
	if err := c.post(ctx, "/v1/people/match", q, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// post issues a JSON POST. 429 responses are retried with linearly
// increasing delay; any other non-2xx status fails immediately.
func (c *httpClient) post(ctx context.Context, path string, query url.Values, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "apollo: marshal request")
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	retryCfg := resilience.RetryConfig{
		MaxAttempts:    c.maxRetries,
		InitialBackoff: c.backoff,
		Linear:         true,
		ShouldRetry:    resilience.IsRateLimited,
		OnRetry:        resilience.RetryLogger("apollo", path),
	}

	respBody, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]byte, error) {
		return c.doOnce(ctx, endpoint, payload)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return eris.Wrapf(err, "apollo: unmarshal response from %s", path)
	}
	return nil
}

func (c *httpClient) doOnce(ctx context.Context, endpoint string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "apollo: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "apollo: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "apollo: read response")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, resilience.NewTransientError(
			eris.Errorf("apollo: rate limited (429): %s", string(respBody)),
			resp.StatusCode,
		)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("apollo: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}
