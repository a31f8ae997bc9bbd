package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidCredentials = errors.New("invalid reddit credentials")

// Credentials are fixed for the life of a client.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

func (c Credentials) Validate() error {
	switch {
	case c.ClientID == "":
		return fmt.Errorf("%w: client id is required", ErrInvalidCredentials)
	case c.ClientSecret == "":
		return fmt.Errorf("%w: client secret is required", ErrInvalidCredentials)
	case strings.TrimSpace(c.UserAgent) == "":
		return fmt.Errorf("%w: user agent is required", ErrInvalidCredentials)
	case strings.ContainsAny(c.ClientID, " \t\r\n"):
		return fmt.Errorf("%w: client id contains whitespace", ErrInvalidCredentials)
	case strings.ContainsAny(c.ClientSecret, " \t\r\n"):
		return fmt.Errorf("%w: client secret contains whitespace", ErrInvalidCredentials)
	}
	return nil
}

// Options carries the collaborators a RedditClient is built from. Zero values
// select the production defaults.
type Options struct {
	AuthURL     string
	APIURL      string
	HTTPClient  *http.Client
	Clock       Clock
	Ledger      Ledger
	TokenCache  TokenCache
	MinInterval time.Duration
	TokenMargin time.Duration
}

type RedditClient struct {
	creds      Credentials
	apiURL     string
	httpClient *http.Client
	tokens     *TokenManager
	governor   *RateGovernor
	clock      Clock
}

func NewRedditClient(creds Credentials, opts Options) (*RedditClient, error) {
	if err := creds.Validate(); err != nil {
		return nil, err
	}

	if opts.AuthURL == "" {
		opts.AuthURL = REDDIT_AUTH_URL
	}
	if opts.APIURL == "" {
		opts.APIURL = REDDIT_API_URL
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = DEFAULT_MIN_INTERVAL
	}
	if opts.TokenMargin <= 0 {
		opts.TokenMargin = DEFAULT_TOKEN_MARGIN
	}

	httpClient := withUserAgent(opts.HTTPClient, creds.UserAgent)

	rc := &RedditClient{
		creds:      creds,
		apiURL:     strings.TrimSuffix(opts.APIURL, "/"),
		httpClient: httpClient,
		tokens:     NewTokenManager(creds, opts.AuthURL, httpClient, opts.TokenCache, opts.Clock, opts.TokenMargin),
		governor:   NewRateGovernor(opts.Ledger, opts.Clock, opts.MinInterval),
		clock:      opts.Clock,
	}

	slog.Info("[RedditClient] Reddit API client initialized",
		slog.String("api_url", rc.apiURL),
		slog.Duration("min_interval", opts.MinInterval))
	return rc, nil
}

// userAgentTransport makes sure the token exchange, which goes through the
// oauth2 package, carries the same User-Agent as API calls. Reddit throttles
// generic agents.
type userAgentTransport struct {
	base      http.RoundTripper
	userAgent string
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("User-Agent", t.userAgent)
	return t.base.RoundTrip(r)
}

func withUserAgent(base *http.Client, userAgent string) *http.Client {
	var hc http.Client
	if base != nil {
		hc = *base
	} else {
		hc.Timeout = DEFAULT_HTTP_TIMEOUT
	}
	rt := hc.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	hc.Transport = &userAgentTransport{base: rt, userAgent: userAgent}
	return &hc
}

type apiRequest struct {
	method      string
	path        string
	query       url.Values
	form        url.Values
	contentType string
}

// call issues one authenticated request and decodes the JSON body into out.
// Every failure leaves as a *RedditError.
func (rc *RedditClient) call(ctx context.Context, req apiRequest, out any) error {
	tok, err := rc.tokens.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := rc.apiURL + req.path
	if len(req.query) > 0 {
		endpoint += "?" + req.query.Encode()
	}

	var body io.Reader
	if req.form != nil {
		body = strings.NewReader(req.form.Encode())
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, endpoint, body)
	if err != nil {
		return newError(KindInternalError, 0, err, "failed to build request")
	}

	contentType := req.contentType
	if contentType == "" {
		contentType = "application/json"
	}
	httpReq.Header.Set("Authorization", "Bearer "+tok.Value)
	httpReq.Header.Set("User-Agent", rc.creds.UserAgent)
	httpReq.Header.Set("Content-Type", contentType)
	httpReq.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := rc.httpClient.Do(httpReq)
	if err != nil {
		slog.Error("[RedditClient] Request failed before a response was received",
			slog.String("path", req.path),
			slog.String("error", err.Error()))
		return newError(KindNetworkError, 0, err, "request to %s failed", req.path)
	}
	defer resp.Body.Close()

	slog.Debug("[RedditClient] Response received",
		slog.String("path", req.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("elapsed", time.Since(start)))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, resp.Body)
		return rc.upstreamRateLimited(resp)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		if resp.StatusCode == http.StatusUnauthorized {
			slog.Warn("[RedditClient] Token rejected, dropping cached token")
			rc.tokens.Invalidate(ctx)
		}
		return upstreamError(req.path, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return newError(KindNetworkError, resp.StatusCode, err, "failed to read response from %s", req.path)
	}

	if err := json.Unmarshal(data, out); err != nil {
		slog.Error("[RedditClient] Failed to unmarshal response",
			slog.String("path", req.path),
			slog.String("error", err.Error()),
			getPreview(data))
		return newError(KindMalformedResponse, resp.StatusCode, err, "response from %s is not valid JSON", req.path)
	}
	return nil
}

func (rc *RedditClient) upstreamRateLimited(resp *http.Response) *RedditError {
	wait, ok := retryAfter(resp.Header, rc.clock.Now())

	msg := "reddit rate limit exceeded"
	if ok {
		msg = fmt.Sprintf("reddit rate limit exceeded, retry after %s", wait)
	}
	slog.Warn("[RedditClient] 429 Too Many Requests", slog.Duration("retry_after", wait))

	rerr := newError(KindUpstreamRateLimited, resp.StatusCode, nil, "%s", msg)
	rerr.RetryAfter = wait
	return rerr
}

func upstreamError(path string, resp *http.Response) *RedditError {
	// Best effort; a body that cannot be read is simply left out.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	text := strings.TrimSpace(string(raw))

	slog.Error("[RedditClient] Upstream error",
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		getPreview(raw))

	if text == "" {
		return newError(KindUpstreamError, resp.StatusCode, nil, "reddit returned %s", resp.Status)
	}
	return newError(KindUpstreamError, resp.StatusCode, nil, "reddit returned %s: %s", resp.Status, text)
}

// retryAfter reads Retry-After (seconds or HTTP date), then reddit's own
// X-Ratelimit-Reset.
func retryAfter(h http.Header, now time.Time) (time.Duration, bool) {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second)), true
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := at.Sub(now); d > 0 {
				return d, true
			}
			return 0, true
		}
	}
	if v := strings.TrimSpace(h.Get("X-Ratelimit-Reset")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
			return time.Duration(secs * float64(time.Second)), true
		}
	}
	return 0, false
}

func getPreview(respBody []byte) slog.Attr {
	raw := string(respBody)
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return slog.String("raw_response", raw)
}
