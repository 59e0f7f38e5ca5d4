// Package client implements the authenticated HTTP client for the
// seven.io REST gateway. Every outbound request passes through a
// request-time authentication decision: OAuth bearer token when
// available, static API key as fallback.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/seven-io/seven-mcp/internal/auth"
	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

const (
	// DefaultBaseURL is the seven.io REST gateway.
	DefaultBaseURL = "https://gateway.seven.io/api"

	// maxRedirects is the maximum number of HTTP redirects to follow
	// before giving up, matching the default net/http limit.
	maxRedirects = 10

	// httpClientTimeout is the timeout for the default HTTP client
	// used when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory.
	maxAPIResponseBytes = 1024 * 1024
)

// apiKeyHeader carries the static API key on requests that do not use
// OAuth.
const apiKeyHeader = "X-Api-Key"

// Config holds the authentication material the client decides between
// per request.
type Config struct {
	BaseURL  string
	APIKey   string
	ClientID string
}

// TokenSource yields an access token that is valid right now,
// refreshing behind the scenes when needed. *auth.Refresher is the
// production implementation.
type TokenSource interface {
	ValidAccessToken(ctx context.Context) (string, error)
}

// Client talks to the seven.io REST gateway.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	clientID   string
	store      *auth.TokenStore
	tokens     TokenSource
	logger     *slog.Logger
}

// sameHostRedirectPolicy follows redirects only when the target host
// matches the original request host. This prevents the API key or
// bearer token from leaking to third-party domains.
func sameHostRedirectPolicy(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return errors.New("stopped after 10 redirects")
	}

	if len(via) > 0 {
		origHost := via[0].URL.Host
		if req.URL.Host != origHost {
			return fmt.Errorf("redirect to different host blocked: %s -> %s", origHost, req.URL.Host)
		}
	}

	return nil
}

// New creates a gateway client. If httpClient is nil, a client with a
// 30-second timeout and same-host redirect policy is created.
func New(cfg Config, store *auth.TokenStore, tokens TokenSource, logger *slog.Logger, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:       httpClientTimeout,
			CheckRedirect: sameHostRedirectPolicy,
		}
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		clientID:   cfg.ClientID,
		store:      store,
		tokens:     tokens,
		logger:     logger,
	}
}

// authenticate sets exactly one authentication header on req, decided
// from current state: OAuth when a client ID is configured and stored
// tokens exist (failures fall through silently so the API key can
// serve), else the static API key. No method at all is a configuration
// error and fails the request before it is sent.
func (c *Client) authenticate(ctx context.Context, req *http.Request) error {
	if c.clientID != "" && c.store != nil {
		if tokens, err := c.store.Get(""); err == nil && tokens != nil {
			accessToken, err := c.tokens.ValidAccessToken(ctx)
			if err == nil {
				req.Header.Set("Authorization", "Bearer "+accessToken)
				return nil
			}

			c.logger.Debug("OAuth token unavailable, falling back to API key",
				slog.String("error", err.Error()))
		}
	}

	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
		return nil
	}

	return svcerrors.ErrNoAuthMethod
}

// Get performs a GET request with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodGet, path, query, nil, false)
}

// Post performs a POST request. payload is JSON-encoded unless form is
// true, in which case it is form-encoded with bracket notation for
// slices.
func (c *Client) Post(ctx context.Context, path string, payload map[string]any, form bool) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, path, nil, payload, form)
}

// Patch performs a PATCH request with the same body semantics as Post.
func (c *Client) Patch(ctx context.Context, path string, payload map[string]any, form bool) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPatch, path, nil, payload, form)
}

// Delete performs a DELETE request with optional query parameters.
func (c *Client) Delete(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, http.MethodDelete, path, query, nil, false)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload map[string]any, form bool) (json.RawMessage, error) {
	rawURL := c.baseURL + path
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}

		rawURL += sep + query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)

	if payload != nil {
		if form {
			body = strings.NewReader(encodeForm(payload))
			contentType = "application/x-www-form-urlencoded"
		} else {
			data, err := json.Marshal(payload)
			if err != nil {
				return nil, fmt.Errorf("encoding request body: %w", err)
			}

			body = strings.NewReader(string(data))
			contentType = "application/json"
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	req.Header.Set("Accept", "application/json")

	if err := c.authenticate(ctx, req); err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %s: %v", svcerrors.ErrAPIRequest, method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", svcerrors.ErrAPIResponse, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s %s returned %d: %s",
			svcerrors.ErrAPIRequest, method, path, resp.StatusCode, sanitizeResponseBody(respBody))
	}

	return respBody, nil
}

// encodeForm form-encodes a payload. Slice values are appended with
// bracket notation (key[]=a&key[]=b), matching the gateway's PHP-style
// array convention. Nil values are skipped. Keys are sorted so output
// is deterministic.
func encodeForm(payload map[string]any) string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	params := url.Values{}

	for _, k := range keys {
		switch v := payload[k].(type) {
		case nil:
		case []string:
			for _, item := range v {
				params.Add(k+"[]", item)
			}
		case []any:
			for _, item := range v {
				params.Add(k+"[]", fmt.Sprint(item))
			}
		case bool:
			if v {
				params.Add(k, "1")
			} else {
				params.Add(k, "0")
			}
		default:
			params.Add(k, fmt.Sprint(v))
		}
	}

	return params.Encode()
}

// sanitizeResponseBody truncates and sanitizes a response body for
// inclusion in error messages. Limits to 256 bytes and replaces
// non-printable characters to prevent log injection.
func sanitizeResponseBody(body []byte) string {
	const maxLen = 256
	if len(body) > maxLen {
		body = body[:maxLen]
	}

	var clean []byte

	for len(body) > 0 {
		r, size := utf8.DecodeRune(body)
		if r == utf8.RuneError && size <= 1 {
			clean = append(clean, '?')
			body = body[1:]

			continue
		}

		if r < 0x20 && r != '\n' && r != '\r' && r != '\t' {
			clean = append(clean, '?')
		} else {
			clean = append(clean, body[:size]...)
		}

		body = body[size:]
	}

	return string(clean)
}
