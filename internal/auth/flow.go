package auth

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/pkg/browser"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/errgroup"

	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

// seven.io OAuth endpoints.
const (
	DefaultAuthorizeURL = "https://oauth.seven.io/authorize"
	DefaultTokenURL     = "https://oauth.seven.io/token"
	DefaultUserInfoURL  = "https://oauth.seven.io/me"
)

// defaultIdentity is the account name used when the user-info lookup
// fails. The lookup is best-effort and never fails the flow.
const defaultIdentity = "oauth-user"

// httpTimeout bounds individual token and user-info requests. The
// callback wait is governed by the caller's context instead.
const httpTimeout = 30 * time.Second

// Flow drives one end-to-end authorization code exchange with PKCE.
// PKCE parameters are generated fresh per Run and held only in memory
// for the duration of that call. Concurrent flows are not supported.
type Flow struct {
	clientID string
	scope    string
	store    *TokenStore
	logger   *slog.Logger

	httpClient   *http.Client
	authorizeURL string
	tokenURL     string
	userInfoURL  string

	// confirm blocks until the user approves opening a browser, so the
	// flow never silently pops a window unattended.
	confirm func() error

	// openBrowser navigates the user's default browser to the
	// authorize URL.
	openBrowser func(rawURL string) error
}

// NewFlow creates a flow for the given OAuth client against the
// production seven.io endpoints.
func NewFlow(clientID, scope string, store *TokenStore, logger *slog.Logger) *Flow {
	return &Flow{
		clientID:     clientID,
		scope:        scope,
		store:        store,
		logger:       logger,
		httpClient:   &http.Client{Timeout: httpTimeout},
		authorizeURL: DefaultAuthorizeURL,
		tokenURL:     DefaultTokenURL,
		userInfoURL:  DefaultUserInfoURL,
		confirm:      confirmOnStdin,
		openBrowser:  browser.OpenURL,
	}
}

// Run performs the complete flow: PKCE generation, callback server
// startup, user confirmation, browser navigation, callback wait, code
// exchange, best-effort identity lookup, and token persistence.
func (f *Flow) Run(ctx context.Context) (*Tokens, error) {
	verifier := GenerateCodeVerifier()
	challenge := GenerateCodeChallenge(verifier)
	state := GenerateState()

	port, err := FindAvailablePort()
	if err != nil {
		return nil, err
	}

	redirectURI := fmt.Sprintf("http://127.0.0.1:%d/callback", port)

	// The server must be accepting connections before the browser is
	// pointed at the authorize URL.
	srv, err := StartCallbackServer(port, state)
	if err != nil {
		return nil, err
	}

	f.logger.Info("waiting for authorization",
		slog.Int("port", port),
		slog.String("redirect_uri", redirectURI),
	)

	authURL := f.buildAuthorizeURL(challenge, state, redirectURI)

	var callback CallbackResult

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		res, err := srv.Wait(gctx)
		if err != nil {
			return err
		}

		callback = res

		return nil
	})

	g.Go(func() error {
		if err := f.confirm(); err != nil {
			return fmt.Errorf("login aborted: %w", err)
		}

		f.logger.Info("opening browser for authentication")

		if err := f.openBrowser(authURL); err != nil {
			return fmt.Errorf("opening browser: %w", err)
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	f.logger.Debug("authorization code received, exchanging for tokens")

	tokens, err := f.exchangeCode(ctx, callback.Code, verifier, redirectURI)
	if err != nil {
		return nil, err
	}

	identity := f.fetchIdentity(ctx, tokens.AccessToken)

	if err := f.store.Store(tokens, identity); err != nil {
		return nil, fmt.Errorf("persisting tokens: %w", err)
	}

	f.logger.Info("authenticated", slog.String("account", identity))

	return tokens, nil
}

// buildAuthorizeURL assembles the browser-facing authorization URL.
func (f *Flow) buildAuthorizeURL(challenge, state, redirectURI string) string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", f.clientID)
	q.Set("redirect_uri", redirectURI)
	q.Set("code_challenge", challenge)
	q.Set("code_challenge_method", "S256")
	q.Set("state", state)

	if f.scope != "" {
		q.Set("scope", f.scope)
	}

	return f.authorizeURL + "?" + q.Encode()
}

// exchangeCode trades the authorization code and verifier for tokens.
func (f *Flow) exchangeCode(ctx context.Context, code, verifier, redirectURI string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("client_id", f.clientID)
	form.Set("code", code)
	form.Set("redirect_uri", redirectURI)
	form.Set("code_verifier", verifier)

	tokens, err := requestTokens(ctx, f.httpClient, f.tokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("exchanging code for tokens: %w", err)
	}

	return tokens, nil
}

// fetchIdentity resolves the account name (email, falling back to
// user id) from the user-info endpoint. Any failure yields the
// default identity rather than failing the flow.
func (f *Flow) fetchIdentity(ctx context.Context, accessToken string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.userInfoURL, nil)
	if err != nil {
		return defaultIdentity
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		f.logger.Debug("user-info lookup failed", slog.String("error", err.Error()))
		return defaultIdentity
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		f.logger.Debug("user-info lookup failed", slog.Int("status", resp.StatusCode))
		return defaultIdentity
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return defaultIdentity
	}

	if email := gjson.GetBytes(body, "email").String(); email != "" {
		return email
	}

	if userID := gjson.GetBytes(body, "user_id").String(); userID != "" {
		return userID
	}

	return defaultIdentity
}

// confirmOnStdin blocks until the user presses ENTER. The prompt goes
// to stderr to keep stdout clean for the MCP transport.
func confirmOnStdin() error {
	fmt.Fprint(os.Stderr, "Press ENTER to open your browser for authentication...")

	reader := bufio.NewReader(os.Stdin)
	if _, err := reader.ReadString('\n'); err != nil {
		return err
	}

	return nil
}

// maxTokenResponseBytes caps token and user-info response reads.
const maxTokenResponseBytes = 1 << 20

// tokenResponse is the token endpoint's wire format. expires_in is
// relative; it is converted to an absolute timestamp at receipt.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	Scope        string `json:"scope,omitempty"`
}

// requestTokens POSTs a form-encoded grant to the token endpoint and
// converts the response into a Tokens value with an absolute expiry.
// Error responses are wrapped with status and body for diagnosability.
func requestTokens(ctx context.Context, client *http.Client, tokenURL string, form url.Values) (*Tokens, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: token endpoint returned %d: %s",
			svcerrors.ErrAPIRequest, resp.StatusCode, sanitizeBody(body))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("%w: decoding token response: %v", svcerrors.ErrAPIResponse, err)
	}

	return &Tokens{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    time.Now().Unix() + tr.ExpiresIn,
		TokenType:    tr.TokenType,
		Scope:        tr.Scope,
	}, nil
}
