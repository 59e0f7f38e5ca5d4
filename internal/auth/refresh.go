package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"

	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

// Refresher determines token freshness and transparently refreshes
// expired or near-expiry tokens. It is the single choke point every
// OAuth-authenticated request passes through.
//
// Refresh is read, network call, then unconditional overwrite: two
// overlapping refreshes race and the later write wins. Accepted
// limitation, callers do not get read-then-write atomicity.
type Refresher struct {
	clientID   string
	store      *TokenStore
	httpClient *http.Client
	tokenURL   string
	logger     *slog.Logger
}

// NewRefresher creates a refresh service for the given OAuth client
// against the production token endpoint.
func NewRefresher(clientID string, store *TokenStore, logger *slog.Logger) *Refresher {
	return &Refresher{
		clientID:   clientID,
		store:      store,
		httpClient: &http.Client{Timeout: httpTimeout},
		tokenURL:   DefaultTokenURL,
		logger:     logger,
	}
}

// Refresh exchanges a refresh token for a new token set, persists it
// (keeping the current-account pointer), and returns it. Failures are
// never retried here; retry policy belongs to the caller.
func (r *Refresher) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", r.clientID)
	form.Set("refresh_token", refreshToken)

	tokens, err := requestTokens(ctx, r.httpClient, r.tokenURL, form)
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}

	// Overwrite the record for whichever identity is current. The
	// current-account pointer keeps its value.
	if err := r.store.Store(tokens, r.store.CurrentAccount()); err != nil {
		return nil, fmt.Errorf("persisting refreshed tokens: %w", err)
	}

	r.logger.Debug("access token refreshed")

	return tokens, nil
}

// ValidAccessToken returns an access token that is safe to use now:
// the stored one when still fresh, or a newly refreshed one when
// expired per the buffered check.
func (r *Refresher) ValidAccessToken(ctx context.Context) (string, error) {
	tokens, err := r.store.Get("")
	if err != nil {
		return "", err
	}

	if tokens == nil {
		return "", svcerrors.ErrNotAuthenticated
	}

	if tokens.Expired(DefaultExpiryBuffer) {
		tokens, err = r.Refresh(ctx, tokens.RefreshToken)
		if err != nil {
			return "", err
		}
	}

	return tokens.AccessToken, nil
}
