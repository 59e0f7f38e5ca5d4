package errors

import "errors"

// Authentication errors.
var (
	ErrNotAuthenticated = errors.New(`not authenticated, run "seven-mcp login"`)
	ErrNoAuthMethod     = errors.New(`no authentication method available, set SEVEN_API_KEY or run "seven-mcp login"`)
)

// OAuth protocol errors. A state mismatch is treated as a security
// event: it always fails the in-progress flow and is never retried.
var (
	ErrStateMismatch   = errors.New("state mismatch - possible CSRF attack")
	ErrOAuthDenied     = errors.New("authorization server returned an error")
	ErrInvalidCallback = errors.New("missing code or state parameter")
)

// Environment errors.
var (
	ErrNoPortAvailable    = errors.New("no available callback port")
	ErrStorageUnavailable = errors.New("credential storage unavailable")
)

// Transport errors.
var (
	ErrAPIRequest  = errors.New("API request failed")
	ErrAPIResponse = errors.New("unexpected API response")
)
