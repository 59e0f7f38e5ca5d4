package auth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"

	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

// CallbackResult carries the authorization code and state delivered by
// the browser redirect.
type CallbackResult struct {
	Code  string
	State string
}

type callbackOutcome struct {
	result CallbackResult
	err    error
}

// CallbackServer is a single-shot loopback HTTP listener that receives
// the OAuth redirect. It services exactly one /callback request,
// delivers exactly one outcome, and releases its port on every
// terminal path. Stray requests to other paths get a 404 without
// terminating the wait.
type CallbackServer struct {
	server        *http.Server
	expectedState string

	once    sync.Once
	outcome chan callbackOutcome
}

// StartCallbackServer binds the IPv4 loopback address on the given
// port and begins serving. It returns only after the listener is
// accepting connections, so callers can safely open the browser
// afterwards.
func StartCallbackServer(port int, expectedState string) (*CallbackServer, error) {
	// Bind 127.0.0.1 explicitly rather than a hostname to avoid
	// ambiguous dual-stack binding.
	l, err := net.Listen("tcp4", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return nil, fmt.Errorf("binding callback listener: %w", err)
	}

	return serveCallbacks(l, expectedState), nil
}

// serveCallbacks starts serving on an already-bound listener.
// Split from StartCallbackServer so tests can use an ephemeral port.
func serveCallbacks(l net.Listener, expectedState string) *CallbackServer {
	s := &CallbackServer{
		expectedState: expectedState,
		outcome:       make(chan callbackOutcome, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", s.handleCallback)

	s.server = &http.Server{Handler: mux}

	go func() {
		if err := s.server.Serve(l); err != nil && err != http.ErrServerClosed {
			s.finish(CallbackResult{}, fmt.Errorf("callback server: %w", err))
		}
	}()

	return s
}

// Wait blocks until the redirect arrives or ctx is cancelled. The
// result is consumed exactly once. Cancellation closes the listener
// and returns the context's error.
func (s *CallbackServer) Wait(ctx context.Context) (CallbackResult, error) {
	select {
	case out := <-s.outcome:
		return out.result, out.err
	case <-ctx.Done():
		s.server.Close()
		return CallbackResult{}, ctx.Err()
	}
}

// handleCallback validates the redirect in order: provider error,
// missing parameters, state mismatch, success. Every branch renders a
// page for the browser and terminates the server.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if oauthErr := q.Get("error"); oauthErr != "" {
		desc := q.Get("error_description")
		renderErrorPage(w, oauthErr, desc)
		s.finish(CallbackResult{}, fmt.Errorf("%w: %s: %s", svcerrors.ErrOAuthDenied, oauthErr, desc))

		return
	}

	code := q.Get("code")
	state := q.Get("state")

	if code == "" || state == "" {
		renderInvalidPage(w)
		s.finish(CallbackResult{}, svcerrors.ErrInvalidCallback)

		return
	}

	// CSRF binding. Must short-circuit before any token exchange.
	if state != s.expectedState {
		renderSecurityPage(w)
		s.finish(CallbackResult{}, svcerrors.ErrStateMismatch)

		return
	}

	renderSuccessPage(w)
	s.finish(CallbackResult{Code: code, State: state}, nil)
}

// finish delivers the one-shot outcome and shuts the server down.
// Shutdown (rather than Close) lets the in-flight response reach the
// browser. The sync.Once guarantees the listener is closed exactly
// once and later requests cannot overwrite the result.
func (s *CallbackServer) finish(result CallbackResult, err error) {
	s.once.Do(func() {
		s.outcome <- callbackOutcome{result: result, err: err}

		go s.server.Shutdown(context.Background())
	})
}
