package integration

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrInvalidIdentity is returned when user_id or org_id is empty.
	ErrInvalidIdentity = errors.New("user_id and org_id are required")
	// ErrInvalidCallback is returned when a callback carries neither an error nor both code and state.
	ErrInvalidCallback = errors.New("callback requires code and state")
	// ErrInvalidState is returned when the state parameter cannot be decoded.
	ErrInvalidState = errors.New("invalid state parameter")
	// ErrStateMismatch is returned when the stored flow is missing or its nonce differs.
	ErrStateMismatch = errors.New("state does not match")
	// ErrNotConnected is returned when no credentials are waiting for the pair.
	ErrNotConnected = errors.New("no credentials found")
	// ErrMissingToken is returned when credentials carry no access token.
	ErrMissingToken = errors.New("no access token provided")
	// ErrUnknownProvider is returned for provider names that are not registered.
	ErrUnknownProvider = errors.New("unknown provider")
)

// ExternalAuthError is an authorization error reported by the provider on the callback,
// for example when the user denies consent.
type ExternalAuthError struct {
	Code        string
	Description string
}

func (e *ExternalAuthError) Error() string {
	if e.Description == "" {
		return "authorization failed: " + e.Code
	}
	return fmt.Sprintf("authorization failed: %s: %s", e.Code, e.Description)
}

// TokenExchangeError is returned when the provider rejects the code exchange.
// StatusCode is zero when the token endpoint could not be reached.
type TokenExchangeError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TokenExchangeError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("token exchange failed with status %d: %s", e.StatusCode, e.Body)
}

func (e *TokenExchangeError) Unwrap() error {
	return e.Err
}

// ProviderAPIError is a non-2xx answer from a provider data endpoint.
type ProviderAPIError struct {
	Provider   string
	StatusCode int
	Message    string
}

func (e *ProviderAPIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("failed to fetch data from %s: %s", e.Provider, msg)
}
