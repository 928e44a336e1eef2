package router

import (
	"errors"
	"net/http"

	"github.com/go-training/integration-relay/pkg/core"
	"github.com/go-training/integration-relay/pkg/integration"

	"github.com/gin-gonic/gin"
)

var (
	errInvalidCredentials = errors.New("credentials must be a JSON object")
	errInvalidLimit       = errors.New("limit must be an integer")
)

// statusFor maps adapter errors to HTTP status codes.
func statusFor(err error) int {
	var (
		authErr     *integration.ExternalAuthError
		exchangeErr *integration.TokenExchangeError
		apiErr      *integration.ProviderAPIError
	)

	switch {
	case errors.Is(err, integration.ErrUnknownProvider):
		return http.StatusNotFound
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 400 && apiErr.StatusCode <= 599 {
			return apiErr.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &authErr),
		errors.As(err, &exchangeErr),
		errors.Is(err, integration.ErrInvalidIdentity),
		errors.Is(err, integration.ErrInvalidCallback),
		errors.Is(err, integration.ErrInvalidState),
		errors.Is(err, integration.ErrStateMismatch),
		errors.Is(err, integration.ErrNotConnected),
		errors.Is(err, integration.ErrMissingToken),
		errors.Is(err, errInvalidCredentials),
		errors.Is(err, errInvalidLimit):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes {"detail": ...}. Internal failures are logged and
// answered with a generic message.
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)

	detail := err.Error()
	if status == http.StatusInternalServerError {
		core.LoggerFromCtx(c.Request.Context()).Error("request failed", "error", err)
		detail = http.StatusText(status)
	}
	c.AbortWithStatusJSON(status, gin.H{"detail": detail})
}
