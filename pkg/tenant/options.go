package tenant

import (
	"errors"
	"log/slog"
	"net/http"
)

// ErrorHandler handles errors that occur during tenant resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// config holds middleware configuration.
type config struct {
	errorHandler ErrorHandler
	skipPaths    []string
	logger       *slog.Logger
}

// Option configures the middleware.
type Option func(*config)

// WithErrorHandler sets a custom error handler.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(c *config) {
		if handler != nil {
			c.errorHandler = handler
		}
	}
}

// WithSkipPaths sets paths that should skip tenant resolution.
func WithSkipPaths(paths ...string) Option {
	return func(c *config) {
		c.skipPaths = append(c.skipPaths, paths...)
	}
}

// WithLogger sets a custom logger for the middleware.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// StatusCode maps resolution errors to HTTP status codes. Unknown tenants,
// malformed keys and an unreachable registry all look the same to clients.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrTenantSuspended):
		return http.StatusForbidden
	case errors.Is(err, ErrNoTenant),
		errors.Is(err, ErrTenantNotResolved),
		errors.Is(err, ErrTenantNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	switch code := StatusCode(err); code {
	case http.StatusForbidden:
		http.Error(w, "Tenant is suspended", code)
	case http.StatusNotFound:
		http.Error(w, "Not found", code)
	default:
		http.Error(w, "Internal server error", code)
	}
}
