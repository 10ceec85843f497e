package core

import (
	"context"
	"errors"
	"net/http"

	"github.com/dmitrymomot/storefront/pkg/auth"
	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
	"github.com/dmitrymomot/storefront/pkg/tenant"
)

// HTTPError is a status code with a stable machine-readable key.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string {
	return e.Key
}

var (
	ErrBadRequest            = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized          = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden             = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound              = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrConflict              = HTTPError{Code: http.StatusConflict, Key: "conflict"}
	ErrRequestEntityTooLarge = HTTPError{Code: http.StatusRequestEntityTooLarge, Key: "request_entity_too_large"}
	ErrUnsupportedMediaType  = HTTPError{Code: http.StatusUnsupportedMediaType, Key: "unsupported_media_type"}
	ErrUnprocessableEntity   = HTTPError{Code: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrInternalServerError   = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
	ErrServiceUnavailable    = HTTPError{Code: http.StatusServiceUnavailable, Key: "service_unavailable"}
	ErrGatewayTimeout        = HTTPError{Code: http.StatusGatewayTimeout, Key: "gateway_timeout"}

	ErrTenantNotFound  = HTTPError{Code: http.StatusNotFound, Key: "tenant_not_found"}
	ErrTenantSuspended = HTTPError{Code: http.StatusForbidden, Key: "tenant_suspended"}
)

// ErrorFor maps an error from any storefront package to the response the
// client sees. Details of isolation failures stay server-side: a by-id read
// of another tenant's record looks like any other missing record.
func ErrorFor(err error) HTTPError {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, tenant.ErrTenantSuspended):
		return ErrTenantSuspended
	case errors.Is(err, tenant.ErrNoTenant),
		errors.Is(err, tenant.ErrTenantNotResolved),
		errors.Is(err, tenant.ErrTenantNotFound):
		return ErrTenantNotFound
	case errors.Is(err, tenant.ErrInvalidTenant):
		return ErrUnprocessableEntity
	case errors.Is(err, tenant.ErrDuplicateKey):
		return ErrConflict
	case errors.Is(err, isolation.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, isolation.ErrCrossTenantViolation):
		return ErrForbidden
	case errors.Is(err, isolation.ErrConflict):
		return ErrConflict
	case errors.Is(err, context.DeadlineExceeded):
		return ErrGatewayTimeout
	case errors.Is(err, reqctx.ErrCancelled):
		return ErrServiceUnavailable
	case errors.Is(err, auth.ErrTenantMismatch), errors.Is(err, auth.ErrNotSystemCredential):
		return ErrForbidden
	case errors.Is(err, auth.ErrMissingToken),
		errors.Is(err, auth.ErrInvalidToken),
		errors.Is(err, auth.ErrExpiredToken),
		errors.Is(err, auth.ErrMissingSubject):
		return ErrUnauthorized
	default:
		return ErrInternalServerError
	}
}
