package auth

import "errors"

var (
	ErrMissingSigningKey = errors.New("auth: missing signing key")
	ErrMissingToken      = errors.New("auth: missing bearer token")
	ErrInvalidToken      = errors.New("auth: invalid token")
	ErrExpiredToken      = errors.New("auth: token is expired")
	ErrMissingSubject    = errors.New("auth: token has no subject")

	// ErrTenantMismatch is returned when a principal token was issued for a
	// tenant other than the one the request resolved to.
	ErrTenantMismatch = errors.New("auth: token issued for another tenant")

	// ErrNotSystemCredential is returned when an operator endpoint or the
	// tenant override header is used without a system credential.
	ErrNotSystemCredential = errors.New("auth: system credential required")
)
