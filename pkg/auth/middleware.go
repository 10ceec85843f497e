package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/storefront/pkg/isolation"
	"github.com/dmitrymomot/storefront/pkg/logger"
	"github.com/dmitrymomot/storefront/pkg/reqctx"
)

// OpAuthenticate is the operation name used when reporting a token issued for
// another tenant.
const OpAuthenticate = "authenticate"

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type middlewareConfig struct {
	extractor    TokenExtractor
	enforcer     *isolation.Enforcer
	logger       *slog.Logger
	errorHandler ErrorHandler
	required     bool
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

func WithExtractor(ex TokenExtractor) MiddlewareOption {
	return func(c *middlewareConfig) {
		if ex != nil {
			c.extractor = ex
		}
	}
}

// WithEnforcer routes tenant mismatches through the enforcer's violation
// audit and metric.
func WithEnforcer(e *isolation.Enforcer) MiddlewareOption {
	return func(c *middlewareConfig) { c.enforcer = e }
}

func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(c *middlewareConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithErrorHandler(h ErrorHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// Required rejects guests with 401.
func Required() MiddlewareOption {
	return func(c *middlewareConfig) { c.required = true }
}

// Middleware authenticates the principal of a tenant request. It must run
// after tenant resolution: the request context it derives from is taken from
// the request, and the token's tenant must equal the resolved tenant.
func Middleware(svc *Service, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		extractor:    BearerToken,
		logger:       slog.New(slog.NewTextHandler(io.Discard, nil)),
		errorHandler: defaultErrorHandler,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			rc, err := reqctx.FromContext(ctx)
			if err != nil {
				cfg.logger.ErrorContext(ctx, "auth: middleware used without request context", logger.Error(err))
				cfg.errorHandler(w, r, err)
				return
			}

			token, ok := cfg.extractor(r)
			if !ok {
				if cfg.required {
					cfg.errorHandler(w, r, ErrMissingToken)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := svc.Parse(token)
			if err != nil {
				cfg.logger.WarnContext(ctx, "auth: token rejected",
					logger.TenantID(rc.TenantID()),
					logger.Error(err),
				)
				cfg.errorHandler(w, r, err)
				return
			}

			if !claims.IsSystem() && claims.TenantID != rc.TenantID() {
				if cfg.enforcer != nil {
					err = errors.Join(ErrTenantMismatch,
						cfg.enforcer.ReportViolation(ctx, rc, OpAuthenticate, claims.TenantID))
				} else {
					err = ErrTenantMismatch
				}
				cfg.logger.WarnContext(ctx, "auth: token issued for another tenant",
					logger.TenantID(rc.TenantID()),
					logger.AttemptedTenantID(claims.TenantID),
					logger.PrincipalID(claims.Subject),
				)
				cfg.errorHandler(w, r, err)
				return
			}
			if claims.IsSystem() {
				cfg.logger.WarnContext(ctx, "auth: system credential used on tenant request",
					logger.TenantID(rc.TenantID()),
					logger.PrincipalID(claims.Subject),
				)
			}

			rc = rc.WithPrincipal(claims.Subject, claims.Roles...)
			ctx = WithClaims(reqctx.Attach(ctx, rc), claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StatusCode maps authentication errors to HTTP status codes.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrTenantMismatch), errors.Is(err, ErrNotSystemCredential):
		return http.StatusForbidden
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrMissingSubject):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusCode(err)
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="storefront"`)
	}
	http.Error(w, http.StatusText(code), code)
}
