package reqctx

import (
	"context"
	"net/http"
	"time"
)

// Timeout bounds the lifetime of a request's processing graph. Every step that
// calls Checkpoint observes the deadline and stops scheduling new work.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if d <= 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Require rejects requests that reach a handler without a request context.
// Reaching it means a route was mounted outside the tenant middleware.
func Require(onMissing func(w http.ResponseWriter, r *http.Request, err error)) func(http.Handler) http.Handler {
	if onMissing == nil {
		onMissing = func(w http.ResponseWriter, r *http.Request, err error) {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, err := FromContext(r.Context()); err != nil {
				onMissing(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
