package auth

import (
	"net/http"
	"strings"
)

// TokenExtractor extracts a raw token from a request. It returns false when
// the request carries none.
type TokenExtractor func(r *http.Request) (string, bool)

// BearerToken reads "Authorization: Bearer <token>".
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// HeaderToken reads the token from a custom header.
func HeaderToken(name string) TokenExtractor {
	return func(r *http.Request) (string, bool) {
		token := strings.TrimSpace(r.Header.Get(name))
		return token, token != ""
	}
}

// CookieToken reads the token from a cookie.
func CookieToken(name string) TokenExtractor {
	return func(r *http.Request) (string, bool) {
		c, err := r.Cookie(name)
		if err != nil || c.Value == "" {
			return "", false
		}
		return c.Value, true
	}
}

// FirstOf tries extractors in order.
func FirstOf(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, bool) {
		for _, ex := range extractors {
			if token, ok := ex(r); ok {
				return token, true
			}
		}
		return "", false
	}
}
