package tenant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

// Strategy extracts a candidate routing key from the request.
// Returns empty string when the request carries no tenant at all, and an
// error wrapping ErrInvalidRoutingKey when the candidate fails the syntax check.
type Strategy func(r *http.Request) (string, error)

// SubdomainStrategy resolves "acme" from "acme.shop.com" when baseDomain is
// "shop.com". Hosts outside the base domain are treated as custom domains.
// The bare base domain (optionally with "www.") yields no tenant.
func SubdomainStrategy(baseDomain string) Strategy {
	base := NormalizeKey(strings.TrimPrefix(baseDomain, "."))

	return func(req *http.Request) (string, error) {
		host := NormalizeKey(hostOnly(req.Host))
		if host == "" || net.ParseIP(host) != nil || host == "localhost" {
			return "", nil
		}

		if base == "" {
			// Without a base domain only subdomain.domain.tld hosts carry a tenant.
			parts := strings.Split(strings.TrimPrefix(host, "www."), ".")
			if len(parts) < 3 {
				return "", nil
			}
			return checkRoutingKey(parts[0], "subdomain")
		}

		if host == base || host == "www."+base {
			return "", nil
		}
		if sub, ok := strings.CutSuffix(host, "."+base); ok {
			sub = strings.TrimPrefix(sub, "www.")
			return checkRoutingKey(sub, "subdomain")
		}

		if !ValidDomain(host) {
			return "", fmt.Errorf("%w: host %q", ErrInvalidRoutingKey, host)
		}
		return host, nil
	}
}

// PathStrategy resolves the tenant from the first path segment: "/acme/products".
func PathStrategy() Strategy {
	return func(req *http.Request) (string, error) {
		path := strings.Trim(req.URL.Path, "/")
		if path == "" {
			return "", nil
		}
		segment, _, _ := strings.Cut(path, "/")
		return checkRoutingKey(NormalizeKey(segment), "path segment")
	}
}

// StrategyByName returns the configured strategy: "subdomain" or "path".
func StrategyByName(name, baseDomain string) (Strategy, error) {
	switch strings.ToLower(name) {
	case "", "subdomain":
		return SubdomainStrategy(baseDomain), nil
	case "path":
		return PathStrategy(), nil
	default:
		return nil, fmt.Errorf("unknown tenant resolution strategy %q", name)
	}
}

func checkRoutingKey(key, source string) (string, error) {
	if !ValidRoutingKey(key) {
		return "", fmt.Errorf("%w: %s %q", ErrInvalidRoutingKey, source, truncate(key))
	}
	return key, nil
}

func hostOnly(hostport string) string {
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return host
	}
	return strings.Trim(hostport, "[]")
}

// truncate keeps hostile keys from flooding the logs.
func truncate(s string) string {
	if len(s) > MaxRoutingKeyLength+1 {
		return s[:MaxRoutingKeyLength] + "…"
	}
	return s
}

// Outcome classifies the result of resolving a request.
type Outcome int

const (
	OutcomeResolved Outcome = iota + 1
	// OutcomeNoTenant: the request names no tenant (bare apex domain).
	OutcomeNoTenant
	// OutcomeNotResolved: the request names a tenant that does not exist or is malformed.
	OutcomeNotResolved
	// OutcomeSuspended: the tenant exists but is not active.
	OutcomeSuspended
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResolved:
		return "resolved"
	case OutcomeNoTenant:
		return "no_tenant"
	case OutcomeNotResolved:
		return "not_resolved"
	case OutcomeSuspended:
		return "suspended"
	default:
		return "unknown"
	}
}

// Resolution is the verified result of tenant resolution.
type Resolution struct {
	Outcome    Outcome
	TenantID   string
	RoutingKey string
	// Override is set when the tenant came from the override header.
	Override bool
}

// Lookup is the registry view the resolver depends on.
type Lookup interface {
	Resolve(ctx context.Context, routingKey string) (*Tenant, error)
}

// OverrideVerifier checks that a request is allowed to use the override header.
type OverrideVerifier func(r *http.Request) error

// Resolver turns request metadata into a verified tenant id. It has no side
// effects beyond registry cache reads.
type Resolver struct {
	lookup         Lookup
	strategy       Strategy
	overrideHeader string
	verifyOverride OverrideVerifier
	logger         *slog.Logger
}

// ResolverOption configures the resolver.
type ResolverOption func(*Resolver)

// WithOverride honors header as an explicit routing key, but only for requests
// that pass verify. Every use is logged.
func WithOverride(header string, verify OverrideVerifier) ResolverOption {
	return func(r *Resolver) {
		r.overrideHeader = header
		r.verifyOverride = verify
	}
}

// WithResolverLogger sets a custom logger for the resolver.
func WithResolverLogger(logger *slog.Logger) ResolverOption {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewResolver creates a resolver with exactly one active strategy.
func NewResolver(lookup Lookup, strategy Strategy, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		lookup:   lookup,
		strategy: strategy,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns a Resolution for every outcome. The error is nil only for
// OutcomeResolved and otherwise matches ErrNoTenant, ErrTenantNotResolved or
// ErrTenantSuspended.
func (r *Resolver) Resolve(req *http.Request) (Resolution, error) {
	ctx := req.Context()

	key, override, err := r.candidate(req)
	if err != nil {
		return Resolution{Outcome: OutcomeNotResolved}, errors.Join(ErrTenantNotResolved, err)
	}
	if key == "" {
		return Resolution{Outcome: OutcomeNoTenant}, ErrNoTenant
	}

	res := Resolution{RoutingKey: key, Override: override}
	t, err := r.lookup.Resolve(ctx, key)
	if err != nil {
		res.Outcome = OutcomeNotResolved
		return res, errors.Join(ErrTenantNotResolved, err)
	}
	res.TenantID = t.ID
	if !t.IsActive() {
		res.Outcome = OutcomeSuspended
		return res, ErrTenantSuspended
	}
	res.Outcome = OutcomeResolved
	return res, nil
}

func (r *Resolver) candidate(req *http.Request) (key string, override bool, err error) {
	if r.overrideHeader != "" {
		if raw := req.Header.Get(r.overrideHeader); raw != "" {
			if key, ok := r.override(req, raw); ok {
				return key, true, nil
			}
		}
	}
	key, err = r.strategy(req)
	return key, false, err
}

func (r *Resolver) override(req *http.Request, raw string) (string, bool) {
	ctx := req.Context()
	if r.verifyOverride == nil {
		r.logger.WarnContext(ctx, "tenant override header ignored: no verifier configured")
		return "", false
	}
	if err := r.verifyOverride(req); err != nil {
		r.logger.WarnContext(ctx, "tenant override header ignored: missing system credential",
			slog.String("header", r.overrideHeader),
			slog.Any("error", errors.Join(ErrOverrideRejected, err)),
		)
		return "", false
	}
	key := NormalizeKey(raw)
	if !ValidRoutingKey(key) && !ValidDomain(key) {
		r.logger.WarnContext(ctx, "tenant override header ignored: malformed key",
			slog.String("header", r.overrideHeader),
		)
		return "", false
	}
	r.logger.WarnContext(ctx, "tenant override header used",
		slog.String("header", r.overrideHeader),
		slog.String("routing_key", key),
		slog.String("remote_addr", req.RemoteAddr),
	)
	return key, true
}
