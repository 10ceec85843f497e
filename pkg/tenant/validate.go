package tenant

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	// MaxRoutingKeyLength keeps routing keys usable as a single DNS label.
	MaxRoutingKeyLength = 63
	// MaxDomainLength is the maximum length of a fully qualified host name.
	MaxDomainLength = 253
)

var (
	// routingKeyPattern: lowercase alphanumeric and hyphen, no leading or trailing hyphen.
	routingKeyPattern = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
	labelPattern      = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]*[a-z0-9])?$`)
)

// ValidRoutingKey reports whether key is safe to pass to the registry.
// The key must already be lower case.
func ValidRoutingKey(key string) bool {
	if key == "" || len(key) > MaxRoutingKeyLength {
		return false
	}
	return routingKeyPattern.MatchString(key)
}

// ValidDomain reports whether host is a syntactically valid lower case domain
// with at least two labels.
func ValidDomain(host string) bool {
	if host == "" || len(host) > MaxDomainLength {
		return false
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if len(l) > MaxRoutingKeyLength || !labelPattern.MatchString(l) {
			return false
		}
	}
	return true
}

// Validate checks a tenant record before it is written by the provisioning flow.
func Validate(t *Tenant) error {
	if t == nil {
		return fmt.Errorf("%w: nil tenant", ErrInvalidTenant)
	}
	if t.ID == "" || strings.ContainsAny(t.ID, ": \t\r\n") {
		return fmt.Errorf("%w: id %q", ErrInvalidTenant, t.ID)
	}
	if !ValidRoutingKey(NormalizeKey(t.RoutingKey)) {
		return fmt.Errorf("%w: routing key %q", ErrInvalidTenant, t.RoutingKey)
	}
	if t.CustomDomain != "" && !ValidDomain(NormalizeKey(t.CustomDomain)) {
		return fmt.Errorf("%w: custom domain %q", ErrInvalidTenant, t.CustomDomain)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalidTenant, t.Status)
	}
	return nil
}
