package core

import (
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// ValidationError collects field errors of a request payload.
type ValidationError url.Values

func NewValidationError() ValidationError {
	return make(ValidationError)
}

func (e ValidationError) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	slices.Sort(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, e[field][0]))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e ValidationError) Add(field, message string) {
	url.Values(e).Add(field, message)
}

func (e ValidationError) Has(field string) bool {
	return len(e[field]) > 0
}

// Err returns nil when no field failed, so callers can return it directly.
func (e ValidationError) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
