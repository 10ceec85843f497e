package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// FilterAction defines the action to take on matched metadata fields
type FilterAction string

const (
	FilterActionRemove FilterAction = "remove"
	FilterActionHash   FilterAction = "hash"
	FilterActionMask   FilterAction = "mask"
)

// Shopper data that may end up in violation metadata (a forged record payload,
// a request body) is scrubbed before it reaches storage.
var defaultPIIFields = map[string]FilterAction{
	"password":      FilterActionRemove,
	"token":         FilterActionRemove,
	"access_token":  FilterActionRemove,
	"refresh_token": FilterActionRemove,
	"authorization": FilterActionRemove,
	"api_key":       FilterActionRemove,
	"cvv":           FilterActionRemove,
	"card_number":   FilterActionMask,
	"phone":         FilterActionMask,
	"email":         FilterActionHash,
	"address":       FilterActionHash,
}

// MetadataFilter scrubs sensitive values from event metadata.
type MetadataFilter struct {
	rules     map[string]FilterAction
	allowed   map[string]bool
	filterPII bool
}

// FilterOption configures MetadataFilter behavior
type FilterOption func(*MetadataFilter)

// NewMetadataFilter creates a filter with the default PII rules enabled.
func NewMetadataFilter(opts ...FilterOption) *MetadataFilter {
	f := &MetadataFilter{
		rules:     make(map[string]FilterAction),
		allowed:   make(map[string]bool),
		filterPII: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// WithCustomField adds a rule for field. A trailing "*" matches by prefix.
func WithCustomField(field string, action FilterAction) FilterOption {
	return func(f *MetadataFilter) {
		f.rules[strings.ToLower(field)] = action
	}
}

// WithAllowedField lets a field pass through unfiltered.
func WithAllowedField(field string) FilterOption {
	return func(f *MetadataFilter) {
		f.allowed[strings.ToLower(field)] = true
	}
}

// WithoutPIIDefaults disables default PII field filtering
func WithoutPIIDefaults() FilterOption {
	return func(f *MetadataFilter) {
		f.filterPII = false
	}
}

// Filter returns a filtered copy of metadata.
func (f *MetadataFilter) Filter(metadata map[string]any) map[string]any {
	if metadata == nil {
		return nil
	}

	out := make(map[string]any, len(metadata))
	for key, value := range metadata {
		action, ok := f.actionFor(strings.ToLower(key))
		if !ok {
			out[key] = value
			continue
		}
		switch action {
		case FilterActionRemove:
		case FilterActionHash:
			out[key] = hashValue(value)
		case FilterActionMask:
			out[key] = maskValue(value)
		default:
			out[key] = value
		}
	}
	return out
}

func (f *MetadataFilter) actionFor(key string) (FilterAction, bool) {
	if f.allowed[key] {
		return "", false
	}
	if action, ok := f.rules[key]; ok {
		return action, true
	}
	for pattern, action := range f.rules {
		if prefix, ok := strings.CutSuffix(pattern, "*"); ok && strings.HasPrefix(key, prefix) {
			return action, true
		}
	}
	if f.filterPII {
		if action, ok := defaultPIIFields[key]; ok {
			return action, true
		}
	}
	return "", false
}

func hashValue(value any) string {
	sum := sha256.Sum256([]byte(fmt.Sprint(value)))
	return hex.EncodeToString(sum[:])
}

// maskValue keeps the last four characters of longer values.
func maskValue(value any) string {
	s := fmt.Sprint(value)
	if len(s) <= 4 {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-4) + s[len(s)-4:]
}
