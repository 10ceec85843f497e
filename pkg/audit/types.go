package audit

import (
	"context"
	"fmt"
	"time"
)

// Result represents the outcome of an audited operation.
type Result string

const (
	ResultSuccess Result = "success"
	// ResultDenied marks operations rejected by an isolation or access check.
	ResultDenied Result = "denied"
	ResultError  Result = "error"
)

// Event is a single audit record. TenantID is the tenant of the request that
// performed the operation; AttemptedTenantID is the tenant whose data the
// operation tried to reach, when that differs.
type Event struct {
	ID                string         `json:"id" bson:"_id"`
	CorrelationID     string         `json:"correlation_id" bson:"correlation_id"`
	TenantID          string         `json:"tenant_id" bson:"tenant_id"`
	AttemptedTenantID string         `json:"attempted_tenant_id,omitempty" bson:"attempted_tenant_id,omitempty"`
	PrincipalID       string         `json:"principal_id,omitempty" bson:"principal_id,omitempty"`
	Operation         string         `json:"operation" bson:"operation"`
	Resource          string         `json:"resource,omitempty" bson:"resource,omitempty"`
	ResourceID        string         `json:"resource_id,omitempty" bson:"resource_id,omitempty"`
	Result            Result         `json:"result" bson:"result"`
	Error             string         `json:"error,omitempty" bson:"error,omitempty"`
	Metadata          map[string]any `json:"metadata,omitempty" bson:"metadata,omitempty"`
	CreatedAt         time.Time      `json:"created_at" bson:"created_at"`
}

// Validate checks if the event has all required fields
func (e *Event) Validate() error {
	if e.Operation == "" {
		return fmt.Errorf("%w: operation is required", ErrEventValidation)
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrEventValidation)
	}
	return nil
}

// EventOption applies configuration to an Event during creation.
type EventOption func(*Event)

// Writer persists audit events.
type Writer interface {
	Store(ctx context.Context, event Event) error
}

// BatchWriter persists several events at once. Implementations must be atomic:
// either every event is stored or none is.
type BatchWriter interface {
	StoreBatch(ctx context.Context, events []Event) error
}

// Storage is a Writer that can also be queried.
type Storage interface {
	Writer
	Query(ctx context.Context, criteria Criteria) ([]Event, error)
}

// StorageCounter is implemented by storages that can count without loading events.
type StorageCounter interface {
	Count(ctx context.Context, criteria Criteria) (int64, error)
}

// Criteria selects events. Zero fields match everything.
type Criteria struct {
	CorrelationID     string
	TenantID          string
	AttemptedTenantID string
	Operation         string
	Result            Result
	Since             time.Time
	Until             time.Time
	Limit             int
	Offset            int
}

// Match reports whether e satisfies every non-zero field of c, ignoring
// Limit and Offset.
func (c Criteria) Match(e Event) bool {
	switch {
	case c.CorrelationID != "" && e.CorrelationID != c.CorrelationID:
		return false
	case c.TenantID != "" && e.TenantID != c.TenantID:
		return false
	case c.AttemptedTenantID != "" && e.AttemptedTenantID != c.AttemptedTenantID:
		return false
	case c.Operation != "" && e.Operation != c.Operation:
		return false
	case c.Result != "" && e.Result != c.Result:
		return false
	case !c.Since.IsZero() && e.CreatedAt.Before(c.Since):
		return false
	case !c.Until.IsZero() && !e.CreatedAt.Before(c.Until):
		return false
	}
	return true
}
