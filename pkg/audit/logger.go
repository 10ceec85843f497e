package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// contextExtractor returns (value, found) for a value carried by ctx.
type contextExtractor func(context.Context) (string, bool)

// Logger builds audit events and hands them to a Writer. Values passed as
// EventOptions take precedence over values found by the extractors.
type Logger struct {
	writer                 Writer
	correlationIDExtractor contextExtractor
	tenantIDExtractor      contextExtractor
	principalIDExtractor   contextExtractor
	filter                 *MetadataFilter
	now                    func() time.Time
}

// Option configures Logger behavior during initialization
type Option func(*Logger)

func WithCorrelationIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.correlationIDExtractor = fn }
}

func WithTenantIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.tenantIDExtractor = fn }
}

func WithPrincipalIDExtractor(fn func(context.Context) (string, bool)) Option {
	return func(l *Logger) { l.principalIDExtractor = fn }
}

// WithMetadataFilter scrubs event metadata before it is written.
func WithMetadataFilter(f *MetadataFilter) Option {
	return func(l *Logger) { l.filter = f }
}

// WithClock overrides the event timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Logger) {
		if now != nil {
			l.now = now
		}
	}
}

// NewLogger creates a new audit logger
func NewLogger(w Writer, opts ...Option) *Logger {
	if w == nil {
		panic("audit: writer cannot be nil")
	}
	l := &Logger{writer: w, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Log records a successful operation.
func (l *Logger) Log(ctx context.Context, operation string, opts ...EventOption) error {
	return l.write(ctx, operation, ResultSuccess, nil, opts)
}

// LogDenied records an operation rejected by an access or isolation check.
func (l *Logger) LogDenied(ctx context.Context, operation string, reason error, opts ...EventOption) error {
	return l.write(ctx, operation, ResultDenied, reason, opts)
}

// LogError records a failed operation.
func (l *Logger) LogError(ctx context.Context, operation string, err error, opts ...EventOption) error {
	return l.write(ctx, operation, ResultError, err, opts)
}

func (l *Logger) write(ctx context.Context, operation string, result Result, cause error, opts []EventOption) error {
	event := l.eventFromContext(ctx)
	event.ID = uuid.NewString()
	event.Operation = operation
	event.Result = result
	event.CreatedAt = l.now().UTC()
	if cause != nil {
		event.Error = cause.Error()
	}

	for _, opt := range opts {
		opt(&event)
	}
	if l.filter != nil {
		event.Metadata = l.filter.Filter(event.Metadata)
	}

	if err := event.Validate(); err != nil {
		return err
	}
	if err := l.writer.Store(ctx, event); err != nil {
		return errors.Join(ErrStorageNotAvailable, err)
	}
	return nil
}

func (l *Logger) eventFromContext(ctx context.Context) Event {
	var event Event
	if l.correlationIDExtractor != nil {
		if id, ok := l.correlationIDExtractor(ctx); ok {
			event.CorrelationID = id
		}
	}
	if l.tenantIDExtractor != nil {
		if id, ok := l.tenantIDExtractor(ctx); ok {
			event.TenantID = id
		}
	}
	if l.principalIDExtractor != nil {
		if id, ok := l.principalIDExtractor(ctx); ok {
			event.PrincipalID = id
		}
	}
	return event
}
