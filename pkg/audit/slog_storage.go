package audit

import (
	"context"
	"errors"
	"log/slog"
)

// SlogWriter writes events as structured log records. Denied operations are
// logged at warn level and errors at error level.
type SlogWriter struct {
	logger *slog.Logger
}

func NewSlogWriter(logger *slog.Logger) *SlogWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogWriter{logger: logger}
}

func (w *SlogWriter) Store(ctx context.Context, e Event) error {
	level := slog.LevelInfo
	switch e.Result {
	case ResultDenied:
		level = slog.LevelWarn
	case ResultError:
		level = slog.LevelError
	}

	attrs := []slog.Attr{
		slog.String("audit_id", e.ID),
		slog.String("operation", e.Operation),
		slog.String("result", string(e.Result)),
		slog.String("correlation_id", e.CorrelationID),
		slog.String("tenant_id", e.TenantID),
		slog.Time("timestamp", e.CreatedAt),
	}
	if e.AttemptedTenantID != "" {
		attrs = append(attrs, slog.String("attempted_tenant_id", e.AttemptedTenantID))
	}
	if e.PrincipalID != "" {
		attrs = append(attrs, slog.String("principal_id", e.PrincipalID))
	}
	if e.Resource != "" {
		attrs = append(attrs, slog.String("resource", e.Resource), slog.String("resource_id", e.ResourceID))
	}
	if e.Error != "" {
		attrs = append(attrs, slog.String("error", e.Error))
	}
	if len(e.Metadata) > 0 {
		attrs = append(attrs, slog.Any("metadata", e.Metadata))
	}

	w.logger.LogAttrs(ctx, level, "audit", attrs...)
	return nil
}

// MultiWriter fans an event out to several writers. Every writer is attempted;
// the joined errors are returned.
type MultiWriter []Writer

func (m MultiWriter) Store(ctx context.Context, e Event) error {
	var errs []error
	for _, w := range m {
		if err := w.Store(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
