package logger

import (
	"log/slog"
	"strconv"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error records a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func TenantID(id string) slog.Attr { return slog.String("tenant_id", id) }

// AttemptedTenantID records the tenant a rejected operation tried to reach.
func AttemptedTenantID(id string) slog.Attr { return slog.String("attempted_tenant_id", id) }

// PrincipalID records the authenticated principal. Guests produce an empty Attr.
func PrincipalID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("principal_id", id)
}

func CorrelationID(id string) slog.Attr { return slog.String("correlation_id", id) }

// Operation records the data operation under the key "operation".
func Operation(op string) slog.Attr { return slog.String("operation", op) }

// Component records the component name under the key "component".
func Component(name string) slog.Attr { return slog.String("component", name) }

// Duration records a duration under the key "duration".
func Duration(d any) slog.Attr { return slog.Any("duration", d) }
