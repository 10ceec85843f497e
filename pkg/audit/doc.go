// Package audit records security relevant operations, above all rejected
// cross-tenant access.
//
// Every event carries the correlation id and tenant of the request, the tenant
// the operation tried to reach (AttemptedTenantID), the operation name and a
// timestamp. Events go to a Writer: MemoryStorage, SlogWriter, the MongoDB
// storage in pkg/mongo, or any of them behind an AsyncWriter for batching.
// MultiWriter sends each event to several sinks.
//
//	log := audit.NewLogger(audit.MultiWriter{
//	    audit.NewSlogWriter(slogger),
//	    mongoAudit,
//	}, audit.WithMetadataFilter(audit.NewMetadataFilter()))
//
//	_ = log.LogDenied(ctx, "update", isolation.ErrCrossTenantViolation,
//	    audit.WithRequest(rc.CorrelationID(), rc.TenantID(), rc.PrincipalID()),
//	    audit.WithAttemptedTenant("T-2"),
//	)
package audit
