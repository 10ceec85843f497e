// Package logger builds the service *slog.Logger and keeps attribute names
// consistent across packages.
//
// New wraps a text or JSON handler with LogHandlerDecorator, which runs the
// registered ContextExtractor callbacks on every record. The request packages
// ship extractors for the correlation id, tenant id and principal id, so a
// log line written with InfoContext inside a request carries all three:
//
//	log := logger.FromConfig(cfg, logger.WithContextExtractors(
//	    correlation.LoggerExtractor(),
//	    reqctx.TenantLoggerExtractor(),
//	    reqctx.PrincipalLoggerExtractor(),
//	))
//	log.WarnContext(ctx, "cross-tenant write rejected",
//	    logger.Operation("update"),
//	    logger.AttemptedTenantID("T-2"),
//	)
//
// Helpers such as Error and PrincipalID return an empty Attr for empty input,
// which slog drops, so callers need no nil checks.
package logger
