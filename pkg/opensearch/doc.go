// Package opensearch connects to an OpenSearch cluster and implements the
// tenant-scoped search backend on a single shared index.
//
// Every document is stored under an id prefixed with its tenant, routed to
// the tenant's shard, and carries a keyword tenant_id field. Every search is
// a bool query whose first filter is a term on that field, so a query can
// never be issued without the scope's tenant:
//
//	client, err := opensearch.New(ctx, cfg)
//	backend := opensearch.NewSearchBackend(client, cfg)
//	if err := backend.EnsureIndex(ctx); err != nil {
//	    return err
//	}
//	index := isolation.NewScopedIndex(enforcer, backend, "product")
//
// Healthcheck returns a probe for readiness endpoints.
package opensearch
