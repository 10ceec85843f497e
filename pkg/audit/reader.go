package audit

import "context"

// Reader gives read access to stored audit events.
type Reader struct {
	storage Storage
}

// NewReader creates a new audit reader
func NewReader(storage Storage) *Reader {
	if storage == nil {
		panic("audit: storage cannot be nil")
	}
	return &Reader{storage: storage}
}

// Find retrieves audit events based on the criteria
func (r *Reader) Find(ctx context.Context, criteria Criteria) ([]Event, error) {
	return r.storage.Query(ctx, criteria)
}

// Violations returns denied operations that tried to reach data of attemptedTenantID.
func (r *Reader) Violations(ctx context.Context, attemptedTenantID string, limit int) ([]Event, error) {
	return r.storage.Query(ctx, Criteria{
		AttemptedTenantID: attemptedTenantID,
		Result:            ResultDenied,
		Limit:             limit,
	})
}

// Count returns the number of matching events. Storages implementing
// StorageCounter count natively; otherwise events are loaded and counted.
func (r *Reader) Count(ctx context.Context, criteria Criteria) (int64, error) {
	if counter, ok := r.storage.(StorageCounter); ok {
		return counter.Count(ctx, criteria)
	}
	criteria.Limit, criteria.Offset = 0, 0
	events, err := r.storage.Query(ctx, criteria)
	if err != nil {
		return 0, err
	}
	return int64(len(events)), nil
}
