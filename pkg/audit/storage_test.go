package audit_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/storefront/pkg/audit"
)

func seed(t *testing.T, s *audit.MemoryStorage) {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	events := []audit.Event{
		{ID: "1", TenantID: "T-1", AttemptedTenantID: "T-2", Operation: "update", Result: audit.ResultDenied, CreatedAt: base},
		{ID: "2", TenantID: "T-1", Operation: "read", Result: audit.ResultSuccess, CreatedAt: base.Add(time.Minute)},
		{ID: "3", TenantID: "T-3", AttemptedTenantID: "T-2", Operation: "read", Result: audit.ResultDenied, CreatedAt: base.Add(2 * time.Minute)},
	}
	require.NoError(t, s.StoreBatch(context.Background(), events))
}

func TestMemoryStorageQuery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := audit.NewMemoryStorage()
	seed(t, s)

	got, err := s.Query(ctx, audit.Criteria{AttemptedTenantID: "T-2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].ID, "newest first")

	got, err = s.Query(ctx, audit.Criteria{TenantID: "T-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)

	got, err = s.Query(ctx, audit.Criteria{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = s.Query(ctx, audit.Criteria{Since: time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestReader(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := audit.NewMemoryStorage()
	seed(t, s)
	r := audit.NewReader(s)

	violations, err := r.Violations(ctx, "T-2", 10)
	require.NoError(t, err)
	assert.Len(t, violations, 2)

	n, err := r.Count(ctx, audit.Criteria{Result: audit.ResultDenied})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

type recordingBatchWriter struct {
	mu      sync.Mutex
	batches [][]audit.Event
	err     error
}

func (w *recordingBatchWriter) StoreBatch(_ context.Context, events []audit.Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, append([]audit.Event(nil), events...))
	return w.err
}

func (w *recordingBatchWriter) total() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, b := range w.batches {
		n += len(b)
	}
	return n
}

func TestAsyncWriter(t *testing.T) {
	t.Parallel()

	t.Run("batches concurrent events", func(t *testing.T) {
		t.Parallel()

		bw := &recordingBatchWriter{}
		w := audit.NewAsyncWriter(bw, audit.AsyncOptions{BatchSize: 10, BatchTimeout: 5 * time.Millisecond})

		var wg sync.WaitGroup
		for range 25 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, w.Store(context.Background(), audit.Event{Operation: "read"}))
			}()
		}
		wg.Wait()
		require.NoError(t, w.Close(context.Background()))

		assert.Equal(t, 25, bw.total())
	})

	t.Run("propagates batch errors", func(t *testing.T) {
		t.Parallel()

		bw := &recordingBatchWriter{err: errors.New("write failed")}
		w := audit.NewAsyncWriter(bw, audit.AsyncOptions{BatchTimeout: time.Millisecond})
		t.Cleanup(func() { _ = w.Close(context.Background()) })

		require.Error(t, w.Store(context.Background(), audit.Event{Operation: "read"}))
	})

	t.Run("rejects writes after close", func(t *testing.T) {
		t.Parallel()

		w := audit.NewAsyncWriter(&recordingBatchWriter{}, audit.AsyncOptions{})
		require.NoError(t, w.Close(context.Background()))
		require.NoError(t, w.Close(context.Background()), "close is idempotent")
		require.ErrorIs(t, w.Store(context.Background(), audit.Event{}), audit.ErrStorageNotAvailable)
	})

	t.Run("stores racing close are always answered", func(t *testing.T) {
		t.Parallel()

		bw := &recordingBatchWriter{}
		w := audit.NewAsyncWriter(bw, audit.AsyncOptions{BatchTimeout: time.Hour})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for i := range 200 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := w.Store(ctx, audit.Event{Operation: "read"})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
					return
				}
				assert.ErrorIs(t, err, audit.ErrStorageNotAvailable, "store %d", i)
			}()
			if i == 100 {
				require.NoError(t, w.Close(ctx))
			}
		}
		wg.Wait()

		require.NoError(t, ctx.Err(), "a store waited for a batch that never ran")
		assert.Equal(t, accepted, bw.total())
	})
}

func TestMetadataFilter(t *testing.T) {
	t.Parallel()

	f := audit.NewMetadataFilter(
		audit.WithCustomField("internal_*", audit.FilterActionRemove),
		audit.WithAllowedField("email"),
	)
	out := f.Filter(map[string]any{
		"password":      "x",
		"card_number":   "4111111111111111",
		"email":         "a@b.c",
		"internal_note": "n",
		"sku":           "S-1",
	})

	assert.NotContains(t, out, "password")
	assert.NotContains(t, out, "internal_note")
	assert.Equal(t, "************1111", out["card_number"])
	assert.Equal(t, "a@b.c", out["email"])
	assert.Equal(t, "S-1", out["sku"])
	assert.Nil(t, f.Filter(nil))
}
