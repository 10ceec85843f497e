package audit

import (
	"context"
	"sync"
	"time"
)

// AsyncOptions configures batching of audit writes.
type AsyncOptions struct {
	BufferSize     int           // events queued before Store falls back to a synchronous write
	BatchSize      int           // events per StoreBatch call
	BatchTimeout   time.Duration // max time a partial batch waits
	StorageTimeout time.Duration // per-batch storage deadline
}

func (o *AsyncOptions) withDefaults() {
	if o.BufferSize <= 0 {
		o.BufferSize = 1000
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 100
	}
	if o.BatchTimeout <= 0 {
		o.BatchTimeout = 100 * time.Millisecond
	}
	if o.StorageTimeout <= 0 {
		o.StorageTimeout = 5 * time.Second
	}
}

// AsyncWriter batches events in the background and writes them with a
// BatchWriter. Store still waits for the batch result, so a violation is never
// acknowledged before it is persisted.
type AsyncWriter struct {
	bw      BatchWriter
	queue   chan pending
	done    chan struct{}
	mu      sync.RWMutex // orders enqueues before close(done)
	closed  bool
	wg      sync.WaitGroup
	options AsyncOptions
}

type pending struct {
	event  Event
	result chan error
}

// NewAsyncWriter starts the batching goroutine. Call Close on shutdown to
// flush queued events.
func NewAsyncWriter(bw BatchWriter, opts AsyncOptions) *AsyncWriter {
	if bw == nil {
		panic("audit: batch writer cannot be nil")
	}
	opts.withDefaults()

	w := &AsyncWriter{
		bw:      bw,
		queue:   make(chan pending, opts.BufferSize),
		done:    make(chan struct{}),
		options: opts,
	}
	w.wg.Add(1)
	go w.run()
	return w
}

// Store queues the event and waits for its batch to be written. When the
// buffer is full the event is written synchronously instead of being dropped.
func (w *AsyncWriter) Store(ctx context.Context, event Event) error {
	p := pending{event: event, result: make(chan error, 1)}

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return ErrStorageNotAvailable
	}
	queued := false
	select {
	case w.queue <- p:
		queued = true
	default:
	}
	w.mu.RUnlock()

	if !queued {
		return w.bw.StoreBatch(ctx, []Event{event})
	}

	select {
	case err := <-p.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *AsyncWriter) run() {
	defer w.wg.Done()

	batch := make([]pending, 0, w.options.BatchSize)
	ticker := time.NewTicker(w.options.BatchTimeout)
	defer ticker.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		// Request contexts may already be gone; the batch gets its own deadline.
		ctx, cancel := context.WithTimeout(context.Background(), w.options.StorageTimeout)
		defer cancel()

		events := make([]Event, len(batch))
		for i, p := range batch {
			events[i] = p.event
		}
		err := w.bw.StoreBatch(ctx, events)
		for _, p := range batch {
			p.result <- err
		}
		batch = batch[:0]
	}

	for {
		select {
		case p := <-w.queue:
			batch = append(batch, p)
			if len(batch) >= w.options.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-w.done:
			for {
				select {
				case p := <-w.queue:
					batch = append(batch, p)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close stops accepting events and flushes the queue. ctx bounds the wait.
func (w *AsyncWriter) Close(ctx context.Context) error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.done)
	}
	w.mu.Unlock()

	flushed := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(flushed)
	}()

	select {
	case <-flushed:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
