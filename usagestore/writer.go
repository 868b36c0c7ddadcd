package usagestore

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

const writerBatchSize = 64

// Writer decouples the instrumented call path from storage latency: records
// are enqueued onto a bounded channel and flushed in batches by a single
// worker. When the queue is full the record is dropped and counted; the call
// path never blocks.
type Writer struct {
	store  Store
	queue  chan *Record
	logger *slog.Logger

	wg       sync.WaitGroup
	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
	doneOnce sync.Once
	done     chan struct{}
	queueMu  sync.RWMutex

	acceptedTotal atomic.Int64
	droppedTotal  atomic.Int64
	failedTotal   atomic.Int64
}

func NewWriter(store Store, bufferSize int, logger *slog.Logger) *Writer {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		store:  store,
		queue:  make(chan *Record, bufferSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

func (w *Writer) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	if ctx == nil || ctx.Err() != nil {
		ctx = context.Background()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer w.markDone()

		for {
			select {
			case <-ctx.Done():
				return
			case record, ok := <-w.queue:
				if !ok {
					return
				}

				batch := make([]*Record, 0, writerBatchSize)
				if record != nil {
					batch = append(batch, record)
				}
			drain:
				for len(batch) < writerBatchSize {
					select {
					case next, ok := <-w.queue:
						if !ok {
							// Use a fresh context so the final flush is not
							// rejected due to cancellation.
							w.flush(context.Background(), batch)
							return
						}
						if next != nil {
							batch = append(batch, next)
						}
					default:
						break drain
					}
				}
				w.flush(ctx, batch)
			}
		}
	}()
}

// Enqueue offers a record to the write queue. It reports false when the
// record was dropped (queue full or writer stopped).
func (w *Writer) Enqueue(record *Record) bool {
	if record == nil || w.stopped.Load() {
		return false
	}
	w.queueMu.RLock()
	defer w.queueMu.RUnlock()
	if w.stopped.Load() {
		return false
	}

	select {
	case w.queue <- record:
		w.acceptedTotal.Add(1)
		return true
	default:
		w.droppedTotal.Add(1)
		return false
	}
}

// Shutdown closes the queue, waits for the worker to drain it, and returns
// early when the context expires.
func (w *Writer) Shutdown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		w.queueMu.Lock()
		close(w.queue)
		w.queueMu.Unlock()
		if !w.started.Load() {
			w.markDone()
		}
	})

	select {
	case <-w.done:
		w.wg.Wait()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Writer) markDone() {
	w.doneOnce.Do(func() {
		close(w.done)
	})
}

func (w *Writer) flush(ctx context.Context, batch []*Record) {
	if len(batch) == 0 {
		return
	}
	if err := w.store.WriteBatch(ctx, batch); err != nil {
		w.failedTotal.Add(int64(len(batch)))
		w.logger.Warn("usage batch write failed, records dropped",
			"batch_size", len(batch),
			"error", err,
		)
	}
}

// AcceptedTotal reports how many records were queued successfully.
func (w *Writer) AcceptedTotal() int64 {
	return w.acceptedTotal.Load()
}

// DroppedTotal reports how many records were dropped at enqueue time.
func (w *Writer) DroppedTotal() int64 {
	return w.droppedTotal.Load()
}

// FailedTotal reports how many records were lost to storage write failures.
func (w *Writer) FailedTotal() int64 {
	return w.failedTotal.Load()
}
