package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agent_gateway/internal/logging"
	"agent_gateway/internal/models"
	"agent_gateway/internal/queue"
)

// ErrNoDeadLetterQueue is returned by dead-letter operations when the worker has none.
var ErrNoDeadLetterQueue = errors.New("dead letter queue not configured")

// UsageQueueWorker moves usage records from a queue into the ledger store.
// It implements UsageAppender, so the ledger can write through it instead of
// the store when appends should not wait on the database.
type UsageQueueWorker struct {
	queue  queue.Queue
	dlq    queue.DeadLetterQueue
	store  UsageStore
	config *queue.Config
	logger *logging.Logger

	sleep func(time.Duration)

	startOnce   sync.Once
	stopOnce    sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewUsageQueueWorker creates a worker; dlq may be nil.
func NewUsageQueueWorker(q queue.Queue, dlq queue.DeadLetterQueue, store UsageStore, config *queue.Config) *UsageQueueWorker {
	if config == nil {
		config = queue.DefaultConfig("usage")
	}

	return &UsageQueueWorker{
		queue:       q,
		dlq:         dlq,
		store:       store,
		config:      config,
		logger:      logging.NewLogger("usage-worker"),
		sleep:       time.Sleep,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start starts the worker goroutine
func (w *UsageQueueWorker) Start(ctx context.Context) {
	w.startOnce.Do(func() { go w.run(ctx) })
}

// Stop signals the loop and waits for the batch in flight to finish.
// Records still queued stay in the queue.
func (w *UsageQueueWorker) Stop() error {
	w.stopOnce.Do(func() { close(w.stopChan) })
	started := true
	w.startOnce.Do(func() {
		started = false
		close(w.stoppedChan)
	})
	if started {
		<-w.stoppedChan
	}
	return nil
}

// Done is closed once the worker loop has exited.
func (w *UsageQueueWorker) Done() <-chan struct{} {
	return w.stoppedChan
}

// AppendUsage assigns the record an ID and enqueues it.
func (w *UsageQueueWorker) AppendUsage(ctx context.Context, record *models.UsageRecord) error {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal usage record: %w", err)
	}
	if err := w.queue.Enqueue(ctx, data); err != nil {
		return fmt.Errorf("failed to enqueue usage record: %w", err)
	}
	return nil
}

func (w *UsageQueueWorker) run(ctx context.Context) {
	defer close(w.stoppedChan)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info().Msg("usage worker stopping")
			return
		case <-ctx.Done():
			w.logger.Info().Msg("usage worker context cancelled")
			return
		default:
			if errors.Is(w.processBatch(ctx), queue.ErrQueueClosed) {
				w.logger.Info().Msg("usage queue closed")
				return
			}
		}
	}
}

// processBatch drains one batch. A failed batch insert falls back to
// per-record inserts with retries; records that still fail go to the DLQ.
func (w *UsageQueueWorker) processBatch(ctx context.Context) error {
	items, err := w.queue.DequeueWithTimeout(ctx, w.config.BatchSize, w.config.BatchTimeout)
	if err != nil {
		if errors.Is(err, queue.ErrQueueClosed) || ctx.Err() != nil {
			return err
		}
		w.logger.Error().Err(err).Msg("failed to dequeue usage records")
		w.sleep(time.Second)
		return err
	}
	if len(items) == 0 {
		return nil
	}

	w.logger.Debug().Int("count", len(items)).Msg("processing usage batch")

	records := make([]*models.UsageRecord, 0, len(items))
	for _, item := range items {
		var record models.UsageRecord
		if err := json.Unmarshal(item, &record); err != nil {
			w.logger.Error().Err(err).Msg("dropping malformed usage payload")
			w.deadLetter(ctx, item, err)
			continue
		}
		records = append(records, &record)
	}
	if len(records) == 0 {
		return nil
	}

	if err := w.store.AppendUsageBatch(ctx, records); err != nil {
		w.logger.Warn().Err(err).Int("count", len(records)).Msg("batch insert failed, falling back to single inserts")
		for _, record := range records {
			if err := w.processItem(ctx, record); err != nil {
				w.logger.Error().Err(err).Str("record_id", record.ID.String()).Msg("failed to store usage record")
			}
		}
	}
	return nil
}

func (w *UsageQueueWorker) processItem(ctx context.Context, record *models.UsageRecord) error {
	var lastErr error
	for attempt := 0; attempt <= w.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := w.config.RetryBackoff * time.Duration(1<<uint(attempt-1))
			w.logger.Debug().Int("attempt", attempt).Dur("backoff", backoff).Msg("retrying usage record")
			w.sleep(backoff)
		}

		if err := w.store.AppendUsage(ctx, record); err != nil {
			lastErr = err
			continue
		}
		return nil
	}

	data, err := json.Marshal(record)
	if err == nil {
		w.deadLetter(ctx, data, lastErr)
	}
	return fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (w *UsageQueueWorker) deadLetter(ctx context.Context, payload []byte, cause error) {
	if w.dlq == nil {
		return
	}
	if err := w.dlq.Add(ctx, payload, cause); err != nil {
		w.logger.Error().Err(err).Msg("failed to add to dead letter queue")
		return
	}
	w.logger.Warn().AnErr("cause", cause).Msg("usage record moved to DLQ")
}

// QueueLength returns the number of records waiting to be stored
func (w *UsageQueueWorker) QueueLength(ctx context.Context) (int, error) {
	return w.queue.Length(ctx)
}

// DeadLetterItems returns up to maxItems failed records, oldest first
func (w *UsageQueueWorker) DeadLetterItems(ctx context.Context, maxItems int) ([]queue.DeadLetterItem, error) {
	if w.dlq == nil {
		return nil, ErrNoDeadLetterQueue
	}
	return w.dlq.List(ctx, maxItems)
}

// RetryDeadLetterItem re-enqueues a failed record and removes it from the DLQ
func (w *UsageQueueWorker) RetryDeadLetterItem(ctx context.Context, id string) error {
	if w.dlq == nil {
		return ErrNoDeadLetterQueue
	}

	items, err := w.dlq.List(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to list dead letter items: %w", err)
	}

	for _, item := range items {
		if item.ID != id {
			continue
		}
		if err := w.queue.Enqueue(ctx, item.Payload); err != nil {
			return fmt.Errorf("failed to re-enqueue item: %w", err)
		}
		if err := w.dlq.Remove(ctx, id); err != nil {
			return fmt.Errorf("failed to remove from DLQ: %w", err)
		}
		return nil
	}

	return queue.ErrItemNotFound
}
