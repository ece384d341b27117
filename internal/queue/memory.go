package queue

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryQueue implements Queue with a buffered channel
type MemoryQueue struct {
	items     chan json.RawMessage
	done      chan struct{}
	closeOnce sync.Once
}

// NewMemoryQueue creates an in-memory queue buffering ten batches
func NewMemoryQueue(config *Config) *MemoryQueue {
	if config == nil {
		config = DefaultConfig("memory")
	}
	size := config.BatchSize * 10
	if size <= 0 {
		size = 1000
	}

	return &MemoryQueue{
		items: make(chan json.RawMessage, size),
		done:  make(chan struct{}),
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, payload []byte) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	msg := append(json.RawMessage(nil), payload...)
	select {
	case q.items <- msg:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *MemoryQueue) Dequeue(ctx context.Context, maxItems int) ([]json.RawMessage, error) {
	select {
	case item := <-q.items:
		return q.fill([]json.RawMessage{item}, maxItems), nil
	case <-q.done:
		return q.drainClosed(maxItems)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (q *MemoryQueue) DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]json.RawMessage, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case item := <-q.items:
		return q.fill([]json.RawMessage{item}, maxItems), nil
	case <-timer.C:
		return []json.RawMessage{}, nil
	case <-q.done:
		return q.drainClosed(maxItems)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// fill tops up a batch without blocking.
func (q *MemoryQueue) fill(items []json.RawMessage, maxItems int) []json.RawMessage {
	for len(items) < maxItems {
		select {
		case item := <-q.items:
			items = append(items, item)
		default:
			return items
		}
	}
	return items
}

// drainClosed hands out what was buffered before Close, then reports closed.
func (q *MemoryQueue) drainClosed(maxItems int) ([]json.RawMessage, error) {
	items := q.fill(nil, maxItems)
	if len(items) == 0 {
		return nil, ErrQueueClosed
	}
	return items, nil
}

func (q *MemoryQueue) Length(ctx context.Context) (int, error) {
	return len(q.items), nil
}

// Close stops accepting payloads; buffered ones can still be dequeued
func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() { close(q.done) })
	return nil
}

// MemoryDeadLetterQueue implements DeadLetterQueue in memory
type MemoryDeadLetterQueue struct {
	mu     sync.RWMutex
	items  map[string]DeadLetterItem
	closed bool
}

// NewMemoryDeadLetterQueue creates a new in-memory dead letter queue
func NewMemoryDeadLetterQueue() *MemoryDeadLetterQueue {
	return &MemoryDeadLetterQueue{items: make(map[string]DeadLetterItem)}
}

func (q *MemoryDeadLetterQueue) Add(ctx context.Context, payload []byte, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	item := newDeadLetterItem(payload, cause)
	q.items[item.ID] = item
	return nil
}

func (q *MemoryDeadLetterQueue) List(ctx context.Context, maxItems int) ([]DeadLetterItem, error) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return nil, ErrQueueClosed
	}
	out := make([]DeadLetterItem, 0, len(q.items))
	for _, item := range q.items {
		out = append(out, item)
	}
	return oldestFirst(out, maxItems), nil
}

func (q *MemoryDeadLetterQueue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if _, ok := q.items[id]; !ok {
		return ErrItemNotFound
	}
	delete(q.items, id)
	return nil
}

func (q *MemoryDeadLetterQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.items = nil
	return nil
}

func newDeadLetterItem(payload []byte, cause error) DeadLetterItem {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}
	return DeadLetterItem{
		ID:        uuid.NewString(),
		Payload:   append(json.RawMessage(nil), payload...),
		Error:     msg,
		Timestamp: time.Now().UTC(),
	}
}

func oldestFirst(items []DeadLetterItem, maxItems int) []DeadLetterItem {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].ID < items[j].ID
		}
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	if maxItems > 0 && maxItems < len(items) {
		items = items[:maxItems]
	}
	return items
}
