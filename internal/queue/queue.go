// Package queue buffers serialized usage records between the reply path and
// the ledger store, with two interchangeable backends:
//
//  1. Memory (buffered channel): no persistence, no dependencies; suits a
//     single instance or development.
//  2. Redis (list per queue, hash per dead-letter queue): survives restarts
//     and can be drained by workers on several instances.
//
// Items are opaque JSON payloads; the worker owns their schema.
package queue

import (
	"context"
	"encoding/json"
	"time"
)

// Queue is a FIFO of JSON payloads
type Queue interface {
	// Enqueue appends a payload
	Enqueue(ctx context.Context, payload []byte) error

	// Dequeue blocks until at least one payload is available, then returns up to maxItems
	Dequeue(ctx context.Context, maxItems int) ([]json.RawMessage, error)

	// DequeueWithTimeout is Dequeue that gives up after timeout with an empty slice
	DequeueWithTimeout(ctx context.Context, maxItems int, timeout time.Duration) ([]json.RawMessage, error)

	// Length returns the number of pending payloads
	Length(ctx context.Context) (int, error)

	Close() error
}

// DeadLetterQueue keeps payloads that exhausted their retries
type DeadLetterQueue interface {
	Add(ctx context.Context, payload []byte, cause error) error

	// List returns items oldest first; maxItems <= 0 means all
	List(ctx context.Context, maxItems int) ([]DeadLetterItem, error)

	Remove(ctx context.Context, id string) error

	Close() error
}

// DeadLetterItem is a failed payload with its last error
type DeadLetterItem struct {
	ID        string          `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Error     string          `json:"error"`
	Timestamp time.Time       `json:"timestamp"`
}

// Config holds queue and worker tuning
type Config struct {
	// QueueName namespaces the Redis keys
	QueueName string

	// BatchSize is the maximum number of items handed to the worker at once
	BatchSize int

	// BatchTimeout is how long the worker waits for a first item
	BatchTimeout time.Duration

	// MaxRetries is the number of per-item retries after a failed batch
	MaxRetries int

	// RetryBackoff is the initial backoff, doubled per attempt
	RetryBackoff time.Duration
}

// DefaultConfig returns default queue configuration
func DefaultConfig(queueName string) *Config {
	return &Config{
		QueueName:    queueName,
		BatchSize:    100,
		BatchTimeout: 5 * time.Second,
		MaxRetries:   3,
		RetryBackoff: 1 * time.Second,
	}
}
