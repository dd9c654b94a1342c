package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mcdev12/livedraft/go/internal/models"
)

// Config controls the relay loop.
type Config struct {
	PollInterval time.Duration
	BatchSize    int32
	MaxRetries   int
	RetryDelay   time.Duration
}

func DefaultConfig() Config {
	return Config{
		PollInterval: 5 * time.Second,
		BatchSize:    100,
		MaxRetries:   3,
		RetryDelay:   time.Second,
	}
}

// EventPublisher delivers one draft event to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, event models.DraftEvent) error
}

// BatchFunc publishes a locked batch and returns the IDs that were delivered.
type BatchFunc func(ctx context.Context, batch []models.DraftEvent) ([]uuid.UUID, error)

// Repository hands out batches of unpublished events, oldest first, skipping
// the drafts in exclude. The batch stays locked until fn returns; delivered
// IDs are marked published.
type Repository interface {
	ProcessBatch(ctx context.Context, limit int32, exclude []string, fn BatchFunc) (int, error)
	CountPending(ctx context.Context) (int64, error)
}
