package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const channelPrefix = "iebc:events:" // channel per kind: iebc:events:{kind}

// Publisher delivers lifecycle events over Redis pub/sub.
type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// Publish emits the event on its kind channel. Callers treat failures as
// non-fatal; delivery is best effort.
func (p *Publisher) Publish(ctx context.Context, e Event) error {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, channelPrefix+string(e.Kind), payload).Err(); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	return nil
}
