// Package retry queues session payloads that could not be persisted for
// out-of-band replay.
package retry

import (
	"context"
	"errors"
	"strings"

	contractx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/agent/contract"
	qstashx "github.com/tanpawarit/Callive-Multi-Agent-Voice-Dialogue/pkg/qstash"
)

var _ contractx.RetryQueue = (*QStashQueue)(nil)

// QStashQueue publishes failed session saves to a QStash destination that
// replays them against the session store.
type QStashQueue struct {
	client      *qstashx.Client
	destination string
}

func NewQStashQueue(client *qstashx.Client, destination string) (*QStashQueue, error) {
	if client == nil {
		return nil, errors.New("qstash client is required")
	}
	destination = strings.TrimSpace(destination)
	if destination == "" {
		return nil, errors.New("retry destination is required")
	}
	return &QStashQueue{client: client, destination: destination}, nil
}

func (q *QStashQueue) PublishSessionRetry(ctx context.Context, payload []byte) error {
	return q.client.Publish(ctx, q.destination, payload)
}
