package webhooks

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"carpsolver/internal/store"
)

// Run lifecycle events delivered to callback URLs.
const (
	EventRunCompleted = "run.completed"
	EventRunFailed    = "run.failed"
)

// Event is the JSON envelope posted to a callback URL.
type Event struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	RunID string `json:"runId"`
	TS    string `json:"ts"`
	Data  any    `json:"data"`
}

type Publisher struct {
	Store store.Store
}

func NewPublisher(s store.Store) *Publisher {
	return &Publisher{Store: s}
}

// Emit queues an event for delivery to url. An empty url is a no-op.
func (p *Publisher) Emit(ctx context.Context, runID, eventType, url, secret string, data any) (string, error) {
	if url == "" || p == nil || p.Store == nil {
		return "", nil
	}
	ev := Event{
		ID:    "evt_" + uuid.New().String(),
		Type:  eventType,
		RunID: runID,
		TS:    time.Now().UTC().Format(time.RFC3339),
		Data:  data,
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	return p.Store.EnqueueWebhook(ctx, runID, eventType, url, secret, body)
}
