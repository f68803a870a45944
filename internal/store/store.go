package store

import (
	"context"
	"errors"
	"time"

	"carpsolver/internal/model"
	"carpsolver/internal/opt"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, r model.Run) (model.Run, error)
	UpdateRun(ctx context.Context, r model.Run) error
	GetRun(ctx context.Context, id string) (model.Run, error)
	ListRuns(ctx context.Context, status, cursor string, limit int) (items []model.Run, nextCursor string, err error)

	// Per-worker search metrics of a finished run
	SaveRunMetrics(ctx context.Context, runID string, ms []opt.Metrics) error
	GetRunMetrics(ctx context.Context, runID string) ([]opt.Metrics, error)

	// Webhook deliveries
	EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error)
	FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error)
	MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error
	FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error
	ListWebhookDeliveries(ctx context.Context, runID, status string) ([]WebhookDelivery, error)

	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("not found")

const defaultPageSize = 100
