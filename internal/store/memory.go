package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"carpsolver/internal/model"
	"carpsolver/internal/opt"
)

// Memory is a simple in-memory store used when no database is configured.
type Memory struct {
	mu         sync.Mutex
	runs       map[string]model.Run
	order      []string // run ids in creation order
	deliveries map[string]*WebhookDelivery
	dOrder     []string
	dedup      map[string]string // run|event|url|key -> delivery id
}

func NewMemory() *Memory {
	return &Memory{
		runs:       map[string]model.Run{},
		deliveries: map[string]*WebhookDelivery{},
		dedup:      map[string]string{},
	}
}

func (m *Memory) CreateRun(ctx context.Context, r model.Run) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = model.RunQueued
	}
	if _, ok := m.runs[r.ID]; !ok {
		m.order = append(m.order, r.ID)
	}
	m.runs[r.ID] = r
	return r, nil
}

func (m *Memory) UpdateRun(ctx context.Context, r model.Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.runs[r.ID]; !ok {
		return ErrNotFound
	}
	m.runs[r.ID] = r
	return nil
}

func (m *Memory) GetRun(ctx context.Context, id string) (model.Run, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[id]
	if !ok {
		return model.Run{}, ErrNotFound
	}
	return r, nil
}

// ListRuns pages newest first; the cursor is an offset into the filtered list.
func (m *Memory) ListRuns(ctx context.Context, status, cursor string, limit int) ([]model.Run, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if limit <= 0 {
		limit = defaultPageSize
	}
	start, _ := strconv.Atoi(cursor)
	var all []model.Run
	for i := len(m.order) - 1; i >= 0; i-- {
		r := m.runs[m.order[i]]
		if status == "" || r.Status == status {
			all = append(all, r)
		}
	}
	if start >= len(all) {
		return []model.Run{}, "", nil
	}
	end := start + limit
	next := ""
	if end < len(all) {
		next = strconv.Itoa(end)
	} else {
		end = len(all)
	}
	return append([]model.Run(nil), all[start:end]...), next, nil
}

func (m *Memory) SaveRunMetrics(ctx context.Context, runID string, ms []opt.Metrics) error {
	m.mu.Lock()
	_, ok := m.runs[runID]
	m.mu.Unlock()
	if !ok {
		return ErrNotFound
	}
	opt.RecordMetrics(runID, ms)
	return nil
}

func (m *Memory) GetRunMetrics(ctx context.Context, runID string) ([]opt.Metrics, error) {
	ms, ok := opt.GetMetrics(runID)
	if !ok {
		return nil, ErrNotFound
	}
	return ms, nil
}

// Webhook deliveries
func (m *Memory) EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := runID + "|" + eventType + "|" + url + "|" + computeDedupKey(payload)
	if id, ok := m.dedup[key]; ok {
		return id, nil
	}
	id := uuid.New().String()
	m.deliveries[id] = &WebhookDelivery{
		ID: id, RunID: runID, EventType: eventType, URL: url, Secret: secret,
		Payload: append([]byte(nil), payload...), Status: DeliveryPending, NextAttemptAt: time.Now(),
	}
	m.dOrder = append(m.dOrder, id)
	m.dedup[key] = id
	return id, nil
}

func (m *Memory) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	out := []WebhookDelivery{}
	for _, id := range m.dOrder {
		d := m.deliveries[id]
		if (d.Status == DeliveryPending || d.Status == DeliveryRetry) && !d.NextAttemptAt.After(now) {
			out = append(out, *d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].NextAttemptAt.Before(out[j].NextAttemptAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	if success {
		d.Status = DeliveryDelivered
		return nil
	}
	d.Status = DeliveryRetry
	d.LastError = lastError
	if nextAttemptAt != nil {
		d.NextAttemptAt = *nextAttemptAt
	} else {
		d.NextAttemptAt = time.Now().Add(time.Minute)
	}
	return nil
}

func (m *Memory) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := m.deliveries[id]
	if d == nil {
		return ErrNotFound
	}
	d.Attempts++
	d.Status = DeliveryFailed
	d.LastError = lastError
	d.ResponseCode = responseCode
	d.LatencyMs = latencyMs
	return nil
}

func (m *Memory) ListWebhookDeliveries(ctx context.Context, runID, status string) ([]WebhookDelivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []WebhookDelivery{}
	for _, id := range m.dOrder {
		d := m.deliveries[id]
		if (runID == "" || d.RunID == runID) && (status == "" || d.Status == status) {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return nil }
func (m *Memory) Close() error { return nil }
