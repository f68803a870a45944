package webhooks

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"carpsolver/internal/config"
	"carpsolver/internal/logging"
	"carpsolver/internal/metrics"
	"carpsolver/internal/store"
)

// Worker polls the delivery queue and posts due events with backoff.
type Worker struct {
	Store       store.Store
	HTTP        *http.Client
	Log         *logging.Logger
	Stop        chan struct{}
	MaxAttempts int
	Interval    time.Duration
	BatchSize   int

	once sync.Once
	done chan struct{}
}

func NewWorker(s store.Store, cfg config.Webhooks, log *logging.Logger) *Worker {
	max := cfg.MaxAttempts
	if max <= 0 {
		max = 10
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Second
	}
	return &Worker{
		Store:       s,
		HTTP:        &http.Client{Timeout: timeout},
		Log:         log,
		Stop:        make(chan struct{}),
		MaxAttempts: max,
		Interval:    interval,
		BatchSize:   50,
	}
}

func (w *Worker) Start() {
	w.done = make(chan struct{})
	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-w.Stop:
				return
			case <-ticker.C:
				w.processOnce()
			}
		}
	}()
}

// Shutdown stops the poll loop and waits for the current batch.
func (w *Worker) Shutdown() {
	w.once.Do(func() { close(w.Stop) })
	if w.done != nil {
		<-w.done
	}
}

func (w *Worker) processOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	items, err := w.Store.FetchDueWebhookDeliveries(ctx, w.BatchSize)
	if err != nil {
		w.Log.Errorf("webhooks: fetch due: %v", err)
		return
	}
	for _, it := range items {
		w.deliver(ctx, it)
	}
}

func (w *Worker) deliver(ctx context.Context, it store.WebhookDelivery) {
	success := false
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, it.URL, bytes.NewReader(it.Payload))
	if err != nil {
		_ = w.Store.FailWebhookDelivery(ctx, it.ID, err.Error(), 0, 0)
		metrics.WebhookDeliveries.WithLabelValues(it.EventType, "invalid").Inc()
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEventType, it.EventType)
	if it.Secret != "" {
		req.Header.Set(HeaderSignature, Sign(it.Secret, it.Payload))
	}
	start := time.Now()
	resp, err := w.HTTP.Do(req)
	latency := int(time.Since(start).Milliseconds())
	code := 0
	if err == nil && resp != nil {
		code = resp.StatusCode
		if resp.Body != nil {
			_ = resp.Body.Close()
		}
		success = code >= 200 && code < 300
	}
	lastErr := ""
	if err != nil {
		lastErr = err.Error()
	} else if !success {
		lastErr = "status " + strconv.Itoa(code)
	}

	status := "delivered"
	switch {
	case success:
		_ = w.Store.MarkWebhookDelivery(ctx, it.ID, true, nil, "", code, latency)
	case it.Attempts+1 >= w.MaxAttempts:
		status = "failed"
		w.Log.Infof("webhooks: giving up on %s (%s) after %d attempts: %s", it.ID, it.EventType, it.Attempts+1, lastErr)
		_ = w.Store.FailWebhookDelivery(ctx, it.ID, lastErr, code, latency)
	default:
		status = "retry"
		next := time.Now().Add(nextBackoff(it.Attempts))
		w.Log.Debugf("webhooks: %s attempt %d failed: %s", it.ID, it.Attempts+1, lastErr)
		_ = w.Store.MarkWebhookDelivery(ctx, it.ID, false, &next, lastErr, code, latency)
	}
	metrics.WebhookDeliveries.WithLabelValues(it.EventType, status).Inc()
	metrics.WebhookLatency.WithLabelValues(it.EventType, status).Observe(float64(latency))
}

func nextBackoff(attempts int) time.Duration {
	if attempts < 0 {
		attempts = 0
	}
	if attempts > 10 {
		attempts = 10
	}
	base := time.Second * time.Duration(1<<attempts)
	if base > time.Hour {
		base = time.Hour
	}
	return base
}
