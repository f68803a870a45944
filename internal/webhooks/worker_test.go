package webhooks

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carpsolver/internal/config"
	"carpsolver/internal/logging"
	"carpsolver/internal/store"
)

type recordStore struct {
	*store.Memory
	mu    sync.Mutex
	marks []MarkRec
	fails []FailRec
}
type MarkRec struct {
	ID            string
	Success       bool
	Code, Latency int
	LastErr       string
}
type FailRec struct {
	ID            string
	Code, Latency int
	LastErr       string
}

func (r *recordStore) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.marks = append(r.marks, MarkRec{ID: id, Success: success, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.MarkWebhookDelivery(ctx, id, success, nextAttemptAt, lastError, responseCode, latencyMs)
}
func (r *recordStore) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	r.mu.Lock()
	r.fails = append(r.fails, FailRec{ID: id, Code: responseCode, Latency: latencyMs, LastErr: lastError})
	r.mu.Unlock()
	return r.Memory.FailWebhookDelivery(ctx, id, lastError, responseCode, latencyMs)
}

func newTestWorker(s store.Store, client *http.Client, max int) *Worker {
	w := NewWorker(s, config.Webhooks{MaxAttempts: max}, logging.Discard())
	w.HTTP = client
	return w
}

func TestWorkerProcessOnce_SuccessAndSignature(t *testing.T) {
	var gotSig, gotType string
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSig = r.Header.Get(HeaderSignature)
		gotType = r.Header.Get(HeaderEventType)
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(200)
	}))
	defer srv.Close()

	rs := &recordStore{Memory: store.NewMemory()}
	w := newTestWorker(rs, srv.Client(), 3)
	pub := NewPublisher(rs)
	id, err := pub.Emit(context.Background(), "run1", EventRunCompleted, srv.URL, "secret", map[string]int{"cost": 316})
	require.NoError(t, err)
	require.NotEmpty(t, id)

	w.processOnce()

	assert.Equal(t, EventRunCompleted, gotType)
	assert.True(t, Verify("secret", body, gotSig))
	var ev Event
	require.NoError(t, json.Unmarshal(body, &ev))
	assert.Equal(t, "run1", ev.RunID)
	require.Len(t, rs.marks, 1)
	assert.True(t, rs.marks[0].Success)
}

func TestWorkerProcessOnce_RetryThenFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(500) }))
	defer srv.Close()
	rs := &recordStore{Memory: store.NewMemory()}
	w := newTestWorker(rs, srv.Client(), 2)
	_, err := rs.Memory.EnqueueWebhook(context.Background(), "run1", EventRunFailed, srv.URL, "", []byte(`{}`))
	require.NoError(t, err)

	w.processOnce()
	require.Len(t, rs.marks, 1)
	assert.False(t, rs.marks[0].Success)
	assert.Equal(t, "status 500", rs.marks[0].LastErr)
	assert.Empty(t, rs.fails)

	// force the retry due now
	ds, _ := rs.ListWebhookDeliveries(context.Background(), "run1", store.DeliveryRetry)
	require.Len(t, ds, 1)
	now := time.Now().Add(-time.Second)
	require.NoError(t, rs.Memory.MarkWebhookDelivery(context.Background(), ds[0].ID, false, &now, "", 500, 0))

	w.processOnce()
	require.Len(t, rs.fails, 1)
	assert.Equal(t, 500, rs.fails[0].Code)
}

func TestPublisherSkipsWithoutURL(t *testing.T) {
	m := store.NewMemory()
	id, err := NewPublisher(m).Emit(context.Background(), "run1", EventRunCompleted, "", "", nil)
	require.NoError(t, err)
	assert.Empty(t, id)
	ds, _ := m.ListWebhookDeliveries(context.Background(), "", "")
	assert.Empty(t, ds)
}

func TestStartShutdown(t *testing.T) {
	var hits int
	var mu sync.Mutex
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		hits++
		mu.Unlock()
	}))
	defer srv.Close()
	m := store.NewMemory()
	w := newTestWorker(m, srv.Client(), 3)
	w.Interval = 10 * time.Millisecond
	_, err := m.EnqueueWebhook(context.Background(), "r", EventRunCompleted, srv.URL, "", []byte(`{"id":"e"}`))
	require.NoError(t, err)
	w.Start()
	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return hits == 1
	}, 2*time.Second, 10*time.Millisecond)
	w.Shutdown()
	w.Shutdown()
}

func TestNextBackoff(t *testing.T) {
	assert.Equal(t, time.Second, nextBackoff(-1))
	assert.Equal(t, 4*time.Second, nextBackoff(2))
	assert.Equal(t, 1024*time.Second, nextBackoff(50))
}
