package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Delivery statuses.
const (
	DeliveryPending   = "pending"
	DeliveryRetry     = "retry"
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

type WebhookDelivery struct {
	ID            string    `json:"id"`
	RunID         string    `json:"runId"`
	EventType     string    `json:"eventType"`
	URL           string    `json:"url"`
	Secret        string    `json:"-"`
	Payload       []byte    `json:"-"`
	Status        string    `json:"status"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"nextAttemptAt"`
	LastError     string    `json:"lastError,omitempty"`
	ResponseCode  int       `json:"responseCode,omitempty"`
	LatencyMs     int       `json:"latencyMs,omitempty"`
}

// computeDedupKey uses the event id when the payload carries one and a
// short content hash otherwise.
func computeDedupKey(payload []byte) string {
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}
