package opt

import (
	"sort"
	"sync"
)

var (
	mu    sync.Mutex
	store = map[string][]Metrics{}
)

// RecordMetrics keeps the per-worker metrics of a run, ordered by worker.
func RecordMetrics(runID string, ms []Metrics) {
	cp := append([]Metrics(nil), ms...)
	sort.Slice(cp, func(i, j int) bool { return cp[i].Worker < cp[j].Worker })
	mu.Lock()
	store[runID] = cp
	mu.Unlock()
}

// GetMetrics returns the recorded metrics of a run, if any.
func GetMetrics(runID string) ([]Metrics, bool) {
	mu.Lock()
	defer mu.Unlock()
	ms, ok := store[runID]
	return append([]Metrics(nil), ms...), ok
}

// Totals folds per-worker metrics into one; BestCost is the minimum.
func Totals(ms []Metrics) Metrics {
	var t Metrics
	t.Worker = -1
	for i, m := range ms {
		t.Rounds += m.Rounds
		t.Attempts += m.Attempts
		t.Accepted += m.Accepted
		t.Improvements += m.Improvements
		t.AcceptedWorse += m.AcceptedWorse
		t.Infeasible += m.Infeasible
		t.Reports += m.Reports
		if i == 0 || m.BestCost < t.BestCost {
			t.BestCost = m.BestCost
		}
	}
	return t
}
