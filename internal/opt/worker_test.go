package opt

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerZeroBudgetPublishesGreedyOnce(t *testing.T) {
	p := mustProblem(t, randomInstance(rand.New(rand.NewSource(2)), 12, 25, 20))
	greedy, err := Build(p, Identity(len(p.Tasks)))
	require.NoError(t, err)

	for _, budget := range []time.Duration{0, -time.Second} {
		out := make(chan Report, 8)
		w := NewWorker(p, WorkerConfig{ID: 3, Seed: 1, Budget: budget, Annealer: DefaultAnnealer()})
		m := w.Run(out, make(chan struct{}))
		require.Len(t, out, 1)
		r := <-out
		assert.True(t, r.Final)
		assert.Equal(t, 3, r.Worker)
		assert.Equal(t, greedy, r.Solution)
		assert.Equal(t, greedy.Cost, r.Cost)
		assert.Zero(t, m.Rounds)
		assert.Equal(t, 1, m.Reports)
	}
}

func TestWorkerPublishesImprovementsThenFinal(t *testing.T) {
	p := mustProblem(t, randomInstance(rand.New(rand.NewSource(6)), 15, 30, 20))
	a := DefaultAnnealer()
	a.MaxAttempts = 500
	a.IntensifyAttempts = 500
	out := make(chan Report, 64)
	w := NewWorker(p, WorkerConfig{Seed: 9, Budget: 5 * time.Second, Annealer: a, AnnealSlice: time.Second, MaxRounds: 5})
	m := w.Run(out, make(chan struct{}))
	close(out)

	var reports []Report
	for r := range out {
		requireFeasible(t, p, r.Solution)
		reports = append(reports, r)
	}
	require.NotEmpty(t, reports)
	last := reports[len(reports)-1]
	assert.True(t, last.Final)
	for i := 1; i < len(reports)-1; i++ {
		assert.Less(t, reports[i].Cost, reports[i-1].Cost)
	}
	assert.Equal(t, 5, m.Rounds)
	assert.Equal(t, m.BestCost, last.Cost)
	assert.Equal(t, len(reports), m.Reports)
}

func TestWorkerFinalPublishGivesUpOnStop(t *testing.T) {
	p := mustProblem(t, fourVertex(10))
	out := make(chan Report)
	stop := make(chan struct{})
	close(stop)
	done := make(chan Metrics, 1)
	go func() { done <- NewWorker(p, WorkerConfig{}).Run(out, stop) }()
	select {
	case m := <-done:
		assert.Zero(t, m.Reports)
	case <-time.After(2 * time.Second):
		t.Fatal("worker blocked on final publish")
	}
}
