package opt

import (
	"math/rand"
	"time"

	"carpsolver/internal/model"
)

// Report is a solution published by a worker.
type Report struct {
	Worker   int
	Cost     int
	Solution model.Solution
	Elapsed  time.Duration
	Final    bool
}

// Metrics summarizes one worker's run.
type Metrics struct {
	Worker int   `json:"worker"`
	Seed   int64 `json:"seed"`
	Rounds int   `json:"rounds"`
	Stats
	Reports  int `json:"reports"`
	BestCost int `json:"bestCost"`
}

// WorkerConfig parameterizes a single search worker.
type WorkerConfig struct {
	ID          int
	Seed        int64
	Budget      time.Duration
	Mode        Mode
	Annealer    Annealer
	AnnealSlice time.Duration
	MaxRounds   int // zero means until the budget runs out
}

// Worker is one independent multi-start search with a private generator
// and a private task order. The Problem is shared read-only.
type Worker struct {
	p     *Problem
	cfg   WorkerConfig
	rng   *rand.Rand
	order []int
}

func NewWorker(p *Problem, cfg WorkerConfig) *Worker {
	if cfg.Mode == "" {
		cfg.Mode = ModeAnnealIntensify
	}
	return &Worker{p: p, cfg: cfg, rng: rand.New(rand.NewSource(cfg.Seed)), order: Identity(len(p.Tasks))}
}

// Run searches until the worker's budget is spent or stop is closed; a
// round in progress always completes. Every improvement is offered to out
// without blocking, and the final best is delivered unless stop is closed.
func (w *Worker) Run(out chan<- Report, stop <-chan struct{}) Metrics {
	start := time.Now()
	deadline := start.Add(w.cfg.Budget)
	m := Metrics{Worker: w.cfg.ID, Seed: w.cfg.Seed}
	var best model.Solution
	have := false

	for w.cfg.Budget > 0 && time.Now().Before(deadline) && (w.cfg.MaxRounds <= 0 || m.Rounds < w.cfg.MaxRounds) {
		if stopped(stop) {
			break
		}
		sol, err := w.round(deadline, &m.Stats)
		if err != nil {
			break
		}
		m.Rounds++
		if !have || sol.Cost < best.Cost {
			best, have = sol, true
			select {
			case out <- Report{Worker: w.cfg.ID, Cost: sol.Cost, Solution: sol.Clone(), Elapsed: time.Since(start)}:
				m.Reports++
			default:
			}
		}
	}
	if !have {
		sol, err := Build(w.p, Identity(len(w.p.Tasks)))
		if err != nil {
			return m
		}
		best = sol
	}
	m.BestCost = best.Cost
	select {
	case out <- Report{Worker: w.cfg.ID, Cost: best.Cost, Solution: best, Elapsed: time.Since(start), Final: true}:
		m.Reports++
	case <-stop:
	}
	return m
}

func stopped(stop <-chan struct{}) bool {
	select {
	case <-stop:
		return true
	default:
		return false
	}
}

// round is shuffle, build, anneal, then intensify from the best found.
func (w *Worker) round(deadline time.Time, st *Stats) (model.Solution, error) {
	w.rng.Shuffle(len(w.order), func(i, j int) { w.order[i], w.order[j] = w.order[j], w.order[i] })
	sol, err := Build(w.p, w.order)
	if err != nil {
		return sol, err
	}
	e := NewEngine(w.p, sol, w.rng)
	if w.cfg.Mode.anneals() {
		w.cfg.Annealer.Anneal(e, w.cfg.AnnealSlice, deadline)
	}
	if w.cfg.Mode.intensifies() {
		e.Restart()
		w.cfg.Annealer.Intensify(e, deadline)
	}
	st.Attempts += e.Stats.Attempts
	st.Accepted += e.Stats.Accepted
	st.Improvements += e.Stats.Improvements
	st.AcceptedWorse += e.Stats.AcceptedWorse
	st.Infeasible += e.Stats.Infeasible
	return e.Best(), nil
}
