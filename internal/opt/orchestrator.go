package opt

import (
	"context"
	"runtime"
	"sync"
	"time"

	"carpsolver/internal/model"
)

const (
	DefaultMaxWorkers   = 8
	SeedStride          = 10007
	DefaultSafetyMargin = 50 * time.Millisecond
	DefaultWorkerMargin = 300 * time.Millisecond
	DefaultAnnealSlice  = 2 * time.Second

	singleWorkerBelow = 1500 * time.Millisecond
	minWorkerBudget   = 100 * time.Millisecond
)

// Options configures a parallel solve.
type Options struct {
	Termination  time.Duration
	Seed         int64
	Workers      int // zero picks min(MaxWorkers, GOMAXPROCS); never above GOMAXPROCS
	MaxWorkers   int
	SafetyMargin time.Duration
	WorkerMargin time.Duration
	Mode         Mode
	Annealer     Annealer
	AnnealSlice  time.Duration
	MaxRounds    int
	// OnReport observes every report on the collecting goroutine.
	OnReport func(Report)
}

// Result is the best solution found and how it was obtained.
type Result struct {
	Solution model.Solution
	Workers  int
	Budget   time.Duration
	Reports  int
	Fallback bool
	Elapsed  time.Duration
	Metrics  []Metrics
}

// SeedFor derives worker i's seed from the base seed.
func SeedFor(base int64, i int) int64 { return base + SeedStride*int64(i) }

func (o Options) withDefaults() Options {
	if o.MaxWorkers <= 0 {
		o.MaxWorkers = DefaultMaxWorkers
	}
	if o.SafetyMargin <= 0 {
		o.SafetyMargin = DefaultSafetyMargin
	}
	if o.WorkerMargin <= 0 {
		o.WorkerMargin = DefaultWorkerMargin
	}
	if o.AnnealSlice <= 0 {
		o.AnnealSlice = DefaultAnnealSlice
	}
	if o.Mode == "" {
		o.Mode = ModeAnnealIntensify
	}
	if o.Annealer == (Annealer{}) {
		o.Annealer = DefaultAnnealer()
	}
	return o
}

// Plan returns the worker count and per-worker budget for the options.
func Plan(o Options) (int, time.Duration) {
	o = o.withDefaults()
	procs := runtime.GOMAXPROCS(0)
	n := min(o.Workers, procs)
	if n <= 0 {
		n = min(o.MaxWorkers, procs)
	}
	if o.Termination < singleWorkerBelow {
		n = 1
	}
	budget := o.Termination - o.WorkerMargin
	if budget <= minWorkerBudget {
		n, budget = 1, o.Termination-o.SafetyMargin
	}
	return max(n, 1), budget
}

// Solve runs independent workers in parallel and returns the cheapest
// solution reported before the deadline. If nothing arrives in time it
// falls back to a single greedy build, so a solvable problem always
// yields a feasible answer.
func Solve(ctx context.Context, p *Problem, opts Options) (Result, error) {
	opts = opts.withDefaults()
	start := time.Now()
	n, budget := Plan(opts)
	res := Result{Workers: n, Budget: budget}

	out := make(chan Report, 4*n)
	stop := make(chan struct{})
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		metrics []Metrics
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			w := NewWorker(p, WorkerConfig{
				ID:          i,
				Seed:        SeedFor(opts.Seed, i),
				Budget:      budget,
				Mode:        opts.Mode,
				Annealer:    opts.Annealer,
				AnnealSlice: opts.AnnealSlice,
				MaxRounds:   opts.MaxRounds,
			})
			m := w.Run(out, stop)
			mu.Lock()
			metrics = append(metrics, m)
			mu.Unlock()
		}(i)
	}
	allDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(allDone)
	}()

	timer := time.NewTimer(time.Until(start.Add(opts.Termination - opts.SafetyMargin)))
	defer timer.Stop()

	have := false
	take := func(r Report) {
		res.Reports++
		if opts.OnReport != nil {
			opts.OnReport(r)
		}
		if !have || r.Cost < res.Solution.Cost {
			res.Solution, have = r.Solution, true
		}
	}
collect:
	for {
		select {
		case r := <-out:
			take(r)
		case <-allDone:
			for {
				select {
				case r := <-out:
					take(r)
				default:
					break collect
				}
			}
		case <-timer.C:
			break collect
		case <-ctx.Done():
			break collect
		}
	}
	close(stop)

	if !have {
		sol, err := Build(p, Identity(len(p.Tasks)))
		if err != nil {
			return res, err
		}
		res.Solution, res.Fallback = sol, true
	}
	mu.Lock()
	res.Metrics = append([]Metrics(nil), metrics...)
	mu.Unlock()
	res.Elapsed = time.Since(start)
	return res, nil
}
