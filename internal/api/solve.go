package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"carpsolver/internal/format"
	"carpsolver/internal/instance"
	"carpsolver/internal/metrics"
	"carpsolver/internal/model"
	"carpsolver/internal/opt"
	"carpsolver/internal/sysinfo"
	"carpsolver/internal/webhooks"
)

// SolveHandler handles POST /v1/solve.
func (s *Server) SolveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.authorize(w, r, "solver"); !ok {
		return
	}
	if s.Limiter != nil && !s.Limiter.Allow() {
		metrics.RateLimited.Inc()
		w.Header().Set("Retry-After", "1")
		writeProblem(w, http.StatusTooManyRequests, "Rate limited", "too many solve requests", r.URL.Path)
		return
	}
	var req model.SolveRequest
	if err := readJSON(w, r, &req); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	if err := validateSolveRequest(&req, s.Config.Server.MaxTermination); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid solve request", err.Error(), r.URL.Path)
		return
	}
	in, err := instance.Parse(strings.NewReader(req.Instance))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid instance", err.Error(), r.URL.Path)
		return
	}
	p, err := opt.NewProblem(in)
	if err != nil {
		status := http.StatusInternalServerError
		if unsolvable(err) {
			status = http.StatusUnprocessableEntity
		}
		writeProblem(w, status, "Unsolvable instance", err.Error(), r.URL.Path)
		return
	}

	opts := s.options(req)
	run, err := s.Store.CreateRun(r.Context(), model.Run{
		Instance:      in.Name,
		Status:        model.RunQueued,
		Seed:          opts.Seed,
		TerminationMs: opts.Termination.Milliseconds(),
		CallbackURL:   req.CallbackURL,
	})
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
		return
	}

	if req.Async {
		s.runs.Add(1)
		go func() {
			defer s.runs.Done()
			_, _ = s.execute(s.bg, run, p, opts, req.CallbackSecret)
		}()
		w.Header().Set("Location", "/v1/runs/"+run.ID)
		writeJSON(w, http.StatusAccepted, map[string]any{"runId": run.ID, "status": model.RunQueued})
		return
	}

	res, err := s.execute(r.Context(), run, p, opts, req.CallbackSecret)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Solve failed", err.Error(), r.URL.Path)
		return
	}
	routes := res.Solution.Pairs(p.Tasks)
	writeJSON(w, http.StatusOK, model.SolveResponse{
		RunID:     run.ID,
		Cost:      res.Solution.Cost,
		Routes:    routes,
		Solution:  format.String(routes, res.Solution.Cost),
		Fallback:  res.Fallback,
		Workers:   res.Workers,
		ElapsedMs: res.Elapsed.Milliseconds(),
	})
}

// options merges request overrides into the configured solver settings.
func (s *Server) options(req model.SolveRequest) opt.Options {
	sc := s.Config.Solver
	termination := sc.Termination
	if req.TerminationSec > 0 {
		termination = time.Duration(req.TerminationSec * float64(time.Second))
	}
	seed := sc.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	o := sc.Options(termination, seed)
	if req.Workers > 0 {
		o.Workers = req.Workers
	}
	return o
}

// execute runs the solver for an archived run, streams its events, and
// records the outcome. The returned error is an archive failure; solver
// failures are recorded on the run.
func (s *Server) execute(ctx context.Context, run model.Run, p *opt.Problem, opts opt.Options, secret string) (opt.Result, error) {
	metrics.ActiveRuns.Inc()
	defer metrics.ActiveRuns.Dec()

	run.Status = model.RunRunning
	if err := s.Store.UpdateRun(ctx, run); err != nil {
		s.Log.Errorf("[run %s] mark running: %v", run.ID, err)
	}
	s.Broker.Publish(run.ID, SSEEvent{Type: EventRunStarted, Data: map[string]any{
		"runId": run.ID, "instance": run.Instance, "tasks": len(p.Tasks), "terminationMs": run.TerminationMs,
	}})
	s.Log.Infof("[run %s] start instance=%s tasks=%d termination=%v seed=%d", run.ID, run.Instance, len(p.Tasks), opts.Termination, opts.Seed)

	best := -1
	opts.OnReport = func(rep opt.Report) {
		metrics.WorkerReports.Inc()
		if best >= 0 && rep.Cost >= best {
			return
		}
		best = rep.Cost
		s.Log.Debugf("[run %s] improved cost=%d worker=%d elapsed=%v", run.ID, rep.Cost, rep.Worker, rep.Elapsed)
		s.Broker.Publish(run.ID, SSEEvent{Type: EventRunImproved, Data: map[string]any{
			"runId": run.ID, "cost": rep.Cost, "worker": rep.Worker, "elapsedMs": rep.Elapsed.Milliseconds(),
		}})
	}

	res, err := opt.Solve(ctx, p, opts)
	// archive on a fresh context so a cancelled request still records the run
	actx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now().UTC()
	sys := sysinfo.Get()
	run.FinishedAt = &now
	run.System = &sys
	run.Workers = res.Workers
	run.Reports = res.Reports

	if err != nil {
		run.Status = model.RunFailed
		run.Error = err.Error()
		metrics.ObserveSolve(run.Instance, 0, "error", res.Elapsed)
		s.Log.Errorf("[run %s] failed: %v", run.ID, err)
		s.Broker.Publish(run.ID, SSEEvent{Type: EventRunFailed, Data: map[string]any{"runId": run.ID, "error": run.Error}})
		if _, werr := s.Pub.Emit(actx, run.ID, webhooks.EventRunFailed, run.CallbackURL, secret, run); werr != nil {
			s.Log.Errorf("[run %s] enqueue webhook: %v", run.ID, werr)
		}
		return res, errors.Join(err, s.Store.UpdateRun(actx, run))
	}

	run.Status = model.RunCompleted
	run.Cost = res.Solution.Cost
	run.Routes = res.Solution.Pairs(p.Tasks)
	run.Fallback = res.Fallback
	outcome := "ok"
	if res.Fallback {
		outcome = "fallback"
	}
	metrics.ObserveSolve(run.Instance, run.Cost, outcome, res.Elapsed)
	s.Log.Infof("[run %s] done cost=%d workers=%d reports=%d fallback=%t elapsed=%v",
		run.ID, run.Cost, res.Workers, res.Reports, res.Fallback, res.Elapsed)

	if err := s.Store.UpdateRun(actx, run); err != nil {
		return res, err
	}
	if err := s.Store.SaveRunMetrics(actx, run.ID, res.Metrics); err != nil {
		s.Log.Errorf("[run %s] save metrics: %v", run.ID, err)
	}
	s.Broker.Publish(run.ID, SSEEvent{Type: EventRunCompleted, Data: map[string]any{
		"runId": run.ID, "cost": run.Cost, "fallback": run.Fallback, "workers": run.Workers, "elapsedMs": res.Elapsed.Milliseconds(),
	}})
	if _, err := s.Pub.Emit(actx, run.ID, webhooks.EventRunCompleted, run.CallbackURL, secret, run); err != nil {
		s.Log.Errorf("[run %s] enqueue webhook: %v", run.ID, err)
	}
	return res, nil
}
