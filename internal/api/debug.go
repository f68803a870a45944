package api

import (
	"context"
	"net/http"
	"time"

	"carpsolver/internal/buildinfo"
	"carpsolver/internal/sysinfo"
)

func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.authorize(w, r, "admin"); !ok {
		return
	}
	c := s.Config
	writeJSON(w, http.StatusOK, map[string]any{
		"build":  buildinfo.Info(),
		"system": sysinfo.Get(),
		"time":   time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"PORT":                 c.Server.Port,
			"AUTH_MODE":            s.Auth.Mode,
			"RATE_RPS":             c.Server.RateRPS,
			"RATE_BURST":           c.Server.RateBurst,
			"WEBHOOK_MAX_ATTEMPTS": c.Webhooks.MaxAttempts,
			"HAS_DATABASE_URL":     c.Store.DatabaseURL != "",
			"SQLITE_PATH":          c.Store.SQLitePath,
			"HAS_REDIS_URL":        c.Broker.RedisURL != "",
		},
	})
}

// SolverConfigHandler returns the effective solver defaults.
func (s *Server) SolverConfigHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/solver/config" || r.Method != http.MethodGet {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	sc := s.Config.Solver
	writeJSON(w, http.StatusOK, map[string]any{
		"defaults": map[string]any{
			"terminationSec":    sc.Termination.Seconds(),
			"seed":              sc.Seed,
			"workers":           sc.Workers,
			"maxWorkers":        sc.MaxWorkers,
			"mode":              sc.Mode,
			"initialTemp":       sc.Schedule.Initial,
			"floorTemp":         sc.Schedule.Floor,
			"annealSliceMs":     sc.AnnealSlice.Milliseconds(),
			"annealAttempts":    sc.AnnealAttempts,
			"intensifyAttempts": sc.IntensifyAttempts,
			"safetyMarginMs":    sc.SafetyMargin.Milliseconds(),
			"workerMarginMs":    sc.WorkerMargin.Milliseconds(),
		},
		"limits": map[string]any{
			"maxTerminationSec": s.Config.Server.MaxTermination.Seconds(),
			"maxWorkers":        maxRequestWorkers,
		},
	})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
	defer cancel()
	if err := s.Store.Ping(ctx); err != nil {
		writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
