package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"carpsolver/internal/format"
	"carpsolver/internal/model"
	"carpsolver/internal/opt"
	"carpsolver/internal/store"
)

const heartbeatEvery = 15 * time.Second

// RunsHandler handles GET /v1/runs
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/v1/runs" {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.authorize(w, r, "solver", "viewer"); !ok {
		return
	}
	q := r.URL.Query()
	limit := 100
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", v, r.URL.Path)
			return
		}
		limit = n
	}
	items, next, err := s.Store.ListRuns(r.Context(), q.Get("status"), q.Get("cursor"), limit)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
}

// RunByIDHandler handles GET /v1/runs/{id} and its sub-resources.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	rest := strings.TrimPrefix(path, "/v1/runs/")
	if rest == path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if _, ok := s.authorize(w, r, "solver", "viewer"); !ok {
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	run, err := s.Store.GetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "Run not found", id, path)
		return
	}
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), path)
		return
	}
	sub := strings.Join(parts[1:], "/")
	switch sub {
	case "":
		writeJSON(w, http.StatusOK, run)
	case "solution":
		if run.Status != model.RunCompleted {
			writeProblem(w, http.StatusConflict, "Run not completed", run.Status, path)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = format.Write(w, run.Routes, run.Cost)
	case "metrics":
		ms, err := s.Store.GetRunMetrics(r.Context(), id)
		if errors.Is(err, store.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Metrics not found", run.Status, path)
			return
		}
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Get metrics failed", err.Error(), path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"workers": ms, "totals": opt.Totals(ms)})
	case "webhooks":
		ds, err := s.Store.ListWebhookDeliveries(r.Context(), id, r.URL.Query().Get("status"))
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List deliveries failed", err.Error(), path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": ds})
	case "events/stream":
		s.streamSSE(w, r, run)
	case "events/ws":
		s.streamWS(w, r, run)
	default:
		writeProblem(w, http.StatusNotFound, "Not Found", sub, path)
	}
}

// finalEvent is the terminal event of an already finished run.
func finalEvent(run model.Run) (SSEEvent, bool) {
	switch run.Status {
	case model.RunCompleted:
		return SSEEvent{Type: EventRunCompleted, Data: map[string]any{
			"runId": run.ID, "cost": run.Cost, "fallback": run.Fallback, "workers": run.Workers,
		}}, true
	case model.RunFailed:
		return SSEEvent{Type: EventRunFailed, Data: map[string]any{"runId": run.ID, "error": run.Error}}, true
	}
	return SSEEvent{}, false
}

// subscribe attaches to a run's events. When the run already finished the
// channel is nil and the terminal event is returned instead.
func (s *Server) subscribe(r *http.Request, run model.Run) (chan SSEEvent, *SSEEvent) {
	if evt, done := finalEvent(run); done {
		return nil, &evt
	}
	ch := s.Broker.Subscribe(run.ID)
	// the run may have finished between the lookup and the subscription
	if cur, err := s.Store.GetRun(r.Context(), run.ID); err == nil {
		if evt, done := finalEvent(cur); done {
			s.Broker.Unsubscribe(run.ID, ch)
			return nil, &evt
		}
	}
	return ch, nil
}

func (s *Server) streamSSE(w http.ResponseWriter, r *http.Request, run model.Run) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeProblem(w, http.StatusInternalServerError, "Streaming unsupported", "", r.URL.Path)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	send := func(evt SSEEvent) {
		b, _ := json.Marshal(evt.Data)
		fmt.Fprintf(w, "event: %s\n", evt.Type)
		fmt.Fprintf(w, "data: %s\n\n", b)
		flusher.Flush()
	}
	heartbeat := func() {
		send(SSEEvent{Type: "heartbeat", Data: map[string]any{"runId": run.ID, "ts": time.Now().UTC().Format(time.RFC3339)}})
	}

	ch, final := s.subscribe(r, run)
	heartbeat()
	if final != nil {
		send(*final)
		return
	}
	defer s.Broker.Unsubscribe(run.ID, ch)
	ticker := time.NewTicker(heartbeatEvery)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case evt, ok := <-ch:
			if !ok {
				return
			}
			send(evt)
			if evt.terminal() {
				return
			}
		case <-ticker.C:
			heartbeat()
		}
	}
}
