package store

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"carpsolver/internal/model"
	"carpsolver/internal/opt"
)

//go:embed schema.sql
var schema string

// SQL is a database/sql backed store. Queries are written with '?'
// placeholders and rebound for Postgres. Times are stored as unix
// milliseconds so both dialects share one schema.
type SQL struct {
	db       *sql.DB
	postgres bool
}

// NewPostgres opens a Postgres store through the pgx stdlib driver.
func NewPostgres(dsn string) (*SQL, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	return &SQL{db: db, postgres: true}, nil
}

// NewSQLite opens (and creates when missing) a SQLite file store.
func NewSQLite(path string) (*SQL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// single writer; avoids SQLITE_BUSY under concurrent handlers
	db.SetMaxOpenConns(1)
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}
	s := &SQL{db: db}
	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *SQL) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (s *SQL) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }
func (s *SQL) Close() error { return s.db.Close() }

// rebind turns '?' placeholders into $n for Postgres.
func (s *SQL) rebind(q string) string {
	if !s.postgres {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQL) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(q), args...)
}

func (s *SQL) query(ctx context.Context, q string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(q), args...)
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

func toJSON(v any) string {
	if v == nil {
		return ""
	}
	b, _ := json.Marshal(v)
	return string(b)
}

const runColumns = `id, instance, status, seed, workers, termination_ms, cost, routes, fallback, reports, error, callback_url, system, created_at, finished_at`

func (s *SQL) CreateRun(ctx context.Context, r model.Run) (model.Run, error) {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	if r.Status == "" {
		r.Status = model.RunQueued
	}
	var finished any
	if r.FinishedAt != nil {
		finished = millis(*r.FinishedAt)
	}
	var routes any
	if r.Routes != nil {
		routes = r.Routes
	}
	var sys any
	if r.System != nil {
		sys = r.System
	}
	_, err := s.exec(ctx, `INSERT INTO runs (`+runColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		r.ID, r.Instance, r.Status, r.Seed, r.Workers, r.TerminationMs, r.Cost, toJSON(routes), r.Fallback,
		r.Reports, r.Error, r.CallbackURL, toJSON(sys), millis(r.CreatedAt), finished)
	if err != nil {
		return model.Run{}, err
	}
	return r, nil
}

func (s *SQL) UpdateRun(ctx context.Context, r model.Run) error {
	var finished any
	if r.FinishedAt != nil {
		finished = millis(*r.FinishedAt)
	}
	var routes any
	if r.Routes != nil {
		routes = r.Routes
	}
	var sys any
	if r.System != nil {
		sys = r.System
	}
	res, err := s.exec(ctx, `UPDATE runs SET status=?, workers=?, cost=?, routes=?, fallback=?, reports=?, error=?, system=?, finished_at=? WHERE id=?`,
		r.Status, r.Workers, r.Cost, toJSON(routes), r.Fallback, r.Reports, r.Error, toJSON(sys), finished, r.ID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (model.Run, error) {
	var r model.Run
	var routes, sys string
	var created int64
	var finished sql.NullInt64
	if err := row.Scan(&r.ID, &r.Instance, &r.Status, &r.Seed, &r.Workers, &r.TerminationMs, &r.Cost, &routes,
		&r.Fallback, &r.Reports, &r.Error, &r.CallbackURL, &sys, &created, &finished); err != nil {
		return model.Run{}, err
	}
	if routes != "" {
		if err := json.Unmarshal([]byte(routes), &r.Routes); err != nil {
			return model.Run{}, fmt.Errorf("run %s routes: %w", r.ID, err)
		}
	}
	if sys != "" {
		var si model.SysInfo
		if err := json.Unmarshal([]byte(sys), &si); err == nil {
			r.System = &si
		}
	}
	r.CreatedAt = fromMillis(created)
	if finished.Valid {
		t := fromMillis(finished.Int64)
		r.FinishedAt = &t
	}
	return r, nil
}

func (s *SQL) GetRun(ctx context.Context, id string) (model.Run, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+runColumns+` FROM runs WHERE id=?`), id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Run{}, ErrNotFound
	}
	return r, err
}

// ListRuns pages newest first; the cursor is an offset.
func (s *SQL) ListRuns(ctx context.Context, status, cursor string, limit int) ([]model.Run, string, error) {
	if limit <= 0 || limit > 500 {
		limit = defaultPageSize
	}
	offset, _ := strconv.Atoi(cursor)
	q := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if status != "" {
		q += ` WHERE status=?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit+1, offset)
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, "", err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	next := ""
	if len(out) > limit {
		out = out[:limit]
		next = strconv.Itoa(offset + limit)
	}
	return out, next, nil
}

func (s *SQL) SaveRunMetrics(ctx context.Context, runID string, ms []opt.Metrics) error {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return err
	}
	_, err := s.exec(ctx, `INSERT INTO run_metrics (run_id, metrics) VALUES (?,?)
		ON CONFLICT (run_id) DO UPDATE SET metrics=excluded.metrics`, runID, toJSON(ms))
	return err
}

func (s *SQL) GetRunMetrics(ctx context.Context, runID string) ([]opt.Metrics, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT metrics FROM run_metrics WHERE run_id=?`), runID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var ms []opt.Metrics
	if err := json.Unmarshal([]byte(raw), &ms); err != nil {
		return nil, err
	}
	return ms, nil
}

// Webhook deliveries
func (s *SQL) EnqueueWebhook(ctx context.Context, runID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := s.exec(ctx, `INSERT INTO webhook_deliveries (id, run_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
		VALUES (?,?,?,?,?,?,?,0,?,?)
		ON CONFLICT (run_id, event_type, url, dedup_key) DO NOTHING`,
		id, runID, eventType, url, secret, string(payload), DeliveryPending, millis(time.Now()), dk)
	if err != nil {
		return "", err
	}
	return id, nil
}

const deliveryColumns = `id, run_id, event_type, url, secret, payload, status, attempts, next_attempt_at, last_error, response_code, latency_ms`

func scanDeliveries(rows *sql.Rows) ([]WebhookDelivery, error) {
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		var payload string
		var next int64
		if err := rows.Scan(&d.ID, &d.RunID, &d.EventType, &d.URL, &d.Secret, &payload, &d.Status, &d.Attempts,
			&next, &d.LastError, &d.ResponseCode, &d.LatencyMs); err != nil {
			return nil, err
		}
		d.Payload = []byte(payload)
		d.NextAttemptAt = fromMillis(next)
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *SQL) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	rows, err := s.query(ctx, `SELECT `+deliveryColumns+` FROM webhook_deliveries
		WHERE status IN (?,?) AND next_attempt_at <= ? ORDER BY next_attempt_at ASC LIMIT ?`,
		DeliveryPending, DeliveryRetry, millis(time.Now()), limit)
	if err != nil {
		return nil, err
	}
	return scanDeliveries(rows)
}

func (s *SQL) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if success {
		_, err := s.exec(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status=?, response_code=?, latency_ms=? WHERE id=?`,
			DeliveryDelivered, responseCode, latencyMs, id)
		return err
	}
	next := time.Now().Add(time.Minute)
	if nextAttemptAt != nil {
		next = *nextAttemptAt
	}
	_, err := s.exec(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status=?, last_error=?, next_attempt_at=?, response_code=?, latency_ms=? WHERE id=?`,
		DeliveryRetry, lastError, millis(next), responseCode, latencyMs, id)
	return err
}

func (s *SQL) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := s.exec(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status=?, last_error=?, response_code=?, latency_ms=? WHERE id=?`,
		DeliveryFailed, lastError, responseCode, latencyMs, id)
	return err
}

func (s *SQL) ListWebhookDeliveries(ctx context.Context, runID, status string) ([]WebhookDelivery, error) {
	q := `SELECT ` + deliveryColumns + ` FROM webhook_deliveries WHERE 1=1`
	args := []any{}
	if runID != "" {
		q += ` AND run_id=?`
		args = append(args, runID)
	}
	if status != "" {
		q += ` AND status=?`
		args = append(args, status)
	}
	q += ` ORDER BY next_attempt_at ASC, id ASC`
	rows, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return scanDeliveries(rows)
}
