package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"smart-pantry/internal/apiclient"
	"smart-pantry/internal/shared"
)

// Timestamps are stored as UTC text so sqlite date functions and string
// comparison both work on them.
const timeLayout = "2006-01-02 15:04:05"

// ExecutionMetric records metadata for a single operation.
type ExecutionMetric struct {
	Operation        string
	Model            string
	StatusCode       int
	PromptTokens     int
	CompletionTokens int
	LatencyMS        int64
	Timestamp        time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing, migrated database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(m ExecutionMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO execution_metrics (operation, model, status_code, prompt_tokens, completion_tokens, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Operation, m.Model, m.StatusCode, m.PromptTokens, m.CompletionTokens, m.LatencyMS, ts.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("failed to record metric: %w", err)
	}
	return nil
}

// RecordMeta records metrics directly from shared.CallMeta.
func (s *Store) RecordMeta(meta shared.CallMeta) error {
	return s.Record(MapUsage(meta))
}

// RequestObserver adapts the store to the API client's observer hook.
// Failures to record are logged and otherwise ignored.
func (s *Store) RequestObserver() apiclient.RequestObserver {
	return func(op string, status int, latency time.Duration, _ error) {
		err := s.RecordMeta(shared.CallMeta{Operation: op, StatusCode: status, Latency: latency})
		if err != nil {
			log.Printf("Warning: %v", err)
		}
	}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DailyUsage represents totals for a single day.
type DailyUsage struct {
	Date            string
	TotalPrompt     int
	TotalCompletion int
	TotalExecution  int
	Failures        int
	AvgLatencyMS    int64
}

// GetDailyUsage retrieves usage for the last N days, newest first.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := time.Now().UTC().AddDate(0, 0, -days).Format(timeLayout)
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT strftime('%Y-%m-%d', timestamp) AS day,
		       COALESCE(SUM(prompt_tokens), 0),
		       COALESCE(SUM(completion_tokens), 0),
		       COUNT(*),
		       COALESCE(SUM(CASE WHEN status_code <> 200 THEN 1 ELSE 0 END), 0),
		       COALESCE(CAST(AVG(latency_ms) AS INTEGER), 0)
		FROM execution_metrics
		WHERE timestamp >= ?
		GROUP BY day
		ORDER BY day DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		var day sql.NullString
		if err := rows.Scan(&day, &u.TotalPrompt, &u.TotalCompletion, &u.TotalExecution, &u.Failures, &u.AvgLatencyMS); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage: %w", err)
		}
		u.Date = "Unknown"
		if day.Valid {
			u.Date = day.String
		}
		results = append(results, u)
	}
	return results, rows.Err()
}

// Cleanup removes records older than the specified number of days and
// returns how many were deleted.
func (s *Store) Cleanup(olderThanDays int) (int64, error) {
	threshold := time.Now().UTC().AddDate(0, 0, -olderThanDays).Format(timeLayout)
	res, err := s.db.ExecContext(context.Background(), `DELETE FROM execution_metrics WHERE timestamp < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up metrics: %w", err)
	}
	return res.RowsAffected()
}

// MapUsage converts call metadata into an ExecutionMetric.
func MapUsage(meta shared.CallMeta) ExecutionMetric {
	return ExecutionMetric{
		Operation:        meta.Operation,
		Model:            meta.Usage.Model,
		StatusCode:       meta.StatusCode,
		PromptTokens:     meta.Usage.PromptTokens,
		CompletionTokens: meta.Usage.CompletionTokens,
		LatencyMS:        meta.Latency.Milliseconds(),
		Timestamp:        time.Now().UTC(),
	}
}
