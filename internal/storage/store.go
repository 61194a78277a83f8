// Package storage is the best-effort SQLite persistence layer: alert
// history and stats snapshots stream through a batched async writer, and
// the conversation log is saved and loaded synchronously. Storage
// failures degrade to warnings; the in-memory engine never depends on it.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/agenttop/agenttop/internal/alerts"
	"github.com/agenttop/agenttop/internal/stats"
	"github.com/agenttop/agenttop/internal/telemetry"
)

const (
	writeChannelSize = 256
	batchSize        = 32
	flushInterval    = 100 * time.Millisecond
)

type writeOp struct {
	alert    *alerts.Alert
	snapshot *stats.DashboardStats
}

// Store persists alerts, stats snapshots, and the conversation log to
// SQLite. Alert and snapshot writes are asynchronous and may be dropped
// under backpressure; history save/load is synchronous.
type Store struct {
	db            *sql.DB
	retentionDays int

	writeChan     chan writeOp
	doneChan      chan struct{}
	closed        atomic.Bool
	droppedWrites atomic.Int64
}

// Open creates a Store backed by the database at dbPath and starts the
// writer goroutine. Rows older than retentionDays are pruned at open.
func Open(dbPath string, retentionDays int) (*Store, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:            db,
		retentionDays: retentionDays,
		writeChan:     make(chan writeOp, writeChannelSize),
		doneChan:      make(chan struct{}),
	}

	if err := s.prune(); err != nil {
		log.Printf("WARNING: pruning old rows failed: %v", err)
	}

	go s.writerLoop()
	return s, nil
}

// PersistAlert implements alerts.Persister. The write is queued;
// when the queue is full the write is dropped with a warning.
func (s *Store) PersistAlert(alert alerts.Alert) {
	s.sendWrite(writeOp{alert: &alert})
}

// WriteStatsSnapshot queues a point-in-time copy of the dashboard
// aggregates.
func (s *Store) WriteStatsSnapshot(ds stats.DashboardStats) {
	s.sendWrite(writeOp{snapshot: &ds})
}

// DroppedWrites reports how many queued writes were discarded under
// backpressure.
func (s *Store) DroppedWrites() int64 {
	return s.droppedWrites.Load()
}

func (s *Store) sendWrite(op writeOp) {
	if s.closed.Load() {
		return
	}
	defer func() { _ = recover() }()
	select {
	case s.writeChan <- op:
	default:
		s.droppedWrites.Add(1)
		log.Printf("WARNING: storage write channel full, dropped write")
	}
}

func (s *Store) writerLoop() {
	defer close(s.doneChan)

	batch := make([]writeOp, 0, batchSize)
	flushTimer := time.NewTimer(flushInterval)
	defer flushTimer.Stop()

	for {
		select {
		case op, ok := <-s.writeChan:
			if !ok {
				if len(batch) > 0 {
					s.flushBatch(batch)
				}
				return
			}
			batch = append(batch, op)
			if len(batch) >= batchSize {
				s.flushBatch(batch)
				batch = batch[:0]
				flushTimer.Reset(flushInterval)
			}

		case <-flushTimer.C:
			if len(batch) > 0 {
				s.flushBatch(batch)
				batch = batch[:0]
			}
			flushTimer.Reset(flushInterval)
		}
	}
}

func (s *Store) flushBatch(batch []writeOp) {
	tx, err := s.db.Begin()
	if err != nil {
		log.Printf("ERROR: failed to begin transaction: %v", err)
		return
	}
	defer func() { _ = tx.Rollback() }()

	for _, op := range batch {
		if err := s.executeOp(tx, op); err != nil {
			log.Printf("ERROR: failed to execute write op: %v", err)
		}
	}

	if err := tx.Commit(); err != nil {
		log.Printf("ERROR: failed to commit transaction: %v", err)
	}
}

func (s *Store) executeOp(tx *sql.Tx, op writeOp) error {
	switch {
	case op.alert != nil:
		a := op.alert
		_, err := tx.Exec(
			"INSERT INTO alert_history (type, severity, message, fired_at) VALUES (?, ?, ?, ?)",
			string(a.Type), a.Severity, a.Message, a.Timestamp.UTC().Format(time.RFC3339),
		)
		return err
	case op.snapshot != nil:
		ds := op.snapshot
		_, err := tx.Exec(`
			INSERT INTO stats_snapshots (
				captured_at, total_api_calls, successful_api_calls, failed_api_calls,
				avg_response_ms, total_tokens, total_cost,
				total_tool_executions, avg_tool_ms, error_rate
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			time.Now().UTC().Format(time.RFC3339),
			ds.TotalAPICalls, ds.SuccessfulAPICalls, ds.FailedAPICalls,
			ds.AvgResponseTimeMS, ds.TotalTokens, ds.TotalCostUSD,
			ds.TotalToolExecutions, ds.AvgToolTimeMS, ds.ErrorRate,
		)
		return err
	default:
		return fmt.Errorf("empty write op")
	}
}

// SaveHistory replaces the persisted conversation log with the given
// entries. Implements the dashboard's HistorySink.
func (s *Store) SaveHistory(entries []telemetry.ConversationEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM history_entries"); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}

	for _, e := range entries {
		tags, err := json.Marshal(e.Tags)
		if err != nil {
			return fmt.Errorf("encoding tags for %s: %w", e.ID, err)
		}
		meta, err := json.Marshal(e.Metadata)
		if err != nil {
			return fmt.Errorf("encoding metadata for %s: %w", e.ID, err)
		}
		_, err = tx.Exec(`
			INSERT INTO history_entries (id, timestamp, role, content, token_count, tags, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Role),
			e.Content, e.TokenCount, string(tags), string(meta),
		)
		if err != nil {
			return fmt.Errorf("inserting entry %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing history: %w", err)
	}
	return nil
}

// LoadHistory reads the persisted conversation log, oldest first.
func (s *Store) LoadHistory() ([]telemetry.ConversationEntry, error) {
	rows, err := s.db.Query(`
		SELECT id, timestamp, role, content, token_count, tags, metadata
		FROM history_entries ORDER BY timestamp ASC`)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []telemetry.ConversationEntry
	for rows.Next() {
		var (
			e          telemetry.ConversationEntry
			ts, role   string
			tags, meta sql.NullString
		)
		if err := rows.Scan(&e.ID, &ts, &role, &e.Content, &e.TokenCount, &tags, &meta); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		if t, perr := time.Parse(time.RFC3339Nano, ts); perr == nil {
			e.Timestamp = t
		}
		e.Role = telemetry.Role(role)
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &e.Tags); err != nil {
				log.Printf("WARNING: decoding tags for %s: %v", e.ID, err)
			}
		}
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &e.Metadata); err != nil {
				log.Printf("WARNING: decoding metadata for %s: %v", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RecentAlerts returns the most recent persisted alerts, newest first.
func (s *Store) RecentAlerts(limit int) ([]alerts.Alert, error) {
	if limit < 1 {
		limit = alerts.MaxRetained
	}
	rows, err := s.db.Query(`
		SELECT type, severity, message, fired_at
		FROM alert_history ORDER BY fired_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying alerts: %w", err)
	}
	defer rows.Close()

	var out []alerts.Alert
	for rows.Next() {
		var (
			a       alerts.Alert
			typ, ts string
		)
		if err := rows.Scan(&typ, &a.Severity, &a.Message, &ts); err != nil {
			return nil, fmt.Errorf("scanning alert row: %w", err)
		}
		a.Type = alerts.Type(typ)
		if t, perr := time.Parse(time.RFC3339, ts); perr == nil {
			a.Timestamp = t
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// prune deletes alert and snapshot rows older than the retention window.
func (s *Store) prune() error {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays).UTC().Format(time.RFC3339)
	if _, err := s.db.Exec("DELETE FROM alert_history WHERE fired_at < ?", cutoff); err != nil {
		return fmt.Errorf("pruning alert_history: %w", err)
	}
	if _, err := s.db.Exec("DELETE FROM stats_snapshots WHERE captured_at < ?", cutoff); err != nil {
		return fmt.Errorf("pruning stats_snapshots: %w", err)
	}
	return nil
}

// Close drains pending writes and closes the database. Calling Close
// again is a no-op.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	close(s.writeChan)

	select {
	case <-s.doneChan:
	case <-time.After(10 * time.Second):
		log.Printf("ERROR: failed to drain writes within 10s, data may be lost")
	}

	if err := s.prune(); err != nil {
		log.Printf("WARNING: pruning old rows failed: %v", err)
	}
	return s.db.Close()
}
