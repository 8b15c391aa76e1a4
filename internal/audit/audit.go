// Package audit is an append-only SQLite log of queue lifecycle events —
// submissions, dispatches, drops, and terminations. It exists purely for
// forensics: the queue's own state is never read back from it, and it is
// never consulted to decide what to dispatch. That would resurrect the
// crash-recovery and persistence guarantees the design explicitly leaves
// out; see SPEC_FULL.md's Non-goals.
package audit

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/roach88/checkqueue/internal/clockseq"
)

//go:embed schema.sql
var schemaSQL string

// Kind classifies an audit event.
type Kind string

const (
	KindSubmitted   Kind = "submitted"
	KindRejected    Kind = "rejected"
	KindDispatched  Kind = "dispatched"
	KindCompleted   Kind = "completed"
	KindFailed      Kind = "failed"
	KindDropped     Kind = "dropped"
	KindStopped     Kind = "stopped"
	KindReset       Kind = "reset"
	KindDisposed    Kind = "disposed"
)

// Event is one row of the audit log.
type Event struct {
	ID        string
	Seq       int64
	Kind      Kind
	DocID     string
	NStart    int
	NEnd      int
	NCache    int
	NCheck    int
	Detail    string
	CreatedAt time.Time
}

// Log is an append-only SQLite-backed audit trail. A single Log is safe
// for concurrent use.
type Log struct {
	db    *sql.DB
	clock *clockseq.Clock
}

// Open creates or opens a SQLite database at path and applies the audit
// schema. Safe to call multiple times against the same path.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to audit db: %w", err)
	}

	// A single check queue has exactly one writer goroutine's worth of
	// audit traffic; cap the pool the way the teacher's store does to
	// avoid SQLITE_BUSY under concurrent submit-triggered writes.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit pragmas: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply audit schema: %w", err)
	}

	return &Log{db: db, clock: clockseq.New()}, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec %q: %w", p, err)
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Record appends an event to the log, stamping it with a fresh UUID and
// the log's monotonic sequence number. The caller's CreatedAt and ID
// fields, if set, are ignored.
func (l *Log) Record(ctx context.Context, e Event) error {
	e.ID = uuid.NewString()
	e.Seq = l.clock.Next()
	e.CreatedAt = time.Now().UTC()

	_, err := l.db.ExecContext(ctx, `
		INSERT INTO audit_events
		(id, seq, kind, doc_id, n_start, n_end, n_cache, n_check, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID, e.Seq, string(e.Kind), e.DocID,
		e.NStart, e.NEnd, e.NCache, e.NCheck,
		e.Detail, e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

// ForDocument returns every recorded event for docID, oldest first.
func (l *Log) ForDocument(ctx context.Context, docID string) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, seq, kind, doc_id, n_start, n_end, n_cache, n_check, detail, created_at
		FROM audit_events
		WHERE doc_id = ?
		ORDER BY seq ASC
	`, docID)
	if err != nil {
		return nil, fmt.Errorf("query audit events for %q: %w", docID, err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

// Recent returns the limit most recently recorded events, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT id, seq, kind, doc_id, n_start, n_end, n_cache, n_check, detail, created_at
		FROM audit_events
		ORDER BY seq DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows *sql.Rows) ([]Event, error) {
	var out []Event
	for rows.Next() {
		var e Event
		var kind, createdAt string
		if err := rows.Scan(&e.ID, &e.Seq, &kind, &e.DocID, &e.NStart, &e.NEnd, &e.NCache, &e.NCheck, &e.Detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.Kind = Kind(kind)
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse audit event timestamp: %w", err)
		}
		e.CreatedAt = ts
		out = append(out, e)
	}
	return out, rows.Err()
}
