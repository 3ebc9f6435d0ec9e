// CLAUDE:SUMMARY SQLite-backed action audit trail with async batching and an endpoint middleware.
//
// Package audit persists one row per executed action: what ran, against
// which target and URL, how long it took and how it ended. Writes are
// asynchronous with a synchronous fallback so a slow disk never blocks
// an interaction.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hazyhaar/pagelens/dbopen"
	"github.com/hazyhaar/pagelens/idgen"
	"github.com/hazyhaar/pagelens/kit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    entry_id TEXT PRIMARY KEY,
    timestamp INTEGER NOT NULL,
    action TEXT NOT NULL,
    target TEXT,
    url TEXT,
    parameters TEXT NOT NULL DEFAULT '{}',
    result TEXT,
    error_message TEXT,
    duration_ms INTEGER,
    status TEXT NOT NULL,
    transport TEXT,
    request_id TEXT,
    session_id TEXT,
    created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);
CREATE INDEX IF NOT EXISTS idx_audit_timestamp ON audit_log(timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action, timestamp DESC);
CREATE INDEX IF NOT EXISTS idx_audit_status ON audit_log(status);
`

const (
	batchSize     = 32
	flushInterval = 5 * time.Second
)

// Entry is a single audit record. Timestamp is unix seconds.
type Entry struct {
	EntryID    string
	Timestamp  int64
	Action     string
	Target     string
	URL        string
	Parameters string // JSON
	Result     string // JSON
	Error      string
	DurationMs int64
	Status     string // "success" or "error"
	Transport  string
	RequestID  string
	SessionID  string
}

// SQLiteLogger writes entries to an audit_log table, batched in the
// background. Close drains the buffer before returning.
type SQLiteLogger struct {
	db    *sql.DB
	newID idgen.Generator
	ch    chan *Entry
	stop  chan struct{}
	done  chan struct{}
}

// Option configures a SQLiteLogger.
type Option func(*SQLiteLogger)

// WithIDGenerator sets a custom ID generator for entry IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(l *SQLiteLogger) { l.newID = gen }
}

// NewSQLiteLogger creates an async audit logger over db. Init must be
// called before the first write.
func NewSQLiteLogger(db *sql.DB, opts ...Option) *SQLiteLogger {
	l := &SQLiteLogger{
		db:    db,
		newID: idgen.Prefixed("act_", idgen.Default),
		ch:    make(chan *Entry, 256),
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	for _, o := range opts {
		o(l)
	}
	go l.flushLoop()
	return l
}

// Init applies the audit schema.
func (l *SQLiteLogger) Init() error {
	if _, err := l.db.Exec(schema); err != nil {
		return fmt.Errorf("audit: init schema: %w", err)
	}
	return nil
}

// Log inserts an entry synchronously.
func (l *SQLiteLogger) Log(ctx context.Context, e *Entry) error {
	l.fillDefaults(e)
	return l.insert(ctx, e)
}

// LogAsync queues an entry for background persistence, falling back to
// a synchronous insert when the buffer is full.
func (l *SQLiteLogger) LogAsync(e *Entry) {
	l.fillDefaults(e)
	select {
	case l.ch <- e:
	default:
		slog.Warn("audit: buffer full, sync fallback", "action", e.Action)
		if err := l.insert(context.Background(), e); err != nil {
			slog.Error("audit: sync fallback failed", "error", err)
		}
	}
}

// Recent returns the newest entries, most recent first.
func (l *SQLiteLogger) Recent(ctx context.Context, limit int) ([]*Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := l.db.QueryContext(ctx, `SELECT entry_id, timestamp, action, target, url,
		parameters, result, error_message, duration_ms, status,
		transport, request_id, session_id
		FROM audit_log ORDER BY timestamp DESC, entry_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: recent: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var e Entry
		var target, url, result, errMsg, transport, reqID, sesID sql.NullString
		var durationMs sql.NullInt64
		if err := rows.Scan(&e.EntryID, &e.Timestamp, &e.Action, &target, &url,
			&e.Parameters, &result, &errMsg, &durationMs, &e.Status,
			&transport, &reqID, &sesID); err != nil {
			return nil, fmt.Errorf("audit: scan entry: %w", err)
		}
		e.Target = target.String
		e.URL = url.String
		e.Result = result.String
		e.Error = errMsg.String
		e.DurationMs = durationMs.Int64
		e.Transport = transport.String
		e.RequestID = reqID.String
		e.SessionID = sesID.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}

// Cleanup deletes entries older than retentionDays.
func (l *SQLiteLogger) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	threshold := time.Now().AddDate(0, 0, -retentionDays).Unix()
	res, err := dbopen.Exec(ctx, l.db, "DELETE FROM audit_log WHERE timestamp < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("audit: cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close drains the buffer and stops the flush goroutine.
func (l *SQLiteLogger) Close() error {
	close(l.stop)
	<-l.done
	return nil
}

func (l *SQLiteLogger) fillDefaults(e *Entry) {
	if e.EntryID == "" {
		e.EntryID = l.newID()
	}
	if e.Timestamp == 0 {
		e.Timestamp = time.Now().Unix()
	}
	if e.Transport == "" {
		e.Transport = "mcp"
	}
	if e.Parameters == "" {
		e.Parameters = "{}"
	}
	if e.Status == "" {
		if e.Error != "" {
			e.Status = "error"
		} else {
			e.Status = "success"
		}
	}
}

func (l *SQLiteLogger) flushLoop() {
	defer close(l.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	batch := make([]*Entry, 0, batchSize)

	// One transaction per batch; RunTx retries the whole batch when the
	// statusweb reader holds the database busy.
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := dbopen.RunTx(ctx, l.db, func(tx *sql.Tx) error {
			for _, e := range batch {
				if _, err := tx.ExecContext(ctx, insertSQL, insertArgs(e)...); err != nil {
					return fmt.Errorf("entry %s: %w", e.EntryID, err)
				}
			}
			return nil
		})
		if err != nil {
			slog.Error("audit: flush batch", "error", err, "entries", len(batch))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-l.stop:
			for {
				select {
				case e := <-l.ch:
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		case e := <-l.ch:
			batch = append(batch, e)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

const insertSQL = `INSERT INTO audit_log
	(entry_id, timestamp, action, target, url,
	 parameters, result, error_message, duration_ms, status,
	 transport, request_id, session_id)
	VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`

func insertArgs(e *Entry) []any {
	return []any{
		e.EntryID, e.Timestamp, e.Action, e.Target, e.URL,
		e.Parameters, e.Result, e.Error, e.DurationMs, e.Status,
		e.Transport, e.RequestID, e.SessionID,
	}
}

func (l *SQLiteLogger) insert(ctx context.Context, e *Entry) error {
	_, err := dbopen.Exec(ctx, l.db, insertSQL, insertArgs(e)...)
	return err
}

// Middleware wraps an endpoint so every invocation produces one audit
// entry carrying the context's transport, request and session IDs.
// Entries are queued async; auditing never fails a request.
func Middleware(l *SQLiteLogger, action string) kit.Middleware {
	return func(next kit.Endpoint) kit.Endpoint {
		return func(ctx context.Context, req any) (any, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			e := &Entry{
				Action:     action,
				Transport:  kit.GetTransport(ctx),
				RequestID:  kit.GetRequestID(ctx),
				SessionID:  kit.GetSessionID(ctx),
				DurationMs: time.Since(start).Milliseconds(),
			}
			if b, merr := json.Marshal(req); merr == nil {
				e.Parameters = string(b)
			}
			if err != nil {
				e.Error = err.Error()
			} else if b, merr := json.Marshal(resp); merr == nil {
				e.Result = string(b)
			}
			l.LogAsync(e)

			return resp, err
		}
	}
}
