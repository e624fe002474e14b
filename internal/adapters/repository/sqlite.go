package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/okian/classroom/internal/domain/hallpass"
	"github.com/okian/classroom/internal/domain/model"
	"github.com/okian/classroom/internal/domain/picker"
	"github.com/okian/classroom/pkg/logger"
	"github.com/okian/classroom/pkg/metrics"
)

const schema = `
CREATE TABLE IF NOT EXISTS pick_history (
	key         TEXT PRIMARY KEY,
	payload     TEXT NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS hall_passes (
	id                TEXT PRIMARY KEY,
	class_id          TEXT NOT NULL,
	student_name      TEXT NOT NULL,
	destination       TEXT NOT NULL,
	notes             TEXT NOT NULL DEFAULT '',
	issue_ns          INTEGER NOT NULL,
	return_ns         INTEGER,
	expected_minutes  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_hall_passes_class_issue ON hall_passes(class_id, issue_ns);

CREATE TABLE IF NOT EXISTS pick_audit (
	id              TEXT PRIMARY KEY,
	class_id        TEXT NOT NULL,
	day             TEXT NOT NULL,
	student         TEXT NOT NULL,
	picked_ns       INTEGER NOT NULL,
	fairness        REAL NOT NULL,
	total_students  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_pick_audit_class_day ON pick_audit(class_id, day);
`

// SQLite owns one database file shared by the history, hall pass and audit
// stores. Writes are serialised through a single connection.
type SQLite struct {
	db   *sql.DB
	opts options
}

// OpenSQLite opens dbPath and runs migrations. ":memory:" is accepted.
func OpenSQLite(dbPath string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &SQLite{db: db, opts: newOptions(opts)}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// HistoryStore returns the pick history store backed by s.
func (s *SQLite) HistoryStore() *SQLiteHistoryStore { return &SQLiteHistoryStore{db: s.db, logger: s.opts.logger} }

// HallPassStore returns the hall pass store backed by s.
func (s *SQLite) HallPassStore() *SQLiteHallPassStore { return &SQLiteHallPassStore{db: s.db} }

// AuditLog returns the audit log backed by s.
func (s *SQLite) AuditLog() *SQLiteAuditLog { return &SQLiteAuditLog{db: s.db} }

// SQLiteHistoryStore keeps each history as a JSON payload row.
type SQLiteHistoryStore struct {
	db     *sql.DB
	logger logger.Logger
}

// Get returns the history under key, empty if absent or corrupt.
func (s *SQLiteHistoryStore) Get(ctx context.Context, key string) (picker.PickHistory, error) {
	defer observe(BackendSQLite, "get", time.Now())
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM pick_history WHERE key = ?`, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return picker.PickHistory{}, nil
	}
	if err != nil {
		metrics.RecordErrorByComponent("repository", "sqlite_get")
		return nil, fmt.Errorf("query history: %w", err)
	}
	return s.decode(ctx, key, payload), nil
}

const upsertHistory = `INSERT INTO pick_history (key, payload, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`

// Put replaces the history under key.
func (s *SQLiteHistoryStore) Put(ctx context.Context, key string, history picker.PickHistory) error {
	defer observe(BackendSQLite, "put", time.Now())
	data, err := picker.EncodeHistory(history)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, upsertHistory, key, string(data), time.Now().UnixNano()); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// Update reads, transforms and writes key inside one transaction.
func (s *SQLiteHistoryStore) Update(ctx context.Context, key string, fn func(picker.PickHistory) (picker.PickHistory, error)) (picker.PickHistory, error) {
	defer observe(BackendSQLite, "update", time.Now())
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current := picker.PickHistory{}
	var payload string
	err = tx.QueryRowContext(ctx, `SELECT payload FROM pick_history WHERE key = ?`, key).Scan(&payload)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("query history: %w", err)
	default:
		current = s.decode(ctx, key, payload)
	}

	next, err := fn(current)
	if err != nil {
		return nil, err
	}
	data, err := picker.EncodeHistory(next)
	if err != nil {
		return nil, err
	}
	if _, err = tx.ExecContext(ctx, upsertHistory, key, string(data), time.Now().UnixNano()); err != nil {
		return nil, fmt.Errorf("write history: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit history: %w", err)
	}
	return next, nil
}

// Delete removes key.
func (s *SQLiteHistoryStore) Delete(ctx context.Context, key string) error {
	defer observe(BackendSQLite, "delete", time.Now())
	if _, err := s.db.ExecContext(ctx, `DELETE FROM pick_history WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// Close is a no-op; the owning SQLite closes the database.
func (s *SQLiteHistoryStore) Close() error { return nil }

func (s *SQLiteHistoryStore) decode(ctx context.Context, key, payload string) picker.PickHistory {
	h, err := picker.DecodeHistory([]byte(payload))
	if err != nil {
		metrics.RecordStoreCorrupt(BackendSQLite)
		s.logger.Warn(ctx, "discarding corrupt history", logger.String("key", key), logger.Error(err))
		return picker.PickHistory{}
	}
	return h
}

// SQLiteHallPassStore keeps passes in the hall_passes table.
type SQLiteHallPassStore struct {
	db *sql.DB
}

const passColumns = `id, class_id, student_name, destination, notes, issue_ns, return_ns, expected_minutes`

// Add inserts p.
func (s *SQLiteHallPassStore) Add(ctx context.Context, p hallpass.Pass) error {
	var ret sql.NullInt64
	if p.ReturnTime != nil {
		ret = sql.NullInt64{Int64: p.ReturnTime.UnixNano(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO hall_passes (`+passColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.ClassID, p.StudentName, p.Destination, p.Notes, p.IssueTime.UnixNano(), ret, p.ExpectedDuration,
	)
	if isPrimaryKeyViolation(err) {
		return fmt.Errorf("pass %s: %w: %w", p.ID, ErrConflict, hallpass.ErrDuplicateCode)
	}
	if err != nil {
		return fmt.Errorf("insert pass: %w", err)
	}
	return nil
}

// Get returns the pass with id.
func (s *SQLiteHallPassStore) Get(ctx context.Context, id string) (hallpass.Pass, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+passColumns+` FROM hall_passes WHERE id = ?`, id)
	p, err := scanPass(row)
	if errors.Is(err, sql.ErrNoRows) {
		return hallpass.Pass{}, ErrNotFound
	}
	return p, err
}

// MarkReturned sets return_ns if it is still empty and returns the pass.
func (s *SQLiteHallPassStore) MarkReturned(ctx context.Context, id string, at time.Time) (hallpass.Pass, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return hallpass.Pass{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE hall_passes SET return_ns = ? WHERE id = ? AND return_ns IS NULL`, at.UnixNano(), id,
	); err != nil {
		return hallpass.Pass{}, fmt.Errorf("update pass: %w", err)
	}
	p, err := scanPass(tx.QueryRowContext(ctx, `SELECT `+passColumns+` FROM hall_passes WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return hallpass.Pass{}, ErrNotFound
	}
	if err != nil {
		return hallpass.Pass{}, err
	}
	if err := tx.Commit(); err != nil {
		return hallpass.Pass{}, fmt.Errorf("commit pass: %w", err)
	}
	return p, nil
}

// List returns passes of classID issued at or after since, oldest first.
func (s *SQLiteHallPassStore) List(ctx context.Context, classID string, since time.Time) ([]hallpass.Pass, error) {
	query := `SELECT ` + passColumns + ` FROM hall_passes WHERE issue_ns >= ?`
	args := []any{since.UnixNano()}
	if classID != "" {
		query += ` AND class_id = ?`
		args = append(args, classID)
	}
	query += ` ORDER BY issue_ns ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query passes: %w", err)
	}
	defer rows.Close()

	var out []hallpass.Pass
	for rows.Next() {
		p, err := scanPass(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Close is a no-op; the owning SQLite closes the database.
func (s *SQLiteHallPassStore) Close() error { return nil }

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPass(row rowScanner) (hallpass.Pass, error) {
	var (
		p       hallpass.Pass
		issueNs int64
		ret     sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.ClassID, &p.StudentName, &p.Destination, &p.Notes, &issueNs, &ret, &p.ExpectedDuration); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return hallpass.Pass{}, err
		}
		return hallpass.Pass{}, fmt.Errorf("scan pass: %w", err)
	}
	p.IssueTime = time.Unix(0, issueNs)
	if ret.Valid {
		t := time.Unix(0, ret.Int64)
		p.ReturnTime = &t
	}
	return p, nil
}

// SQLiteAuditLog keeps audited picks in the pick_audit table.
type SQLiteAuditLog struct {
	db *sql.DB
}

// Append inserts e, ignoring ids already present.
func (l *SQLiteAuditLog) Append(ctx context.Context, e model.PickEvent) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO pick_audit (id, class_id, day, student, picked_ns, fairness, total_students)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.EventID, e.ClassID, e.Day, e.Student, e.TS.UnixNano(), e.FairnessScore, e.TotalStudents,
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByDay returns the picks of classID on day, oldest first.
func (l *SQLiteAuditLog) ListByDay(ctx context.Context, classID, day string) ([]model.PickEvent, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, class_id, day, student, picked_ns, fairness, total_students
		 FROM pick_audit WHERE class_id = ? AND day = ? ORDER BY picked_ns ASC, id ASC`,
		classID, day,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var out []model.PickEvent
	for rows.Next() {
		var (
			e  model.PickEvent
			ns int64
		)
		if err := rows.Scan(&e.EventID, &e.ClassID, &e.Day, &e.Student, &ns, &e.FairnessScore, &e.TotalStudents); err != nil {
			return nil, fmt.Errorf("scan audit event: %w", err)
		}
		e.TS = time.Unix(0, ns)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close is a no-op; the owning SQLite closes the database.
func (l *SQLiteAuditLog) Close() error { return nil }

func isPrimaryKeyViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}
