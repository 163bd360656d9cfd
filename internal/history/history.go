package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Fixed width so created_at compares correctly as text.
const timeLayout = "2006-01-02 15:04:05.000"

type Outcome string

const (
	OutcomePosted  Outcome = "posted"
	OutcomeSkipped Outcome = "skipped"
	OutcomeFailed  Outcome = "failed"
	OutcomeDryRun  Outcome = "dry-run"
)

type Direction string

const (
	DirectionForward Direction = "hatena->raindrop"
	DirectionReverse Direction = "raindrop->hatena"
)

// Entry is one publish attempt. The log is an audit trail only; sync runs
// never read it back to decide what to post.
type Entry struct {
	ID         int64
	RunID      string
	Direction  Direction
	URL        string
	Title      string
	Outcome    Outcome
	StatusCode int
	Error      string
	CreatedAt  time.Time
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite history at dbPath.
func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, errors.New("history path is empty")
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if err := InitSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize history schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends e. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if strings.TrimSpace(e.RunID) == "" || strings.TrimSpace(e.URL) == "" {
		return errors.New("missing run id or url")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO sync_log
        (run_id, direction, url, title, outcome, status_code, error, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, string(e.Direction), e.URL, nullIfEmpty(e.Title), string(e.Outcome), e.StatusCode, nullIfEmpty(e.Error),
		e.CreatedAt.UTC().Format(timeLayout),
	)
	return err
}

// Since returns entries created at or after since, newest first. An empty
// outcome matches every outcome; limit <= 0 means no limit.
func (s *Store) Since(ctx context.Context, since time.Time, outcome Outcome, limit int) ([]Entry, error) {
	q := `SELECT id, run_id, direction, url, title, outcome, status_code, error, created_at
FROM sync_log WHERE created_at >= ?`
	args := []any{since.UTC().Format(timeLayout)}
	if outcome != "" {
		q += " AND outcome = ?"
		args = append(args, string(outcome))
	}
	q += " ORDER BY created_at DESC, id DESC"
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                 Entry
			dir, result, ts   string
			title, errMessage sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RunID, &dir, &e.URL, &title, &result, &e.StatusCode, &errMessage, &ts); err != nil {
			return nil, err
		}
		e.Direction = Direction(dir)
		e.Outcome = Outcome(result)
		e.Title = title.String
		e.Error = errMessage.String
		if t, err := time.ParseInLocation(timeLayout, ts, time.UTC); err == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
