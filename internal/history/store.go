// Package history persists one row per attempted artifact upload in a local
// SQLite database. Recording is best effort and never blocks the upload path.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/loykin/artipost/internal/uploader"
)

// DbFileName is the default filename for the upload history database.
const DbFileName = "artipost.db"

// Entry is one recorded upload attempt.
type Entry struct {
	ID           int64
	JobName      string
	BuildNumber  int
	URL          string
	StatusCode   int
	ElapsedMs    int64
	ServerResult string
	Error        string
	CreatedAt    time.Time
}

// Store persists upload attempts in a SQLite database.
// Table upload_history(id, job, build_number, url, status_code, elapsed_ms,
// server_result, error, created_at).
type Store struct {
	DB *sql.DB
}

// Open creates/connects the history database at dbPath and ensures the schema.
func Open(dbPath string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	st := &Store{DB: db}
	if err := st.EnsureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *Store) EnsureSchema() error {
	_, err := s.DB.Exec(`CREATE TABLE IF NOT EXISTS upload_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		job TEXT NOT NULL,
		build_number INTEGER NOT NULL,
		url TEXT NOT NULL,
		status_code INTEGER NOT NULL,
		elapsed_ms INTEGER NOT NULL,
		server_result TEXT,
		error TEXT,
		created_at TEXT NOT NULL
	)`)
	return err
}

// Add inserts an entry. CreatedAt defaults to now when zero.
func (s *Store) Add(e Entry) error {
	at := e.CreatedAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.DB.Exec(
		`INSERT INTO upload_history(job, build_number, url, status_code, elapsed_ms, server_result, error, created_at)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		e.JobName, e.BuildNumber, e.URL, e.StatusCode, e.ElapsedMs, e.ServerResult, e.Error, at.Format(time.RFC3339),
	)
	return err
}

// List returns the most recent entries, newest first. limit <= 0 means 50.
func (s *Store) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.DB.Query(
		`SELECT id, job, build_number, url, status_code, elapsed_ms, server_result, error, created_at
		 FROM upload_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.JobName, &e.BuildNumber, &e.URL, &e.StatusCode, &e.ElapsedMs, &e.ServerResult, &e.Error, &at); err != nil {
			return nil, err
		}
		if t, perr := time.Parse(time.RFC3339, at); perr == nil {
			e.CreatedAt = t
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Record implements uploader.Recorder.
func (s *Store) Record(res *uploader.UploadResult, uploadErr error) error {
	e := Entry{
		JobName:      res.JobName,
		BuildNumber:  res.BuildNumber,
		URL:          res.URL,
		StatusCode:   res.StatusCode,
		ElapsedMs:    res.Elapsed.Milliseconds(),
		ServerResult: res.ServerResult,
	}
	if uploadErr != nil {
		e.Error = uploadErr.Error()
	}
	return s.Add(e)
}
