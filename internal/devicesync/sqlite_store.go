package devicesync

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps entries in a local SQLite file so they survive restarts.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLiteStore opens or creates the queue database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating queue directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("opening queue database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS pending_device_syncs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		token TEXT NOT NULL,
		device_info TEXT NOT NULL,
		queued_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_pending_device_syncs_token ON pending_device_syncs(token);
	`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating queue tables: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Append inserts an entry.
func (s *SQLiteStore) Append(ctx context.Context, e Entry) (Entry, error) {
	info, err := json.Marshal(e.DeviceInfo)
	if err != nil {
		return Entry{}, fmt.Errorf("encoding device info: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO pending_device_syncs (token, device_info, queued_at) VALUES (?, ?, ?)`,
		e.Token, string(info), e.Timestamp.UnixMilli())
	if err != nil {
		return Entry{}, err
	}
	e.Seq, err = res.LastInsertId()
	if err != nil {
		return Entry{}, err
	}
	return e, nil
}

// List returns entries ordered by sequence.
func (s *SQLiteStore) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, token, device_info, queued_at FROM pending_device_syncs ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			info     string
			queuedAt int64
		)
		if err := rows.Scan(&e.Seq, &e.Token, &info, &queuedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(info), &e.DeviceInfo); err != nil {
			return nil, fmt.Errorf("decoding device info of %d: %w", e.Seq, err)
		}
		e.Timestamp = time.UnixMilli(queuedAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Remove deletes the entry with seq.
func (s *SQLiteStore) Remove(ctx context.Context, seq int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM pending_device_syncs WHERE seq = ?`, seq)
	return err
}

// RemoveToken deletes all entries with token.
func (s *SQLiteStore) RemoveToken(ctx context.Context, token string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM pending_device_syncs WHERE token = ?`, token)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

var _ Store = (*SQLiteStore)(nil)
