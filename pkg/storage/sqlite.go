package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// SQLiteStore keeps the scan history.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the scan history at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open scan history: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create scan schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save stores rec, filling in a fresh id and the current time when unset.
func (s *SQLiteStore) Save(ctx context.Context, rec Record) error {
	if len(rec.Intensities) != slotCount {
		return fmt.Errorf("%w: need %d intensities, got %d", ErrBlobSize, slotCount, len(rec.Intensities))
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.At.IsZero() {
		rec.At = s.now()
	}

	v := rec.Intensities
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO scans (id, scanned_at_ns, window_index, s0, s1, s2, s3, s4, s5)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.At.UnixNano(), rec.Window, v[0], v[1], v[2], v[3], v[4], v[5])
	if err != nil {
		return fmt.Errorf("insert scan %s: %w", rec.ID, err)
	}
	return nil
}

// Recent returns up to n scans, newest first.
func (s *SQLiteStore) Recent(ctx context.Context, n int) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, scanned_at_ns, window_index, s0, s1, s2, s3, s4, s5
		FROM scans
		ORDER BY scanned_at_ns DESC
		LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("query scans: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec Record
			ns  int64
		)
		rec.Intensities = make([]float64, slotCount)
		v := rec.Intensities
		if err := rows.Scan(&rec.ID, &ns, &rec.Window, &v[0], &v[1], &v[2], &v[3], &v[4], &v[5]); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		rec.At = time.Unix(0, ns)
		out = append(out, rec)
	}
	return out, rows.Err()
}
