package calendar

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store on a local SQLite database. Used in dev mode
// and integration tests. Unlike the Google store, its create is a single
// conditional statement, so overlapping writes are rejected atomically.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer keeps the conditional insert serialized.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS commitments (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time   TIMESTAMP NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_commitments_time ON commitments(start_time, end_time);

	CREATE TABLE IF NOT EXISTS commitment_tags (
		commitment_id INTEGER NOT NULL REFERENCES commitments(id) ON DELETE CASCADE,
		key           TEXT NOT NULL,
		value         TEXT NOT NULL,
		PRIMARY KEY (commitment_id, key)
	);
	CREATE INDEX IF NOT EXISTS idx_tags_lookup ON commitment_tags(key, value);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// PingContext checks database liveness for readiness probes.
func (s *SQLiteStore) PingContext(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteStore) ListBusyIntervals(ctx context.Context, dayStart, dayEnd time.Time) ([]BusyInterval, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT start_time, end_time FROM commitments
		WHERE start_time < ? AND end_time > ?
		ORDER BY start_time`,
		dayEnd.UTC(), dayStart.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list busy intervals: %w", err)
	}
	defer rows.Close()

	var busy []BusyInterval
	for rows.Next() {
		var b BusyInterval
		if err := rows.Scan(&b.Start, &b.End); err != nil {
			return nil, err
		}
		busy = append(busy, b)
	}
	return busy, rows.Err()
}

func (s *SQLiteStore) CreateCommitment(ctx context.Context, title string, start, end time.Time, metadata map[string]string) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Create only if no overlap exists, in one statement.
	result, err := tx.ExecContext(ctx, `
		INSERT INTO commitments (title, start_time, end_time)
		SELECT ?, ?, ?
		WHERE NOT EXISTS (
			SELECT 1 FROM commitments WHERE start_time < ? AND end_time > ?
		)`,
		title, start.UTC(), end.UTC(), end.UTC(), start.UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert commitment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if affected == 0 {
		return "", ErrConflict
	}
	id, err := result.LastInsertId()
	if err != nil {
		return "", err
	}

	for key, value := range metadata {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO commitment_tags (commitment_id, key, value) VALUES (?, ?, ?)",
			id, key, value,
		); err != nil {
			return "", fmt.Errorf("insert tag %s: %w", key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit tx: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *SQLiteStore) FindCommitmentsByTag(ctx context.Context, tagKey, tagValue string, searchStart, searchEnd time.Time) ([]Commitment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.start_time, c.end_time
		FROM commitments c
		JOIN commitment_tags t ON t.commitment_id = c.id
		WHERE t.key = ? AND t.value = ?
		  AND c.start_time < ? AND c.end_time > ?
		ORDER BY c.start_time`,
		tagKey, tagValue, searchEnd.UTC(), searchStart.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("find by tag: %w", err)
	}
	defer rows.Close()

	var out []Commitment
	for rows.Next() {
		var c Commitment
		var id int64
		if err := rows.Scan(&id, &c.Title, &c.Start, &c.End); err != nil {
			return nil, err
		}
		c.StoredID = strconv.FormatInt(id, 10)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		meta, err := s.loadTags(ctx, out[i].StoredID)
		if err != nil {
			return nil, err
		}
		out[i].Metadata = meta
	}
	return out, nil
}

func (s *SQLiteStore) loadTags(ctx context.Context, storedID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM commitment_tags WHERE commitment_id = ?", storedID)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		meta[k] = v
	}
	return meta, rows.Err()
}

func (s *SQLiteStore) DeleteCommitment(ctx context.Context, storedID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM commitments WHERE id = ?", storedID)
	if err != nil {
		return fmt.Errorf("delete commitment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	_, _ = s.db.ExecContext(ctx, "DELETE FROM commitment_tags WHERE commitment_id = ?", storedID)
	return nil
}

func (s *SQLiteStore) UpdateCommitmentTime(ctx context.Context, storedID string, start, end time.Time) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE commitments SET start_time = ?, end_time = ? WHERE id = ?",
		start.UTC(), end.UTC(), storedID,
	)
	if err != nil {
		return fmt.Errorf("update commitment time: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) SetCommitmentMetadata(ctx context.Context, storedID string, metadata map[string]string) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM commitments WHERE id = ?", storedID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check commitment: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	for key, value := range metadata {
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO commitment_tags (commitment_id, key, value) VALUES (?, ?, ?)
			ON CONFLICT(commitment_id, key) DO UPDATE SET value = excluded.value`,
			storedID, key, value,
		); err != nil {
			return fmt.Errorf("set tag %s: %w", key, err)
		}
	}
	return nil
}
