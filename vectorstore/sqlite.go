package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/fabfab/career-agent/database"
)

// SQLiteStore persists records in an index directory owned by the process and
// scores them with a brute-force cosine scan.
type SQLiteStore struct {
	mu  sync.RWMutex
	db  *sql.DB
	dir string
}

func NewSQLiteStore(ctx context.Context, dir string) (*SQLiteStore, error) {
	db, err := database.OpenSQLite(ctx, dir)
	if err != nil {
		return nil, err
	}
	if err := database.EnsureSQLiteSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db, dir: dir}, nil
}

func (s *SQLiteStore) Dir() string { return s.dir }

func (s *SQLiteStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO chunks (id, source, chunk_index, content, embedding)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if len(rec.Vector) == 0 {
			return fmt.Errorf("record %s has no vector", rec.ID)
		}
		if _, err := stmt.ExecContext(ctx, rec.ID, rec.Chunk.Source, rec.Chunk.Index, rec.Chunk.Content, encodeVector(rec.Vector)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `SELECT id, source, chunk_index, content, embedding FROM chunks`)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0)
	for rows.Next() {
		var (
			m    Match
			blob []byte
		)
		if err := rows.Scan(&m.ID, &m.Chunk.Source, &m.Chunk.Index, &m.Chunk.Content, &blob); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		stored, err := decodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode chunk %s: %w", m.ID, err)
		}
		m.Score = cosineSimilarity(vector, stored)
		m.Metric = MetricCosineSimilarity
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chunks: %w", err)
	}

	return topK(matches, k), nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Metric() Metric { return MetricCosineSimilarity }

func (s *SQLiteStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM chunks WHERE source = ?`, source)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", source, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

const fingerprintKey = "embedder"

func (s *SQLiteStore) Fingerprint(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM index_meta WHERE key = ?`, fingerprintKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read index fingerprint: %w", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetFingerprint(ctx context.Context, fingerprint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `INSERT OR REPLACE INTO index_meta (key, value) VALUES (?, ?)`, fingerprintKey, fingerprint); err != nil {
		return fmt.Errorf("write index fingerprint: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Dimension(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var size int
	err := s.db.QueryRowContext(ctx, `SELECT length(embedding) FROM chunks LIMIT 1`).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read vector size: %w", err)
	}
	return size / 4, nil
}

// Reset drops every record and the stored fingerprint.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM chunks`, `DELETE FROM index_meta`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset index: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var (
	_ Store         = (*SQLiteStore)(nil)
	_ SourceDeleter = (*SQLiteStore)(nil)
	_ Closer        = (*SQLiteStore)(nil)
	_ Fingerprinter = (*SQLiteStore)(nil)
	_ Dimensioner   = (*SQLiteStore)(nil)
	_ Resetter      = (*SQLiteStore)(nil)
)
