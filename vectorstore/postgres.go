package vectorstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/fabfab/career-agent/database"
)

// PostgresStore keeps records in a pgvector table and ranks them by cosine
// distance.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, dimension int) (*PostgresStore, error) {
	if err := database.EnsureChunkSchema(ctx, pool, dimension); err != nil {
		return nil, fmt.Errorf("ensure chunk schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Add(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, rec := range records {
		id, err := uuid.Parse(rec.ID)
		if err != nil {
			return fmt.Errorf("record id %q: %w", rec.ID, err)
		}
		batch.Queue(`
			INSERT INTO career_chunks (id, source, chunk_index, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5, NOW())
			ON CONFLICT (id) DO UPDATE
			SET source = EXCLUDED.source,
			    chunk_index = EXCLUDED.chunk_index,
			    content = EXCLUDED.content,
			    embedding = EXCLUDED.embedding
		`, id, rec.Chunk.Source, rec.Chunk.Index, rec.Chunk.Content, pgvector.NewVector(rec.Vector))
	}

	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) Search(ctx context.Context, vector []float32, k int) ([]Match, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("embedding is empty")
	}
	if k <= 0 {
		k = 4
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id::text, source, chunk_index, content, (embedding <=> $1::vector) AS distance
		FROM career_chunks
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, pgvector.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("query similar chunks: %w", err)
	}
	defer rows.Close()

	matches := make([]Match, 0, k)
	for rows.Next() {
		m := Match{Metric: MetricCosineDistance}
		if err := rows.Scan(&m.ID, &m.Chunk.Source, &m.Chunk.Index, &m.Chunk.Content, &m.Score); err != nil {
			return nil, fmt.Errorf("scan similar chunk: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate similar chunks: %w", err)
	}

	return matches, nil
}

func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM career_chunks`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) Metric() Metric { return MetricCosineDistance }

func (s *PostgresStore) DeleteBySource(ctx context.Context, source string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM career_chunks WHERE source = $1`, source)
	if err != nil {
		return 0, fmt.Errorf("delete chunks for %s: %w", source, err)
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Fingerprint(ctx context.Context) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM career_index_meta WHERE key = 'embedder'`).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read index fingerprint: %w", err)
	}
	return value, nil
}

func (s *PostgresStore) SetFingerprint(ctx context.Context, fingerprint string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO career_index_meta (key, value) VALUES ('embedder', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, fingerprint)
	if err != nil {
		return fmt.Errorf("write index fingerprint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.pool.QueryRow(ctx, `SELECT vector_dims(embedding) FROM career_chunks LIMIT 1`).Scan(&dim)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read vector dimension: %w", err)
	}
	return dim, nil
}

// Reset drops every record and the stored fingerprint. The column width is
// fixed by the schema, so a new dimension also needs a new table.
func (s *PostgresStore) Reset(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `TRUNCATE career_chunks, career_index_meta`); err != nil {
		return fmt.Errorf("reset index: %w", err)
	}
	return nil
}

var (
	_ Store         = (*PostgresStore)(nil)
	_ SourceDeleter = (*PostgresStore)(nil)
	_ Fingerprinter = (*PostgresStore)(nil)
	_ Dimensioner   = (*PostgresStore)(nil)
	_ Resetter      = (*PostgresStore)(nil)
)
