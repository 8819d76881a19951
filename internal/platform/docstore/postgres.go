package docstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

// PostgresStore keeps documents in a single jsonb table. It exists for
// deployments that already run Postgres and do not want a second data
// service; the semantics match RedisStore.
type PostgresStore struct {
	pool *pgxpool.Pool
}

const documentsSchema = `
CREATE TABLE IF NOT EXISTS documents (
    collection text NOT NULL,
    id         text NOT NULL,
    doc        jsonb NOT NULL,
    updated_at timestamptz NOT NULL DEFAULT now(),
    PRIMARY KEY (collection, id)
)`

// NewPostgresStore ensures the documents table exists and returns the store.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool) (*PostgresStore, error) {
	if _, err := pool.Exec(ctx, documentsSchema); err != nil {
		return nil, fmt.Errorf("docstore: ensure schema: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

// FetchAll reads the five collections concurrently, failing if any read fails.
func (s *PostgresStore) FetchAll(ctx context.Context) (map[Collection][][]byte, error) {
	results := make(map[Collection][][]byte, 5)
	rows := make([][][]byte, 5)
	cols := Collections()

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range cols {
		g.Go(func() error {
			docs, err := s.fetchCollection(ctx, c)
			if err != nil {
				return err
			}
			rows[i] = docs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for i, c := range cols {
		results[c] = rows[i]
	}
	return results, nil
}

func (s *PostgresStore) fetchCollection(ctx context.Context, c Collection) ([][]byte, error) {
	rows, err := s.pool.Query(ctx, `SELECT doc FROM documents WHERE collection = $1`, string(c))
	if err != nil {
		return nil, fmt.Errorf("docstore: fetch %s: %w", c, err)
	}
	defer rows.Close()

	var docs [][]byte
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("docstore: scan %s: %w", c, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: fetch %s: %w", c, err)
	}
	return docs, nil
}

func (s *PostgresStore) Put(ctx context.Context, c Collection, id string, doc []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO documents (collection, id, doc, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (collection, id)
		DO UPDATE SET doc = EXCLUDED.doc, updated_at = now()`,
		string(c), id, doc)
	if err != nil {
		return fmt.Errorf("docstore: put %s/%s: %w", c, id, describePgErr(err))
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, c Collection, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE collection = $1 AND id = $2`, string(c), id); err != nil {
		return fmt.Errorf("docstore: delete %s/%s: %w", c, id, err)
	}
	return nil
}

// BatchUpdate merges partial documents into existing records inside one
// transaction. Records that do not exist yet are created from the partial.
func (s *PostgresStore) BatchUpdate(ctx context.Context, c Collection, docs map[string][]byte) error {
	if len(docs) == 0 {
		return nil
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("docstore: batch update %s: begin: %w", c, err)
	}
	defer tx.Rollback(ctx)

	for id, doc := range docs {
		if _, err := tx.Exec(ctx, `
			INSERT INTO documents (collection, id, doc, updated_at)
			VALUES ($1, $2, $3, now())
			ON CONFLICT (collection, id)
			DO UPDATE SET doc = documents.doc || EXCLUDED.doc, updated_at = now()`,
			string(c), id, doc); err != nil {
			return fmt.Errorf("docstore: batch update %s/%s: %w", c, id, describePgErr(err))
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("docstore: batch update %s: commit: %w", c, err)
	}
	return nil
}

// describePgErr surfaces the Postgres error code when available.
func describePgErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%s (%s)", pgErr.Message, pgErr.Code)
	}
	return err
}
