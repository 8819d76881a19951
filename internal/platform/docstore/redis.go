package docstore

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// RedisStore keeps each collection in one Redis hash keyed by entity id.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. prefix namespaces the hashes so
// several deployments can share one Redis.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "hisab"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) key(c Collection) string {
	return s.prefix + ":" + string(c)
}

// FetchAll reads the five hashes concurrently, failing if any read fails.
func (s *RedisStore) FetchAll(ctx context.Context) (map[Collection][][]byte, error) {
	results := make(map[Collection][][]byte, 5)
	rows := make([]map[string]string, 5)
	cols := Collections()

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range cols {
		g.Go(func() error {
			row, err := s.client.HGetAll(ctx, s.key(c)).Result()
			if err != nil {
				return fmt.Errorf("docstore: fetch %s: %w", c, err)
			}
			rows[i] = row
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i, c := range cols {
		docs := make([][]byte, 0, len(rows[i]))
		for _, raw := range rows[i] {
			docs = append(docs, []byte(raw))
		}
		results[c] = docs
	}
	return results, nil
}

func (s *RedisStore) Put(ctx context.Context, c Collection, id string, doc []byte) error {
	if err := s.client.HSet(ctx, s.key(c), id, doc).Err(); err != nil {
		return fmt.Errorf("docstore: put %s/%s: %w", c, id, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, c Collection, id string) error {
	if err := s.client.HDel(ctx, s.key(c), id).Err(); err != nil {
		return fmt.Errorf("docstore: delete %s/%s: %w", c, id, err)
	}
	return nil
}

// BatchUpdate writes every document in one MULTI/EXEC pipeline so readers
// never observe a half-applied batch.
func (s *RedisStore) BatchUpdate(ctx context.Context, c Collection, docs map[string][]byte) error {
	if len(docs) == 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	for id, doc := range docs {
		pipe.HSet(ctx, s.key(c), id, doc)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("docstore: batch update %s: %w", c, err)
	}
	return nil
}
