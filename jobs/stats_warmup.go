package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/hisab-erp/hisab-erp/internal/ledger"
)

// StatsWarmupJob precomputes every supplier's stats from the remote snapshot
// and caches them in Redis so dashboard reads do not pay the full scan.
// The cache is advisory; the store always computes stats from live state.
type StatsWarmupJob struct {
	remote ledger.Remote
	cache  *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewStatsWarmupJob constructs the job. prefix matches the docstore prefix.
func NewStatsWarmupJob(remote ledger.Remote, cache *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *StatsWarmupJob {
	if prefix == "" {
		prefix = "hisab"
	}
	return &StatsWarmupJob{remote: remote, cache: cache, key: prefix + ":supplierStats", ttl: ttl, logger: logger}
}

// Handle processes TaskStatsWarmup tasks.
func (j *StatsWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	snap, err := j.remote.FetchAll(ctx)
	if err != nil {
		return err
	}

	pipe := j.cache.TxPipeline()
	for _, sup := range snap.Suppliers {
		stats := ledger.ComputeSupplierStats(snap, sup.ID)
		data, err := json.Marshal(stats)
		if err != nil {
			return asynq.SkipRetry
		}
		pipe.HSet(ctx, j.key, sup.ID, data)
	}
	pipe.Expire(ctx, j.key, j.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}

	j.logger.Info("supplier stats warmed", slog.Int("suppliers", len(snap.Suppliers)))
	return nil
}
