// Package jobs contains background tasks run by the asynq worker.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity scans the remote document store for invariant
	// violations.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskStatsWarmup precomputes supplier stats into the cache.
	TaskStatsWarmup = "ledger:stats_warmup"
)

// IntegrityPayload tunes the integrity scan.
type IntegrityPayload struct {
	// Tolerance is the largest acceptable absolute difference when
	// comparing recomputed totals against stored ones.
	Tolerance float64 `json:"tolerance"`
}

// NewLedgerIntegrityTask constructs an integrity scan task.
func NewLedgerIntegrityTask(tolerance float64) (*asynq.Task, error) {
	data, err := json.Marshal(IntegrityPayload{Tolerance: tolerance})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskLedgerIntegrity, data), nil
}

// NewStatsWarmupTask constructs a stats warmup task.
func NewStatsWarmupTask() (*asynq.Task, error) {
	return asynq.NewTask(TaskStatsWarmup, nil), nil
}
