package store

import (
	"context"
	"encoding/json"
	"time"

	"videogen/database"
	"videogen/models"
)

const (
	statusKeyPrefix = "job:status:"
	statusTTL       = 10 * time.Minute
)

// StatusSnapshot is the slice of job state a status query needs. It is
// what the pipeline mirrors into Redis after every checkpoint.
type StatusSnapshot struct {
	Status          models.JobStatus `json:"status"`
	ProgressPercent int              `json:"progress_percent"`
	CurrentStep     string           `json:"current_step"`
	CreatedAt       time.Time        `json:"created_at"`
	ErrorMessage    string           `json:"error_message,omitempty"`
}

type statusKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// StatusCache mirrors job status into Redis so the request layer can
// answer status queries without touching the in-process store. The
// JobStore stays authoritative: pipeline writes are best-effort, a cache
// miss falls back to the store, and deleting a job clears its entry.
type StatusCache struct {
	cache statusKV
}

func NewStatusCache(cache *database.Cache) *StatusCache {
	return &StatusCache{cache: cache}
}

func (sc *StatusCache) Get(ctx context.Context, jobID string) (*StatusSnapshot, error) {
	data, err := sc.cache.Get(ctx, statusKeyPrefix+jobID)
	if err != nil {
		return nil, err
	}
	var snap StatusSnapshot
	if err := json.Unmarshal([]byte(data), &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (sc *StatusCache) Set(ctx context.Context, job *models.Job) error {
	data, err := json.Marshal(StatusSnapshot{
		Status:          job.Status,
		ProgressPercent: job.ProgressPercent,
		CurrentStep:     job.CurrentStep,
		CreatedAt:       job.CreatedAt,
		ErrorMessage:    job.ErrorMessage,
	})
	if err != nil {
		return err
	}
	return sc.cache.Set(ctx, statusKeyPrefix+job.ID, string(data), statusTTL)
}

func (sc *StatusCache) Delete(ctx context.Context, jobID string) error {
	return sc.cache.Del(ctx, statusKeyPrefix+jobID)
}
