// Package archive records terminal job outcomes in Postgres for later
// inspection. The in-memory store stays authoritative for live state; the
// archive is a write-only sink and plays no part in serving status reads.
package archive

import (
	"context"

	"videogen/database"
	"videogen/models"
)

type Repository interface {
	RecordOutcome(ctx context.Context, job *models.Job) error
}

type PostgresRepo struct {
	db *database.DB
}

func NewPostgresRepo(db *database.DB) Repository {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) RecordOutcome(ctx context.Context, job *models.Job) error {
	query := `
		INSERT INTO job_outcomes (job_id, status, prompt, scene_count, aspect_ratio,
			video_url, duration_seconds, error_message, created_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (job_id) DO UPDATE SET
			status = EXCLUDED.status,
			video_url = EXCLUDED.video_url,
			duration_seconds = EXCLUDED.duration_seconds,
			error_message = EXCLUDED.error_message,
			finished_at = NOW()
	`

	_, err := r.db.Pool.Exec(ctx, query,
		job.ID,
		string(job.Status),
		job.Prompt,
		job.SceneCount,
		string(job.AspectRatio),
		job.VideoURL,
		job.DurationSeconds,
		job.ErrorMessage,
		job.CreatedAt,
	)
	return err
}
