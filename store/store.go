// Package store holds the authoritative in-memory record of job state.
// All access goes through a single RWMutex; callers only ever see copies,
// so a concurrent status read can never observe a half-applied update.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"videogen/models"
)

// Patch lists the job fields eligible for update. Nil fields are left
// unchanged. UpdatedAt is bumped on every successful apply.
type Patch struct {
	Status          *models.JobStatus
	ProgressPercent *int
	CurrentStep     *string
	ErrorMessage    *string

	Script            *models.Script
	ReferenceImageURL *string
	SceneVideos       []string
	SceneDurations    []float64

	VideoURL        *string
	ThumbnailURL    *string
	DurationSeconds *int
}

type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.Job
}

func NewJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*models.Job)}
}

// Create registers a new pending job and returns a copy of it.
func (s *JobStore) Create(prompt string, sceneCount int, aspectRatio models.AspectRatio) *models.Job {
	now := time.Now().UTC()
	job := &models.Job{
		ID:              newJobID(),
		Status:          models.StatusPending,
		ProgressPercent: 0,
		CurrentStep:     "Job created, waiting to start...",
		CreatedAt:       now,
		UpdatedAt:       now,
		Prompt:          prompt,
		SceneCount:      sceneCount,
		AspectRatio:     aspectRatio,
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()

	return job.Clone()
}

// Get returns a copy of the job, or false if it does not exist.
func (s *JobStore) Get(id string) (*models.Job, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}
	return job.Clone(), true
}

// Update applies the patch atomically and returns a copy of the result.
func (s *JobStore) Update(id string, p Patch) (*models.Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, false
	}

	if p.Status != nil {
		job.Status = *p.Status
	}
	if p.ProgressPercent != nil {
		job.ProgressPercent = *p.ProgressPercent
	}
	if p.CurrentStep != nil {
		job.CurrentStep = *p.CurrentStep
	}
	if p.ErrorMessage != nil {
		job.ErrorMessage = *p.ErrorMessage
	}
	if p.Script != nil {
		job.Script = p.Script
	}
	if p.ReferenceImageURL != nil {
		job.ReferenceImageURL = *p.ReferenceImageURL
	}
	if p.SceneVideos != nil {
		job.SceneVideos = p.SceneVideos
	}
	if p.SceneDurations != nil {
		job.SceneDurations = p.SceneDurations
	}
	if p.VideoURL != nil {
		job.VideoURL = *p.VideoURL
	}
	if p.ThumbnailURL != nil {
		job.ThumbnailURL = *p.ThumbnailURL
	}
	if p.DurationSeconds != nil {
		job.DurationSeconds = *p.DurationSeconds
	}

	job.UpdatedAt = time.Now().UTC()
	return job.Clone(), true
}

// SetError moves the job to its terminal error state. The step text carries
// a truncated form of the message for display.
func (s *JobStore) SetError(id, message string) (*models.Job, bool) {
	status := models.StatusError
	step := "Error: " + truncate(message, 80)
	return s.Update(id, Patch{
		Status:       &status,
		CurrentStep:  &step,
		ErrorMessage: &message,
	})
}

// SetComplete moves the job to its terminal complete state.
func (s *JobStore) SetComplete(id, videoURL string, durationSeconds int) (*models.Job, bool) {
	status := models.StatusComplete
	percent := 100
	step := "Video generation complete"
	return s.Update(id, Patch{
		Status:          &status,
		ProgressPercent: &percent,
		CurrentStep:     &step,
		VideoURL:        &videoURL,
		DurationSeconds: &durationSeconds,
	})
}

// Delete removes the job. Deleting a nonexistent job returns false.
func (s *JobStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[id]; !ok {
		return false
	}
	delete(s.jobs, id)
	return true
}

func newJobID() string {
	return "vid_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
