// Package handlers is the HTTP surface: submit a generation job, read its
// progress, fetch the finished video, delete the record.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"videogen/dto"
	"videogen/middleware"
	"videogen/models"
	"videogen/store"
)

const (
	maxSceneCount = 10

	// estimatedSecondsPerScene feeds the rough completion estimate returned
	// at submission time. Generation dominates, roughly a minute per scene.
	estimatedSecondsPerScene = 60
)

// Starter launches the pipeline for a freshly created job.
type Starter interface {
	Start(jobID string)
}

// StatusReader serves status queries from the Redis mirror so they skip
// the in-process store. Optional; nil disables the cache path.
type StatusReader interface {
	Get(ctx context.Context, jobID string) (*store.StatusSnapshot, error)
	Delete(ctx context.Context, jobID string) error
}

type JobHandler struct {
	store             *store.JobStore
	pipeline          Starter
	statusCache       StatusReader
	defaultSceneCount int
	logger            *zap.Logger
}

func NewJobHandler(jobStore *store.JobStore, pipeline Starter, statusCache StatusReader, defaultSceneCount int, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		store:             jobStore,
		pipeline:          pipeline,
		statusCache:       statusCache,
		defaultSceneCount: defaultSceneCount,
		logger:            logger,
	}
}

// Generate accepts a prompt and starts a job. The response returns
// immediately; progress is observable via Status.
func (h *JobHandler) Generate(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if r.Method != http.MethodPost {
		h.handleError(w, "Method not allowed", nil, traceID, http.StatusMethodNotAllowed)
		return
	}

	var req dto.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(w, "Invalid request body", err, traceID, http.StatusBadRequest)
		return
	}

	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		h.handleError(w, "Prompt is required", nil, traceID, http.StatusBadRequest)
		return
	}

	sceneCount := req.Scenes
	if sceneCount == 0 {
		sceneCount = h.defaultSceneCount
	}
	if sceneCount < 1 || sceneCount > maxSceneCount {
		h.handleError(w, "Scene count out of range", nil, traceID, http.StatusBadRequest)
		return
	}

	aspectRatio, ok := parseAspectRatio(req.AspectRatio)
	if !ok {
		h.handleError(w, "Invalid aspect ratio", nil, traceID, http.StatusBadRequest)
		return
	}

	job := h.store.Create(req.Prompt, sceneCount, aspectRatio)
	h.pipeline.Start(job.ID)

	h.logger.Info("Job created",
		zap.String("trace_id", traceID),
		zap.String("job_id", job.ID),
		zap.Int("scenes", sceneCount),
		zap.String("aspect_ratio", string(aspectRatio)),
	)

	h.respondJSON(w, http.StatusAccepted, dto.GenerateResponse{
		JobID:                job.ID,
		Status:               string(job.Status),
		EstimatedTimeSeconds: sceneCount * estimatedSecondsPerScene,
	})
}

// Status reports the job's current stage and progress, preferring the
// cache mirror and falling back to the store on a miss.
func (h *JobHandler) Status(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := strings.TrimPrefix(r.URL.Path, "/status/")
	if jobID == "" {
		h.handleError(w, "Job ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	if h.statusCache != nil {
		if snap, err := h.statusCache.Get(r.Context(), jobID); err == nil {
			h.respondJSON(w, http.StatusOK, dto.StatusResponse{
				JobID:           jobID,
				Status:          string(snap.Status),
				ProgressPercent: snap.ProgressPercent,
				CurrentStep:     snap.CurrentStep,
				CreatedAt:       snap.CreatedAt.Format(time.RFC3339),
				ErrorMessage:    snap.ErrorMessage,
			})
			return
		}
	}

	job, ok := h.store.Get(jobID)
	if !ok {
		h.handleError(w, "Job not found", dto.ErrJobNotFound, traceID, http.StatusNotFound)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.StatusResponse{
		JobID:           job.ID,
		Status:          string(job.Status),
		ProgressPercent: job.ProgressPercent,
		CurrentStep:     job.CurrentStep,
		CreatedAt:       job.CreatedAt.Format(time.RFC3339),
		ErrorMessage:    job.ErrorMessage,
	})
}

// Download returns the finished video's location. Jobs that are still in
// flight get a conflict response carrying their current status.
func (h *JobHandler) Download(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	jobID := strings.TrimPrefix(r.URL.Path, "/download/")
	if jobID == "" {
		h.handleError(w, "Job ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	job, ok := h.store.Get(jobID)
	if !ok {
		h.handleError(w, "Job not found", dto.ErrJobNotFound, traceID, http.StatusNotFound)
		return
	}

	switch job.Status {
	case models.StatusComplete:
		h.respondJSON(w, http.StatusOK, dto.DownloadResponse{
			JobID:           job.ID,
			Status:          string(job.Status),
			VideoURL:        job.VideoURL,
			ThumbnailURL:    job.ThumbnailURL,
			DurationSeconds: job.DurationSeconds,
		})
	case models.StatusError:
		h.respondJSON(w, http.StatusOK, dto.DownloadResponse{
			JobID:        job.ID,
			Status:       string(job.Status),
			ErrorMessage: job.ErrorMessage,
		})
	default:
		h.respondJSON(w, http.StatusConflict, dto.ErrorResponse{
			Error:   "Video not ready",
			Code:    string(job.Status),
			TraceID: traceID,
		})
	}
}

// Delete removes the job record. The pipeline is not cancelled mid-stage;
// a running job simply finds its record gone at the next checkpoint.
func (h *JobHandler) Delete(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	if r.Method != http.MethodDelete {
		h.handleError(w, "Method not allowed", nil, traceID, http.StatusMethodNotAllowed)
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/jobs/")
	if jobID == "" {
		h.handleError(w, "Job ID is required", nil, traceID, http.StatusBadRequest)
		return
	}

	if !h.store.Delete(jobID) {
		h.handleError(w, "Job not found", dto.ErrJobNotFound, traceID, http.StatusNotFound)
		return
	}

	if h.statusCache != nil {
		if err := h.statusCache.Delete(r.Context(), jobID); err != nil {
			h.logger.Warn("Status cache delete failed",
				zap.String("trace_id", traceID),
				zap.String("job_id", jobID),
				zap.Error(err),
			)
		}
	}

	h.logger.Info("Job deleted",
		zap.String("trace_id", traceID),
		zap.String("job_id", jobID),
	)
	w.WriteHeader(http.StatusNoContent)
}

func (h *JobHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func parseAspectRatio(value string) (models.AspectRatio, bool) {
	switch models.AspectRatio(value) {
	case "":
		return models.AspectPortrait, true
	case models.AspectLandscape, models.AspectPortrait, models.AspectSquare:
		return models.AspectRatio(value), true
	default:
		return "", false
	}
}

func (h *JobHandler) handleError(w http.ResponseWriter, message string, err error, traceID string, status int) {
	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *JobHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
