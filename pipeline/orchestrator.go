// Package pipeline drives a job through its six ordered stages: script,
// reference image, scene videos, assembly, captions, finalize. Stage
// transitions are strictly forward; any failure short-circuits into the
// terminal error state.
package pipeline

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"videogen/archive"
	"videogen/compose"
	"videogen/events"
	"videogen/models"
	"videogen/provider"
	"videogen/retry"
	"videogen/store"
)

// maxErrorLength bounds the error message stored for display.
const maxErrorLength = 500

// ScriptGenerator produces the structured script for a prompt.
type ScriptGenerator interface {
	Generate(ctx context.Context, prompt string, sceneCount int) (*models.Script, error)
}

// TaskClient is the generic submit/poll protocol for image and video
// generation backends.
type TaskClient interface {
	Submit(ctx context.Context, spec provider.SubmitSpec) (string, error)
	Poll(ctx context.Context, spec provider.PollSpec, taskID string) (string, error)
}

// Composer is the media composition engine.
type Composer interface {
	Compose(ctx context.Context, clipURLs []string, target compose.Target, outputName string) (string, []float64, error)
	MeasureDuration(ctx context.Context, path string) float64
	BurnCaptions(ctx context.Context, inputPath, program, outputName string) (string, error)
	ContinuityFrame(ctx context.Context, clipURL string, target compose.Target, outputName string) (string, error)
	Thumbnail(ctx context.Context, videoPath, outputName string) (string, error)
}

// Uploader publishes finished assets.
type Uploader interface {
	Configured() bool
	Upload(ctx context.Context, filePath, jobID string) (string, error)
	UploadImage(ctx context.Context, filePath, publicID string) (string, error)
}

// Options carries the optional sinks. A nil field disables that sink.
type Options struct {
	StatusCache *store.StatusCache
	Producer    events.Producer
	Archive     archive.Repository
}

type Orchestrator struct {
	store        *store.JobStore
	statusCache  *store.StatusCache
	scripts      ScriptGenerator
	tasks        TaskClient
	composer     Composer
	uploader     Uploader
	producer     events.Producer
	archiveRepo  archive.Repository
	retrier      *retry.Executor
	pool         *Pool
	pollInterval time.Duration
	logger       *zap.Logger

	wg sync.WaitGroup
}

func NewOrchestrator(
	jobStore *store.JobStore,
	scripts ScriptGenerator,
	tasks TaskClient,
	composer Composer,
	uploader Uploader,
	retrier *retry.Executor,
	pool *Pool,
	pollInterval time.Duration,
	logger *zap.Logger,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		store:        jobStore,
		statusCache:  opts.StatusCache,
		scripts:      scripts,
		tasks:        tasks,
		composer:     composer,
		uploader:     uploader,
		producer:     opts.Producer,
		archiveRepo:  opts.Archive,
		retrier:      retrier,
		pool:         pool,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Start launches the pipeline for a job in the background. The handle is
// retained only for shutdown accounting; the request path never awaits it.
// Progress becomes observable solely through the job store.
func (o *Orchestrator) Start(jobID string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		o.Run(context.Background(), jobID)
	}()
}

// Wait blocks until all in-flight jobs finish. Used on shutdown.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Run executes the full pipeline for jobID. Stages run strictly in order;
// a failure converts into the terminal error state carrying the causing
// message, and remaining stages are skipped. Stage outputs accumulate on
// the job record and are kept even when a later stage fails.
func (o *Orchestrator) Run(ctx context.Context, jobID string) {
	job, ok := o.store.Get(jobID)
	if !ok {
		o.logger.Error("job not found", zap.String("job_id", jobID))
		return
	}

	stages := []struct {
		name string
		fn   func(ctx context.Context, job *models.Job) (*models.Job, error)
	}{
		{"script generation", o.stageScript},
		{"image generation", o.stageImage},
		{"video generation", o.stageVideos},
		{"video assembly", o.stageAssemble},
		{"caption burn-in", o.stageCaptions},
		{"finalize", o.stageFinalize},
	}

	for _, stage := range stages {
		next, err := stage.fn(ctx, job)
		if err != nil {
			o.fail(ctx, jobID, &StageError{Stage: stage.name, Err: err})
			return
		}
		job = next
	}

	o.logger.Info("pipeline complete", zap.String("job_id", jobID))
}

// patch applies a store update and mirrors the result to the optional
// sinks. Every checkpoint refreshes the status cache snapshot; status
// changes also publish a lifecycle event.
func (o *Orchestrator) patch(ctx context.Context, jobID string, p store.Patch) *models.Job {
	job, ok := o.store.Update(jobID, p)
	if !ok {
		return nil
	}

	if o.statusCache != nil {
		if err := o.statusCache.Set(ctx, job); err != nil {
			o.logger.Warn("status cache update failed",
				zap.String("job_id", jobID), zap.Error(err))
		}
	}
	if o.producer != nil && p.Status != nil {
		if err := o.producer.PublishJobEvent(events.FromJob(job)); err != nil {
			o.logger.Warn("event publish failed",
				zap.String("job_id", jobID), zap.Error(err))
		}
	}

	return job
}

// fail moves the job to its terminal error state with the deepest causal
// message, truncated defensively for display.
func (o *Orchestrator) fail(ctx context.Context, jobID string, stageErr *StageError) {
	msg := stageErr.Error()
	if len(msg) > maxErrorLength {
		msg = msg[:maxErrorLength] + "..."
	}

	o.logger.Error("pipeline failed",
		zap.String("job_id", jobID),
		zap.String("stage", stageErr.Stage),
		zap.Error(stageErr.Err),
	)

	job, ok := o.store.SetError(jobID, msg)
	if !ok {
		return
	}
	o.finishTerminal(ctx, job)
}

// finishTerminal notifies the optional sinks about a terminal state.
func (o *Orchestrator) finishTerminal(ctx context.Context, job *models.Job) {
	if o.statusCache != nil {
		if err := o.statusCache.Set(ctx, job); err != nil {
			o.logger.Warn("status cache update failed",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if o.producer != nil {
		if err := o.producer.PublishJobEvent(events.FromJob(job)); err != nil {
			o.logger.Warn("event publish failed",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}
	if o.archiveRepo != nil {
		if err := o.archiveRepo.RecordOutcome(ctx, job); err != nil {
			o.logger.Warn("archive write failed",
				zap.String("job_id", job.ID), zap.Error(err))
		}
	}
}
