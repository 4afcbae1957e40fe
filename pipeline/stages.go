package pipeline

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"

	"videogen/captions"
	"videogen/compose"
	"videogen/models"
	"videogen/provider"
	"videogen/retry"
	"videogen/script"
	"videogen/store"
)

// Progress breakpoints per stage. Each stage enters at its lower bound and
// leaves at its upper bound; video generation interpolates per scene.
const (
	progressScriptStart   = 5
	progressScriptDone    = 15
	progressImageStart    = 17
	progressImageDone     = 25
	progressVideosStart   = 27
	progressVideosDone    = 70
	progressAssembleStart = 72
	progressAssembleDone  = 85
	progressCaptionsStart = 87
	progressCaptionsDone  = 95
	progressFinalizeStart = 97
)

// composition pairs the assembly outputs so the encoder call can run
// under the retry executor as one operation.
type composition struct {
	path      string
	durations []float64
}

// advance moves the job to a new status/progress/step in one patch.
func (o *Orchestrator) advance(ctx context.Context, jobID string, status models.JobStatus, percent int, step string) (*models.Job, error) {
	job := o.patch(ctx, jobID, store.Patch{
		Status:          &status,
		ProgressPercent: &percent,
		CurrentStep:     &step,
	})
	if job == nil {
		return nil, fmt.Errorf("job %s no longer exists", jobID)
	}
	return job, nil
}

// progress bumps percent and step without a status change.
func (o *Orchestrator) progress(ctx context.Context, jobID string, percent int, step string) (*models.Job, error) {
	job := o.patch(ctx, jobID, store.Patch{
		ProgressPercent: &percent,
		CurrentStep:     &step,
	})
	if job == nil {
		return nil, fmt.Errorf("job %s no longer exists", jobID)
	}
	return job, nil
}

func (o *Orchestrator) stageScript(ctx context.Context, job *models.Job) (*models.Job, error) {
	if _, err := o.advance(ctx, job.ID, models.StatusGeneratingScript, progressScriptStart, "Generating script..."); err != nil {
		return nil, err
	}

	scr, err := retry.Do(ctx, o.retrier, "script generation", func(ctx context.Context) (*models.Script, error) {
		return o.scripts.Generate(ctx, job.Prompt, job.SceneCount)
	})
	if err != nil {
		return nil, err
	}

	percent := progressScriptDone
	step := fmt.Sprintf("Script generated with %d scenes", len(scr.Scenes))
	updated := o.patch(ctx, job.ID, store.Patch{
		ProgressPercent: &percent,
		CurrentStep:     &step,
		Script:          scr,
	})
	if updated == nil {
		return nil, fmt.Errorf("job %s no longer exists", job.ID)
	}
	return updated, nil
}

func (o *Orchestrator) stageImage(ctx context.Context, job *models.Job) (*models.Job, error) {
	if _, err := o.advance(ctx, job.ID, models.StatusGeneratingImages, progressImageStart, "Generating character reference image..."); err != nil {
		return nil, err
	}

	prompt := script.BuildImagePrompt(job.Script.CharacterDescription)
	imageURL, err := retry.Do(ctx, o.retrier, "reference image generation", func(ctx context.Context) (string, error) {
		taskID, err := o.tasks.Submit(ctx, provider.ImageSubmit(prompt, "png"))
		if err != nil {
			return "", err
		}
		return o.tasks.Poll(ctx, provider.ImagePoll(o.pollInterval), taskID)
	})
	if err != nil {
		return nil, err
	}

	percent := progressImageDone
	step := "Reference image ready"
	updated := o.patch(ctx, job.ID, store.Patch{
		ProgressPercent:   &percent,
		CurrentStep:       &step,
		ReferenceImageURL: &imageURL,
	})
	if updated == nil {
		return nil, fmt.Errorf("job %s no longer exists", job.ID)
	}
	return updated, nil
}

// stageVideos generates one clip per scene, strictly in order. Each scene
// after the first is anchored on the previous scene's ending frame when the
// CDN is available; otherwise the character reference image carries the
// continuity across all scenes.
func (o *Orchestrator) stageVideos(ctx context.Context, job *models.Job) (*models.Job, error) {
	if _, err := o.advance(ctx, job.ID, models.StatusGeneratingVideos, progressVideosStart, "Generating scene videos..."); err != nil {
		return nil, err
	}

	scr := job.Script
	total := len(scr.Scenes)
	target := compose.TargetFor(job.AspectRatio)
	referenceURL := job.ReferenceImageURL
	sceneVideos := make([]string, 0, total)

	for i, scene := range scr.Scenes {
		percent := progressVideosStart + i*(progressVideosDone-progressVideosStart)/total
		step := fmt.Sprintf("Generating video for scene %d/%d...", i+1, total)
		if _, err := o.progress(ctx, job.ID, percent, step); err != nil {
			return nil, err
		}

		prompt := script.BuildVideoPrompt(scene, i, scr.CharacterDescription, scr.BackgroundTheme)
		ref := referenceURL
		videoURL, err := retry.Do(ctx, o.retrier, fmt.Sprintf("scene %d video generation", i+1),
			func(ctx context.Context) (string, error) {
				taskID, err := o.tasks.Submit(ctx, provider.VideoSubmit(prompt, ref, job.AspectRatio))
				if err != nil {
					return "", err
				}
				return o.tasks.Poll(ctx, provider.VideoPoll(o.pollInterval), taskID)
			})
		if err != nil {
			return nil, fmt.Errorf("scene %d: %w", i+1, err)
		}

		sceneVideos = append(sceneVideos, videoURL)
		scr.Scenes[i].VideoURL = videoURL

		if i < total-1 {
			frameURL, err := o.continuityReference(ctx, job.ID, videoURL, target, i)
			if err != nil {
				// Continuity is best-effort: fall back to the character
				// reference rather than failing the whole job.
				o.logger.Warn("continuity frame unavailable, reusing reference image",
					zap.String("job_id", job.ID),
					zap.Int("scene", i+1),
					zap.Error(err),
				)
			} else if frameURL != "" {
				scr.Scenes[i].LastFrameURL = frameURL
				referenceURL = frameURL
			}
		}
	}

	percent := progressVideosDone
	step := "All scene videos generated"
	updated := o.patch(ctx, job.ID, store.Patch{
		ProgressPercent: &percent,
		CurrentStep:     &step,
		Script:          scr,
		SceneVideos:     sceneVideos,
	})
	if updated == nil {
		return nil, fmt.Errorf("job %s no longer exists", job.ID)
	}
	return updated, nil
}

// continuityReference extracts the ending frame of a generated clip and
// publishes it so the next scene's request can reference it by URL. Returns
// "" when the CDN is not configured, since the provider cannot fetch a
// local file.
func (o *Orchestrator) continuityReference(ctx context.Context, jobID, clipURL string, target compose.Target, sceneIndex int) (string, error) {
	if !o.uploader.Configured() {
		return "", nil
	}

	name := fmt.Sprintf("%s_frame_%d", jobID, sceneIndex+1)
	var framePath string
	err := o.pool.Run(ctx, func() error {
		var err error
		framePath, err = o.composer.ContinuityFrame(ctx, clipURL, target, name)
		return err
	})
	if err != nil {
		return "", err
	}

	return o.uploader.UploadImage(ctx, framePath, name)
}

// stageAssemble composes the scene clips into one video. The local output
// path rides in VideoURL until finalize replaces it with the public URL.
func (o *Orchestrator) stageAssemble(ctx context.Context, job *models.Job) (*models.Job, error) {
	if _, err := o.advance(ctx, job.ID, models.StatusAssemblingVideo, progressAssembleStart, "Assembling final video..."); err != nil {
		return nil, err
	}

	// Standardized clip filenames are deterministic per index, so a retried
	// attempt redoes the whole composition in place.
	target := compose.TargetFor(job.AspectRatio)
	result, err := retry.Do(ctx, o.retrier, "video assembly", func(ctx context.Context) (composition, error) {
		var out composition
		err := o.pool.Run(ctx, func() error {
			var err error
			out.path, out.durations, err = o.composer.Compose(ctx, job.SceneVideos, target, job.ID)
			return err
		})
		return out, err
	})
	if err != nil {
		return nil, err
	}

	percent := progressAssembleDone
	step := "Video assembled"
	updated := o.patch(ctx, job.ID, store.Patch{
		ProgressPercent: &percent,
		CurrentStep:     &step,
		VideoURL:        &result.path,
		SceneDurations:  result.durations,
	})
	if updated == nil {
		return nil, fmt.Errorf("job %s no longer exists", job.ID)
	}
	return updated, nil
}

func (o *Orchestrator) stageCaptions(ctx context.Context, job *models.Job) (*models.Job, error) {
	if _, err := o.advance(ctx, job.ID, models.StatusAddingCaptions, progressCaptionsStart, "Adding captions..."); err != nil {
		return nil, err
	}

	inputPath := job.VideoURL
	totalDuration := o.composer.MeasureDuration(ctx, inputPath)
	program := captions.BuildProgram(job.Script.Scenes, job.SceneDurations, totalDuration)

	captionedPath, err := retry.Do(ctx, o.retrier, "caption burn-in", func(ctx context.Context) (string, error) {
		var path string
		err := o.pool.Run(ctx, func() error {
			var err error
			path, err = o.composer.BurnCaptions(ctx, inputPath, program, job.ID)
			return err
		})
		return path, err
	})
	if err != nil {
		return nil, err
	}

	percent := progressCaptionsDone
	step := "Captions added"
	updated := o.patch(ctx, job.ID, store.Patch{
		ProgressPercent: &percent,
		CurrentStep:     &step,
		VideoURL:        &captionedPath,
	})
	if updated == nil {
		return nil, fmt.Errorf("job %s no longer exists", job.ID)
	}
	return updated, nil
}

// stageFinalize publishes the finished video, renders a thumbnail, and
// moves the job to its terminal complete state.
func (o *Orchestrator) stageFinalize(ctx context.Context, job *models.Job) (*models.Job, error) {
	if _, err := o.progress(ctx, job.ID, progressFinalizeStart, "Uploading video..."); err != nil {
		return nil, err
	}

	localPath := job.VideoURL
	durationSeconds := int(math.Round(o.composer.MeasureDuration(ctx, localPath)))

	publicURL, err := o.uploader.Upload(ctx, localPath, job.ID)
	if err != nil {
		return nil, err
	}

	// Thumbnail is a nice-to-have; a failure here never sinks the job.
	if thumbURL := o.renderThumbnail(ctx, job.ID, localPath); thumbURL != "" {
		o.patch(ctx, job.ID, store.Patch{ThumbnailURL: &thumbURL})
	}

	updated, ok := o.store.SetComplete(job.ID, publicURL, durationSeconds)
	if !ok {
		return nil, fmt.Errorf("job %s no longer exists", job.ID)
	}
	o.finishTerminal(ctx, updated)

	return updated, nil
}

func (o *Orchestrator) renderThumbnail(ctx context.Context, jobID, videoPath string) string {
	var thumbPath string
	err := o.pool.Run(ctx, func() error {
		var err error
		thumbPath, err = o.composer.Thumbnail(ctx, videoPath, jobID)
		return err
	})
	if err != nil {
		o.logger.Warn("thumbnail render failed", zap.String("job_id", jobID), zap.Error(err))
		return ""
	}

	if !o.uploader.Configured() {
		return "/outputs/" + jobID + "_thumb.jpg"
	}
	thumbURL, err := o.uploader.UploadImage(ctx, thumbPath, jobID+"_thumb")
	if err != nil {
		o.logger.Warn("thumbnail upload failed", zap.String("job_id", jobID), zap.Error(err))
		return ""
	}
	return thumbURL
}
