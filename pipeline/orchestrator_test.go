package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"videogen/compose"
	"videogen/events"
	"videogen/models"
	"videogen/provider"
	"videogen/retry"
	"videogen/store"
)

type fakeScripts struct {
	err error
}

func (f *fakeScripts) Generate(ctx context.Context, prompt string, sceneCount int) (*models.Script, error) {
	if f.err != nil {
		return nil, f.err
	}
	scenes := make([]models.Scene, sceneCount)
	for i := range scenes {
		scenes[i] = models.Scene{
			SceneNumber:       i + 1,
			VisualDescription: fmt.Sprintf("scene %d action", i+1),
			Dialogue:          fmt.Sprintf("line %d", i+1),
		}
	}
	return &models.Script{
		CharacterDescription: "a red fox",
		BackgroundTheme:      "lunar base",
		Scenes:               scenes,
	}, nil
}

type fakeTasks struct {
	submits []provider.SubmitSpec
	videoN  int
	pollErr error
}

func (f *fakeTasks) Submit(ctx context.Context, spec provider.SubmitSpec) (string, error) {
	f.submits = append(f.submits, spec)
	return fmt.Sprintf("task-%d", len(f.submits)), nil
}

func (f *fakeTasks) Poll(ctx context.Context, spec provider.PollSpec, taskID string) (string, error) {
	if f.pollErr != nil {
		return "", f.pollErr
	}
	if spec.Path == "/veo/record-info" {
		f.videoN++
		return fmt.Sprintf("https://provider.example/clip_%d.mp4", f.videoN), nil
	}
	return "https://provider.example/reference.png", nil
}

type fakeComposer struct {
	composeErr      error
	composeFailures int
	composeCalls    int
	burnFailures    int
	burnCalls       int
	burned          bool
	program         string
}

func (f *fakeComposer) Compose(ctx context.Context, clipURLs []string, target compose.Target, outputName string) (string, []float64, error) {
	f.composeCalls++
	if f.composeErr != nil {
		return "", nil, f.composeErr
	}
	if f.composeFailures > 0 {
		f.composeFailures--
		return "", nil, errors.New("encoder hiccup")
	}
	durations := make([]float64, len(clipURLs))
	for i := range durations {
		durations[i] = 6.5
	}
	return "/tmp/out/" + outputName + ".mp4", durations, nil
}

func (f *fakeComposer) MeasureDuration(ctx context.Context, path string) float64 {
	return 12.5
}

func (f *fakeComposer) BurnCaptions(ctx context.Context, inputPath, program, outputName string) (string, error) {
	f.burnCalls++
	if f.burnFailures > 0 {
		f.burnFailures--
		return "", errors.New("encoder hiccup")
	}
	f.burned = true
	f.program = program
	return "/tmp/out/" + outputName + "_captioned.mp4", nil
}

func (f *fakeComposer) ContinuityFrame(ctx context.Context, clipURL string, target compose.Target, outputName string) (string, error) {
	return "/tmp/frames/" + outputName + ".jpg", nil
}

func (f *fakeComposer) Thumbnail(ctx context.Context, videoPath, outputName string) (string, error) {
	return "/tmp/out/" + outputName + "_thumb.jpg", nil
}

type fakeUploader struct {
	configured bool
}

func (f *fakeUploader) Configured() bool { return f.configured }

func (f *fakeUploader) Upload(ctx context.Context, filePath, jobID string) (string, error) {
	if !f.configured {
		return "/outputs/" + jobID + ".mp4", nil
	}
	return "https://cdn.example/" + jobID + ".mp4", nil
}

func (f *fakeUploader) UploadImage(ctx context.Context, filePath, publicID string) (string, error) {
	return "https://cdn.example/" + publicID + ".jpg", nil
}

type recordingProducer struct {
	statuses []string
}

func (r *recordingProducer) PublishJobEvent(event *events.JobEvent) error {
	r.statuses = append(r.statuses, event.Status)
	return nil
}

func (r *recordingProducer) Close() error { return nil }

type recordingArchive struct {
	outcomes []*models.Job
}

func (r *recordingArchive) RecordOutcome(ctx context.Context, job *models.Job) error {
	r.outcomes = append(r.outcomes, job)
	return nil
}

type fixture struct {
	store    *store.JobStore
	tasks    *fakeTasks
	composer *fakeComposer
	uploader *fakeUploader
	producer *recordingProducer
	archive  *recordingArchive
	orch     *Orchestrator
}

func newFixture(t *testing.T, scripts ScriptGenerator) *fixture {
	logger := zaptest.NewLogger(t)
	f := &fixture{
		store:    store.NewJobStore(),
		tasks:    &fakeTasks{},
		composer: &fakeComposer{},
		uploader: &fakeUploader{configured: true},
		producer: &recordingProducer{},
		archive:  &recordingArchive{},
	}
	retrier := &retry.Executor{
		Logger:     logger,
		MaxRetries: 2,
		Unit:       time.Nanosecond,
		IsFatal:    provider.IsFatal,
		Sleep:      func(ctx context.Context, d time.Duration) error { return nil },
	}
	f.orch = NewOrchestrator(
		f.store, scripts, f.tasks, f.composer, f.uploader,
		retrier, NewPool(1), time.Millisecond, logger,
		Options{Producer: f.producer, Archive: f.archive},
	)
	return f
}

func TestRun_HappyPath(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	job := f.store.Create("fox goes to space", 2, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	final, ok := f.store.Get(job.ID)
	if !ok {
		t.Fatal("Job vanished")
	}
	if final.Status != models.StatusComplete {
		t.Fatalf("Expected complete, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if final.ProgressPercent != 100 {
		t.Errorf("Expected 100%%, got %d", final.ProgressPercent)
	}
	if final.VideoURL != "https://cdn.example/"+job.ID+".mp4" {
		t.Errorf("Unexpected video url: %s", final.VideoURL)
	}
	if final.ThumbnailURL == "" {
		t.Error("Expected a thumbnail url")
	}
	if final.DurationSeconds != 13 {
		t.Errorf("Expected rounded 13s, got %d", final.DurationSeconds)
	}
	if len(final.SceneVideos) != 2 {
		t.Errorf("Expected 2 scene videos, got %d", len(final.SceneVideos))
	}
	if len(final.SceneDurations) != 2 {
		t.Errorf("Expected 2 measured durations, got %d", len(final.SceneDurations))
	}
	if !f.composer.burned {
		t.Error("Captions were never burned")
	}
	if !strings.Contains(f.composer.program, "drawtext=") {
		t.Errorf("Caption program missing drawtext: %s", f.composer.program)
	}
}

func TestRun_StatusEventSequence(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	job := f.store.Create("prompt", 2, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	want := []string{
		"generating_script",
		"generating_images",
		"generating_videos",
		"assembling_video",
		"adding_captions",
		"complete",
	}
	if len(f.producer.statuses) != len(want) {
		t.Fatalf("Expected %d status events, got %d: %v", len(want), len(f.producer.statuses), f.producer.statuses)
	}
	for i, s := range want {
		if f.producer.statuses[i] != s {
			t.Errorf("Event %d: expected %s, got %s", i, s, f.producer.statuses[i])
		}
	}
}

func TestRun_ContinuityFrameFeedsNextScene(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	job := f.store.Create("prompt", 3, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	var videoSubmits []provider.SubmitSpec
	for _, s := range f.tasks.submits {
		if s.Path == "/veo/generate" {
			videoSubmits = append(videoSubmits, s)
		}
	}
	if len(videoSubmits) != 3 {
		t.Fatalf("Expected 3 video submits, got %d", len(videoSubmits))
	}

	firstRef := videoSubmits[0].Body.(map[string]any)["imageUrls"].(string)
	if firstRef != "https://provider.example/reference.png" {
		t.Errorf("First scene should use the character reference, got %s", firstRef)
	}

	secondRef := videoSubmits[1].Body.(map[string]any)["imageUrls"].(string)
	if !strings.Contains(secondRef, "_frame_1") {
		t.Errorf("Second scene should use scene 1's ending frame, got %s", secondRef)
	}
}

func TestRun_NoCDNReusesReferenceImage(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	f.uploader.configured = false
	job := f.store.Create("prompt", 2, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	var videoSubmits []provider.SubmitSpec
	for _, s := range f.tasks.submits {
		if s.Path == "/veo/generate" {
			videoSubmits = append(videoSubmits, s)
		}
	}
	for i, s := range videoSubmits {
		ref := s.Body.(map[string]any)["imageUrls"].(string)
		if ref != "https://provider.example/reference.png" {
			t.Errorf("Scene %d: expected character reference without CDN, got %s", i+1, ref)
		}
	}

	final, _ := f.store.Get(job.ID)
	if final.Status != models.StatusComplete {
		t.Fatalf("Expected complete, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if !strings.HasPrefix(final.VideoURL, "/outputs/") {
		t.Errorf("Expected local fallback url, got %s", final.VideoURL)
	}
}

func TestRun_ScriptFailureIsTerminal(t *testing.T) {
	f := newFixture(t, &fakeScripts{err: errors.New("model unavailable")})
	job := f.store.Create("prompt", 2, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	final, _ := f.store.Get(job.ID)
	if final.Status != models.StatusError {
		t.Fatalf("Expected error status, got %s", final.Status)
	}
	if !strings.Contains(final.ErrorMessage, "script generation failed") {
		t.Errorf("Error message missing stage context: %s", final.ErrorMessage)
	}
	if !strings.Contains(final.ErrorMessage, "model unavailable") {
		t.Errorf("Error message missing cause: %s", final.ErrorMessage)
	}

	if len(f.tasks.submits) != 0 {
		t.Error("Later stages must not run after a failure")
	}
	if len(f.archive.outcomes) != 1 {
		t.Fatalf("Expected 1 archived outcome, got %d", len(f.archive.outcomes))
	}
	if f.archive.outcomes[0].Status != models.StatusError {
		t.Errorf("Archived outcome has wrong status: %s", f.archive.outcomes[0].Status)
	}
	if last := f.producer.statuses[len(f.producer.statuses)-1]; last != "error" {
		t.Errorf("Expected final error event, got %s", last)
	}
}

func TestRun_FatalPollErrorDoesNotRetry(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	f.tasks.pollErr = fmt.Errorf("%w: content policy violation", provider.ErrTaskFailed)
	job := f.store.Create("prompt", 2, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	final, _ := f.store.Get(job.ID)
	if final.Status != models.StatusError {
		t.Fatalf("Expected error status, got %s", final.Status)
	}
	// One image submit, no retries, and no video submits after the failure.
	if len(f.tasks.submits) != 1 {
		t.Errorf("Expected exactly 1 submit for a fatal error, got %d", len(f.tasks.submits))
	}
}

func TestRun_TransientAssemblyErrorRecovers(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	f.composer.composeFailures = 1
	job := f.store.Create("prompt", 2, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	final, _ := f.store.Get(job.ID)
	if final.Status != models.StatusComplete {
		t.Fatalf("Expected complete after one encoder hiccup, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if f.composer.composeCalls != 2 {
		t.Errorf("Expected 2 compose attempts, got %d", f.composer.composeCalls)
	}
	if len(final.SceneDurations) != 2 {
		t.Errorf("Expected durations from the successful attempt, got %d", len(final.SceneDurations))
	}
}

func TestRun_TransientCaptionErrorRecovers(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	f.composer.burnFailures = 1
	job := f.store.Create("prompt", 2, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	final, _ := f.store.Get(job.ID)
	if final.Status != models.StatusComplete {
		t.Fatalf("Expected complete after one encoder hiccup, got %s (%s)", final.Status, final.ErrorMessage)
	}
	if f.composer.burnCalls != 2 {
		t.Errorf("Expected 2 burn attempts, got %d", f.composer.burnCalls)
	}
	if !f.composer.burned {
		t.Error("Captions were never burned")
	}
}

func TestRun_AssemblyFailureKeepsArtifacts(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	f.composer.composeErr = errors.New("encoder exploded")
	job := f.store.Create("prompt", 2, models.AspectPortrait)

	f.orch.Run(context.Background(), job.ID)

	final, _ := f.store.Get(job.ID)
	if final.Status != models.StatusError {
		t.Fatalf("Expected error status, got %s", final.Status)
	}
	if !strings.Contains(final.ErrorMessage, "video assembly failed") {
		t.Errorf("Error message missing stage context: %s", final.ErrorMessage)
	}
	// Artifacts accumulated before the failure survive.
	if final.Script == nil {
		t.Error("Script lost on later-stage failure")
	}
	if len(final.SceneVideos) != 2 {
		t.Errorf("Scene videos lost on later-stage failure: %d", len(final.SceneVideos))
	}
}

func TestRun_DeletedJobStopsQuietly(t *testing.T) {
	f := newFixture(t, &fakeScripts{})

	f.orch.Run(context.Background(), "vid_missing")

	if len(f.tasks.submits) != 0 {
		t.Error("No work should happen for an unknown job")
	}
	if len(f.producer.statuses) != 0 {
		t.Error("No events should publish for an unknown job")
	}
}

func TestStart_RunsInBackground(t *testing.T) {
	f := newFixture(t, &fakeScripts{})
	job := f.store.Create("prompt", 1, models.AspectPortrait)

	f.orch.Start(job.ID)
	f.orch.Wait()

	final, _ := f.store.Get(job.ID)
	if final.Status != models.StatusComplete {
		t.Errorf("Expected complete, got %s (%s)", final.Status, final.ErrorMessage)
	}
}
