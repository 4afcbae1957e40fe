package compose

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"videogen/models"
)

// Target is the output geometry for one composition run.
type Target struct {
	Width       int
	Height      int
	AspectRatio models.AspectRatio
	FPS         int
}

func TargetFor(ratio models.AspectRatio) Target {
	w, h := ratio.Dimensions()
	return Target{Width: w, Height: h, AspectRatio: ratio, FPS: 30}
}

type Composer struct {
	logger      *zap.Logger
	httpClient  *http.Client
	tempDir     string
	outputDir   string
	ffmpegPath  string
	ffprobePath string

	// Crossfade is the fade length applied to both video and audio at
	// every transition. TrimLeadIn seconds are cut from the head of every
	// clip after the first to drop the static continuity reference frame
	// injected by the upstream generator.
	Crossfade  float64
	TrimLeadIn float64
}

func NewComposer(tempDir, outputDir string, crossfade, trimLeadIn float64, logger *zap.Logger) *Composer {
	return &Composer{
		logger:      logger,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
		tempDir:     tempDir,
		outputDir:   outputDir,
		ffmpegPath:  "ffmpeg",
		ffprobePath: "ffprobe",
		Crossfade:   crossfade,
		TrimLeadIn:  trimLeadIn,
	}
}

// Compose downloads the scene clips, standardizes them, measures their true
// durations, and renders the crossfade chain into outputDir. It returns the
// output path and the measured per-clip durations (the caption engine's
// preferred timing source).
//
// Standardization is idempotent by construction: output filenames are
// deterministic per index, so a retried attempt redoes the work in place
// and never reuses partial outputs.
func (c *Composer) Compose(ctx context.Context, clipURLs []string, target Target, outputName string) (string, []float64, error) {
	if len(clipURLs) == 0 {
		return "", nil, fmt.Errorf("no clips to compose")
	}

	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return "", nil, err
	}
	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", nil, err
	}

	localPaths := make([]string, 0, len(clipURLs))
	for i, url := range clipURLs {
		path, err := c.download(ctx, url, fmt.Sprintf("scene_%d.mp4", i+1))
		if err != nil {
			return "", nil, fmt.Errorf("download scene %d: %w", i+1, err)
		}
		localPaths = append(localPaths, path)
	}

	clips := make([]Clip, 0, len(localPaths))
	for i, path := range localPaths {
		stdPath := filepath.Join(c.tempDir, fmt.Sprintf("std_scene_%d.mp4", i))
		if err := c.standardize(ctx, path, stdPath, i, target); err != nil {
			return "", nil, err
		}
		clips = append(clips, Clip{
			Path:     stdPath,
			Duration: c.MeasureDuration(ctx, stdPath),
		})
	}

	durations := make([]float64, len(clips))
	for i, clip := range clips {
		durations[i] = clip.Duration
	}

	outputPath := filepath.Join(c.outputDir, outputName+".mp4")

	if len(clips) == 1 {
		if err := os.Rename(clips[0].Path, outputPath); err != nil {
			return "", nil, err
		}
		return outputPath, durations, nil
	}

	plan := Plan{Clips: clips, Crossfade: c.Crossfade}
	if err := c.render(ctx, plan, target, outputPath); err != nil {
		return "", nil, err
	}

	c.logger.Info("composition rendered",
		zap.String("output", outputPath),
		zap.Int("clips", len(clips)),
		zap.Float64("expected_duration", plan.TotalDuration()),
	)
	return outputPath, durations, nil
}

// render invokes the encoder once with the full transition chain.
func (c *Composer) render(ctx context.Context, plan Plan, target Target, outputPath string) error {
	graph, videoLabel, audioLabel := plan.FilterGraph()

	args := []string{"-y"}
	for _, clip := range plan.Clips {
		args = append(args, "-i", clip.Path)
	}
	args = append(args,
		"-filter_complex", graph,
		"-map", videoLabel,
		"-map", audioLabel,
		"-s", fmt.Sprintf("%dx%d", target.Width, target.Height),
		"-aspect", string(target.AspectRatio),
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "23", "-pix_fmt", "yuv420p",
		"-c:a", "aac", "-b:a", "128k",
		"-shortest",
		"-movflags", "+faststart",
		outputPath,
	)

	return runFFmpeg(ctx, "render composition", c.ffmpegPath, args)
}

func (c *Composer) download(ctx context.Context, url, filename string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	path := filepath.Join(c.tempDir, filename)
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", err
	}
	return path, nil
}
