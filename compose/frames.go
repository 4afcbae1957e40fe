package compose

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

// ContinuityFrame downloads a generated clip and extracts its final frame,
// normalized to the target geometry. The result feeds the next scene's
// generation request as its continuity reference.
func (c *Composer) ContinuityFrame(ctx context.Context, clipURL string, target Target, outputName string) (string, error) {
	if err := os.MkdirAll(c.tempDir, 0o755); err != nil {
		return "", err
	}
	clipPath, err := c.download(ctx, clipURL, outputName+"_clip.mp4")
	if err != nil {
		return "", err
	}
	return c.ExtractLastFrame(ctx, clipPath, target, outputName)
}

// ExtractLastFrame grabs the final frame of a clip and normalizes it to
// the target geometry.
func (c *Composer) ExtractLastFrame(ctx context.Context, clipPath string, target Target, outputName string) (string, error) {
	rawPath := filepath.Join(c.tempDir, outputName+"_raw.png")

	args := []string{
		"-y",
		"-sseof", "-0.1",
		"-i", clipPath,
		"-frames:v", "1",
		rawPath,
	}
	if err := runFFmpeg(ctx, "extract last frame", c.ffmpegPath, args); err != nil {
		return "", err
	}

	outputPath := filepath.Join(c.tempDir, outputName+".jpg")
	if err := c.normalizeFrame(rawPath, outputPath, target.Width, target.Height); err != nil {
		return "", err
	}

	c.logger.Debug("continuity frame extracted",
		zap.String("clip", clipPath),
		zap.String("frame", outputPath),
	)
	return outputPath, nil
}

// Thumbnail renders a poster image for the finished video: first frame,
// filled and center-cropped to a fixed preview size.
func (c *Composer) Thumbnail(ctx context.Context, videoPath, outputName string) (string, error) {
	rawPath := filepath.Join(c.tempDir, outputName+"_poster_raw.png")

	args := []string{
		"-y",
		"-i", videoPath,
		"-frames:v", "1",
		rawPath,
	}
	if err := runFFmpeg(ctx, "extract thumbnail frame", c.ffmpegPath, args); err != nil {
		return "", err
	}

	outputPath := filepath.Join(c.outputDir, outputName+"_thumb.jpg")
	if err := c.normalizeFrame(rawPath, outputPath, 540, 960); err != nil {
		return "", err
	}
	return outputPath, nil
}

func (c *Composer) normalizeFrame(inputPath, outputPath string, width, height int) error {
	src, err := imaging.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open frame: %w", err)
	}

	filled := imaging.Fill(src, width, height, imaging.Center, imaging.Lanczos)

	if err := imaging.Save(filled, outputPath, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("save frame: %w", err)
	}
	return nil
}
