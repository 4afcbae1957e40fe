package compose

import (
	"context"
	"path/filepath"
)

// BurnCaptions applies a drawtext overlay program in one pass, re-encoding
// video only and copying audio unchanged. The program comes from the
// captions package; "null" is a valid no-op program.
func (c *Composer) BurnCaptions(ctx context.Context, inputPath, program, outputName string) (string, error) {
	outputPath := filepath.Join(c.outputDir, outputName+"_captioned.mp4")

	args := []string{
		"-y",
		"-i", inputPath,
		"-vf", program,
		"-c:v", "libx264", "-preset", "ultrafast", "-crf", "23", "-pix_fmt", "yuv420p",
		"-c:a", "copy",
		"-movflags", "+faststart",
		outputPath,
	}

	if err := runFFmpeg(ctx, "burn captions", c.ffmpegPath, args); err != nil {
		return "", err
	}
	return outputPath, nil
}
