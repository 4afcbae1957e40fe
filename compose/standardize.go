package compose

import (
	"context"
	"fmt"
	"strings"
)

// standardize re-encodes one clip to the target geometry: scale to fill
// preserving aspect ratio, center-crop to exact dimensions, square pixels,
// fixed frame rate, AAC audio so cross-clip blending is well-defined.
// Clips after the first lose TrimLeadIn seconds from the head.
func (c *Composer) standardize(ctx context.Context, inputPath, outputPath string, index int, target Target) error {
	args := []string{"-y"}
	if index > 0 && c.TrimLeadIn > 0 {
		args = append(args, "-ss", formatSeconds(c.TrimLeadIn))
	}
	args = append(args,
		"-i", inputPath,
		"-vf", StandardizeFilter(target.Width, target.Height),
		"-r", fmt.Sprintf("%d", target.FPS),
		"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p",
		"-c:a", "aac",
		outputPath,
	)

	if err := runFFmpeg(ctx, fmt.Sprintf("standardize clip %d", index+1), c.ffmpegPath, args); err != nil {
		return err
	}
	return nil
}

// StandardizeFilter builds the scale/crop/SAR chain for the target frame.
func StandardizeFilter(width, height int) string {
	return strings.Join([]string{
		fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase", width, height),
		fmt.Sprintf("crop=%d:%d:(in_w-%d)/2:(in_h-%d)/2", width, height, width, height),
		"setsar=1",
	}, ",")
}
