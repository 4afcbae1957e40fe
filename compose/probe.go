package compose

import (
	"bytes"
	"context"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultClipDuration is used only when the measurement tooling itself
// fails; a measured value always wins.
const DefaultClipDuration = 4.0

var durationRe = regexp.MustCompile(`Duration:\s*(\d+):(\d+):(\d+\.\d+)`)

// MeasureDuration returns the true duration of a clip in seconds, asking
// ffprobe first and falling back to parsing ffmpeg's banner output.
func (c *Composer) MeasureDuration(ctx context.Context, path string) float64 {
	if d, err := c.probeDuration(ctx, path); err == nil {
		return d
	}
	if d, ok := c.bannerDuration(ctx, path); ok {
		return d
	}

	c.logger.Warn("duration measurement failed, using default",
		zap.String("path", path),
		zap.Float64("default", DefaultClipDuration),
	)
	return DefaultClipDuration
}

func (c *Composer) probeDuration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, c.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
}

// bannerDuration scrapes "Duration: HH:MM:SS.ss" from ffmpeg -i stderr.
// ffmpeg exits nonzero without an output file, so the exit code is ignored.
func (c *Composer) bannerDuration(ctx context.Context, path string) (float64, bool) {
	cmd := exec.CommandContext(ctx, c.ffmpegPath, "-i", path)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf
	_ = cmd.Run()

	return ParseBannerDuration(stderrBuf.String())
}

// ParseBannerDuration extracts a duration in seconds from ffmpeg banner
// output. Exported for testing without a real ffmpeg binary.
func ParseBannerDuration(stderr string) (float64, bool) {
	m := durationRe.FindStringSubmatch(stderr)
	if m == nil {
		return 0, false
	}
	h, _ := strconv.ParseFloat(m[1], 64)
	mins, _ := strconv.ParseFloat(m[2], 64)
	s, _ := strconv.ParseFloat(m[3], 64)
	return h*3600 + mins*60 + s, true
}
