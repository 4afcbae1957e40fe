// Package compose turns N heterogeneous source clips into one normalized,
// crossfade-joined video: download, standardize, measure, plan, render.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// stderrTail bounds how much diagnostic output an EncodingError carries.
const stderrTail = 2000

// EncodingError reports a nonzero exit from the external media tool, with
// the tail of its stderr attached as the diagnostic detail.
type EncodingError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.Op, e.Err, e.Stderr)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// runFFmpeg executes one ffmpeg invocation, capturing stderr for error
// reporting. Success is exit code zero, nothing more.
func runFFmpeg(ctx context.Context, op, ffmpegPath string, args []string) error {
	cmd := exec.CommandContext(ctx, ffmpegPath, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &stderrBuf

	if err := cmd.Run(); err != nil {
		return &EncodingError{
			Op:     op,
			Stderr: tail(stderrBuf.String(), stderrTail),
			Err:    err,
		}
	}
	return nil
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
