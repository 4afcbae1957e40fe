// Package captions assigns each scene's dialogue a time window over the
// composed video and renders the set as one drawtext overlay program.
package captions

import (
	"fmt"
	"strings"

	"videogen/models"
)

const (
	// WrapWidth is the column limit before dialogue wraps to a new line.
	WrapWidth = 25

	fontPath    = "/usr/share/fonts/truetype/liberation/LiberationSans-Bold.ttf"
	fontSize    = 70
	fontColor   = "white"
	borderColor = "black"
	borderWidth = 4
	lineSpacing = 10
)

// Window is a caption display interval [Start, End).
type Window struct {
	Start float64
	End   float64
}

// Windows derives per-scene caption windows. Explicit measured durations
// are the preferred, drift-free source; when their count does not match the
// scene count, the total duration is divided evenly instead. The windows
// partition [0, total) with no gaps or overlaps.
func Windows(totalDuration float64, durations []float64, sceneCount int) []Window {
	if sceneCount <= 0 {
		return nil
	}

	if len(durations) != sceneCount {
		even := totalDuration / float64(sceneCount)
		durations = make([]float64, sceneCount)
		for i := range durations {
			durations[i] = even
		}
	}

	windows := make([]Window, sceneCount)
	current := 0.0
	for i := 0; i < sceneCount; i++ {
		windows[i] = Window{Start: current, End: current + durations[i]}
		current += durations[i]
	}
	return windows
}

// BuildProgram builds the combined drawtext filter covering all scenes.
// Blank dialogues consume their time slot but emit no overlay. Returns the
// "null" no-op filter when nothing is rendered, so the caller can always
// apply the program unconditionally.
func BuildProgram(scenes []models.Scene, durations []float64, totalDuration float64) string {
	windows := Windows(totalDuration, durations, len(scenes))

	var filters []string
	for i, scene := range scenes {
		if strings.TrimSpace(scene.Dialogue) == "" {
			continue
		}

		text := Escape(Wrap(scene.Dialogue, WrapWidth))
		filters = append(filters, fmt.Sprintf(
			"drawtext=text='%s':fontfile='%s':fontsize=%d:fontcolor=%s:"+
				"borderw=%d:bordercolor=%s:line_spacing=%d:"+
				"x=(w-text_w)/2:y=(h-th)/2:enable='between(t,%s,%s)'",
			text, fontPath, fontSize, fontColor,
			borderWidth, borderColor, lineSpacing,
			formatSeconds(windows[i].Start), formatSeconds(windows[i].End),
		))
	}

	if len(filters) == 0 {
		return "null"
	}
	return strings.Join(filters, ",")
}

// Wrap word-wraps text onto lines of at most width columns. Words longer
// than the width get a line of their own.
func Wrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	var lines []string
	line := words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) <= width {
			line += " " + word
		} else {
			lines = append(lines, line)
			line = word
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

// Escape makes text safe inside a single-quoted drawtext argument. The
// escaping is lossless: rendered output reproduces the original visible
// characters. Replacement happens in a single pass, so escape sequences
// are never themselves re-escaped.
func Escape(text string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `'\''`,
		`:`, `\:`,
		`,`, `\,`,
	)
	return r.Replace(text)
}

func formatSeconds(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
