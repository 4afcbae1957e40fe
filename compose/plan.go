package compose

import (
	"fmt"
	"strings"
)

// Clip is one standardized input with its measured duration.
type Clip struct {
	Path     string
	Duration float64
}

// Plan is the derived crossfade composition: ordered clips plus one fade
// duration. It is recomputed per run and never mutated once built; it is
// the sole input to filter-graph construction.
type Plan struct {
	Clips     []Clip
	Crossfade float64
}

// Offsets returns the cumulative xfade start offset for each transition.
// Transition i (1-indexed) begins at sum(durations[0..i-1]) - i*crossfade,
// so each fade eats into the tail of the preceding clip.
func (p Plan) Offsets() []float64 {
	if len(p.Clips) < 2 {
		return nil
	}
	offsets := make([]float64, 0, len(p.Clips)-1)
	cumulative := 0.0
	for i := 1; i < len(p.Clips); i++ {
		cumulative += p.Clips[i-1].Duration - p.Crossfade
		offsets = append(offsets, cumulative)
	}
	return offsets
}

// TotalDuration is the expected output length: the sum of clip durations
// minus one crossfade per transition.
func (p Plan) TotalDuration() float64 {
	total := 0.0
	for _, c := range p.Clips {
		total += c.Duration
	}
	return total - float64(len(p.Clips)-1)*p.Crossfade
}

// FilterGraph builds the full transition chain as one filter_complex
// program: pairwise video xfades time-aligned with audio acrossfades.
// Returns the graph and the final video/audio labels to map.
func (p Plan) FilterGraph() (graph, videoLabel, audioLabel string) {
	offsets := p.Offsets()

	var b strings.Builder
	prevV := "[0:v]"
	prevA := "[0:a]"

	for i := 1; i < len(p.Clips); i++ {
		outV := fmt.Sprintf("v_fade_%d", i)
		outA := fmt.Sprintf("a_fade_%d", i)

		fmt.Fprintf(&b, "%s[%d:v]xfade=transition=fade:duration=%s:offset=%s[%s]; ",
			prevV, i, formatSeconds(p.Crossfade), formatSeconds(offsets[i-1]), outV)
		fmt.Fprintf(&b, "%s[%d:a]acrossfade=d=%s[%s]; ",
			prevA, i, formatSeconds(p.Crossfade), outA)

		prevV = "[" + outV + "]"
		prevA = "[" + outA + "]"
	}

	return strings.TrimSuffix(strings.TrimSpace(b.String()), ";"), prevV, prevA
}

func formatSeconds(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), ".")
}
