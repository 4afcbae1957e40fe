package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseBannerDuration(t *testing.T) {
	stderr := `Input #0, mov,mp4,m4a,3gp,3g2,mj2, from 'scene_1.mp4':
  Duration: 00:00:07.05, start: 0.000000, bitrate: 2168 kb/s`

	d, ok := ParseBannerDuration(stderr)
	assert.True(t, ok)
	assert.InDelta(t, 7.05, d, 1e-9)
}

func TestParseBannerDuration_HoursAndMinutes(t *testing.T) {
	d, ok := ParseBannerDuration("Duration: 01:02:03.50, start: 0.0")
	assert.True(t, ok)
	assert.InDelta(t, 3723.5, d, 1e-9)
}

func TestParseBannerDuration_NoMatch(t *testing.T) {
	_, ok := ParseBannerDuration("some unrelated ffmpeg output")
	assert.False(t, ok)
}
