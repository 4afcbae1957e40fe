package models

import (
	"time"
)

type JobStatus string

const (
	StatusPending           JobStatus = "pending"
	StatusGeneratingScript  JobStatus = "generating_script"
	StatusGeneratingImages  JobStatus = "generating_images"
	StatusGeneratingVideos  JobStatus = "generating_videos"
	StatusAssemblingVideo   JobStatus = "assembling_video"
	StatusAddingCaptions    JobStatus = "adding_captions"
	StatusComplete          JobStatus = "complete"
	StatusError             JobStatus = "error"
)

// Terminal reports whether no further stage transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

type AspectRatio string

const (
	AspectLandscape AspectRatio = "16:9"
	AspectPortrait  AspectRatio = "9:16"
	AspectSquare    AspectRatio = "1:1"
)

// Dimensions returns the output frame size for the aspect ratio.
func (a AspectRatio) Dimensions() (width, height int) {
	switch a {
	case AspectPortrait:
		return 1080, 1920
	case AspectSquare:
		return 1080, 1080
	default:
		return 1920, 1080
	}
}

// Scene is a single entry in a generated script. The asset references are
// back-filled as the pipeline progresses; everything else is immutable once
// the script is produced.
type Scene struct {
	SceneNumber       int    `json:"scene_number"`
	VisualDescription string `json:"visual_description"`
	Dialogue          string `json:"dialogue"`

	ImageURL     string `json:"image_url,omitempty"`
	VideoURL     string `json:"video_url,omitempty"`
	LastFrameURL string `json:"last_frame_url,omitempty"`
}

// Script holds the character/style description and the ordered scene list.
// Scene numbers are contiguous from 1 and match list order.
type Script struct {
	CharacterDescription string  `json:"character_description"`
	VisualStyle          string  `json:"visual_style,omitempty"`
	BackgroundTheme      string  `json:"background_theme,omitempty"`
	Scenes               []Scene `json:"scenes"`
}

// Job is the complete state of one video generation run. Jobs are created
// once, mutated only through store patches, and never deleted automatically.
type Job struct {
	ID              string    `json:"job_id"`
	Status          JobStatus `json:"status"`
	ProgressPercent int       `json:"progress_percent"`
	CurrentStep     string    `json:"current_step"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	Prompt      string      `json:"prompt"`
	SceneCount  int         `json:"scene_count"`
	AspectRatio AspectRatio `json:"aspect_ratio"`

	Script            *Script   `json:"script,omitempty"`
	ReferenceImageURL string    `json:"reference_image_url,omitempty"`
	SceneVideos       []string  `json:"scene_videos,omitempty"`
	SceneDurations    []float64 `json:"scene_durations,omitempty"`

	VideoURL        string `json:"video_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`

	ErrorMessage string `json:"error_message,omitempty"`
}

// Clone returns a deep copy so store readers never alias live state.
func (j *Job) Clone() *Job {
	out := *j
	if j.Script != nil {
		sc := *j.Script
		sc.Scenes = append([]Scene(nil), j.Script.Scenes...)
		out.Script = &sc
	}
	out.SceneVideos = append([]string(nil), j.SceneVideos...)
	out.SceneDurations = append([]float64(nil), j.SceneDurations...)
	return &out
}
