package dto

import "errors"

var ErrJobNotFound = errors.New("job not found")

type GenerateRequest struct {
	Prompt      string `json:"prompt"`
	Scenes      int    `json:"scenes"`
	AspectRatio string `json:"aspect_ratio"`
}

type GenerateResponse struct {
	JobID                string `json:"job_id"`
	Status               string `json:"status"`
	EstimatedTimeSeconds int    `json:"estimated_time_seconds"`
}

type StatusResponse struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	ProgressPercent int    `json:"progress_percent"`
	CurrentStep     string `json:"current_step"`
	CreatedAt       string `json:"created_at"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

type DownloadResponse struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	VideoURL        string `json:"video_url,omitempty"`
	ThumbnailURL    string `json:"thumbnail_url,omitempty"`
	DurationSeconds int    `json:"duration_seconds,omitempty"`
	ErrorMessage    string `json:"error_message,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	TraceID string `json:"trace_id,omitempty"`
}
