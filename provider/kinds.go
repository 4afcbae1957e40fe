package provider

import (
	"strings"
	"time"

	"videogen/models"
)

// The three generation kinds share the poll loop in client.go and differ
// only in the parameters below: request shape, status-protocol dialect,
// result-extraction priority, and attempt/interval budgets.

// ScriptSubmit builds the creation call for script generation. The result
// payload is the script JSON itself rather than a URL.
func ScriptSubmit(model, systemPrompt, userPrompt string) SubmitSpec {
	return SubmitSpec{
		Path: "/jobs/createTask",
		Body: map[string]any{
			"model": model,
			"input": map[string]any{
				"prompt":        userPrompt,
				"system_prompt": systemPrompt,
				"output_format": "json",
			},
		},
		TaskIDPaths: defaultTaskIDPaths,
	}
}

func ScriptPoll(interval time.Duration) PollSpec {
	return PollSpec{
		Path:       "/jobs/recordInfo",
		QueryParam: "taskId",
		Classify:   classifyByState,
		Extractors: []Extractor{
			PathString("data", "resultJson"),
			PathString("data", "output"),
			PathString("data", "content"),
			PathString("output"),
		},
		MaxAttempts: 30,
		Interval:    interval,
	}
}

// ImageSubmit builds the creation call for reference-image generation.
func ImageSubmit(prompt, outputFormat string) SubmitSpec {
	return SubmitSpec{
		Path: "/jobs/createTask",
		Body: map[string]any{
			"model": "google/nano-banana",
			"input": map[string]any{
				"prompt":        prompt,
				"output_format": outputFormat,
			},
		},
		TaskIDPaths: defaultTaskIDPaths,
	}
}

func ImagePoll(interval time.Duration) PollSpec {
	return PollSpec{
		Path:       "/jobs/recordInfo",
		QueryParam: "taskId",
		Classify:   classifyByState,
		Extractors: []Extractor{
			EmbeddedJSONList("resultUrls", "data", "resultJson"),
			PathURL("data", "output"),
			FirstOfList("data", "output"),
			PathURL("data", "imageUrl"),
			PathURL("data", "image_url"),
			PathURL("data", "url"),
			PathURL("imageUrl"),
			PathURL("image_url"),
		},
		MaxAttempts: 60,
		Interval:    interval,
	}
}

// VideoSubmit builds the creation call for scene-video generation.
func VideoSubmit(prompt, referenceImageURL string, aspectRatio models.AspectRatio) SubmitSpec {
	return SubmitSpec{
		Path: "/veo/generate",
		Body: map[string]any{
			"model":           "veo3_fast",
			"prompt":          prompt,
			"aspectRatio":     string(aspectRatio),
			"imageUrls":       referenceImageURL,
			"generationType":  "FIRST_AND_LAST_FRAMES_2_VIDEO",
			"negative_prompt": "text, subtitles, watermark, logo, signature, typography, blurred, distorted",
		},
		TaskIDPaths: defaultTaskIDPaths,
	}
}

func VideoPoll(interval time.Duration) PollSpec {
	return PollSpec{
		Path:       "/veo/record-info",
		QueryParam: "taskId",
		Classify:   classifyByFlag,
		Extractors: []Extractor{
			FirstOfList("data", "response", "resultUrls"),
			PathURL("data", "output"),
			FirstOfList("data", "output"),
			PathURL("data", "videoUrl"),
			PathURL("data", "video_url"),
			PathURL("data", "url"),
			PathURL("videoUrl"),
			PathURL("video_url"),
		},
		MaxAttempts: 120,
		Interval:    interval,
	}
}

var defaultTaskIDPaths = [][]string{
	{"data", "taskId"},
	{"taskId"},
	{"task_id"},
	{"id"},
}

// classifyByState handles the dialect where data.state carries a status
// word. Unknown words count as pending.
func classifyByState(data map[string]any) Classification {
	state := ""
	for _, path := range [][]string{{"data", "state"}, {"state"}, {"status"}} {
		if v, ok := lookup(data, path...); ok {
			if s, ok := v.(string); ok && s != "" {
				state = strings.ToLower(s)
				break
			}
		}
	}

	switch state {
	case "success":
		return Classification{State: StateSuccess}
	case "failed", "error":
		return Classification{State: StateFailed, Message: failureMessage(data)}
	default:
		return Classification{State: StatePending}
	}
}

// classifyByFlag handles the dialect where data.successFlag is 1 on
// completion and errorCode/errorMessage mark task failure.
func classifyByFlag(data map[string]any) Classification {
	if v, ok := lookup(data, "data", "successFlag"); ok {
		if f, ok := v.(float64); ok && f == 1 {
			return Classification{State: StateSuccess}
		}
	}

	var msg string
	if v, ok := lookup(data, "data", "errorMessage"); ok {
		if s, ok := v.(string); ok && s != "" {
			msg = s
		}
	}
	if v, ok := lookup(data, "data", "errorCode"); ok && v != nil {
		if msg == "" {
			msg = "task error"
		}
		return Classification{State: StateFailed, Message: msg}
	}
	if msg != "" {
		return Classification{State: StateFailed, Message: msg}
	}

	return Classification{State: StatePending}
}

func failureMessage(data map[string]any) string {
	for _, path := range [][]string{{"data", "error"}, {"error"}, {"message"}} {
		if v, ok := lookup(data, path...); ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
