// Package script turns a user prompt into a structured multi-scene script
// via the generative-task provider, and derives the downstream image and
// video prompts from it.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"videogen/models"
	"videogen/provider"
)

// TaskClient is the slice of the provider client the generator needs.
type TaskClient interface {
	Submit(ctx context.Context, spec provider.SubmitSpec) (string, error)
	Poll(ctx context.Context, spec provider.PollSpec, taskID string) (string, error)
}

type Generator struct {
	client       TaskClient
	model        string
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewGenerator(client TaskClient, model string, pollInterval time.Duration, logger *zap.Logger) *Generator {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Generator{
		client:       client,
		model:        model,
		pollInterval: pollInterval,
		logger:       logger,
	}
}

// Generate submits a script-generation task and parses the completed
// payload into a Script with exactly sceneCount scenes.
func (g *Generator) Generate(ctx context.Context, prompt string, sceneCount int) (*models.Script, error) {
	g.logger.Info("generating script",
		zap.Int("scene_count", sceneCount),
		zap.String("prompt", truncate(prompt, 50)),
	)

	taskID, err := g.client.Submit(ctx, provider.ScriptSubmit(g.model, systemPrompt(sceneCount), userPrompt(prompt, sceneCount)))
	if err != nil {
		return nil, err
	}

	payload, err := g.client.Poll(ctx, provider.ScriptPoll(g.pollInterval), taskID)
	if err != nil {
		return nil, err
	}

	script, err := Parse(payload)
	if err != nil {
		return nil, err
	}
	if len(script.Scenes) != sceneCount {
		return nil, fmt.Errorf("script has %d scenes, wanted %d", len(script.Scenes), sceneCount)
	}

	g.logger.Info("script generated", zap.Int("scenes", len(script.Scenes)))
	return script, nil
}

// Parse decodes the provider's script payload. Models occasionally wrap
// JSON in a markdown fence; strip it before decoding.
func Parse(payload string) (*models.Script, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "```") {
		payload = strings.TrimPrefix(payload, "```json")
		payload = strings.TrimPrefix(payload, "```")
		payload = strings.TrimSuffix(strings.TrimSpace(payload), "```")
	}

	var script models.Script
	if err := json.Unmarshal([]byte(payload), &script); err != nil {
		return nil, fmt.Errorf("parse script response: %w", err)
	}

	if script.CharacterDescription == "" {
		return nil, fmt.Errorf("script missing character description")
	}
	if len(script.Scenes) == 0 {
		return nil, fmt.Errorf("script has no scenes")
	}
	for i := range script.Scenes {
		if script.Scenes[i].SceneNumber != i+1 {
			return nil, fmt.Errorf("scene %d has ordinal %d, ordinals must be contiguous from 1",
				i+1, script.Scenes[i].SceneNumber)
		}
	}

	return &script, nil
}

func systemPrompt(sceneCount int) string {
	return fmt.Sprintf(`You are an expert video script writer for short-form viral content.

Create EXACTLY %d scenes for a video script. For each scene provide a
detailed visual description (what the camera sees) and a short dialogue or
text overlay (15-20 words max).

Output ONLY valid JSON in this exact format:
{
  "character_description": "Detailed description of the main character",
  "visual_style": "Overall visual style",
  "background_theme": "Consistent background setting",
  "scenes": [
    {"scene_number": 1, "visual_description": "...", "dialogue": "..."}
  ]
}

Rules: exactly %d scenes, each about 6 seconds of action, scenes flow
naturally, visual descriptions concrete and filmable, character consistent
across all scenes, JSON only.`, sceneCount, sceneCount)
}

func userPrompt(prompt string, sceneCount int) string {
	return fmt.Sprintf(`Create a %d-scene video script for:

%q

Make it viral-worthy and visually stunning. Output EXACTLY %d scenes as
valid JSON only, no markdown, no code blocks.`, sceneCount, prompt, sceneCount)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
