package script

import (
	"fmt"
	"strings"

	"videogen/models"
)

// BuildImagePrompt derives the reference-image prompt from the character
// description. The goal is character/style consistency across scenes.
func BuildImagePrompt(characterDescription string) string {
	return fmt.Sprintf(
		"Professional portrait photo, %s, single person only, waist-up, centered, "+
			"neutral studio pose, plain seamless white studio background, "+
			"natural soft front key light, hyper-realistic, 4K, detailed textures. "+
			"No text, no logos, no watermark, no collage, no devices or screens.",
		characterDescription,
	)
}

// BuildVideoPrompt assembles the generation prompt for one scene. The first
// scene uses the reference image for character likeness only; later scenes
// continue from the previous scene's ending frame.
func BuildVideoPrompt(scene models.Scene, sceneIndex int, characterDescription, backgroundTheme string) string {
	var parts []string

	if sceneIndex == 0 {
		parts = append(parts,
			"Provide a cinematic video shot starting immediately in media res. "+
				"Use the reference image for character likeness and outfit ONLY; "+
				"ignore the neutral pose in the reference image.")
	} else {
		parts = append(parts,
			"Continue seamlessly from the reference image. It shows the exact "+
				"ending frame of the previous scene: start in this exact pose and "+
				"position and maintain perfect continuity.")
	}

	parts = append(parts, "AT START (t=0s): "+scene.VisualDescription)

	if backgroundTheme != "" {
		parts = append(parts, "BACKGROUND: "+backgroundTheme)
	}
	if characterDescription != "" {
		parts = append(parts, "CHARACTER: "+characterDescription)
	}

	parts = append(parts,
		"STYLE: hyper-realistic, 4K, cinematic, natural lighting, detailed "+
			"textures, steady fluid camera movement, consistent lighting.",
		"AUDIO: cinematic sound effects matching the action, realistic ambient "+
			"noise, high fidelity.",
		"CRITICAL: do not display any text, subtitles, watermarks, or UI "+
			"elements. Clean cinematic footage only.",
	)

	return strings.Join(parts, " ")
}
