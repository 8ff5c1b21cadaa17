package image

import "fmt"

// DefaultStyle is applied when a request omits the style or names an unknown one.
const DefaultStyle = "简笔画"

// stylePhrases maps a style label to the descriptive phrase appended to the
// user prompt before submission.
var stylePhrases = map[string]string{
	"简笔画": "simple line drawing, minimalist, black and white, clean lines",
	"卡通":  "cartoon style, cute, colorful, child-friendly",
	"水彩":  "watercolor style, soft colors, artistic",
	"素描":  "pencil sketch, hand-drawn, artistic lines",
}

const childFriendlySuffix = "suitable for children, educational"

// StylePhrase returns the descriptive phrase for a style label, falling back
// to the default style for unknown labels.
func StylePhrase(style string) string {
	if phrase, ok := stylePhrases[style]; ok {
		return phrase
	}
	return stylePhrases[DefaultStyle]
}

// BuildPrompt renders the style-conditioned prompt for the final image.
func BuildPrompt(prompt, style string) string {
	return fmt.Sprintf("%s, %s, %s", prompt, StylePhrase(style), childFriendlySuffix)
}

// BuildStepPrompt renders the prompt for one tutorial step. Each step is an
// independent generation call annotated with its position in the sequence.
func BuildStepPrompt(prompt, style string, step, total int) string {
	return fmt.Sprintf("%s, step %d of %d, step by step drawing tutorial", BuildPrompt(prompt, style), step, total)
}
