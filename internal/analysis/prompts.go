package analysis

import (
	_ "embed"
	"strings"

	"github.com/spigell/resume-scorer/internal/utils"
)

const (
	resumePlaceholder = "{{RESUME}}"
	jdPlaceholder     = "{{JD}}"
)

var (
	//go:embed prompts/feedback.md
	feedbackTemplate string

	//go:embed prompts/comparison.md
	comparisonTemplate string
)

// feedbackPrompt embeds the first limit runes of the résumé text.
func feedbackPrompt(resume string, limit int) string {
	return strings.ReplaceAll(feedbackTemplate, resumePlaceholder, utils.Prefix(resume, limit))
}

func comparisonPrompt(jd, resume string, jdLimit, resumeLimit int) string {
	return strings.NewReplacer(
		jdPlaceholder, utils.Prefix(jd, jdLimit),
		resumePlaceholder, utils.Prefix(resume, resumeLimit),
	).Replace(comparisonTemplate)
}

// cleanFeedback keeps only the text after the last "Suggestions:" marker.
func cleanFeedback(text string) string {
	parts := strings.Split(text, "Suggestions:")
	return strings.TrimSpace(parts[len(parts)-1])
}
