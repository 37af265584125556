package ai

import (
	_ "embed"
	"text/template"
)

//go:embed prompts/cover_letter.md
var coverLetterPromptRaw string

// CoverLetterTemplate is the parsed prompt for adapting a cover letter.
var CoverLetterTemplate = template.Must(template.New("cover_letter").Parse(coverLetterPromptRaw))
