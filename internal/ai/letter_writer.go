package ai

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"text/template"

	"github.com/amishk599/jobfeed/internal/model"
)

// LLMLetterWriter adapts a base cover letter to one listing through an LLM.
type LLMLetterWriter struct {
	provider LLMProvider
	tmpl     *template.Template
	logger   *slog.Logger
}

// NewLLMLetterWriter creates a writer rendering prompts from tmpl.
func NewLLMLetterWriter(provider LLMProvider, tmpl *template.Template, logger *slog.Logger) *LLMLetterWriter {
	return &LLMLetterWriter{
		provider: provider,
		tmpl:     tmpl,
		logger:   logger,
	}
}

type letterPrompt struct {
	BaseLetter  string
	Headline    string
	Employer    string
	Description string
}

// Write returns the adapted letter text.
func (w *LLMLetterWriter) Write(ctx context.Context, baseLetter string, listing model.Listing) (string, error) {
	var prompt bytes.Buffer
	if err := w.tmpl.Execute(&prompt, letterPrompt{
		BaseLetter:  baseLetter,
		Headline:    listing.Headline,
		Employer:    listing.Employer,
		Description: listing.Description,
	}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	text, err := w.provider.Complete(ctx, prompt.String())
	if err != nil {
		return "", fmt.Errorf("llm complete: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("llm returned an empty letter")
	}

	w.logger.Debug("letter generated", "listing_id", listing.ID, "chars", len(text))
	return text, nil
}
