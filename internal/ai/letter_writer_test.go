package ai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/amishk599/jobfeed/internal/model"
)

type mockProvider struct {
	response string
	err      error
	prompt   string
}

func (m *mockProvider) Complete(_ context.Context, prompt string) (string, error) {
	m.prompt = prompt
	return m.response, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func listing() model.Listing {
	return model.Listing{
		ID:          4,
		Headline:    "Rörmokare",
		Employer:    "Rör AB",
		Description: "Vi söker en rörmokare med B-körkort.",
	}
}

func TestWrite_RendersPromptAndTrims(t *testing.T) {
	p := &mockProvider{response: "\n  Hej Rör AB,\n\nJag söker tjänsten.  \n"}
	w := NewLLMLetterWriter(p, CoverLetterTemplate, discardLogger())

	got, err := w.Write(context.Background(), "I am a plumber.", listing())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "Hej Rör AB,\n\nJag söker tjänsten." {
		t.Errorf("letter = %q", got)
	}
	for _, want := range []string{"I am a plumber.", "Rörmokare at Rör AB", "B-körkort"} {
		if !strings.Contains(p.prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, p.prompt)
		}
	}
}

func TestWrite_ProviderError(t *testing.T) {
	w := NewLLMLetterWriter(&mockProvider{err: errors.New("network error")}, CoverLetterTemplate, discardLogger())
	if _, err := w.Write(context.Background(), "base", listing()); err == nil {
		t.Fatal("expected error from provider failure")
	}
}

func TestWrite_EmptyCompletion(t *testing.T) {
	w := NewLLMLetterWriter(&mockProvider{response: "   "}, CoverLetterTemplate, discardLogger())
	if _, err := w.Write(context.Background(), "base", listing()); err == nil {
		t.Fatal("expected error for empty letter")
	}
}

func TestNopLetterWriter(t *testing.T) {
	_, err := NewNopLetterWriter().Write(context.Background(), "base", listing())
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("err = %v, want ErrDisabled", err)
	}
}
