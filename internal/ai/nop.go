package ai

import (
	"context"
	"errors"

	"github.com/amishk599/jobfeed/internal/model"
)

// ErrDisabled is returned when letter generation is switched off.
var ErrDisabled = errors.New("letter generation is disabled")

// NopLetterWriter is used when ai.enabled is false.
type NopLetterWriter struct{}

func NewNopLetterWriter() *NopLetterWriter {
	return &NopLetterWriter{}
}

// Write always fails with ErrDisabled.
func (n *NopLetterWriter) Write(_ context.Context, _ string, _ model.Listing) (string, error) {
	return "", ErrDisabled
}
