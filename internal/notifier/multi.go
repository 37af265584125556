package notifier

import (
	"context"
	"errors"
	"log/slog"

	"github.com/amishk599/jobfeed/internal/model"
)

// Ensure MultiNotifier implements model.Notifier.
var _ model.Notifier = (*MultiNotifier)(nil)

// MultiNotifier hands each batch to several sinks in order. A failing sink
// does not stop the others.
type MultiNotifier struct {
	sinks  []model.Notifier
	logger *slog.Logger
}

// NewMultiNotifier fans out to sinks. The first sink is the primary one
// (normally the broadcast hub).
func NewMultiNotifier(logger *slog.Logger, sinks ...model.Notifier) *MultiNotifier {
	return &MultiNotifier{sinks: sinks, logger: logger}
}

// Notify calls every sink and joins their errors.
func (m *MultiNotifier) Notify(ctx context.Context, listings []model.Listing) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, listings); err != nil {
			m.logger.Error("notifier failed", "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
