package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobfeed/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes new listings to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each listing via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each listing. It never fails.
func (n *LogNotifier) Notify(_ context.Context, listings []model.Listing) error {
	for _, l := range listings {
		args := []any{"id", l.ID, "source", l.Source, "headline", l.Headline}
		if l.Employer != "" {
			args = append(args, "employer", l.Employer)
		}
		if loc := locationText(l.Location); loc != "" {
			args = append(args, "location", loc)
		}
		if l.URL != "" {
			args = append(args, "url", l.URL)
		}
		n.logger.Info("new listing", args...)
	}
	return nil
}
