package poller

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/amishk599/jobfeed/internal/model"
)

// Pipeline owns one poll cycle: aggregate → save → notify.
type Pipeline struct {
	query    string
	source   ResultSource
	store    model.ListingStore
	notifier model.Notifier
	logger   *slog.Logger
}

// NewPipeline creates a pipeline wired with all its dependencies.
func NewPipeline(
	query string,
	source ResultSource,
	store model.ListingStore,
	notifier model.Notifier,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		query:    query,
		source:   source,
		store:    store,
		notifier: notifier,
		logger:   logger,
	}
}

// Poll runs one cycle and returns the listings it inserted. The notifier is
// called only when something new was stored, and only after every insert of
// the cycle has finished.
func (p *Pipeline) Poll(ctx context.Context) ([]model.Listing, error) {
	results := p.source.Aggregate(ctx, p.query)

	fresh, err := p.store.Save(ctx, results)
	if err != nil {
		return nil, fmt.Errorf("poll %q: saving: %w", p.query, err)
	}

	p.logger.Info("poll complete",
		"query", p.query,
		"fetched", len(results),
		"new", len(fresh),
	)

	if len(fresh) == 0 {
		return nil, nil
	}
	if err := p.notifier.Notify(ctx, fresh); err != nil {
		return fresh, fmt.Errorf("poll %q: notifying: %w", p.query, err)
	}
	return fresh, nil
}

// Run is Poll without the result, for use as a scheduler cycle.
func (p *Pipeline) Run(ctx context.Context) error {
	_, err := p.Poll(ctx)
	return err
}
