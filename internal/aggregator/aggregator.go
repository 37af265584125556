// Package aggregator runs one query against every configured source and
// collects the raw results.
package aggregator

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobfeed/internal/model"
)

// Aggregator queries its sources one after another, in configuration order.
type Aggregator struct {
	sources []model.SourceClient
	logger  *slog.Logger
}

// New creates an Aggregator over sources.
func New(sources []model.SourceClient, logger *slog.Logger) *Aggregator {
	return &Aggregator{sources: sources, logger: logger}
}

// Sources returns the names of the configured sources.
func (a *Aggregator) Sources() []string {
	names := make([]string, len(a.sources))
	for i, s := range a.sources {
		names[i] = s.Name()
	}
	return names
}

// Aggregate queries every source and tags each raw result with the name of
// the source that produced it. A failing source is logged and contributes
// nothing; Aggregate itself never fails.
func (a *Aggregator) Aggregate(ctx context.Context, query string) []model.RawResult {
	var out []model.RawResult
	for _, src := range a.sources {
		hits, err := src.Search(ctx, query)
		if err != nil {
			a.logger.Error("source query failed",
				"source", src.Name(),
				"error", err,
			)
			continue
		}
		for _, h := range hits {
			out = append(out, model.RawResult{Source: src.Name(), Data: h})
		}
		a.logger.Debug("source queried", "source", src.Name(), "fetched", len(hits))
	}
	return out
}
