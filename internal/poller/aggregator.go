package poller

import (
	"context"

	"github.com/amishk599/jobfeed/internal/model"
)

// ResultSource produces the raw results of one query across all sources.
// *aggregator.Aggregator satisfies it.
type ResultSource interface {
	Aggregate(ctx context.Context, query string) []model.RawResult
}
