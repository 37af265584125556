// Package store persists listings and enforces uniqueness on external_id.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/amishk599/jobfeed/internal/model"
)

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Store is a ListingStore that holds resources until closed.
type Store interface {
	model.ListingStore
	io.Closer
}

// Open returns the store selected by driver. path is used by sqlite, dsn by
// postgres.
func Open(ctx context.Context, driver, path, dsn string, normalizer model.Normalizer, logger *slog.Logger) (Store, error) {
	switch driver {
	case DriverSQLite, "":
		return NewSQLiteStore(path, normalizer, logger)
	case DriverPostgres:
		return NewPostgresStore(ctx, dsn, normalizer, logger)
	case DriverMemory:
		return NewMemoryStore(normalizer, logger), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

// insertFunc inserts one normalized listing and returns it with the
// store-assigned fields set. A collision on external_id yields
// model.ErrDuplicateKey.
type insertFunc func(ctx context.Context, l model.Listing) (model.Listing, error)

// saveEach normalizes and inserts every result on its own, so one bad record
// never affects another. Only a context cancelled before the first insert
// fails the whole call.
func saveEach(ctx context.Context, results []model.RawResult, normalizer model.Normalizer, insert insertFunc, logger *slog.Logger) ([]model.Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("save listings: %w", err)
	}

	var inserted []model.Listing
	var skipped, duplicates int
	for _, r := range results {
		l, err := normalizer.Normalize(r)
		if err != nil {
			var perr *model.RecordParseError
			if errors.As(err, &perr) {
				logger.Warn("skipping unparseable record", "source", r.Source, "error", err)
			} else {
				logger.Error("normalizing record", "source", r.Source, "error", err)
			}
			skipped++
			continue
		}

		stored, err := insert(ctx, l)
		switch {
		case errors.Is(err, model.ErrDuplicateKey):
			logger.Debug("listing already stored", "source", l.Source, "external_id", l.ExternalID)
			duplicates++
		case err != nil:
			logger.Error("inserting listing",
				"source", l.Source,
				"external_id", l.ExternalID,
				"error", err,
			)
			skipped++
		default:
			inserted = append(inserted, stored)
		}

		if ctx.Err() != nil {
			logger.Warn("save interrupted", "error", ctx.Err(), "inserted", len(inserted))
			break
		}
	}

	logger.Debug("save complete",
		"received", len(results),
		"new", len(inserted),
		"duplicates", duplicates,
		"skipped", skipped,
	)
	return inserted, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// jsonText returns the JSON text of raw for a nullable TEXT column.
func jsonText(raw json.RawMessage) sql.NullString {
	if len(raw) == 0 {
		return sql.NullString{}
	}
	return sql.NullString{String: string(raw), Valid: true}
}

var jsonNull = json.RawMessage("null")

// rawOrNull returns b as JSON, or JSON null when b is empty.
func rawOrNull(b []byte) json.RawMessage {
	if len(b) == 0 {
		return jsonNull
	}
	return json.RawMessage(b)
}
