package model

import (
	"context"
	"encoding/json"
	"time"
)

// Listing is the normalized, source-agnostic representation of one job listing.
type Listing struct {
	ID                  int64           `json:"id"`                   // store-assigned
	ExternalID          string          `json:"external_id"`          // upstream id, unique across the store
	Headline            string          `json:"headline"`             // job title
	Employer            string          `json:"employer"`             // empty if the source has none
	ApplicationDeadline string          `json:"application_deadline"` // raw deadline string as given upstream
	Description         string          `json:"description"`          // plain text
	URL                 string          `json:"url"`                  // listing web page
	Location            json.RawMessage `json:"location"`             // opaque, returned verbatim
	Source              string          `json:"source"`               // configured source name
	Raw                 json.RawMessage `json:"data"`                 // unmodified upstream object
	CreatedAt           time.Time       `json:"created_at"`
}

// RawResult is one upstream object tagged with the source that produced it.
type RawResult struct {
	Source string          `json:"source"`
	Data   json.RawMessage `json:"data"`
}

// SourceClient executes one search against an external provider.
type SourceClient interface {
	Name() string
	Search(ctx context.Context, query string) ([]json.RawMessage, error)
}

// Normalizer maps a raw upstream object onto the canonical Listing shape.
// It returns a *RecordParseError when required fields are missing.
type Normalizer interface {
	Normalize(raw RawResult) (Listing, error)
}

// ListingStore persists listings and enforces uniqueness on ExternalID.
type ListingStore interface {
	// Save normalizes and inserts each result independently and returns the
	// listings that were newly inserted. Duplicates and unparseable results
	// are skipped.
	Save(ctx context.Context, results []RawResult) ([]Listing, error)
	GetAll(ctx context.Context) ([]Listing, error)
	// GetByID returns ErrNotFound when no listing has the given id.
	GetByID(ctx context.Context, id int64) (Listing, error)
	Count(ctx context.Context) (int, error)
}

// Notifier delivers newly inserted listings somewhere (connected clients, chat, pub/sub).
type Notifier interface {
	Notify(ctx context.Context, listings []Listing) error
}
