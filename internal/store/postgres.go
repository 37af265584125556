package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobfeed/internal/model"
)

const postgresSchema = `CREATE TABLE IF NOT EXISTS listings (
	id                   BIGSERIAL PRIMARY KEY,
	external_id          TEXT NOT NULL UNIQUE,
	headline             TEXT NOT NULL,
	employer             TEXT,
	application_deadline TEXT,
	description          TEXT,
	url                  TEXT,
	location             JSON,
	source               TEXT,
	raw_data             JSON,
	created_at           TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// Tables created before the columns became JSON used JSONB. Rows written then
// keep JSONB's normalized text; new rows are stored as received.
const postgresMigrateJSON = `ALTER TABLE listings
	ALTER COLUMN location TYPE JSON USING location::json,
	ALTER COLUMN raw_data TYPE JSON USING raw_data::json`

// PostgresStore keeps listings in PostgreSQL through a pgx connection pool.
type PostgresStore struct {
	pool       *pgxpool.Pool
	normalizer model.Normalizer
	logger     *slog.Logger
}

// NewPostgresStore connects to dsn and ensures the listings table exists.
func NewPostgresStore(ctx context.Context, dsn string, normalizer model.Normalizer, logger *slog.Logger) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("creating postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating listings table: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresMigrateJSON); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migrating listings json columns: %w", err)
	}
	return &PostgresStore{pool: pool, normalizer: normalizer, logger: logger}, nil
}

// Save normalizes and inserts each result; it returns the newly inserted listings.
func (s *PostgresStore) Save(ctx context.Context, results []model.RawResult) ([]model.Listing, error) {
	return saveEach(ctx, results, s.normalizer, s.insert, s.logger)
}

func (s *PostgresStore) insert(ctx context.Context, l model.Listing) (model.Listing, error) {
	err := s.pool.QueryRow(ctx,
		`INSERT INTO listings (external_id, headline, employer, application_deadline,
			description, url, location, source, raw_data)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (external_id) DO NOTHING
		RETURNING id, created_at`,
		l.ExternalID,
		l.Headline,
		optional(l.Employer),
		optional(l.ApplicationDeadline),
		optional(l.Description),
		optional(l.URL),
		jsonParam(l.Location),
		optional(l.Source),
		jsonParam(l.Raw),
	).Scan(&l.ID, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Listing{}, model.ErrDuplicateKey
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("insert listing %s: %w", l.ExternalID, err)
	}
	return l, nil
}

// GetAll returns every stored listing in insertion order.
func (s *PostgresStore) GetAll(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.pool.Query(ctx, "SELECT "+listingColumns+" FROM listings ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	listings, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Listing, error) {
		return scanPgListing(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scanning listings: %w", err)
	}
	if listings == nil {
		listings = []model.Listing{}
	}
	return listings, nil
}

// GetByID returns the listing with the given id, or model.ErrNotFound.
func (s *PostgresStore) GetByID(ctx context.Context, id int64) (model.Listing, error) {
	row := s.pool.QueryRow(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = $1", id)
	l, err := scanPgListing(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Listing{}, fmt.Errorf("listing %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("fetching listing %d: %w", id, err)
	}
	return l, nil
}

// Count returns the number of stored listings.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}
	return n, nil
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func scanPgListing(row pgx.Row) (model.Listing, error) {
	var (
		l                                     model.Listing
		employer, deadline, desc, url, source *string
		location, raw                         []byte
	)
	err := row.Scan(
		&l.ID,
		&l.ExternalID,
		&l.Headline,
		&employer,
		&deadline,
		&desc,
		&url,
		&location,
		&source,
		&raw,
		&l.CreatedAt,
	)
	if err != nil {
		return model.Listing{}, err
	}
	l.Employer = deref(employer)
	l.ApplicationDeadline = deref(deadline)
	l.Description = deref(desc)
	l.URL = deref(url)
	l.Source = deref(source)
	l.Location = rawOrNull(location)
	l.Raw = rawOrNull(raw)
	return l, nil
}

// optional maps an empty string to SQL NULL.
func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// jsonParam passes raw JSON text to a JSON parameter, or NULL when empty.
// The column type is JSON, not JSONB, so the text is stored as written.
func jsonParam(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
