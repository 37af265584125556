package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobfeed/internal/model"
)

const sqliteSchema = `CREATE TABLE IF NOT EXISTS listings (
	id                   INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id          TEXT NOT NULL UNIQUE,
	headline             TEXT NOT NULL,
	employer             TEXT,
	application_deadline TEXT,
	description          TEXT,
	url                  TEXT,
	location             TEXT,
	source               TEXT,
	raw_data             TEXT,
	created_at           DATETIME NOT NULL
)`

const listingColumns = `id, external_id, headline, employer, application_deadline,
	description, url, location, source, raw_data, created_at`

// SQLiteStore keeps listings in a SQLite database.
type SQLiteStore struct {
	db         *sql.DB
	normalizer model.Normalizer
	logger     *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures the
// listings table exists.
func NewSQLiteStore(dbPath string, normalizer model.Normalizer, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating listings table: %w", err)
	}

	return &SQLiteStore{db: db, normalizer: normalizer, logger: logger}, nil
}

// Save normalizes and inserts each result; it returns the newly inserted listings.
func (s *SQLiteStore) Save(ctx context.Context, results []model.RawResult) ([]model.Listing, error) {
	return saveEach(ctx, results, s.normalizer, s.insert, s.logger)
}

func (s *SQLiteStore) insert(ctx context.Context, l model.Listing) (model.Listing, error) {
	l.CreatedAt = time.Now().UTC()
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO listings (external_id, headline, employer, application_deadline,
			description, url, location, source, raw_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(external_id) DO NOTHING
		RETURNING id`,
		l.ExternalID,
		l.Headline,
		nullString(l.Employer),
		nullString(l.ApplicationDeadline),
		nullString(l.Description),
		nullString(l.URL),
		jsonText(l.Location),
		nullString(l.Source),
		jsonText(l.Raw),
		l.CreatedAt,
	).Scan(&l.ID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, model.ErrDuplicateKey
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("insert listing %s: %w", l.ExternalID, err)
	}
	return l, nil
}

// GetAll returns every stored listing in insertion order.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]model.Listing, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+listingColumns+" FROM listings ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("querying listings: %w", err)
	}
	defer rows.Close()

	listings := []model.Listing{}
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating listings: %w", err)
	}
	return listings, nil
}

// GetByID returns the listing with the given id, or model.ErrNotFound.
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (model.Listing, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+listingColumns+" FROM listings WHERE id = ?", id)
	l, err := scanListing(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Listing{}, fmt.Errorf("listing %d: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return model.Listing{}, fmt.Errorf("fetching listing %d: %w", id, err)
	}
	return l, nil
}

// Count returns the number of stored listings.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM listings").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting listings: %w", err)
	}
	return n, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanListing(row rowScanner) (model.Listing, error) {
	var (
		l                                     model.Listing
		employer, deadline, desc, url, source sql.NullString
		location, raw                         sql.NullString
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
	l.Employer = employer.String
	l.ApplicationDeadline = deadline.String
	l.Description = desc.String
	l.URL = url.String
	l.Source = source.String
	l.Location = rawOrNull([]byte(location.String))
	l.Raw = rawOrNull([]byte(raw.String))
	return l, nil
}
