package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/amishk599/jobfeed/internal/model"
)

// TypeRSS is any RSS or Atom feed of job listings.
const TypeRSS = "rss"

// rssItem is the subset of a serialized gofeed.Item that maps onto a Listing.
type rssItem struct {
	GUID        string `json:"guid"`
	Link        string `json:"link"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Authors     []struct {
		Name string `json:"name"`
	} `json:"authors"`
}

// RSSClient pulls one feed and keeps the items matching the query. Feeds are
// not queryable and have no limit parameter, so every matching item is returned.
type RSSClient struct {
	name    string
	feedURL string
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewRSSClient creates a client for the feed at feedURL.
func NewRSSClient(name, feedURL string, timeout time.Duration, client *http.Client, logger *slog.Logger) *RSSClient {
	return &RSSClient{
		name:    name,
		feedURL: feedURL,
		timeout: timeout,
		client:  client,
		logger:  logger,
	}
}

// Name returns the configured source name.
func (c *RSSClient) Name() string { return c.name }

// Search fetches the feed and returns items whose title or description
// contains any query term. Each item is returned in gofeed's JSON form.
func (c *RSSClient) Search(ctx context.Context, query string) ([]json.RawMessage, error) {
	header := http.Header{}
	header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, */*;q=0.8")

	body, err := fetch(ctx, c.client, c.name, c.feedURL, header, c.timeout)
	if err != nil {
		return nil, err
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, &model.UpstreamError{Source: c.name, StatusCode: http.StatusOK, Err: fmt.Errorf("parse feed: %w", err)}
	}

	terms := queryTerms(query)
	out := make([]json.RawMessage, 0, len(feed.Items))
	for _, it := range feed.Items {
		if !matchesAnyTerm(it.Title+" "+it.Description, terms) {
			continue
		}
		b, err := json.Marshal(it)
		if err != nil {
			c.logger.Warn("skipping unserializable feed item", "source", c.name, "title", it.Title, "error", err)
			continue
		}
		out = append(out, b)
	}

	c.logger.Debug("rss fetch complete",
		"source", c.name,
		"feed_items", len(feed.Items),
		"matched", len(out),
	)
	return out, nil
}

// matchesAnyTerm reports whether text contains any of the terms. No terms
// matches everything.
func matchesAnyTerm(text string, terms []string) bool {
	if len(terms) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, t := range terms {
		if strings.Contains(lower, t) {
			return true
		}
	}
	return false
}

// normalizeRSS maps a feed item onto a Listing. The GUID is the external id,
// falling back to the item link for feeds that omit GUIDs.
func normalizeRSS(source string, data json.RawMessage) (model.Listing, error) {
	var item rssItem
	if err := json.Unmarshal(data, &item); err != nil {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "body", Err: err}
	}
	id := item.GUID
	if id == "" {
		id = item.Link
	}
	if id == "" {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "external_id"}
	}
	headline := extractText(item.Title)
	if headline == "" {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "headline"}
	}

	l := model.Listing{
		ExternalID:  id,
		Headline:    headline,
		Description: extractText(item.Description),
		URL:         item.Link,
		Location:    jsonNull,
		Source:      source,
		Raw:         opaque(data),
	}
	if len(item.Authors) > 0 {
		l.Employer = item.Authors[0].Name
	}
	return l, nil
}
