package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

const (
	// TypeJobTech is the JobTech (Arbetsförmedlingen) job search API.
	TypeJobTech = "jobtech"

	jobTechBaseURL = "https://jobsearch.api.jobtechdev.se"

	// jobTechMaxLimit is the largest page the search endpoint returns.
	jobTechMaxLimit = 100
)

// jobTechResponse is the top-level search response. Hits are kept raw so the
// unmodified upstream object can be persisted.
type jobTechResponse struct {
	Total struct {
		Value int `json:"value"`
	} `json:"total"`
	Hits []json.RawMessage `json:"hits"`
}

// jobTechHit holds the fields of a hit that map onto a Listing.
type jobTechHit struct {
	ID                  string          `json:"id"`
	Headline            string          `json:"headline"`
	WebpageURL          string          `json:"webpage_url"`
	ApplicationDeadline string          `json:"application_deadline"`
	WorkplaceAddress    json.RawMessage `json:"workplace_address"`
	Employer            *struct {
		Name string `json:"name"`
	} `json:"employer"`
	Description *struct {
		Text string `json:"text"`
	} `json:"description"`
}

// JobTechClient queries the JobTech search endpoint.
type JobTechClient struct {
	name    string
	baseURL string
	limit   int
	timeout time.Duration
	client  *http.Client
	logger  *slog.Logger
}

// NewJobTechClient creates a client for the JobTech search API. An empty
// baseURL selects the public endpoint; limit is clamped to what the API allows.
func NewJobTechClient(name, baseURL string, limit int, timeout time.Duration, client *http.Client, logger *slog.Logger) *JobTechClient {
	if baseURL == "" {
		baseURL = jobTechBaseURL
	}
	if limit <= 0 || limit > jobTechMaxLimit {
		limit = jobTechMaxLimit
	}
	return &JobTechClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		limit:   limit,
		timeout: timeout,
		client:  client,
		logger:  logger,
	}
}

// Name returns the configured source name.
func (c *JobTechClient) Name() string { return c.name }

// Search runs one query and returns the raw hits of the first page. The
// reported total may exceed the page; only one page is fetched.
func (c *JobTechClient) Search(ctx context.Context, query string) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(c.limit))
	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	header := http.Header{}
	header.Set("Accept", "application/json")

	var resp jobTechResponse
	if err := fetchJSON(ctx, c.client, c.name, endpoint, header, c.timeout, &resp); err != nil {
		return nil, err
	}

	c.logger.Debug("jobtech search complete",
		"source", c.name,
		"query", query,
		"total_hits", resp.Total.Value,
		"returned", len(resp.Hits),
	)
	return resp.Hits, nil
}

// normalizeJobTech maps a JobTech hit onto a Listing.
func normalizeJobTech(source string, data json.RawMessage) (model.Listing, error) {
	var hit jobTechHit
	if err := json.Unmarshal(data, &hit); err != nil {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "body", Err: err}
	}
	if hit.ID == "" {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "external_id"}
	}
	if strings.TrimSpace(hit.Headline) == "" {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "headline"}
	}

	l := model.Listing{
		ExternalID:          hit.ID,
		Headline:            hit.Headline,
		ApplicationDeadline: hit.ApplicationDeadline,
		URL:                 hit.WebpageURL,
		Location:            opaque(hit.WorkplaceAddress),
		Source:              source,
		Raw:                 opaque(data),
	}
	if hit.Employer != nil {
		l.Employer = hit.Employer.Name
	}
	if hit.Description != nil {
		l.Description = hit.Description.Text
	}
	return l, nil
}
