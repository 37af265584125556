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
	// TypeCareerJet is the CareerJet public search API.
	TypeCareerJet = "careerjet"

	careerJetBaseURL       = "http://public.api.careerjet.net"
	careerJetDefaultLocale = "en_SE"
	careerJetMaxPageSize   = 99
)

type careerJetResponse struct {
	Type  string            `json:"type"` // "JOBS", "LOCATIONS" or "ERROR"
	Hits  int               `json:"hits"`
	Jobs  []json.RawMessage `json:"jobs"`
	Error string            `json:"error"`
}

type careerJetJob struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Company     string `json:"company"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Locations   string `json:"locations"`
	Salary      string `json:"salary"`
}

// CareerJetClient queries the CareerJet search endpoint.
type CareerJetClient struct {
	name     string
	baseURL  string
	affID    string
	locale   string
	location string
	pageSize int
	timeout  time.Duration
	client   *http.Client
	logger   *slog.Logger
}

// NewCareerJetClient creates a CareerJet client. affID is the affiliate key
// CareerJet issues per publisher; location biases results to a region.
func NewCareerJetClient(name, baseURL, affID, locale, location string, pageSize int, timeout time.Duration, client *http.Client, logger *slog.Logger) *CareerJetClient {
	if baseURL == "" {
		baseURL = careerJetBaseURL
	}
	if locale == "" {
		locale = careerJetDefaultLocale
	}
	if pageSize <= 0 || pageSize > careerJetMaxPageSize {
		pageSize = careerJetMaxPageSize
	}
	return &CareerJetClient{
		name:     name,
		baseURL:  strings.TrimRight(baseURL, "/"),
		affID:    affID,
		locale:   locale,
		location: location,
		pageSize: pageSize,
		timeout:  timeout,
		client:   client,
		logger:   logger,
	}
}

// Name returns the configured source name.
func (c *CareerJetClient) Name() string { return c.name }

// Search runs one query and returns the raw jobs of the first page.
func (c *CareerJetClient) Search(ctx context.Context, query string) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("affid", c.affID)
	params.Set("keywords", query)
	params.Set("locale_code", c.locale)
	params.Set("pagesize", strconv.Itoa(c.pageSize))
	if c.location != "" {
		params.Set("location", c.location)
	}
	endpoint := fmt.Sprintf("%s/search?%s", c.baseURL, params.Encode())

	header := http.Header{}
	header.Set("Accept", "application/json")

	var resp careerJetResponse
	if err := fetchJSON(ctx, c.client, c.name, endpoint, header, c.timeout, &resp); err != nil {
		return nil, err
	}
	if resp.Type == "ERROR" {
		return nil, &model.UpstreamError{Source: c.name, StatusCode: http.StatusOK, Err: fmt.Errorf("careerjet error: %s", resp.Error)}
	}

	c.logger.Debug("careerjet search complete",
		"source", c.name,
		"query", query,
		"total_hits", resp.Hits,
		"returned", len(resp.Jobs),
	)
	return resp.Jobs, nil
}

// normalizeCareerJet maps a CareerJet job onto a Listing. CareerJet has no
// stable job id; the tracking URL is unique per listing and serves as one.
func normalizeCareerJet(source string, data json.RawMessage) (model.Listing, error) {
	var job careerJetJob
	if err := json.Unmarshal(data, &job); err != nil {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "body", Err: err}
	}
	if job.URL == "" {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "external_id"}
	}
	if strings.TrimSpace(job.Title) == "" {
		return model.Listing{}, &model.RecordParseError{Source: source, Field: "headline"}
	}

	location := jsonNull
	if job.Locations != "" {
		b, err := json.Marshal(map[string]string{"city": job.Locations})
		if err == nil {
			location = b
		}
	}

	return model.Listing{
		ExternalID:  job.URL,
		Headline:    extractText(job.Title),
		Employer:    job.Company,
		Description: extractText(job.Description),
		URL:         job.URL,
		Location:    location,
		Source:      source,
		Raw:         opaque(data),
	}, nil
}
