package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

const jobTechPayload = `{
	"total": {"value": 250},
	"hits": [
		{
			"id": "A1",
			"headline": "Rörmokare till Stockholm",
			"webpage_url": "https://arbetsformedlingen.se/platsbanken/annonser/A1",
			"application_deadline": "2026-11-30T23:59:59",
			"employer": {"name": "Rör AB"},
			"workplace_address": {"municipality": "Stockholm", "region": "Stockholms län"},
			"description": {"text": "Vi söker en rörmokare."}
		},
		{
			"id": "A2",
			"headline": "VVS-montör",
			"employer": null,
			"workplace_address": null,
			"description": null
		}
	]
}`

func TestJobTechSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("q"); got != "plumber Stockholm" {
			t.Errorf("q = %q, want %q", got, "plumber Stockholm")
		}
		if got := r.URL.Query().Get("limit"); got != "100" {
			t.Errorf("limit = %q, want 100", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("Accept = %q, want application/json", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(jobTechPayload))
	}))
	defer srv.Close()

	c := NewJobTechClient("arbetsformedlingen", srv.URL, 0, time.Second, srv.Client(), discardLogger())

	hits, err := c.Search(context.Background(), "plumber Stockholm")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(hits) != 2 {
		t.Fatalf("expected 2 hits, got %d", len(hits))
	}
	if c.Name() != "arbetsformedlingen" {
		t.Errorf("Name() = %q", c.Name())
	}
}

func TestJobTechSearch_LimitClampedToProviderMax(t *testing.T) {
	var gotLimit string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotLimit = r.URL.Query().Get("limit")
		w.Write([]byte(`{"total": {"value": 0}, "hits": []}`))
	}))
	defer srv.Close()

	c := NewJobTechClient("af", srv.URL, 500, time.Second, srv.Client(), discardLogger())
	if _, err := c.Search(context.Background(), "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotLimit != "100" {
		t.Errorf("limit = %q, want 100", gotLimit)
	}
}

func TestJobTechSearch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewJobTechClient("af", srv.URL, 100, time.Second, srv.Client(), discardLogger())
	_, err := c.Search(context.Background(), "x")

	var upErr *model.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *model.UpstreamError, got %T (%v)", err, err)
	}
	if upErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d, want 503", upErr.StatusCode)
	}
	if upErr.Source != "af" {
		t.Errorf("Source = %q, want af", upErr.Source)
	}
}

func TestJobTechSearch_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not valid json`))
	}))
	defer srv.Close()

	c := NewJobTechClient("af", srv.URL, 100, time.Second, srv.Client(), discardLogger())
	_, err := c.Search(context.Background(), "x")

	var upErr *model.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *model.UpstreamError for malformed body, got %v", err)
	}
}

func TestJobTechSearch_TimeoutIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewJobTechClient("af", srv.URL, 100, 50*time.Millisecond, srv.Client(), discardLogger())

	start := time.Now()
	_, err := c.Search(context.Background(), "x")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("search took %v, expected the 50ms timeout to cut it short", elapsed)
	}

	var upErr *model.UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected *model.UpstreamError on timeout, got %v", err)
	}
}

func TestNormalizeJobTech(t *testing.T) {
	var resp jobTechResponse
	if err := json.Unmarshal([]byte(jobTechPayload), &resp); err != nil {
		t.Fatal(err)
	}

	l, err := normalizeJobTech("af", resp.Hits[0])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.ExternalID != "A1" {
		t.Errorf("ExternalID = %q, want A1", l.ExternalID)
	}
	if l.Headline != "Rörmokare till Stockholm" {
		t.Errorf("Headline = %q", l.Headline)
	}
	if l.Employer != "Rör AB" {
		t.Errorf("Employer = %q, want Rör AB", l.Employer)
	}
	if l.Description != "Vi söker en rörmokare." {
		t.Errorf("Description = %q", l.Description)
	}
	if l.ApplicationDeadline != "2026-11-30T23:59:59" {
		t.Errorf("ApplicationDeadline = %q", l.ApplicationDeadline)
	}
	if l.Source != "af" {
		t.Errorf("Source = %q, want af", l.Source)
	}
	var loc map[string]string
	if err := json.Unmarshal(l.Location, &loc); err != nil || loc["municipality"] != "Stockholm" {
		t.Errorf("Location = %s, want workplace_address verbatim", l.Location)
	}
	if len(l.Raw) == 0 {
		t.Error("expected Raw to hold the upstream object")
	}

	// Null nested objects leave optional fields empty.
	l, err = normalizeJobTech("af", resp.Hits[1])
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if l.Employer != "" || l.Description != "" {
		t.Errorf("expected empty optional fields, got employer=%q description=%q", l.Employer, l.Description)
	}
	if string(l.Location) != "null" {
		t.Errorf("Location = %s, want null", l.Location)
	}
}

func TestNormalizeJobTech_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		field string
	}{
		{name: "missing id", input: `{"headline": "Rörmokare"}`, field: "external_id"},
		{name: "missing headline", input: `{"id": "A9"}`, field: "headline"},
		{name: "blank headline", input: `{"id": "A9", "headline": "   "}`, field: "headline"},
		{name: "not an object", input: `[1, 2]`, field: "body"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := normalizeJobTech("af", json.RawMessage(tc.input))
			var perr *model.RecordParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *model.RecordParseError, got %v", err)
			}
			if perr.Field != tc.field {
				t.Errorf("Field = %q, want %q", perr.Field, tc.field)
			}
		})
	}
}

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
