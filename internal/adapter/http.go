package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// defaultTimeout bounds a single upstream call when the caller configures none.
const defaultTimeout = 30 * time.Second

// fetch performs a GET against url and returns the response body. Every
// failure (transport, timeout, non-2xx) is reported as *model.UpstreamError.
// The caller's context is bounded by timeout for the duration of the call.
func fetch(ctx context.Context, client *http.Client, source, url string, header http.Header, timeout time.Duration) ([]byte, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &model.UpstreamError{Source: source, Err: fmt.Errorf("build request: %w", err)}
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &model.UpstreamError{Source: source, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &model.UpstreamError{Source: source, StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &model.UpstreamError{Source: source, StatusCode: resp.StatusCode, Err: fmt.Errorf("unexpected status")}
	}
	return body, nil
}

// fetchJSON is fetch followed by a JSON decode into v. A body that does not
// decode is an upstream failure, not a parse error of an individual record.
func fetchJSON(ctx context.Context, client *http.Client, source, url string, header http.Header, timeout time.Duration, v any) error {
	body, err := fetch(ctx, client, source, url, header, timeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return &model.UpstreamError{Source: source, StatusCode: http.StatusOK, Err: fmt.Errorf("decode body: %w", err)}
	}
	return nil
}
