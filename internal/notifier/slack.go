package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// Ensure SlackNotifier implements model.Notifier.
var _ model.Notifier = (*SlackNotifier)(nil)

// maxSlackListings caps the listings itemized in one message.
const maxSlackListings = 10

// SlackNotifier posts a summary of each batch to a Slack Incoming Webhook.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewSlackNotifier returns a notifier that posts to webhookURL.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Notify sends one Block Kit message summarizing the batch.
func (s *SlackNotifier) Notify(ctx context.Context, listings []model.Listing) error {
	if len(listings) == 0 {
		return nil
	}

	body, err := json.Marshal(buildPayload(listings))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(ctx, body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after_secs", int(retryAfter.Seconds()))
		select {
		case <-ctx.Done():
			return fmt.Errorf("post to slack: %w", ctx.Err())
		case <-time.After(retryAfter):
		}
		status, _, err = s.post(ctx, body)
		if err != nil {
			return err
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}

	s.logger.Info("slack message sent", "listings", len(listings))
	return nil
}

func (s *SlackNotifier) post(ctx context.Context, body []byte) (int, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string        `json:"type"`
	Text      *slackText    `json:"text,omitempty"`
	Elements  []slackText   `json:"elements,omitempty"`
	Accessory *slackElement `json:"accessory,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url"`
}

func buildPayload(listings []model.Listing) slackPayload {
	summary := fmt.Sprintf("%d new listing", len(listings))
	if len(listings) != 1 {
		summary += "s"
	}

	blocks := []slackBlock{
		{
			Type: "header",
			Text: &slackText{Type: "plain_text", Text: summary},
		},
	}

	shown := listings
	if len(shown) > maxSlackListings {
		shown = shown[:maxSlackListings]
	}
	for _, l := range shown {
		text := "*" + l.Headline + "*"
		if l.Employer != "" {
			text += "\n" + l.Employer
		}
		if loc := locationText(l.Location); loc != "" {
			text += " · " + loc
		}
		if l.ApplicationDeadline != "" {
			text += "\nApply by " + l.ApplicationDeadline
		}
		block := slackBlock{
			Type: "section",
			Text: &slackText{Type: "mrkdwn", Text: text},
		}
		if l.URL != "" {
			block.Accessory = &slackElement{
				Type: "button",
				Text: slackText{Type: "plain_text", Text: "View"},
				URL:  l.URL,
			}
		}
		blocks = append(blocks, block)
	}

	if rest := len(listings) - len(shown); rest > 0 {
		blocks = append(blocks, slackBlock{
			Type:     "context",
			Elements: []slackText{{Type: "mrkdwn", Text: fmt.Sprintf("…and %d more", rest)}},
		})
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Text: summary, Blocks: blocks}
}
