package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

var severityEmoji = map[models.Severity]string{
	models.SeverityCritical: ":rotating_light:",
	models.SeverityHigh:     ":red_circle:",
	models.SeverityMedium:   ":large_orange_circle:",
	models.SeverityLow:      ":large_yellow_circle:",
	models.SeverityInfo:     ":white_circle:",
}

var severityColor = map[models.Severity]string{
	models.SeverityCritical: "#dc2626",
	models.SeverityHigh:     "#ea580c",
	models.SeverityMedium:   "#d97706",
	models.SeverityLow:      "#ca8a04",
	models.SeverityInfo:     "#6b7280",
}

// SlackNotifier posts finding events to an incoming webhook using
// Block Kit payloads.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
	maxRetries int
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		maxRetries: 2,
	}
}

func (s *SlackNotifier) Name() string { return "slack" }

// Notify posts one finding event, retrying transient failures with
// exponential backoff.
func (s *SlackNotifier) Notify(ctx context.Context, f models.Finding, isNew bool) error {
	payload, err := json.Marshal(s.buildPayload(f, isNew))
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	return s.post(ctx, payload)
}

// Test sends a short message to verify the webhook configuration.
func (s *SlackNotifier) Test(ctx context.Context) error {
	payload, err := json.Marshal(map[string]string{
		"text": ":white_check_mark: SecOps Dashboard webhook test successful",
	})
	if err != nil {
		return err
	}
	return s.post(ctx, payload)
}

func (s *SlackNotifier) post(ctx context.Context, payload []byte) error {
	backoff := time.Second
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			log.Debug().Int("attempt", attempt).Dur("backoff", backoff).Msg("Retrying Slack webhook after backoff")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff *= 2
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("build slack request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		lastErr = fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return lastErr
		}
	}
	return fmt.Errorf("slack webhook failed after %d attempts: %w", s.maxRetries+1, lastErr)
}

func (s *SlackNotifier) buildPayload(f models.Finding, isNew bool) map[string]any {
	headline := "New finding detected"
	if !isNew {
		headline = fmt.Sprintf("Seen again (#%d)", f.Occurrences)
	}
	emoji := severityEmoji[f.Severity]

	blocks := []map[string]any{
		{
			"type": "header",
			"text": map[string]any{
				"type": "plain_text",
				"text": fmt.Sprintf("%s %s", emoji, headline),
			},
		},
		{
			"type": "section",
			"text": map[string]any{
				"type": "mrkdwn",
				"text": fmt.Sprintf("*%s*", f.Title),
			},
		},
		{
			"type": "section",
			"fields": []map[string]any{
				{"type": "mrkdwn", "text": fmt.Sprintf("*Severity:*\n%s", f.Severity)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Risk score:*\n%d", f.RiskScore)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Asset:*\n%s", f.AssetKey)},
				{"type": "mrkdwn", "text": fmt.Sprintf("*Tool:*\n%s", f.Tool)},
			},
		},
	}

	return map[string]any{
		"text": fmt.Sprintf("%s %s: %s", emoji, headline, f.Title),
		"attachments": []map[string]any{
			{
				"color":  severityColor[f.Severity],
				"blocks": blocks,
			},
		},
	}
}
