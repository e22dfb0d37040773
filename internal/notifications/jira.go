package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

var severityPriority = map[models.Severity]string{
	models.SeverityCritical: "Highest",
	models.SeverityHigh:     "High",
	models.SeverityMedium:   "Medium",
	models.SeverityLow:      "Low",
	models.SeverityInfo:     "Lowest",
}

// JiraTicketing opens issues in a Jira Cloud project via the v3 REST
// API with basic auth.
type JiraTicketing struct {
	baseURL    string
	email      string
	apiToken   string
	projectKey string
	client     *http.Client
}

func NewJiraTicketing(baseURL, email, apiToken, projectKey string) *JiraTicketing {
	return &JiraTicketing{
		baseURL:    strings.TrimRight(baseURL, "/"),
		email:      email,
		apiToken:   apiToken,
		projectKey: projectKey,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

func (j *JiraTicketing) Name() string { return "jira" }

// CreateIssue opens a ticket for the finding and returns its key.
func (j *JiraTicketing) CreateIssue(ctx context.Context, f models.Finding) (string, error) {
	body := map[string]any{
		"fields": map[string]any{
			"project":     map[string]string{"key": j.projectKey},
			"issuetype":   map[string]string{"name": "Task"},
			"summary":     fmt.Sprintf("[%s] %s - %s", strings.ToUpper(string(f.Severity)), f.Title, f.AssetKey),
			"priority":    map[string]string{"name": severityPriority[f.Severity]},
			"labels":      []string{"security", "secops-dashboard", f.Tool},
			"description": issueDescription(f),
		},
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal jira payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, j.baseURL+"/rest/api/3/issue", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build jira request: %w", err)
	}
	req.SetBasicAuth(j.email, j.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("jira request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("jira returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var created struct {
		Key string `json:"key"`
	}
	if err := json.Unmarshal(respBody, &created); err != nil {
		return "", fmt.Errorf("decode jira response: %w", err)
	}
	return created.Key, nil
}

// issueDescription builds an Atlassian Document Format body with the
// finding details.
func issueDescription(f models.Finding) map[string]any {
	paragraph := func(text string) map[string]any {
		return map[string]any{
			"type":    "paragraph",
			"content": []map[string]any{{"type": "text", "text": text}},
		}
	}
	return map[string]any{
		"type":    "doc",
		"version": 1,
		"content": []map[string]any{
			paragraph(f.Title),
			paragraph(fmt.Sprintf("Severity: %s", f.Severity)),
			paragraph(fmt.Sprintf("Risk score: %d", f.RiskScore)),
			paragraph(fmt.Sprintf("Asset: %s", f.AssetKey)),
			paragraph(fmt.Sprintf("Detected by: %s", f.Tool)),
			paragraph(fmt.Sprintf("First seen: %s", f.FirstSeen.Format(time.RFC3339))),
			paragraph(fmt.Sprintf("Fingerprint: %s", f.Fingerprint)),
		},
	}
}
