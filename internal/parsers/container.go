package parsers

import (
	"encoding/json"
	"fmt"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// DockleParser reads `dockle -f json` container image lint reports.
type DockleParser struct{}

func (p *DockleParser) Info() Info {
	return Info{
		Name:        "dockle",
		DisplayName: "Dockle",
		Category:    CategoryContainer,
		FileTypes:   []string{"json"},
		Description: "Container image linter for security",
	}
}

var dockleLevelSeverity = map[string]string{
	"FATAL": "critical",
	"WARN":  "medium",
	"INFO":  "low",
}

type dockleReport struct {
	Summary struct {
		Image string `json:"image"`
	} `json:"summary"`
	Details []struct {
		Code   string   `json:"code"`
		Title  string   `json:"title"`
		Level  string   `json:"level"`
		Alerts []string `json:"alerts"`
	} `json:"details"`
}

func (p *DockleParser) Detect(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	_, hasDetails := probe["details"]
	_, hasSummary := probe["summary"]
	return hasDetails && hasSummary
}

func (p *DockleParser) Parse(content []byte) ([]RawRecord, error) {
	var report dockleReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_dockle", err)
	}

	image := report.Summary.Image
	if image == "" {
		image = "unknown"
	}

	var records []RawRecord
	for _, detail := range report.Details {
		severity, ok := dockleLevelSeverity[detail.Level]
		if !ok {
			// PASS and SKIP entries carry no finding
			if detail.Level == "PASS" || detail.Level == "SKIP" {
				continue
			}
			severity = "medium"
		}
		for _, alert := range detail.Alerts {
			records = append(records, RawRecord{
				Tool:        "dockle",
				Title:       fmt.Sprintf("%s: %s", detail.Code, detail.Title),
				Severity:    severity,
				Asset:       image,
				RuleID:      detail.Code,
				Description: alert,
				Tags:        []string{"container", "dockle", detail.Code},
			})
		}
	}
	return records, nil
}
