package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// CheckovParser reads `checkov -o json` output, keeping failed checks
// only. Checkov emits either a single check-type object or a list.
type CheckovParser struct{}

func (p *CheckovParser) Info() Info {
	return Info{
		Name:        "checkov",
		DisplayName: "Checkov",
		Category:    CategoryIaC,
		FileTypes:   []string{"json"},
		Description: "Infrastructure as Code security scanner",
	}
}

type checkovResult struct {
	CheckType string `json:"check_type"`
	Results   struct {
		FailedChecks []struct {
			CheckID       string `json:"check_id"`
			CheckName     string `json:"check_name"`
			Severity      string `json:"severity"`
			Resource      string `json:"resource"`
			FilePath      string `json:"file_path"`
			FileLineRange []int  `json:"file_line_range"`
			Guideline     string `json:"guideline"`
		} `json:"failed_checks"`
	} `json:"results"`
}

func (p *CheckovParser) Detect(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '[' {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil || len(list) == 0 {
			return false
		}
		_, ok := list[0]["check_type"]
		return ok
	}
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &probe); err != nil {
		return false
	}
	for _, key := range []string{"check_type", "passed_checks", "failed_checks"} {
		if _, ok := probe[key]; ok {
			return true
		}
	}
	return false
}

func (p *CheckovParser) Parse(content []byte) ([]RawRecord, error) {
	trimmed := bytes.TrimSpace(content)

	var results []checkovResult
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &results); err != nil {
			return nil, errors.New(errors.ErrorTypeUnparsable, "parse_checkov", err)
		}
	} else {
		var single checkovResult
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, errors.New(errors.ErrorTypeUnparsable, "parse_checkov", err)
		}
		results = []checkovResult{single}
	}

	var records []RawRecord
	for _, result := range results {
		for _, check := range result.Results.FailedChecks {
			asset := check.Resource
			if asset == "" {
				asset = check.FilePath
			}
			line := 0
			if len(check.FileLineRange) > 0 {
				line = check.FileLineRange[0]
			}
			severity := check.Severity
			if severity == "" {
				severity = "medium"
			}
			var refs []string
			if strings.HasPrefix(check.Guideline, "http") {
				refs = []string{check.Guideline}
			}
			records = append(records, RawRecord{
				Tool:           "checkov",
				Title:          fmt.Sprintf("%s: %s", check.CheckID, check.CheckName),
				Severity:       severity,
				Asset:          asset,
				RuleID:         check.CheckID,
				Description:    check.CheckName,
				Recommendation: check.Guideline,
				FilePath:       check.FilePath,
				Line:           line,
				References:     refs,
				Tags:           []string{result.CheckType, check.CheckID},
			})
		}
	}
	return records, nil
}

// TfsecParser reads `tfsec --format json` output.
type TfsecParser struct{}

func (p *TfsecParser) Info() Info {
	return Info{
		Name:        "tfsec",
		DisplayName: "tfsec",
		Category:    CategoryIaC,
		FileTypes:   []string{"json"},
		Description: "Terraform static analysis security scanner",
	}
}

type tfsecReport struct {
	Results []struct {
		RuleID          string   `json:"rule_id"`
		RuleDescription string   `json:"rule_description"`
		RuleProvider    string   `json:"rule_provider"`
		Description     string   `json:"description"`
		Severity        string   `json:"severity"`
		Resolution      string   `json:"resolution"`
		Links           []string `json:"links"`
		Location        struct {
			Filename  string `json:"filename"`
			StartLine int    `json:"start_line"`
		} `json:"location"`
	} `json:"results"`
}

func (p *TfsecParser) Detect(content []byte) bool {
	var report tfsecReport
	if err := json.Unmarshal(content, &report); err != nil {
		return false
	}
	if len(report.Results) == 0 {
		return false
	}
	return report.Results[0].RuleID != ""
}

func (p *TfsecParser) Parse(content []byte) ([]RawRecord, error) {
	var report tfsecReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_tfsec", err)
	}

	records := make([]RawRecord, 0, len(report.Results))
	for _, result := range report.Results {
		desc := result.RuleDescription
		if desc == "" {
			desc = result.Description
		}
		records = append(records, RawRecord{
			Tool:           "tfsec",
			Title:          fmt.Sprintf("%s: %s", result.RuleID, desc),
			Severity:       result.Severity,
			Asset:          result.Location.Filename,
			RuleID:         result.RuleID,
			Description:    result.Description,
			Recommendation: result.Resolution,
			FilePath:       result.Location.Filename,
			Line:           result.Location.StartLine,
			References:     result.Links,
			Tags:           []string{"terraform", result.RuleProvider, result.RuleID},
		})
	}
	return records, nil
}
