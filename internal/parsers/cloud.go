package parsers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// ProwlerParser reads Prowler assessment output in JSON or CSV form.
// Passing checks are dropped.
type ProwlerParser struct{}

func (p *ProwlerParser) Info() Info {
	return Info{
		Name:        "prowler",
		DisplayName: "Prowler",
		Category:    CategoryCloud,
		FileTypes:   []string{"json", "csv"},
		Description: "AWS/Azure/GCP security assessment tool",
	}
}

type prowlerCheck struct {
	CheckID        string `json:"CheckID"`
	CheckTitle     string `json:"CheckTitle"`
	Status         string `json:"Status"`
	StatusExtended string `json:"StatusExtended"`
	Severity       string `json:"Severity"`
	ResourceID     string `json:"ResourceId"`
	ResourceArn    string `json:"ResourceArn"`
	Provider       string `json:"Provider"`
	ServiceName    string `json:"ServiceName"`
	Remediation    struct {
		Recommendation struct {
			Text string          `json:"Text"`
			URL  json.RawMessage `json:"Url"`
		} `json:"Recommendation"`
	} `json:"Remediation"`
}

func (p *ProwlerParser) Detect(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '[' || trimmed[0] == '{' {
		var list []map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &list); err != nil || len(list) == 0 {
			return false
		}
		for _, key := range []string{"CheckID", "check_id", "StatusExtended"} {
			if _, ok := list[0][key]; ok {
				return true
			}
		}
		return false
	}
	head := trimmed
	if len(head) > 500 {
		head = head[:500]
	}
	return bytes.Contains(head, []byte("CHECK_ID")) && bytes.Contains(head, []byte("SEVERITY"))
}

func (p *ProwlerParser) Parse(content []byte) ([]RawRecord, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return p.parseJSON(trimmed)
	}
	return p.parseCSV(trimmed)
}

func (p *ProwlerParser) parseJSON(content []byte) ([]RawRecord, error) {
	var checks []prowlerCheck
	if content[0] == '{' {
		var single prowlerCheck
		if err := json.Unmarshal(content, &single); err != nil {
			return nil, errors.New(errors.ErrorTypeUnparsable, "parse_prowler", err)
		}
		checks = []prowlerCheck{single}
	} else if err := json.Unmarshal(content, &checks); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_prowler", err)
	}

	var records []RawRecord
	for _, check := range checks {
		if strings.EqualFold(check.Status, "PASS") {
			continue
		}
		title := check.CheckTitle
		if title == "" {
			title = check.CheckID
		}
		asset := check.ResourceID
		if asset == "" {
			asset = check.ResourceArn
		}
		records = append(records, RawRecord{
			Tool:           "prowler",
			Title:          title,
			Severity:       check.Severity,
			Asset:          asset,
			RuleID:         check.CheckID,
			Description:    check.StatusExtended,
			Recommendation: check.Remediation.Recommendation.Text,
			References:     stringList(check.Remediation.Recommendation.URL),
			Tags:           []string{check.Provider, check.ServiceName, check.CheckID},
		})
	}
	return records, nil
}

func (p *ProwlerParser) parseCSV(content []byte) ([]RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil || len(rows) < 1 {
		return nil, errors.Newf(errors.ErrorTypeUnparsable, "parse_prowler", "invalid csv: %v", err)
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToUpper(strings.TrimSpace(name))] = i
	}
	field := func(row []string, name string) string {
		if i, ok := header[name]; ok && i < len(row) {
			return row[i]
		}
		return ""
	}

	var records []RawRecord
	for _, row := range rows[1:] {
		if strings.EqualFold(field(row, "STATUS"), "PASS") {
			continue
		}
		title := field(row, "CHECK_TITLE")
		if title == "" {
			title = field(row, "CHECK_ID")
		}
		records = append(records, RawRecord{
			Tool:        "prowler",
			Title:       title,
			Severity:    field(row, "SEVERITY"),
			Asset:       field(row, "RESOURCE_ID"),
			RuleID:      field(row, "CHECK_ID"),
			Description: field(row, "STATUS_EXTENDED"),
			Tags:        []string{"prowler", field(row, "PROVIDER"), field(row, "SERVICE_NAME")},
		})
	}
	return records, nil
}
