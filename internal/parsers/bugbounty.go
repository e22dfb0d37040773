package parsers

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// HackerOneParser reads HackerOne API report exports (JSON:API shape).
type HackerOneParser struct{}

func (p *HackerOneParser) Info() Info {
	return Info{
		Name:        "hackerone",
		DisplayName: "HackerOne",
		Category:    CategoryBugBounty,
		FileTypes:   []string{"json"},
		Description: "HackerOne bug bounty and VDP reports",
	}
}

type hackerOneReport struct {
	Attributes struct {
		Title                    string `json:"title"`
		VulnerabilityInformation string `json:"vulnerability_information"`
		Description              string `json:"description"`
		SeverityRating           string `json:"severity_rating"`
		Severity                 string `json:"severity"`
		StructuredScope          struct {
			AssetIdentifier string `json:"asset_identifier"`
		} `json:"structured_scope"`
		Asset string `json:"asset"`
	} `json:"attributes"`
	Relationships struct {
		Weakness struct {
			Data struct {
				Attributes struct {
					ExternalID string `json:"external_id"`
				} `json:"attributes"`
			} `json:"data"`
		} `json:"weakness"`
	} `json:"relationships"`
}

func (p *HackerOneParser) Detect(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	data, ok := probe["data"]
	if !ok {
		return false
	}
	return bytes.Contains(data, []byte(`"type"`)) && bytes.Contains(data, []byte("report"))
}

func (p *HackerOneParser) Parse(content []byte) ([]RawRecord, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(content, &envelope); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_hackerone", err)
	}

	raws := oneOrMany(envelope.Data)
	if raws == nil {
		raws = []json.RawMessage{content}
	}

	var records []RawRecord
	for _, raw := range raws {
		var report hackerOneReport
		if err := json.Unmarshal(raw, &report); err != nil {
			continue
		}
		attrs := report.Attributes
		title := attrs.Title
		if title == "" {
			title = "HackerOne Report"
		}
		desc := attrs.VulnerabilityInformation
		if desc == "" {
			desc = attrs.Description
		}
		severity := attrs.SeverityRating
		if severity == "" {
			severity = attrs.Severity
		}
		if severity == "" || strings.EqualFold(severity, "none") {
			severity = "medium"
		}
		asset := attrs.StructuredScope.AssetIdentifier
		if asset == "" {
			asset = attrs.Asset
		}
		cwe := 0
		external := report.Relationships.Weakness.Data.Attributes.ExternalID
		if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToLower(external), "cwe-")); err == nil {
			cwe = n
		}
		records = append(records, RawRecord{
			Tool:        "hackerone",
			Title:       title,
			Severity:    severity,
			Asset:       asset,
			Description: desc,
			CWE:         cwe,
			Tags:        []string{"bugbounty", "hackerone"},
		})
	}
	return records, nil
}
