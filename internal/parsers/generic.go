package parsers

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// SARIFParser reads SARIF 2.x logs. The reporting tool's own name from
// the run driver becomes the record tool.
type SARIFParser struct{}

func (p *SARIFParser) Info() Info {
	return Info{
		Name:        "sarif",
		DisplayName: "SARIF",
		Category:    CategoryGeneric,
		FileTypes:   []string{"sarif", "json"},
		Description: "Static Analysis Results Interchange Format (SARIF)",
	}
}

var sarifLevelSeverity = map[string]string{
	"error":   "high",
	"warning": "medium",
	"note":    "low",
	"none":    "info",
}

type sarifLog struct {
	Schema string `json:"$schema"`
	Runs   []struct {
		Tool struct {
			Driver struct {
				Name  string `json:"name"`
				Rules []struct {
					ID               string `json:"id"`
					ShortDescription struct {
						Text string `json:"text"`
					} `json:"shortDescription"`
					Help struct {
						Text string `json:"text"`
					} `json:"help"`
					HelpURI              string `json:"helpUri"`
					DefaultConfiguration struct {
						Level string `json:"level"`
					} `json:"defaultConfiguration"`
					Properties struct {
						Tags []string `json:"tags"`
					} `json:"properties"`
				} `json:"rules"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID  string `json:"ruleId"`
			Level   string `json:"level"`
			Message struct {
				Text string `json:"text"`
			} `json:"message"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct {
						URI string `json:"uri"`
					} `json:"artifactLocation"`
					Region struct {
						StartLine int `json:"startLine"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
		} `json:"results"`
	} `json:"runs"`
}

func (p *SARIFParser) Detect(content []byte) bool {
	var probe struct {
		Schema string          `json:"$schema"`
		Runs   json.RawMessage `json:"runs"`
	}
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	if probe.Schema != "" {
		return strings.Contains(strings.ToLower(probe.Schema), "sarif")
	}
	return len(probe.Runs) > 0 && bytes.Contains(probe.Runs, []byte(`"tool"`))
}

func (p *SARIFParser) Parse(content []byte) ([]RawRecord, error) {
	var parsed sarifLog
	if err := json.Unmarshal(content, &parsed); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_sarif", err)
	}

	var records []RawRecord
	for _, run := range parsed.Runs {
		toolName := strings.ToLower(strings.ReplaceAll(run.Tool.Driver.Name, " ", "-"))
		if toolName == "" {
			toolName = "sarif-tool"
		}

		type sarifRule struct {
			title, help, helpURI, level string
			tags                        []string
		}
		rules := make(map[string]sarifRule, len(run.Tool.Driver.Rules))
		for _, rule := range run.Tool.Driver.Rules {
			rules[rule.ID] = sarifRule{
				title:   rule.ShortDescription.Text,
				help:    rule.Help.Text,
				helpURI: rule.HelpURI,
				level:   rule.DefaultConfiguration.Level,
				tags:    rule.Properties.Tags,
			}
		}

		for _, result := range run.Results {
			rule := rules[result.RuleID]

			level := result.Level
			if level == "" {
				level = rule.level
			}
			severity, ok := sarifLevelSeverity[level]
			if !ok {
				severity = "medium"
			}

			title := rule.title
			if title == "" {
				title = result.RuleID
			}
			if title == "" {
				title = "unknown"
			}

			asset := "unknown"
			filePath := ""
			line := 0
			if len(result.Locations) > 0 {
				physical := result.Locations[0].PhysicalLocation
				filePath = physical.ArtifactLocation.URI
				if filePath != "" {
					asset = filePath
				}
				line = physical.Region.StartLine
			}

			cwe := 0
			for _, tag := range rule.tags {
				if strings.Contains(strings.ToLower(tag), "cwe") {
					parts := strings.Split(tag, "-")
					if n, err := strconv.Atoi(parts[len(parts)-1]); err == nil {
						cwe = n
					}
					break
				}
			}

			var refs []string
			if rule.helpURI != "" {
				refs = []string{rule.helpURI}
			}

			records = append(records, RawRecord{
				Tool:           toolName,
				Title:          title,
				Severity:       severity,
				Asset:          asset,
				RuleID:         result.RuleID,
				Description:    result.Message.Text,
				Recommendation: rule.help,
				FilePath:       filePath,
				Line:           line,
				CWE:            cwe,
				References:     refs,
				Tags:           rule.tags,
			})
		}
	}
	return records, nil
}

// GenericJSONParser imports arbitrary JSON findings. It never
// auto-detects; callers must name it explicitly.
type GenericJSONParser struct{}

func (p *GenericJSONParser) Info() Info {
	return Info{
		Name:        "generic-json",
		DisplayName: "Generic JSON",
		Category:    CategoryGeneric,
		FileTypes:   []string{"json"},
		Description: "Generic JSON findings import",
	}
}

func (p *GenericJSONParser) Detect(content []byte) bool { return false }

func (p *GenericJSONParser) Parse(content []byte) ([]RawRecord, error) {
	var data json.RawMessage
	if err := json.Unmarshal(content, &data); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_generic_json", err)
	}

	items := extractFindingsArray(data)

	var records []RawRecord
	for _, raw := range items {
		var item map[string]json.RawMessage
		if err := json.Unmarshal(raw, &item); err != nil {
			continue
		}
		if record, ok := genericRecord(item); ok {
			records = append(records, record)
		}
	}
	return records, nil
}

// extractFindingsArray unwraps common envelope keys or treats a bare
// object as a single finding.
func extractFindingsArray(data json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err == nil {
			return items
		}
		return nil
	}
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil
	}
	for _, key := range []string{"findings", "vulnerabilities", "issues", "results", "alerts", "items", "data"} {
		if raw, ok := envelope[key]; ok {
			trimmedInner := bytes.TrimSpace(raw)
			if len(trimmedInner) > 0 && trimmedInner[0] == '[' {
				var items []json.RawMessage
				if err := json.Unmarshal(trimmedInner, &items); err == nil {
					return items
				}
			}
		}
	}
	return []json.RawMessage{trimmed}
}

func genericRecord(item map[string]json.RawMessage) (RawRecord, bool) {
	title := genericField(item, "title", "name", "summary", "message", "description", "rule_id", "id")
	if title == "" {
		return RawRecord{}, false
	}
	if len(title) > 200 {
		title = title[:200]
	}

	severity := genericField(item, "severity", "level", "risk", "priority", "criticality")
	if severity == "" {
		severity = "medium"
	}

	line := 0
	if s := genericField(item, "line", "line_number", "lineNumber", "start_line"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			line = n
		}
	}

	cwe := 0
	if s := genericField(item, "cwe", "cwe_id", "cweId"); s != "" {
		if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(s), "CWE-")); err == nil {
			cwe = n
		}
	}

	return RawRecord{
		Tool:           "generic-json",
		Title:          title,
		Severity:       severity,
		Asset:          genericField(item, "asset", "host", "target", "url", "file", "path", "resource", "component"),
		RuleID:         genericField(item, "rule_id", "check_id", "id"),
		Description:    genericField(item, "description", "message", "details", "body", "content"),
		Recommendation: genericField(item, "recommendation", "remediation", "fix", "solution", "mitigation"),
		FilePath:       genericField(item, "file", "file_path", "filepath", "path", "filename", "location"),
		Line:           line,
		CVE:            genericField(item, "cve", "cve_id", "cveId", "vulnerability_id"),
		CWE:            cwe,
	}, true
}

// genericField returns the first present key's scalar value, matching
// case-insensitively as source schemas disagree on casing.
func genericField(item map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		if raw, ok := item[key]; ok {
			if s := scalarString(raw); s != "" {
				return s
			}
		}
		for k, raw := range item {
			if strings.EqualFold(k, key) {
				if s := scalarString(raw); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

func scalarString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return ""
}

// GenericCSVParser imports findings from CSV with recognizable column
// names. Explicit-only, like GenericJSONParser.
type GenericCSVParser struct{}

func (p *GenericCSVParser) Info() Info {
	return Info{
		Name:        "generic-csv",
		DisplayName: "Generic CSV",
		Category:    CategoryGeneric,
		FileTypes:   []string{"csv"},
		Description: "Generic CSV findings import",
	}
}

func (p *GenericCSVParser) Detect(content []byte) bool { return false }

func (p *GenericCSVParser) Parse(content []byte) ([]RawRecord, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil || len(rows) < 1 {
		return nil, errors.Newf(errors.ErrorTypeUnparsable, "parse_generic_csv", "invalid csv: %v", err)
	}

	header := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		header[strings.ToLower(strings.TrimSpace(name))] = i
	}
	field := func(row []string, keys ...string) string {
		for _, key := range keys {
			if i, ok := header[key]; ok && i < len(row) && row[i] != "" {
				return row[i]
			}
		}
		return ""
	}

	var records []RawRecord
	for _, row := range rows[1:] {
		title := field(row, "title", "name", "summary", "message", "vulnerability", "issue")
		if title == "" {
			continue
		}

		line := 0
		if s := field(row, "line", "line_number", "linenumber"); s != "" {
			if n, err := strconv.Atoi(s); err == nil {
				line = n
			}
		}

		cwe := 0
		if s := field(row, "cwe", "cwe_id"); s != "" {
			if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(s), "CWE-")); err == nil {
				cwe = n
			}
		}

		records = append(records, RawRecord{
			Tool:           "generic-csv",
			Title:          title,
			Severity:       field(row, "severity", "level", "risk", "priority"),
			Asset:          field(row, "asset", "host", "target", "url", "file", "resource"),
			Description:    field(row, "description", "details", "message", "info"),
			Recommendation: field(row, "recommendation", "remediation", "fix", "solution"),
			FilePath:       field(row, "file", "file_path", "path", "filename"),
			Line:           line,
			CVE:            field(row, "cve", "cve_id", "vulnerability_id"),
			CWE:            cwe,
		})
	}
	return records, nil
}
