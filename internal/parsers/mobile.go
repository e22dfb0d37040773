package parsers

import (
	"encoding/json"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// MobSFParser reads Mobile Security Framework scan reports, flattening
// the code_analysis / binary_analysis / appsec sections.
type MobSFParser struct{}

func (p *MobSFParser) Info() Info {
	return Info{
		Name:        "mobsf",
		DisplayName: "MobSF",
		Category:    CategoryMobile,
		FileTypes:   []string{"json"},
		Description: "Mobile Security Framework for Android/iOS security analysis",
	}
}

var mobsfSeverity = map[string]string{
	"critical": "critical",
	"high":     "high",
	"warning":  "medium",
	"medium":   "medium",
	"low":      "low",
	"info":     "info",
	"good":     "info",
	"secure":   "info",
}

type mobsfEntry struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	Level       string `json:"level"`
	CWE         string `json:"cwe"`
}

func (p *MobSFParser) Detect(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	for _, key := range []string{"appsec", "code_analysis", "binary_analysis"} {
		if _, ok := probe[key]; ok {
			return true
		}
	}
	_, hasFile := probe["file_name"]
	_, hasMD5 := probe["md5"]
	return hasFile && hasMD5
}

func (p *MobSFParser) Parse(content []byte) ([]RawRecord, error) {
	var report map[string]json.RawMessage
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_mobsf", err)
	}

	app := "Mobile App"
	for _, key := range []string{"file_name", "app_name"} {
		var name string
		if raw, ok := report[key]; ok && json.Unmarshal(raw, &name) == nil && name != "" {
			app = name
			break
		}
	}

	var records []RawRecord
	for _, section := range []string{"code_analysis", "binary_analysis", "appsec"} {
		raw, ok := report[section]
		if !ok {
			continue
		}
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		for key, value := range entries {
			for _, item := range oneOrMany(value) {
				var entry mobsfEntry
				if err := json.Unmarshal(item, &entry); err != nil {
					continue
				}
				if entry.Title == "" && entry.Description == "" {
					continue
				}
				records = append(records, mobsfRecord(entry, key, app))
			}
		}
	}

	if raw, ok := report["findings"]; ok {
		var items []mobsfEntry
		if err := json.Unmarshal(raw, &items); err == nil {
			for _, entry := range items {
				records = append(records, mobsfRecord(entry, "MobSF Finding", app))
			}
		}
	}
	return records, nil
}

func mobsfRecord(entry mobsfEntry, fallbackTitle, app string) RawRecord {
	title := entry.Title
	if title == "" {
		title = fallbackTitle
	}
	rawSeverity := entry.Severity
	if rawSeverity == "" {
		rawSeverity = entry.Level
	}
	severity, ok := mobsfSeverity[strings.ToLower(rawSeverity)]
	if !ok {
		severity = "medium"
	}
	return RawRecord{
		Tool:        "mobsf",
		Title:       title,
		Severity:    severity,
		Asset:       app,
		Description: entry.Description,
		Tags:        []string{"mobile", "mobsf"},
	}
}
