package parsers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// SemgrepParser reads `semgrep --json` output.
type SemgrepParser struct{}

func (p *SemgrepParser) Info() Info {
	return Info{
		Name:        "semgrep",
		DisplayName: "Semgrep",
		Category:    CategorySAST,
		FileTypes:   []string{"json"},
		Description: "Lightweight static analysis for many languages",
	}
}

type semgrepReport struct {
	Results []struct {
		CheckID string `json:"check_id"`
		Path    string `json:"path"`
		Start   struct {
			Line int `json:"line"`
		} `json:"start"`
		Extra struct {
			Severity string `json:"severity"`
			Message  string `json:"message"`
			Metadata struct {
				CWE        []string `json:"cwe"`
				Fix        string   `json:"fix"`
				References []string `json:"references"`
				Category   string   `json:"category"`
			} `json:"metadata"`
		} `json:"extra"`
	} `json:"results"`
}

func (p *SemgrepParser) Detect(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	raw, ok := probe["results"]
	if !ok {
		return false
	}
	var results []json.RawMessage
	return json.Unmarshal(raw, &results) == nil
}

func (p *SemgrepParser) Parse(content []byte) ([]RawRecord, error) {
	var report semgrepReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_semgrep", err)
	}

	records := make([]RawRecord, 0, len(report.Results))
	for _, result := range report.Results {
		var tags []string
		if result.Extra.Metadata.Category != "" {
			tags = strings.Split(result.Extra.Metadata.Category, ",")
		}
		records = append(records, RawRecord{
			Tool:           "semgrep",
			Title:          result.CheckID,
			Severity:       result.Extra.Severity,
			Asset:          result.Path,
			RuleID:         result.CheckID,
			Description:    result.Extra.Message,
			Recommendation: result.Extra.Metadata.Fix,
			FilePath:       result.Path,
			Line:           result.Start.Line,
			CWE:            firstCWE(result.Extra.Metadata.CWE),
			References:     result.Extra.Metadata.References,
			Tags:           tags,
		})
	}
	return records, nil
}

// BanditParser reads `bandit -f json` output.
type BanditParser struct{}

func (p *BanditParser) Info() Info {
	return Info{
		Name:        "bandit",
		DisplayName: "Bandit",
		Category:    CategorySAST,
		FileTypes:   []string{"json"},
		Description: "Security linter for Python code",
	}
}

type banditReport struct {
	GeneratedAt string `json:"generated_at"`
	Results     []struct {
		TestID        string `json:"test_id"`
		TestName      string `json:"test_name"`
		IssueSeverity string `json:"issue_severity"`
		IssueText     string `json:"issue_text"`
		Filename      string `json:"filename"`
		LineNumber    int    `json:"line_number"`
		IssueCWE      struct {
			ID int `json:"id"`
		} `json:"issue_cwe"`
	} `json:"results"`
}

func (p *BanditParser) Detect(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	_, hasResults := probe["results"]
	_, hasGeneratedAt := probe["generated_at"]
	return hasResults && hasGeneratedAt
}

func (p *BanditParser) Parse(content []byte) ([]RawRecord, error) {
	var report banditReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_bandit", err)
	}

	records := make([]RawRecord, 0, len(report.Results))
	for _, result := range report.Results {
		records = append(records, RawRecord{
			Tool:        "bandit",
			Title:       fmt.Sprintf("%s: %s", result.TestID, result.TestName),
			Severity:    result.IssueSeverity,
			Asset:       result.Filename,
			RuleID:      result.TestID,
			Description: result.IssueText,
			FilePath:    result.Filename,
			Line:        result.LineNumber,
			CWE:         result.IssueCWE.ID,
			Tags:        []string{result.TestID},
		})
	}
	return records, nil
}

// firstCWE pulls the numeric id out of the first "CWE-###: ..." entry.
func firstCWE(cwes []string) int {
	if len(cwes) == 0 {
		return 0
	}
	s := cwes[0]
	if idx := strings.Index(s, "CWE-"); idx >= 0 {
		s = s[idx+len("CWE-"):]
		end := 0
		for end < len(s) && s[end] >= '0' && s[end] <= '9' {
			end++
		}
		if n, err := strconv.Atoi(s[:end]); err == nil {
			return n
		}
	}
	return 0
}
