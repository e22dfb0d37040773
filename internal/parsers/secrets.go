package parsers

import (
	"encoding/json"
	"fmt"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// GitleaksParser reads `gitleaks detect --report-format json` output.
// Secret values themselves are truncated before they reach any stored
// record.
type GitleaksParser struct{}

func (p *GitleaksParser) Info() Info {
	return Info{
		Name:        "gitleaks",
		DisplayName: "Gitleaks",
		Category:    CategorySecrets,
		FileTypes:   []string{"json"},
		Description: "Secret and credential scanner for git repositories",
	}
}

type gitleaksLeak struct {
	RuleID      string `json:"RuleID"`
	Description string `json:"Description"`
	File        string `json:"File"`
	StartLine   int    `json:"StartLine"`
	Secret      string `json:"Secret"`
}

func (p *GitleaksParser) Detect(content []byte) bool {
	var leaks []map[string]json.RawMessage
	if err := json.Unmarshal(content, &leaks); err != nil || len(leaks) == 0 {
		return false
	}
	_, hasRule := leaks[0]["RuleID"]
	_, hasSecret := leaks[0]["Secret"]
	return hasRule || hasSecret
}

func (p *GitleaksParser) Parse(content []byte) ([]RawRecord, error) {
	var leaks []gitleaksLeak
	if err := json.Unmarshal(content, &leaks); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_gitleaks", err)
	}

	records := make([]RawRecord, 0, len(leaks))
	for _, leak := range leaks {
		preview := leak.Secret
		if len(preview) > 20 {
			preview = preview[:20]
		}
		desc := leak.Description
		if preview != "" {
			desc = fmt.Sprintf("%s. Partial match: %s...", desc, preview)
		}
		records = append(records, RawRecord{
			Tool:        "gitleaks",
			Title:       fmt.Sprintf("Secret Detected: %s", leak.RuleID),
			Severity:    "high",
			Asset:       leak.File,
			RuleID:      leak.RuleID,
			Description: desc,
			FilePath:    leak.File,
			Line:        leak.StartLine,
			Tags:        []string{"secrets", "credentials", leak.RuleID},
		})
	}
	return records, nil
}
