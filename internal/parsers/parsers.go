package parsers

// Scanner family categories.
const (
	CategorySAST      = "sast"
	CategoryDAST      = "dast"
	CategorySCA       = "sca"
	CategoryIaC       = "infrastructure"
	CategoryContainer = "container"
	CategoryCloud     = "cloud"
	CategorySecrets   = "secrets"
	CategoryNetwork   = "network"
	CategoryBugBounty = "bugbounty"
	CategoryMobile    = "mobile"
	CategoryGeneric   = "generic"
)

// Info describes a registered parser for the /api/parsers listing.
type Info struct {
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	Category    string   `json:"category"`
	FileTypes   []string `json:"file_types"`
	Description string   `json:"description"`
}

// RawRecord is one scanner output record before normalization.
// Severity carries the tool's own vocabulary; the normalizer maps it
// onto the canonical enum.
type RawRecord struct {
	Tool           string
	Title          string
	Severity       string
	Asset          string
	RuleID         string
	Description    string
	Recommendation string
	FilePath       string
	Line           int
	CVE            string
	CWE            int
	References     []string
	Tags           []string
}

// Parser converts one scanner's report format into raw records.
// Detect must be cheap and side-effect free; Parse fails with an
// unparsable-content error when the payload does not match the
// parser's grammar.
type Parser interface {
	Info() Info
	Detect(content []byte) bool
	Parse(content []byte) ([]RawRecord, error)
}
