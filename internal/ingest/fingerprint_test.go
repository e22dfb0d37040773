package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

func draft(tool, title, asset, ruleID string) models.FindingDraft {
	return models.FindingDraft{
		Tool:     tool,
		Title:    title,
		AssetKey: asset,
		RuleID:   ruleID,
	}
}

func TestFingerprintStable(t *testing.T) {
	d := draft("semgrep", "SQL injection in login handler", "api-gateway", "go.lang.security.audit.sqli")
	assert.Equal(t, Fingerprint(d), Fingerprint(d))
	assert.Len(t, Fingerprint(d), 64)
}

func TestFingerprintIgnoresCaseAndWhitespace(t *testing.T) {
	a := draft("semgrep", "SQL Injection  in   login handler", "API-Gateway", "RULE-1")
	b := draft("semgrep", "sql injection in login handler", "api-gateway ", "rule-1")
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDistinguishesRuleIDs(t *testing.T) {
	a := draft("semgrep", "Hardcoded secret", "api-gateway", "rule-1")
	b := draft("semgrep", "Hardcoded secret", "api-gateway", "rule-2")
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDistinguishesTools(t *testing.T) {
	a := draft("semgrep", "Hardcoded secret", "api-gateway", "")
	b := draft("bandit", "Hardcoded secret", "api-gateway", "")
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintDescriptionFallback(t *testing.T) {
	a := draft("zap", "Missing security header", "web", "")
	b := draft("zap", "Missing security header", "web", "")
	a.Description = "X-Frame-Options header is not set"
	b.Description = "Content-Security-Policy header is not set"
	assert.NotEqual(t, Fingerprint(a), Fingerprint(b))

	// Same description collapses again.
	b.Description = "x-frame-options   header is not set"
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}

func TestFingerprintRuleIDBeatsDescription(t *testing.T) {
	a := draft("trivy", "CVE-2024-1234 in libssl", "registry/app:latest", "CVE-2024-1234")
	b := draft("trivy", "CVE-2024-1234 in libssl", "registry/app:latest", "CVE-2024-1234")
	a.Description = "first scan wording"
	b.Description = "second scan wording"
	assert.Equal(t, Fingerprint(a), Fingerprint(b))
}
