package parsers

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// TrivyParser reads `trivy --format json` reports, covering
// vulnerabilities, misconfigurations, and embedded secrets.
type TrivyParser struct{}

func (p *TrivyParser) Info() Info {
	return Info{
		Name:        "trivy",
		DisplayName: "Trivy",
		Category:    CategorySCA,
		FileTypes:   []string{"json"},
		Description: "Aqua Security comprehensive vulnerability scanner",
	}
}

type trivyReport struct {
	SchemaVersion int    `json:"SchemaVersion"`
	ArtifactName  string `json:"ArtifactName"`
	Results       []struct {
		Target          string `json:"Target"`
		Type            string `json:"Type"`
		Vulnerabilities []struct {
			VulnerabilityID  string   `json:"VulnerabilityID"`
			PkgName          string   `json:"PkgName"`
			InstalledVersion string   `json:"InstalledVersion"`
			FixedVersion     string   `json:"FixedVersion"`
			Title            string   `json:"Title"`
			Description      string   `json:"Description"`
			Severity         string   `json:"Severity"`
			CweIDs           []string `json:"CweIDs"`
			References       []string `json:"References"`
		} `json:"Vulnerabilities"`
		Misconfigurations []struct {
			ID          string   `json:"ID"`
			Title       string   `json:"Title"`
			Description string   `json:"Description"`
			Severity    string   `json:"Severity"`
			Resolution  string   `json:"Resolution"`
			References  []string `json:"References"`
			Type        string   `json:"Type"`
		} `json:"Misconfigurations"`
		Secrets []struct {
			RuleID    string `json:"RuleID"`
			Category  string `json:"Category"`
			Title     string `json:"Title"`
			StartLine int    `json:"StartLine"`
		} `json:"Secrets"`
	} `json:"Results"`
}

func (p *TrivyParser) Detect(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	if _, ok := probe["Results"]; ok {
		return true
	}
	_, hasSchema := probe["SchemaVersion"]
	_, hasArtifact := probe["ArtifactName"]
	return hasSchema && hasArtifact
}

func (p *TrivyParser) Parse(content []byte) ([]RawRecord, error) {
	var report trivyReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_trivy", err)
	}

	var records []RawRecord
	for _, result := range report.Results {
		target := result.Target
		if target == "" {
			target = report.ArtifactName
		}

		for _, vuln := range result.Vulnerabilities {
			title := vuln.VulnerabilityID
			if title == "" {
				title = vuln.Title
			}
			recommendation := ""
			if vuln.FixedVersion != "" {
				recommendation = fmt.Sprintf("Upgrade %s from %s to %s", vuln.PkgName, vuln.InstalledVersion, vuln.FixedVersion)
			}
			records = append(records, RawRecord{
				Tool:           "trivy",
				Title:          fmt.Sprintf("%s: %s", title, vuln.PkgName),
				Severity:       vuln.Severity,
				Asset:          target,
				RuleID:         vuln.VulnerabilityID,
				Description:    vuln.Description,
				Recommendation: recommendation,
				CVE:            vuln.VulnerabilityID,
				CWE:            firstCWE(vuln.CweIDs),
				References:     vuln.References,
				Tags:           []string{result.Type, vuln.PkgName},
			})
		}

		for _, misconfig := range result.Misconfigurations {
			title := misconfig.Title
			if title == "" {
				title = misconfig.ID
			}
			records = append(records, RawRecord{
				Tool:           "trivy",
				Title:          title,
				Severity:       misconfig.Severity,
				Asset:          target,
				RuleID:         misconfig.ID,
				Description:    misconfig.Description,
				Recommendation: misconfig.Resolution,
				References:     misconfig.References,
				Tags:           []string{"misconfiguration", misconfig.Type},
			})
		}

		for _, secret := range result.Secrets {
			rule := secret.RuleID
			if rule == "" {
				rule = secret.Category
			}
			records = append(records, RawRecord{
				Tool:        "trivy",
				Title:       fmt.Sprintf("Secret Detected: %s", rule),
				Severity:    "high",
				Asset:       target,
				RuleID:      secret.RuleID,
				Description: secret.Title,
				FilePath:    target,
				Line:        secret.StartLine,
				Tags:        []string{"secrets", secret.Category},
			})
		}
	}
	return records, nil
}

// GrypeParser reads `grype -o json` output.
type GrypeParser struct{}

func (p *GrypeParser) Info() Info {
	return Info{
		Name:        "grype",
		DisplayName: "Grype",
		Category:    CategorySCA,
		FileTypes:   []string{"json"},
		Description: "Anchore container and filesystem vulnerability scanner",
	}
}

type grypeReport struct {
	Source struct {
		Target json.RawMessage `json:"target"`
	} `json:"source"`
	Matches []struct {
		Vulnerability struct {
			ID          string   `json:"id"`
			Severity    string   `json:"severity"`
			Description string   `json:"description"`
			URLs        []string `json:"urls"`
			Fix         struct {
				Versions []string `json:"versions"`
			} `json:"fix"`
		} `json:"vulnerability"`
		Artifact struct {
			Name    string `json:"name"`
			Version string `json:"version"`
			Type    string `json:"type"`
		} `json:"artifact"`
	} `json:"matches"`
}

func (p *GrypeParser) Detect(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	_, hasMatches := probe["matches"]
	_, hasSource := probe["source"]
	return hasMatches && hasSource
}

func (p *GrypeParser) Parse(content []byte) ([]RawRecord, error) {
	var report grypeReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_grype", err)
	}

	asset := grypeTargetName(report.Source.Target)

	records := make([]RawRecord, 0, len(report.Matches))
	for _, match := range report.Matches {
		vuln := match.Vulnerability
		recommendation := ""
		if len(vuln.Fix.Versions) > 0 {
			recommendation = fmt.Sprintf("Upgrade %s to: %s", match.Artifact.Name, strings.Join(vuln.Fix.Versions, ", "))
		}
		records = append(records, RawRecord{
			Tool:           "grype",
			Title:          fmt.Sprintf("%s: %s %s", vuln.ID, match.Artifact.Name, match.Artifact.Version),
			Severity:       vuln.Severity,
			Asset:          asset,
			RuleID:         vuln.ID,
			Description:    vuln.Description,
			Recommendation: recommendation,
			CVE:            vuln.ID,
			References:     vuln.URLs,
			Tags:           []string{match.Artifact.Type, match.Artifact.Name},
		})
	}
	return records, nil
}

func grypeTargetName(raw json.RawMessage) string {
	var target struct {
		UserInput string `json:"userInput"`
		ImageID   string `json:"imageID"`
	}
	if err := json.Unmarshal(raw, &target); err == nil {
		if target.UserInput != "" {
			return target.UserInput
		}
		if target.ImageID != "" {
			return target.ImageID
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return s
	}
	return "unknown"
}

// NpmAuditParser reads `npm audit --json` output, handling both the v1
// advisories and v2 vulnerabilities layouts.
type NpmAuditParser struct{}

func (p *NpmAuditParser) Info() Info {
	return Info{
		Name:        "npm-audit",
		DisplayName: "npm audit",
		Category:    CategorySCA,
		FileTypes:   []string{"json"},
		Description: "Node.js npm package vulnerability scanner",
	}
}

func (p *NpmAuditParser) Detect(content []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return false
	}
	_, hasAdvisories := probe["advisories"]
	_, hasVulns := probe["vulnerabilities"]
	_, hasMetadata := probe["metadata"]
	_, hasVersion := probe["auditReportVersion"]
	return (hasAdvisories || hasVulns) && (hasMetadata || hasVersion)
}

type npmAuditV2 struct {
	Vulnerabilities map[string]struct {
		Severity string          `json:"severity"`
		Range    string          `json:"range"`
		Via      json.RawMessage `json:"via"`
	} `json:"vulnerabilities"`
}

type npmAuditVia struct {
	Title    string          `json:"title"`
	Severity string          `json:"severity"`
	URL      string          `json:"url"`
	CWE      json.RawMessage `json:"cwe"`
}

type npmAuditV1 struct {
	Advisories map[string]struct {
		Title          string `json:"title"`
		Severity       string `json:"severity"`
		Overview       string `json:"overview"`
		ModuleName     string `json:"module_name"`
		Recommendation string `json:"recommendation"`
		URL            string `json:"url"`
		CWE            string `json:"cwe"`
	} `json:"advisories"`
}

func (p *NpmAuditParser) Parse(content []byte) ([]RawRecord, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(content, &probe); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_npm_audit", err)
	}
	if _, ok := probe["vulnerabilities"]; ok {
		return p.parseV2(content)
	}
	return p.parseV1(content)
}

func (p *NpmAuditParser) parseV2(content []byte) ([]RawRecord, error) {
	var report npmAuditV2
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_npm_audit", err)
	}

	var records []RawRecord
	for pkgName, vuln := range report.Vulnerabilities {
		// via mixes advisory objects with bare package-name strings
		var vias []json.RawMessage
		if err := json.Unmarshal(vuln.Via, &vias); err != nil {
			continue
		}
		for _, raw := range vias {
			var via npmAuditVia
			if err := json.Unmarshal(raw, &via); err != nil {
				continue
			}
			title := via.Title
			if title == "" {
				title = fmt.Sprintf("Vulnerability in %s", pkgName)
			}
			severity := via.Severity
			if severity == "" {
				severity = vuln.Severity
			}
			var refs []string
			if via.URL != "" {
				refs = []string{via.URL}
			}
			records = append(records, RawRecord{
				Tool:        "npm-audit",
				Title:       title,
				Severity:    severity,
				Asset:       pkgName,
				Description: via.Title,
				CWE:         npmCWE(via.CWE),
				References:  refs,
				Tags:        []string{"npm", pkgName, vuln.Range},
			})
		}
	}
	return records, nil
}

func (p *NpmAuditParser) parseV1(content []byte) ([]RawRecord, error) {
	var report npmAuditV1
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_npm_audit", err)
	}

	var records []RawRecord
	for advisoryID, advisory := range report.Advisories {
		title := advisory.Title
		if title == "" {
			title = fmt.Sprintf("Advisory %s", advisoryID)
		}
		var refs []string
		if advisory.URL != "" {
			refs = []string{advisory.URL}
		}
		cwe := 0
		if n, err := strconv.Atoi(strings.TrimPrefix(advisory.CWE, "CWE-")); err == nil {
			cwe = n
		}
		records = append(records, RawRecord{
			Tool:           "npm-audit",
			Title:          title,
			Severity:       advisory.Severity,
			Asset:          advisory.ModuleName,
			Description:    advisory.Overview,
			Recommendation: advisory.Recommendation,
			CWE:            cwe,
			References:     refs,
			Tags:           []string{"npm", advisory.ModuleName},
		})
	}
	return records, nil
}

func npmCWE(raw json.RawMessage) int {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		if n, err := strconv.Atoi(strings.TrimPrefix(list[0], "CWE-")); err == nil {
			return n
		}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.Atoi(strings.TrimPrefix(s, "CWE-")); err == nil {
			return n
		}
	}
	return 0
}
