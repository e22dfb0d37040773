package parsers

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// NmapParser reads nmap XML (-oX) output. Open ports become info
// findings; NSE vuln script hits become graded findings.
type NmapParser struct{}

func (p *NmapParser) Info() Info {
	return Info{
		Name:        "nmap",
		DisplayName: "Nmap",
		Category:    CategoryNetwork,
		FileTypes:   []string{"xml"},
		Description: "Nmap network discovery and security auditing",
	}
}

type nmapRun struct {
	XMLName xml.Name `xml:"nmaprun"`
	Hosts   []struct {
		Address struct {
			Addr string `xml:"addr,attr"`
		} `xml:"address"`
		Hostnames struct {
			Hostname []struct {
				Name string `xml:"name,attr"`
			} `xml:"hostname"`
		} `xml:"hostnames"`
		Ports struct {
			Port []struct {
				PortID string `xml:"portid,attr"`
				State  struct {
					State string `xml:"state,attr"`
				} `xml:"state"`
				Service struct {
					Name    string `xml:"name,attr"`
					Product string `xml:"product,attr"`
					Version string `xml:"version,attr"`
				} `xml:"service"`
				Scripts []struct {
					ID     string `xml:"id,attr"`
					Output string `xml:"output,attr"`
				} `xml:"script"`
			} `xml:"port"`
		} `xml:"ports"`
	} `xml:"host"`
}

func (p *NmapParser) Detect(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 || trimmed[0] != '<' {
		return false
	}
	return bytes.Contains(trimmed, []byte("<nmaprun"))
}

func (p *NmapParser) Parse(content []byte) ([]RawRecord, error) {
	var run nmapRun
	if err := xml.Unmarshal(content, &run); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_nmap", err)
	}

	var records []RawRecord
	for _, host := range run.Hosts {
		addr := host.Address.Addr
		if addr == "" {
			addr = "unknown"
		}
		hostname := ""
		if len(host.Hostnames.Hostname) > 0 {
			hostname = host.Hostnames.Hostname[0].Name
		}
		assetHost := hostname
		if assetHost == "" {
			assetHost = addr
		}

		for _, port := range host.Ports.Port {
			if port.State.State != "open" {
				continue
			}

			for _, script := range port.Scripts {
				if !strings.Contains(strings.ToUpper(script.Output), "VULNERABLE") &&
					!strings.Contains(strings.ToLower(script.ID), "vuln") {
					continue
				}
				desc := script.Output
				if len(desc) > 500 {
					desc = desc[:500]
				}
				records = append(records, RawRecord{
					Tool:        "nmap",
					Title:       fmt.Sprintf("Vulnerability: %s", script.ID),
					Severity:    nmapScriptSeverity(script.Output),
					Asset:       fmt.Sprintf("%s:%s", addr, port.PortID),
					RuleID:      script.ID,
					Description: desc,
					Tags:        []string{"nmap", script.ID},
				})
			}

			service := port.Service.Name
			if service == "" {
				service = "unknown"
			}
			desc := fmt.Sprintf("Port %s is open", port.PortID)
			if port.Service.Product != "" {
				desc = strings.TrimSpace(fmt.Sprintf("Service: %s %s", port.Service.Product, port.Service.Version))
			}
			records = append(records, RawRecord{
				Tool:        "nmap",
				Title:       fmt.Sprintf("Open Port: %s (%s)", port.PortID, service),
				Severity:    "info",
				Asset:       fmt.Sprintf("%s:%s", assetHost, port.PortID),
				Description: desc,
				Tags:        []string{"nmap", service},
			})
		}
	}
	return records, nil
}

func nmapScriptSeverity(output string) string {
	lower := strings.ToLower(output)
	switch {
	case strings.Contains(lower, "critical") || strings.Contains(lower, "rce"):
		return "critical"
	case strings.Contains(lower, "high") || strings.Contains(lower, "vulnerable"):
		return "high"
	case strings.Contains(lower, "medium"):
		return "medium"
	default:
		return "low"
	}
}
