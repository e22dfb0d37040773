package parsers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"encoding/xml"
	"strconv"
	"strings"

	"github.com/djvirus9/secops-dashboard/internal/errors"
)

// NucleiParser reads nuclei JSONL output (one result per line).
type NucleiParser struct{}

func (p *NucleiParser) Info() Info {
	return Info{
		Name:        "nuclei",
		DisplayName: "Nuclei",
		Category:    CategoryDAST,
		FileTypes:   []string{"json", "jsonl"},
		Description: "ProjectDiscovery fast vulnerability scanner",
	}
}

type nucleiResult struct {
	TemplateID  string `json:"template-id"`
	TemplateIDs string `json:"templateID"`
	Template    string `json:"template"`
	Host        string `json:"host"`
	MatchedAt   string `json:"matched-at"`
	URL         string `json:"url"`
	Severity    string `json:"severity"`
	Info        struct {
		Name           string          `json:"name"`
		Severity       string          `json:"severity"`
		Description    string          `json:"description"`
		Remediation    string          `json:"remediation"`
		Reference      json.RawMessage `json:"reference"`
		Tags           json.RawMessage `json:"tags"`
		Classification struct {
			CVEID json.RawMessage `json:"cve-id"`
			CWEID json.RawMessage `json:"cwe-id"`
		} `json:"classification"`
	} `json:"info"`
}

func (p *NucleiParser) Detect(content []byte) bool {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 1024*1024), 1024*1024)
	checked := 0
	for scanner.Scan() && checked < 5 {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		checked++
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(line, &probe); err != nil {
			return false
		}
		for _, key := range []string{"template-id", "templateID", "template"} {
			if _, ok := probe[key]; ok {
				return true
			}
		}
	}
	return false
}

func (p *NucleiParser) Parse(content []byte) ([]RawRecord, error) {
	var records []RawRecord
	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
	parsedAny := false

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var result nucleiResult
		if err := json.Unmarshal(line, &result); err != nil {
			continue
		}
		parsedAny = true

		templateID := result.TemplateID
		if templateID == "" {
			templateID = result.TemplateIDs
		}
		if templateID == "" {
			templateID = result.Template
		}

		severity := result.Info.Severity
		if severity == "" {
			severity = result.Severity
		}

		host := result.Host
		if host == "" {
			host = result.MatchedAt
		}
		if host == "" {
			host = result.URL
		}

		title := result.Info.Name
		if title == "" {
			title = templateID
		}

		records = append(records, RawRecord{
			Tool:           "nuclei",
			Title:          title,
			Severity:       severity,
			Asset:          host,
			RuleID:         templateID,
			Description:    result.Info.Description,
			Recommendation: result.Info.Remediation,
			CVE:            firstString(result.Info.Classification.CVEID),
			CWE:            rawCWE(result.Info.Classification.CWEID),
			References:     stringList(result.Info.Reference),
			Tags:           tagList(result.Info.Tags),
		})
	}
	if !parsedAny {
		return nil, errors.Newf(errors.ErrorTypeUnparsable, "parse_nuclei", "no nuclei results found")
	}
	return records, nil
}

// ZAPParser reads OWASP ZAP reports in JSON or XML form.
type ZAPParser struct{}

func (p *ZAPParser) Info() Info {
	return Info{
		Name:        "zap",
		DisplayName: "OWASP ZAP",
		Category:    CategoryDAST,
		FileTypes:   []string{"json", "xml"},
		Description: "OWASP Zed Attack Proxy web application scanner",
	}
}

var zapRiskSeverity = map[string]string{
	"3": "high",
	"2": "medium",
	"1": "low",
	"0": "info",
}

type zapJSONReport struct {
	Version string          `json:"@version"`
	Site    json.RawMessage `json:"site"`
}

type zapSite struct {
	Name   string          `json:"@name"`
	Alerts json.RawMessage `json:"alerts"`
}

type zapAlert struct {
	Name      string          `json:"name"`
	RiskCode  string          `json:"riskcode"`
	Desc      string          `json:"desc"`
	Solution  string          `json:"solution"`
	Reference string          `json:"reference"`
	CWEID     string          `json:"cweid"`
	PluginID  string          `json:"pluginid"`
	Instances json.RawMessage `json:"instances"`
}

type zapInstance struct {
	URI string `json:"uri"`
}

type zapXMLReport struct {
	XMLName xml.Name `xml:"OWASPZAPReport"`
	Sites   []struct {
		Name   string `xml:"name,attr"`
		Alerts []struct {
			Name      string `xml:"name"`
			RiskCode  string `xml:"riskcode"`
			Desc      string `xml:"desc"`
			Solution  string `xml:"solution"`
			CWEID     string `xml:"cweid"`
			PluginID  string `xml:"pluginid"`
			Instances []struct {
				URI string `xml:"uri"`
			} `xml:"instances>instance"`
		} `xml:"alerts>alertitem"`
	} `xml:"site"`
}

func (p *ZAPParser) Detect(content []byte) bool {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &probe); err != nil {
			return false
		}
		if _, ok := probe["@version"]; ok {
			return true
		}
		_, ok := probe["site"]
		return ok
	}
	if trimmed[0] == '<' {
		return bytes.Contains(trimmed, []byte("<OWASPZAPReport"))
	}
	return false
}

func (p *ZAPParser) Parse(content []byte) ([]RawRecord, error) {
	trimmed := bytes.TrimSpace(content)
	if len(trimmed) > 0 && trimmed[0] == '<' {
		return p.parseXML(trimmed)
	}
	return p.parseJSON(trimmed)
}

func (p *ZAPParser) parseJSON(content []byte) ([]RawRecord, error) {
	var report zapJSONReport
	if err := json.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_zap", err)
	}

	var records []RawRecord
	for _, rawSite := range oneOrMany(report.Site) {
		var site zapSite
		if err := json.Unmarshal(rawSite, &site); err != nil {
			continue
		}
		for _, rawAlert := range oneOrMany(site.Alerts) {
			var alert zapAlert
			if err := json.Unmarshal(rawAlert, &alert); err != nil {
				continue
			}
			instances := oneOrMany(alert.Instances)
			if len(instances) == 0 {
				instances = []json.RawMessage{[]byte("{}")}
			}
			for _, rawInstance := range instances {
				var instance zapInstance
				_ = json.Unmarshal(rawInstance, &instance)
				asset := instance.URI
				if asset == "" {
					asset = site.Name
				}
				var refs []string
				if alert.Reference != "" {
					refs = []string{alert.Reference}
				}
				records = append(records, zapRecord(alert.Name, alert.RiskCode, alert.Desc, alert.Solution, alert.CWEID, alert.PluginID, asset, refs))
			}
		}
	}
	return records, nil
}

func (p *ZAPParser) parseXML(content []byte) ([]RawRecord, error) {
	var report zapXMLReport
	if err := xml.Unmarshal(content, &report); err != nil {
		return nil, errors.New(errors.ErrorTypeUnparsable, "parse_zap", err)
	}

	var records []RawRecord
	for _, site := range report.Sites {
		for _, alert := range site.Alerts {
			if len(alert.Instances) == 0 {
				records = append(records, zapRecord(alert.Name, alert.RiskCode, alert.Desc, alert.Solution, alert.CWEID, alert.PluginID, site.Name, nil))
				continue
			}
			for _, instance := range alert.Instances {
				asset := instance.URI
				if asset == "" {
					asset = site.Name
				}
				records = append(records, zapRecord(alert.Name, alert.RiskCode, alert.Desc, alert.Solution, alert.CWEID, alert.PluginID, asset, nil))
			}
		}
	}
	return records, nil
}

func zapRecord(name, riskCode, desc, solution, cweID, pluginID, asset string, refs []string) RawRecord {
	severity, ok := zapRiskSeverity[riskCode]
	if !ok {
		severity = "info"
	}
	cwe := 0
	if n, err := strconv.Atoi(cweID); err == nil {
		cwe = n
	}
	return RawRecord{
		Tool:           "zap",
		Title:          name,
		Severity:       severity,
		Asset:          asset,
		RuleID:         pluginID,
		Description:    desc,
		Recommendation: solution,
		CWE:            cwe,
		References:     refs,
		Tags:           []string{"zap", pluginID},
	}
}

// oneOrMany flattens a JSON value that may be a single object or an
// array of objects (ZAP emits both shapes).
func oneOrMany(raw json.RawMessage) []json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if trimmed[0] == '[' {
		var many []json.RawMessage
		if err := json.Unmarshal(trimmed, &many); err == nil {
			return many
		}
		return nil
	}
	return []json.RawMessage{trimmed}
}

func firstString(raw json.RawMessage) string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list[0]
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func rawCWE(raw json.RawMessage) int {
	s := firstString(raw)
	if s == "" {
		var nums []int
		if err := json.Unmarshal(raw, &nums); err == nil && len(nums) > 0 {
			return nums[0]
		}
		return 0
	}
	if n, err := strconv.Atoi(strings.TrimPrefix(strings.ToUpper(s), "CWE-")); err == nil {
		return n
	}
	return 0
}

func stringList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return []string{s}
	}
	return nil
}

func tagList(raw json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil && s != "" {
		return strings.Split(s, ",")
	}
	return nil
}
