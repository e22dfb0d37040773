package models

import (
	"strings"
	"time"
)

// Severity is the fixed 5-level ordinal used for all findings.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRanks = map[Severity]int{
	SeverityInfo:     0,
	SeverityLow:      1,
	SeverityMedium:   2,
	SeverityHigh:     3,
	SeverityCritical: 4,
}

// Rank returns the ordinal position of the severity (info=0 .. critical=4).
// Unknown values rank as info.
func (s Severity) Rank() int {
	return severityRanks[s]
}

// Valid reports whether s is one of the five known levels.
func (s Severity) Valid() bool {
	_, ok := severityRanks[s]
	return ok
}

// Exposure describes whether an asset is reachable from the internet.
type Exposure string

const (
	ExposureInternal Exposure = "internal"
	ExposureInternet Exposure = "internet"
)

// Criticality is the business importance of an asset.
type Criticality string

const (
	CriticalityLow    Criticality = "low"
	CriticalityMedium Criticality = "medium"
	CriticalityHigh   Criticality = "high"
)

// Environment classifies where an asset runs.
type Environment string

const (
	EnvironmentProd    Environment = "prod"
	EnvironmentStaging Environment = "staging"
	EnvironmentDev     Environment = "dev"
	EnvironmentUnknown Environment = "unknown"
)

// Status is the triage state of a finding. Any status may transition to
// any other; closed findings can be reopened.
type Status string

const (
	StatusOpen          Status = "open"
	StatusInvestigating Status = "investigating"
	StatusResolved      Status = "resolved"
	StatusClosed        Status = "closed"
)

var allStatuses = map[Status]bool{
	StatusOpen:          true,
	StatusInvestigating: true,
	StatusResolved:      true,
	StatusClosed:        true,
}

// Valid reports whether s is a known triage status.
func (s Status) Valid() bool {
	return allStatuses[s]
}

// Asset is an inventoried system or service. Assets are shared by
// reference from many findings and never deleted by ingestion.
type Asset struct {
	ID          string      `json:"id"`
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Environment Environment `json:"environment"`
	Owner       string      `json:"owner"`
	Criticality Criticality `json:"criticality"`
	Exposure    Exposure    `json:"exposure"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// NormalizeAssetKey canonicalizes a user- or scanner-supplied asset key.
func NormalizeAssetKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Signal is one raw ingestion event, kept as a journal of what was
// actually received.
type Signal struct {
	ID        string    `json:"id"`
	Tool      string    `json:"tool"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// Finding is a deduplicated security issue. Exactly one finding exists
// per fingerprint; repeat detections bump occurrences and last_seen.
type Finding struct {
	ID          string      `json:"id"`
	Fingerprint string      `json:"fingerprint"`
	Tool        string      `json:"tool"`
	Title       string      `json:"title"`
	Severity    Severity    `json:"severity"`
	AssetKey    string      `json:"asset"`
	AssetID     string      `json:"asset_id"`
	Exposure    Exposure    `json:"exposure"`
	Criticality Criticality `json:"criticality"`
	Status      Status      `json:"status"`
	Assignee    string      `json:"assignee,omitempty"`
	RiskScore   int         `json:"risk_score"`
	Occurrences int         `json:"occurrences"`
	FirstSeen   time.Time   `json:"first_seen"`
	LastSeen    time.Time   `json:"last_seen"`
	SignalID    string      `json:"signal_id"`
}

// Comment is an append-only activity entry owned by a finding.
// ActionType "update" marks system-generated triage audit entries.
type Comment struct {
	ID         string    `json:"id"`
	FindingID  string    `json:"finding_id"`
	Author     string    `json:"author"`
	Content    string    `json:"content"`
	ActionType string    `json:"action_type,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// FindingDraft is a normalized candidate finding produced by the
// normalizer, ready for fingerprinting and upsert.
type FindingDraft struct {
	Tool        string
	Title       string
	Severity    Severity
	AssetKey    string
	RuleID      string
	Description string
	Exposure    Exposure
	Criticality Criticality
}
