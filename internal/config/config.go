package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

// Config holds everything the server needs, assembled from an optional
// .env file and environment variables. Environment always wins.
type Config struct {
	Port      int
	DataDir   string
	LogLevel  string
	LogFormat string

	SlackWebhookURL string

	JiraBaseURL    string
	JiraEmail      string
	JiraAPIToken   string
	JiraProjectKey string

	// SeverityOverridesFile is an optional YAML file remapping raw
	// scanner severities per tool.
	SeverityOverridesFile string
}

const (
	defaultPort    = 8080
	defaultDataDir = "/var/lib/secops-dashboard"
)

// Load reads .env (if present) and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded configuration from .env file")
	}

	cfg := &Config{
		Port:                  defaultPort,
		DataDir:               envOr("DATA_DIR", defaultDataDir),
		LogLevel:              envOr("LOG_LEVEL", "info"),
		LogFormat:             envOr("LOG_FORMAT", "auto"),
		SlackWebhookURL:       os.Getenv("SLACK_WEBHOOK_URL"),
		JiraBaseURL:           os.Getenv("JIRA_BASE_URL"),
		JiraEmail:             os.Getenv("JIRA_EMAIL"),
		JiraAPIToken:          os.Getenv("JIRA_API_TOKEN"),
		JiraProjectKey:        os.Getenv("JIRA_PROJECT_KEY"),
		SeverityOverridesFile: os.Getenv("SEVERITY_OVERRIDES_FILE"),
	}

	if portStr := os.Getenv("PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil || port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid PORT %q", portStr)
		}
		cfg.Port = port
	}
	return cfg, nil
}

// JiraConfigured reports whether all Jira settings are present.
func (c *Config) JiraConfigured() bool {
	return c.JiraBaseURL != "" && c.JiraEmail != "" && c.JiraAPIToken != "" && c.JiraProjectKey != ""
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// severityOverridesFile is the YAML shape of the overrides file:
//
//	tools:
//	  nuclei:
//	    unknown: low
//	  semgrep:
//	    WARNING: medium
type severityOverridesFile struct {
	Tools map[string]map[string]string `yaml:"tools"`
}

// LoadSeverityOverrides parses the optional per-tool severity
// remapping file. A missing path returns an empty map.
func LoadSeverityOverrides(path string) (map[string]map[string]models.Severity, error) {
	overrides := map[string]map[string]models.Severity{}
	if path == "" {
		return overrides, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read severity overrides %q: %w", path, err)
	}
	var file severityOverridesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse severity overrides %q: %w", path, err)
	}

	for tool, mapping := range file.Tools {
		toolOverrides := map[string]models.Severity{}
		for raw, target := range mapping {
			sev := models.Severity(target)
			if !sev.Valid() {
				return nil, fmt.Errorf("severity overrides %q: unknown severity %q for tool %s", path, target, tool)
			}
			toolOverrides[raw] = sev
		}
		overrides[tool] = toolOverrides
	}
	return overrides, nil
}
