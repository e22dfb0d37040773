package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/djvirus9/secops-dashboard/internal/models"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, defaultPort, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.False(t, cfg.JiraConfigured())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("DATA_DIR", "/tmp/secops-test")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SLACK_WEBHOOK_URL", "https://hooks.slack.com/services/x")
	t.Setenv("JIRA_BASE_URL", "https://example.atlassian.net")
	t.Setenv("JIRA_EMAIL", "bot@example.com")
	t.Setenv("JIRA_API_TOKEN", "token")
	t.Setenv("JIRA_PROJECT_KEY", "SEC")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "/tmp/secops-test", cfg.DataDir)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.NotEmpty(t, cfg.SlackWebhookURL)
	assert.True(t, cfg.JiraConfigured())
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("PORT", "70000")
	_, err = Load()
	require.Error(t, err)
}

func TestLoadSeverityOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
tools:
  nuclei:
    unknown: low
  semgrep:
    WARNING: high
`), 0600))

	overrides, err := LoadSeverityOverrides(path)
	require.NoError(t, err)
	assert.Equal(t, models.SeverityLow, overrides["nuclei"]["unknown"])
	assert.Equal(t, models.SeverityHigh, overrides["semgrep"]["WARNING"])
}

func TestLoadSeverityOverridesEmptyPath(t *testing.T) {
	overrides, err := LoadSeverityOverrides("")
	require.NoError(t, err)
	assert.Empty(t, overrides)
}

func TestLoadSeverityOverridesRejectsUnknownLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tools:\n  zap:\n    risky: extreme\n"), 0600))

	_, err := LoadSeverityOverrides(path)
	require.Error(t, err)
}
