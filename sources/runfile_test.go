package sources

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-lgtm/reports"
)

func writeRunFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lgtm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeRunFile(t, `
reports:
  - label: core
    path: test-results-simple/results.json
  - label: visual
    path: test-results-visual/results.json
annotation:
  tags: [playwright, nightly]
loki:
  labels:
    job: playwright_tests
    env: staging
`)

	rf, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []reports.Source{
		{Label: "core", Path: "test-results-simple/results.json"},
		{Label: "visual", Path: "test-results-visual/results.json"},
	}, rf.Reports)
	assert.Equal(t, []string{"playwright", "nightly"}, rf.Annotation.Tags)
	assert.Equal(t, map[string]string{"job": "playwright_tests", "env": "staging"}, rf.Loki.Labels)
}

func TestParse_Empty(t *testing.T) {
	rf, err := Parse(nil)
	require.NoError(t, err)
	assert.Empty(t, rf.Reports)
	assert.Empty(t, rf.Annotation.Tags)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"missing label", "reports:\n  - path: a.json\n"},
		{"missing path", "reports:\n  - label: core\n"},
		{"duplicate label", "reports:\n  - {label: core, path: a.json}\n  - {label: core, path: b.json}\n"},
		{"unknown key", "report:\n  - {label: core, path: a.json}\n"},
		{"malformed", "reports: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoad_Missing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
