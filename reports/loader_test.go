package reports

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

const coreReport = `{
  "suites": [
    {
      "title": "login.spec.ts",
      "tests": [
        {"title": "user can log in", "status": "passed", "duration": 120},
        {"title": "bad password is rejected", "status": "failed", "duration": 80,
         "error": {"message": "expected 401, got 500"}}
      ],
      "suites": [
        {
          "title": "nested",
          "tests": [{"title": "remember me", "status": "timedOut", "duration": 30000}]
        }
      ]
    }
  ]
}`

func writeReport(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseReport(t *testing.T) {
	doc, err := ParseReport("core", strings.NewReader(coreReport))
	require.NoError(t, err)

	assert.Equal(t, "core", doc.SourceLabel)
	require.Len(t, doc.RootSuites, 1)

	root := doc.RootSuites[0]
	assert.Equal(t, "login.spec.ts", root.Title)
	require.Len(t, root.TestCases, 2)
	assert.Equal(t, types.TestCase{Title: "user can log in", Status: types.TestStatusPassed, DurationMs: 120}, root.TestCases[0])
	assert.Equal(t, "expected 401, got 500", root.TestCases[1].ErrorMessage)
	assert.True(t, root.TestCases[1].HasError())

	require.Len(t, root.SubSuites, 1)
	assert.Equal(t, types.TestStatus("timedOut"), root.SubSuites[0].TestCases[0].Status)
	assert.Equal(t, int64(30000), root.SubSuites[0].TestCases[0].DurationMs)
}

func TestParseReport_Defaults(t *testing.T) {
	doc, err := ParseReport("core", strings.NewReader(`{"suites":[{"tests":[{"title":"no status"}]}]}`))
	require.NoError(t, err)

	tc := doc.RootSuites[0].TestCases[0]
	assert.Equal(t, types.TestStatusUnknown, tc.Status)
	assert.Equal(t, int64(0), tc.DurationMs)
	assert.False(t, tc.HasError())
}

func TestParseReport_NoSuites(t *testing.T) {
	doc, err := ParseReport("visual", strings.NewReader(`{"config": {}}`))
	require.NoError(t, err)
	assert.Empty(t, doc.RootSuites)
}

func TestParseReport_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "empty", content: ""},
		{name: "truncated", content: `{"suites": [`},
		{name: "wrong type", content: `{"suites": "nope"}`},
		{name: "negative duration", content: `{"suites":[{"tests":[{"title":"x","duration":-1}]}]}`},
		{name: "duration overflows", content: `{"suites":[{"tests":[{"title":"x","status":"passed","duration":1e20}]}]}`},
		{name: "null document", content: `null`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReport("core", strings.NewReader(tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	corePath := writeReport(t, dir, "test-results-simple/results.json", coreReport)

	loader := NewLoader(log.NewLogger(log.DiscardHandler()), []Source{
		{Label: "core", Path: corePath},
		{Label: "visual", Path: filepath.Join(dir, "test-results-visual/results.json")},
	})

	docs, err := loader.Load()
	require.NoError(t, err)
	require.Len(t, docs, 1, "missing locations are skipped")
	require.Contains(t, docs, "core")
	assert.Equal(t, "core", docs["core"].SourceLabel)
}

func TestLoader_NoReports(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(log.NewLogger(log.DiscardHandler()), []Source{
		{Label: "core", Path: filepath.Join(dir, "a.json")},
		{Label: "visual", Path: filepath.Join(dir, "b.json")},
	})

	docs, err := loader.Load()
	require.NoError(t, err)
	require.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestLoader_MalformedReport(t *testing.T) {
	dir := t.TempDir()
	corePath := writeReport(t, dir, "core.json", coreReport)
	badPath := writeReport(t, dir, "visual.json", `{"suites": [}`)

	loader := NewLoader(log.NewLogger(log.DiscardHandler()), []Source{
		{Label: "core", Path: corePath},
		{Label: "visual", Path: badPath},
	})

	docs, err := loader.Load()
	require.Error(t, err)
	assert.Nil(t, docs)

	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Equal(t, "visual", loadErr.Source.Label)
	assert.Contains(t, err.Error(), badPath)
}

func TestLoader_DirectoryIsLoadError(t *testing.T) {
	dir := t.TempDir()
	loader := NewLoader(nil, []Source{{Label: "core", Path: dir}})

	_, err := loader.Load()
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
}

func TestDefaultSources(t *testing.T) {
	sources := DefaultSources()
	require.Len(t, sources, 2)
	assert.Equal(t, "core=test-results-simple/results.json", sources[0].String())
	assert.Equal(t, "visual", sources[1].Label)

	// callers get an independent copy
	sources[0].Label = "changed"
	assert.Equal(t, "core", DefaultSources()[0].Label)
}
