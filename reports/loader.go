// Package reports reads Playwright-style JSON test reports and flattens their
// suite trees into test cases.
package reports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

// Source is a named candidate location of a report
type Source struct {
	Label string `yaml:"label"`
	Path  string `yaml:"path"`
}

func (s Source) String() string {
	return s.Label + "=" + s.Path
}

// DefaultSources returns the report locations used when none are configured
func DefaultSources() []Source {
	return []Source{
		{Label: "core", Path: "test-results-simple/results.json"},
		{Label: "visual", Path: "test-results-visual/results.json"},
	}
}

// LoadError is returned when a report exists but cannot be read or parsed
type LoadError struct {
	Source Source
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load report %q from %s: %v", e.Source.Label, e.Source.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader reads the reports of a fixed set of sources
type Loader struct {
	sources []Source
	log     log.Logger
}

// NewLoader creates a loader over sources. Labels are expected to be unique.
func NewLoader(logger log.Logger, sources []Source) *Loader {
	if logger == nil {
		logger = log.New()
	}
	return &Loader{
		sources: sources,
		log:     logger,
	}
}

// Sources returns the configured candidate locations
func (l *Loader) Sources() []Source {
	return l.sources
}

// Load returns every report that exists, keyed by source label.
// Missing locations are skipped; a location that exists but does not parse is an error.
// An empty map with a nil error means no report was found.
func (l *Loader) Load() (map[string]*types.ReportDocument, error) {
	docs := make(map[string]*types.ReportDocument, len(l.sources))
	for _, src := range l.sources {
		doc, found, err := l.loadSource(src)
		if err != nil {
			return nil, &LoadError{Source: src, Err: err}
		}
		if !found {
			l.log.Debug("Report not found, skipping", "label", src.Label, "path", src.Path)
			continue
		}
		docs[src.Label] = doc
		l.log.Info("Loaded report", "label", src.Label, "path", src.Path, "suites", len(doc.RootSuites))
	}
	return docs, nil
}

func (l *Loader) loadSource(src Source) (*types.ReportDocument, bool, error) {
	f, err := os.Open(src.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	doc, err := ParseReport(src.Label, f)
	if err != nil {
		return nil, true, err
	}
	return doc, true, nil
}

// report mirrors the subset of the Playwright JSON reporter output that is consumed
type report struct {
	Suites []suite `json:"suites"`
}

type suite struct {
	Title  string     `json:"title"`
	Suites []suite    `json:"suites"`
	Tests  []testCase `json:"tests"`
}

type testCase struct {
	Title    string     `json:"title"`
	Status   string     `json:"status"`
	Duration float64    `json:"duration"`
	Error    *testError `json:"error"`
}

type testError struct {
	Message string `json:"message"`
}

// ParseReport decodes a single JSON report read from r
func ParseReport(label string, r io.Reader) (*types.ReportDocument, error) {
	var raw *report
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("invalid report JSON: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("invalid report JSON: top level is null")
	}

	suites, err := convertSuites(raw.Suites)
	if err != nil {
		return nil, err
	}
	return &types.ReportDocument{
		SourceLabel: label,
		RootSuites:  suites,
	}, nil
}

func convertSuites(in []suite) ([]types.Suite, error) {
	out := make([]types.Suite, 0, len(in))
	for _, s := range in {
		converted, err := convertSuite(s)
		if err != nil {
			return nil, err
		}
		out = append(out, converted)
	}
	return out, nil
}

func convertSuite(in suite) (types.Suite, error) {
	subs, err := convertSuites(in.Suites)
	if err != nil {
		return types.Suite{}, err
	}
	cases := make([]types.TestCase, 0, len(in.Tests))
	for _, t := range in.Tests {
		tc, err := convertTest(t)
		if err != nil {
			return types.Suite{}, fmt.Errorf("suite %q: %w", in.Title, err)
		}
		cases = append(cases, tc)
	}
	return types.Suite{
		Title:     in.Title,
		SubSuites: subs,
		TestCases: cases,
	}, nil
}

func convertTest(in testCase) (types.TestCase, error) {
	// float64(math.MaxInt64) rounds up to 2^63, which no longer fits
	if in.Duration < 0 || math.IsNaN(in.Duration) || in.Duration >= math.MaxInt64 {
		return types.TestCase{}, fmt.Errorf("test %q has invalid duration %v", in.Title, in.Duration)
	}
	status := types.TestStatus(in.Status)
	if status == "" {
		status = types.TestStatusUnknown
	}
	tc := types.TestCase{
		Title:      in.Title,
		Status:     status,
		DurationMs: int64(math.Round(in.Duration)),
	}
	if in.Error != nil {
		tc.ErrorMessage = in.Error.Message
	}
	return tc, nil
}
