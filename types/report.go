// Package types contains the data model shared across op-lgtm: parsed test reports,
// categories and the per-run summary that publishers render.
package types

// TestStatus is the raw status string reported for a test case.
// Only "passed" counts as a pass; every other value is a failure.
type TestStatus string

const (
	TestStatusPassed  TestStatus = "passed"
	TestStatusFailed  TestStatus = "failed"
	TestStatusUnknown TestStatus = "unknown"
)

// Passed reports whether the status counts as a pass
func (s TestStatus) Passed() bool {
	return s == TestStatusPassed
}

func (s TestStatus) String() string {
	return string(s)
}

// TestCase is a leaf of a report tree. It is not modified after parsing.
type TestCase struct {
	Title        string
	Status       TestStatus
	DurationMs   int64
	ErrorMessage string // empty when the report carried no error
}

// HasError reports whether the report carried an error message for this case
func (tc TestCase) HasError() bool {
	return tc.ErrorMessage != ""
}

// Suite is an internal node of a report tree
type Suite struct {
	Title     string
	SubSuites []Suite
	TestCases []TestCase
}

// ReportDocument is one parsed report, labelled with the source it was read from
// (e.g. "core" or "visual").
type ReportDocument struct {
	SourceLabel string
	RootSuites  []Suite
}
