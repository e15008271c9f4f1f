package types

import (
	"fmt"
	"time"
)

// Category is the bucket a test case is rolled up into
type Category string

const (
	CategoryCore                Category = "core_tests"
	CategoryVisual              Category = "visual_tests"
	CategoryMobile              Category = "mobile_tests"
	CategoryAirtableIntegration Category = "airtable_integration"
)

// Categories lists every category in reporting order
var Categories = []Category{
	CategoryCore,
	CategoryVisual,
	CategoryMobile,
	CategoryAirtableIntegration,
}

func (c Category) String() string {
	return string(c)
}

// IsValid reports whether c belongs to the closed category set
func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// CategoryAggregate holds the counters for one category.
// Passed + Failed always equals Total.
type CategoryAggregate struct {
	Total           int
	Passed          int
	Failed          int
	TotalDurationMs int64
}

// Add accounts for a single test case
func (a *CategoryAggregate) Add(tc TestCase) {
	a.Total++
	a.TotalDurationMs += tc.DurationMs
	if tc.Status.Passed() {
		a.Passed++
	} else {
		a.Failed++
	}
}

// SuccessRatePercent returns passed/total*100, or 0 for an empty category
func (a CategoryAggregate) SuccessRatePercent() float64 {
	return percent(a.Passed, a.Total)
}

// AvgDurationMs returns the mean duration, or 0 for an empty category
func (a CategoryAggregate) AvgDurationMs() float64 {
	if a.Total == 0 {
		return 0
	}
	return float64(a.TotalDurationMs) / float64(a.Total)
}

// FailureRecord describes a test case whose status was not "passed"
type FailureRecord struct {
	SourceLabel  string
	Category     Category
	Title        string
	Status       TestStatus
	DurationMs   int64
	ErrorMessage string
}

// NoErrorMessage is reported for failures that carried no error text
const NoErrorMessage = "No error message"

// Message returns the error message, or NoErrorMessage when absent
func (f FailureRecord) Message() string {
	if f.ErrorMessage == "" {
		return NoErrorMessage
	}
	return f.ErrorMessage
}

// RunSummary is the result of aggregating every report of a single run.
// It is built once and only read afterwards.
type RunSummary struct {
	RunID      string
	Timestamp  time.Time
	Categories map[Category]*CategoryAggregate
	Failures   []FailureRecord
}

// NewRunSummary returns a summary with a zeroed aggregate for every category
func NewRunSummary(runID string, timestamp time.Time) *RunSummary {
	s := &RunSummary{
		RunID:      runID,
		Timestamp:  timestamp,
		Categories: make(map[Category]*CategoryAggregate, len(Categories)),
	}
	for _, c := range Categories {
		s.Categories[c] = &CategoryAggregate{}
	}
	return s
}

// Category returns the aggregate for c. Unknown categories yield an empty aggregate.
func (s *RunSummary) Category(c Category) CategoryAggregate {
	if agg, ok := s.Categories[c]; ok && agg != nil {
		return *agg
	}
	return CategoryAggregate{}
}

// Total is the number of test cases across all categories
func (s *RunSummary) Total() int {
	total := 0
	for _, c := range Categories {
		total += s.Category(c).Total
	}
	return total
}

// Passed is the number of passed test cases across all categories
func (s *RunSummary) Passed() int {
	passed := 0
	for _, c := range Categories {
		passed += s.Category(c).Passed
	}
	return passed
}

// Failed is the number of non-passed test cases across all categories
func (s *RunSummary) Failed() int {
	return s.Total() - s.Passed()
}

// SuccessRatePercent is the overall pass rate, 0 when no cases were seen
func (s *RunSummary) SuccessRatePercent() float64 {
	return percent(s.Passed(), s.Total())
}

// TimestampMs is the run timestamp in Unix milliseconds
func (s *RunSummary) TimestampMs() int64 {
	return s.Timestamp.UnixMilli()
}

func (s *RunSummary) String() string {
	return fmt.Sprintf("run %s: %d/%d passed (%.1f%%)", s.RunID, s.Passed(), s.Total(), s.SuccessRatePercent())
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
