package aggregate

import (
	"sort"
	"time"

	"github.com/ethereum-optimism/infra/op-lgtm/reports"
	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

// Aggregator turns loaded reports into a RunSummary
type Aggregator struct {
	classifier *Classifier
}

// NewAggregator creates an aggregator. A nil classifier uses the default rules.
func NewAggregator(classifier *Classifier) *Aggregator {
	if classifier == nil {
		classifier = NewDefaultClassifier()
	}
	return &Aggregator{classifier: classifier}
}

// Aggregate classifies every test case of every document and accumulates the
// per-category counters. Documents are visited in label order so failure
// records come out in a stable order.
func (a *Aggregator) Aggregate(runID string, timestamp time.Time, docs map[string]*types.ReportDocument) *types.RunSummary {
	summary := types.NewRunSummary(runID, timestamp)

	labels := make([]string, 0, len(docs))
	for label := range docs {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		doc := docs[label]
		if doc == nil {
			continue
		}
		for tc := range reports.Cases(doc) {
			category := a.classifier.Classify(label, tc.Title)
			summary.Categories[category].Add(tc)
			if !tc.Status.Passed() {
				summary.Failures = append(summary.Failures, types.FailureRecord{
					SourceLabel:  label,
					Category:     category,
					Title:        tc.Title,
					Status:       tc.Status,
					DurationMs:   tc.DurationMs,
					ErrorMessage: tc.ErrorMessage,
				})
			}
		}
	}
	return summary
}
