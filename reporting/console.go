// Package reporting renders the operator-facing console output of a run.
package reporting

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/op-lgtm/publish"
	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

const (
	passMark = "✓"
	failMark = "✗"
)

// PrintSummary writes the run totals and the per-category breakdown to w.
// Categories without test cases are left out of the breakdown.
func PrintSummary(w io.Writer, summary *types.RunSummary) {
	fmt.Fprintln(w, "Test Results Summary:")
	fmt.Fprintf(w, "  Run ID: %s\n", summary.RunID)
	fmt.Fprintf(w, "  Total Tests: %d\n", summary.Total())
	fmt.Fprintf(w, "  Passed: %d\n", summary.Passed())
	fmt.Fprintf(w, "  Failed: %d\n", summary.Failed())
	fmt.Fprintf(w, "  Overall Success Rate: %.1f%%\n", summary.SuccessRatePercent())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Category Breakdown:")
	for _, c := range types.Categories {
		agg := summary.Category(c)
		if agg.Total == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s: %d/%d (%.1f%%)\n", c, agg.Passed, agg.Total, agg.SuccessRatePercent())
	}
	fmt.Fprintln(w)
}

// PrintCategoryTable renders every category, including empty ones, as a table
func PrintCategoryTable(w io.Writer, summary *types.RunSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(fmt.Sprintf("Playwright Results (%s)", summary.RunID))

	t.AppendHeader(table.Row{"Category", "Tests", "Passed", "Failed", "Success Rate", "Avg Duration"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Tests", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Success Rate", Align: text.AlignRight},
		{Name: "Avg Duration", Align: text.AlignRight},
	})

	for _, c := range types.Categories {
		agg := summary.Category(c)
		t.AppendRow(table.Row{
			c.String(),
			agg.Total,
			agg.Passed,
			agg.Failed,
			formatPercent(agg.SuccessRatePercent()),
			formatMillis(agg.AvgDurationMs()),
		})
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		summary.Total(),
		summary.Passed(),
		summary.Failed(),
		formatPercent(summary.SuccessRatePercent()),
		"",
	})
	t.Render()
}

// PrintFailures lists every failed test case with its error message
func PrintFailures(w io.Writer, summary *types.RunSummary) {
	if len(summary.Failures) == 0 {
		return
	}
	fmt.Fprintf(w, "Failed Tests (%d):\n", len(summary.Failures))
	for _, f := range summary.Failures {
		fmt.Fprintf(w, "  %s [%s/%s] %s (%s): %s\n", failMark, f.SourceLabel, f.Category, f.Title, f.Status, f.Message())
	}
	fmt.Fprintln(w)
}

// PrintBackendResults writes one success or failure line per backend
func PrintBackendResults(w io.Writer, results []publish.Result) {
	fmt.Fprintln(w, "LGTM Integration Summary:")
	for _, r := range results {
		fmt.Fprintf(w, "  %s: %s\n", r.Backend, backendStatus(r))
	}
}

// PrintProbeResults writes one reachability line per backend
func PrintProbeResults(w io.Writer, names []string, errs []error) {
	for i, name := range names {
		if errs[i] == nil {
			fmt.Fprintf(w, "%s %s: reachable\n", passMark, name)
			continue
		}
		fmt.Fprintf(w, "%s %s: %v\n", failMark, name, errs[i])
	}
}

func backendStatus(r publish.Result) string {
	if r.Delivered {
		return passMark + " Success"
	}
	if r.Payload == nil {
		return failMark + " Failed (payload not built)"
	}
	return failMark + " Failed (payload printed)"
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

func formatMillis(ms float64) string {
	return fmt.Sprintf("%.0fms", ms)
}
