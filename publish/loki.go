package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

const (
	DefaultLokiURL = "http://localhost:3100"

	// LogService is the service field carried by every log line
	LogService = "playwright_tests"
)

// DefaultLokiLabels returns the stream labels used when none are configured
func DefaultLokiLabels() map[string]string {
	return map[string]string{
		"job":     "playwright_tests",
		"service": "frontend_testing",
	}
}

var _ Publisher = (*Loki)(nil)
var _ Prober = (*Loki)(nil)

// LokiConfig configures the log-store publisher
type LokiConfig struct {
	URL    string
	Labels map[string]string
	Client *http.Client
}

// Loki pushes one summary line per category and one line per failed test case
type Loki struct {
	pushURL  string
	readyURL string
	labels   map[string]string
	client   *http.Client
}

// LokiPayload is the body of a push API request
type LokiPayload struct {
	Streams []LokiStream `json:"streams"`
}

// LokiStream is a labelled, ordered batch of [timestamp-ns, line] pairs
type LokiStream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Entries returns the number of log lines across all streams
func (p *LokiPayload) Entries() int {
	n := 0
	for _, s := range p.Streams {
		n += len(s.Values)
	}
	return n
}

func (p *LokiPayload) Render() string {
	out, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unrenderable loki payload: %v>", err)
	}
	return string(out)
}

type categoryLine struct {
	Level         string  `json:"level"`
	Service       string  `json:"service"`
	RunID         string  `json:"run_id"`
	Category      string  `json:"category"`
	TotalTests    int     `json:"total_tests"`
	Passed        int     `json:"passed"`
	Failed        int     `json:"failed"`
	SuccessRate   float64 `json:"success_rate"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	Timestamp     string  `json:"timestamp"`
}

type failureLine struct {
	Level     string `json:"level"`
	Service   string `json:"service"`
	RunID     string `json:"run_id"`
	Source    string `json:"source"`
	Category  string `json:"category"`
	TestName  string `json:"test_name"`
	Status    string `json:"status"`
	Duration  int64  `json:"duration"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// NewLoki validates cfg and creates the publisher
func NewLoki(cfg LokiConfig) (*Loki, error) {
	pushURL, err := joinURL(cfg.URL, "loki", "api", "v1", "push")
	if err != nil {
		return nil, fmt.Errorf("loki: %w", err)
	}
	readyURL, err := joinURL(cfg.URL, "ready")
	if err != nil {
		return nil, fmt.Errorf("loki: %w", err)
	}
	labels := cfg.Labels
	if len(labels) == 0 {
		labels = DefaultLokiLabels()
	}
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &Loki{
		pushURL:  pushURL,
		readyURL: readyURL,
		labels:   maps.Clone(labels),
		client:   client,
	}, nil
}

func (l *Loki) Name() string {
	return "Loki"
}

// Build renders the category summaries followed by the failure records. Entries are
// stamped with the run time plus their index in nanoseconds to keep their order.
func (l *Loki) Build(summary *types.RunSummary) (Payload, error) {
	base := summary.Timestamp.UnixNano()
	iso := summary.Timestamp.Format(time.RFC3339Nano)
	values := make([][2]string, 0, len(types.Categories)+len(summary.Failures))

	appendLine := func(v any) error {
		line, err := json.Marshal(v)
		if err != nil {
			return err
		}
		ts := strconv.FormatInt(base+int64(len(values)), 10)
		values = append(values, [2]string{ts, string(line)})
		return nil
	}

	for _, c := range types.Categories {
		agg := summary.Category(c)
		err := appendLine(categoryLine{
			Level:         "info",
			Service:       LogService,
			RunID:         summary.RunID,
			Category:      c.String(),
			TotalTests:    agg.Total,
			Passed:        agg.Passed,
			Failed:        agg.Failed,
			SuccessRate:   agg.SuccessRatePercent(),
			AvgDurationMs: agg.AvgDurationMs(),
			Timestamp:     iso,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s summary: %w", c, err)
		}
	}

	for _, f := range summary.Failures {
		err := appendLine(failureLine{
			Level:     "error",
			Service:   LogService,
			RunID:     summary.RunID,
			Source:    f.SourceLabel,
			Category:  f.Category.String(),
			TestName:  f.Title,
			Status:    f.Status.String(),
			Duration:  f.DurationMs,
			Error:     f.Message(),
			Timestamp: iso,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to encode failure %q: %w", f.Title, err)
		}
	}

	return &LokiPayload{
		Streams: []LokiStream{{
			Stream: maps.Clone(l.labels),
			Values: values,
		}},
	}, nil
}

// Attempt POSTs the batch to the push API. Loki acknowledges with 204 No Content.
func (l *Loki) Attempt(ctx context.Context, payload Payload) error {
	lp, ok := payload.(*LokiPayload)
	if !ok {
		return fmt.Errorf("loki: unexpected payload type %T", payload)
	}
	body, err := json.Marshal(lp)
	if err != nil {
		return fmt.Errorf("loki: failed to encode payload: %w", err)
	}

	status, respBody, err := post(ctx, l.client, l.pushURL, "application/json", body, nil)
	if err != nil {
		return &DeliveryError{Backend: l.Name(), Err: err}
	}
	if status != http.StatusNoContent {
		return &DeliveryError{Backend: l.Name(), StatusCode: status, Body: respBody}
	}
	return nil
}

func (l *Loki) Probe(ctx context.Context) error {
	return probe(ctx, l.client, l.Name(), l.readyURL)
}
