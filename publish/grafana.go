package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

const (
	DefaultGrafanaURL       = "http://localhost:3003"
	DefaultGrafanaToken     = "admin"
	DefaultAnnotationWindow = time.Minute
)

// DefaultAnnotationTags returns the tags used when none are configured
func DefaultAnnotationTags() []string {
	return []string{"playwright", "frontend-testing", "automation"}
}

var _ Publisher = (*Grafana)(nil)
var _ Prober = (*Grafana)(nil)

// GrafanaConfig configures the dashboard-annotation publisher
type GrafanaConfig struct {
	URL    string
	Token  string
	Tags   []string
	Window time.Duration
	Client *http.Client
}

// Grafana creates one region annotation per run
type Grafana struct {
	annotationsURL string
	healthURL      string
	token          string
	tags           []string
	window         time.Duration
	client         *http.Client
}

// Annotation is the body of a POST /api/annotations request
type Annotation struct {
	Time    int64    `json:"time"`
	TimeEnd int64    `json:"timeEnd"`
	Tags    []string `json:"tags"`
	Text    string   `json:"text"`
}

func (a *Annotation) Render() string {
	out, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Sprintf("<unrenderable annotation: %v>", err)
	}
	return string(out)
}

// NewGrafana validates cfg and creates the publisher
func NewGrafana(cfg GrafanaConfig) (*Grafana, error) {
	annotationsURL, err := joinURL(cfg.URL, "api", "annotations")
	if err != nil {
		return nil, fmt.Errorf("grafana: %w", err)
	}
	healthURL, err := joinURL(cfg.URL, "api", "health")
	if err != nil {
		return nil, fmt.Errorf("grafana: %w", err)
	}
	if cfg.Window < 0 {
		return nil, fmt.Errorf("grafana: annotation window must not be negative, got %s", cfg.Window)
	}
	window := cfg.Window
	if window == 0 {
		window = DefaultAnnotationWindow
	}
	tags := cfg.Tags
	if len(tags) == 0 {
		tags = DefaultAnnotationTags()
	}
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &Grafana{
		annotationsURL: annotationsURL,
		healthURL:      healthURL,
		token:          cfg.Token,
		tags:           slices.Clone(tags),
		window:         window,
		client:         client,
	}, nil
}

func (g *Grafana) Name() string {
	return "Grafana"
}

// Build renders an annotation spanning the configured window from the run timestamp
func (g *Grafana) Build(summary *types.RunSummary) (Payload, error) {
	start := summary.TimestampMs()
	return &Annotation{
		Time:    start,
		TimeEnd: start + g.window.Milliseconds(),
		Tags:    slices.Clone(g.tags),
		Text:    AnnotationText(summary),
	}, nil
}

// AnnotationText is the human-readable body of the run annotation
func AnnotationText(summary *types.RunSummary) string {
	var b strings.Builder
	b.WriteString("Playwright Test Run Completed\n")
	fmt.Fprintf(&b, "Total Tests: %d\n", summary.Total())
	fmt.Fprintf(&b, "Passed: %d\n", summary.Passed())
	fmt.Fprintf(&b, "Success Rate: %.1f%%\n", summary.SuccessRatePercent())
	fmt.Fprintf(&b, "Run ID: %s\n", summary.RunID)
	fmt.Fprintf(&b, "Timestamp: %s", summary.Timestamp.Format(time.DateTime))
	return b.String()
}

// Attempt POSTs the annotation with the bearer token. 200 and 201 count as delivered.
func (g *Grafana) Attempt(ctx context.Context, payload Payload) error {
	a, ok := payload.(*Annotation)
	if !ok {
		return fmt.Errorf("grafana: unexpected payload type %T", payload)
	}
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("grafana: failed to encode annotation: %w", err)
	}

	header := http.Header{}
	if g.token != "" {
		header.Set("Authorization", "Bearer "+g.token)
	}
	status, respBody, err := post(ctx, g.client, g.annotationsURL, "application/json", body, header)
	if err != nil {
		return &DeliveryError{Backend: g.Name(), Err: err}
	}
	if !slices.Contains([]int{http.StatusOK, http.StatusCreated}, status) {
		return &DeliveryError{Backend: g.Name(), StatusCode: status, Body: respBody}
	}
	return nil
}

func (g *Grafana) Probe(ctx context.Context) error {
	return probe(ctx, g.client, g.Name(), g.healthURL)
}
