package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/ethereum-optimism/infra/op-lgtm/metrics"
	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

const (
	DefaultPushgatewayURL = "http://localhost:9091"
	DefaultPushgatewayJob = "playwright_tests"
)

var _ Publisher = (*Pushgateway)(nil)
var _ Prober = (*Pushgateway)(nil)

// PushgatewayConfig configures the metrics-store publisher
type PushgatewayConfig struct {
	URL    string
	Job    string
	Client *http.Client
}

// Pushgateway pushes run gauges to a Prometheus Pushgateway in the text exposition format
type Pushgateway struct {
	pushURL   string
	healthURL string
	client    *http.Client
}

// MetricsPayload is the exposition-format rendering of a run
type MetricsPayload struct {
	Families []*dto.MetricFamily
	Text     string
}

func (p *MetricsPayload) Render() string {
	return p.Text
}

// NewPushgateway validates cfg and creates the publisher
func NewPushgateway(cfg PushgatewayConfig) (*Pushgateway, error) {
	if cfg.Job == "" {
		return nil, errors.New("pushgateway job name is required")
	}
	pushURL, err := joinURL(cfg.URL, "metrics", "job", cfg.Job)
	if err != nil {
		return nil, fmt.Errorf("pushgateway: %w", err)
	}
	healthURL, err := joinURL(cfg.URL, "-", "healthy")
	if err != nil {
		return nil, fmt.Errorf("pushgateway: %w", err)
	}
	client := cfg.Client
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	return &Pushgateway{
		pushURL:   pushURL,
		healthURL: healthURL,
		client:    client,
	}, nil
}

func (p *Pushgateway) Name() string {
	return "Prometheus"
}

// Build records the summary on a fresh registry and renders it as text
func (p *Pushgateway) Build(summary *types.RunSummary) (Payload, error) {
	m := metrics.NewRunMetrics(nil)
	m.RecordSummary(summary)

	mfs, err := m.Gather()
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, mf := range mfs {
		if _, err := expfmt.MetricFamilyToText(&buf, mf); err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return &MetricsPayload{Families: mfs, Text: buf.String()}, nil
}

// Attempt POSTs the payload to the job's grouping key. Only a 200 counts as delivered.
func (p *Pushgateway) Attempt(ctx context.Context, payload Payload) error {
	mp, ok := payload.(*MetricsPayload)
	if !ok {
		return fmt.Errorf("pushgateway: unexpected payload type %T", payload)
	}

	status, body, err := post(ctx, p.client, p.pushURL, string(expfmt.NewFormat(expfmt.TypeTextPlain)), []byte(mp.Text), nil)
	if err != nil {
		return &DeliveryError{Backend: p.Name(), Err: err}
	}
	if status != http.StatusOK {
		return &DeliveryError{Backend: p.Name(), StatusCode: status, Body: body}
	}
	return nil
}

func (p *Pushgateway) Probe(ctx context.Context) error {
	return probe(ctx, p.client, p.Name(), p.healthURL)
}
