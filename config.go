package lgtm

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/infra/op-lgtm/flags"
	"github.com/ethereum-optimism/infra/op-lgtm/publish"
	"github.com/ethereum-optimism/infra/op-lgtm/reports"
	"github.com/ethereum-optimism/infra/op-lgtm/sources"
)

// Config holds the application configuration
type Config struct {
	Sources          []reports.Source
	RunFile          string            // Optional YAML run file the values were merged from
	PushgatewayURL   string
	PushgatewayJob   string
	LokiURL          string
	LokiLabels       map[string]string // Stream labels attached to every pushed log line
	GrafanaURL       string
	GrafanaToken     string
	AnnotationTags   []string
	AnnotationWindow time.Duration // Length of the annotation region
	PublishTimeout   time.Duration // Timeout of each delivery attempt
	ParallelPublish  bool
	SkipPublish      bool
	Log              log.Logger
}

// NewConfig creates a new Config from cli context. Values from the run file replace the
// built-in defaults; explicit --report flags win over the run file.
func NewConfig(ctx *cli.Context, log log.Logger) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}

	cfg := &Config{
		PushgatewayURL:   ctx.String(flags.PushgatewayURL.Name),
		PushgatewayJob:   ctx.String(flags.PushgatewayJob.Name),
		LokiURL:          ctx.String(flags.LokiURL.Name),
		LokiLabels:       publish.DefaultLokiLabels(),
		GrafanaURL:       ctx.String(flags.GrafanaURL.Name),
		GrafanaToken:     ctx.String(flags.GrafanaToken.Name),
		AnnotationTags:   publish.DefaultAnnotationTags(),
		AnnotationWindow: ctx.Duration(flags.AnnotationWindow.Name),
		PublishTimeout:   ctx.Duration(flags.PublishTimeout.Name),
		ParallelPublish:  ctx.Bool(flags.ParallelPublish.Name),
		SkipPublish:      ctx.Bool(flags.SkipPublish.Name),
		Log:              log,
	}

	reportFlags, err := ParseReportFlags(ctx.StringSlice(flags.Report.Name))
	if err != nil {
		return nil, err
	}
	cfg.Sources = reportFlags

	if path := ctx.String(flags.RunFile.Name); path != "" {
		rf, err := sources.Load(path)
		if err != nil {
			return nil, err
		}
		cfg.RunFile = path
		cfg.applyRunFile(rf, ctx.IsSet(flags.Report.Name))
	}

	if err := cfg.Check(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyRunFile(rf *sources.RunFile, reportsFromFlags bool) {
	if len(rf.Reports) > 0 && !reportsFromFlags {
		c.Sources = slices.Clone(rf.Reports)
	}
	if len(rf.Annotation.Tags) > 0 {
		c.AnnotationTags = slices.Clone(rf.Annotation.Tags)
	}
	if len(rf.Loki.Labels) > 0 {
		c.LokiLabels = maps.Clone(rf.Loki.Labels)
	}
}

// Check validates the merged configuration
func (c *Config) Check() error {
	if len(c.Sources) == 0 {
		return errors.New("at least one report location is required")
	}
	if c.PublishTimeout <= 0 {
		return fmt.Errorf("publish timeout must be positive, got %s", c.PublishTimeout)
	}
	if c.AnnotationWindow <= 0 {
		return fmt.Errorf("annotation window must be positive, got %s", c.AnnotationWindow)
	}
	if c.PushgatewayJob == "" {
		return errors.New("pushgateway job name is required")
	}
	return nil
}

// ParseReportFlags parses 'label=path' values. Labels must be non-empty and unique.
func ParseReportFlags(values []string) ([]reports.Source, error) {
	out := make([]reports.Source, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		src, err := ParseReportFlag(v)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[src.Label]; dup {
			return nil, fmt.Errorf("duplicate report label %q", src.Label)
		}
		seen[src.Label] = struct{}{}
		out = append(out, src)
	}
	return out, nil
}

// ParseReportFlag parses a single 'label=path' value
func ParseReportFlag(v string) (reports.Source, error) {
	label, path, ok := strings.Cut(v, "=")
	if !ok {
		return reports.Source{}, fmt.Errorf("invalid report %q: expected label=path", v)
	}
	label = strings.TrimSpace(label)
	path = strings.TrimSpace(path)
	if label == "" {
		return reports.Source{}, fmt.Errorf("invalid report %q: empty label", v)
	}
	if path == "" {
		return reports.Source{}, fmt.Errorf("invalid report %q: empty path", v)
	}
	return reports.Source{Label: label, Path: path}, nil
}
