package lgtm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/ethereum-optimism/optimism/op-service/cliapp"

	"github.com/ethereum-optimism/infra/op-lgtm/exitcodes"
	"github.com/ethereum-optimism/infra/op-lgtm/publish"
	"github.com/ethereum-optimism/infra/op-lgtm/reports"
	"github.com/ethereum-optimism/infra/op-lgtm/runner"
)

// sender implements the cliapp.Lifecycle interface.
var _ cliapp.Lifecycle = &sender{}

// Runner executes a single run
type Runner interface {
	Run(ctx context.Context) (*runner.Result, error)
}

// sender runs the pipeline once and then asks the application to shut down.
type sender struct {
	config  *Config
	version string
	runner  Runner
	result  *runner.Result

	running atomic.Bool

	shutdownCallback func(error) // Callback to signal application shutdown
}

// New creates the lifecycle for one run, writing console output to out
func New(config *Config, version string, out io.Writer, shutdownCallback func(error)) (*sender, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}
	if out == nil {
		out = os.Stdout
	}

	config.Log.Debug("Creating sender with config",
		"sources", len(config.Sources),
		"runFile", config.RunFile,
		"parallelPublish", config.ParallelPublish,
		"skipPublish", config.SkipPublish)

	var pubs []publish.Publisher
	if !config.SkipPublish {
		backends, err := NewBackends(config)
		if err != nil {
			return nil, fmt.Errorf("failed to create publishers: %w", err)
		}
		for _, b := range backends {
			pubs = append(pubs, b)
		}
	}

	r, err := runner.New(runner.Config{
		Loader:          reports.NewLoader(config.Log, config.Sources),
		Publishers:      pubs,
		Out:             out,
		Log:             config.Log,
		ParallelPublish: config.ParallelPublish,
		SkipPublish:     config.SkipPublish,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	return newSender(config, version, r, shutdownCallback), nil
}

func newSender(config *Config, version string, r Runner, shutdownCallback func(error)) *sender {
	return &sender{
		config:           config,
		version:          version,
		runner:           r,
		shutdownCallback: shutdownCallback,
	}
}

// Start performs the run. It returns a NoDataError when no report was found and a
// RuntimeError when reports could not be loaded. Start implements the cliapp.Lifecycle interface.
func (s *sender) Start(ctx context.Context) error {
	defer func() {
		if r := recover(); r != nil {
			s.config.Log.Error("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	s.running.Store(true)
	s.config.Log.Info("Starting op-lgtm", "version", s.version)

	result, err := s.runner.Run(ctx)
	if errors.Is(err, runner.ErrNoReports) {
		locations := make([]string, 0, len(s.config.Sources))
		for _, src := range s.config.Sources {
			locations = append(locations, src.String())
		}
		s.config.Log.Warn("No report data found", "sources", locations)
		return NewNoDataError(locations)
	}
	if err != nil {
		s.config.Log.Error("Run failed", "error", err)
		return NewRuntimeError(err)
	}
	s.result = result

	s.config.Log.Info("Run completed, exiting", "run_id", result.RunID)
	go func() {
		s.shutdownCallback(nil)
	}()
	return nil
}

// Stop implements the cliapp.Lifecycle interface.
func (s *sender) Stop(ctx context.Context) error {
	if !s.running.Load() {
		s.config.Log.Debug("Sender already stopped, nothing to do")
		return nil
	}
	s.running.Store(false)
	s.config.Log.Info("op-lgtm stopped")
	return nil
}

// Stopped implements the cliapp.Lifecycle interface.
func (s *sender) Stopped() bool {
	return !s.running.Load()
}

// Result returns the outcome of the completed run, nil before Start succeeded
func (s *sender) Result() *runner.Result {
	return s.result
}

// Backend is an observability backend that can be published to and probed
type Backend interface {
	publish.Publisher
	publish.Prober
}

// NewBackends creates the Pushgateway, Loki and Grafana backends, in publish order
func NewBackends(cfg *Config) ([]Backend, error) {
	client := publish.NewHTTPClient(cfg.PublishTimeout)

	pg, err := publish.NewPushgateway(publish.PushgatewayConfig{
		URL:    cfg.PushgatewayURL,
		Job:    cfg.PushgatewayJob,
		Client: client,
	})
	if err != nil {
		return nil, err
	}
	lk, err := publish.NewLoki(publish.LokiConfig{
		URL:    cfg.LokiURL,
		Labels: cfg.LokiLabels,
		Client: client,
	})
	if err != nil {
		return nil, err
	}
	gf, err := publish.NewGrafana(publish.GrafanaConfig{
		URL:    cfg.GrafanaURL,
		Token:  cfg.GrafanaToken,
		Tags:   cfg.AnnotationTags,
		Window: cfg.AnnotationWindow,
		Client: client,
	})
	if err != nil {
		return nil, err
	}
	return []Backend{pg, lk, gf}, nil
}
