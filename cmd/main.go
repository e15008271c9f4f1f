package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	lgtm "github.com/ethereum-optimism/infra/op-lgtm"
	"github.com/ethereum-optimism/infra/op-lgtm/exitcodes"
	"github.com/ethereum-optimism/infra/op-lgtm/flags"
	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	"github.com/ethereum-optimism/optimism/op-service/ctxinterrupt"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "op-lgtm"
	app.Usage = "Playwright results sender for the LGTM observability stack"
	app.Description = "op-lgtm aggregates Playwright JSON reports and pushes them to Prometheus, Loki and Grafana"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = cliapp.LifecycleCmd(run)
	app.Commands = []*cli.Command{
		{
			Name:   "probe",
			Usage:  "Check that every backend is reachable",
			Action: probe,
		},
		{
			Name:   "mock-auth",
			Usage:  "Run the mock authentication service",
			Flags:  cliapp.ProtectFlags(flags.MockAuthFlags),
			Action: cliapp.LifecycleCmd(mockAuth),
		},
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if exitErr := exitError(err); exitErr != nil {
			cli.HandleExitCoder(exitErr)
		}
	}

	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	ctx = ctxinterrupt.WithSignalWaiterMain(ctx)
	err = app.RunContext(ctx, os.Args)
	if err != nil {
		log.Crit("Application failed", "message", err)
	}
}

// exitError maps a command error onto the process exit code
func exitError(err error) cli.ExitCoder {
	if err == nil {
		return nil
	}
	var exitErr cli.ExitCoder
	switch {
	case errors.As(err, &exitErr):
		return exitErr
	case lgtm.IsNoDataError(err):
		return cli.Exit(err.Error(), exitcodes.NoData)
	case lgtm.IsRuntimeError(err):
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	default:
		// Unclassified errors come from flag parsing or setup
		return cli.Exit(err.Error(), exitcodes.RuntimeErr)
	}
}

func setupLogger(ctx *cli.Context) log.Logger {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())
	oplog.SetupDefaults()
	return logger
}

func run(ctx *cli.Context, closeApp context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logger := setupLogger(ctx)

	cfg, err := lgtm.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, lgtm.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	cfg.Log.Debug("Config", "sources", cfg.Sources, "pushgateway", cfg.PushgatewayURL,
		"loki", cfg.LokiURL, "grafana", cfg.GrafanaURL)

	sender, err := lgtm.New(cfg, Version, ctx.App.Writer, closeApp)
	if err != nil {
		return nil, lgtm.NewRuntimeError(fmt.Errorf("failed to create sender: %w", err))
	}

	return sender, nil
}
