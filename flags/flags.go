package flags

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	opservice "github.com/ethereum-optimism/optimism/op-service"
	opflags "github.com/ethereum-optimism/optimism/op-service/flags"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"
)

const EnvVarPrefix = "OP_LGTM"

var (
	Report = &cli.StringSliceFlag{
		Name:    "report",
		Value:   cli.NewStringSlice("core=test-results-simple/results.json", "visual=test-results-visual/results.json"),
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "REPORT"),
		Usage:   "Report location as 'label=path'. Repeat for multiple reports; missing files are skipped",
	}
	RunFile = &cli.StringFlag{
		Name:    "config",
		Value:   "",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "CONFIG"),
		Usage:   "Path to an optional YAML run file (eg. 'lgtm.yaml')",
	}
	PushgatewayURL = &cli.StringFlag{
		Name:    "pushgateway-url",
		Value:   "http://localhost:9091",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUSHGATEWAY_URL"),
		Usage:   "Base URL of the Prometheus Pushgateway",
	}
	PushgatewayJob = &cli.StringFlag{
		Name:    "pushgateway-job",
		Value:   "playwright_tests",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUSHGATEWAY_JOB"),
		Usage:   "Job name the metrics are grouped under",
	}
	LokiURL = &cli.StringFlag{
		Name:    "loki-url",
		Value:   "http://localhost:3100",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "LOKI_URL"),
		Usage:   "Base URL of Loki",
	}
	GrafanaURL = &cli.StringFlag{
		Name:    "grafana-url",
		Value:   "http://localhost:3003",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "GRAFANA_URL"),
		Usage:   "Base URL of Grafana",
	}
	GrafanaToken = &cli.StringFlag{
		Name:    "grafana-token",
		Value:   "admin",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "GRAFANA_TOKEN"),
		Usage:   "Bearer token for the Grafana annotations API. Empty disables the Authorization header",
	}
	PublishTimeout = &cli.DurationFlag{
		Name:    "publish-timeout",
		Value:   5 * time.Second,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PUBLISH_TIMEOUT"),
		Usage:   "Timeout of each delivery attempt",
	}
	AnnotationWindow = &cli.DurationFlag{
		Name:    "annotation-window",
		Value:   time.Minute,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ANNOTATION_WINDOW"),
		Usage:   "Length of the Grafana annotation region",
	}
	ParallelPublish = &cli.BoolFlag{
		Name:    "parallel-publish",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "PARALLEL_PUBLISH"),
		Usage:   "Deliver to all backends concurrently",
	}
	SkipPublish = &cli.BoolFlag{
		Name:    "skip-publish",
		Value:   false,
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "SKIP_PUBLISH"),
		Usage:   "Print the summary without contacting any backend",
	}
)

// Flags of the mock-auth subcommand
var (
	MockAuthAddr = &cli.StringFlag{
		Name:    "addr",
		Value:   "0.0.0.0:8009",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "ADDR"),
		Usage:   "Listen address of the mock auth service",
	}
	MockAuthJWTSecret = &cli.StringFlag{
		Name:    "jwt-secret",
		Value:   "mock-secret-for-testing-only",
		EnvVars: opservice.PrefixEnvVar(EnvVarPrefix, "JWT_SECRET"),
		Usage:   "HMAC secret used to sign issued tokens",
	}
)

var requiredFlags = []cli.Flag{}

var optionalFlags = []cli.Flag{
	Report,
	RunFile,
	PushgatewayURL,
	PushgatewayJob,
	LokiURL,
	GrafanaURL,
	GrafanaToken,
	PublishTimeout,
	AnnotationWindow,
	ParallelPublish,
	SkipPublish,
}

var Flags []cli.Flag

var MockAuthFlags = []cli.Flag{
	MockAuthAddr,
	MockAuthJWTSecret,
}

func init() {
	optionalFlags = append(optionalFlags, oplog.CLIFlags(EnvVarPrefix)...)

	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return opflags.CheckRequiredXor(ctx)
}
