package main

import (
	"fmt"

	"github.com/urfave/cli/v2"

	lgtm "github.com/ethereum-optimism/infra/op-lgtm"
)

// probe prints the reachability of every backend. Unreachable backends do not fail the command.
func probe(ctx *cli.Context) error {
	logger := setupLogger(ctx)

	cfg, err := lgtm.NewConfig(ctx, logger)
	if err != nil {
		return lgtm.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}

	if _, err := lgtm.Probe(ctx.Context, cfg, ctx.App.Writer); err != nil {
		return lgtm.NewRuntimeError(fmt.Errorf("failed to create backends: %w", err))
	}
	return nil
}
