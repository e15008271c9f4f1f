package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	lgtm "github.com/ethereum-optimism/infra/op-lgtm"
	"github.com/ethereum-optimism/infra/op-lgtm/flags"
	"github.com/ethereum-optimism/infra/op-lgtm/mockauth"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
)

// mockAuth serves the mock authentication API until interrupted
func mockAuth(ctx *cli.Context, _ context.CancelCauseFunc) (cliapp.Lifecycle, error) {
	logger := setupLogger(ctx)

	svc, err := mockauth.New(mockauth.Config{
		Addr:   ctx.String(flags.MockAuthAddr.Name),
		Secret: ctx.String(flags.MockAuthJWTSecret.Name),
		Users:  mockauth.DefaultUsers(),
		Log:    logger,
	})
	if err != nil {
		return nil, lgtm.NewRuntimeError(fmt.Errorf("failed to create mock auth service: %w", err))
	}
	return svc, nil
}
