package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	lgtm "github.com/ethereum-optimism/infra/op-lgtm"
	"github.com/ethereum-optimism/infra/op-lgtm/exitcodes"
)

func TestExitError(t *testing.T) {
	testCases := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "no report data exits with code 1",
			err:      fmt.Errorf("failed to start: %w", lgtm.NewNoDataError([]string{"core=a.json"})),
			expected: exitcodes.NoData,
		},
		{
			name:     "no report data joined by the lifecycle exits with code 1",
			err:      errors.Join(errors.New("stopping"), lgtm.NewNoDataError(nil)),
			expected: exitcodes.NoData,
		},
		{
			name:     "runtime error exits with code 2",
			err:      lgtm.NewRuntimeError(errors.New("invalid report JSON")),
			expected: exitcodes.RuntimeErr,
		},
		{
			name:     "unclassified error exits with code 2",
			err:      errors.New("flag provided but not defined"),
			expected: exitcodes.RuntimeErr,
		},
		{
			name:     "explicit exit code is kept",
			err:      cli.Exit("custom", 7),
			expected: 7,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			exitErr := exitError(tc.err)
			require.NotNil(t, exitErr)
			assert.Equal(t, tc.expected, exitErr.ExitCode())
			assert.Contains(t, exitErr.Error(), tc.err.Error())
		})
	}
}

func TestExitError_Nil(t *testing.T) {
	assert.Nil(t, exitError(nil))
}
