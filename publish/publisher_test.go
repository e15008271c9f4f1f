package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

type textPayload string

func (p textPayload) Render() string { return string(p) }

type fakePublisher struct {
	name       string
	buildErr   error
	attemptErr error
	attempts   int
}

func (f *fakePublisher) Name() string { return f.name }

func (f *fakePublisher) Build(summary *types.RunSummary) (Payload, error) {
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return textPayload(fmt.Sprintf("line one %s\nline two\n", summary.RunID)), nil
}

func (f *fakePublisher) Attempt(_ context.Context, _ Payload) error {
	f.attempts++
	return f.attemptErr
}

func testSummary() *types.RunSummary {
	s := types.NewRunSummary("run-42", time.UnixMilli(1700000000123).UTC())
	s.Categories[types.CategoryCore].Add(types.TestCase{Title: "ok", Status: types.TestStatusPassed, DurationMs: 100})
	s.Categories[types.CategoryCore].Add(types.TestCase{Title: "bad", Status: types.TestStatusFailed, DurationMs: 300})
	s.Failures = append(s.Failures, types.FailureRecord{
		SourceLabel: "core",
		Category:    types.CategoryCore,
		Title:       "bad",
		Status:      types.TestStatusFailed,
		DurationMs:  300,
	})
	return s
}

func discardLogger() log.Logger {
	return log.NewLogger(log.DiscardHandler())
}

func TestPublish_Delivered(t *testing.T) {
	var out bytes.Buffer
	p := &fakePublisher{name: "Fake"}

	res := Publish(context.Background(), p, testSummary(), &out, discardLogger())

	assert.True(t, res.Delivered)
	assert.NoError(t, res.Err)
	assert.Equal(t, "Fake", res.Backend)
	assert.Equal(t, 1, p.attempts)
	assert.Equal(t, "✓ Fake: delivered\n", out.String())
}

func TestPublish_FailurePrintsPayload(t *testing.T) {
	var out bytes.Buffer
	p := &fakePublisher{
		name:       "Fake",
		attemptErr: &DeliveryError{Backend: "Fake", StatusCode: 503, Body: "down"},
	}

	res := Publish(context.Background(), p, testSummary(), &out, discardLogger())

	assert.False(t, res.Delivered)
	assert.True(t, IsDeliveryError(res.Err))
	assert.Equal(t, 1, p.attempts, "exactly one attempt, no retry")
	require.NotNil(t, res.Payload)

	expected := "✗ Fake: delivery failed: Fake: unexpected status code 503: down\n" +
		"Fake payload (manual collection needed):\n" +
		"  line one run-42\n" +
		"  line two\n"
	assert.Equal(t, expected, out.String())
}

func TestPublish_BuildError(t *testing.T) {
	var out bytes.Buffer
	p := &fakePublisher{name: "Fake", buildErr: errors.New("boom")}

	res := Publish(context.Background(), p, testSummary(), &out, discardLogger())

	assert.False(t, res.Delivered)
	assert.ErrorContains(t, res.Err, "boom")
	assert.Zero(t, p.attempts)
	assert.Contains(t, out.String(), "✗ Fake:")
}

func TestDeliveryError(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("wrapped: %w", &DeliveryError{Backend: "Loki", Err: cause})

	assert.True(t, IsDeliveryError(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "Loki: connection refused")

	assert.False(t, IsDeliveryError(nil))
	assert.False(t, IsDeliveryError(cause))

	withStatus := &DeliveryError{Backend: "Grafana", StatusCode: 401, Body: "  \n"}
	assert.Equal(t, "Grafana: unexpected status code 401", withStatus.Error())
}
