// Package publish renders a RunSummary for each observability backend and makes a
// single best-effort delivery attempt. A failed delivery never aborts a run: the
// rendered payload is written to the console instead so an operator can submit it
// by hand.
package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

// Payload is a backend-specific rendering of a run
type Payload interface {
	// Render returns the payload exactly as it is delivered
	Render() string
}

// Publisher builds a payload for one backend and attempts to deliver it
type Publisher interface {
	Name() string
	Build(summary *types.RunSummary) (Payload, error)
	Attempt(ctx context.Context, payload Payload) error
}

// Prober checks whether a backend is reachable
type Prober interface {
	Name() string
	Probe(ctx context.Context) error
}

// DeliveryError describes a failed delivery attempt
type DeliveryError struct {
	Backend    string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *DeliveryError) Error() string {
	if e.StatusCode != 0 {
		msg := fmt.Sprintf("%s: unexpected status code %d", e.Backend, e.StatusCode)
		if body := strings.TrimSpace(e.Body); body != "" {
			msg += ": " + body
		}
		return msg
	}
	return fmt.Sprintf("%s: %v", e.Backend, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// IsDeliveryError checks if the error is or wraps a DeliveryError
func IsDeliveryError(err error) bool {
	var deliveryErr *DeliveryError
	return err != nil && errors.As(err, &deliveryErr)
}

// Result is the outcome of publishing to one backend
type Result struct {
	Backend   string
	Delivered bool
	Err       error
	Payload   Payload
	Duration  time.Duration
}

// Publish builds the payload for p and makes one delivery attempt. On failure the
// rendered payload is written to out. It never returns an error: the outcome is
// reported through Result.
func Publish(ctx context.Context, p Publisher, summary *types.RunSummary, out io.Writer, logger log.Logger) Result {
	start := time.Now()
	res := Result{Backend: p.Name()}

	payload, err := p.Build(summary)
	if err != nil {
		res.Err = fmt.Errorf("failed to build %s payload: %w", p.Name(), err)
		res.Duration = time.Since(start)
		logger.Error("Failed to build payload", "backend", p.Name(), "err", err)
		fmt.Fprintf(out, "✗ %s: %v\n", p.Name(), res.Err)
		return res
	}
	res.Payload = payload

	if err := p.Attempt(ctx, payload); err != nil {
		res.Err = err
		res.Duration = time.Since(start)
		logger.Warn("Delivery failed", "backend", p.Name(), "err", err, "duration", res.Duration)
		WriteFallback(out, p.Name(), err, payload)
		return res
	}

	res.Delivered = true
	res.Duration = time.Since(start)
	logger.Info("Delivered payload", "backend", p.Name(), "duration", res.Duration)
	fmt.Fprintf(out, "✓ %s: delivered\n", p.Name())
	return res
}

// WriteFallback prints a failed payload so it can be submitted manually
func WriteFallback(out io.Writer, backend string, cause error, payload Payload) {
	fmt.Fprintf(out, "✗ %s: delivery failed: %v\n", backend, cause)
	fmt.Fprintf(out, "%s payload (manual collection needed):\n", backend)
	for _, line := range strings.Split(strings.TrimRight(payload.Render(), "\n"), "\n") {
		fmt.Fprintf(out, "  %s\n", line)
	}
}
