package lgtm

import (
	"context"
	"io"

	"github.com/sourcegraph/conc/pool"

	"github.com/ethereum-optimism/infra/op-lgtm/publish"
	"github.com/ethereum-optimism/infra/op-lgtm/reporting"
)

// Probe checks the health endpoint of every backend concurrently and prints one line
// per backend to out. The returned slice holds one entry per backend, nil when reachable.
func Probe(ctx context.Context, cfg *Config, out io.Writer) ([]error, error) {
	probeCfg := *cfg
	probeCfg.PublishTimeout = publish.ProbeTimeout
	backends, err := NewBackends(&probeCfg)
	if err != nil {
		return nil, err
	}

	names := make([]string, len(backends))
	errs := make([]error, len(backends))
	p := pool.New()
	for i, b := range backends {
		names[i] = b.Name()
		p.Go(func() {
			probeCtx, cancel := context.WithTimeout(ctx, publish.ProbeTimeout)
			defer cancel()
			errs[i] = b.Probe(probeCtx)
		})
	}
	p.Wait()

	for i, err := range errs {
		if err != nil {
			cfg.Log.Warn("Backend unreachable", "backend", names[i], "err", err)
		}
	}
	reporting.PrintProbeResults(out, names, errs)
	return errs, nil
}
