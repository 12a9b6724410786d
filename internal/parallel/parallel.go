// Package parallel provides the bounded worker pool used for per-node extraction.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Maximum number of concurrent workers.
	MinChunkSize int  // Below this many items the work runs sequentially.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16,
	}
}

// Sequential returns a config that runs every item on the calling goroutine.
func Sequential() Config {
	return Config{NumWorkers: 1}
}

// WithWorkers returns a config running at most n workers. n <= 1 is sequential.
func WithWorkers(n int) Config {
	if n <= 1 {
		return Sequential()
	}
	return Config{Enabled: true, NumWorkers: n}
}

// ForEach calls f(ctx, i) for i in [0, n).
//
// The first error cancels the context passed to f and stops scheduling new items; items already
// running complete. ForEach returns that first error, or ctx.Err() if the parent context ended
// first. Each call of f must only write state owned by index i.
func ForEach(ctx context.Context, n int, cfg Config, f func(ctx context.Context, i int) error) error {
	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		return sequential(ctx, n, f)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.NumWorkers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			return f(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func sequential(ctx context.Context, n int, f func(ctx context.Context, i int) error) error {
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := f(ctx, i); err != nil {
			return err
		}
	}
	return nil
}
