package cache

import (
	"context"
	"runtime"

	"github.com/sourcegraph/conc/pool"

	"github.com/jchantrell/wadinfo/internal/metadata"
)

// Result is the outcome of one prewarmed path.
type Result struct {
	Path   string
	Record *metadata.Record
	Err    error
}

type prewarmOptions struct {
	workers  int
	progress func(Result)
}

// PrewarmOption configures Prewarm.
type PrewarmOption func(*prewarmOptions)

// WithWorkers bounds the number of files parsed at once.
func WithWorkers(n int) PrewarmOption {
	return func(o *prewarmOptions) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithProgress registers a callback invoked after each path, from the
// worker goroutine that handled it.
func WithProgress(fn func(Result)) PrewarmOption {
	return func(o *prewarmOptions) {
		o.progress = fn
	}
}

// Prewarm loads paths in parallel and returns one Result per path, in input
// order. A failed path does not stop the others. Once ctx is done, paths not
// yet started are reported with ctx's error; parses already running finish.
func (c *Cache) Prewarm(ctx context.Context, paths []string, opts ...PrewarmOption) []Result {
	o := prewarmOptions{workers: runtime.NumCPU()}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	results := make([]Result, len(paths))
	p := pool.New().WithMaxGoroutines(o.workers)
	for i, path := range paths {
		p.Go(func() {
			r := Result{Path: path}
			if err := ctx.Err(); err != nil {
				r.Err = &metadata.ParseError{Path: path, Err: err}
			} else {
				r.Record, r.Err = c.Get(path)
			}
			results[i] = r
			if o.progress != nil {
				o.progress(r)
			}
		})
	}
	p.Wait()
	return results
}
