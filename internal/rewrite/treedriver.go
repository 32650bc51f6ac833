// Package rewrite implements the parallel tree driver (C7) and the
// serial commit rewriter (C8): the two phases of §5's scheduling
// model.
package rewrite

import (
	"runtime"
	"sync"

	"github.com/javanhut/gitcs-filter/internal/gitobj"
	"github.com/javanhut/gitcs-filter/internal/mangle"
	"github.com/javanhut/gitcs-filter/internal/resume"
)

// DefaultWorkerMultiplier sizes the worker pool at roughly 2x hardware
// parallelism per §4.7/§6, absent an explicit override.
const DefaultWorkerMultiplier = 2

// DefaultWorkers returns the default pool size for the host machine.
func DefaultWorkers() int {
	return runtime.NumCPU() * DefaultWorkerMultiplier
}

// TreeDriver fans out per-commit top-tree rewrites across a worker
// pool and aggregates results into the root_trees table of
// Mangler.Tables (via StoreRoot).
type TreeDriver struct {
	Mangler *mangle.Mangler
	Workers int
	// Resume, if non-nil, is consulted before dispatching a top-tree
	// and updated after each one completes, letting an interrupted
	// run skip work it already did.
	Resume *resume.Store
}

type treeResult struct {
	err error
}

// RewriteTrees dispatches mangle_tree(h, false, 0) for every hex in
// topTreeHexes across the worker pool, reporting progress as it
// drains. A worker error does not cancel the remaining tasks: every
// dispatched task still runs, and the first error observed is returned
// once all of them have finished.
func (d *TreeDriver) RewriteTrees(topTreeHexes []string) error {
	workers := d.Workers
	if workers <= 0 {
		workers = DefaultWorkers()
	}

	progress := NewTreeProgress(len(topTreeHexes))

	// Partition work up front: hexes the resume store already has a
	// recorded result for are mirrored into the in-memory table
	// without recomputation; the rest are dispatched to the pool.
	var toCompute []string
	for _, hex := range topTreeHexes {
		if d.Resume == nil {
			toCompute = append(toCompute, hex)
			continue
		}
		rewrittenHex, found, err := d.Resume.Lookup(hex)
		if err != nil {
			return err
		}
		if !found {
			toCompute = append(toCompute, hex)
			continue
		}
		if err := d.Mangler.Tables.StoreRoot(hex, rewrittenHex); err != nil {
			return err
		}
		progress.Advance()
	}

	jobs := make(chan string, len(toCompute))
	results := make(chan treeResult, len(toCompute))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for hex := range jobs {
				err := d.rewriteOne(hex)
				results <- treeResult{err: err}
			}
		}()
	}
	for _, hex := range toCompute {
		jobs <- hex
	}
	close(jobs)

	var firstErr error
	for range toCompute {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		progress.Advance()
	}
	wg.Wait()

	if firstErr != nil {
		return firstErr
	}

	progress.Done(d.Mangler.Tables.ExtractedCount(), d.Mangler.Sink.Dir)
	return nil
}

func (d *TreeDriver) rewriteOne(hex string) error {
	orig, err := gitobj.ParseHash(hex)
	if err != nil {
		return err
	}
	rewritten, err := d.Mangler.MangleTree(orig, false, 0)
	if err != nil {
		return err
	}
	if err := d.Mangler.Tables.StoreRoot(hex, rewritten.String()); err != nil {
		return err
	}
	if d.Resume != nil {
		if err := d.Resume.Record(hex, rewritten.String()); err != nil {
			return err
		}
	}
	return nil
}
