package fb

import (
	"context"

	"github.com/arvados/ancinfer/internal/hmmtab"
	"github.com/arvados/ancinfer/internal/params"
	"github.com/arvados/ancinfer/internal/refidx"
	"golang.org/x/sync/errgroup"
)

// Task is one study haplotype to decode within a window.
type Task struct {
	SampleIdx int
	Hap       int // 0 or 1
	Alleles   []int
}

// TaskResult pairs a Task with its decoded Result.
type TaskResult struct {
	Task
	Result *Result
}

// WindowModel bundles everything DecodeHaplotype needs that's shared
// across every task in a window: these are read-only for the duration of
// RunWindow (spec.md §4.2/§5: "No mutation of shared state occurs during
// FB; the only shared reads are RefGTRec, ModelParams, and MarkerMap").
type WindowModel struct {
	Model *params.Model
	Index *refidx.Index
	Emis  *hmmtab.EmissionTable
	Gaps  []hmmtab.GapTransition
}

// RunWindow decodes every task concurrently, bounded to nThreads
// in-flight goroutines at a time, using golang.org/x/sync/errgroup for the
// fan-out (spec.md §5: "Study samples are independent; the engine
// processes samples concurrently... the two haplotypes are independent
// and may also be parallelized"). It returns as soon as every task
// completes or the first NumericFailure-class error occurs.
func RunWindow(ctx context.Context, nThreads int, wm *WindowModel, tasks []Task) ([]TaskResult, error) {
	results := make([]TaskResult, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	if nThreads > 0 {
		g.SetLimit(nThreads)
	}
	for i, task := range tasks {
		i, task := i, task
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			res, err := DecodeHaplotype(wm.Model, wm.Index, wm.Emis, wm.Gaps, task.Alleles)
			if err != nil {
				return err
			}
			results[i] = TaskResult{Task: task, Result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
