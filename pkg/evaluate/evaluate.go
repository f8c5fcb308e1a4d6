package evaluate

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
	"github.com/ojasjagtap/prompt-ide/pkg/metrics"
)

const defaultParallelism = 4

// Evaluate runs the program over the devset and returns the mean metric
// score. Individual execution failures score 0 instead of aborting the
// whole evaluation.
func Evaluate(ctx context.Context, program core.Program, devset []core.Example, metric metrics.Metric, parallelism int) float64 {
	if len(devset) == 0 {
		return 0.0
	}
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	logger := logging.GetLogger()
	scores := make([]float64, len(devset))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(parallelism)
	for i, example := range devset {
		p.Go(func() {
			prediction, err := program.Execute(ctx, example.Inputs)
			if err != nil {
				logger.Warn(ctx, "evaluation example %d failed: %v", i, err)
				return
			}
			score := metric(ctx, example, prediction)
			mu.Lock()
			scores[i] = score
			mu.Unlock()
		})
	}
	p.Wait()

	var total float64
	for _, s := range scores {
		total += s
	}
	return total / float64(len(devset))
}
