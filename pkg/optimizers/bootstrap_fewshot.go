package optimizers

import (
	"context"
	"sync"

	"github.com/sourcegraph/conc/pool"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
	"github.com/ojasjagtap/prompt-ide/pkg/metrics"
)

// Optimizer compiles a student program against a training set, returning
// an optimized copy. The input program is never mutated.
type Optimizer interface {
	Compile(ctx context.Context, student core.Program, trainset []core.Example) (core.Program, error)
}

// Default demonstration budgets.
const (
	DefaultMaxBootstrapped = 4
	DefaultMaxLabeled      = 16
	DefaultMaxRounds       = 1
	DefaultParallelism     = 4
)

// BootstrapFewShot builds few-shot demonstrations by running the program
// over the training set and keeping the traces the metric accepts, then
// padding with raw labeled examples up to the labeled budget.
type BootstrapFewShot struct {
	Metric          metrics.Metric
	MaxBootstrapped int
	MaxLabeled      int
	MaxRounds       int
	Parallelism     int
}

// NewBootstrapFewShot creates a bootstrap optimizer with the default
// budgets. A non-positive maxBootstrapped keeps the default.
func NewBootstrapFewShot(metric metrics.Metric, maxBootstrapped int) *BootstrapFewShot {
	if maxBootstrapped <= 0 {
		maxBootstrapped = DefaultMaxBootstrapped
	}
	return &BootstrapFewShot{
		Metric:          metric,
		MaxBootstrapped: maxBootstrapped,
		MaxLabeled:      DefaultMaxLabeled,
		MaxRounds:       DefaultMaxRounds,
		Parallelism:     DefaultParallelism,
	}
}

func (b *BootstrapFewShot) Compile(ctx context.Context, student core.Program, trainset []core.Example) (core.Program, error) {
	if b.Metric == nil {
		return student, errors.New(errors.InvalidInput, "bootstrap optimizer requires a metric")
	}
	if len(trainset) == 0 {
		return student, errors.New(errors.DatasetInvalid, "training set is empty")
	}

	logger := logging.GetLogger()
	compiled := student.Clone()

	rounds := b.MaxRounds
	if rounds <= 0 {
		rounds = DefaultMaxRounds
	}

	var demos []core.Example
	for round := 0; round < rounds && len(demos) < b.MaxBootstrapped; round++ {
		logger.Debug(ctx, "bootstrap round %d/%d", round+1, rounds)
		roundDemos := b.bootstrapRound(ctx, compiled, trainset)

		for _, demo := range roundDemos {
			if len(demos) >= b.MaxBootstrapped {
				break
			}
			demos = append(demos, demo)
		}
	}

	logger.Info(ctx, "bootstrapped %d demonstration(s) from %d training example(s)", len(demos), len(trainset))

	// Pad with raw labeled examples, skipping inputs already covered.
	seen := make(map[string]bool, len(demos))
	for _, demo := range demos {
		seen[core.StringField(demo.Inputs, "question")] = true
	}
	budget := b.MaxBootstrapped + b.MaxLabeled
	for _, example := range trainset {
		if len(demos) >= budget {
			break
		}
		if seen[example.Question()] {
			continue
		}
		demos = append(demos, example)
		seen[example.Question()] = true
	}

	for _, module := range compiled.GetModules() {
		if consumer, ok := module.(core.DemoConsumer); ok {
			consumer.SetDemos(demos)
		}
	}

	return compiled, nil
}

// bootstrapRound runs the program over the training set and returns the
// accepted traces in dataset order.
func (b *BootstrapFewShot) bootstrapRound(ctx context.Context, program core.Program, trainset []core.Example) []core.Example {
	logger := logging.GetLogger()

	parallelism := b.Parallelism
	if parallelism <= 0 {
		parallelism = DefaultParallelism
	}

	accepted := make([]*core.Example, len(trainset))
	var mu sync.Mutex

	p := pool.New().WithMaxGoroutines(parallelism)
	for i, example := range trainset {
		p.Go(func() {
			prediction, err := program.Execute(ctx, example.Inputs)
			if err != nil {
				logger.Warn(ctx, "bootstrap example %d failed: %v", i, err)
				return
			}

			if b.Metric(ctx, example, prediction) > 0 {
				demo := core.Example{
					Inputs:  example.Inputs,
					Outputs: prediction,
				}
				mu.Lock()
				accepted[i] = &demo
				mu.Unlock()
			}
		})
	}
	p.Wait()

	var demos []core.Example
	for _, demo := range accepted {
		if demo != nil {
			demos = append(demos, *demo)
		}
	}
	return demos
}

var _ Optimizer = (*BootstrapFewShot)(nil)
