package worker

import (
	"context"
	"fmt"
	"runtime/debug"

	"github.com/google/uuid"

	"github.com/ojasjagtap/prompt-ide/pkg/cache"
	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/datasets"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/evaluate"
	"github.com/ojasjagtap/prompt-ide/pkg/llms"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
	"github.com/ojasjagtap/prompt-ide/pkg/metrics"
	"github.com/ojasjagtap/prompt-ide/pkg/modules"
	"github.com/ojasjagtap/prompt-ide/pkg/optimizers"
	"github.com/ojasjagtap/prompt-ide/pkg/tools"
)

// Program types accepted by the factory.
const (
	ProgramPredict        = "predict"
	ProgramChainOfThought = "chain_of_thought"
	ProgramReAct          = "react"
)

// Optimizer names accepted by the dispatcher.
const (
	OptimizerBootstrapFewShot = "BootstrapFewShot"
	OptimizerMIPRO            = "MIPRO"
	OptimizerMIPROv2          = "MIPROv2"
)

const reactMaxIters = 5

// Orchestrator runs one optimization job from configuration to terminal
// message. Stages run strictly in order; the first failing stage aborts
// the job with an error message and nothing after it runs.
type Orchestrator struct {
	cfg     *Config
	emitter *Emitter
	logger  *logging.Logger

	// provision is swapped out in tests.
	provision func(llms.ProviderConfig) (core.LLM, error)
}

// NewOrchestrator creates an orchestrator for one job.
func NewOrchestrator(cfg *Config, emitter *Emitter) *Orchestrator {
	return &Orchestrator{
		cfg:       cfg,
		emitter:   emitter,
		logger:    logging.GetLogger(),
		provision: llms.Provision,
	}
}

// Run executes the job pipeline. Exactly one terminal message is
// emitted; a non-nil return means it was an error.
func (o *Orchestrator) Run(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Newf(errors.Unknown, "worker panicked: %v", r)
			o.emitter.Error(err.Error(), fmt.Sprintf("%v\n%s", r, debug.Stack()))
		}
	}()

	if err := o.run(ctx); err != nil {
		o.emitter.Error(err.Error(), errors.Chain(err))
		return err
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context) error {
	jobID := uuid.New().String()
	o.emitter.Progress("Starting optimization job", map[string]interface{}{"job_id": jobID})

	lm, cleanup, err := o.provisionModel(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	trainset, valset, err := o.prepareDatasets(ctx)
	if err != nil {
		return err
	}

	metric, note, err := metrics.Build(o.cfg.MetricSettings(), lm)
	if err != nil {
		return err
	}
	if note != "" {
		o.emitter.Progress(note, nil)
	}
	o.emitter.Progressf("Using %s metric", o.cfg.MetricConfig.Type)

	program, programType := o.buildProgram(lm)

	optimizer, err := o.buildOptimizer(metric, lm, valset)
	if err != nil {
		return err
	}

	o.emitter.Progressf("Starting %s optimization", o.cfg.Optimizer)
	compiled, err := optimizer.Compile(ctx, program, trainset)
	if err != nil {
		return errors.Wrap(err, errors.Unknown, "optimization failed")
	}
	o.emitter.Progress("Optimization complete", nil)

	o.emitter.Progressf("Evaluating on %d validation examples", len(valset))
	score := evaluate.Evaluate(ctx, compiled, valset, metric, o.cfg.OptimizerConfig.NumThreads)
	o.emitter.Progressf("Validation score: %.4f", score)

	o.emitter.Progress("Extracting optimization results", nil)
	results := ExtractResults(compiled, o.emitter.Progressf)

	savedPath := SaveCompiledProgram(compiled, o.cfg.SavePath, jobID, o.cfg.Optimizer, programType, o.emitter.Progressf)
	o.emitter.Progressf("Compiled program saved to %s", savedPath)

	o.emitter.Success(SuccessMessage{
		ValidationScore:     score,
		OptimizedSignature:  results.Instructions,
		OptimizedDemos:      results.Demos,
		Predictors:          results.Predictors,
		CompiledProgramPath: savedPath,
		DatasetSizes:        DatasetSizes{Train: len(trainset), Val: len(valset)},
		Optimizer:           o.cfg.Optimizer,
		ProgramType:         programType,
	})
	return nil
}

// provisionModel resolves the job's model handle, wrapping it in a
// SQLite generation cache when the configuration asks for one. The
// returned cleanup closes the cache (a no-op otherwise).
func (o *Orchestrator) provisionModel(ctx context.Context) (core.LLM, func(), error) {
	mc := o.cfg.ModelConfig
	o.emitter.Progressf("Configuring %s language model: %s", mc.Provider, mc.Model)

	lm, err := o.provision(o.cfg.ProviderConfig())
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {}
	if mc.CachePath != "" {
		store, cerr := cache.NewSQLiteCache(mc.CachePath)
		if cerr != nil {
			// Cache trouble is never worth failing the job over.
			o.emitter.Progressf("Generation cache unavailable (%v), continuing without it", cerr)
		} else {
			lm = cache.WrapLLM(lm, store)
			cleanup = func() {
				if err := store.Close(); err != nil {
					o.logger.Warn(ctx, "failed to close generation cache: %v", err)
				}
			}
		}
	}

	o.emitter.Progress("Language model configured successfully", nil)
	return lm, cleanup, nil
}

// prepareDatasets converts the configured pairs (or a Parquet file) into
// typed examples and resolves the validation split.
func (o *Orchestrator) prepareDatasets(ctx context.Context) (trainset, valset []core.Example, err error) {
	o.emitter.Progress("Preparing datasets", nil)

	rawTrain := o.cfg.TrainDataset
	if len(rawTrain) == 0 && o.cfg.TrainDatasetPath != "" {
		o.emitter.Progressf("Loading training dataset from %s", o.cfg.TrainDatasetPath)
		rawTrain, err = datasets.LoadParquet(ctx, o.cfg.TrainDatasetPath)
		if err != nil {
			return nil, nil, err
		}
	}

	trainAll, err := datasets.Prepare(rawTrain, "train")
	if err != nil {
		return nil, nil, err
	}

	if len(o.cfg.ValDataset) > 0 {
		valset, err = datasets.Prepare(o.cfg.ValDataset, "validation")
		if err != nil {
			return nil, nil, err
		}
		trainset = trainAll
	} else {
		var note string
		trainset, valset, note = datasets.AutoSplit(trainAll)
		if note != "" {
			o.emitter.Progress(note, nil)
		}
	}

	o.emitter.Progress("Datasets ready", map[string]interface{}{
		"train": len(trainset),
		"val":   len(valset),
	})
	return trainset, valset, nil
}

// buildProgram constructs the student program for the configured type.
// An unknown type degrades to the plain predictor with a progress note:
// unlike a wrong metric, a simpler program still optimizes toward the
// user's goal.
func (o *Orchestrator) buildProgram(lm core.LLM) (core.Program, string) {
	signature := questionAnswerSignature()
	programType := o.cfg.ProgramType

	var name string
	var module core.Module
	switch programType {
	case ProgramChainOfThought:
		name = "generate_answer"
		module = modules.NewChainOfThought(signature)
	case ProgramReAct:
		name = "generate_answer"
		module = modules.NewReAct(signature, tools.NewInMemoryToolRegistry(), reactMaxIters)
	case ProgramPredict:
		name = "predict"
		module = modules.NewPredict(signature)
	default:
		o.emitter.Progressf("Unknown program type %q, using 'predict'", programType)
		programType = ProgramPredict
		name = "predict"
		module = modules.NewPredict(signature)
	}
	module.SetLLM(lm)

	return core.NewProgram(map[string]core.Module{name: module}, nil), programType
}

// buildOptimizer dispatches on the configured optimizer name. Unknown
// names fail before any model call.
func (o *Orchestrator) buildOptimizer(metric metrics.Metric, lm core.LLM, valset []core.Example) (optimizers.Optimizer, error) {
	oc := o.cfg.OptimizerConfig

	optMetric := metric
	if oc.MetricThreshold != nil {
		optMetric = thresholdMetric(metric, *oc.MetricThreshold)
	}

	switch o.cfg.Optimizer {
	case OptimizerBootstrapFewShot:
		bootstrap := optimizers.NewBootstrapFewShot(optMetric, oc.MaxBootstrappedDemos)
		if oc.MaxLabeledDemos > 0 {
			bootstrap.MaxLabeled = oc.MaxLabeledDemos
		}
		if oc.MaxRounds > 0 {
			bootstrap.MaxRounds = oc.MaxRounds
		}
		if oc.NumThreads > 0 {
			bootstrap.Parallelism = oc.NumThreads
		}
		return bootstrap, nil

	case OptimizerMIPRO, OptimizerMIPROv2:
		opts := []optimizers.MIPROOption{
			optimizers.WithPromptModel(lm),
			optimizers.WithValidationSet(valset),
			optimizers.WithDemoBudgets(oc.MaxBootstrappedDemos, oc.MaxLabeledDemos),
			optimizers.WithRandomSeed(oc.Seed),
		}
		if oc.Mode != "" {
			opts = append(opts, optimizers.WithMode(optimizers.RunMode(oc.Mode)))
		}
		if oc.NumTrials > 0 {
			opts = append(opts, optimizers.WithNumTrials(oc.NumTrials))
		}
		if oc.MiniBatch != nil {
			opts = append(opts, optimizers.WithMiniBatch(*oc.MiniBatch, oc.MiniBatchSize))
		} else if oc.MiniBatchSize > 0 {
			opts = append(opts, optimizers.WithMiniBatch(true, oc.MiniBatchSize))
		}
		return optimizers.NewMIPRO(optMetric, opts...), nil

	default:
		return nil, errors.WithFields(
			errors.Newf(errors.UnsupportedOption,
				"unknown optimizer: %q (use 'BootstrapFewShot', 'MIPRO', or 'MIPROv2')", o.cfg.Optimizer),
			errors.Fields{
				"optimizer": o.cfg.Optimizer,
			})
	}
}

// thresholdMetric gates demonstration acceptance on a minimum score.
func thresholdMetric(metric metrics.Metric, threshold float64) metrics.Metric {
	return func(ctx context.Context, expected core.Example, prediction map[string]interface{}) float64 {
		score := metric(ctx, expected, prediction)
		if score < threshold {
			return 0.0
		}
		return score
	}
}

func questionAnswerSignature() core.Signature {
	return core.NewSignature(
		[]core.InputField{{Field: core.NewField("question", core.WithDescription("the question to answer"))}},
		[]core.OutputField{{Field: core.NewField("answer", core.WithDescription("the answer to the question"))}},
	)
}
