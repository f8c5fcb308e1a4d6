package optimizers

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/evaluate"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
	"github.com/ojasjagtap/prompt-ide/pkg/metrics"
)

// RunMode defines different optimization intensities for MIPRO.
type RunMode string

const (
	LightMode  RunMode = "light"
	MediumMode RunMode = "medium"
	HeavyMode  RunMode = "heavy"
)

// AutoRunSettings defines default budgets for each run mode. An explicit
// trial count overrides the mode's default.
var AutoRunSettings = map[RunMode]struct {
	NumTrials     int
	NumCandidates int
}{
	LightMode:  {NumTrials: 7, NumCandidates: 5},
	MediumMode: {NumTrials: 25, NumCandidates: 7},
	HeavyMode:  {NumTrials: 50, NumCandidates: 10},
}

const DefaultMiniBatchSize = 35

// MIPRO searches over proposed instruction candidates and bootstrapped
// demonstrations: a prompt model proposes instruction rewrites, trials
// score random candidates on training minibatches, and the best candidate
// wins a final full-set evaluation.
type MIPRO struct {
	Metric      metrics.Metric
	PromptModel core.LLM

	// ValSet is the held-out set trials are scored on. Required: searching
	// instructions against the set they were bootstrapped from would just
	// reward overfitting.
	ValSet []core.Example

	Mode                 RunMode
	NumTrials            int
	NumCandidates        int
	MaxBootstrappedDemos int
	MaxLabeledDemos      int
	MiniBatch            bool
	MiniBatchSize        int
	Parallelism          int
	Seed                 int64

	logger *logging.Logger
}

// MIPROOption configures a MIPRO instance.
type MIPROOption func(*MIPRO)

// WithMode sets the optimization intensity.
func WithMode(mode RunMode) MIPROOption {
	return func(m *MIPRO) {
		m.Mode = mode
	}
}

// WithNumTrials overrides the mode's default trial count.
func WithNumTrials(trials int) MIPROOption {
	return func(m *MIPRO) {
		m.NumTrials = trials
	}
}

// WithPromptModel sets the model used to propose instruction candidates.
func WithPromptModel(lm core.LLM) MIPROOption {
	return func(m *MIPRO) {
		m.PromptModel = lm
	}
}

// WithValidationSet sets the held-out examples used to score trials.
func WithValidationSet(valset []core.Example) MIPROOption {
	return func(m *MIPRO) {
		m.ValSet = valset
	}
}

// WithMiniBatch toggles minibatch scoring during trials.
func WithMiniBatch(enabled bool, size int) MIPROOption {
	return func(m *MIPRO) {
		m.MiniBatch = enabled
		if size > 0 {
			m.MiniBatchSize = size
		}
	}
}

// WithDemoBudgets sets the bootstrapped and labeled demo limits. Zero
// values keep the defaults, matching the other budget knobs.
func WithDemoBudgets(bootstrapped, labeled int) MIPROOption {
	return func(m *MIPRO) {
		if bootstrapped > 0 {
			m.MaxBootstrappedDemos = bootstrapped
		}
		if labeled > 0 {
			m.MaxLabeledDemos = labeled
		}
	}
}

// WithRandomSeed sets a specific random seed for reproducibility.
func WithRandomSeed(seed int64) MIPROOption {
	return func(m *MIPRO) {
		m.Seed = seed
	}
}

// NewMIPRO creates a MIPRO optimizer with light-mode defaults.
func NewMIPRO(metric metrics.Metric, opts ...MIPROOption) *MIPRO {
	m := &MIPRO{
		Metric:               metric,
		Mode:                 LightMode,
		MaxBootstrappedDemos: DefaultMaxBootstrapped,
		MaxLabeledDemos:      DefaultMaxBootstrapped,
		MiniBatch:            true,
		MiniBatchSize:        DefaultMiniBatchSize,
		Parallelism:          DefaultParallelism,
		logger:               logging.GetLogger(),
	}
	for _, opt := range opts {
		opt(m)
	}

	settings, ok := AutoRunSettings[m.Mode]
	if !ok {
		settings = AutoRunSettings[LightMode]
	}
	if m.NumTrials <= 0 {
		m.NumTrials = settings.NumTrials
	}
	if m.NumCandidates <= 0 {
		m.NumCandidates = settings.NumCandidates
	}

	return m
}

func (m *MIPRO) Compile(ctx context.Context, student core.Program, trainset []core.Example) (core.Program, error) {
	if m.Metric == nil {
		return student, errors.New(errors.InvalidInput, "mipro optimizer requires a metric")
	}
	if m.PromptModel == nil {
		return student, errors.New(errors.InvalidInput, "mipro optimizer requires a prompt model")
	}
	if len(trainset) == 0 {
		return student, errors.New(errors.DatasetInvalid, "training set is empty")
	}
	if len(m.ValSet) == 0 {
		return student, errors.New(errors.InvalidInput, "mipro optimizer requires a validation set")
	}

	m.logger.Info(ctx, "starting MIPRO: mode=%s trials=%d candidates=%d minibatch=%v",
		m.Mode, m.NumTrials, m.NumCandidates, m.MiniBatch)

	// Step 1: bootstrap demonstrations onto a working copy.
	bootstrap := &BootstrapFewShot{
		Metric:          m.Metric,
		MaxBootstrapped: m.MaxBootstrappedDemos,
		MaxLabeled:      m.MaxLabeledDemos,
		MaxRounds:       DefaultMaxRounds,
		Parallelism:     m.Parallelism,
	}
	baseline, err := bootstrap.Compile(ctx, student, trainset)
	if err != nil {
		return student, errors.Wrap(err, errors.Unknown, "failed to bootstrap demonstrations")
	}

	// Step 2: propose instruction candidates. The unmodified instruction
	// stays in the pool so optimization can never do worse than baseline
	// on the search it runs.
	candidates, err := m.proposeInstructions(ctx, baseline, trainset)
	if err != nil {
		return student, err
	}

	// Step 3: trial loop over random candidates.
	rng := rand.New(rand.NewSource(m.Seed))
	bestProgram := baseline
	bestScore := -1.0

	for trial := 0; trial < m.NumTrials; trial++ {
		instruction := candidates[rng.Intn(len(candidates))]
		candidate := withInstruction(baseline, instruction)

		devset := m.ValSet
		if m.MiniBatch && m.MiniBatchSize > 0 && m.MiniBatchSize < len(m.ValSet) {
			devset = sample(rng, m.ValSet, m.MiniBatchSize)
		}

		score := evaluate.Evaluate(ctx, candidate, devset, m.Metric, m.Parallelism)
		m.logger.Info(ctx, "trial %d/%d score=%.4f", trial+1, m.NumTrials, score)

		if score > bestScore {
			bestScore = score
			bestProgram = candidate
			m.logger.Debug(ctx, "new best score %.4f at trial %d", bestScore, trial+1)
		}
	}

	// Step 4: confirm the winner on the full validation set.
	finalScore := evaluate.Evaluate(ctx, bestProgram, m.ValSet, m.Metric, m.Parallelism)
	m.logger.Info(ctx, "MIPRO finished: best trial score=%.4f full-set score=%.4f", bestScore, finalScore)

	return bestProgram, nil
}

// proposeInstructions asks the prompt model for instruction rewrites,
// keeping the program's current instruction as the first candidate.
func (m *MIPRO) proposeInstructions(ctx context.Context, program core.Program, trainset []core.Example) ([]string, error) {
	signature := program.GetSignature()
	candidates := []string{signature.Instruction}

	prompt := instructionProposalPrompt(signature, trainset)
	for i := 1; i < m.NumCandidates; i++ {
		resp, err := m.PromptModel.Generate(ctx, prompt, core.WithTemperature(0.7+0.1*float64(i%3)))
		if err != nil {
			return nil, errors.Wrap(err, errors.LLMGenerationFailed, "failed to propose instruction candidate")
		}
		if instruction := strings.TrimSpace(resp.Content); instruction != "" {
			candidates = append(candidates, instruction)
		}
	}
	return candidates, nil
}

func instructionProposalPrompt(signature core.Signature, trainset []core.Example) string {
	var sb strings.Builder
	sb.WriteString("Propose a single concise instruction for a language model performing the following task.\n")
	sb.WriteString("Respond with only the instruction text.\n\n")
	sb.WriteString("Task signature:\n")
	sb.WriteString(signature.String())
	sb.WriteString("\nExamples:\n")

	limit := 3
	if len(trainset) < limit {
		limit = len(trainset)
	}
	for i := 0; i < limit; i++ {
		fmt.Fprintf(&sb, "- question: %s\n  answer: %s\n", trainset[i].Question(), trainset[i].Answer())
	}
	return sb.String()
}

// withInstruction returns a clone of the program with the instruction
// attached to every module's signature.
func withInstruction(program core.Program, instruction string) core.Program {
	candidate := program.Clone()
	if instruction == "" {
		return candidate
	}
	for _, module := range candidate.GetModules() {
		sig := module.GetSignature()
		module.SetSignature(sig.WithInstruction(instruction))
	}
	return candidate
}

func sample(rng *rand.Rand, examples []core.Example, size int) []core.Example {
	perm := rng.Perm(len(examples))
	batch := make([]core.Example, size)
	for i := 0; i < size; i++ {
		batch[i] = examples[perm[i]]
	}
	return batch
}

var _ Optimizer = (*MIPRO)(nil)
