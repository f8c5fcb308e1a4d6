package optimizers

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ojasjagtap/prompt-ide/internal/testutil"
	"github.com/ojasjagtap/prompt-ide/pkg/core"
)

func TestMIPROModeDefaults(t *testing.T) {
	light := NewMIPRO(exactMatchMetric())
	assert.Equal(t, 7, light.NumTrials)
	assert.Equal(t, 5, light.NumCandidates)

	heavy := NewMIPRO(exactMatchMetric(), WithMode(HeavyMode))
	assert.Equal(t, 50, heavy.NumTrials)
	assert.Equal(t, 10, heavy.NumCandidates)

	override := NewMIPRO(exactMatchMetric(), WithMode(MediumMode), WithNumTrials(3))
	assert.Equal(t, 3, override.NumTrials)
	assert.Equal(t, 7, override.NumCandidates)
}

func TestMIPRORequiresPromptModel(t *testing.T) {
	optimizer := NewMIPRO(exactMatchMetric(), WithValidationSet([]core.Example{qaExample("q", "a")}))
	_, err := optimizer.Compile(context.Background(), qaProgram(nil), []core.Example{qaExample("q", "a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt model")
}

func TestMIPRORequiresValidationSet(t *testing.T) {
	lm := new(testutil.MockLLM)
	optimizer := NewMIPRO(exactMatchMetric(), WithPromptModel(lm))
	_, err := optimizer.Compile(context.Background(), qaProgram(lm), []core.Example{qaExample("q", "a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation set")
}

func TestMIPROCompile(t *testing.T) {
	taskLLM := new(testutil.MockLLM)
	taskLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("answer: 42", nil)

	promptLLM := new(testutil.MockLLM)
	promptLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("Answer with just the number.", nil)

	trainset := []core.Example{
		qaExample("q1", "42"),
		qaExample("q2", "42"),
	}
	valset := []core.Example{qaExample("q3", "42")}

	optimizer := NewMIPRO(exactMatchMetric(),
		WithPromptModel(promptLLM),
		WithValidationSet(valset),
		WithNumTrials(3),
		WithRandomSeed(1),
	)

	compiled, err := optimizer.Compile(context.Background(), qaProgram(taskLLM), trainset)
	require.NoError(t, err)

	// The winning candidate keeps either the baseline (empty) instruction
	// or a proposed one.
	instruction := compiled.GetSignature().Instruction
	if instruction != "" {
		assert.Equal(t, "Answer with just the number.", instruction)
	}

	// Bootstrapped demos survive the instruction search.
	provider, ok := compiled.GetModules()[0].(core.DemoProvider)
	require.True(t, ok)
	assert.NotEmpty(t, provider.GetDemos())

	promptLLM.AssertExpectations(t)
}

func TestWithDemoBudgetsZeroKeepsDefaults(t *testing.T) {
	m := NewMIPRO(exactMatchMetric(), WithDemoBudgets(0, 0))
	assert.Equal(t, DefaultMaxBootstrapped, m.MaxBootstrappedDemos)
	assert.Equal(t, DefaultMaxBootstrapped, m.MaxLabeledDemos)

	m = NewMIPRO(exactMatchMetric(), WithDemoBudgets(2, 8))
	assert.Equal(t, 2, m.MaxBootstrappedDemos)
	assert.Equal(t, 8, m.MaxLabeledDemos)
}

func TestWithInstructionClonesProgram(t *testing.T) {
	lm := new(testutil.MockLLM)
	program := qaProgram(lm)

	candidate := withInstruction(program, "New instruction.")
	assert.Equal(t, "New instruction.", candidate.GetSignature().Instruction)
	assert.Empty(t, program.GetSignature().Instruction)
}

func TestSampleIsSeededAndSized(t *testing.T) {
	examples := []core.Example{
		qaExample("a", "1"), qaExample("b", "2"), qaExample("c", "3"), qaExample("d", "4"),
	}

	batchA := sample(rand.New(rand.NewSource(42)), examples, 2)
	batchB := sample(rand.New(rand.NewSource(42)), examples, 2)

	require.Len(t, batchA, 2)
	assert.Equal(t, batchA, batchB)
}
