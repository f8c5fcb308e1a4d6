package modules

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ojasjagtap/prompt-ide/internal/testutil"
	"github.com/ojasjagtap/prompt-ide/pkg/core"
)

func qaSignature() core.Signature {
	return core.NewSignature(
		[]core.InputField{{Field: core.NewField("question")}},
		[]core.OutputField{{Field: core.NewField("answer")}},
	)
}

func TestPredict(t *testing.T) {
	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("answer: 42", nil)

	predict := NewPredict(qaSignature())
	predict.SetLLM(mockLLM)

	outputs, err := predict.Process(context.Background(), map[string]interface{}{
		"question": "What is the meaning of life?",
	})
	require.NoError(t, err)
	assert.Equal(t, "42", outputs["answer"])
	mockLLM.AssertExpectations(t)
}

func TestPredictMissingInput(t *testing.T) {
	predict := NewPredict(qaSignature())
	predict.SetLLM(new(testutil.MockLLM))

	_, err := predict.Process(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question")
}

func TestPredictRequiresLLM(t *testing.T) {
	predict := NewPredict(qaSignature())
	_, err := predict.Process(context.Background(), map[string]interface{}{"question": "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no language model")
}

func TestPredictDemosAppearInPrompt(t *testing.T) {
	var captured string
	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			captured = args.String(1)
		}).
		Return("answer: Paris", nil)

	predict := NewPredict(qaSignature())
	predict.SetLLM(mockLLM)
	predict.SetDemos([]core.Example{{
		Inputs:  map[string]interface{}{"question": "Capital of Italy?"},
		Outputs: map[string]interface{}{"answer": "Rome"},
	}})

	_, err := predict.Process(context.Background(), map[string]interface{}{
		"question": "Capital of France?",
	})
	require.NoError(t, err)

	assert.Contains(t, captured, "Capital of Italy?")
	assert.Contains(t, captured, "Rome")
	assert.Contains(t, captured, "Capital of France?")
}

func TestPredictCloneCopiesDemos(t *testing.T) {
	predict := NewPredict(qaSignature())
	predict.SetDemos([]core.Example{{
		Inputs:  map[string]interface{}{"question": "q"},
		Outputs: map[string]interface{}{"answer": "a"},
	}})

	clone := predict.Clone().(*Predict)
	require.Len(t, clone.GetDemos(), 1)

	clone.SetDemos(nil)
	assert.Len(t, predict.GetDemos(), 1)
}

func TestFormatPromptIncludesInstruction(t *testing.T) {
	signature := qaSignature().WithInstruction("Answer concisely.")
	prompt := FormatPrompt(signature, nil, map[string]interface{}{"question": "Why?"})

	assert.Contains(t, prompt, "Given the fields 'question', produce the fields 'answer'.")
	assert.Contains(t, prompt, "Answer concisely.")
	assert.Contains(t, prompt, "question: Why?")
}

func TestParseCompletionMultipleFields(t *testing.T) {
	signature := core.NewSignature(
		[]core.InputField{{Field: core.NewField("question")}},
		[]core.OutputField{
			{Field: core.NewField("rationale", core.WithPrefix("Reasoning:"))},
			{Field: core.NewField("answer")},
		},
	)

	completion := "Reasoning: step one\nstep two\nanswer: 42"
	outputs := ParseCompletion(completion, signature)

	assert.Equal(t, "step one\nstep two", outputs["rationale"])
	assert.Equal(t, "42", outputs["answer"])
}

func TestParseCompletionSingleOutputFallback(t *testing.T) {
	outputs := ParseCompletion("just the answer, no marker", qaSignature())
	assert.Equal(t, "just the answer, no marker", outputs["answer"])
}

func TestParseCompletionCaseInsensitiveMarker(t *testing.T) {
	outputs := ParseCompletion("Answer: 42", qaSignature())
	assert.Equal(t, "42", outputs["answer"])
}
