package datasets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
)

func TestPrepare(t *testing.T) {
	raw := []RawPair{
		{Input: "What is 2+2?", Output: "4"},
		{Input: "Capital of France?", Output: "Paris"},
	}

	examples, err := Prepare(raw, "train")
	require.NoError(t, err)
	require.Len(t, examples, 2)

	assert.Equal(t, "What is 2+2?", examples[0].Question())
	assert.Equal(t, "4", examples[0].Answer())
	assert.Equal(t, "Paris", examples[1].Answer())
}

func TestPrepareEmpty(t *testing.T) {
	_, err := Prepare(nil, "train")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train dataset is empty")
}

func TestPrepareMissingField(t *testing.T) {
	raw := []RawPair{
		{Input: "ok", Output: "ok"},
		{Input: "", Output: "orphan"},
	}

	_, err := Prepare(raw, "validation")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation[1] missing 'input' or 'output' field")
}

func TestAutoSplit(t *testing.T) {
	examples := make([]core.Example, 10)
	for i := range examples {
		examples[i] = core.Example{
			Inputs:  map[string]interface{}{"question": string(rune('a' + i))},
			Outputs: map[string]interface{}{"answer": "x"},
		}
	}

	train, val, note := AutoSplit(examples)
	assert.Len(t, train, 8)
	assert.Len(t, val, 2)
	assert.Empty(t, note)

	// Split is positional: the first 80% train, the rest validate.
	assert.Equal(t, "a", train[0].Question())
	assert.Equal(t, "i", val[0].Question())
}

func TestAutoSplitTooSmall(t *testing.T) {
	examples := []core.Example{{
		Inputs:  map[string]interface{}{"question": "only"},
		Outputs: map[string]interface{}{"answer": "one"},
	}}

	train, val, note := AutoSplit(examples)
	assert.Len(t, train, 1)
	assert.Len(t, val, 1)
	assert.NotEmpty(t, note)
}

func TestAutoSplitFive(t *testing.T) {
	examples := make([]core.Example, 5)
	for i := range examples {
		examples[i] = core.Example{
			Inputs:  map[string]interface{}{"question": "q"},
			Outputs: map[string]interface{}{"answer": "a"},
		}
	}

	train, val, note := AutoSplit(examples)
	assert.Len(t, train, 4)
	assert.Len(t, val, 1)
	assert.Empty(t, note)
}
