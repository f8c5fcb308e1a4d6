package worker

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var msg map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &msg), "line: %s", line)
		out = append(out, msg)
	}
	return out
}

func TestEmitterProgress(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEmitter(&buf)

	emitter.Progress("Starting optimization job", map[string]interface{}{"job_id": "abc"})
	emitter.Progressf("step %d of %d", 2, 5)

	msgs := decodeLines(t, &buf)
	require.Len(t, msgs, 2)
	assert.Equal(t, "progress", msgs[0]["type"])
	assert.Equal(t, "Starting optimization job", msgs[0]["message"])
	assert.Equal(t, "abc", msgs[0]["data"].(map[string]interface{})["job_id"])
	assert.Equal(t, "step 2 of 5", msgs[1]["message"])
	assert.NotContains(t, msgs[1], "data")
}

func TestEmitterSuccessIsTerminal(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEmitter(&buf)

	emitter.Success(SuccessMessage{
		ValidationScore: 0.8,
		OptimizedSignature: map[string]string{
			"predict": "Answer concisely.",
		},
		DatasetSizes: DatasetSizes{Train: 4, Val: 1},
		Optimizer:    "BootstrapFewShot",
		ProgramType:  "predict",
	})
	assert.True(t, emitter.Terminal())

	// Nothing after a terminal message reaches the stream.
	emitter.Progress("too late", nil)
	emitter.Error("also too late", "")

	msgs := decodeLines(t, &buf)
	require.Len(t, msgs, 1)
	assert.Equal(t, "success", msgs[0]["type"])
	assert.Equal(t, 0.8, msgs[0]["validation_score"])

	sizes := msgs[0]["dataset_sizes"].(map[string]interface{})
	assert.Equal(t, float64(4), sizes["train"])
	assert.Equal(t, float64(1), sizes["val"])
}

func TestEmitterErrorIsTerminal(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewEmitter(&buf)

	emitter.Progress("working", nil)
	emitter.Error("unknown optimizer: \"X\"", "caused by: dispatch")
	emitter.Success(SuccessMessage{})

	msgs := decodeLines(t, &buf)
	require.Len(t, msgs, 2)
	assert.Equal(t, "error", msgs[1]["type"])
	assert.Equal(t, "unknown optimizer: \"X\"", msgs[1]["message"])
	assert.Equal(t, "caused by: dispatch", msgs[1]["traceback"])
}

func TestSuccessMessageShape(t *testing.T) {
	msg := SuccessMessage{
		Type:            TypeSuccess,
		ValidationScore: 1,
		OptimizedDemos: []DemoInfo{
			{Predictor: "predict", Input: "q", Output: "a"},
		},
		Predictors: []PredictorInfo{
			{Name: "predict", Type: "Predict", DemoCount: 1},
		},
	}

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	text := string(data)
	assert.Contains(t, text, `"validation_score"`)
	assert.Contains(t, text, `"optimized_demos"`)
	assert.Contains(t, text, `"compiled_program_path"`)
	assert.Contains(t, text, `"demo_count"`)
	assert.Contains(t, text, `"predictor":"predict"`)
}
