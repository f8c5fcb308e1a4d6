package worker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigEmptyInput(t *testing.T) {
	_, err := LoadConfig(strings.NewReader(""))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configuration received on stdin")

	_, err = LoadConfig(strings.NewReader("   \n\t"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no configuration received on stdin")
}

func TestLoadConfigParseError(t *testing.T) {
	_, err := LoadConfig(strings.NewReader(`{"model_config": [not json`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse configuration")
}

func TestLoadConfigDefaults(t *testing.T) {
	// Empty sections get field defaults; the sections themselves must be present.
	doc := `{
		"model_config": {},
		"metric_config": {},
		"train_dataset": [{"input": "q", "output": "a"}]
	}`

	cfg, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.ModelConfig.Provider)
	assert.Equal(t, "llama3.2:1b", cfg.ModelConfig.Model)
	assert.Equal(t, "exact_match", cfg.MetricConfig.Type)
	assert.Equal(t, "predict", cfg.ProgramType)
	assert.Equal(t, "BootstrapFewShot", cfg.Optimizer)
	assert.Equal(t, DefaultSavePath, cfg.SavePath)
}

func TestLoadConfigMissingModelConfig(t *testing.T) {
	doc := `{
		"metric_config": {},
		"train_dataset": [{"input": "q", "output": "a"}]
	}`

	_, err := LoadConfig(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'model_config'")
}

func TestLoadConfigMissingMetricConfig(t *testing.T) {
	doc := `{
		"model_config": {},
		"train_dataset": [{"input": "q", "output": "a"}]
	}`

	_, err := LoadConfig(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'metric_config'")
}

func TestLoadConfigMissingTrainDataset(t *testing.T) {
	doc := `{
		"model_config": {},
		"metric_config": {},
		"optimizer": "MIPRO"
	}`

	_, err := LoadConfig(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "train dataset is empty")
}

func TestLoadConfigInvalidMode(t *testing.T) {
	doc := `{
		"model_config": {},
		"metric_config": {},
		"train_dataset": [{"input": "q", "output": "a"}],
		"optimizer_config": {"mode": "turbo"}
	}`

	_, err := LoadConfig(strings.NewReader(doc))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestLoadConfigFullDocument(t *testing.T) {
	doc := `{
		"model_config": {"provider": "openai", "model": "gpt-4o-mini", "api_key": "sk-x"},
		"train_dataset": [{"input": "q1", "output": "a1"}],
		"val_dataset": [{"input": "q2", "output": "a2"}],
		"metric_config": {"type": "contains", "case_sensitive": true},
		"program_type": "chain_of_thought",
		"optimizer": "MIPROv2",
		"optimizer_config": {
			"max_bootstrapped_demos": 2,
			"max_labeled_demos": 8,
			"mode": "medium",
			"num_trials": 10,
			"minibatch": false,
			"minibatch_size": 20
		},
		"save_path": "/tmp/out"
	}`

	cfg, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.ModelConfig.Provider)
	assert.Equal(t, "contains", cfg.MetricConfig.Type)
	assert.True(t, cfg.MetricConfig.CaseSensitive)
	assert.Equal(t, "chain_of_thought", cfg.ProgramType)
	assert.Equal(t, "MIPROv2", cfg.Optimizer)
	assert.Equal(t, 2, cfg.OptimizerConfig.MaxBootstrappedDemos)
	assert.Equal(t, "medium", cfg.OptimizerConfig.Mode)
	require.NotNil(t, cfg.OptimizerConfig.MiniBatch)
	assert.False(t, *cfg.OptimizerConfig.MiniBatch)
	assert.Equal(t, "/tmp/out", cfg.SavePath)
	require.Len(t, cfg.ValDataset, 1)
}

func TestLoadConfigYAML(t *testing.T) {
	doc := `
model_config:
  provider: anthropic
  model: claude-3-5-haiku-20241022
train_dataset:
  - input: q
    output: a
metric_config:
  type: exact_match
`

	cfg, err := LoadConfig(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.ModelConfig.Provider)
	require.Len(t, cfg.TrainDataset, 1)
	assert.Equal(t, "q", cfg.TrainDataset[0].Input)
}
