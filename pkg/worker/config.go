package worker

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ojasjagtap/prompt-ide/pkg/datasets"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/llms"
	"github.com/ojasjagtap/prompt-ide/pkg/metrics"
)

// Defaults applied to absent configuration fields.
const (
	DefaultProvider    = llms.ProviderOllama
	DefaultModel       = "llama3.2:1b"
	DefaultProgramType = "predict"
	DefaultOptimizer   = "BootstrapFewShot"
	DefaultSavePath    = "./compiled_program"
)

// ModelConfig selects the language-model backend for a job.
type ModelConfig struct {
	Provider  string `json:"provider" yaml:"provider"`
	Model     string `json:"model" yaml:"model" validate:"required"`
	APIKey    string `json:"api_key" yaml:"api_key"`
	APIBase   string `json:"api_base" yaml:"api_base"`
	CachePath string `json:"cache_path" yaml:"cache_path"`
}

// MetricConfig selects and parameterizes the scoring metric.
type MetricConfig struct {
	Type          string `json:"type" yaml:"type"`
	Code          string `json:"code" yaml:"code"`
	CaseSensitive bool   `json:"case_sensitive" yaml:"case_sensitive"`
}

// OptimizerConfig tunes the selected optimizer. Zero values mean "use
// the optimizer's default".
type OptimizerConfig struct {
	MaxBootstrappedDemos int      `json:"max_bootstrapped_demos" yaml:"max_bootstrapped_demos" validate:"gte=0"`
	MaxLabeledDemos      int      `json:"max_labeled_demos" yaml:"max_labeled_demos" validate:"gte=0"`
	MaxRounds            int      `json:"max_rounds" yaml:"max_rounds" validate:"gte=0"`
	MetricThreshold      *float64 `json:"metric_threshold,omitempty" yaml:"metric_threshold,omitempty"`
	Mode                 string   `json:"mode" yaml:"mode" validate:"omitempty,oneof=light medium heavy"`
	NumTrials            int      `json:"num_trials" yaml:"num_trials" validate:"gte=0"`
	MiniBatch            *bool    `json:"minibatch,omitempty" yaml:"minibatch,omitempty"`
	MiniBatchSize        int      `json:"minibatch_size" yaml:"minibatch_size" validate:"gte=0"`
	NumThreads           int      `json:"num_threads" yaml:"num_threads" validate:"gte=0"`
	Seed                 int64    `json:"seed" yaml:"seed"`
}

// Config is the job document read from stdin (or a file). One document
// describes one optimization job end to end.
type Config struct {
	ModelConfig      *ModelConfig       `json:"model_config" yaml:"model_config"`
	TrainDataset     []datasets.RawPair `json:"train_dataset" yaml:"train_dataset"`
	TrainDatasetPath string             `json:"train_dataset_path" yaml:"train_dataset_path"`
	ValDataset       []datasets.RawPair `json:"val_dataset" yaml:"val_dataset"`
	MetricConfig     *MetricConfig      `json:"metric_config" yaml:"metric_config"`
	ProgramType      string             `json:"program_type" yaml:"program_type"`
	Optimizer        string             `json:"optimizer" yaml:"optimizer"`
	OptimizerConfig  OptimizerConfig    `json:"optimizer_config" yaml:"optimizer_config"`
	SavePath         string             `json:"save_path" yaml:"save_path"`
}

// ValidationError describes a single failed field check.
type ValidationError struct {
	Field   string
	Tag     string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return e.Message
}

// ValidationErrors aggregates all failed checks for one document.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Message
	}
	return strings.Join(msgs, "; ")
}

var validate = validator.New()

// LoadConfig reads and parses a job document. The document may be JSON
// or YAML; production jobs arrive as JSON on stdin.
func LoadConfig(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read configuration")
	}
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, errors.New(errors.InvalidInput, "no configuration received on stdin")
	}

	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to parse configuration")
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills absent fields inside present sections. A wholly
// missing model_config or metric_config section is a validation failure,
// not something to paper over with defaults.
func (c *Config) applyDefaults() {
	if c.ModelConfig != nil {
		if c.ModelConfig.Provider == "" {
			c.ModelConfig.Provider = DefaultProvider
		}
		if c.ModelConfig.Model == "" {
			c.ModelConfig.Model = DefaultModel
		}
	}
	if c.MetricConfig != nil && c.MetricConfig.Type == "" {
		c.MetricConfig.Type = metrics.KindExactMatch
	}
	if c.ProgramType == "" {
		c.ProgramType = DefaultProgramType
	}
	if c.Optimizer == "" {
		c.Optimizer = DefaultOptimizer
	}
	if c.SavePath == "" {
		c.SavePath = DefaultSavePath
	}
}

// Validate runs structural checks over the document. Semantic checks
// (unknown provider, unknown metric, unknown optimizer) stay with the
// component that owns the vocabulary, so their error messages name the
// offending value and the allowed set in one place.
func (c *Config) Validate() error {
	if c.ModelConfig == nil {
		return errors.New(errors.InvalidInput, "configuration missing required 'model_config' section")
	}
	if c.MetricConfig == nil {
		return errors.New(errors.InvalidInput, "configuration missing required 'metric_config' section")
	}

	if err := validate.Struct(c); err != nil {
		verrs, ok := err.(validator.ValidationErrors)
		if !ok {
			return errors.Wrap(err, errors.ValidationFailed, "configuration validation failed")
		}

		out := make(ValidationErrors, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, ValidationError{
				Field:   fe.Namespace(),
				Tag:     fe.Tag(),
				Value:   fe.Value(),
				Message: fmt.Sprintf("field '%s' failed '%s' validation", fe.Namespace(), fe.Tag()),
			})
		}
		return errors.Wrap(out, errors.ValidationFailed, "configuration validation failed")
	}

	if len(c.TrainDataset) == 0 && c.TrainDatasetPath == "" {
		return errors.New(errors.DatasetInvalid, "train dataset is empty")
	}
	return nil
}

// ProviderConfig converts the model section into a provisioning request.
func (c *Config) ProviderConfig() llms.ProviderConfig {
	return llms.ProviderConfig{
		Provider: c.ModelConfig.Provider,
		Model:    c.ModelConfig.Model,
		APIKey:   c.ModelConfig.APIKey,
		BaseURL:  c.ModelConfig.APIBase,
	}
}

// MetricSettings converts the metric section into a build request.
func (c *Config) MetricSettings() metrics.Config {
	return metrics.Config{
		Kind:          c.MetricConfig.Type,
		CaseSensitive: c.MetricConfig.CaseSensitive,
		Code:          c.MetricConfig.Code,
	}
}
