package datasets

import (
	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
)

// RawPair is one input/output example as it appears in the job
// configuration.
type RawPair struct {
	Input  string `json:"input" yaml:"input"`
	Output string `json:"output" yaml:"output"`
}

// Prepare converts raw configuration pairs into typed examples. The label
// names the dataset in error messages ("train", "validation").
func Prepare(raw []RawPair, label string) ([]core.Example, error) {
	if len(raw) == 0 {
		return nil, errors.WithFields(
			errors.Newf(errors.DatasetInvalid, "%s dataset is empty", label),
			errors.Fields{
				"dataset": label,
			})
	}

	examples := make([]core.Example, len(raw))
	for i, pair := range raw {
		if pair.Input == "" || pair.Output == "" {
			return nil, errors.WithFields(
				errors.Newf(errors.DatasetInvalid, "%s[%d] missing 'input' or 'output' field", label, i),
				errors.Fields{
					"dataset": label,
					"index":   i,
				})
		}
		examples[i] = core.Example{
			Inputs:  map[string]interface{}{"question": pair.Input},
			Outputs: map[string]interface{}{"answer": pair.Output},
		}
	}
	return examples, nil
}

// AutoSplit divides examples 80/20 by position into training and
// validation sets. Sets too small to split use the full set for both
// sides; the returned note says so, for surfacing as a progress message.
func AutoSplit(examples []core.Example) (train, val []core.Example, note string) {
	cut := int(float64(len(examples)) * 0.8)
	train = examples[:cut]
	val = examples[cut:]

	if len(train) == 0 || len(val) == 0 {
		train = examples
		val = examples
		note = "dataset too small to split; using the full set for both training and validation"
	}
	return train, val, note
}
