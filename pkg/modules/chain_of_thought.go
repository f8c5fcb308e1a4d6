package modules

import (
	"context"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
)

// ChainOfThought wraps Predict with an extra rationale output field so the
// model reasons before committing to an answer.
type ChainOfThought struct {
	Predict *Predict
}

var _ core.Module = (*ChainOfThought)(nil)
var _ core.DemoProvider = (*ChainOfThought)(nil)
var _ core.DemoConsumer = (*ChainOfThought)(nil)

func NewChainOfThought(signature core.Signature) *ChainOfThought {
	return &ChainOfThought{
		Predict: NewPredict(appendRationaleField(signature)),
	}
}

func (c *ChainOfThought) Process(ctx context.Context, inputs map[string]interface{}, opts ...core.Option) (map[string]interface{}, error) {
	return c.Predict.Process(ctx, inputs, opts...)
}

func (c *ChainOfThought) GetSignature() core.Signature {
	return c.Predict.GetSignature()
}

// SetSignature re-derives the rationale field so optimizer-proposed
// instructions keep the reasoning step.
func (c *ChainOfThought) SetSignature(signature core.Signature) {
	if !hasRationaleField(signature) {
		signature = appendRationaleField(signature)
	}
	c.Predict.SetSignature(signature)
}

func (c *ChainOfThought) SetLLM(llm core.LLM) {
	c.Predict.SetLLM(llm)
}

func (c *ChainOfThought) Clone() core.Module {
	return &ChainOfThought{
		Predict: c.Predict.Clone().(*Predict),
	}
}

func (c *ChainOfThought) GetDemos() []core.Example {
	return c.Predict.GetDemos()
}

func (c *ChainOfThought) SetDemos(demos []core.Example) {
	c.Predict.SetDemos(demos)
}

func appendRationaleField(signature core.Signature) core.Signature {
	newSignature := signature
	newSignature.Outputs = append([]core.OutputField{
		{Field: core.Field{Name: "rationale", Prefix: "Reasoning: Let's think step by step."}},
	}, newSignature.Outputs...)
	return newSignature
}

func hasRationaleField(signature core.Signature) bool {
	for _, f := range signature.Outputs {
		if f.Name == "rationale" {
			return true
		}
	}
	return false
}
