package testutil

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
)

// MockLLM is a mock implementation of core.LLM.
type MockLLM struct {
	mock.Mock

	Provider string
	Model    string
	Caps     []core.Capability
}

func (m *MockLLM) Generate(ctx context.Context, prompt string, opts ...core.GenerateOption) (*core.LLMResponse, error) {
	args := m.Called(ctx, prompt, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	if response, ok := args.Get(0).(*core.LLMResponse); ok {
		return response, args.Error(1)
	}
	// Fall back to string conversion for simple cases.
	return &core.LLMResponse{Content: args.String(0)}, args.Error(1)
}

func (m *MockLLM) CreateEmbedding(ctx context.Context, input string, opts ...core.EmbeddingOption) (*core.EmbeddingResult, error) {
	args := m.Called(ctx, input, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.EmbeddingResult), args.Error(1)
}

func (m *MockLLM) ProviderName() string {
	if m.Provider != "" {
		return m.Provider
	}
	return "mock"
}

func (m *MockLLM) ModelID() string {
	if m.Model != "" {
		return m.Model
	}
	return "mock-model"
}

func (m *MockLLM) Capabilities() []core.Capability {
	if m.Caps != nil {
		return m.Caps
	}
	return []core.Capability{core.CapabilityCompletion, core.CapabilityChat}
}

var _ core.LLM = (*MockLLM)(nil)
