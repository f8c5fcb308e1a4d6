package core

import (
	"context"
	"errors"
)

// Example represents a single training/evaluation example. The keys of
// Inputs are the example's input-field markers; everything the model is
// expected to produce lives in Outputs.
type Example struct {
	Inputs  map[string]interface{}
	Outputs map[string]interface{}
}

// Answer returns the example's answer field as a string, or "" when absent.
// Missing answers are treated as empty, never as an error.
func (e Example) Answer() string {
	return StringField(e.Outputs, "answer")
}

// Question returns the example's question field as a string, or "" when absent.
func (e Example) Question() string {
	return StringField(e.Inputs, "question")
}

// StringField reads an optional string-ish field from a prediction or
// example map. Absent or nil values become the empty string.
func StringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return toString(v)
}

// Program represents a complete pipeline of named modules plus the forward
// function that wires them together.
type Program struct {
	Modules map[string]Module
	Forward func(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error)
}

// NewProgram creates a new Program with the given modules and forward function.
func NewProgram(modules map[string]Module, forward func(context.Context, map[string]interface{}) (map[string]interface{}, error)) Program {
	return Program{
		Modules: modules,
		Forward: forward,
	}
}

// Execute runs the program with the given inputs. Programs built without
// an explicit forward function run their modules in name order, feeding
// each module's outputs into the next module's inputs. The default keeps
// working after Clone, where a custom closure would still point at the
// pre-clone modules.
func (p Program) Execute(ctx context.Context, inputs map[string]interface{}) (map[string]interface{}, error) {
	if p.Forward != nil {
		return p.Forward(ctx, inputs)
	}
	if len(p.Modules) == 0 {
		return nil, errors.New("program has no modules and no forward function")
	}

	state := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		state[k] = v
	}

	var outputs map[string]interface{}
	for _, name := range SortedModuleNames(p.Modules) {
		var err error
		outputs, err = p.Modules[name].Process(ctx, state)
		if err != nil {
			return nil, err
		}
		for k, v := range outputs {
			state[k] = v
		}
	}
	return outputs, nil
}

// GetSignature returns the overall signature of the program, taken from
// the first module found (single-predictor programs have exactly one).
func (p Program) GetSignature() Signature {
	for _, name := range SortedModuleNames(p.Modules) {
		return p.Modules[name].GetSignature()
	}
	return Signature{}
}

// GetModules returns the program's modules in deterministic name order.
func (p Program) GetModules() []Module {
	names := SortedModuleNames(p.Modules)
	modules := make([]Module, 0, len(names))
	for _, name := range names {
		modules = append(modules, p.Modules[name])
	}
	return modules
}

// Clone creates a deep copy of the Program.
func (p Program) Clone() Program {
	modulesCopy := make(map[string]Module)
	for name, module := range p.Modules {
		modulesCopy[name] = module.Clone()
	}

	return Program{
		Modules: modulesCopy,
		Forward: p.Forward, // Note: We're copying the pointer to the forward function
	}
}

// AddModule adds a new module to the Program.
func (p *Program) AddModule(name string, module Module) {
	p.Modules[name] = module
}

// SetForward sets the forward function for the Program.
func (p *Program) SetForward(forward func(context.Context, map[string]interface{}) (map[string]interface{}, error)) {
	p.Forward = forward
}
