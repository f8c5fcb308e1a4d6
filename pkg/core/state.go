package core

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
)

// Version is stamped into saved program state for compatibility checks.
const Version = "0.1.0"

// SavedExample represents a serializable Example.
type SavedExample struct {
	Inputs  map[string]interface{} `json:"inputs"`
	Outputs map[string]interface{} `json:"outputs"`
}

// SavedModuleState represents the serializable state of a single module.
type SavedModuleState struct {
	Signature  string         `json:"signature"`       // Signature string representation (read-only during load)
	Demos      []SavedExample `json:"demos,omitempty"` // Saved demos, if the module provides them
	ModuleType string         `json:"module_type"`     // Concrete type name (e.g., "Predict")
}

// SavedProgramState represents the serializable state of an entire program.
type SavedProgramState struct {
	Modules  map[string]SavedModuleState `json:"modules"`
	Metadata map[string]string           `json:"metadata"`
}

// SaveProgram serializes the current state of the Program's modules to a JSON file.
func SaveProgram(p *Program, filepath string) error {
	state := SavedProgramState{
		Modules: make(map[string]SavedModuleState),
		Metadata: map[string]string{
			"worker_version": Version,
		},
	}

	for name, module := range p.Modules {
		var demos []Example
		if demoProvider, ok := module.(DemoProvider); ok {
			demos = demoProvider.GetDemos()
		}

		savedDemos := make([]SavedExample, len(demos))
		for i, demo := range demos {
			savedDemos[i] = SavedExample(demo)
		}

		state.Modules[name] = SavedModuleState{
			Signature:  module.GetSignature().String(),
			Demos:      savedDemos,
			ModuleType: reflect.TypeOf(module).Elem().Name(),
		}
	}

	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal program state to JSON: %w", err)
	}

	if err := os.WriteFile(filepath, jsonData, 0644); err != nil {
		return fmt.Errorf("failed to write program state to file '%s': %w", filepath, err)
	}

	return nil
}

// LoadProgram loads program state (currently only demos) from a JSON file
// into an existing Program instance. It assumes the Program `p` has already
// been constructed with the correct architecture (modules and signatures).
func LoadProgram(p *Program, filepath string) error {
	jsonData, err := os.ReadFile(filepath)
	if err != nil {
		return fmt.Errorf("failed to read program state file '%s': %w", filepath, err)
	}

	var loadedState SavedProgramState
	if err := json.Unmarshal(jsonData, &loadedState); err != nil {
		return fmt.Errorf("failed to unmarshal program state from JSON: %w", err)
	}

	for name, module := range p.Modules {
		savedModuleState, ok := loadedState.Modules[name]
		if !ok {
			continue
		}

		currentModuleType := reflect.TypeOf(module).Elem().Name()
		if currentModuleType != savedModuleState.ModuleType {
			// Saved state was produced by a different program shape.
			continue
		}

		if demoConsumer, ok := module.(DemoConsumer); ok && len(savedModuleState.Demos) > 0 {
			demosToLoad := make([]Example, len(savedModuleState.Demos))
			for i, savedDemo := range savedModuleState.Demos {
				demosToLoad[i] = Example(savedDemo)
			}
			demoConsumer.SetDemos(demosToLoad)
		}
	}

	return nil
}
