package core

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// demoStub is a module that carries demonstrations, for exercising the
// save/load roundtrip.
type demoStub struct {
	BaseModule
	demos []Example
}

func (d *demoStub) Process(ctx context.Context, inputs map[string]interface{}, opts ...Option) (map[string]interface{}, error) {
	return nil, nil
}

func (d *demoStub) Clone() Module {
	return &demoStub{
		BaseModule: *d.BaseModule.Clone().(*BaseModule),
		demos:      append([]Example{}, d.demos...),
	}
}

func (d *demoStub) GetDemos() []Example      { return d.demos }
func (d *demoStub) SetDemos(demos []Example) { d.demos = demos }

func TestSaveAndLoadProgram(t *testing.T) {
	demos := []Example{{
		Inputs:  map[string]interface{}{"question": "q"},
		Outputs: map[string]interface{}{"answer": "a"},
	}}

	source := NewProgram(map[string]Module{
		"predict": &demoStub{BaseModule: *NewModule(Signature{}), demos: demos},
	}, nil)

	path := filepath.Join(t.TempDir(), "program.json")
	require.NoError(t, SaveProgram(&source, path))

	target := NewProgram(map[string]Module{
		"predict": &demoStub{BaseModule: *NewModule(Signature{})},
	}, nil)
	require.NoError(t, LoadProgram(&target, path))

	loaded := target.Modules["predict"].(*demoStub).GetDemos()
	require.Len(t, loaded, 1)
	assert.Equal(t, "q", loaded[0].Question())
	assert.Equal(t, "a", loaded[0].Answer())
}

func TestLoadProgramSkipsMismatchedModules(t *testing.T) {
	source := NewProgram(map[string]Module{
		"predict": &demoStub{BaseModule: *NewModule(Signature{}), demos: []Example{{}}},
	}, nil)

	path := filepath.Join(t.TempDir(), "program.json")
	require.NoError(t, SaveProgram(&source, path))

	// Different module name: nothing to restore, but loading succeeds.
	target := NewProgram(map[string]Module{
		"other": &demoStub{BaseModule: *NewModule(Signature{})},
	}, nil)
	require.NoError(t, LoadProgram(&target, path))
	assert.Empty(t, target.Modules["other"].(*demoStub).GetDemos())
}

func TestLoadProgramMissingFile(t *testing.T) {
	target := NewProgram(map[string]Module{}, nil)
	err := LoadProgram(&target, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
