package worker

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
)

// jobMetadata is written alongside the program state so a saved
// directory is self-describing.
type jobMetadata struct {
	JobID       string    `json:"job_id"`
	Optimizer   string    `json:"optimizer"`
	ProgramType string    `json:"program_type"`
	SavedAt     time.Time `json:"saved_at"`
}

// SaveCompiledProgram persists the compiled program under savePath and
// returns the directory path reported to the parent. Persistence is
// best-effort: failures surface through warn but never fail the job,
// since the optimization result itself is already in hand.
func SaveCompiledProgram(program core.Program, savePath, jobID, optimizer, programType string, warn func(format string, args ...interface{})) string {
	if err := os.MkdirAll(savePath, 0o755); err != nil {
		warn("failed to create save directory %q: %v", savePath, err)
		return savePath
	}

	if err := core.SaveProgram(&program, filepath.Join(savePath, "program.json")); err != nil {
		warn("failed to save compiled program: %v", err)
		return savePath
	}

	meta := jobMetadata{
		JobID:       jobID,
		Optimizer:   optimizer,
		ProgramType: programType,
		SavedAt:     time.Now().UTC(),
	}
	if data, err := json.MarshalIndent(meta, "", "  "); err == nil {
		if err := os.WriteFile(filepath.Join(savePath, "job.json"), data, 0o644); err != nil {
			warn("failed to save job metadata: %v", err)
		}
	}

	if abs, err := filepath.Abs(savePath); err == nil {
		return abs
	}
	return savePath
}
