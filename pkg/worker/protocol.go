package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ojasjagtap/prompt-ide/pkg/logging"
)

// Message types written to stdout. Every line is a single JSON object;
// the parent process parses them as they arrive.
const (
	TypeProgress = "progress"
	TypeSuccess  = "success"
	TypeError    = "error"
)

// ProgressMessage reports a pipeline stage transition. Data carries
// optional structured payload (job id, split sizes).
type ProgressMessage struct {
	Type    string                 `json:"type"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data,omitempty"`
}

// DatasetSizes reports the effective train/validation split.
type DatasetSizes struct {
	Train int `json:"train"`
	Val   int `json:"val"`
}

// PredictorInfo describes one predictor of the compiled program.
type PredictorInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Instruction string `json:"instruction,omitempty"`
	DemoCount   int    `json:"demo_count"`
}

// DemoInfo is one demonstration attached to a predictor.
type DemoInfo struct {
	Predictor string `json:"predictor"`
	Input     string `json:"input"`
	Output    string `json:"output"`
}

// SuccessMessage is the terminal payload of a completed job.
type SuccessMessage struct {
	Type                string            `json:"type"`
	ValidationScore     float64           `json:"validation_score"`
	OptimizedSignature  map[string]string `json:"optimized_signature"`
	OptimizedDemos      []DemoInfo        `json:"optimized_demos"`
	Predictors          []PredictorInfo   `json:"predictors"`
	CompiledProgramPath string            `json:"compiled_program_path"`
	DatasetSizes        DatasetSizes      `json:"dataset_sizes"`
	Optimizer           string            `json:"optimizer"`
	ProgramType         string            `json:"program_type"`
}

// ErrorMessage is the terminal payload of a failed job.
type ErrorMessage struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Traceback string `json:"traceback"`
}

// Emitter serializes protocol messages onto a single writer, one JSON
// object per line. It enforces the terminal invariant: after a success
// or error message nothing else is written.
type Emitter struct {
	mu       sync.Mutex
	w        io.Writer
	terminal bool
}

// NewEmitter creates an emitter writing to w (stdout in production).
func NewEmitter(w io.Writer) *Emitter {
	return &Emitter{w: w}
}

// Terminal reports whether a terminal message has been emitted.
func (e *Emitter) Terminal() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.terminal
}

// Progress emits a progress message. Dropped silently once the stream
// is terminal.
func (e *Emitter) Progress(message string, data map[string]interface{}) {
	e.emit(ProgressMessage{Type: TypeProgress, Message: message, Data: data}, false)
}

// Progressf emits a formatted progress message without structured data.
func (e *Emitter) Progressf(format string, args ...interface{}) {
	e.Progress(fmt.Sprintf(format, args...), nil)
}

// Success emits the terminal success message.
func (e *Emitter) Success(msg SuccessMessage) {
	msg.Type = TypeSuccess
	e.emit(msg, true)
}

// Error emits the terminal error message.
func (e *Emitter) Error(message, traceback string) {
	e.emit(ErrorMessage{Type: TypeError, Message: message, Traceback: traceback}, true)
}

func (e *Emitter) emit(msg interface{}, terminal bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.terminal {
		logging.GetLogger().Warn(context.Background(), "dropping message after terminal: %+v", msg)
		return
	}

	line, err := json.Marshal(msg)
	if err != nil {
		logging.GetLogger().Error(context.Background(), "failed to marshal protocol message: %v", err)
		return
	}
	line = append(line, '\n')
	if _, err := e.w.Write(line); err != nil {
		logging.GetLogger().Error(context.Background(), "failed to write protocol message: %v", err)
	}
	if f, ok := e.w.(interface{ Sync() error }); ok {
		_ = f.Sync()
	}

	if terminal {
		e.terminal = true
	}
}
