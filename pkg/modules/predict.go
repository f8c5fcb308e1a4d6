package modules

import (
	"context"
	"fmt"
	"strings"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
)

// Predict is the basic single-step module: format a prompt from the
// signature plus any attached demonstrations, call the model once, and
// parse the completion back into the signature's output fields.
type Predict struct {
	core.BaseModule
	Demos          []core.Example
	defaultOptions *core.ModuleOptions
}

var _ core.Module = (*Predict)(nil)
var _ core.DemoProvider = (*Predict)(nil)
var _ core.DemoConsumer = (*Predict)(nil)

func NewPredict(signature core.Signature) *Predict {
	return &Predict{
		BaseModule: *core.NewModule(signature),
		Demos:      []core.Example{},
	}
}

func (p *Predict) WithDefaultOptions(opts ...core.Option) *Predict {
	options := &core.ModuleOptions{}
	for _, opt := range opts {
		opt(options)
	}
	p.defaultOptions = options
	return p
}

func (p *Predict) Process(ctx context.Context, inputs map[string]interface{}, opts ...core.Option) (map[string]interface{}, error) {
	logger := logging.GetLogger()
	callOptions := &core.ModuleOptions{}
	for _, opt := range opts {
		opt(callOptions)
	}
	finalOptions := p.defaultOptions.MergeWith(callOptions)

	if err := p.ValidateInputs(inputs); err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ValidationFailed, "input validation failed"),
			errors.Fields{
				"module": "Predict",
			})
	}

	if p.LLM == nil {
		return nil, errors.New(errors.InvalidInput, "no language model set for module")
	}

	signature := p.GetSignature()
	prompt := FormatPrompt(signature, p.Demos, inputs)
	logger.Debug(ctx, "Generated prompt: %v", prompt)

	resp, err := p.LLM.Generate(ctx, prompt, finalOptions.GenerateOptions...)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.LLMGenerationFailed, "failed to generate prediction"),
			errors.Fields{
				"module": "Predict",
				"model":  p.LLM.ModelID(),
			})
	}
	logger.Debug(ctx, "LLM completion: %v", resp.Content)

	outputs := ParseCompletion(resp.Content, signature)
	return p.FormatOutputs(outputs), nil
}

func (p *Predict) Clone() core.Module {
	return &Predict{
		BaseModule:     *p.BaseModule.Clone().(*core.BaseModule),
		Demos:          append([]core.Example{}, p.Demos...),
		defaultOptions: p.defaultOptions,
	}
}

func (p *Predict) GetDemos() []core.Example {
	return p.Demos
}

func (p *Predict) SetDemos(demos []core.Example) {
	p.Demos = append([]core.Example{}, demos...)
}

// FormatPrompt renders the task framing, instruction, demonstrations and
// current input into a single completion prompt.
func FormatPrompt(signature core.Signature, demos []core.Example, inputs map[string]interface{}) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Given the fields '%s', produce the fields '%s'.\n\n",
		joinInputNames(signature.Inputs),
		joinOutputNames(signature.Outputs),
	))

	for _, field := range signature.Outputs {
		if field.Prefix != "" {
			sb.WriteString(fmt.Sprintf("The %s field should start with '%s' followed by the content.\n",
				field.Name, field.Prefix))
		}
		if field.Description != "" {
			sb.WriteString(field.Description)
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")

	if signature.Instruction != "" {
		sb.WriteString(signature.Instruction + "\n\n")
	}

	for _, demo := range demos {
		sb.WriteString("---\n\n")
		for _, field := range signature.Inputs {
			sb.WriteString(fmt.Sprintf("%s: %s\n", field.Name, formatValue(demo.Inputs[field.Name])))
		}
		for _, field := range signature.Outputs {
			sb.WriteString(fmt.Sprintf("%s: %s\n", fieldMarker(field), formatValue(demo.Outputs[field.Name])))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("---\n\n")
	for _, field := range signature.Inputs {
		sb.WriteString(fmt.Sprintf("%s: %s\n", field.Name, formatValue(inputs[field.Name])))
	}

	return sb.String()
}

// ParseCompletion splits a completion into the signature's output fields
// by their markers. A single-output signature with no marker in the
// completion gets the whole completion as that field's value.
func ParseCompletion(completion string, signature core.Signature) map[string]interface{} {
	outputs := make(map[string]interface{})

	type section struct {
		name    string
		content []string
	}

	sections := make(map[string]*section)
	for _, field := range signature.Outputs {
		sections[field.Name] = &section{name: field.Name}
	}

	var current *section
	for _, line := range strings.Split(completion, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		foundNewSection := false
		for _, field := range signature.Outputs {
			marker := markerPrefix(field)
			if strings.HasPrefix(strings.ToLower(line), strings.ToLower(marker)) {
				current = sections[field.Name]
				rest := strings.TrimSpace(line[len(marker):])
				if rest != "" {
					current.content = append(current.content, rest)
				}
				foundNewSection = true
				break
			}
		}

		if !foundNewSection && current != nil {
			current.content = append(current.content, line)
		}
	}

	for name, section := range sections {
		if len(section.content) > 0 {
			outputs[name] = strings.TrimSpace(strings.Join(section.content, "\n"))
		}
	}

	// Models often answer directly without repeating the marker.
	if len(signature.Outputs) == 1 {
		name := signature.Outputs[0].Name
		if _, ok := outputs[name]; !ok {
			if trimmed := strings.TrimSpace(completion); trimmed != "" {
				outputs[name] = trimmed
			}
		}
	}

	return outputs
}

// fieldMarker is the label a demo or completion uses for a field: the
// explicit prefix when set, otherwise the field name with a colon.
func fieldMarker(field core.OutputField) string {
	if field.Prefix != "" {
		return strings.TrimSuffix(strings.TrimSpace(field.Prefix), ":")
	}
	return field.Name
}

func markerPrefix(field core.OutputField) string {
	if field.Prefix != "" {
		return strings.TrimSpace(field.Prefix)
	}
	return field.Name + ":"
}

// formatValue renders a field value for the prompt; absent values render
// empty rather than as "<nil>".
func formatValue(v interface{}) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func joinInputNames(fields []core.InputField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

func joinOutputNames(fields []core.OutputField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}
