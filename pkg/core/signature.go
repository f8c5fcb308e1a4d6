package core

import (
	"fmt"
	"strings"
)

// Field represents a single field in a signature.
type Field struct {
	Name        string
	Description string
	Prefix      string
}

// FieldOption configures optional Field attributes.
type FieldOption func(*Field)

// WithDescription sets the field description.
func WithDescription(description string) FieldOption {
	return func(f *Field) {
		f.Description = description
	}
}

// WithPrefix sets the output prefix the model is asked to emit before the
// field content.
func WithPrefix(prefix string) FieldOption {
	return func(f *Field) {
		f.Prefix = prefix
	}
}

// NewField creates a Field with the given name and options.
func NewField(name string, opts ...FieldOption) Field {
	f := Field{Name: name}
	for _, opt := range opts {
		opt(&f)
	}
	return f
}

// InputField represents an input field.
type InputField struct {
	Field
}

// OutputField represents an output field.
type OutputField struct {
	Field
}

// Signature represents the input and output specification of a module.
type Signature struct {
	Inputs      []InputField
	Outputs     []OutputField
	Instruction string
}

// NewSignature creates a new Signature with the given inputs and outputs.
func NewSignature(inputs []InputField, outputs []OutputField) Signature {
	return Signature{
		Inputs:  inputs,
		Outputs: outputs,
	}
}

// WithInstruction adds an instruction to the Signature.
func (s Signature) WithInstruction(instruction string) Signature {
	s.Instruction = instruction
	return s
}

// String returns a string representation of the Signature.
func (s Signature) String() string {
	var sb strings.Builder
	sb.WriteString("Inputs:\n")
	for _, input := range s.Inputs {
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", input.Name, input.Description))
	}
	sb.WriteString("Outputs:\n")
	for _, output := range s.Outputs {
		sb.WriteString(fmt.Sprintf("  - %s (%s)\n", output.Name, output.Description))
	}
	if s.Instruction != "" {
		sb.WriteString(fmt.Sprintf("Instruction: %s\n", s.Instruction))
	}
	return sb.String()
}

// ParseSignature parses a shorthand signature string ("question -> answer")
// into a Signature struct.
func ParseSignature(signatureStr string) (Signature, error) {
	parts := strings.Split(signatureStr, "->")
	if len(parts) != 2 {
		return Signature{}, fmt.Errorf("invalid signature format: %s", signatureStr)
	}

	inputs := parseInputFields(strings.TrimSpace(parts[0]))
	outputs := parseOutputFields(strings.TrimSpace(parts[1]))

	return NewSignature(inputs, outputs), nil
}

func parseInputFields(fieldsStr string) []InputField {
	fieldStrs := strings.Split(fieldsStr, ",")
	fields := make([]InputField, len(fieldStrs))
	for i, fieldStr := range fieldStrs {
		fields[i] = InputField{Field: Field{Name: strings.TrimSpace(fieldStr)}}
	}
	return fields
}

func parseOutputFields(fieldsStr string) []OutputField {
	fieldStrs := strings.Split(fieldsStr, ",")
	fields := make([]OutputField, len(fieldStrs))
	for i, fieldStr := range fieldStrs {
		fields[i] = OutputField{Field: Field{Name: strings.TrimSpace(fieldStr)}}
	}
	return fields
}
