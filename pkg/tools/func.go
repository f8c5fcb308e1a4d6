package tools

import (
	"context"

	models "github.com/XiaoConstantine/mcp-go/pkg/model"

	"github.com/ojasjagtap/prompt-ide/pkg/errors"
)

// ToolFunc represents a function that can be called as a tool.
type ToolFunc func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error)

// FuncTool wraps a Go function as a Tool implementation.
type FuncTool struct {
	name        string
	description string
	schema      models.InputSchema
	fn          ToolFunc
}

// NewFuncTool creates a new function-based tool.
func NewFuncTool(name, description string, schema models.InputSchema, fn ToolFunc) *FuncTool {
	return &FuncTool{
		name:        name,
		description: description,
		schema:      schema,
		fn:          fn,
	}
}

func (t *FuncTool) Name() string {
	return t.name
}

func (t *FuncTool) Description() string {
	return t.description
}

func (t *FuncTool) InputSchema() models.InputSchema {
	return t.schema
}

// Call executes the wrapped function with the provided arguments.
func (t *FuncTool) Call(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
	if err := t.validate(args); err != nil {
		return nil, err
	}
	return t.fn(ctx, args)
}

func (t *FuncTool) validate(args map[string]interface{}) error {
	for name, param := range t.schema.Properties {
		if param.Required {
			if _, exists := args[name]; !exists {
				return errors.WithFields(
					errors.New(errors.InvalidInput, "missing required parameter"),
					errors.Fields{
						"tool_name": t.name,
						"parameter": name,
					})
			}
		}
	}
	return nil
}

var _ Tool = (*FuncTool)(nil)
