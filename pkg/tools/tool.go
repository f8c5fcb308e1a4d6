package tools

import (
	"context"
	"strings"

	models "github.com/XiaoConstantine/mcp-go/pkg/model"
)

// Tool is a callable capability a reasoning module can invoke between
// generation steps.
type Tool interface {
	// Name returns the tool's identifier
	Name() string

	// Description returns a human-readable explanation of the tool's purpose
	Description() string

	// InputSchema returns the expected parameter structure
	InputSchema() models.InputSchema

	// Call executes the tool with the provided arguments
	Call(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error)
}

// ExtractContentText flattens a tool result's content blocks into the
// observation string fed back to the model.
func ExtractContentText(content []models.Content) string {
	var parts []string
	for _, c := range content {
		if text, ok := c.(models.TextContent); ok {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}
