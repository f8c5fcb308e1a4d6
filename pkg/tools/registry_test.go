package tools

import (
	"context"
	"testing"

	models "github.com/XiaoConstantine/mcp-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool(name string) Tool {
	return NewFuncTool(name, "echoes its input",
		models.InputSchema{
			Type: "object",
			Properties: map[string]models.ParameterSchema{
				"text": {Type: "string", Description: "text to echo", Required: true},
			},
		},
		func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
			return &models.CallToolResult{
				Content: []models.Content{models.TextContent{Type: "text", Text: args["text"].(string)}},
			}, nil
		})
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	require.NoError(t, registry.Register(echoTool("echo")))

	tool, err := registry.Get("echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", tool.Name())
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	require.NoError(t, registry.Register(echoTool("echo")))

	err := registry.Register(echoTool("echo"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegistryRejectsNil(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	require.Error(t, registry.Register(nil))
}

func TestRegistryGetMissing(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	_, err := registry.Get("nope")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool not found")
}

func TestRegistryListSorted(t *testing.T) {
	registry := NewInMemoryToolRegistry()
	require.NoError(t, registry.Register(echoTool("zeta")))
	require.NoError(t, registry.Register(echoTool("alpha")))

	list := registry.List()
	require.Len(t, list, 2)
	assert.Equal(t, "alpha", list[0].Name())
	assert.Equal(t, "zeta", list[1].Name())
}

func TestFuncToolValidatesRequiredParams(t *testing.T) {
	tool := echoTool("echo")

	_, err := tool.Call(context.Background(), map[string]interface{}{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required parameter")

	result, err := tool.Call(context.Background(), map[string]interface{}{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", ExtractContentText(result.Content))
}

func TestExtractContentText(t *testing.T) {
	content := []models.Content{
		models.TextContent{Type: "text", Text: "one"},
		models.TextContent{Type: "text", Text: "two"},
	}
	assert.Equal(t, "one\ntwo", ExtractContentText(content))
	assert.Equal(t, "", ExtractContentText(nil))
}
