package modules

import (
	"context"
	"testing"

	models "github.com/XiaoConstantine/mcp-go/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ojasjagtap/prompt-ide/internal/testutil"
	"github.com/ojasjagtap/prompt-ide/pkg/tools"
)

func searchTool(t *testing.T, calls *int) tools.Tool {
	t.Helper()
	return tools.NewFuncTool("search", "Looks up facts.",
		models.InputSchema{
			Type: "object",
			Properties: map[string]models.ParameterSchema{
				"query": {Type: "string", Description: "what to look up", Required: true},
			},
		},
		func(ctx context.Context, args map[string]interface{}) (*models.CallToolResult, error) {
			*calls++
			return &models.CallToolResult{
				Content: []models.Content{models.TextContent{Type: "text", Text: "Paris"}},
			}, nil
		})
}

func TestReActSignatureFields(t *testing.T) {
	react := NewReAct(qaSignature(), tools.NewInMemoryToolRegistry(), 3)

	signature := react.GetSignature()
	names := make([]string, len(signature.Outputs))
	for i, f := range signature.Outputs {
		names[i] = f.Name
	}
	assert.Equal(t, []string{"thought", "action", "answer"}, names)
	assert.Contains(t, signature.Instruction, "Available tools")
}

func TestReActFinishReturnsAnswer(t *testing.T) {
	var toolCalls int
	registry := tools.NewInMemoryToolRegistry()
	require.NoError(t, registry.Register(searchTool(t, &toolCalls)))

	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("Thought: I should look it up.\n"+
			"Action: <action><tool_name>search</tool_name><arguments><arg key=\"query\">capital of France</arg></arguments></action>", nil).
		Once()
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("Thought: The observation answers it.\nAction: Finish\nanswer: Paris", nil).
		Once()

	react := NewReAct(qaSignature(), registry, 5)
	react.SetLLM(mockLLM)

	outputs, err := react.Process(context.Background(), map[string]interface{}{
		"question": "What is the capital of France?",
	})
	require.NoError(t, err)
	assert.Equal(t, "Paris", outputs["answer"])
	assert.Equal(t, 1, toolCalls)
	mockLLM.AssertExpectations(t)
}

func TestReActFallsBackToExtraction(t *testing.T) {
	registry := tools.NewInMemoryToolRegistry()

	mockLLM := new(testutil.MockLLM)
	// Two loop iterations that never produce an action, then the
	// trajectory extraction call.
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("Thought: still thinking", nil).
		Twice()
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("answer: best guess", nil).
		Once()

	react := NewReAct(qaSignature(), registry, 2)
	react.SetLLM(mockLLM)

	outputs, err := react.Process(context.Background(), map[string]interface{}{
		"question": "hard question",
	})
	require.NoError(t, err)
	assert.Equal(t, "best guess", outputs["answer"])
	mockLLM.AssertExpectations(t)
}

func TestReActUnknownToolBecomesObservation(t *testing.T) {
	registry := tools.NewInMemoryToolRegistry()

	mockLLM := new(testutil.MockLLM)
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Return("Thought: try a tool\n"+
			"Action: <action><tool_name>missing</tool_name></action>", nil).
		Once()
	var captured string
	mockLLM.On("Generate", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { captured = args.String(1) }).
		Return("Thought: give up\nAction: Finish\nanswer: none", nil).
		Once()

	react := NewReAct(qaSignature(), registry, 5)
	react.SetLLM(mockLLM)

	_, err := react.Process(context.Background(), map[string]interface{}{"question": "q"})
	require.NoError(t, err)
	assert.Contains(t, captured, `tool "missing" not found`)
}

func TestParseAction(t *testing.T) {
	name, args, err := parseAction("Finish")
	require.NoError(t, err)
	assert.Equal(t, "finish", name)
	assert.Empty(t, args)

	name, args, err = parseAction(`<action><tool_name>search</tool_name><arguments><arg key="query">x</arg></arguments></action>`)
	require.NoError(t, err)
	assert.Equal(t, "search", name)
	assert.Equal(t, "x", args["query"])

	_, _, err = parseAction("not xml at all")
	require.Error(t, err)
}
