package modules

import (
	"context"
	"encoding/xml"
	"fmt"
	"sort"
	"strings"

	"github.com/ojasjagtap/prompt-ide/pkg/core"
	"github.com/ojasjagtap/prompt-ide/pkg/errors"
	"github.com/ojasjagtap/prompt-ide/pkg/logging"
	"github.com/ojasjagtap/prompt-ide/pkg/tools"
)

// ReAct implements the agent loop: reason, act, observe. A Predict module
// proposes thoughts and actions, tools from the registry supply
// observations. If the loop exhausts its iteration budget without a
// Finish action, a fallback ChainOfThought extracts an answer from the
// gathered trajectory.
type ReAct struct {
	core.BaseModule
	Predict  *Predict
	Extract  *ChainOfThought
	Registry *tools.InMemoryToolRegistry
	MaxIters int
}

var _ core.Module = (*ReAct)(nil)
var _ core.DemoProvider = (*ReAct)(nil)
var _ core.DemoConsumer = (*ReAct)(nil)

// NewReAct creates a new ReAct module over the given tool registry.
func NewReAct(signature core.Signature, registry *tools.InMemoryToolRegistry, maxIters int) *ReAct {
	react := &ReAct{
		Registry: registry,
		MaxIters: maxIters,
	}

	modifiedSignature := react.appendReActFields(signature)
	react.BaseModule = *core.NewModule(modifiedSignature)
	react.Predict = NewPredict(modifiedSignature)
	react.Extract = NewChainOfThought(createExtractSignature(signature))

	return react
}

// createExtractSignature builds the fallback extraction signature: the
// original inputs plus the accumulated trajectory, producing the original
// outputs.
func createExtractSignature(originalSignature core.Signature) core.Signature {
	inputs := make([]core.InputField, len(originalSignature.Inputs)+1)
	copy(inputs, originalSignature.Inputs)
	inputs[len(originalSignature.Inputs)] = core.InputField{
		Field: core.NewField("trajectory",
			core.WithDescription("The complete history of thoughts, actions, and observations so far")),
	}

	return core.NewSignature(inputs, originalSignature.Outputs).
		WithInstruction("Based on the trajectory of thoughts, actions, and observations above, provide the final answer.")
}

// SetLLM sets the language model for all internal modules.
func (r *ReAct) SetLLM(llm core.LLM) {
	r.BaseModule.SetLLM(llm)
	r.Predict.SetLLM(llm)
	r.Extract.SetLLM(llm)
}

func (r *ReAct) SetSignature(signature core.Signature) {
	modified := r.appendReActFields(signature)
	r.BaseModule.SetSignature(modified)
	r.Predict.SetSignature(modified)
}

func (r *ReAct) GetDemos() []core.Example {
	return r.Predict.GetDemos()
}

func (r *ReAct) SetDemos(demos []core.Example) {
	r.Predict.SetDemos(demos)
}

// Process executes the ReAct loop.
func (r *ReAct) Process(ctx context.Context, inputs map[string]interface{}, opts ...core.Option) (map[string]interface{}, error) {
	logger := logging.GetLogger()

	state := make(map[string]interface{}, len(inputs))
	for k, v := range inputs {
		state[k] = v
	}

	var trajectory strings.Builder

	for i := 0; i < r.MaxIters; i++ {
		logger.Debug(ctx, "react iteration %d/%d", i+1, r.MaxIters)

		state["trajectory"] = trajectory.String()
		prediction, err := r.Predict.Process(ctx, state, opts...)
		if err != nil {
			return nil, errors.WithFields(
				errors.Wrap(err, errors.LLMGenerationFailed, "prediction step failed"),
				errors.Fields{
					"module":    "ReAct",
					"iteration": i + 1,
				})
		}

		thought := core.StringField(prediction, "thought")
		actionStr := core.StringField(prediction, "action")
		if actionStr == "" {
			fmt.Fprintf(&trajectory, "Iteration %d:\nThought: %s\nAction: MISSING\nObservation: Error: missing action field\n",
				i+1, thought)
			continue
		}

		toolName, args, err := parseAction(actionStr)
		if err != nil {
			fmt.Fprintf(&trajectory, "Iteration %d:\nThought: %s\nAction: %s\nObservation: Error: action parsing failed: %v\n",
				i+1, thought, actionStr, err)
			continue
		}

		if strings.EqualFold(toolName, "finish") {
			logger.Debug(ctx, "react finished after %d iterations", i+1)
			return prediction, nil
		}

		observation := r.callTool(ctx, toolName, args)
		fmt.Fprintf(&trajectory, "Iteration %d:\nThought: %s\nAction: %s\nObservation: %s\n",
			i+1, thought, actionStr, observation)
	}

	logger.Warn(ctx, "react loop hit %d iterations without a Finish action, extracting from trajectory", r.MaxIters)
	return r.extractFromTrajectory(ctx, inputs, trajectory.String(), opts...)
}

func (r *ReAct) callTool(ctx context.Context, toolName string, args map[string]interface{}) string {
	tool, err := r.Registry.Get(toolName)
	if err != nil {
		return fmt.Sprintf("Error: tool %q not found", toolName)
	}

	result, err := tool.Call(ctx, args)
	if err != nil {
		return fmt.Sprintf("Error executing tool %q: %v", toolName, err)
	}
	if result.IsError {
		return fmt.Sprintf("Error from tool %q: %s", toolName, tools.ExtractContentText(result.Content))
	}
	return tools.ExtractContentText(result.Content)
}

func (r *ReAct) extractFromTrajectory(ctx context.Context, originalInputs map[string]interface{}, trajectory string, opts ...core.Option) (map[string]interface{}, error) {
	extractInputs := make(map[string]interface{}, len(originalInputs)+1)
	for k, v := range originalInputs {
		extractInputs[k] = v
	}
	extractInputs["trajectory"] = trajectory

	result, err := r.Extract.Process(ctx, extractInputs, opts...)
	if err != nil {
		return nil, errors.Wrap(err, errors.LLMGenerationFailed, "fallback extraction failed after max iterations")
	}
	return result, nil
}

func (r *ReAct) Clone() core.Module {
	return &ReAct{
		BaseModule: *r.BaseModule.Clone().(*core.BaseModule),
		Predict:    r.Predict.Clone().(*Predict),
		Extract:    r.Extract.Clone().(*ChainOfThought),
		Registry:   r.Registry,
		MaxIters:   r.MaxIters,
	}
}

// parseAction interprets the model's action field: either a bare "Finish"
// or an XML action block naming a tool and its arguments.
func parseAction(actionStr string) (string, map[string]interface{}, error) {
	actionStr = strings.TrimSpace(actionStr)
	if strings.EqualFold(actionStr, "finish") {
		return "finish", map[string]interface{}{}, nil
	}

	var xmlAction tools.XMLAction
	if err := xml.Unmarshal([]byte(actionStr), &xmlAction); err != nil {
		return "", nil, fmt.Errorf("action is not a valid XML block: %w", err)
	}

	toolName := xmlAction.ToolName
	if strings.EqualFold(toolName, "finish") || strings.EqualFold(strings.TrimSpace(xmlAction.Content), "finish") {
		toolName = "finish"
	}

	return toolName, xmlAction.GetArgumentsMap(), nil
}

// appendReActFields adds the loop's working fields around the task's own
// signature. Signatures that already carry them (optimizers hand back the
// modified signature) pass through unchanged.
func (r *ReAct) appendReActFields(signature core.Signature) core.Signature {
	for _, f := range signature.Outputs {
		if f.Name == "thought" {
			return signature
		}
	}

	newSignature := signature
	newSignature.Instruction = reactInstruction(r.Registry) + "\n" + signature.Instruction

	newSignature.Inputs = append(append([]core.InputField{}, signature.Inputs...),
		core.InputField{Field: core.NewField("trajectory",
			core.WithDescription("Previous thoughts, actions, and observations"))})

	reactFields := []core.OutputField{
		{Field: core.NewField("thought", core.WithPrefix("Thought:"))},
		{Field: core.NewField("action", core.WithPrefix("Action:"))},
	}
	newSignature.Outputs = append(reactFields, newSignature.Outputs...)

	foundAnswer := false
	for _, field := range newSignature.Outputs {
		if field.Name == "answer" {
			foundAnswer = true
			break
		}
	}
	if !foundAnswer {
		newSignature.Outputs = append(newSignature.Outputs,
			core.OutputField{Field: core.NewField("answer", core.WithDescription("The final answer to the query."))})
	}

	return newSignature
}

func reactInstruction(registry *tools.InMemoryToolRegistry) string {
	var sb strings.Builder
	sb.WriteString("Reason about the task in the 'thought' field, then emit exactly ONE action in the 'action' field. ")
	sb.WriteString("Actions are XML blocks like '<action><tool_name>...</tool_name><arguments><arg key=\"param\">value</arg></arguments></action>'. ")
	sb.WriteString("When done, use '<action><tool_name>Finish</tool_name></action>' and put the result in the 'answer' field. ")
	sb.WriteString("Do not invent observations; they are provided after each action.\n\nAvailable tools:")

	if registry == nil || len(registry.List()) == 0 {
		sb.WriteString("\n- No tools available")
		return sb.String()
	}

	for _, tool := range registry.List() {
		fmt.Fprintf(&sb, "\n- %s: %s", tool.Name(), tool.Description())
		schema := tool.InputSchema()
		paramNames := make([]string, 0, len(schema.Properties))
		for paramName := range schema.Properties {
			paramNames = append(paramNames, paramName)
		}
		sort.Strings(paramNames)
		for _, paramName := range paramNames {
			prop := schema.Properties[paramName]
			required := ""
			if prop.Required {
				required = " (required)"
			}
			fmt.Fprintf(&sb, "\n    - %s: %s%s", paramName, prop.Description, required)
		}
	}
	return sb.String()
}
