package tools

import "encoding/xml"

// XMLArgument is one key/value pair inside an action block.
type XMLArgument struct {
	XMLName xml.Name `xml:"arg"`
	Key     string   `xml:"key,attr"`
	Value   string   `xml:",chardata"`
}

// XMLAction is the action format a reasoning module asks the model to
// emit: a tool name plus its arguments, or a bare "Finish".
type XMLAction struct {
	XMLName   xml.Name      `xml:"action"`
	ToolName  string        `xml:"tool_name,omitempty"`
	Arguments []XMLArgument `xml:"arguments>arg,omitempty"`

	Content string `xml:",chardata"`
}

// GetArgumentsMap converts the parsed XML arguments into the map shape
// tools are called with. Values stay strings; tools coerce as needed.
func (xa *XMLAction) GetArgumentsMap() map[string]interface{} {
	argsMap := make(map[string]interface{})
	if xa == nil {
		return argsMap
	}
	for _, arg := range xa.Arguments {
		argsMap[arg.Key] = arg.Value
	}
	return argsMap
}
