package llm

// Tool describes a function the model may call, in the chat completions
// "tools" format.
type Tool struct {
	Type     string       `json:"type"`
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// FunctionTool builds a Tool of type "function".
func FunctionTool(name, description string, parameters map[string]any) Tool {
	return Tool{Type: "function", Function: ToolFunction{Name: name, Description: description, Parameters: parameters}}
}

// ToolCall is one call the model requested. Arguments is a JSON object as text.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResult answers call with content.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: "tool", Content: content, ToolCallID: call.ID}
}
