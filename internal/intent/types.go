package intent

// Kind is the response method a query is routed to.
type Kind string

const (
	KindTool      Kind = "tool"
	KindWebSearch Kind = "web_search"
	KindMixed     Kind = "mixed"
)

// Tool names a bounded local tool the router can dispatch to.
type Tool string

const (
	ToolCalculator Tool = "calculator"
	ToolConverter  Tool = "converter"
	ToolFormatter  Tool = "formatter"
	ToolGenerator  Tool = "generator"
)

// Classification is the routing decision for one query.
// SuggestedTool is set only when Type is KindTool.
type Classification struct {
	Type          Kind    `json:"type"`
	Confidence    float64 `json:"confidence"`
	Reasoning     string  `json:"reasoning"`
	SuggestedTool Tool    `json:"suggestedTool,omitempty"`
}

// ToolCallResult is the uniform envelope returned by Dispatch.
// Error is set only when Success is false.
type ToolCallResult struct {
	Type    Tool   `json:"type"`
	Result  any    `json:"result"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CalcResult is the calculator payload.
type CalcResult struct {
	Expression string  `json:"expression"`
	Result     float64 `json:"result"`
	Formatted  string  `json:"formatted"`
}

// Placeholder is the payload of tools that are declared but not built yet.
type Placeholder struct {
	Message string `json:"message"`
}

// Failure messages surfaced in ToolCallResult.Error.
const (
	MsgNoExpression      = "No valid mathematical expression found"
	MsgInvalidExpression = "Invalid mathematical expression"
)
