package intent

import "fmt"

// Dispatch runs the named tool against query. Every failure, including an
// unknown tool name, is reported in the result rather than returned.
func Dispatch(query string, tool Tool) ToolCallResult {
	switch tool {
	case ToolCalculator:
		return calculate(query)
	case ToolConverter:
		return placeholder(tool, "Unit conversion not yet implemented", "Unit conversion feature coming soon")
	case ToolFormatter:
		return placeholder(tool, "Code formatting not yet implemented", "Code formatting feature coming soon")
	case ToolGenerator:
		return placeholder(tool, "Content generation not yet implemented", "Content generation feature coming soon")
	default:
		return ToolCallResult{
			Type:  tool,
			Error: fmt.Sprintf("Unknown tool type: %s", tool),
		}
	}
}

func calculate(query string) ToolCallResult {
	candidate, ok := ExtractExpression(query)
	if !ok {
		return ToolCallResult{Type: ToolCalculator, Error: MsgNoExpression}
	}

	expr := Sanitize(candidate)
	v, err := Evaluate(expr)
	if err != nil {
		return ToolCallResult{Type: ToolCalculator, Error: MsgInvalidExpression}
	}

	return ToolCallResult{
		Type: ToolCalculator,
		Result: &CalcResult{
			Expression: expr,
			Result:     v,
			Formatted:  FormatNumber(v),
		},
		Success: true,
	}
}

func placeholder(tool Tool, message, errMsg string) ToolCallResult {
	return ToolCallResult{
		Type:   tool,
		Result: Placeholder{Message: message},
		Error:  errMsg,
	}
}
