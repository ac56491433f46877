package toolkit

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/txn2/mcp-data-gateway/pkg/query"
)

// ErrorResult creates an error CallToolResult. Tool errors are returned in
// the result per the MCP protocol, not as Go errors.
func ErrorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf(`{"error": %q}`, msg)},
		},
		IsError: true,
	}
}

// ErrorResultFrom creates an error CallToolResult from err. Typed gateway
// errors surface their caller-safe summary so native backend detail never
// leaks; other errors surface verbatim.
func ErrorResultFrom(err error) *mcp.CallToolResult {
	var ge *query.Error
	if errors.As(err, &ge) {
		return ErrorResult(ge.Summary())
	}
	return ErrorResult(err.Error())
}

// JSONResult creates a success CallToolResult carrying v as JSON text.
func JSONResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResult("internal error marshaling response"), nil, nil //nolint:nilerr // MCP protocol: tool errors are returned in CallToolResult.IsError
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(data)},
		},
	}, nil, nil
}
