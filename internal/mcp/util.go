package mcp

import "github.com/modelcontextprotocol/go-sdk/mcp"

// textResult wraps text in a successful tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// errorResult wraps a message in a tool error result. Domain failures use
// this instead of a protocol error so clients always receive readable
// text; only handler-level bugs propagate as protocol errors.
func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: "Error: " + message}},
		IsError: true,
	}
}
