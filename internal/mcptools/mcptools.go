// Package mcptools exposes this program's schema-introspection and
// row-generation pipeline as Model Context Protocol tools, so an AI coding
// assistant can drive a run without shelling out to the CLI. Grounded on the
// teacher's internal/mcptools package (same go-sdk wiring, same
// errResult/textResult helper shape), generalized from the teacher's
// seed/test/compare tool surface to this program's single generation
// pipeline.
package mcptools

import "github.com/modelcontextprotocol/go-sdk/mcp"

// RegisterAll registers every tool this program exposes on s.
func RegisterAll(s *mcp.Server) {
	registerDescribeSchema(s)
	registerGenerate(s)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}
