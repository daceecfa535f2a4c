// CLAUDE:SUMMARY Endpoint-to-MCP bridge: register a kit.Endpoint as a tool with JSON argument decoding and in-band error results.
package kit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// DecodeJSON unmarshals a tool call's arguments into a fresh *T. Tools
// whose inputs are all optional accept a bare call: empty arguments decode
// to the zero value. Use as the decode argument of RegisterMCPTool.
func DecodeJSON[T any](r *mcp.CallToolRequest) (any, error) {
	p := new(T)
	if len(r.Params.Arguments) > 0 {
		if err := json.Unmarshal(r.Params.Arguments, p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// RegisterMCPTool registers an Endpoint as an MCP tool on the given server.
// The decode function extracts the typed request from MCP arguments.
//
// Tool failures never surface as JSON-RPC protocol errors: decode and
// endpoint errors both become a CallToolResult with the error flag set, so
// agents receive a structured failure payload instead of a dropped call.
func RegisterMCPTool(srv *mcp.Server, tool *mcp.Tool, endpoint Endpoint, decode func(*mcp.CallToolRequest) (any, error)) {
	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		payload, err := decode(req)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}

		resp, err := endpoint(ctx, payload)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(errors.New(err.Error()))
			return &res, nil
		}

		data, err := json.Marshal(resp)
		if err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("marshal: %w", err))
			return &res, nil
		}
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		}, nil
	})
}
