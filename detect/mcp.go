package detect

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quickwhats/quickwhats/kit"
)

// RegisterMCP registers the coordinator's tools on an MCP server.
func (c *Coordinator) RegisterMCP(srv *mcp.Server) {
	c.registerRecentList(srv)
	c.registerSend(srv)
	c.registerClearRecent(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (c *Coordinator) registerRecentList(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "quickwhats_recent_list",
		Description: "List recently contacted phone numbers, most recent first",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		res, err := c.Query(ctx)
		if err != nil {
			return nil, err
		}
		return res.Recent, nil
	}

	decode := func(*mcp.CallToolRequest) (any, error) { return struct{}{}, nil }

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (c *Coordinator) registerSend(srv *mcp.Server) {
	type req struct {
		PhoneNumber string `json:"phone_number"`
		CountryCode string `json:"country_code"`
		Source      string `json:"source"`
		Message     string `json:"message"`
	}

	tool := &mcp.Tool{
		Name:        "quickwhats_send",
		Description: "Open a WhatsApp chat with a phone number and record it in the recent list",
		InputSchema: inputSchema(map[string]any{
			"phone_number": map[string]any{"type": "string", "description": "Phone number, any format"},
			"country_code": map[string]any{"type": "string", "description": "Dial code like +972; defaults to the active one"},
			"source":       map[string]any{"type": "string", "description": "Provenance tag; defaults to the last detection's"},
			"message":      map[string]any{"type": "string", "description": "Optional pre-filled chat message"},
		}, []string{"phone_number"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		p := r.(*req)
		return c.ConfirmSend(ctx, SendRequest{
			Number:      p.PhoneNumber,
			CountryCode: p.CountryCode,
			Source:      p.Source,
			Text:        p.Message,
		})
	}

	decode := func(r *mcp.CallToolRequest) (any, error) {
		var p req
		if err := json.Unmarshal(r.Params.Arguments, &p); err != nil {
			return nil, err
		}
		return &p, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

func (c *Coordinator) registerClearRecent(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "quickwhats_clear_recent",
		Description: "Delete all entries from the recent-numbers list",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		return c.ClearHistory(ctx)
	}

	decode := func(*mcp.CallToolRequest) (any, error) { return struct{}{}, nil }

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
