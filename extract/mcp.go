package extract

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/quickwhats/quickwhats/detect"
	"github.com/quickwhats/quickwhats/kit"
)

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

// RegisterMCP registers the image-extraction tool on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	type req struct {
		ImageURL string `json:"image_url"`
		Source   string `json:"source"`
	}

	tool := &mcp.Tool{
		Name:        "quickwhats_extract_image",
		Description: "Extract phone numbers from an image URL or data URI using the vision model",
		InputSchema: inputSchema(map[string]any{
			"image_url": map[string]any{"type": "string", "description": "Image URL or data: URI"},
			"source":    map[string]any{"type": "string", "description": "Provenance tag recorded with the detection"},
		}, []string{"image_url"}),
	}

	endpoint := func(ctx context.Context, r any) (any, error) {
		q := r.(*req)
		source := q.Source
		if source == "" {
			source = detect.SourceImage
		}
		// MCP calls have no originating browser tab, so restricted sources
		// fall back to a direct fetch inside the resolver.
		a := p.ExtractFromImage(ctx, q.ImageURL, source, nil)
		if a.State == StateFailed {
			return nil, a.Err
		}
		return struct {
			Numbers []string `json:"phoneNumbers"`
			Source  string   `json:"source"`
		}{Numbers: a.Numbers, Source: source}, nil
	}

	decode := func(r *mcp.CallToolRequest) (any, error) {
		var q req
		if err := json.Unmarshal(r.Params.Arguments, &q); err != nil {
			return nil, err
		}
		if q.ImageURL == "" {
			return nil, errors.New("image_url is required")
		}
		return &q, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
