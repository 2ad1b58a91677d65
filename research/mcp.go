package research

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/carnet/kit"
)

// RegisterMCP registers research tools on an MCP server.
func (p *Pipeline) RegisterMCP(srv *mcp.Server) {
	p.registerListTool(srv)
	p.registerAnalyzeTool(srv)
	p.registerSaveTool(srv)
	p.registerExportTool(srv)
	p.registerSummaryTool(srv)
	p.registerClearTool(srv)
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

// --- list ---

func (p *Pipeline) registerListTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "research_list",
		Description: "List captured research entries, most recent first.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		return map[string]any{"entries": p.Entries()}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- analyze ---

type entryReq struct {
	ID string `json:"id"`
}

func decodeEntryReq(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
	var r entryReq
	if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
		return nil, err
	}
	return &kit.MCPDecodeResult{Request: &r}, nil
}

func (p *Pipeline) registerAnalyzeTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "research_analyze",
		Description: "Run LLM analysis on one research entry and attach the result.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Entry id"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*entryReq)
		if err := p.Analyze(ctx, r.ID); err != nil {
			return nil, err
		}
		return p.Entry(r.ID), nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeEntryReq)
}

// --- save ---

func (p *Pipeline) registerSaveTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "research_save",
		Description: "Persist one research entry to the knowledge store.",
		InputSchema: inputSchema(map[string]any{
			"id": map[string]any{"type": "string", "description": "Entry id"},
		}, []string{"id"}),
	}

	endpoint := func(ctx context.Context, req any) (any, error) {
		r := req.(*entryReq)
		if err := p.Save(ctx, r.ID); err != nil {
			return nil, err
		}
		return map[string]any{"saved": true, "id": r.ID}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decodeEntryReq)
}

// --- export ---

type exportReq struct {
	Format string `json:"format"`
}

func (p *Pipeline) registerExportTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "research_export",
		Description: "Export all research entries as markdown, json, or html.",
		InputSchema: inputSchema(map[string]any{
			"format": map[string]any{"type": "string", "enum": []string{"markdown", "json", "html"}},
		}, []string{"format"}),
	}

	endpoint := func(_ context.Context, req any) (any, error) {
		r := req.(*exportReq)
		data, err := p.Export(r.Format)
		if err != nil {
			return nil, err
		}
		return map[string]any{"format": r.Format, "content": string(data)}, nil
	}

	decode := func(req *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		var r exportReq
		if err := json.Unmarshal(req.Params.Arguments, &r); err != nil {
			return nil, err
		}
		return &kit.MCPDecodeResult{Request: &r}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- summary ---

func (p *Pipeline) registerSummaryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "research_summary",
		Description: "Synthesize all captured entries into one summary.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(ctx context.Context, _ any) (any, error) {
		text, err := p.Summary(ctx)
		if err != nil {
			return nil, err
		}
		return map[string]any{"summary": text}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}

// --- clear ---

func (p *Pipeline) registerClearTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "research_clear",
		Description: "Empty the research entry collection.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	endpoint := func(_ context.Context, _ any) (any, error) {
		p.Clear()
		return map[string]any{"cleared": true}, nil
	}

	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}

	kit.RegisterMCPTool(srv, tool, endpoint, decode)
}
