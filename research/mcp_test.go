package research

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

var testMCPImpl = &mcp.Implementation{Name: "carnet-test", Version: "0.1.0"}

func mcpSession(t *testing.T, p *Pipeline) *mcp.ClientSession {
	t.Helper()
	srv := mcp.NewServer(testMCPImpl, nil)
	p.RegisterMCP(srv)

	serverT, clientT := mcp.NewInMemoryTransports()
	ctx := context.Background()
	go func() { _ = srv.Run(ctx, serverT) }()

	client := mcp.NewClient(testMCPImpl, nil)
	session, err := client.Connect(ctx, clientT, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func mcpCallTool(t *testing.T, session *mcp.ClientSession, name string, args any) string {
	t.Helper()
	result, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	if err := result.GetError(); err != nil {
		t.Fatalf("CallTool(%s) tool error: %v", name, err)
	}
	text, ok := result.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("CallTool(%s): unexpected content %T", name, result.Content[0])
	}
	return text.Text
}

func TestMCP_ListAndExport(t *testing.T) {
	p, _ := newTestPipeline(t, &scriptedProvider{up: true, reply: "analysis"})
	ctx := context.Background()
	if _, err := p.ProcessPage(ctx, page("https://a.example/", "Tooling", "alpha"), "https://a.example/", ""); err != nil {
		t.Fatalf("process: %v", err)
	}

	session := mcpSession(t, p)

	out := mcpCallTool(t, session, "research_list", map[string]any{})
	var listed struct {
		Entries []*Entry `json:"entries"`
	}
	if err := json.Unmarshal([]byte(out), &listed); err != nil {
		t.Fatalf("parse list: %v", err)
	}
	if len(listed.Entries) != 1 || listed.Entries[0].URL != "https://a.example/" {
		t.Errorf("list: got %+v", listed.Entries)
	}

	out = mcpCallTool(t, session, "research_export", map[string]any{"format": "markdown"})
	var exported struct {
		Format  string `json:"format"`
		Content string `json:"content"`
	}
	if err := json.Unmarshal([]byte(out), &exported); err != nil {
		t.Fatalf("parse export: %v", err)
	}
	if !strings.Contains(exported.Content, "## Tooling") {
		t.Errorf("export missing entry:\n%s", exported.Content)
	}
}

func TestMCP_AnalyzeAndClear(t *testing.T) {
	p, _ := newTestPipeline(t, &scriptedProvider{up: true, reply: "tool analysis"})
	ctx := context.Background()
	entry, err := p.ProcessPage(ctx, page("https://a.example/", "A", "alpha"), "https://a.example/", "")
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	session := mcpSession(t, p)

	out := mcpCallTool(t, session, "research_analyze", map[string]any{"id": entry.ID})
	var analyzed Entry
	if err := json.Unmarshal([]byte(out), &analyzed); err != nil {
		t.Fatalf("parse analyze: %v", err)
	}
	if analyzed.Analysis == nil || analyzed.Analysis.Text != "tool analysis" {
		t.Errorf("analyze: got %+v", analyzed.Analysis)
	}

	mcpCallTool(t, session, "research_clear", map[string]any{})
	if len(p.Entries()) != 0 {
		t.Error("entries survive research_clear")
	}
}
