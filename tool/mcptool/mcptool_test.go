package mcptool

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/codesession/tool"
)

// mockSession implements Session over fixed pages and canned call
// results.
type mockSession struct {
	pages     [][]*mcp.Tool
	listCalls int
	listErr   error

	callResult *mcp.CallToolResult
	callErr    error
	lastCall   *mcp.CallToolParams
}

func (m *mockSession) ListTools(_ context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
	m.listCalls++
	if m.listErr != nil {
		return nil, m.listErr
	}
	page := 0
	if params.Cursor != "" {
		page = int(params.Cursor[0] - '0')
	}
	res := &mcp.ListToolsResult{Tools: m.pages[page]}
	if page+1 < len(m.pages) {
		res.NextCursor = string(rune('0' + page + 1))
	}
	return res, nil
}

func (m *mockSession) CallTool(_ context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	m.lastCall = params
	if m.callErr != nil {
		return nil, m.callErr
	}
	return m.callResult, nil
}

func TestNew_NilSession(t *testing.T) {
	if _, err := New(nil); err == nil {
		t.Fatal("New(nil) should fail")
	}
}

func TestTools_PaginatesAndSorts(t *testing.T) {
	sess := &mockSession{pages: [][]*mcp.Tool{
		{{Name: "search"}, {Name: "fetch"}},
		{{Name: "convert"}},
	}}
	p, err := New(sess)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tools, err := p.Tools(context.Background())
	if err != nil {
		t.Fatalf("Tools() error = %v", err)
	}
	want := []string{"convert", "fetch", "search"}
	if len(tools) != len(want) {
		t.Fatalf("Tools() returned %d tools, want %d", len(tools), len(want))
	}
	for i, name := range want {
		if tools[i].Name != name {
			t.Errorf("tools[%d].Name = %q, want %q", i, tools[i].Name, name)
		}
	}
	if sess.listCalls != 2 {
		t.Errorf("listCalls = %d, want 2 (one per page)", sess.listCalls)
	}
}

func TestCall_NamedArguments(t *testing.T) {
	sess := &mockSession{
		pages:      [][]*mcp.Tool{{{Name: "search"}}},
		callResult: &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: "hit"}}},
	}
	p, _ := New(sess)

	got, err := p.Call(context.Background(), "search", []any{map[string]any{"query": "go"}})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if got != "hit" {
		t.Errorf("Call() = %v, want %q", got, "hit")
	}
	if sess.lastCall.Name != "search" {
		t.Errorf("CallTool name = %q", sess.lastCall.Name)
	}
	args, ok := sess.lastCall.Arguments.(map[string]any)
	if !ok || args["query"] != "go" {
		t.Errorf("CallTool arguments = %#v", sess.lastCall.Arguments)
	}
}

func TestCall_NoArguments(t *testing.T) {
	sess := &mockSession{
		pages:      [][]*mcp.Tool{{{Name: "ping"}}},
		callResult: &mcp.CallToolResult{},
	}
	p, _ := New(sess)

	if _, err := p.Call(context.Background(), "ping", nil); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	args, ok := sess.lastCall.Arguments.(map[string]any)
	if !ok || len(args) != 0 {
		t.Errorf("CallTool arguments = %#v, want empty map", sess.lastCall.Arguments)
	}
}

func TestCall_RejectsPositionalArguments(t *testing.T) {
	sess := &mockSession{pages: [][]*mcp.Tool{{{Name: "search"}}}}
	p, _ := New(sess)

	if _, err := p.Call(context.Background(), "search", []any{"go", 2}); err == nil {
		t.Fatal("Call() with positional args should fail")
	}
}

func TestCall_UnknownTool(t *testing.T) {
	sess := &mockSession{pages: [][]*mcp.Tool{{{Name: "search"}}}}
	p, _ := New(sess)

	_, err := p.Call(context.Background(), "missing", nil)
	if !errors.Is(err, tool.ErrNotFound) {
		t.Fatalf("Call() error = %v, want tool.ErrNotFound", err)
	}
	if sess.lastCall != nil {
		t.Error("CallTool reached the session for an unknown tool")
	}
}

func TestCall_StructuredContentWins(t *testing.T) {
	sess := &mockSession{
		pages: [][]*mcp.Tool{{{Name: "stats"}}},
		callResult: &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: "ignored"}},
			StructuredContent: map[string]any{"count": float64(3)},
		},
	}
	p, _ := New(sess)

	got, err := p.Call(context.Background(), "stats", nil)
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	m, ok := got.(map[string]any)
	if !ok || m["count"] != float64(3) {
		t.Errorf("Call() = %#v, want structured content", got)
	}
}

func TestCall_ToolError(t *testing.T) {
	sess := &mockSession{
		pages: [][]*mcp.Tool{{{Name: "search"}}},
		callResult: &mcp.CallToolResult{
			IsError: true,
			Content: []mcp.Content{&mcp.TextContent{Text: "index offline"}},
		},
	}
	p, _ := New(sess)

	_, err := p.Call(context.Background(), "search", nil)
	if err == nil || err.Error() != "mcptool: search: index offline" {
		t.Fatalf("Call() error = %v", err)
	}
}
