// Package mcptool exposes the tools of a connected Model Context
// Protocol session as a tool.Provider.
package mcptool

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/jonwraymond/codesession/tool"
)

// Session is the subset of the MCP client session used by the provider.
// *mcp.ClientSession satisfies it.
type Session interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
}

// Provider routes tool calls to an MCP session. MCP tools take named
// arguments, so a call must pass either no arguments or a single table
// of name/value pairs.
type Provider struct {
	session Session

	mu    sync.RWMutex
	known map[string]struct{}
}

var _ tool.Provider = (*Provider)(nil)

// New wraps session in a Provider.
func New(session Session) (*Provider, error) {
	if session == nil {
		return nil, errors.New("mcptool: session is required")
	}
	return &Provider{session: session}, nil
}

// Tools lists the session's tools across all pages, sorted by name.
func (p *Provider) Tools(ctx context.Context) ([]mcp.Tool, error) {
	tools, err := p.list(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].Name < tools[j].Name })
	return tools, nil
}

// Call invokes the named tool on the session. Unknown names return
// tool.ErrNotFound without a round trip when the advertised tool set
// has been loaded; a miss triggers one refresh before giving up.
func (p *Provider) Call(ctx context.Context, name string, args []any) (any, error) {
	ok, err := p.recognizes(ctx, name)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", tool.ErrNotFound, name)
	}

	arguments, err := namedArguments(name, args)
	if err != nil {
		return nil, err
	}
	res, err := p.session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: arguments})
	if err != nil {
		return nil, fmt.Errorf("mcptool: call %q: %w", name, err)
	}
	text := contentText(res.Content)
	if res.IsError {
		if text == "" {
			text = "tool reported an error"
		}
		return nil, fmt.Errorf("mcptool: %s: %s", name, text)
	}
	if res.StructuredContent != nil {
		return res.StructuredContent, nil
	}
	return text, nil
}

func (p *Provider) recognizes(ctx context.Context, name string) (bool, error) {
	p.mu.RLock()
	_, ok := p.known[name]
	p.mu.RUnlock()
	if ok {
		return true, nil
	}
	// Miss: refresh the advertised set in case it was never listed or
	// the server grew it since the last listing.
	if _, err := p.list(ctx); err != nil {
		return false, err
	}
	p.mu.RLock()
	_, ok = p.known[name]
	p.mu.RUnlock()
	return ok, nil
}

func (p *Provider) list(ctx context.Context) ([]mcp.Tool, error) {
	var (
		tools  []mcp.Tool
		cursor string
	)
	for {
		res, err := p.session.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("mcptool: list tools: %w", err)
		}
		for _, t := range res.Tools {
			if t == nil {
				continue
			}
			tools = append(tools, *t)
		}
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	known := make(map[string]struct{}, len(tools))
	for _, t := range tools {
		known[t.Name] = struct{}{}
	}
	p.mu.Lock()
	p.known = known
	p.mu.Unlock()
	return tools, nil
}

func namedArguments(name string, args []any) (map[string]any, error) {
	switch len(args) {
	case 0:
		return map[string]any{}, nil
	case 1:
		if m, ok := args[0].(map[string]any); ok {
			return m, nil
		}
	}
	return nil, fmt.Errorf("mcptool: tool %q takes a single table of named arguments", name)
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}
