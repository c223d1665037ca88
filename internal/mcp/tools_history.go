package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerHistoryTools() {
	// ── list_history ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_history",
		mcp.WithDescription("List recent generations, newest first, optionally filtered by prompt text"),
		mcp.WithString("query", mcp.Description("Case-insensitive prompt filter (optional)")),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListHistory)

	// ── load_history ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("load_history",
		mcp.WithDescription("Put a past generation back on the canvas. The current flow can be restored with undo."),
		mcp.WithString("entryId", mcp.Description("History entry ID from list_history"), mcp.Required()),
	), s.handleLoadHistory)
}

// historySummary keeps list_history small; the full flow is one
// load_history away.
type historySummary struct {
	ID        string `json:"id"`
	Prompt    string `json:"prompt"`
	Title     string `json:"title"`
	Nodes     int    `json:"nodes"`
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleListHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := s.flows.SearchHistory(req.GetString("query", ""))
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	out := make([]historySummary, len(entries))
	for i, e := range entries {
		out[i] = historySummary{
			ID:        e.ID,
			Prompt:    e.Prompt,
			Title:     e.Flow.Title,
			Nodes:     len(e.Flow.Nodes),
			Timestamp: e.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return jsonResult(out)
}

func (s *Server) handleLoadHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("entryId", "")
	if id == "" {
		return nil, fmt.Errorf("entryId is required")
	}
	s.sync(ctx)
	st, err := s.flows.LoadHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return textResult(fmt.Sprintf("Loaded %q (%d nodes, %d edges)", st.Flow.Title, len(st.Flow.Nodes), len(st.Flow.Edges))), nil
}
