package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"neuralflow/internal/service"
)

func (s *Server) registerFlowTools() {
	// ── generate_flow ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("generate_flow",
		mcp.WithDescription("Generate a new flow diagram from a natural-language prompt. Replaces the canvas; the previous flow can be restored with undo."),
		mcp.WithString("prompt",
			mcp.Description("What the diagram should show, e.g. 'a CI/CD pipeline for a Go service'"),
			mcp.Required(),
		),
	), s.handleGenerateFlow)

	// ── get_flow ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("get_flow",
		mcp.WithDescription("Return the flow currently on the canvas: title, summary, nodes, edges and groups"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleGetFlow)

	// ── undo / redo ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Undo the last change to the flow"),
	), s.handleUndo)

	s.mcp.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Redo the last undone change"),
	), s.handleRedo)
}

func (s *Server) handleGenerateFlow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt := req.GetString("prompt", "")
	if prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}
	s.sync(ctx)
	flow, err := s.flows.Generate(ctx, prompt)
	if errors.Is(err, service.ErrBusy) {
		return textResult("A generation is already running. Try again when it finishes."), nil
	}
	if err != nil {
		return nil, fmt.Errorf("generate flow: %w", err)
	}
	return jsonResult(flow)
}

func (s *Server) handleGetFlow(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	flow, ok := s.flows.Flow()
	if !ok {
		return textResult("The canvas is empty. Use generate_flow or load_history first."), nil
	}
	return jsonResult(flow)
}

func (s *Server) handleUndo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	st, ok := s.flows.Undo(ctx)
	if !ok {
		return textResult("Nothing to undo"), nil
	}
	return textResult(fmt.Sprintf("Undone. Canvas now shows %q (%d nodes)", st.Flow.Title, len(st.Flow.Nodes))), nil
}

func (s *Server) handleRedo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	st, ok := s.flows.Redo(ctx)
	if !ok {
		return textResult("Nothing to redo"), nil
	}
	return textResult(fmt.Sprintf("Redone. Canvas now shows %q (%d nodes)", st.Flow.Title, len(st.Flow.Nodes))), nil
}
