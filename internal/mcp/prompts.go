package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

func (s *Server) registerPrompts() {
	s.mcp.AddPrompt(mcp.NewPrompt("design_flow",
		mcp.WithPromptDescription("Guide through generating a flow diagram and refining it by hand"),
		mcp.WithArgument("topic",
			mcp.ArgumentDescription("What the diagram should explain"),
			mcp.RequiredArgument(),
		),
	), s.handleDesignFlowPrompt)
}

func (s *Server) handleDesignFlowPrompt(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	topic := req.Params.Arguments["topic"]
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Design a flow for: %s", topic),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.TextContent{
					Type: "text",
					Text: fmt.Sprintf(`Design a flow diagram about "%s" on the NeuralFlow canvas. Follow these steps:

1. Call generate_flow with a precise prompt describing "%s"
2. Call get_flow and review the result: every node should have a clear label and a one-sentence description
3. Fix weak spots with update_node, add missing steps with add_node and connect_nodes
4. Cluster related nodes with create_group (at least two nodes per group)
5. Use PROBLEM nodes for risks and SOLUTION nodes for their mitigations

Prefer small edits over regenerating; undo reverts any step.`, topic, topic),
				},
			},
		},
	}, nil
}
