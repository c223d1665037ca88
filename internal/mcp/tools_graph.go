package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"neuralflow/internal/domain"
	"neuralflow/internal/service"
)

func nodeTypeNames() []string {
	out := make([]string, len(domain.NodeTypes))
	for i, t := range domain.NodeTypes {
		out[i] = string(t)
	}
	return out
}

func (s *Server) registerGraphTools() {
	types := nodeTypeNames()

	// ── add_node ───────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("add_node",
		mcp.WithDescription("Add a node to the current flow. Without x/y it is placed on the first free spot."),
		mcp.WithString("label", mcp.Description("Short node title"), mcp.Required()),
		mcp.WithString("type", mcp.Description("Node category"), mcp.Enum(types...)),
		mcp.WithString("description", mcp.Description("One or two sentences shown under the label")),
		mcp.WithNumber("x", mcp.Description("Canvas X of the node centre (optional)")),
		mcp.WithNumber("y", mcp.Description("Canvas Y of the node centre (optional)")),
	), s.handleAddNode)

	// ── update_node ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("update_node",
		mcp.WithDescription("Change a node's label, description or type. Omitted fields are kept."),
		mcp.WithString("nodeId", mcp.Description("Node ID"), mcp.Required()),
		mcp.WithString("label", mcp.Description("New label")),
		mcp.WithString("description", mcp.Description("New description")),
		mcp.WithString("type", mcp.Description("New category"), mcp.Enum(types...)),
	), s.handleUpdateNode)

	// ── move_node ──────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("move_node",
		mcp.WithDescription("Move a node to a new position. The position snaps to the canvas grid."),
		mcp.WithString("nodeId", mcp.Description("Node ID"), mcp.Required()),
		mcp.WithNumber("x", mcp.Description("New X of the node centre"), mcp.Required()),
		mcp.WithNumber("y", mcp.Description("New Y of the node centre"), mcp.Required()),
	), s.handleMoveNode)

	// ── delete_node (destructive) ──────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_node",
		mcp.WithDescription("🛑 DESTRUCTIVE: Delete a node and every edge touching it. Requires user approval."),
		mcp.WithString("nodeId", mcp.Description("Node ID to delete"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteNode)

	// ── connect_nodes ──────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("connect_nodes",
		mcp.WithDescription("Draw a directed edge between two nodes"),
		mcp.WithString("from", mcp.Description("Source node ID"), mcp.Required()),
		mcp.WithString("to", mcp.Description("Target node ID"), mcp.Required()),
		mcp.WithString("label", mcp.Description("Edge label (optional)")),
	), s.handleConnectNodes)

	// ── delete_edge ────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_edge",
		mcp.WithDescription("Remove an edge"),
		mcp.WithString("edgeId", mcp.Description("Edge ID"), mcp.Required()),
	), s.handleDeleteEdge)

	// ── create_group ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("create_group",
		mcp.WithDescription("Cluster two or more nodes into a labelled group. Nodes leave any group they were in."),
		mcp.WithString("nodeIds", mcp.Description("Comma-separated node IDs"), mcp.Required()),
		mcp.WithString("label", mcp.Description("Group label (optional)")),
	), s.handleCreateGroup)

	// ── toggle_group ───────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("toggle_group",
		mcp.WithDescription("Collapse or expand a group. Collapsed groups hide their members' edges."),
		mcp.WithString("groupId", mcp.Description("Group ID"), mcp.Required()),
	), s.handleToggleGroup)

	// ── dissolve_group ─────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("dissolve_group",
		mcp.WithDescription("Remove a group, keeping its nodes"),
		mcp.WithString("groupId", mcp.Description("Group ID"), mcp.Required()),
	), s.handleDissolveGroup)
}

// ── Handlers ───────────────────────────────────────────────

func parseNodeType(raw string) domain.NodeType {
	return domain.NodeType(strings.ToUpper(strings.TrimSpace(raw)))
}

func (s *Server) handleAddNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	label := strings.TrimSpace(req.GetString("label", ""))
	if label == "" {
		return nil, fmt.Errorf("label is required")
	}
	nodeType := domain.NodeTypeConcept
	if t := req.GetString("type", ""); t != "" {
		nodeType = parseNodeType(t)
	}

	s.sync(ctx)
	in := service.NodeInput{
		Label:       label,
		Description: req.GetString("description", ""),
		Type:        nodeType,
		X:           optFloat(args, "x"),
		Y:           optFloat(args, "y"),
	}
	if in.X == nil || in.Y == nil {
		if f, ok := s.flows.Flow(); ok {
			p := s.layout.NextPosition(f.Nodes)
			if in.X == nil {
				in.X = &p.X
			}
			if in.Y == nil {
				in.Y = &p.Y
			}
		}
	}

	n, err := s.flows.AddNode(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("add node: %w", err)
	}
	return jsonResult(n)
}

func (s *Server) handleUpdateNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	id := req.GetString("nodeId", "")
	if id == "" {
		return nil, fmt.Errorf("nodeId is required")
	}
	patch := domain.NodePatch{
		Label:       optString(args, "label"),
		Description: optString(args, "description"),
	}
	if t := optString(args, "type"); t != nil {
		nt := parseNodeType(*t)
		patch.Type = &nt
	}
	if patch.Label == nil && patch.Description == nil && patch.Type == nil {
		return nil, fmt.Errorf("nothing to update: pass label, description or type")
	}

	s.sync(ctx)
	n, err := s.flows.UpdateNode(ctx, id, patch)
	if err != nil {
		return nil, fmt.Errorf("update node: %w", err)
	}
	return jsonResult(n)
}

func (s *Server) handleMoveNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("nodeId", "")
	if id == "" {
		return nil, fmt.Errorf("nodeId is required")
	}
	x := req.GetFloat("x", 0)
	y := req.GetFloat("y", 0)

	s.sync(ctx)
	n, err := s.flows.MoveNode(ctx, id, x, y)
	if err != nil {
		return nil, fmt.Errorf("move node: %w", err)
	}
	return textResult(fmt.Sprintf("Node %s moved to (%.0f, %.0f)", n.ID, n.X, n.Y)), nil
}

func (s *Server) handleDeleteNode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("nodeId", "")
	if id == "" {
		return nil, fmt.Errorf("nodeId is required")
	}
	s.sync(ctx)
	f, _ := s.flows.Flow()
	n, ok := f.Node(id)
	if !ok {
		return nil, fmt.Errorf("node %s not found", id)
	}

	// Require approval (with metadata for frontend highlight)
	if err := s.approval.Request(ctx, "delete_node",
		fmt.Sprintf("Delete node %q and its connections", n.Label),
		idsMetadata("nodeIds", []string{id}),
	); err != nil {
		return rejectedResult(err), nil
	}

	if err := s.flows.DeleteNode(ctx, id); err != nil {
		return nil, fmt.Errorf("delete node: %w", err)
	}
	return textResult(fmt.Sprintf("Node %s deleted", id)), nil
}

func (s *Server) handleConnectNodes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	from := req.GetString("from", "")
	to := req.GetString("to", "")
	if from == "" || to == "" {
		return nil, fmt.Errorf("from and to are required")
	}
	s.sync(ctx)
	e, err := s.flows.Connect(ctx, from, to, req.GetString("label", ""))
	if err != nil {
		return nil, fmt.Errorf("connect nodes: %w", err)
	}
	return jsonResult(e)
}

func (s *Server) handleDeleteEdge(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("edgeId", "")
	if id == "" {
		return nil, fmt.Errorf("edgeId is required")
	}
	s.sync(ctx)
	if err := s.flows.DeleteEdge(ctx, id); err != nil {
		return nil, fmt.Errorf("delete edge: %w", err)
	}
	return textResult(fmt.Sprintf("Edge %s deleted", id)), nil
}

func (s *Server) handleCreateGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(req.GetString("nodeIds", ""))
	s.sync(ctx)
	g, err := s.flows.GroupNodes(ctx, ids, req.GetString("label", ""))
	if err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}
	return jsonResult(g)
}

func (s *Server) handleToggleGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("groupId", "")
	if id == "" {
		return nil, fmt.Errorf("groupId is required")
	}
	s.sync(ctx)
	if err := s.flows.ToggleGroup(ctx, id); err != nil {
		return nil, fmt.Errorf("toggle group: %w", err)
	}
	f, _ := s.flows.Flow()
	state := "expanded"
	if i := f.GroupIndex(id); i >= 0 && f.Groups[i].IsCollapsed {
		state = "collapsed"
	}
	return textResult(fmt.Sprintf("Group %s %s", id, state)), nil
}

func (s *Server) handleDissolveGroup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := req.GetString("groupId", "")
	if id == "" {
		return nil, fmt.Errorf("groupId is required")
	}
	s.sync(ctx)
	if err := s.flows.DissolveGroup(ctx, id); err != nil {
		return nil, fmt.Errorf("dissolve group: %w", err)
	}
	return textResult(fmt.Sprintf("Group %s dissolved", id)), nil
}
