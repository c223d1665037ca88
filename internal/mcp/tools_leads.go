package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"neuralflow/internal/domain"
)

func (s *Server) registerLeadTools() {
	// ── list_leads ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("list_leads",
		mcp.WithDescription("List waitlist signups and contact requests"),
		mcp.WithString("query", mcp.Description("Case-insensitive e-mail filter (optional)")),
		mcp.WithString("type", mcp.Description("Lead type filter (optional)"),
			mcp.Enum(string(domain.LeadTypeSignup), string(domain.LeadTypeContact)),
		),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleListLeads)

	// ── lead_stats ─────────────────────────────────────
	s.mcp.AddTool(mcp.NewTool("lead_stats",
		mcp.WithDescription("Counts of leads by type and status, plus total referrals"),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
	), s.handleLeadStats)

	// ── mark_leads_processed ───────────────────────────
	s.mcp.AddTool(mcp.NewTool("mark_leads_processed",
		mcp.WithDescription("Mark leads as PROCESSED"),
		mcp.WithString("leadIds", mcp.Description("Comma-separated lead IDs"), mcp.Required()),
	), s.handleMarkLeadsProcessed)

	// ── delete_leads (destructive) ─────────────────────
	s.mcp.AddTool(mcp.NewTool("delete_leads",
		mcp.WithDescription("🛑 DESTRUCTIVE: Permanently delete leads. Requires user approval."),
		mcp.WithString("leadIds", mcp.Description("Comma-separated lead IDs"), mcp.Required()),
		mcp.WithToolAnnotation(mcp.ToolAnnotation{DestructiveHint: boolPtr(true)}),
	), s.handleDeleteLeads)
}

func (s *Server) handleListLeads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	f := domain.LeadFilter{
		Query: req.GetString("query", ""),
		Type:  domain.LeadType(strings.ToUpper(req.GetString("type", ""))),
	}
	return jsonResult(s.leads.List(f))
}

func (s *Server) handleLeadStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.sync(ctx)
	return jsonResult(s.leads.Stats())
}

func (s *Server) handleMarkLeadsProcessed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(req.GetString("leadIds", ""))
	if len(ids) == 0 {
		return nil, fmt.Errorf("leadIds is required")
	}
	s.sync(ctx)
	n, err := s.leads.MarkProcessed(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("mark processed: %w", err)
	}
	return textResult(fmt.Sprintf("Marked %d of %d leads as processed", n, len(ids))), nil
}

func (s *Server) handleDeleteLeads(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ids := splitIDs(req.GetString("leadIds", ""))
	if len(ids) == 0 {
		return nil, fmt.Errorf("leadIds is required")
	}

	// Single approval for all
	if err := s.approval.Request(ctx, "delete_leads",
		fmt.Sprintf("Delete %d leads", len(ids)),
		idsMetadata("leadIds", ids),
	); err != nil {
		return rejectedResult(err), nil
	}

	s.sync(ctx)
	n, err := s.leads.Delete(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("delete leads: %w", err)
	}
	return textResult(fmt.Sprintf("Deleted %d leads", n)), nil
}
