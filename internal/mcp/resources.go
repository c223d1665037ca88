package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"neuralflow/internal/domain"
)

const (
	uriCurrentFlow = "neuralflow://flow/current"
	uriHistory     = "neuralflow://history"
	uriLeadStats   = "neuralflow://leads/stats"
)

func (s *Server) registerResources() {
	if s.flows != nil {
		// ── neuralflow://flow/current ──────────────────────
		s.mcp.AddResource(mcp.NewResource(
			uriCurrentFlow,
			"Current Flow",
			mcp.WithResourceDescription("The diagram on the canvas"),
			mcp.WithMIMEType("application/json"),
		), s.handleCurrentFlowResource)

		// ── neuralflow://history ───────────────────────────
		s.mcp.AddResource(mcp.NewResource(
			uriHistory,
			"Generation History",
			mcp.WithResourceDescription("Recent prompts and the flows they produced, newest first"),
			mcp.WithMIMEType("application/json"),
		), s.handleHistoryResource)
	}

	if s.leads != nil {
		// ── neuralflow://leads/stats ───────────────────────
		s.mcp.AddResource(mcp.NewResource(
			uriLeadStats,
			"Lead Statistics",
			mcp.WithMIMEType("application/json"),
		), s.handleLeadStatsResource)
	}
}

func (s *Server) handleCurrentFlowResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.sync(ctx)
	flow, ok := s.flows.Flow()
	if !ok {
		flow = domain.Flow{Nodes: []domain.Node{}, Edges: []domain.Edge{}, Groups: []domain.Group{}}
	}
	return jsonContents(uriCurrentFlow, flow)
}

func (s *Server) handleHistoryResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	entries, err := s.flows.ListHistory()
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []domain.HistoryEntry{}
	}
	return jsonContents(uriHistory, entries)
}

func (s *Server) handleLeadStatsResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	s.sync(ctx)
	return jsonContents(uriLeadStats, s.leads.Stats())
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
