package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"neuralflow/internal/service"
	"neuralflow/internal/storage"
)

const (
	ServerName    = "neuralflow-mcp"
	ServerVersion = "1.0.0"
)

// Server is the MCP server for NeuralFlow.
// It exposes tools, resources, and prompts so AI agents can build flows on
// the canvas and work the lead table.
type Server struct {
	mcp      *server.MCPServer
	approval *ApprovalQueue
	layout   *LayoutEngine
	log      *zap.Logger

	// Services (injected from app layer)
	flows *service.FlowService
	leads *service.LeadService

	// refresh pulls in writes made by another process before a tool reads
	// shared state.
	refresh func(context.Context) error
}

// Deps holds all dependencies passed from the App layer to the MCP server.
type Deps struct {
	Emitter   EventEmitter
	Flows     *service.FlowService
	Leads     *service.LeadService
	Logger    *zap.Logger
	GridSize  float64
	Approvals *storage.ApprovalStore // When set, approvals go through SQLite (standalone mode)
	// Refresh, when set, runs before every tool that reads the canvas or leads.
	Refresh func(context.Context) error
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	emitter := deps.Emitter
	if emitter == nil {
		emitter = service.NopEmitter{}
	}
	approval := NewApprovalQueue(ctx, emitter, log)
	if deps.Approvals != nil {
		approval.SetStore(deps.Approvals)
	}
	s := &Server{
		approval: approval,
		layout:   NewLayoutEngine(deps.GridSize),
		log:      log.Named("mcp"),
		flows:    deps.Flows,
		leads:    deps.Leads,
		refresh:  deps.Refresh,
	}

	s.mcp = server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	if s.flows != nil {
		s.registerFlowTools()
		s.registerGraphTools()
		s.registerHistoryTools()
	}
	if s.leads != nil {
		s.registerLeadTools()
	}
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.log.Info("starting stdio server")
	return server.ServeStdio(s.mcp)
}

// MCPServer exposes the underlying server, e.g. for an in-process client.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// Approvals is the queue destructive tools wait on.
func (s *Server) Approvals() *ApprovalQueue {
	return s.approval
}

// ── Helpers ────────────────────────────────────────────────

// sync runs the refresh hook. Failures are logged; the tool proceeds on
// the state it has.
func (s *Server) sync(ctx context.Context) {
	if s.refresh == nil {
		return
	}
	if err := s.refresh(ctx); err != nil {
		s.log.Warn("refresh before tool failed", zap.Error(err))
	}
}

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

// rejectedResult reports a declined or expired approval to the agent.
func rejectedResult(err error) *mcp.CallToolResult {
	return textResult(fmt.Sprintf("Action not performed: %v", err))
}
