package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"neuralflow/internal/config"
	mcpserver "neuralflow/internal/mcp"
	"neuralflow/internal/service"
)

// ServeMCP runs NeuralFlow as a standalone MCP server on stdin/stdout with
// no GUI. It shares the database with a running desktop app: destructive
// tools are approved through the mcp_approvals table, and the canvas is
// re-read before every flow tool so edits made in the window are seen.
func ServeMCP(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	core, err := OpenCore(cfg, service.NopEmitter{}, log)
	if err != nil {
		return err
	}
	defer core.Close()

	srv := NewMCPServer(ctx, core)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ServeStdio() }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("mcp server: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info("mcp server interrupted")
		return nil
	}
}

// NewMCPServer wires the MCP server to core in standalone mode.
func NewMCPServer(ctx context.Context, core *Core) *mcpserver.Server {
	return mcpserver.New(ctx, mcpserver.Deps{
		Emitter:   service.NopEmitter{},
		Flows:     core.Flows,
		Leads:     core.Leads,
		Logger:    core.Log,
		GridSize:  core.Config.Editor.GridSize,
		Approvals: core.Approvals, // Enable SQLite-based approval IPC
		Refresh: func(ctx context.Context) error {
			if err := core.LeadStore.Load(); err != nil {
				return err
			}
			_, err := core.Flows.Reload(ctx)
			return err
		},
	})
}
