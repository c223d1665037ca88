package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"neuralflow/internal/app"
)

func mcpCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server on stdin/stdout",
		Long: `Run NeuralFlow as a Model Context Protocol server over stdio.

Agents can generate and edit the flow on the canvas, browse history and
work the lead table. Destructive tools wait for approval in the desktop
app, which must be running against the same data directory.

Example client configuration:
  {"command": "neuralflow", "args": ["mcp"]}`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()
			return app.ServeMCP(ctx, cfg, log)
		},
	}
}
