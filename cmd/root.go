// Package cmd is the neuralflow command line: the desktop app, the
// standalone MCP server and lead/history admin commands.
package cmd

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"neuralflow/internal/app"
	"neuralflow/internal/config"
	"neuralflow/internal/logging"
	"neuralflow/internal/service"
	"neuralflow/internal/ui"
)

var version = "1.0.0"

// cliOptions are the persistent flags shared by every command.
type cliOptions struct {
	configPath string
	ref        string
}

// NewRootCmd builds the command tree. assets is the built frontend.
func NewRootCmd(assets fs.FS) *cobra.Command {
	opts := &cliOptions{}

	root := &cobra.Command{
		Use:   "neuralflow [launch-url]",
		Short: "NeuralFlow: turn a prompt into a flow diagram",
		Long: ui.Brand.Sprint("neuralflow") + " turns a text prompt into an editable flow diagram\n" +
			ui.Subtle.Sprint("Run without arguments to open the editor. A launch URL such as\n"+
				"neuralflow://join?ref=ABC123 credits the referral on signup."),
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := opts.ref
			if ref == "" && len(args) == 1 {
				ref = service.ParseReferral(args[0])
			}
			return runGUI(opts, ref, assets)
		},
	}
	root.SetVersionTemplate("neuralflow {{ .Version }}\n")
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/neuralflow/config.yaml)")
	root.Flags().StringVar(&opts.ref, "ref", "", "referral code to credit on signup")

	root.AddCommand(
		mcpCmd(opts),
		leadsCmd(opts),
		historyCmd(opts),
	)
	return root
}

// Execute runs the root command.
func Execute(assets fs.FS) error {
	err := NewRootCmd(assets).Execute()
	if err != nil {
		ui.Bad.Fprintf(os.Stderr, "neuralflow: %v\n", err)
	}
	return err
}

// load reads the config and builds a logger on stderr.
func (o *cliOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// openCore is load plus app.OpenCore for the admin commands. The logger
// is raised to warn so routine startup lines do not mix with output.
func (o *cliOptions) openCore() (*app.Core, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	logCfg := cfg.Log
	if logCfg.Level == "debug" || logCfg.Level == "info" {
		logCfg.Level = "warn"
	}
	log, err := logging.New(logCfg)
	if err != nil {
		return nil, err
	}
	core, err := app.OpenCore(cfg, service.NopEmitter{}, log)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.DBPath(), err)
	}
	return core, nil
}
