package cmd

import (
	"io/fs"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/logger"
	"github.com/wailsapp/wails/v2/pkg/menu"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/mac"
	"go.uber.org/zap"

	"neuralflow/internal/app"
	"neuralflow/internal/logging"
	"neuralflow/internal/service"
)

func runGUI(opts *cliOptions, ref string, assets fs.FS) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	defer log.Sync()

	desktop, err := app.New(cfg, opts.configPath, ref, log)
	if err != nil {
		return err
	}

	size := desktop.Core().Window.LoadWindowSize()
	minSize := service.MinWindowSize()

	// macOS needs an Edit menu for Cmd+C/V/X/A to reach the WebView
	appMenu := menu.NewMenu()
	appMenu.Append(menu.EditMenu())

	log.Info("opening window", zap.String("data_dir", cfg.DataDir))
	return wails.Run(&options.App{
		Title:     "NeuralFlow AI",
		Width:     size.Width,
		Height:    size.Height,
		MinWidth:  minSize.Width,
		MinHeight: minSize.Height,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		BackgroundColour: &options.RGBA{R: 15, G: 15, B: 20, A: 1},
		Menu:             appMenu,
		Logger:           logging.NewWailsAdapter(log),
		LogLevel:         logger.INFO,
		OnStartup:        desktop.Startup,
		OnShutdown:       desktop.Shutdown,
		Bind: []interface{}{
			desktop,
		},
		Mac: &mac.Options{
			TitleBar: &mac.TitleBar{
				TitlebarAppearsTransparent: true,
				HideTitle:                  true,
				HideTitleBar:               false,
				FullSizeContent:            true,
				UseToolbar:                 true,
				HideToolbarSeparator:       true,
			},
			About: &mac.AboutInfo{
				Title:   "NeuralFlow AI",
				Message: "Prompt-to-diagram flow editor",
			},
		},
	})
}
