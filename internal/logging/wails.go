package logging

import (
	"os"

	"go.uber.org/zap"
)

// WailsAdapter routes the Wails runtime's log output through zap. It
// satisfies github.com/wailsapp/wails/v2/pkg/logger.Logger.
type WailsAdapter struct {
	log *zap.Logger
}

func NewWailsAdapter(log *zap.Logger) *WailsAdapter {
	return &WailsAdapter{log: log.Named("wails").WithOptions(zap.AddCallerSkip(1))}
}

func (w *WailsAdapter) Print(message string)   { w.log.Info(message) }
func (w *WailsAdapter) Trace(message string)   { w.log.Debug(message) }
func (w *WailsAdapter) Debug(message string)   { w.log.Debug(message) }
func (w *WailsAdapter) Info(message string)    { w.log.Info(message) }
func (w *WailsAdapter) Warning(message string) { w.log.Warn(message) }
func (w *WailsAdapter) Error(message string)   { w.log.Error(message) }

// Fatal logs, flushes and exits with status 1.
func (w *WailsAdapter) Fatal(message string) {
	w.log.Error(message)
	_ = w.log.Sync()
	os.Exit(1)
}
