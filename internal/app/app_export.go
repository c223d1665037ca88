package app

import (
	"fmt"
	"os"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"
	"go.uber.org/zap"

	"neuralflow/internal/domain"
)

// ============================================================
// Export
// ============================================================

// ExportNode saves a node as JSON through a native save dialog. It returns
// the written path, or "" when the dialog was cancelled.
func (a *App) ExportNode(nodeID string) (string, error) {
	name, data, err := a.core.Flows.ExportNode(nodeID)
	if err != nil {
		return "", err
	}
	return a.saveWithDialog("Export Node", name, wailsRuntime.FileFilter{
		DisplayName: "JSON", Pattern: "*.json",
	}, data)
}

// ExportLeads saves the filtered leads as CSV.
func (a *App) ExportLeads(filter domain.LeadFilter) (string, error) {
	name, data, err := a.core.Leads.ExportCSV(filter)
	if err != nil {
		return "", err
	}
	return a.saveWithDialog("Export Leads", name, wailsRuntime.FileFilter{
		DisplayName: "CSV", Pattern: "*.csv",
	}, data)
}

func (a *App) saveWithDialog(title, name string, filter wailsRuntime.FileFilter, data []byte) (string, error) {
	path, err := wailsRuntime.SaveFileDialog(a.ctx, wailsRuntime.SaveDialogOptions{
		Title:           title,
		DefaultFilename: name,
		Filters:         []wailsRuntime.FileFilter{filter},
	})
	if err != nil {
		return "", fmt.Errorf("save dialog: %w", err)
	}
	if path == "" {
		return "", nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	a.log.Info("exported", zap.String("path", path), zap.Int("bytes", len(data)))
	return path, nil
}
