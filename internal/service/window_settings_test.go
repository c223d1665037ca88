package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralflow/internal/service"
	"neuralflow/internal/storage"
)

func TestWindowSettings_RoundTrip(t *testing.T) {
	ws := service.NewWindowSettingsService(storage.NewSettingsStore(openDB(t)))

	assert.Equal(t, service.WindowSize{Width: 1440, Height: 900}, ws.LoadWindowSize())

	require.NoError(t, ws.SaveWindowSize(1920, 1080))
	assert.Equal(t, service.WindowSize{Width: 1920, Height: 1080}, ws.LoadWindowSize())
}

func TestWindowSettings_IgnoresTinySizes(t *testing.T) {
	kv := storage.NewSettingsStore(openDB(t))
	ws := service.NewWindowSettingsService(kv)

	require.NoError(t, ws.SaveWindowSize(300, 700))
	assert.Equal(t, service.WindowSize{Width: 1440, Height: 700}, ws.LoadWindowSize())

	require.NoError(t, kv.Set(service.KeyWindowSize, "{"))
	assert.Equal(t, service.WindowSize{Width: 1440, Height: 900}, ws.LoadWindowSize())
}

func TestWindowSettings_NilStore(t *testing.T) {
	ws := service.NewWindowSettingsService(nil)
	assert.Equal(t, service.WindowSize{Width: 1440, Height: 900}, ws.LoadWindowSize())
	assert.Error(t, ws.SaveWindowSize(1000, 800))
}
