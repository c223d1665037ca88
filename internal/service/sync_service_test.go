package service_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neuralflow/internal/config"
	"neuralflow/internal/domain"
	"neuralflow/internal/leads"
	"neuralflow/internal/secret"
	"neuralflow/internal/service"
	"neuralflow/internal/sink"
	"neuralflow/internal/storage"
)

func seededLeads(t *testing.T) *leads.Store {
	t.Helper()
	store := leads.NewStore(storage.NewSettingsStore(openDB(t)), nil)
	require.NoError(t, store.Load())
	for _, email := range []string{"a@example.com", "b@example.com"} {
		_, err := store.Append(domain.Lead{Email: email, Type: domain.LeadTypeSignup, ReferralCode: email[:1]})
		require.NoError(t, err)
	}
	return store
}

func sqliteSync(path string) config.SyncConfig {
	return config.SyncConfig{
		Enabled:  true,
		Schedule: "@every 1h",
		Config:   sink.Config{Driver: sink.DriverSQLite, Path: path, Table: "waitlist"},
	}
}

func TestSyncService_RunOnceSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crm.db")
	emitter := &service.MockEmitter{}
	svc := service.NewSyncService(seededLeads(t), secret.NewEnvStore(), nil, emitter, nil)

	ctx := context.Background()
	require.NoError(t, svc.Reconfigure(ctx, sqliteSync(path)))
	defer svc.Stop()
	assert.True(t, svc.Scheduled())

	// Twice: the push is an upsert.
	for i := 0; i < 2; i++ {
		res, err := svc.RunOnce(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Pushed)
	}
	assert.Equal(t, 2, emitter.Count(service.EventSyncCompleted))
	require.NotNil(t, svc.LastResult())
	assert.Empty(t, svc.LastResult().Error)

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM waitlist").Scan(&n))
	assert.Equal(t, 2, n)
}

func TestSyncService_NotConfigured(t *testing.T) {
	svc := service.NewSyncService(seededLeads(t), nil, nil, nil, nil)
	assert.Nil(t, svc.LastResult())
	_, err := svc.RunOnce(context.Background())
	assert.ErrorIs(t, err, service.ErrSyncDisabled)
}

func TestSyncService_DisabledKeepsManualRuns(t *testing.T) {
	cfg := sqliteSync(filepath.Join(t.TempDir(), "crm.db"))
	cfg.Enabled = false
	svc := service.NewSyncService(seededLeads(t), nil, nil, nil, nil)

	require.NoError(t, svc.Reconfigure(context.Background(), cfg))
	assert.False(t, svc.Scheduled())

	res, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pushed)
}

func TestSyncService_FactoryFailure(t *testing.T) {
	emitter := &service.MockEmitter{}
	open := func(sink.Config, string, *zap.Logger) (sink.Sink, error) {
		return nil, errors.New("connection refused")
	}
	svc := service.NewSyncService(seededLeads(t), nil, open, emitter, nil)
	require.NoError(t, svc.Reconfigure(context.Background(), sqliteSync("unused")))
	defer svc.Stop()

	res, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, res.Error, "connection refused")
	assert.Equal(t, 1, emitter.Count(service.EventSyncFailed))
}

func TestSyncService_PasswordFromSecrets(t *testing.T) {
	secrets := secret.NewEnvStore()
	require.NoError(t, secrets.Set(secret.KeySinkPassword, []byte("hunter2")))

	var got string
	open := func(cfg sink.Config, password string, log *zap.Logger) (sink.Sink, error) {
		got = password
		cfg.Driver = sink.DriverSQLite
		cfg.Path = filepath.Join(t.TempDir(), "crm.db")
		return sink.New(cfg, "", log)
	}
	cfg := sqliteSync("")
	cfg.Driver = sink.DriverPostgres
	svc := service.NewSyncService(seededLeads(t), secrets, open, nil, nil)
	require.NoError(t, svc.Reconfigure(context.Background(), cfg))
	defer svc.Stop()

	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "hunter2", got)
}

func TestSyncService_InvalidSchedule(t *testing.T) {
	cfg := sqliteSync("x.db")
	cfg.Schedule = "whenever"
	svc := service.NewSyncService(seededLeads(t), nil, nil, nil, nil)
	assert.Error(t, svc.Reconfigure(context.Background(), cfg))
	assert.False(t, svc.Scheduled())
}

func TestSyncService_WaitRunningIdle(t *testing.T) {
	svc := service.NewSyncService(seededLeads(t), nil, nil, nil, nil)
	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		svc.WaitRunning(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("WaitRunning hung with nothing running")
	}
}
