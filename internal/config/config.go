// Package config loads NeuralFlow settings from a YAML file overlaid with
// NEURALFLOW_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"

	"neuralflow/internal/sink"
)

// Config is the full application configuration.
type Config struct {
	DataDir string       `koanf:"data_dir" validate:"required"`
	Log     LogConfig    `koanf:"log"`
	Gemini  GeminiConfig `koanf:"gemini"`
	Editor  EditorConfig `koanf:"editor"`
	Leads   LeadsConfig  `koanf:"leads"`
	Sync    SyncConfig   `koanf:"sync"`
}

type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn error"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// GeminiConfig tunes the generation client. The API key is a secret and is
// read from the secret store.
type GeminiConfig struct {
	Model         string        `koanf:"model" validate:"required"`
	BaseURL       string        `koanf:"base_url" validate:"required,url"`
	Timeout       time.Duration `koanf:"timeout" validate:"gt=0"`
	RatePerMinute float64       `koanf:"rate_per_minute" validate:"gt=0"`
	Burst         int           `koanf:"burst" validate:"min=1"`
}

type EditorConfig struct {
	GridSize     float64 `koanf:"grid_size" validate:"gt=0,lte=200"`
	UndoLimit    int     `koanf:"undo_limit" validate:"min=1,max=10000"`
	HistoryLimit int     `koanf:"history_limit" validate:"min=1,max=1000"`
}

type LeadsConfig struct {
	OwnerEmail  string        `koanf:"owner_email" validate:"required,email"`
	NotifyDelay time.Duration `koanf:"notify_delay" validate:"gte=0"`
}

// SyncConfig schedules pushes of the lead collection to an external sink.
type SyncConfig struct {
	Enabled     bool   `koanf:"enabled"`
	Schedule    string `koanf:"schedule"`
	sink.Config `koanf:",squash"`
}

const (
	DefaultSchedule = "@every 15m"
	defaultDirName  = "neuralflow"
)

// Defaults returns a configuration with every default applied.
func Defaults() Config {
	var c Config
	applyDefaults(&c)
	return c
}

func applyDefaults(c *Config) {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-3-pro-preview"
	}
	if c.Gemini.BaseURL == "" {
		c.Gemini.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.Gemini.Timeout == 0 {
		c.Gemini.Timeout = 120 * time.Second
	}
	if c.Gemini.RatePerMinute == 0 {
		c.Gemini.RatePerMinute = 10
	}
	if c.Gemini.Burst == 0 {
		c.Gemini.Burst = 1
	}
	if c.Editor.GridSize == 0 {
		c.Editor.GridSize = 20
	}
	if c.Editor.UndoLimit == 0 {
		c.Editor.UndoLimit = 100
	}
	if c.Editor.HistoryLimit == 0 {
		c.Editor.HistoryLimit = 10
	}
	if c.Leads.OwnerEmail == "" {
		c.Leads.OwnerEmail = "admin@neuralflow.ai"
	}
	if c.Leads.NotifyDelay == 0 {
		c.Leads.NotifyDelay = time.Second
	}
	if c.Sync.Schedule == "" {
		c.Sync.Schedule = DefaultSchedule
	}
	if c.Sync.Table == "" {
		c.Sync.Table = sink.DefaultTable
	}
}

// DefaultDataDir is where the local database lives when data_dir is unset.
func DefaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, defaultDirName)
	}
	return filepath.Join(os.TempDir(), defaultDirName)
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", defaultDirName, "config.yaml")
}

// DBPath is the SQLite file inside the data directory.
func (c *Config) DBPath() string {
	return filepath.Join(c.DataDir, "neuralflow.db")
}

var validate = newValidator()

// newValidator reports fields by their koanf key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("koanf"), ",", 2)[0]
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints and the sync section.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.New(describe(err))
	}
	if c.Sync.Enabled {
		switch c.Sync.Driver {
		case sink.DriverSQLite:
			if c.Sync.Path == "" {
				return fmt.Errorf("sync.path is required for the sqlite driver")
			}
		case sink.DriverMySQL, sink.DriverPostgres:
			if c.Sync.Host == "" || c.Sync.Database == "" {
				return fmt.Errorf("sync.host and sync.database are required for %s", c.Sync.Driver)
			}
		case sink.DriverMongoDB:
		default:
			return fmt.Errorf("sync.driver %q is not supported", c.Sync.Driver)
		}
		if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
			return fmt.Errorf("sync.schedule %q: %w", c.Sync.Schedule, err)
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := strings.TrimPrefix(e.Namespace(), "Config.")
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, fmt.Sprintf("%s must be one of [%s]", field, e.Param()))
		case "email", "url":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid %s", field, e.Tag()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", field, e.Tag(), e.Param()))
		}
	}
	return "invalid config: " + strings.Join(msgs, "; ")
}
