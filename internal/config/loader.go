package config

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

const (
	envPrefix         = "NEURALFLOW_"
	maxConfigFileSize = 1024 * 1024 // 1MB
	reloadDebounce    = 500 * time.Millisecond
)

// topLevelKeys contain an underscore but are not nested under a section.
var topLevelKeys = map[string]bool{"data_dir": true}

// Load reads configPath (DefaultPath when empty) and overlays NEURALFLOW_*
// environment variables. A missing file is not an error.
//
// Precedence (highest to lowest):
//  1. Environment variables (NEURALFLOW_GEMINI_MODEL -> gemini.model)
//  2. YAML config file
//  3. Defaults
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		configPath = DefaultPath()
	}
	if configPath != "" {
		content, err := readConfigFile(configPath)
		if err != nil {
			return nil, err
		}
		if content != nil {
			if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
			}
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps NEURALFLOW_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, envPrefix))
	if topLevelKeys[lower] {
		return lower
	}
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower
	}
	return parts[0] + "." + parts[1]
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

// ── Hot reload ─────────────────────────────────────────────

// Watch reloads configPath whenever it changes and passes the new config to
// onChange. Invalid edits are logged and skipped. Watching stops when ctx is
// done or stop is called; once stop returns, onChange is not called again.
func Watch(ctx context.Context, configPath string, log *zap.Logger, onChange func(*Config)) (stop func(), err error) {
	if configPath == "" {
		configPath = DefaultPath()
	}
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config")

	absPath, err := filepath.Abs(configPath)
	if err != nil {
		return nil, fmt.Errorf("bad config path %q: %w", configPath, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(absPath), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	// mu serializes reload callbacks with stop.
	var mu sync.Mutex
	stopped := false
	reload := func() {
		mu.Lock()
		defer mu.Unlock()
		if stopped {
			return
		}
		cfg, err := Load(absPath)
		if err != nil {
			log.Warn("reload skipped", zap.String("path", absPath), zap.Error(err))
			return
		}
		log.Info("config reloaded", zap.String("path", absPath))
		onChange(cfg)
	}

	go func() {
		defer close(done)
		defer watcher.Close()
		var timer *time.Timer
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != absPath {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(reloadDebounce, reload)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	stop = func() {
		once.Do(func() {
			cancel()
			<-done
			mu.Lock()
			stopped = true
			mu.Unlock()
		})
	}

	log.Debug("watching config", zap.String("path", absPath))
	return stop, nil
}
