// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
	ML      MLConfig      `yaml:"ml"`
	Session SessionConfig `yaml:"session"`
	Wizard  WizardConfig  `yaml:"wizard"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

type MLConfig struct {
	ModelType   string `yaml:"model_type"`
	ModelPath   string `yaml:"model_path"`
	EncoderPath string `yaml:"encoder_path"`
	Preload     bool   `yaml:"preload"`
}

type SessionConfig struct {
	Capacity int           `yaml:"capacity"`
	TTL      time.Duration `yaml:"ttl"`
}

type WizardConfig struct {
	RequirePageComplete  bool `yaml:"require_page_complete"`
	ClearStalePrediction bool `yaml:"clear_stale_prediction"`
	PrefillDefaults      bool `yaml:"prefill_defaults"`
}

func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Port:           8080,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
			MaxBodyBytes:   1 << 16,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		ML: MLConfig{
			ModelType:   "decision_tree",
			ModelPath:   "models/obesity_model.json",
			EncoderPath: "models/target_encoder.json",
			Preload:     true,
		},
		Session: SessionConfig{
			Capacity: 10000,
			TTL:      time.Hour,
		},
	}
}

// Load reads path on top of the defaults. A missing file is not an error;
// the defaults and environment are used instead.
func Load(path string) (*Config, error) {
	config := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, config); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(config); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadEnvFile loads KEY=VALUE pairs into the process environment without
// overriding variables that are already set.
func LoadEnvFile(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port %d out of range", c.HTTP.Port)
	}
	if c.ML.ModelPath == "" || c.ML.EncoderPath == "" {
		return errors.New("ml.model_path and ml.encoder_path are required")
	}
	if c.Session.Capacity <= 0 {
		return fmt.Errorf("session.capacity must be positive, got %d", c.Session.Capacity)
	}
	return nil
}

func applyEnv(c *Config) error {
	if v := os.Getenv("OBESITY_HTTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("OBESITY_HTTP_PORT: %w", err)
		}
		c.HTTP.Port = port
	}
	if v := os.Getenv("OBESITY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("OBESITY_MODEL_PATH"); v != "" {
		c.ML.ModelPath = v
	}
	if v := os.Getenv("OBESITY_ENCODER_PATH"); v != "" {
		c.ML.EncoderPath = v
	}
	return nil
}

// Watch calls onChange with the re-read config whenever path is written,
// until ctx is done. Reload errors go to onError and the old config stays
// in effect.
func Watch(ctx context.Context, path string, onChange func(*Config), onError func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory: editors often replace the file instead of writing it.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return err
	}
	target := filepath.Clean(path)

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				config, err := Load(path)
				if err != nil {
					onError(err)
					continue
				}
				onChange(config)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				onError(err)
			}
		}
	}()
	return nil
}
