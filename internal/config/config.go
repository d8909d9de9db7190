// Package config provides YAML configuration for the visualizer service.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/gommon/log"
	"gopkg.in/yaml.v3"
)

// AppConfig represents the root configuration document.
type AppConfig struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Session    SessionConfig    `yaml:"session"`
	Overlay    OverlayConfig    `yaml:"overlay"`
	Annotation AnnotationConfig `yaml:"annotation"`
	BodyMap    BodyMapConfig    `yaml:"bodymap"`
	Advanced   AdvancedConfig   `yaml:"advanced"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port         int    `yaml:"port"`
	BindAddress  string `yaml:"bindAddress"`
	EnableCORS   bool   `yaml:"enableCors"`
	AllowOrigins string `yaml:"allowOrigins"`
	ReadTimeout  int    `yaml:"readTimeoutSeconds"`
	WriteTimeout int    `yaml:"writeTimeoutSeconds"`
	IdleTimeout  int    `yaml:"idleTimeoutSeconds"`
	BodyLimit    string `yaml:"bodyLimit"`
}

// StorageConfig contains persistence settings
type StorageConfig struct {
	DataDirectory   string `yaml:"dataDirectory"`
	ImagesDirectory string `yaml:"imagesDirectory"`
	DatabasePath    string `yaml:"databasePath"`
	MaxImageBytes   int64  `yaml:"maxImageBytes"`
}

// SessionConfig contains workspace lifecycle settings
type SessionConfig struct {
	MaxSessions            int `yaml:"maxSessions"`
	SessionTimeoutMinutes  int `yaml:"sessionTimeoutMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
	SaveTimeoutSeconds     int `yaml:"saveTimeoutSeconds"`
}

// OverlayConfig contains live pose overlay settings
type OverlayConfig struct {
	VisibilityThreshold float64 `yaml:"visibilityThreshold"`
	Joints              [3]int  `yaml:"joints"`
	AngleThreshold      float64 `yaml:"angleThreshold"`
	ReplayFile          string  `yaml:"replayFile"`
	ReplayFPS           float64 `yaml:"replayFps"`
	ReplayLoop          bool    `yaml:"replayLoop"`
	MaxMessageKB        int     `yaml:"maxMessageKb"`
}

// AnnotationConfig contains measurement tool settings
type AnnotationConfig struct {
	Colors map[string]string `yaml:"colors"`
}

// BodyMapConfig points at an optional region map file.
type BodyMapConfig struct {
	RegionsFile string `yaml:"regionsFile"`
}

// AdvancedConfig contains logging options
type AdvancedConfig struct {
	LogLevel             string `yaml:"logLevel"`
	EnableRequestLogging bool   `yaml:"enableRequestLogging"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{
			Port:         8089,
			BindAddress:  "0.0.0.0",
			EnableCORS:   true,
			AllowOrigins: "*",
			ReadTimeout:  30,
			WriteTimeout: 30,
			IdleTimeout:  120,
			BodyLimit:    "32M",
		},
		Storage: StorageConfig{
			DataDirectory:   "./data",
			ImagesDirectory: "./data/images",
			DatabasePath:    "./data/biomech.duckdb",
			MaxImageBytes:   25 << 20,
		},
		Session: SessionConfig{
			MaxSessions:            50,
			SessionTimeoutMinutes:  30,
			CleanupIntervalMinutes: 5,
			SaveTimeoutSeconds:     5,
		},
		Overlay: OverlayConfig{
			VisibilityThreshold: 0.5,
			Joints:              [3]int{23, 25, 27},
			AngleThreshold:      90,
			ReplayFPS:           30,
			ReplayLoop:          true,
			MaxMessageKB:        512,
		},
		Annotation: AnnotationConfig{
			Colors: map[string]string{
				"line":  "#22c55e",
				"angle": "#3b82f6",
				"cobb":  "#ef4444",
			},
		},
		Advanced: AdvancedConfig{
			LogLevel:             "info",
			EnableRequestLogging: true,
		},
	}
}

// LoadConfig loads configuration from a YAML file. A missing file yields
// the defaults, which are written to configPath for editing. Keys absent
// from the file keep their default values.
func LoadConfig(configPath string) (*AppConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case os.IsNotExist(err):
		if err := config.Save(configPath); err != nil {
			log.Warnf("[Config] Could not write default config to %s: %v", configPath, err)
		} else {
			log.Infof("[Config] Wrote default config to %s", configPath)
		}
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	config.applyEnvironmentOverrides()
	config.resolvePaths(filepath.Dir(configPath))

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes the configuration as YAML.
func (c *AppConfig) Save(configPath string) error {
	output, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	content := append([]byte("# Biomechanical visualizer configuration\n"), output...)
	if err := os.WriteFile(configPath, content, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate rejects values the service cannot run with.
func (c *AppConfig) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Overlay.VisibilityThreshold < 0 || c.Overlay.VisibilityThreshold > 1 {
		return fmt.Errorf("overlay visibilityThreshold must be within [0,1], got %v", c.Overlay.VisibilityThreshold)
	}
	for _, j := range c.Overlay.Joints {
		if j < 0 || j >= 33 {
			return fmt.Errorf("overlay joint index %d out of range", j)
		}
	}
	for tool := range c.Annotation.Colors {
		switch tool {
		case "line", "angle", "cobb":
		default:
			return fmt.Errorf("unknown annotation tool %q in colors", tool)
		}
	}
	return nil
}

// applyEnvironmentOverrides allows environment variables to override config values
func (c *AppConfig) applyEnvironmentOverrides() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}
	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		c.Storage.DataDirectory = dataDir
		c.Storage.ImagesDirectory = filepath.Join(dataDir, "images")
		c.Storage.DatabasePath = filepath.Join(dataDir, "biomech.duckdb")
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		c.Advanced.LogLevel = level
	}
}

// resolvePaths converts relative paths to absolute based on config file location
func (c *AppConfig) resolvePaths(configDir string) {
	for _, p := range []*string{
		&c.Storage.DataDirectory,
		&c.Storage.ImagesDirectory,
		&c.Storage.DatabasePath,
		&c.Overlay.ReplayFile,
		&c.BodyMap.RegionsFile,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(configDir, *p)
		}
	}
}

// GetServerAddr returns the server bind address
func (c *AppConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.BindAddress, c.Server.Port)
}

// SessionTimeout returns the idle timeout of a workspace.
func (c *AppConfig) SessionTimeout() time.Duration {
	return time.Duration(c.Session.SessionTimeoutMinutes) * time.Minute
}

// CleanupInterval returns how often idle workspaces are swept.
func (c *AppConfig) CleanupInterval() time.Duration {
	return time.Duration(c.Session.CleanupIntervalMinutes) * time.Minute
}

// LogLevel maps Advanced.LogLevel to a gommon level.
func (c *AppConfig) LogLevel() log.Lvl {
	switch strings.ToLower(c.Advanced.LogLevel) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}

// EnsureDirectories creates all necessary directories
func (c *AppConfig) EnsureDirectories() error {
	dirs := []string{
		c.Storage.DataDirectory,
		c.Storage.ImagesDirectory,
		filepath.Dir(c.Storage.DatabasePath),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
