package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("LOG_LEVEL", "")
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8089, cfg.Server.Port)
	assert.Equal(t, [3]int{23, 25, 27}, cfg.Overlay.Joints)
	assert.Equal(t, 0.5, cfg.Overlay.VisibilityThreshold)
	assert.Equal(t, filepath.Join(dir, "data", "images"), cfg.Storage.ImagesDirectory)
	assert.Empty(t, cfg.BodyMap.RegionsFile)
	assert.True(t, cfg.Overlay.ReplayLoop)

	// defaults are written out for editing and load back unchanged
	_, err = os.Stat(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	again, err := LoadConfig(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadConfigPartialFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("LOG_LEVEL", "")
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	doc := `
server:
  port: 9000
overlay:
  joints: [24, 26, 28]
  angleThreshold: 120
bodymap:
  regionsFile: regions.yaml
advanced:
  logLevel: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, [3]int{24, 26, 28}, cfg.Overlay.Joints)
	assert.Equal(t, 120.0, cfg.Overlay.AngleThreshold)
	assert.Equal(t, 0.5, cfg.Overlay.VisibilityThreshold, "unset keys keep defaults")
	assert.Equal(t, filepath.Join(dir, "regions.yaml"), cfg.BodyMap.RegionsFile)
	assert.Equal(t, log.DEBUG, cfg.LogLevel())
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	dataDir := t.TempDir()
	t.Setenv("PORT", "7000")
	t.Setenv("DATA_DIR", dataDir)
	t.Setenv("LOG_LEVEL", "")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, filepath.Join(dataDir, "biomech.duckdb"), cfg.Storage.DatabasePath)
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"port", func(c *AppConfig) { c.Server.Port = 0 }},
		{"visibility", func(c *AppConfig) { c.Overlay.VisibilityThreshold = 1.5 }},
		{"joint index", func(c *AppConfig) { c.Overlay.Joints[1] = 40 }},
		{"tool color", func(c *AppConfig) { c.Annotation.Colors["polygon"] = "#fff" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("DATA_DIR", "")
	t.Setenv("LOG_LEVEL", "")
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := DefaultConfig()
	cfg.Session.MaxSessions = 3
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 3, loaded.Session.MaxSessions)
	assert.Equal(t, "#ef4444", loaded.Annotation.Colors["cobb"])
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	cfg := DefaultConfig()
	cfg.Storage.DataDirectory = filepath.Join(base, "d")
	cfg.Storage.ImagesDirectory = filepath.Join(base, "d", "img")
	cfg.Storage.DatabasePath = filepath.Join(base, "db", "x.duckdb")
	require.NoError(t, cfg.EnsureDirectories())
	for _, dir := range []string{"d/img", "db"} {
		info, err := os.Stat(filepath.Join(base, dir))
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
