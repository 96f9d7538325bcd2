package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
parse:
  grammar: g.yaml
  naive_search: true
  cache_dir: .cache
transform:
  rules: r.yaml
  side_trees:
    symbols: symbols.json
output:
  format: json
  color: false
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "g.yaml", cfg.Parse.Grammar)
	assert.True(t, cfg.Parse.NaiveSearch)
	assert.False(t, cfg.Parse.Normalize)
	assert.Equal(t, ".cache", cfg.Parse.CacheDir)
	assert.Equal(t, "r.yaml", cfg.Transform.Rules)
	assert.Equal(t, map[string]string{"symbols": "symbols.json"}, cfg.Transform.SideTrees)
	assert.Equal(t, FormatJSON, cfg.Output.Format)
	assert.False(t, cfg.Output.Color)
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, FormatTree, cfg.Output.Format)
	assert.True(t, cfg.Output.Color)
	assert.Empty(t, cfg.Parse.Grammar)
}

func TestLoadEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
	t.Setenv("TREEFORM_PARSE_GRAMMAR", "env.yaml")
	t.Setenv("TREEFORM_OUTPUT_FORMAT", "text")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env.yaml", cfg.Parse.Grammar)
	assert.Equal(t, FormatText, cfg.Output.Format)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    func(t *testing.T) string
		wantErr error
	}{
		{
			name:    "missing explicit file",
			path:    func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.yaml") },
			wantErr: ErrReadConfig,
		},
		{
			name:    "malformed yaml",
			path:    func(t *testing.T) string { return writeConfig(t, "parse: [\n") },
			wantErr: ErrReadConfig,
		},
		{
			name:    "bad format",
			path:    func(t *testing.T) string { return writeConfig(t, "output:\n  format: xml\n") },
			wantErr: ErrInvalidValue,
		},
		{
			name:    "bad level",
			path:    func(t *testing.T) string { return writeConfig(t, "log_level: loud\n") },
			wantErr: ErrInvalidValue,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path(t))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
