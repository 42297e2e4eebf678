package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hedgemm/hmm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("download: {}\n"), 0644))
	return path
}

func TestParseConfigPath_Valid(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.yml", "CONFIG.YAML"} {
		path := writeFile(t, name)

		got, err := ParseConfigPath(path)
		require.NoError(t, err)
		assert.Equal(t, path, got)
	}
}

func TestParseConfigPath_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		path   func(t *testing.T) string
		errMsg string
	}{
		{"empty", func(*testing.T) string { return "" }, "cannot be empty"},
		{"relative", func(*testing.T) string { return "config.yaml" }, "must be absolute"},
		{"traversal", func(*testing.T) string { return "/etc/../etc/config.yaml" }, "invalid traversal"},
		{"missing", func(t *testing.T) string { return filepath.Join(t.TempDir(), "none.yaml") }, "does not exist"},
		{"directory", func(t *testing.T) string {
			dir := filepath.Join(t.TempDir(), "conf.yaml")
			require.NoError(t, os.Mkdir(dir, 0755))
			return dir
		}, "is a directory"},
		{"extension", func(t *testing.T) string { return writeFile(t, "config.txt") }, ".yaml or .yml"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseConfigPath(tt.path(t))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}
