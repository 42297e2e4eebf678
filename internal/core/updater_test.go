package core_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hedgemm/hmm/internal/core"
	"github.com/hedgemm/hmm/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manifestServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestCheckForUpdate_NewerAvailable(t *testing.T) {
	server := manifestServer(t, `{"version":"v1.3.0","url":"https://example.com/hmm-1.3.0.tar.gz","changelog":"faster downloads"}`)

	release, newer, err := core.CheckForUpdate(context.Background(), nil, server.URL, "1.2.9")
	require.NoError(t, err)
	assert.True(t, newer)
	assert.Equal(t, "v1.3.0", release.Version)
	assert.Equal(t, "faster downloads", release.Changelog)
}

func TestCheckForUpdate_UpToDate(t *testing.T) {
	server := manifestServer(t, `{"version":"1.2.0"}`)

	_, newer, err := core.CheckForUpdate(context.Background(), nil, server.URL, "1.2.0")
	require.NoError(t, err)
	assert.False(t, newer)
}

func TestCheckForUpdate_MissingVersion(t *testing.T) {
	server := manifestServer(t, `{"url":"https://example.com"}`)

	_, _, err := core.CheckForUpdate(context.Background(), nil, server.URL, "1.0.0")
	assert.Error(t, err)
}

func TestCheckForUpdate_NoManifest(t *testing.T) {
	_, _, err := core.CheckForUpdate(context.Background(), nil, "", "1.0.0")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		v1, v2   string
		expected int
	}{
		{"1.0.0", "1.0.0", 0},
		{"1.0.0", "1.0.1", -1},
		{"1.10.0", "1.9.0", 1},
		{"v2", "1.9.9", 1},
		{"1.0", "1.0.0", 0},
		{"1.0.0-beta", "1.0.0", 0},
		{"", "0.0.1", -1},
	}

	for _, tt := range tests {
		t.Run(tt.v1+"_vs_"+tt.v2, func(t *testing.T) {
			assert.Equal(t, tt.expected, core.CompareVersions(tt.v1, tt.v2))
		})
	}
}
