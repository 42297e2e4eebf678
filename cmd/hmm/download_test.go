package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/hedgemm/hmm/internal/transfer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func modServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/mods/cool-mod.zip" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestDownloadCmd_Structure(t *testing.T) {
	assert.Equal(t, "download <url|source:ref> [dest]", downloadCmd.Use)
	assert.NotEmpty(t, downloadCmd.Short)
	assert.NotNil(t, downloadCmd.Flags().Lookup("retries"))
	assert.NotNil(t, downloadCmd.Flags().Lookup("rate-limit"))
	assert.NotNil(t, downloadCmd.Flags().Lookup("buffer-size"))
	assert.NotNil(t, downloadCmd.Flags().Lookup("plain"))
	assert.NotNil(t, downloadCmd.Flags().Lookup("no-cache"))
}

func TestDownloadCmd_Plain(t *testing.T) {
	setupCmdTest(t)
	server := modServer(t, strings.Repeat("x", 1000))
	dest := t.TempDir()

	out, err := runCommand(t, downloadCmd, "download", server.URL+"/mods/cool-mod.zip", dest, "--plain", "--buffer-size", "256B")
	require.NoError(t, err)

	assert.Contains(t, out, "100.0%")
	assert.Contains(t, out, "Saved "+filepath.Join(dest, "cool-mod.zip"))

	content, err := os.ReadFile(filepath.Join(dest, "cool-mod.zip"))
	require.NoError(t, err)
	assert.Len(t, content, 1000)
}

func TestDownloadCmd_JSON(t *testing.T) {
	setupCmdTest(t)
	jsonOutput = true
	server := modServer(t, "payload")
	dest := filepath.Join(t.TempDir(), "renamed.zip")

	out, err := runCommand(t, downloadCmd, "download", server.URL+"/mods/cool-mod.zip", dest)
	require.NoError(t, err)

	var got downloadOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, dest, got.Path)
	assert.Equal(t, int64(7), got.Size)
	assert.Equal(t, "321c3cf486ed509164edec1e1981fec8", got.Checksum)
	assert.False(t, got.Cached)

	out, err = runCommand(t, downloadCmd, "download", server.URL+"/mods/cool-mod.zip", dest)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Cached)
}

func TestDownloadCmd_NotFound(t *testing.T) {
	setupCmdTest(t)
	server := modServer(t, "")
	dest := filepath.Join(t.TempDir(), "missing.zip")

	_, err := runCommand(t, downloadCmd, "download", server.URL+"/mods/missing.zip", dest, "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, 1, exitCode(err))
	assert.NoFileExists(t, dest)
}

func TestDownloadCmd_UnknownSource(t *testing.T) {
	setupCmdTest(t)

	_, err := runCommand(t, downloadCmd, "download", "moddb:1", "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source not found")
}

func TestDownloadOptions(t *testing.T) {
	setupCmdTest(t)
	downloadRateLimit = "2MiB"
	downloadBufferSize = "128KiB"
	downloadRetries = 5
	downloadNoCache = true

	opts, err := downloadOptions()
	require.NoError(t, err)
	assert.Equal(t, int64(2*1024*1024), opts.RateLimit)
	assert.Equal(t, 128*1024, opts.BufferSize)
	assert.Equal(t, 5, opts.MaxAttempts)
	assert.True(t, opts.NoCache)

	downloadBufferSize = "0"
	_, err = downloadOptions()
	assert.Error(t, err)

	downloadBufferSize = ""
	downloadRateLimit = "fast"
	_, err = downloadOptions()
	assert.Error(t, err)

	downloadRateLimit = ""
	downloadRetries = -1
	_, err = downloadOptions()
	assert.Error(t, err)
}

func TestPlainProgress(t *testing.T) {
	var buf bytes.Buffer
	report := plainProgress(&buf)

	report(transfer.Progress{})
	report(transfer.Progress{Transferred: 10})
	report(transfer.Progress{Known: true, Fraction: 0.05, Transferred: 50, Total: 1000})
	report(transfer.Progress{Known: true, Fraction: 0.5, Transferred: 500, Total: 1000})
	report(transfer.Progress{Known: true, Fraction: 0.55, Transferred: 550, Total: 1000})
	report(transfer.Progress{Known: true, Fraction: 1, Transferred: 1000, Total: 1000})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "downloading...", lines[0])
	assert.Contains(t, lines[1], "5.0%")
	assert.Contains(t, lines[2], "50.0%")
	assert.Contains(t, lines[3], "100.0%")
	assert.Contains(t, lines[3], "1.0 kB / 1.0 kB")
}

func TestUseInteractive(t *testing.T) {
	setupCmdTest(t)

	assert.False(t, useInteractive(&bytes.Buffer{}))

	downloadPlain = true
	assert.False(t, useInteractive(os.Stdout))
}
