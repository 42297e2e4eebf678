package main

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCmd_Empty(t *testing.T) {
	setupCmdTest(t)

	out, err := runCommand(t, historyCmd, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No downloads recorded.")
}

func TestHistoryCmd_AfterDownloads(t *testing.T) {
	setupCmdTest(t)
	server := modServer(t, "payload")
	dir := t.TempDir()

	_, err := runCommand(t, downloadCmd, "download", server.URL+"/mods/cool-mod.zip", dir, "--plain")
	require.NoError(t, err)
	_, err = runCommand(t, downloadCmd, "download", server.URL+"/mods/gone.zip", filepath.Join(dir, "gone.zip"), "--plain")
	require.Error(t, err)

	out, err := runCommand(t, historyCmd, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "failed")

	jsonOutput = true
	out, err = runCommand(t, historyCmd, "history", "--limit", "1")
	require.NoError(t, err)

	var entries []historyEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "failed", entries[0].Status)
	assert.Contains(t, entries[0].Error, "404")
}

func TestHistoryCmd_URL(t *testing.T) {
	setupCmdTest(t)
	server := modServer(t, "payload")
	url := server.URL + "/mods/cool-mod.zip"
	dir := t.TempDir()

	_, err := runCommand(t, downloadCmd, "download", url, dir, "--plain")
	require.NoError(t, err)
	_, err = runCommand(t, downloadCmd, "download", server.URL+"/mods/gone.zip", filepath.Join(dir, "gone.zip"), "--plain")
	require.Error(t, err)

	jsonOutput = true
	out, err := runCommand(t, historyCmd, "history", "--url", url)
	require.NoError(t, err)

	var entries []historyEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, url, entries[0].URL)
	assert.Equal(t, "completed", entries[0].Status)

	jsonOutput = false
	out, err = runCommand(t, historyCmd, "history", "--url", server.URL+"/mods/never.zip")
	require.NoError(t, err)
	assert.Contains(t, out, "No downloads recorded.")
}

func TestHistoryCmd_Clear(t *testing.T) {
	setupCmdTest(t)
	server := modServer(t, "payload")

	_, err := runCommand(t, downloadCmd, "download", server.URL+"/mods/cool-mod.zip", t.TempDir(), "--plain")
	require.NoError(t, err)

	out, err := runCommand(t, historyCmd, "history", "--clear")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 1 history entries.")

	historyClear = false
	out, err = runCommand(t, historyCmd, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No downloads recorded.")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}
