package tui_test

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hedgemm/hmm/internal/core"
	"github.com/hedgemm/hmm/internal/transfer"
	"github.com/hedgemm/hmm/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func update(t *testing.T, m tui.DownloadModel, msg tea.Msg) (tui.DownloadModel, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(tui.DownloadModel)
	require.True(t, ok)
	return model, cmd
}

func TestDownloadModel_UnknownProgress(t *testing.T) {
	m := tui.NewDownloadModel("mod.zip", nil)

	view := m.View()
	assert.Contains(t, view, "mod.zip")
	assert.Contains(t, view, "starting...")
	assert.Contains(t, view, "q/esc: cancel")

	m, _ = update(t, m, tui.ProgressMsg{Transferred: 2048})
	assert.Contains(t, m.View(), "downloading... 2.0 kB")
}

func TestDownloadModel_KnownProgress(t *testing.T) {
	m := tui.NewDownloadModel("mod.zip", nil)

	m, _ = update(t, m, tui.ProgressMsg{Known: true, Fraction: 0.5, Transferred: 1000, Total: 2000})
	view := m.View()
	assert.Contains(t, view, "50%")
	assert.Contains(t, view, "1.0 kB / 2.0 kB")
}

func TestDownloadModel_CancelKey(t *testing.T) {
	var calls int
	m := tui.NewDownloadModel("mod.zip", func() { calls++ })

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, cmd, "model waits for the download to stop")
	assert.True(t, m.Cancelled())
	assert.Contains(t, m.View(), "cancelling...")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.Equal(t, 1, calls)
}

func TestDownloadModel_Retry(t *testing.T) {
	m := tui.NewDownloadModel("mod.zip", nil)

	m, _ = update(t, m, tui.RetryMsg{Err: errors.New("HTTP 503"), Wait: 2 * time.Second})
	assert.Contains(t, m.View(), "retrying in 2s: HTTP 503")

	m, _ = update(t, m, tui.ProgressMsg{})
	assert.NotContains(t, m.View(), "retrying")
}

func TestDownloadModel_Done(t *testing.T) {
	m := tui.NewDownloadModel("mod.zip", nil)

	m, cmd := update(t, m, tui.DoneMsg{Result: &core.DownloadResult{Size: 1500, Cached: true}})
	require.NotNil(t, cmd)
	_, isQuit := cmd().(tea.QuitMsg)
	assert.True(t, isQuit)
	assert.Contains(t, m.View(), "1.5 kB (cached)")

	result, err := m.Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1500), result.Size)
}

func TestDownloadModel_DoneWithError(t *testing.T) {
	m := tui.NewDownloadModel("mod.zip", nil)

	m, _ = update(t, m, tui.DoneMsg{Err: transfer.ErrCancelled})
	assert.Contains(t, m.View(), "transfer cancelled")

	_, err := m.Result()
	assert.ErrorIs(t, err, transfer.ErrCancelled)
}

func TestDownloadModel_ResultBeforeDone(t *testing.T) {
	m := tui.NewDownloadModel("mod.zip", nil)

	_, err := m.Result()
	assert.ErrorIs(t, err, transfer.ErrCancelled)
}

func TestDownloadModel_WindowSize(t *testing.T) {
	m := tui.NewDownloadModel("mod.zip", nil)

	m, cmd := update(t, m, tea.WindowSizeMsg{Width: 20, Height: 10})
	assert.Nil(t, cmd)
	assert.NotEmpty(t, m.View())
}

func TestRunDownload(t *testing.T) {
	var out bytes.Buffer
	fn := func(ctx context.Context, progressFn core.ProgressFunc, onRetry func(error, time.Duration)) (*core.DownloadResult, error) {
		progressFn(transfer.Progress{})
		progressFn(transfer.Progress{Known: true, Fraction: 1, Transferred: 10, Total: 10})
		return &core.DownloadResult{Path: "mod.zip", Size: 10}, nil
	}

	result, err := tui.RunDownload(context.Background(), "mod.zip", fn,
		tea.WithInput(nil), tea.WithOutput(&out), tea.WithoutSignalHandler())
	require.NoError(t, err)
	assert.Equal(t, "mod.zip", result.Path)
}

func TestRunDownload_Error(t *testing.T) {
	var out bytes.Buffer
	fn := func(ctx context.Context, _ core.ProgressFunc, _ func(error, time.Duration)) (*core.DownloadResult, error) {
		return nil, errors.New("boom")
	}

	_, err := tui.RunDownload(context.Background(), "mod.zip", fn,
		tea.WithInput(nil), tea.WithOutput(&out), tea.WithoutSignalHandler())
	assert.EqualError(t, err, "boom")
}
