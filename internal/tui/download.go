// Package tui renders interactive terminal output for downloads.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hedgemm/hmm/internal/core"
	"github.com/hedgemm/hmm/internal/transfer"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

const (
	padding  = 2
	maxWidth = 80

	// how often the display picks up the latest transfer progress
	progressInterval = 100 * time.Millisecond
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("69"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	retryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// ProgressMsg carries a progress report from the transfer
type ProgressMsg transfer.Progress

// progressTickMsg asks the model to pick up the latest stored progress
type progressTickMsg time.Time

// progressSlot keeps the newest progress report of a running transfer.
// Store never blocks, so the copy loop is not held up by rendering.
type progressSlot struct {
	mu     sync.Mutex
	latest transfer.Progress
	fresh  bool
}

func (s *progressSlot) Store(p transfer.Progress) {
	s.mu.Lock()
	s.latest = p
	s.fresh = true
	s.mu.Unlock()
}

// Take returns the newest report if one arrived since the last call
func (s *progressSlot) Take() (transfer.Progress, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.fresh {
		return transfer.Progress{}, false
	}
	s.fresh = false
	return s.latest, true
}

// RetryMsg is sent when a failed attempt is about to be retried
type RetryMsg struct {
	Err  error
	Wait time.Duration
}

// DoneMsg is sent once the download has finished
type DoneMsg struct {
	Result *core.DownloadResult
	Err    error
}

// DownloadModel shows the progress of a single download
type DownloadModel struct {
	title   string
	keys    KeyMap
	bar     progress.Model
	spinner spinner.Model
	cancel  context.CancelFunc
	slot    *progressSlot

	last      transfer.Progress
	retry     string
	cancelled bool
	done      bool
	result    *core.DownloadResult
	err       error
}

// NewDownloadModel creates a model titled title. cancel is called when the
// user asks to abort.
func NewDownloadModel(title string, cancel context.CancelFunc) DownloadModel {
	return DownloadModel{
		title:   title,
		keys:    DefaultKeyMap(),
		bar:     progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		cancel:  cancel,
	}
}

// Init implements tea.Model
func (m DownloadModel) Init() tea.Cmd {
	if m.slot != nil {
		return tea.Batch(m.spinner.Tick, pollProgress())
	}
	return m.spinner.Tick
}

func pollProgress() tea.Cmd {
	return tea.Tick(progressInterval, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

// Update implements tea.Model
func (m DownloadModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.keys.IsCancel(msg) && !m.cancelled && !m.done {
			m.cancelled = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		// keep running until the download goroutine reports back
		return m, nil

	case tea.WindowSizeMsg:
		m.bar.Width = min(msg.Width-padding*2-10, maxWidth)
		if m.bar.Width < 10 {
			m.bar.Width = 10
		}
		return m, nil

	case ProgressMsg:
		m.last = transfer.Progress(msg)
		m.retry = ""
		return m, nil

	case progressTickMsg:
		if m.done || m.slot == nil {
			return m, nil
		}
		if p, ok := m.slot.Take(); ok {
			m.last = p
			m.retry = ""
		}
		return m, pollProgress()

	case RetryMsg:
		m.retry = fmt.Sprintf("retrying in %s: %v", msg.Wait.Round(time.Second), msg.Err)
		return m, nil

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View implements tea.Model
func (m DownloadModel) View() string {
	pad := strings.Repeat(" ", padding)
	var b strings.Builder

	b.WriteString(pad + titleStyle.Render(m.title) + "\n\n")

	switch {
	case m.done && m.err != nil:
		b.WriteString(pad + errorStyle.Render("✗ "+m.err.Error()) + "\n")
	case m.done:
		line := fmt.Sprintf("✓ %s", humanize.Bytes(uint64(m.result.Size)))
		if m.result.Cached {
			line += " (cached)"
		}
		b.WriteString(pad + successStyle.Render(line) + "\n")
	case m.last.Known:
		b.WriteString(pad + m.bar.ViewAs(m.last.Fraction) + "\n")
		b.WriteString(pad + infoStyle.Render(m.sizeLine()) + "\n")
	default:
		b.WriteString(pad + m.spinner.View() + " " + infoStyle.Render(m.sizeLine()) + "\n")
	}

	if m.retry != "" && !m.done {
		b.WriteString(pad + retryStyle.Render(m.retry) + "\n")
	}
	if !m.done {
		status := m.keys.Help()
		if m.cancelled {
			status = "cancelling..."
		}
		b.WriteString("\n" + pad + infoStyle.Render(status) + "\n")
	}
	return b.String()
}

func (m DownloadModel) sizeLine() string {
	if !m.last.Known {
		if m.last.Transferred == 0 {
			return "starting..."
		}
		return "downloading... " + humanize.Bytes(uint64(m.last.Transferred))
	}
	return fmt.Sprintf("%s / %s", humanize.Bytes(uint64(m.last.Transferred)), humanize.Bytes(uint64(m.last.Total)))
}

// Result returns the outcome delivered by DoneMsg
func (m DownloadModel) Result() (*core.DownloadResult, error) {
	if !m.done {
		return nil, fmt.Errorf("download did not finish: %w", transfer.ErrCancelled)
	}
	return m.result, m.err
}

// Cancelled reports whether the user asked to abort
func (m DownloadModel) Cancelled() bool {
	return m.cancelled
}

// DownloadFunc performs a download, reporting through progressFn and onRetry
type DownloadFunc func(ctx context.Context, progressFn core.ProgressFunc, onRetry func(error, time.Duration)) (*core.DownloadResult, error)

// RunDownload runs fn in the background while a progress display owns the
// terminal. It returns once fn has finished. Progress reports are stored
// rather than sent, and the display polls them, so a slow terminal never
// slows the transfer.
func RunDownload(ctx context.Context, title string, fn DownloadFunc, opts ...tea.ProgramOption) (*core.DownloadResult, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	model := NewDownloadModel(title, cancel)
	model.slot = &progressSlot{}
	p := tea.NewProgram(model, opts...)

	go func() {
		result, err := fn(ctx,
			model.slot.Store,
			func(err error, wait time.Duration) { p.Send(RetryMsg{Err: err, Wait: wait}) },
		)
		p.Send(DoneMsg{Result: result, Err: err})
	}()

	final, err := p.Run()
	if err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return nil, fmt.Errorf("running progress display: %w", err)
	}
	m, ok := final.(DownloadModel)
	if !ok {
		return nil, errors.New("unexpected progress model")
	}
	return m.Result()
}
