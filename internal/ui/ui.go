// Package ui implements the bubbletea progress view for `genresort sync --tui`.
//
// The model launches the sync engine in a background command, consumes its
// progress channel, and renders a spinner, a per-phase progress bar, and a
// scrolling log of routing decisions. When the run completes it shows the
// per-destination summary.
package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/genresort/internal/tasks"
)

const maxLogLines = 12

type progressUpdateMsg tasks.ProgressUpdate

type syncCompleteMsg struct {
	result *tasks.SyncRunResult
	err    error
}

// Model represents the sync progress TUI state.
type Model struct {
	ctx          context.Context
	engine       *tasks.SortEngine
	dryRun       bool
	spinner      spinner.Model
	bar          progress.Model
	phase        tasks.Phase
	step         int
	total        int
	log          []string
	progressChan chan tasks.ProgressUpdate
	result       *tasks.SyncRunResult
	err          error
	done         bool
}

// Result returns the finished run result, or nil if the run did not complete.
func (m *Model) Result() *tasks.SyncRunResult {
	return m.result
}

// Err returns the run error, if any.
func (m *Model) Err() error {
	return m.err
}

// NewModel creates a new sync TUI model with the provided engine.
func NewModel(ctx context.Context, engine *tasks.SortEngine, dryRun bool) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:          ctx,
		engine:       engine,
		dryRun:       dryRun,
		spinner:      sp,
		bar:          progress.New(progress.WithDefaultGradient()),
		progressChan: make(chan tasks.ProgressUpdate, 50),
	}
}

// Init starts the spinner, the engine run, and the progress pump.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runSync(), m.waitForProgress())
}

// runSync executes the engine in the background and reports completion.
func (m *Model) runSync() tea.Cmd {
	return func() tea.Msg {
		result, err := m.engine.Run(m.ctx, m.progressChan, m.dryRun)
		return syncCompleteMsg{result: result, err: err}
	}
}

// waitForProgress blocks on the next engine progress update.
func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		update, ok := <-m.progressChan
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressUpdateMsg:
		m.phase = msg.Phase
		m.step = msg.Step
		m.total = msg.Total
		m.appendLog(msg.Message)
		return m, m.waitForProgress()

	case syncCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.done = true
		close(m.progressChan)
		return m, nil
	}

	return m, nil
}

func (m *Model) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogLines {
		m.log = m.log[len(m.log)-maxLogLines:]
	}
}

// View renders the progress screen or the final summary.
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("genresort sync"))
	b.WriteString("\n")

	if m.done {
		return m.renderResult(&b)
	}

	ratio := 0.0
	if m.total > 0 {
		ratio = float64(m.step) / float64(m.total)
	}

	b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), m.phase))
	b.WriteString(m.bar.ViewAs(ratio))
	b.WriteString("\n\n")

	for _, line := range m.log {
		b.WriteString(fmt.Sprintf("  %s\n", line))
	}

	b.WriteString("\n")
	b.WriteString(styles.help.Render("q to quit"))
	return b.String()
}

func (m *Model) renderResult(b *strings.Builder) string {
	if m.err != nil {
		b.WriteString(styles.err.Render(fmt.Sprintf("Sync failed: %v", m.err)))
		b.WriteString("\n\n")
		b.WriteString(styles.help.Render("q to quit"))
		return b.String()
	}

	if m.result.FirstRun {
		b.WriteString(styles.warn.Render("First run: watermark initialized, nothing processed."))
		b.WriteString("\n\n")
		b.WriteString(styles.help.Render("q to quit"))
		return b.String()
	}

	b.WriteString(styles.ok.Render(fmt.Sprintf("✓ %d new likes routed", m.result.Candidates)))
	b.WriteString("\n\n")

	for _, dest := range m.result.Destinations {
		b.WriteString(fmt.Sprintf("  %s: %d routed", dest.PlaylistID, len(dest.Decisions)))
		if !m.result.DryRun {
			b.WriteString(fmt.Sprintf(", %d added, %d skipped", dest.Added, dest.Skipped))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(styles.help.Render("q to quit"))
	return b.String()
}
