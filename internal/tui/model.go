package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"memcarve/internal/carver"
)

// Model renders carve progress from a stream of carver updates. It quits
// when the update channel is closed. Ctrl+C cancels the carve but the model
// keeps reading updates until the carver has stopped and closed the channel.
type Model struct {
	updates  <-chan carver.ProgressUpdate
	cancel   context.CancelFunc
	title    string
	started  time.Time
	width    int
	total    int64
	scanned  int64
	carved   int
	written  int64
	errors   int
	stopping bool
	quitting bool
}

type doneMsg struct{}

type updateMsg carver.ProgressUpdate

func NewModel(title string, updates <-chan carver.ProgressUpdate, cancel context.CancelFunc) Model {
	return Model{updates: updates, cancel: cancel, title: title, started: time.Now()}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.total += msg.TotalBytes
		m.scanned += msg.ScannedDelta
		m.carved += msg.CarvedDelta
		m.written += msg.BytesWrittenDelta
		m.errors += msg.ErrorDelta
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && !m.stopping {
			m.stopping = true
			if m.cancel != nil {
				m.cancel()
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = min(60, max(20, m.width-10))
	}

	bar := renderBar(barWidth, m.ratio())
	elapsed := time.Since(m.started).Round(time.Millisecond)

	lines := []string{
		titleStyle.Render("memcarve ") + dimStyle.Render(m.title),
		labelStyle.Render(fmt.Sprintf("Scanned: %s/%s", humanize.IBytes(uint64(m.scanned)), humanize.IBytes(uint64(m.total)))) +
			dimStyle.Render(fmt.Sprintf("  %.0f%%", m.ratio()*100)),
		labelStyle.Render(fmt.Sprintf("Carved: %d files, %s", m.carved, humanize.IBytes(uint64(m.written)))) +
			errorCount(m.errors),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(bar),
	}
	if m.stopping {
		lines = append(lines, warnStyle.Render("Stopping, saving manifest..."))
	}

	return strings.Join(lines, "\n")
}

func (m Model) ratio() float64 {
	if m.total <= 0 {
		return 0
	}
	return min(1, float64(m.scanned)/float64(m.total))
}

func errorCount(n int) string {
	if n == 0 {
		return dimStyle.Render("  errors:0")
	}
	return warnStyle.Render(fmt.Sprintf("  errors:%d", n))
}

func listenForUpdates(updates <-chan carver.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := min(width, max(0, int(ratio*float64(width)+0.5)))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}
