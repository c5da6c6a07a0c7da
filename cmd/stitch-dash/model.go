package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"stitch/pkg/eventlog"
)

// tickMsg is sent by Bubble Tea on every tick interval.
// Used to trigger periodic refresh as a fallback to the fs watcher.
type tickMsg time.Time

// tickCmd returns a command that sends a tickMsg after 2 seconds.
func tickCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Model is the Bubble Tea model for the stitch event log dashboard.
type Model struct {
	dbPath string

	// watcher is created once and re-armed across refreshes; nil when
	// the db directory cannot be watched (polling-only mode).
	watcher *fsnotify.Watcher

	records  []eventlog.Record
	loaded   bool
	fetchErr error

	// UI state
	spinner  spinner.Model
	selected int
	width    int
	height   int
}

// newModel creates a Model reading from the event database at dbPath.
func newModel(dbPath string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(DefaultTheme().Primary)

	return Model{
		dbPath:  dbPath,
		watcher: initWatcher(filepath.Dir(dbPath)),
		spinner: sp,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.spinner.Tick,
		fetchRecordsCmd(m.dbPath),
		tickCmd(),
	}
	if m.watcher != nil {
		cmds = append(cmds, runWatcher(m.watcher))
	}
	return tea.Batch(cmds...)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m, tea.Batch(fetchRecordsCmd(m.dbPath), tickCmd())

	case fsChangeMsg:
		// The one-shot watcher command returned; refresh and re-arm
		// the same watcher.
		if m.watcher != nil {
			return m, tea.Batch(fetchRecordsCmd(m.dbPath), runWatcher(m.watcher))
		}
		return m, fetchRecordsCmd(m.dbPath)

	case recordsMsg:
		m.records = msg
		m.loaded = true
		m.fetchErr = nil
		if m.selected >= len(m.records) {
			m.selected = max(0, len(m.records)-1)
		}
		return m, nil

	case fetchErrMsg:
		m.loaded = true
		m.fetchErr = msg.err
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		if m.watcher != nil {
			_ = m.watcher.Close()
		}
		return m, tea.Quit
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "down", "j":
		if m.selected < len(m.records)-1 {
			m.selected++
		}
	case "g":
		m.selected = 0
	case "G":
		m.selected = max(0, len(m.records)-1)
	case "r":
		return m, fetchRecordsCmd(m.dbPath)
	}
	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	theme := DefaultTheme()

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.Primary)
	mutedStyle := lipgloss.NewStyle().Foreground(theme.Muted)

	var b strings.Builder
	b.WriteString(titleStyle.Render("stitch event log"))
	b.WriteString("\n\n")

	switch {
	case !m.loaded:
		b.WriteString(m.spinner.View())
		b.WriteString(" loading events...\n")
	case m.fetchErr != nil:
		b.WriteString(mutedStyle.Render("no event log yet; complete a `stitch run` first"))
		b.WriteString("\n")
	case len(m.records) == 0:
		b.WriteString(mutedStyle.Render("event log is empty"))
		b.WriteString("\n")
	default:
		b.WriteString(m.renderFeed(theme))
	}

	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("↑/↓ select · r refresh · q quit"))
	return b.String()
}

// renderFeed renders the record rows, newest first, selection marked.
func (m Model) renderFeed(theme Theme) string {
	rows := m.visibleRows()

	selectedStyle := lipgloss.NewStyle().Bold(true)
	var b strings.Builder
	for i, rec := range m.records {
		if i >= rows {
			b.WriteString(fmt.Sprintf("  … %d more\n", len(m.records)-rows))
			break
		}

		kindStyle := lipgloss.NewStyle().Foreground(theme.namespaceColor(rec.Namespace))
		line := fmt.Sprintf("%s  %s  %s",
			rec.CreatedAt.Format("15:04:05"),
			kindStyle.Render(fmt.Sprintf("%-22s", rec.Kind)),
			truncate(rec.Payload, m.payloadWidth()))

		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// visibleRows returns how many feed rows fit in the current height.
func (m Model) visibleRows() int {
	// Header, blank line, footer help, and margins take 5 rows.
	rows := m.height - 5
	if rows < 1 {
		return 10
	}
	return rows
}

// payloadWidth returns the column budget for the payload excerpt.
func (m Model) payloadWidth() int {
	// Timestamp and kind columns take ~35 cells.
	w := m.width - 35
	if w < 20 {
		return 60
	}
	return w
}

// truncate shortens s to at most n runes with an ellipsis, never
// cutting a multi-byte rune in half.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	if n <= 1 {
		return "…"
	}
	return string(runes[:n-1]) + "…"
}
