// Package tui renders a group feed and pages it in as the selection nears the
// end of the list.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/unkn0wn-root/feedcache/feed"
	"github.com/unkn0wn-root/feedcache/visibility"
)

const (
	// nearEndRows is how many trailing rows count as the sentinel being in view.
	nearEndRows   = 3
	defaultRows   = 10
	chromeRows    = 5
	noCountMarker = "–"
)

type Model struct {
	ctx      context.Context
	loader   *feed.Loader
	sentinel *visibility.Sentinel
	notes    *Notifier

	snap    feed.Snapshot
	cursor  int
	height  int
	width   int
	spinner spinner.Model
}

// NewModel renders loader. The caller wires notes.OnUpdate into the loader
// and has the loader Watch sentinel.
func NewModel(ctx context.Context, loader *feed.Loader, sentinel *visibility.Sentinel, notes *Notifier) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = accentStyle
	return Model{
		ctx:      ctx,
		loader:   loader,
		sentinel: sentinel,
		notes:    notes,
		snap:     loader.Snapshot(),
		spinner:  sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.notes.wait(), m.start())
}

func (m Model) start() tea.Cmd {
	loader, ctx := m.loader, m.ctx
	return func() tea.Msg {
		// Failures surface through the snapshot.
		_ = loader.Start(ctx)
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.snap.Cursor.Items())-1 {
				m.cursor++
			}
		case "g", "home":
			m.cursor = 0
		case "G", "end":
			if n := len(m.snap.Cursor.Items()); n > 0 {
				m.cursor = n - 1
			}
		case "r":
			if m.loader.Retry() {
				m.snap = m.loader.Snapshot()
				m.rearm()
			}
			return m, nil
		}
		m.syncSentinel()
		return m, nil

	case UpdatedMsg:
		m.snap = m.loader.Snapshot()
		if n := len(m.snap.Cursor.Items()); m.cursor >= n && n > 0 {
			m.cursor = n - 1
		}
		m.rearm()
		return m, m.notes.wait()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// nearEnd reports whether the end of the list is on screen. An empty list
// always shows its end, so an empty page with a continuation keeps paging.
func (m Model) nearEnd() bool {
	n := len(m.snap.Cursor.Items())
	return n == 0 || m.cursor >= n-nearEndRows
}

func (m Model) syncSentinel() {
	m.sentinel.Set(m.nearEnd())
}

// rearm re-emits an in-view event when the end is still on screen after a
// page settled or a retry, so a short or empty page does not stall
// pagination.
func (m Model) rearm() {
	if m.snap.State == feed.Idle && m.nearEnd() && m.sentinel.InView() {
		m.sentinel.Set(false)
	}
	m.syncSentinel()
}

func (m Model) View() string {
	var b strings.Builder
	group := m.loader.Group()
	b.WriteString(titleStyle.Render(group.Name))
	b.WriteString(" ")
	b.WriteString(dimStyle.Render(m.snap.State.String()))
	b.WriteString("\n\n")

	items := m.snap.Cursor.Items()
	switch {
	case group.ID == "":
		b.WriteString(dimStyle.Render("no group selected"))
	case len(items) == 0 && m.snap.State == feed.Errored:
		b.WriteString(errorStyle.Render("Failed to load group feed"))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("%v (r to retry)", m.snap.Err)))
	case len(items) == 0 && m.snap.State == feed.Exhausted:
		b.WriteString(dimStyle.Render(fmt.Sprintf("%s don't have any publications yet", group.Name)))
	case len(items) == 0:
		b.WriteString(m.spinner.View() + " Loading feed...")
	default:
		m.renderRows(&b, items)
	}
	b.WriteString("\n")
	b.WriteString(m.footer(len(items)))
	return b.String()
}

func (m Model) renderRows(b *strings.Builder, items []feed.Item) {
	rows := defaultRows
	if m.height > chromeRows {
		rows = m.height - chromeRows
	}
	start := 0
	if m.cursor >= rows {
		start = m.cursor - rows + 1
	}
	end := min(start+rows, len(items))
	for i := start; i < end; i++ {
		line := m.row(items[i])
		if i == m.cursor {
			line = selectedStyle.Render(line)
		} else {
			line = rowStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func (m Model) row(it feed.Item) string {
	views := noCountMarker
	if v, ok := m.snap.ViewCount(it.ID); ok {
		views = fmt.Sprintf("%d", v)
	}
	content := []rune(strings.ReplaceAll(it.Content, "\n", " "))
	if limit := m.width - 40; limit > 10 && len(content) > limit {
		content = append(content[:limit], '…')
	}
	author := it.Author
	if author == "" {
		author = it.ID
	}
	return fmt.Sprintf("%-20s %s  %s", author, string(content), dimStyle.Render("views: "+views))
}

func (m Model) footer(n int) string {
	switch m.snap.State {
	case feed.FetchingPage, feed.EnrichingPage:
		if n > 0 {
			return m.spinner.View() + dimStyle.Render(" loading more")
		}
	case feed.Errored:
		if n > 0 {
			return errorStyle.Render(fmt.Sprintf("error: %v", m.snap.Err)) + dimStyle.Render("  r retry")
		}
	case feed.Exhausted:
		if n > 0 {
			return dimStyle.Render(fmt.Sprintf("%d publications, end of feed", n))
		}
	}
	return dimStyle.Render("j/k move  q quit")
}
