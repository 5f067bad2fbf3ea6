// Package tui holds the Bubble Tea front end: the source selection overlay
// and the pickers used for search results, seasons and episodes.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"reel/internal/selection"
)

// Messages shown in the embed view.
const (
	MsgLoading  = "Scraping..."
	MsgNoEmbeds = "No embeds found"
	MsgFailed   = "Failed to scrape"
)

// sourceResolvedMsg carries a source outcome back to the loop.
type sourceResolvedMsg struct {
	out selection.SourceOutcome
}

// embedResolvedMsg carries an embed outcome back to the loop.
type embedResolvedMsg struct {
	out selection.EmbedOutcome
}

// Overlay is the Bubble Tea model of the source selection overlay. The
// program ends when the overlay closes or the user leaves to the root.
type Overlay struct {
	ctx     context.Context
	flow    *selection.Flow
	router  selection.Router
	title   string
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	sources []selection.SourceItem
	cursor  int
	width   int
}

// NewOverlay creates the model. The router must already be open at
// selection.RouteSources.
func NewOverlay(ctx context.Context, flow *selection.Flow, router selection.Router, title string) *Overlay {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = cursorStyle

	m := &Overlay{
		ctx:     ctx,
		flow:    flow,
		router:  router,
		title:   title,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		spinner: sp,
	}
	m.refreshSources()
	return m
}

// RunOverlay opens the overlay, runs it to completion and reports whether a
// stream was committed.
func RunOverlay(ctx context.Context, flow *selection.Flow, router selection.Router, title string, opts ...tea.ProgramOption) (bool, error) {
	flow.Reset()
	router.Open(selection.RouteSources)
	defer router.Close()

	m := NewOverlay(ctx, flow, router, title)
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	if _, err := tea.NewProgram(m, opts...).Run(); err != nil {
		return false, fmt.Errorf("running source overlay: %w", err)
	}
	return flow.Status() == selection.Resolved, nil
}

// Init starts the spinner.
func (m *Overlay) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles a message.
func (m *Overlay) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
	case sourceResolvedMsg:
		m.flow.ApplySource(msg.out)
	case embedResolvedMsg:
		m.flow.ApplyEmbed(msg.out)
	case tea.KeyMsg:
		cmd = m.handleKey(msg)
	}

	if m.done() {
		return m, tea.Quit
	}
	return m, cmd
}

func (m *Overlay) done() bool {
	return !m.router.IsOpen() || m.router.Current() == selection.RouteRoot
}

func (m *Overlay) handleKey(msg tea.KeyMsg) tea.Cmd {
	if key.Matches(msg, m.keys.Quit) {
		m.router.Close()
		return nil
	}

	switch m.router.Current() {
	case selection.RouteSources:
		return m.handleSourceKey(msg)
	case selection.RouteEmbeds:
		return m.handleEmbedKey(msg)
	}
	return nil
}

func (m *Overlay) handleSourceKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Up):
		m.move(-1, len(m.sources))
	case key.Matches(msg, m.keys.Down):
		m.move(1, len(m.sources))
	case key.Matches(msg, m.keys.Back):
		m.flow.Leave()
	case key.Matches(msg, m.keys.Select):
		if len(m.sources) == 0 {
			return nil
		}
		m.flow.ChooseSource(m.sources[m.cursor].ID)
		m.cursor = 0
		return m.resolveSource(m.flow.EnterEmbeds())
	}
	return nil
}

func (m *Overlay) handleEmbedKey(msg tea.KeyMsg) tea.Cmd {
	rows := m.flow.Rows()
	switch {
	case key.Matches(msg, m.keys.Up):
		m.move(-1, len(rows))
	case key.Matches(msg, m.keys.Down):
		m.move(1, len(rows))
	case key.Matches(msg, m.keys.Retry):
		return m.resolveSource(m.flow.Retry())
	case key.Matches(msg, m.keys.Back):
		m.flow.Back()
		m.refreshSources()
	case key.Matches(msg, m.keys.Select):
		req, ok := m.flow.ActivateEmbed(m.cursor)
		if !ok {
			return nil
		}
		flow, ctx := m.flow, m.ctx
		return func() tea.Msg {
			return embedResolvedMsg{out: flow.RunEmbed(ctx, req)}
		}
	}
	return nil
}

func (m *Overlay) resolveSource(req selection.SourceRequest, ok bool) tea.Cmd {
	if !ok {
		return nil
	}
	flow, ctx := m.flow, m.ctx
	return func() tea.Msg {
		return sourceResolvedMsg{out: flow.RunSource(ctx, req)}
	}
}

// refreshSources reloads the source list and puts the cursor on the chosen
// or committed source.
func (m *Overlay) refreshSources() {
	m.sources = m.flow.Sources()
	m.cursor = 0
	for i, s := range m.sources {
		if s.ID == m.flow.Chosen() || (m.flow.Chosen() == "" && s.Selected) {
			m.cursor = i
			break
		}
	}
}

func (m *Overlay) move(delta, n int) {
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = (m.cursor + delta + n) % n
}

// View renders the active route.
func (m *Overlay) View() string {
	if m.done() {
		return ""
	}

	var b strings.Builder
	switch m.router.Current() {
	case selection.RouteEmbeds:
		b.WriteString(titleStyle.Render(m.flow.ChosenName()))
		b.WriteString("\n\n")
		m.viewEmbeds(&b)
	default:
		b.WriteString(titleStyle.Render("Sources for " + m.title))
		b.WriteString("\n\n")
		m.viewSources(&b)
	}
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return frameStyle.Render(b.String())
}

func (m *Overlay) viewSources(b *strings.Builder) {
	if len(m.sources) == 0 {
		b.WriteString(dimStyle.Render("No sources support this media"))
		b.WriteString("\n")
		return
	}
	for i, s := range m.sources {
		line := s.Name
		if s.Selected {
			line += " " + checkStyle.Render(checkMark)
		}
		b.WriteString(m.row(i, line))
	}
}

func (m *Overlay) viewEmbeds(b *strings.Builder) {
	switch m.flow.Status() {
	case selection.Loading:
		fmt.Fprintf(b, "%s %s\n", m.spinner.View(), MsgLoading)
	case selection.NoEmbeds:
		b.WriteString(dimStyle.Render(MsgNoEmbeds))
		b.WriteString("\n")
	case selection.Failed:
		b.WriteString(errorStyle.Render(MsgFailed))
		b.WriteString("\n")
	case selection.Listed:
		for i, r := range m.flow.Rows() {
			line := r.Name
			switch r.Status {
			case selection.RowLoading:
				line += " " + m.spinner.View()
			case selection.RowFailed:
				line += " " + errorStyle.Render("failed")
			}
			b.WriteString(m.row(i, line))
		}
	}
}

func (m *Overlay) row(i int, text string) string {
	if i == m.cursor {
		return selectedTitle.Render(text) + "\n"
	}
	return "  " + text + "\n"
}
