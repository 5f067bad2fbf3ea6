package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ErrCancelled is returned when the user backs out of a picker or prompt.
var ErrCancelled = errors.New("selection cancelled")

type pickItem struct {
	index int
	label string
}

func (i pickItem) Title() string       { return i.label }
func (i pickItem) Description() string { return "" }
func (i pickItem) FilterValue() string { return i.label }

type picker struct {
	list      list.Model
	choice    int
	cancelled bool
}

func newPicker(title string, items []string) *picker {
	listItems := make([]list.Item, len(items))
	for i, it := range items {
		listItems[i] = pickItem{index: i, label: it}
	}

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = false
	delegate.SetSpacing(0)
	delegate.Styles.SelectedTitle = selectedTitle
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.Foreground(lipgloss.Color("7"))

	l := list.New(listItems, delegate, 80, 20)
	l.Title = title
	l.Styles.Title = titleStyle
	l.SetShowStatusBar(false)
	l.SetStatusBarItemName("item", "items")

	return &picker{list: l, choice: -1}
}

func (p *picker) Init() tea.Cmd { return nil }

func (p *picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.list.SetSize(msg.Width, msg.Height-1)
		return p, nil
	case tea.KeyMsg:
		if p.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "enter":
			if it, ok := p.list.SelectedItem().(pickItem); ok {
				p.choice = it.index
				return p, tea.Quit
			}
		case "esc", "ctrl+c", "q":
			if p.list.FilterState() == list.FilterApplied && msg.String() == "esc" {
				break
			}
			p.cancelled = true
			return p, tea.Quit
		}
	}

	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

func (p *picker) View() string {
	return p.list.View()
}

// Pick shows items in a filterable list and returns the chosen index.
func Pick(title string, items []string, opts ...tea.ProgramOption) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	p := newPicker(title, items)
	if _, err := tea.NewProgram(p, opts...).Run(); err != nil {
		return -1, fmt.Errorf("running picker: %w", err)
	}
	if p.cancelled || p.choice < 0 {
		return -1, ErrCancelled
	}
	return p.choice, nil
}

// Confirm asks a yes/no question.
func Confirm(prompt string, opts ...tea.ProgramOption) (bool, error) {
	idx, err := Pick(prompt, []string{"Yes", "No"}, opts...)
	if err != nil {
		return false, err
	}
	return idx == 0, nil
}

type prompt struct {
	input     textinput.Model
	cancelled bool
}

func newPrompt(label string) *prompt {
	in := textinput.New()
	in.Prompt = label + " > "
	in.Placeholder = "title"
	in.CharLimit = 120
	in.Focus()
	return &prompt{input: in}
}

func (p *prompt) Init() tea.Cmd { return textinput.Blink }

func (p *prompt) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.Type {
		case tea.KeyEnter:
			return p, tea.Quit
		case tea.KeyEsc, tea.KeyCtrlC:
			p.cancelled = true
			return p, tea.Quit
		}
	}

	var cmd tea.Cmd
	p.input, cmd = p.input.Update(msg)
	return p, cmd
}

func (p *prompt) View() string {
	return p.input.View() + "\n"
}

// Input prompts for a line of free text.
func Input(label string, opts ...tea.ProgramOption) (string, error) {
	p := newPrompt(label)
	if _, err := tea.NewProgram(p, opts...).Run(); err != nil {
		return "", fmt.Errorf("running prompt: %w", err)
	}
	value := strings.TrimSpace(p.input.Value())
	if p.cancelled || value == "" {
		return "", ErrCancelled
	}
	return value, nil
}
