// Package ui implements the interactive contact picker shown when the tool
// is invoked with a bare file path.
package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/v2/textinput"
	tea "github.com/charmbracelet/bubbletea/v2"

	"github.com/danhigham/tgsend/internal/directory"
	"github.com/danhigham/tgsend/internal/domain"
)

// SearchFunc produces the entries for a query, pinned entries first.
type SearchFunc func(query string) []directory.Entry

// Model is the picker's Bubble Tea model.
type Model struct {
	input    textinput.Model
	search   SearchFunc
	entries  []directory.Entry
	selected int

	fileName string
	fileSize int64

	width  int
	height int

	choice    *domain.Contact
	cancelled bool
}

func NewModel(search SearchFunc, fileName string, fileSize int64) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to search..."
	ti.Prompt = "search: "
	ti.Focus()

	return Model{
		input:    ti,
		search:   search,
		entries:  search(""),
		fileName: fileName,
		fileSize: fileSize,
	}
}

func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "ctrl+p":
			if m.selected > 0 {
				m.selected--
			}
			return m, nil
		case "down", "ctrl+n":
			if m.selected < len(m.entries)-1 {
				m.selected++
			}
			return m, nil
		case "enter":
			if len(m.entries) > 0 {
				c := m.entries[m.selected].Contact
				m.choice = &c
			}
			return m, tea.Quit
		case "esc", "ctrl+c":
			m.cancelled = true
			return m, tea.Quit
		}
	}

	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		m.entries = m.search(m.input.Value())
		m.selected = 0
	}
	return m, cmd
}

func (m Model) View() string {
	var v string
	v += headerStyle.Render("Telegram File Sender") + "\n\n"
	if m.fileName != "" {
		v += fileStyle.Render(m.fileName) +
			dimStyle.Render("  ("+formatFileSize(m.fileSize)+")") + "\n\n"
	}
	v += m.input.View() + "\n\n"

	if len(m.entries) == 0 {
		v += warningStyle.Render("  No matches found") + "\n"
	} else {
		visible := m.visibleRows()
		start := 0
		if m.selected >= visible {
			start = m.selected - visible + 1
		}
		end := min(start+visible, len(m.entries))

		for i := start; i < end; i++ {
			v += m.renderEntry(i) + "\n"
		}
		if remaining := len(m.entries) - end; remaining > 0 {
			v += moreStyle.Render(fmt.Sprintf("    %d more...", remaining)) + "\n"
		}
	}

	v += "\n" + hintStyle.Render("up/down navigate - enter select - esc cancel")
	return v
}

func (m Model) renderEntry(i int) string {
	e := m.entries[i]

	name := e.Contact.Name
	if e.Pinned {
		name = "* " + name
	}
	label := kindLabel(e.Contact.Kind)

	if i == m.selected {
		return selectedStyle.Render("> "+name) + "  " + dimStyle.Render(label)
	}
	return itemStyle.Render("  "+name) + "  " + dimStyle.Render(label)
}

// visibleRows keeps the header, input and hint lines on screen.
func (m Model) visibleRows() int {
	reserved := 8
	if m.fileName != "" {
		reserved += 2
	}
	rows := m.height - reserved
	if rows < 3 {
		rows = 3
	}
	return rows
}

// Choice returns the selected contact, or false when the picker was
// cancelled.
func (m Model) Choice() (domain.Contact, bool) {
	if m.cancelled || m.choice == nil {
		return domain.Contact{}, false
	}
	return *m.choice, true
}

// Pick runs the picker full-screen and returns the chosen contact.
func Pick(search SearchFunc, fileName string, fileSize int64) (domain.Contact, bool, error) {
	p := tea.NewProgram(NewModel(search, fileName, fileSize))
	final, err := p.Run()
	if err != nil {
		return domain.Contact{}, false, fmt.Errorf("run picker: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return domain.Contact{}, false, fmt.Errorf("unexpected final model %T", final)
	}
	c, chosen := m.Choice()
	return c, chosen, nil
}

func kindLabel(kind domain.ContactKind) string {
	switch kind {
	case domain.KindGroup:
		return "group"
	case domain.KindChannel:
		return "channel"
	case domain.KindBot:
		return "bot"
	default:
		return "user"
	}
}

func formatFileSize(size int64) string {
	switch {
	case size >= 1<<30:
		return fmt.Sprintf("%.2f GB", float64(size)/(1<<30))
	case size >= 1<<20:
		return fmt.Sprintf("%.2f MB", float64(size)/(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.2f KB", float64(size)/(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
