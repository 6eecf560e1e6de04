// Package browser is the terminal UI over a directory.Pager. Every pager
// call runs as a tea.Cmd so the event loop never blocks on the network.
package browser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/directory"
)

const pageSizeStep = 5

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))

	columns = []struct {
		title string
		width int
		value func(v1.Party) string
	}{
		{"ID", 10, func(p v1.Party) string { return p.ID }},
		{"NAME", 24, func(p v1.Party) string { return p.Name }},
		{"PHONE", 16, func(p v1.Party) string { return p.Phone }},
		{"LOCATION", 16, func(p v1.Party) string { return p.Location }},
	}
)

// loadedMsg reports the end of one pager operation.
type loadedMsg struct {
	err error
}

// Model is the bubbletea model. The pager owns paging state; the model only
// tracks what the UI is doing.
type Model struct {
	ctx   context.Context
	pager *directory.Pager

	filter  textinput.Model
	editing bool
	loading bool
	err     error
}

func New(ctx context.Context, pager *directory.Pager) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "id, name, phone or location"
	ti.CharLimit = 64

	return Model{ctx: ctx, pager: pager, filter: ti, loading: true}
}

// Run shows the browser until the user quits or ctx ends.
func Run(ctx context.Context, pager *directory.Pager, in io.Reader, out io.Writer) error {
	p := tea.NewProgram(New(ctx, pager), tea.WithContext(ctx), tea.WithInput(in), tea.WithOutput(out))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.do(func(ctx context.Context) error { return m.pager.GoToPage(ctx, 0) })
}

func (m Model) do(op func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return loadedMsg{err: op(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadedMsg:
		if errors.Is(msg.err, directory.ErrSuperseded) {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.editing {
			return m.updateFilter(msg)
		}
		if m.loading {
			return m, nil
		}
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var op func(ctx context.Context) error

	switch msg.String() {
	case "q", "esc":
		return m, tea.Quit
	case "n", "right", "l":
		op = m.pager.Next
	case "p", "left", "h":
		op = m.pager.Prev
	case "g", "home":
		op = func(ctx context.Context) error { return m.pager.GoToPage(ctx, 0) }
	case "r":
		op = m.pager.Reload
	case "+":
		size := m.pager.State().PageSize + pageSizeStep
		op = func(ctx context.Context) error { return m.pager.SetPageSize(ctx, size) }
	case "-":
		size := max(m.pager.State().PageSize-pageSizeStep, 1)
		op = func(ctx context.Context) error { return m.pager.SetPageSize(ctx, size) }
	case "/":
		m.editing = true
		m.filter.SetValue(m.pager.State().Filter)
		m.filter.CursorEnd()
		return m, m.filter.Focus()
	default:
		return m, nil
	}

	m.loading = true
	return m, m.do(op)
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.editing = false
		m.filter.Blur()
		m.loading = true
		value := strings.TrimSpace(m.filter.Value())
		return m, m.do(func(ctx context.Context) error { return m.pager.SetFilter(ctx, value) })
	case tea.KeyEsc:
		m.editing = false
		m.filter.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	state := m.pager.State()
	var b strings.Builder

	title := fmt.Sprintf("%s  page %d/%d  %d rows", strings.ToUpper(string(state.Kind)),
		state.PageIndex+1, max(m.pager.Pages(), 1), state.TotalCount)
	if state.Filter != "" {
		title += fmt.Sprintf("  filter %q", state.Filter)
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	b.WriteString(renderRow(headerStyle, func(i int) string { return columns[i].title }))
	rows := m.pager.Rows()
	for _, p := range rows {
		b.WriteString(renderRow(lipgloss.NewStyle(), func(i int) string { return columns[i].value(p) }))
	}
	if len(rows) == 0 && !m.loading {
		b.WriteString(mutedStyle.Render("no matching rows"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	switch {
	case m.editing:
		b.WriteString(m.filter.View())
	case m.loading || state.Loading:
		b.WriteString(mutedStyle.Render("loading..."))
	case m.err != nil:
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
	default:
		b.WriteString(mutedStyle.Render("n/p page  / filter  +/- page size  r reload  q quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func renderRow(style lipgloss.Style, cell func(i int) string) string {
	cells := make([]string, len(columns))
	for i, c := range columns {
		cells[i] = style.Width(c.width).MaxWidth(c.width).Render(cell(i))
	}
	return strings.Join(cells, " ") + "\n"
}
