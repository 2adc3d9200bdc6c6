// Package tui renders a browser as an interactive terminal table with a
// checkbox column, a pagination window and a bulk "select first N" prompt.
package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Sternrassler/artic-select/pkg/artwork"
	"github.com/Sternrassler/artic-select/pkg/browser"
	"github.com/Sternrassler/artic-select/pkg/pagination"
)

const (
	defaultTableHeight = 12
	chromeHeight       = 9
	countCharLimit     = 10
)

// mode is what keystrokes currently drive.
type mode int

const (
	modeBrowse mode = iota
	modeCount
)

// viewChangedMsg signals that browser state changed.
type viewChangedMsg struct{}

// opDoneMsg reports the outcome of a navigation or bulk selection.
type opDoneMsg struct {
	err error
}

// Model is the Bubble Tea model over a browser.
//
// Bubble Tea requires value receivers for Init/Update/View.
type Model struct {
	ctx         context.Context
	browser     *browser.Browser
	changes     <-chan struct{}
	unsubscribe func()

	table   table.Model
	input   textinput.Model
	spinner spinner.Model

	view   browser.View
	mode   mode
	status string
	width  int
}

// New creates a model subscribed to b's changes.
func New(ctx context.Context, b *browser.Browser) Model {
	changes, unsubscribe := b.Subscribe()

	input := textinput.New()
	input.Placeholder = "how many rows?"
	input.CharLimit = countCharLimit
	input.Prompt = "Select first: "

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = TableSelectedStyle

	m := Model{
		ctx:         ctx,
		browser:     b,
		changes:     changes,
		unsubscribe: unsubscribe,
		table: table.New(
			table.WithColumns(columns()),
			table.WithFocused(true),
			table.WithHeight(defaultTableHeight),
		),
		input:   input,
		spinner: sp,
	}
	m.table.SetStyles(tableStyles())
	m.refresh()
	return m
}

// Init loads the first page and starts listening for changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.run(m.browser.Load),
		waitForChange(m.changes),
	)
}

// Update handles messages (Bubble Tea interface).
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.table.SetHeight(max(msg.Height-chromeHeight, 3))
		return m, nil

	case viewChangedMsg:
		m.refresh()
		return m, waitForChange(m.changes)

	case opDoneMsg:
		m.refresh()
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.mode == modeCount {
			return m.handleCountKey(msg)
		}
		return m.handleBrowseKey(msg)
	}

	return m, nil
}

func (m Model) handleBrowseKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.unsubscribe()
		return m, tea.Quit

	case "right", "l", "n":
		return m, m.run(m.browser.Next)

	case "left", "h", "p":
		return m, m.run(m.browser.Prev)

	case "r":
		return m, m.run(m.browser.Refresh)

	case " ", "x":
		m.toggleCursor()
		return m, nil

	case "a":
		m.togglePage()
		return m, nil

	case "c":
		m.browser.ClearSelection()
		m.refresh()
		return m, nil

	case "s":
		m.mode = modeCount
		m.input.SetValue("")
		m.table.Blur()
		return m, m.input.Focus()
	}

	if n, err := strconv.Atoi(msg.String()); err == nil && n >= 1 {
		// Digits jump to the page at that position in the window.
		if pages := m.view.Nav.Pages; n <= len(pages) {
			target := pages[n-1]
			return m, m.run(func(ctx context.Context) error { return m.browser.GoToPage(ctx, target) })
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleCountKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return m, nil

	case tea.KeyEnter:
		raw := m.input.Value()
		m.closeInput()
		return m, m.run(func(ctx context.Context) error { return m.browser.SelectFirstInput(ctx, raw) })
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.input.Blur()
	m.table.Focus()
}

// toggleCursor flips the row under the table cursor.
func (m *Model) toggleCursor() {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.view.Rows) {
		return
	}
	if _, err := m.browser.Toggle(m.view.Rows[i].ID); err != nil {
		m.status = err.Error()
	}
	m.refresh()
}

// togglePage selects every row of the page, or clears the page when all
// rows are already selected.
func (m *Model) togglePage() {
	all := len(m.view.Rows) > 0
	ids := make([]int, 0, len(m.view.Rows))
	for _, r := range m.view.Rows {
		all = all && r.Selected
		ids = append(ids, r.ID)
	}
	if all {
		ids = nil
	}
	m.browser.SetPageSelection(ids)
	m.refresh()
}

// refresh pulls a fresh snapshot from the browser into the table.
func (m *Model) refresh() {
	m.view = m.browser.View()
	m.table.SetRows(tableRows(m.view.Rows))
	if c := m.table.Cursor(); c >= len(m.view.Rows) && len(m.view.Rows) > 0 {
		m.table.SetCursor(len(m.view.Rows) - 1)
	}
}

// run executes op off the update loop.
func (m Model) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return opDoneMsg{err: op(ctx)}
	}
}

func waitForChange(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return viewChangedMsg{}
	}
}

// View renders the model (Bubble Tea interface).
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render("Art Institute of Chicago: artworks"))
	b.WriteString("\n")
	b.WriteString(m.table.View())
	b.WriteString("\n\n")
	b.WriteString(renderNav(m.view.Nav))
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(ErrorStyle.Render(m.status))
		b.WriteString("\n")
	}

	if m.mode == modeCount {
		b.WriteString(m.input.View())
		b.WriteString("\n")
		b.WriteString(HelpStyle.Render("enter: select  esc: cancel"))
	} else {
		b.WriteString(HelpStyle.Render("←/→ page  1-5 jump  space toggle  a page  s select first N  c clear  r reload  q quit"))
	}
	b.WriteString("\n")

	return b.String()
}

func (m Model) renderStatus() string {
	parts := []string{
		StatusStyle.Render(fmt.Sprintf("Page %d of %d", m.view.Page, m.view.TotalPages)),
		SelectedCountStyle.Render(fmt.Sprintf("%d selected", m.view.SelectedCount())),
	}
	if m.view.Loading {
		parts = append(parts, m.spinner.View()+StatusStyle.Render(" loading"))
	}
	return strings.Join(parts, StatusStyle.Render("  ·  "))
}

// renderNav draws "‹ Prev  1 [2] 3 4 5  Next ›" with disabled ends dimmed.
func renderNav(nav pagination.Nav) string {
	prev, next := PageStyle.Render("‹ Prev"), PageStyle.Render("Next ›")
	if nav.PrevDisabled {
		prev = DisabledStyle.Render("‹ Prev")
	}
	if nav.NextDisabled {
		next = DisabledStyle.Render("Next ›")
	}

	pages := make([]string, len(nav.Pages))
	for i, p := range nav.Pages {
		if p == nav.Current {
			pages[i] = CurrentPageStyle.Render("[" + strconv.Itoa(p) + "]")
		} else {
			pages[i] = PageStyle.Render(strconv.Itoa(p))
		}
	}

	return prev + "  " + strings.Join(pages, " ") + "  " + next
}

func columns() []table.Column {
	return []table.Column{
		{Title: "[ ]", Width: 3},
		{Title: "ID", Width: 7},
		{Title: "Title", Width: 32},
		{Title: "Place of origin", Width: 16},
		{Title: "Artist", Width: 28},
		{Title: "Inscriptions", Width: 18},
		{Title: "Start", Width: 6},
		{Title: "End", Width: 6},
	}
}

func tableRows(rows []browser.Row) []table.Row {
	out := make([]table.Row, len(rows))
	for i, r := range rows {
		box := "[ ]"
		if r.Selected {
			box = "[x]"
		}
		out[i] = table.Row{
			box,
			strconv.Itoa(r.ID),
			r.Title,
			artwork.Str(r.PlaceOfOrigin),
			artwork.Str(r.ArtistDisplay),
			artwork.Str(r.Inscriptions),
			artwork.Int(r.DateStart),
			artwork.Int(r.DateEnd),
		}
	}
	return out
}
