// Package tui renders a terminal dashboard over the local session archive.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/ccrelay/internal/archive"
	"github.com/theirongolddev/ccrelay/internal/cli"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7")).BorderStyle(lipgloss.NormalBorder()).BorderBottom(true)
	selectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("12"))
)

// App is the dashboard model.
type App struct {
	table  table.Model
	totals archive.Totals
	width  int
}

// New builds the dashboard over the given archived sessions.
func New(sessions []archive.Session, totals archive.Totals) App {
	columns := []table.Column{
		{Title: "Ended", Width: 16},
		{Title: "Title", Width: 40},
		{Title: "Model", Width: 24},
		{Title: "Msgs", Width: 5},
		{Title: "Tokens", Width: 10},
		{Title: "Cost", Width: 8},
	}

	rows := make([]table.Row, 0, len(sessions))
	for _, s := range sessions {
		ended := ""
		if !s.EndedAt.IsZero() {
			ended = s.EndedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, table.Row{
			ended,
			cli.Truncate(s.Title, 40),
			s.Model,
			fmt.Sprintf("%d", s.MessageCount),
			cli.FormatTokens(s.InputTokens + s.OutputTokens),
			cli.FormatCost(s.CostUSD),
		})
	}

	tbl := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(15),
	)
	styles := table.DefaultStyles()
	styles.Header = headerStyle
	styles.Selected = selectStyle
	tbl.SetStyles(styles)

	return App{table: tbl, totals: totals}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.table.SetHeight(msg.Height - 6)
	}

	var cmd tea.Cmd
	a.table, cmd = a.table.Update(msg)
	return a, cmd
}

// View implements tea.Model.
func (a App) View() string {
	header := titleStyle.Render("  ccrelay · synced sessions")
	footer := footerStyle.Render(fmt.Sprintf(
		"  %d sessions  ·  %s in / %s out  ·  %s total  ·  q to quit",
		a.totals.Sessions,
		cli.FormatTokens(a.totals.InputTokens),
		cli.FormatTokens(a.totals.OutputTokens),
		cli.FormatCost(a.totals.CostUSD),
	))
	return header + "\n\n" + a.table.View() + "\n" + footer + "\n"
}
