package view

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/statement"
)

// OpenStatementMsg asks the root model to show one customer's statement.
type OpenStatementMsg struct {
	CustomerID uuid.UUID
}

type StatementsModel struct {
	CommonModel
	statements *statement.Service

	table   table.Model
	rows    []*statement.Statement
	summary statement.Summary
	debtors bool

	loading bool
	err     error
}

func NewStatementsModel(svc *statement.Service) StatementsModel {
	columns := []table.Column{
		{Title: "Customer", Width: 30},
		{Title: "Balance", Width: 12},
		{Title: "Current", Width: 10},
		{Title: "1-30", Width: 10},
		{Title: "31-60", Width: 10},
		{Title: "61-90", Width: 10},
		{Title: "90+", Width: 10},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return StatementsModel{
		statements: svc,
		table:      t,
		loading:    true,
	}
}

func (m StatementsModel) Title() string { return "Statements" }

func (m StatementsModel) ShortHelp() string {
	return "Esc: back | Enter: open | d: debtors only | r: refresh"
}

func (m StatementsModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m StatementsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadStatementsMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.rows = msg.statements
		m.summary = statement.Summarize(msg.statements)
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 14)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "d":
			m.debtors = !m.debtors
			m.refreshTable()

			return m, nil
		case "enter":
			if st := m.selected(); st != nil {
				id := st.Customer.ID
				return m, func() tea.Msg { return OpenStatementMsg{CustomerID: id} }
			}

			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m StatementsModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading statements...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)))
	}

	kpi := func(label, value string) string {
		return boxStyle().Padding(0, 2).Render(label + "\n" + activeStyle(value))
	}

	kpis := lipgloss.JoinHorizontal(lipgloss.Top,
		kpi("Outstanding", FormatAmount(m.summary.TotalOutstanding)),
		kpi("Current", FormatAmount(m.summary.TotalCurrent)),
		kpi("Overdue", FormatAmount(m.summary.TotalOverdue)),
		kpi("With debt", fmt.Sprintf("%d", m.summary.CustomersWithDebt)),
		kpi("Overdue customers", fmt.Sprintf("%d", m.summary.CustomersOverdue)),
	)

	filter := "All customers"
	if m.debtors {
		filter = "Customers with a balance"
	}

	return lipgloss.NewStyle().Padding(1).Render(lipgloss.JoinVertical(lipgloss.Left,
		kpis,
		lipgloss.NewStyle().PaddingTop(1).PaddingBottom(1).Render("Filter: [d] "+activeStyle(filter)),
		boxStyle().Render(m.table.View()),
	))
}

// visible returns the statements shown in the table, in table order.
func (m StatementsModel) visible() []*statement.Statement {
	if !m.debtors {
		return m.rows
	}

	out := make([]*statement.Statement, 0, len(m.rows))
	for _, st := range m.rows {
		if st.TotalBalance > 0 {
			out = append(out, st)
		}
	}

	return out
}

func (m StatementsModel) selected() *statement.Statement {
	rows := m.visible()

	idx := m.table.Cursor()
	if idx < 0 || idx >= len(rows) {
		return nil
	}

	return rows[idx]
}

func (m *StatementsModel) refreshTable() {
	visible := m.visible()

	rows := make([]table.Row, 0, len(visible))
	for _, st := range visible {
		rows = append(rows, table.Row{
			st.Customer.Name,
			FormatAmount(st.TotalBalance),
			FormatAmount(st.Aging.Current),
			FormatAmount(st.Aging.Days30),
			FormatAmount(st.Aging.Days60),
			FormatAmount(st.Aging.Days90),
			FormatAmount(st.Aging.Days120Plus),
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadStatementsMsg struct {
	statements []*statement.Statement
	err        error
}

func (m StatementsModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		all, err := m.statements.All(ctx)

		return loadStatementsMsg{statements: all, err: err}
	}
}
