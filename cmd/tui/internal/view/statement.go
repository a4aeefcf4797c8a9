package view

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/payment"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

// CloseStatementMsg returns to the statements list.
type CloseStatementMsg struct{}

type statementState int

const (
	statementStateBrowse statementState = iota
	statementStatePayment
	statementStateSaving
)

// Services the statement screen needs.
type StatementDeps struct {
	Statements *statement.Service
	Invoices   *invoice.Service
	Payments   *payment.Service
	Exports    *export.Service
	ExportDir  string
}

type StatementModel struct {
	CommonModel
	deps       StatementDeps
	customerID uuid.UUID

	state   statementState
	st      *statement.Statement
	open    []invoice.View
	table   table.Model
	form    *huh.Form
	spinner spinner.Model

	loading bool
	err     error
	status  string

	// Form bindings
	formAmount    string
	formMethod    string
	formReference string
	formInvoice   uuid.UUID
}

func NewStatementModel(deps StatementDeps, customerID uuid.UUID) StatementModel {
	columns := []table.Column{
		{Title: "Date", Width: 12},
		{Title: "Type", Width: 8},
		{Title: "Reference", Width: 16},
		{Title: "Debit", Width: 12},
		{Title: "Credit", Width: 12},
		{Title: "Balance", Width: 12},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	return StatementModel{
		deps:       deps,
		customerID: customerID,
		table:      t,
		spinner:    s,
		loading:    true,
	}
}

func (m StatementModel) Title() string { return "Statement" }

func (m StatementModel) ShortHelp() string {
	if m.state == statementStatePayment {
		return "Navigate form | Esc: cancel"
	}

	return "Esc: back | p: record payment | x: export CSV | r: refresh"
}

func (m StatementModel) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.spinner.Tick)
}

func (m StatementModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadStatementMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.st = msg.st
		m.open = msg.open
		m.refreshTable()

		return m, nil

	case paymentSavedMsg:
		m.state = statementStateBrowse
		m.form = nil
		m.table.Focus()

		if msg.err != nil {
			m.status = errorStyle(describeError(msg.err))
			return m, nil
		}

		m.status = fmt.Sprintf("Payment of %s recorded.%s", FormatAmount(msg.result.Payment.TotalAmount), describeChanges(msg.result))

		return m, m.loadCmd()

	case exportedMsg:
		if msg.err != nil {
			m.status = errorStyle(fmt.Sprintf("Export failed: %v", msg.err))
			return m, nil
		}

		m.status = "Exported to " + msg.path

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd
	}

	switch m.state {
	case statementStateBrowse:
		return m.updateBrowse(msg)
	case statementStatePayment:
		return m.updatePayment(msg)
	}

	return m, nil
}

func (m StatementModel) updateBrowse(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, func() tea.Msg { return CloseStatementMsg{} }
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "x":
			m.status = "Exporting..."
			return m, m.exportCmd()
		case "p":
			return m.enterPaymentMode()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m StatementModel) enterPaymentMode() (tea.Model, tea.Cmd) {
	if len(m.open) == 0 {
		m.status = "No open invoices to allocate a payment to."
		return m, nil
	}

	options := make([]huh.Option[uuid.UUID], 0, len(m.open))
	for _, v := range m.open {
		label := fmt.Sprintf("%s  %s  due %s", v.InvoiceNumber, FormatDate(v.AgingDate()), FormatAmount(v.BalanceDue))
		options = append(options, huh.NewOption(label, v.ID))
	}

	m.formAmount = FormatAmount(m.open[0].BalanceDue)
	m.formMethod = "transfer"
	m.formReference = ""
	m.formInvoice = m.open[0].ID

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[uuid.UUID]().
				Key("invoice").
				Title("Invoice").
				Options(options...).
				Value(&m.formInvoice),

			huh.NewInput().
				Key("amount").
				Title("Amount").
				Value(&m.formAmount).
				Validate(func(s string) error {
					_, err := parseAmount(s)
					return err
				}),

			huh.NewSelect[string]().
				Key("method").
				Title("Method").
				Options(huh.NewOptions("transfer", "cash", "card", "cheque")...).
				Value(&m.formMethod),

			huh.NewInput().
				Key("reference").
				Title("Reference").
				Placeholder("optional").
				Value(&m.formReference),
		),
	).WithWidth(50).WithShowHelp(false)

	m.state = statementStatePayment
	m.table.Blur()

	return m, m.form.Init()
}

func (m StatementModel) updatePayment(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.state = statementStateBrowse
		m.form = nil
		m.table.Focus()

		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	m.state = statementStateSaving

	return m, m.savePaymentCmd()
}

func (m StatementModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render(m.spinner.View() + " Loading statement...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(errorStyle(fmt.Sprintf("Error: %v", m.err)))
	}

	header := lipgloss.NewStyle().Bold(true).Render(m.st.Customer.Name)
	if len(m.st.ChildCustomers) > 0 {
		names := make([]string, len(m.st.ChildCustomers))
		for i, c := range m.st.ChildCustomers {
			names[i] = c.Name
		}

		header += lipgloss.NewStyle().Faint(true).Render("  incl. " + strings.Join(names, ", "))
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		agingView(m.st.Aging, m.st.TotalBalance),
		"",
		boxStyle().Render(m.table.View()),
	)

	switch m.state {
	case statementStatePayment:
		panel := lipgloss.NewStyle().
			Padding(1, 2).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Width(54).
			Render("Record Payment\n\n" + m.form.View())

		content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
	case statementStateSaving:
		content += "\n" + m.spinner.View() + " Saving payment..."
	}

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func agingView(a statement.Aging, balance float64) string {
	cell := func(label string, v float64) string {
		value := FormatAmount(v)
		if v > 0 && label != "Current" {
			value = errorStyle(value)
		}

		return boxStyle().Padding(0, 1).Width(14).Render(label + "\n" + value)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		cell("Current", a.Current),
		cell("1-30", a.Days30),
		cell("31-60", a.Days60),
		cell("61-90", a.Days90),
		cell("90+", a.Days120Plus),
		boxStyle().Padding(0, 1).Width(16).Render("Balance\n"+activeStyle(FormatAmount(balance))),
	)
}

// refreshTable lists transactions most recent first, as the statement holds them.
func (m *StatementModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.st.Transactions))
	for _, t := range m.st.Transactions {
		debit, credit := "", ""
		if t.Kind == statement.KindInvoice {
			debit = FormatAmount(t.Debit)
		} else {
			credit = FormatAmount(t.Credit)
		}

		rows = append(rows, table.Row{
			FormatDate(t.Date),
			string(t.Kind),
			t.Reference,
			debit,
			credit,
			FormatAmount(t.Balance),
		})
	}

	m.table.SetRows(rows)
}

func parseAmount(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
	if err != nil {
		return 0, fmt.Errorf("not a valid amount")
	}

	if !d.IsPositive() {
		return 0, fmt.Errorf("amount must be greater than zero")
	}

	return d.Round(2).InexactFloat64(), nil
}

func describeError(err error) string {
	if v, ok := billing.AsValidation(err); ok {
		return v.Message
	}

	return fmt.Sprintf("Error: %v", err)
}

func describeChanges(res *payment.Result) string {
	if len(res.StatusChanges) == 0 {
		return ""
	}

	parts := make([]string, len(res.StatusChanges))
	for i, c := range res.StatusChanges {
		parts[i] = fmt.Sprintf("%s → %s", c.From, c.To)
	}

	return " " + strings.Join(parts, ", ")
}

// Messages

type loadStatementMsg struct {
	st   *statement.Statement
	open []invoice.View
	err  error
}

type paymentSavedMsg struct {
	result *payment.Result
	err    error
}

type exportedMsg struct {
	path string
	err  error
}

func (m StatementModel) loadCmd() tea.Cmd {
	id := m.customerID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		st, err := m.deps.Statements.Statement(ctx, id)
		if err != nil {
			return loadStatementMsg{err: err}
		}

		views, err := m.deps.Invoices.List(ctx, invoice.ListFilter{})
		if err != nil {
			return loadStatementMsg{err: err}
		}

		return loadStatementMsg{st: st, open: openInvoices(st, views)}
	}
}

// openInvoices keeps the statement's invoices that still have a balance due,
// oldest first.
func openInvoices(st *statement.Statement, views []invoice.View) []invoice.View {
	onStatement := make(map[uuid.UUID]bool)
	for _, t := range st.Transactions {
		if t.Kind == statement.KindInvoice {
			onStatement[t.ID] = true
		}
	}

	var open []invoice.View

	for _, v := range views {
		if onStatement[v.ID] && v.BalanceDue > billing.AgingEpsilon {
			open = append(open, v)
		}
	}

	slices.SortFunc(open, func(a, b invoice.View) int { return a.AgingDate().Compare(b.AgingDate()) })

	return open
}

// savePaymentCmd reads the completed form by key since the bound fields
// belong to an earlier copy of the model.
func (m StatementModel) savePaymentCmd() tea.Cmd {
	amount, err := parseAmount(m.form.GetString("amount"))
	if err != nil {
		return func() tea.Msg { return paymentSavedMsg{err: err} }
	}

	invoiceID, ok := m.form.Get("invoice").(uuid.UUID)
	if !ok {
		invoiceID = m.formInvoice
	}

	params := payment.Params{
		CustomerID:  m.st.Customer.ID,
		Date:        time.Now(),
		TotalAmount: amount,
		Method:      m.form.GetString("method"),
		Reference:   strings.TrimSpace(m.form.GetString("reference")),
		Allocations: []billing.PaymentAllocation{{InvoiceID: invoiceID, Amount: amount}},
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		res, err := m.deps.Payments.Record(ctx, params)

		return paymentSavedMsg{result: res, err: err}
	}
}

func (m StatementModel) exportCmd() tea.Cmd {
	id := m.customerID

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		path, err := m.deps.Exports.Export(ctx, id, m.deps.ExportDir)

		return exportedMsg{path: path, err: err}
	}
}
