package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/tally/cmd/tui/internal/view"
	"github.com/MrJamesThe3rd/tally/internal/app"
	"github.com/MrJamesThe3rd/tally/internal/config"
	"github.com/MrJamesThe3rd/tally/internal/database"
)

type model struct {
	svc *app.Services

	currentView View

	statementsView view.StatementsModel
	statementView  view.StatementModel
	importView     view.ImportModel
}

type View int

const (
	ViewMenu       View = 0
	ViewStatements View = 1
	ViewStatement  View = 2
	ViewImport     View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	svc := app.New(cfg, db)

	return model{
		svc:            svc,
		currentView:    ViewMenu,
		statementsView: view.NewStatementsModel(svc.Statements),
		importView:     view.NewImportModel(svc.Products, svc.Imports),
	}
}

func (m model) statementDeps() view.StatementDeps {
	return view.StatementDeps{
		Statements: m.svc.Statements,
		Invoices:   m.svc.Invoices,
		Payments:   m.svc.Payments,
		Exports:    m.svc.Exports,
		ExportDir:  m.svc.ExportDir,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewStatements
				m.statementsView = view.NewStatementsModel(m.svc.Statements)

				return m, m.statementsView.Init()
			case "2":
				m.currentView = ViewImport
				m.importView = view.NewImportModel(m.svc.Products, m.svc.Imports)

				return m, m.importView.Init()
			}
		}
	case view.OpenStatementMsg:
		return m.openStatement(msg.CustomerID)
	case view.CloseStatementMsg:
		m.currentView = ViewStatements
		return m, m.statementsView.Init()
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewStatements:
		var newModel tea.Model
		newModel, cmd = m.statementsView.Update(msg)
		m.statementsView = newModel.(view.StatementsModel)
	case ViewStatement:
		var newModel tea.Model
		newModel, cmd = m.statementView.Update(msg)
		m.statementView = newModel.(view.StatementModel)
	case ViewImport:
		var newModel tea.Model
		newModel, cmd = m.importView.Update(msg)
		m.importView = newModel.(view.ImportModel)
	}

	return m, cmd
}

func (m model) openStatement(customerID uuid.UUID) (tea.Model, tea.Cmd) {
	m.currentView = ViewStatement
	m.statementView = view.NewStatementModel(m.statementDeps(), customerID)

	return m, m.statementView.Init()
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Tally\n\n" +
				"1. Customer Statements\n" +
				"2. Import Price List\n\n" +
				"q. Quit",
		)
	case ViewStatements:
		return m.statementsView.View()
	case ViewStatement:
		return m.statementView.View()
	case ViewImport:
		return m.importView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel(), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
