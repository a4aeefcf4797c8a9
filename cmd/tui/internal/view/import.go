package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/product"
)

const importTimeout = 2 * time.Minute

type importState int

const (
	importStateSourceSelect importState = iota
	importStateFilePick
	importStateParsing
	importStatePreview
	importStateApplying
	importStateResult
)

type ImportModel struct {
	CommonModel
	products      *product.Service
	importService *importer.Service

	state          importState
	filePicker     filepicker.Model
	selectedSource importer.Source
	sourceOptions  []importer.Source
	sourceCursor   int

	rows        []importer.PriceRow
	previewList list.Model

	status  string
	unknown []string
	err     error
}

func NewImportModel(products *product.Service, impSvc *importer.Service) ImportModel {
	fp := filepicker.New()
	fp.CurrentDirectory, _ = os.Getwd()
	fp.AllowedTypes = []string{".csv", ".txt"}
	fp.ShowHidden = false
	fp.DirAllowed = false
	fp.FileAllowed = true
	fp.SetHeight(15)

	return ImportModel{
		products:      products,
		importService: impSvc,
		filePicker:    fp,
		sourceOptions: []importer.Source{importer.SourcePriceList},
	}
}

func (m ImportModel) Title() string { return "Import Price List" }

func (m ImportModel) ShortHelp() string {
	if m.state == importStatePreview {
		return "Enter: apply prices | Esc: cancel"
	}

	return "Esc: back | Enter: select"
}

func (m ImportModel) Init() tea.Cmd {
	return m.filePicker.Init()
}

func (m ImportModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m.handleEsc()
		}

		if m.state == importStateSourceSelect {
			return m.updateSourceSelect(msg)
		}

		if m.state == importStatePreview {
			return m.updatePreview(msg)
		}

	case parseResultMsg:
		if msg.err != nil {
			m.state = importStateResult
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		if len(msg.rows) == 0 {
			m.state = importStateResult
			m.status = "The file has no price rows."

			return m, nil
		}

		m.rows = msg.rows
		m.state = importStatePreview

		items := make([]list.Item, len(m.rows))
		for i, r := range m.rows {
			items[i] = priceRowItem{row: r}
		}

		m.previewList = list.New(items, priceRowDelegate{}, 80, 20)
		m.previewList.Title = fmt.Sprintf("%d prices to apply", len(m.rows))
		m.previewList.SetShowStatusBar(false)
		m.previewList.SetFilteringEnabled(false)
		m.previewList.SetShowHelp(false)

		return m, nil

	case applyResultMsg:
		m.state = importStateResult
		if msg.err != nil {
			m.err = msg.err
			m.status = fmt.Sprintf("Error: %v", msg.err)

			return m, nil
		}

		m.status = fmt.Sprintf("Applied %d prices.", msg.result.Applied)
		m.unknown = msg.result.UnknownCodes

		return m, nil
	}

	if m.state != importStateFilePick {
		return m, nil
	}

	var cmd tea.Cmd
	m.filePicker, cmd = m.filePicker.Update(msg)

	if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
		m.state = importStateParsing
		m.status = fmt.Sprintf("Reading %s...", path)

		return m, m.parseCmd(path)
	}

	return m, cmd
}

func (m ImportModel) handleEsc() (tea.Model, tea.Cmd) {
	switch m.state {
	case importStateFilePick:
		m.state = importStateSourceSelect
		return m, nil
	case importStateResult, importStatePreview:
		m.state = importStateSourceSelect
		m.err = nil
		m.status = ""
		m.rows = nil
		m.unknown = nil

		return m, nil
	}

	return m, Back
}

func (m ImportModel) updateSourceSelect(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyUp:
		if m.sourceCursor > 0 {
			m.sourceCursor--
		}
	case tea.KeyDown:
		if m.sourceCursor < len(m.sourceOptions)-1 {
			m.sourceCursor++
		}
	case tea.KeyEnter:
		m.selectedSource = m.sourceOptions[m.sourceCursor]
		m.state = importStateFilePick

		return m, m.filePicker.Init()
	}

	return m, nil
}

func (m ImportModel) updatePreview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" {
		m.state = importStateApplying
		m.status = "Applying prices..."

		return m, m.applyCmd()
	}

	var cmd tea.Cmd
	m.previewList, cmd = m.previewList.Update(msg)

	return m, cmd
}

func (m ImportModel) View() string {
	switch m.state {
	case importStateSourceSelect:
		return m.viewSourceSelect()
	case importStateFilePick:
		return m.viewFilePick()
	case importStateParsing, importStateApplying:
		return lipgloss.NewStyle().Padding(2).Render(m.status)
	case importStatePreview:
		return lipgloss.NewStyle().Padding(1).Render(m.previewList.View())
	case importStateResult:
		return m.viewResult()
	}

	return ""
}

func (m ImportModel) viewSourceSelect() string {
	s := "Select format:\n\n"

	for i, source := range m.sourceOptions {
		cursor := " "
		if i == m.sourceCursor {
			cursor = ">"
		}

		s += fmt.Sprintf("%s %s\n", cursor, string(source))
	}

	return lipgloss.NewStyle().Padding(2).Render(s)
}

func (m ImportModel) viewFilePick() string {
	return lipgloss.NewStyle().Padding(1).Render(
		fmt.Sprintf("Select file to import (%s):\n\n%s", m.selectedSource, m.filePicker.View()),
	)
}

func (m ImportModel) viewResult() string {
	style := lipgloss.NewStyle().Padding(2)
	if m.err != nil {
		return style.Render(errorStyle(m.status) + "\n\n(Esc to go back)")
	}

	s := lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Render(m.status)
	if len(m.unknown) > 0 {
		s += "\n\n" + errorStyle(fmt.Sprintf("Unknown item codes (%d):", len(m.unknown))) +
			"\n  " + strings.Join(m.unknown, "\n  ")
	}

	return style.Render(s + "\n\n(Esc to go back)")
}

// Messages

type parseResultMsg struct {
	rows []importer.PriceRow
	err  error
}

type applyResultMsg struct {
	result *product.ImportResult
	err    error
}

func (m ImportModel) parseCmd(path string) tea.Cmd {
	source := m.selectedSource

	return func() tea.Msg {
		f, err := os.Open(path)
		if err != nil {
			return parseResultMsg{err: err}
		}
		defer f.Close()

		rows, err := m.importService.Import(source, f)
		if err != nil {
			return parseResultMsg{err: err}
		}

		return parseResultMsg{rows: rows}
	}
}

func (m ImportModel) applyCmd() tea.Cmd {
	rows := m.rows

	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), importTimeout)
		defer cancel()

		res, err := m.products.ImportPrices(ctx, rows)
		if err != nil {
			return applyResultMsg{err: err}
		}

		return applyResultMsg{result: res}
	}
}

// Preview list item

type priceRowItem struct {
	row importer.PriceRow
}

func (i priceRowItem) Title() string       { return i.row.ItemCode }
func (i priceRowItem) Description() string { return "" }
func (i priceRowItem) FilterValue() string { return i.row.ItemCode }

type priceRowDelegate struct{}

func (d priceRowDelegate) Height() int                             { return 1 }
func (d priceRowDelegate) Spacing() int                            { return 0 }
func (d priceRowDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d priceRowDelegate) Render(w io.Writer, m list.Model, index int, listItem list.Item) {
	item, ok := listItem.(priceRowItem)
	if !ok {
		return
	}

	cursor := "  "
	if index == m.Index() {
		cursor = "> "
	}

	fmt.Fprintf(w, "%s%-14s  from %s  retail %10s  consumer %10s",
		cursor,
		item.row.ItemCode,
		FormatDate(item.row.EffectiveDate),
		FormatAmount(item.row.Retail),
		FormatAmount(item.row.Consumer),
	)
}
