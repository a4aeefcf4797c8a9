package pricelist

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	enc "github.com/MrJamesThe3rd/tally/internal/encoding"
	"github.com/MrJamesThe3rd/tally/internal/importer"
)

var dateLayouts = []string{time.DateOnly, "02-01-2006", "02/01/2006"}

// Parser reads ';'-separated price list exports. The header row can be
// preceded by free-form title lines; it is found by matching known profiles.
type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Parse(r io.Reader) ([]importer.PriceRow, error) {
	utf8r, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, fmt.Errorf("detect encoding: %w", err)
	}

	reader := csv.NewReader(utf8r)
	reader.Comma = ';'
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	if len(rows) == 0 {
		return nil, nil
	}

	profile, cols, headerIdx := detectProfile(rows)
	if profile == nil {
		return nil, fmt.Errorf("no matching price list format found: expected item code, date, retail and consumer columns")
	}

	return parseRows(profile, cols, rows[headerIdx+1:], headerIdx+1)
}

type colIndex map[string]int

func detectProfile(rows [][]string) (*Profile, colIndex, int) {
	for rowIdx, row := range rows {
		cols := make(colIndex)

		for i, cell := range row {
			name := strings.TrimSpace(cell)
			if name != "" {
				cols[name] = i
			}
		}

		for i := range profiles {
			if matchesProfile(&profiles[i], cols) {
				return &profiles[i], cols, rowIdx
			}
		}
	}

	return nil, nil, 0
}

func matchesProfile(p *Profile, cols colIndex) bool {
	for _, name := range p.requiredCols() {
		if _, ok := cols[name]; !ok {
			return false
		}
	}

	return true
}

// parseRows turns data rows into price rows. Blank lines are skipped; any
// other malformed row fails the whole file so a partial list is never imported.
func parseRows(p *Profile, cols colIndex, rows [][]string, headerRowNum int) ([]importer.PriceRow, error) {
	var out []importer.PriceRow

	for i, row := range rows {
		line := headerRowNum + i + 1

		code := cellValue(row, cols[p.CodeCol])
		if code == "" {
			if isBlank(row) {
				continue
			}

			return nil, fmt.Errorf("line %d: missing item code", line)
		}

		date, err := parseDate(cellValue(row, cols[p.DateCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		retail, err := parseAmount(cellValue(row, cols[p.RetailCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid retail price: %w", line, err)
		}

		consumer, err := parseAmount(cellValue(row, cols[p.ConsumerCol]))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid consumer price: %w", line, err)
		}

		if retail < 0 || consumer < 0 {
			return nil, fmt.Errorf("line %d: prices cannot be negative", line)
		}

		out = append(out, importer.PriceRow{
			Line:          line,
			ItemCode:      code,
			EffectiveDate: date,
			Retail:        retail,
			Consumer:      consumer,
		})
	}

	return out, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("invalid effective date %q", s)
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}

	return true
}
