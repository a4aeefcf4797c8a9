package pricelist_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"

	"github.com/MrJamesThe3rd/tally/internal/importer/pricelist"
)

func date(y, m, d int) time.Time {
	return time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)
}

func TestParser_Portuguese(t *testing.T) {
	csv := `Tabela de preços 2026
Fornecedor;ACME LDA

Código;Descrição;Data;Retalho;Consumidor
HOSE-10;Mangueira 10m;01-03-2026;1.234,56;1.499,00
TAP-1;Torneira;2026-03-15;12,50;15,00
`

	p := pricelist.NewParser()
	rows, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "HOSE-10", rows[0].ItemCode)
	assert.Equal(t, date(2026, 3, 1), rows[0].EffectiveDate)
	assert.InDelta(t, 1234.56, rows[0].Retail, 1e-9)
	assert.InDelta(t, 1499.00, rows[0].Consumer, 1e-9)
	assert.Equal(t, 4, rows[0].Line)

	assert.Equal(t, "TAP-1", rows[1].ItemCode)
	assert.Equal(t, date(2026, 3, 15), rows[1].EffectiveDate)
	assert.InDelta(t, 12.50, rows[1].Retail, 1e-9)
}

func TestParser_English(t *testing.T) {
	csv := "Item Code;Effective Date;Retail;Consumer\nP-1;2026-01-01;100.00;115.00\n"

	p := pricelist.NewParser()
	rows, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, "P-1", rows[0].ItemCode)
	assert.InDelta(t, 100.0, rows[0].Retail, 1e-9)
	assert.InDelta(t, 115.0, rows[0].Consumer, 1e-9)
}

func TestParser_Windows1252(t *testing.T) {
	text := "Código;Data;Retalho;Consumidor\nA;01/02/2026;10,00;12,00\n"

	encoded, err := charmap.Windows1252.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	p := pricelist.NewParser()
	rows, err := p.Parse(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	assert.Equal(t, date(2026, 2, 1), rows[0].EffectiveDate)
	assert.InDelta(t, 10.0, rows[0].Retail, 1e-9)
	assert.InDelta(t, 12.0, rows[0].Consumer, 1e-9)
}

func TestParser_Errors(t *testing.T) {
	type testCase struct {
		name    string
		csv     string
		wantErr string
	}

	tests := []testCase{
		{
			name:    "UnknownLayout",
			csv:     "Code;When;Price\nA;2026-01-01;1\n",
			wantErr: "no matching price list format",
		},
		{
			name:    "BadDate",
			csv:     "Item Code;Effective Date;Retail;Consumer\nA;soon;1;1\n",
			wantErr: "line 2: invalid effective date",
		},
		{
			name:    "BadAmount",
			csv:     "Item Code;Effective Date;Retail;Consumer\nA;2026-01-01;abc;1\n",
			wantErr: "line 2: invalid retail price",
		},
		{
			name:    "NegativePrice",
			csv:     "Item Code;Effective Date;Retail;Consumer\nA;2026-01-01;-1;1\n",
			wantErr: "prices cannot be negative",
		},
		{
			name:    "MissingCode",
			csv:     "Item Code;Effective Date;Retail;Consumer\n;2026-01-01;1;1\n",
			wantErr: "line 2: missing item code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := pricelist.NewParser()
			_, err := p.Parse(strings.NewReader(tt.csv))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParser_EmptyFile(t *testing.T) {
	p := pricelist.NewParser()
	rows, err := p.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParser_SkipsSeparatorOnlyRows(t *testing.T) {
	csv := "Item Code;Effective Date;Retail;Consumer\n;;;\nA;2026-01-01;1;2\n"

	p := pricelist.NewParser()
	rows, err := p.Parse(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0].ItemCode)
}
