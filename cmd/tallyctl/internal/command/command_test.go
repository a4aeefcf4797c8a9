package command

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

func sampleStatement() *statement.Statement {
	day := func(d int) time.Time { return time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC) }

	return &statement.Statement{
		Customer: billing.Customer{ID: uuid.New(), Name: "Café Central"},
		Transactions: []statement.Transaction{
			{Kind: statement.KindPayment, Date: day(20), Reference: "TRF-1", Credit: 50, Balance: 65},
			{Kind: statement.KindInvoice, Date: day(1), Reference: "INV-0001", Debit: 115, Balance: 115},
		},
		Aging:        statement.Aging{Current: 15, Days30: 50},
		TotalBalance: 65,
	}
}

func TestWriteStatement(t *testing.T) {
	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStatement(&buf, sampleStatement(), "table"))

		out := buf.String()
		assert.True(t, strings.HasPrefix(out, "Café Central\n"))
		assert.Contains(t, out, "INV-0001")
		assert.Contains(t, out, "115.00")
		assert.Contains(t, out, "Current 15.00 | 1-30 50.00 | 31-60 0.00 | 61-90 0.00 | 90+ 0.00")
		assert.Contains(t, out, "Balance due: 65.00")
	})

	t.Run("csv", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStatement(&buf, sampleStatement(), "csv"))

		assert.True(t, strings.HasPrefix(buf.String(), "Date,Type,Reference,Debit,Credit,Balance\n"))
	})

	t.Run("email", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, writeStatement(&buf, sampleStatement(), "email"))

		assert.Contains(t, buf.String(), "INV-0001")
	})

	t.Run("unknown format", func(t *testing.T) {
		err := writeStatement(&bytes.Buffer{}, sampleStatement(), "pdf")
		assert.ErrorContains(t, err, "unknown format")
	})
}

func TestWriteSummary(t *testing.T) {
	var buf bytes.Buffer

	writeSummary(&buf, &statement.Summary{
		TotalOutstanding:  215,
		TotalCurrent:      100,
		TotalOverdue:      115,
		CustomersWithDebt: 2,
		CustomersOverdue:  1,
		Aging:             statement.Aging{Current: 100, Days90: 115},
	})

	out := buf.String()
	assert.Contains(t, out, "Outstanding: 215.00")
	assert.Contains(t, out, "Overdue:     115.00")
	assert.Contains(t, out, "Customers with debt: 2 (1 overdue)")
	assert.Contains(t, out, "61-90 115.00")
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "", money(0))
	assert.Equal(t, "10.01", money(10.005))
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"statement", "summary", "import-prices", "migrate"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}
