package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

// StatementSource builds statements for export.
type StatementSource interface {
	Statement(ctx context.Context, customerID uuid.UUID) (*statement.Statement, error)
}

// Service handles the export of customer statements.
type Service struct {
	statements StatementSource
	now        func() time.Time
}

// NewService creates a new export Service.
func NewService(statements StatementSource) *Service {
	return &Service{statements: statements, now: time.Now}
}

// Export writes the statement of customerID as a CSV file in outputDir and
// returns its path.
func (s *Service) Export(ctx context.Context, customerID uuid.UUID, outputDir string) (string, error) {
	st, err := s.statements.Statement(ctx, customerID)
	if err != nil {
		return "", fmt.Errorf("building statement: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	path := filepath.Join(outputDir, Filename(st, s.now()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, st); err != nil {
		return "", err
	}

	return path, nil
}

// Filename names a statement file as YYYYMMDD_Customer_Name.csv.
func Filename(st *statement.Statement, asOf time.Time) string {
	safeName := strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}

		return '_'
	}, st.Customer.Name)

	return fmt.Sprintf("%s_%s.csv", asOf.Format("20060102"), safeName)
}

// WriteCSV writes the statement rows in chronological order followed by the
// aging buckets and the closing balance.
func WriteCSV(w io.Writer, st *statement.Statement) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"Date", "Type", "Reference", "Debit", "Credit", "Balance"}); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	for i := len(st.Transactions) - 1; i >= 0; i-- {
		t := st.Transactions[i]

		row := []string{
			billing.FormatDay(t.Date),
			string(t.Kind),
			t.Reference,
			amount(t.Debit),
			amount(t.Credit),
			amount(t.Balance),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}

	footer := [][]string{
		{},
		{"Current", amount(st.Aging.Current)},
		{"1-30", amount(st.Aging.Days30)},
		{"31-60", amount(st.Aging.Days60)},
		{"61-90", amount(st.Aging.Days90)},
		{"90+", amount(st.Aging.Days120Plus)},
		{"Balance", amount(st.TotalBalance)},
	}
	if err := cw.WriteAll(footer); err != nil {
		return fmt.Errorf("writing aging: %w", err)
	}

	return nil
}

// GenerateEmailBody creates a plain-text summary of the statement suitable for
// pasting into an email.
func GenerateEmailBody(st *statement.Statement) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Statement for %s\n\n", st.Customer.Name)

	for i := len(st.Transactions) - 1; i >= 0; i-- {
		t := st.Transactions[i]

		sign := "+"
		value := t.Debit

		if t.Kind == statement.KindPayment {
			sign = "-"
			value = t.Credit
		}

		ref := t.Reference
		if ref == "" {
			ref = "Sem Referência"
		}

		fmt.Fprintf(&sb, "* %s | %s | %s%s € | %s €\n", billing.FormatDay(t.Date), ref, sign, amount(value), amount(t.Balance))
	}

	fmt.Fprintf(&sb, "\nOverdue: %s €\nBalance due: %s €\n", amount(st.Aging.Overdue()), amount(st.TotalBalance))

	return sb.String()
}

func amount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
