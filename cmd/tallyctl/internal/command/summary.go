package command

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/statement"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print outstanding balances and aging across all customers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := svc.Statements.Summary(cmd.Context())
		if err != nil {
			return fmt.Errorf("build summary: %w", err)
		}

		writeSummary(cmd.OutOrStdout(), s)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func writeSummary(w io.Writer, s *statement.Summary) {
	fmt.Fprintf(w, "Outstanding: %.2f\n", s.TotalOutstanding)
	fmt.Fprintf(w, "Current:     %.2f\n", s.TotalCurrent)
	fmt.Fprintf(w, "Overdue:     %.2f\n", s.TotalOverdue)
	fmt.Fprintf(w, "Customers with debt: %d (%d overdue)\n\n", s.CustomersWithDebt, s.CustomersOverdue)
	writeAging(w, s.Aging)
}
