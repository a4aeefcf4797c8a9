package command

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/MrJamesThe3rd/tally/internal/billing"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/statement"
)

var statementCmd = &cobra.Command{
	Use:   "statement <customer-id>",
	Short: "Print a customer statement",
	Example: `  tallyctl statement 4b1c...
  tallyctl statement 4b1c... --format csv > statement.csv
  tallyctl statement 4b1c... --save`,
	Args: cobra.ExactArgs(1),
	RunE: runStatement,
}

func init() {
	rootCmd.AddCommand(statementCmd)

	statementCmd.Flags().String("format", "table", "Output format: table, csv or email")
	statementCmd.Flags().Bool("save", false, "Write the CSV export into EXPORT_DIR instead of stdout")
	statementCmd.Flags().String("out", "", "Directory for --save, overriding EXPORT_DIR")
}

func runStatement(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid customer id %q: %w", args[0], err)
	}

	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")
	out, _ := cmd.Flags().GetString("out")

	ctx := cmd.Context()

	if save || out != "" {
		if out == "" {
			out = svc.ExportDir
		}

		path, err := svc.Exports.Export(ctx, id, out)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), path)

		return nil
	}

	st, err := svc.Statements.Statement(ctx, id)
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}

	return writeStatement(cmd.OutOrStdout(), st, format)
}

func writeStatement(w io.Writer, st *statement.Statement, format string) error {
	switch format {
	case "csv":
		return export.WriteCSV(w, st)
	case "email":
		_, err := io.WriteString(w, export.GenerateEmailBody(st))
		return err
	case "table":
	default:
		return fmt.Errorf("unknown format %q", format)
	}

	fmt.Fprintf(w, "%s\n\n", st.Customer.Name)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tType\tReference\tDebit\tCredit\tBalance\t")

	for _, t := range st.Transactions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			billing.FormatDay(t.Date), t.Kind, t.Reference, money(t.Debit), money(t.Credit), money(t.Balance))
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	writeAging(w, st.Aging)
	fmt.Fprintf(w, "Balance due: %.2f\n", st.TotalBalance)

	return nil
}

func writeAging(w io.Writer, a statement.Aging) {
	fmt.Fprintf(w, "Current %.2f | 1-30 %.2f | 31-60 %.2f | 61-90 %.2f | 90+ %.2f\n",
		a.Current, a.Days30, a.Days60, a.Days90, a.Days120Plus)
}

// money leaves zero cells blank.
func money(v float64) string {
	if v == 0 {
		return ""
	}

	return fmt.Sprintf("%.2f", billing.Round2(v))
}
