package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rustyeddy/atlas/journal"
	"github.com/spf13/cobra"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the bracket and equity journal",
	Long: `Query and display journal records from the SQLite database.

Subcommands:
  bracket - Get details of a single bracket by ID
  today   - List brackets submitted today
  day     - List brackets submitted on a specific day
  equity  - List equity snapshots taken on a specific day

Examples:
  trader journal bracket 01HMZ3...
  trader journal today
  trader journal day 2024-01-15
  trader journal equity 2024-01-15`,
}

var journalBracketCmd = &cobra.Command{
	Use:   "bracket <id>",
	Short: "Get details of a single bracket",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalBracket,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List brackets submitted today",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return listBrackets(cmd, time.Now().In(time.Local).Format("2006-01-02"))
	},
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List brackets submitted on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return listBrackets(cmd, args[0])
	},
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity <YYYY-MM-DD>",
	Short: "List equity snapshots taken on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEquity,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalBracketCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalEquityCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./atlas.db", "path to SQLite journal DB")
}

func runJournalBracket(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	b, err := j.GetBracket(args[0])
	if err != nil {
		return fmt.Errorf("get bracket: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s %s\n", b.ID, b.Symbol, b.Group)
	fmt.Fprintf(out, "  Time:   %s\n", b.Time.In(time.Local).Format(time.RFC3339))
	fmt.Fprintf(out, "  Tier:   %s (ADX %.1f, ATR %g)\n", b.Tier, b.ADX, b.ATR)
	fmt.Fprintf(out, "  Units:  %d\n", b.Quantity)
	fmt.Fprintf(out, "  Entry:  %g (%s)\n", b.Entry, b.EntryOrderID)
	fmt.Fprintf(out, "  Stop:   %g (%s)\n", b.Stop, b.StopOrderID)
	fmt.Fprintf(out, "  Target: %g (%s)\n", b.Target, b.TargetOrderID)
	fmt.Fprintf(out, "  Risk:   %.2f (R:R %.2f)\n", b.PlannedRisk, b.RR)
	return nil
}

func listBrackets(cmd *cobra.Command, day string) error {
	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListBracketsBetween(start, end)
	if err != nil {
		return fmt.Errorf("query brackets: %w", err)
	}
	writeBrackets(cmd.OutOrStdout(), recs)
	return nil
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	snaps, err := j.ListEquityBetween(start, end)
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSYMBOL\tEQUITY\tSPENDABLE")
	for _, e := range snaps {
		fmt.Fprintf(tw, "%s\t%s\t%.2f %s\t%.2f\n",
			e.Time.In(time.Local).Format("15:04:05"), e.Symbol, e.Equity, e.Currency, e.Spendable)
	}
	return tw.Flush()
}

func writeBrackets(w io.Writer, recs []journal.BracketRecord) {
	if len(recs) == 0 {
		fmt.Fprintln(w, "no brackets")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSYMBOL\tTIER\tUNITS\tENTRY\tSTOP\tTARGET\tID")
	for _, b := range recs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%g\t%g\t%g\t%s\n",
			b.Time.In(time.Local).Format("15:04:05"), b.Symbol, b.Tier, b.Quantity, b.Entry, b.Stop, b.Target, b.ID)
	}
	tw.Flush()
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
