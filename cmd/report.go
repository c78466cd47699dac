package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List catalog tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, _, _, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		tables, err := cat.ListTables(ctx)
		if err != nil {
			return fmt.Errorf("listing tables: %w", err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tSOURCE\tVERSION\tCOLUMNS\tROWS")
		for _, t := range tables {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t%d\n",
				t.ID, t.Name, t.Source, t.CurrentVersion, len(t.Columns), t.RowCount)
		}
		return w.Flush()
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary TABLE",
	Short: "Print descriptive statistics for a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, _, _, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		t, err := resolveTable(cmd, cat, args[0])
		if err != nil {
			return err
		}
		s, err := cat.Summarize(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("summarizing %s: %w", t.Name, err)
		}

		fmt.Printf("%s: %d rows, %d columns\n\n", s.Name, s.RowCount, s.ColumnCount)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COLUMN\tTYPE\tDISTINCT\tMISSING%\tMIN\tMAX\tMEAN\tMEDIAN")
		for _, col := range s.Columns {
			fmt.Fprintf(w, "%s\t%s\t%d\t%.1f\t%s\t%s\t%s\t%s\n",
				col.Name, col.Type, col.DistinctCount, col.MissingPct,
				fmtStat(col.Min), fmtStat(col.Max), fmtStat(col.Mean), fmtStat(col.Median))
		}
		return w.Flush()
	},
}

var qualityCmd = &cobra.Command{
	Use:   "quality TABLE",
	Short: "Print a data-quality report for a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, _, _, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		t, err := resolveTable(cmd, cat, args[0])
		if err != nil {
			return err
		}
		q, err := cat.Quality(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("checking %s: %w", t.Name, err)
		}

		fmt.Printf("%s: %d rows, %d duplicate rows\n", q.Name, q.RowCount, q.DuplicateRows)
		if len(q.Issues) == 0 {
			fmt.Println("no issues found")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEVERITY\tCOLUMN\tKIND\tDETAIL")
		for _, issue := range q.Issues {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", issue.Severity, issue.Column, issue.Kind, issue.Detail)
		}
		return w.Flush()
	},
}

func fmtStat(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *v)
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	rootCmd.AddCommand(summaryCmd)
	rootCmd.AddCommand(qualityCmd)
}
