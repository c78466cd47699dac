package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/catalog"
)

var inferCmd = &cobra.Command{
	Use:   "infer",
	Short: "Infer relationships between catalog tables",
	Long: `Profile every table in the catalog and infer foreign-key style
relationships between them. Declared relations are preserved; previous
inferred edges are replaced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, _, _, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		rels, err := cat.InferRelations(ctx)
		if err != nil {
			return fmt.Errorf("inferring relations: %w", err)
		}
		if len(rels) == 0 {
			fmt.Println("no relations found")
			return nil
		}

		names, err := tableNames(cmd, cat)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "FROM\tTO\tCARDINALITY\tFLAGS")
		for _, r := range rels {
			var flags []string
			if r.Weak {
				flags = append(flags, "weak")
			}
			if !r.Inferred {
				flags = append(flags, "declared")
			}
			fmt.Fprintf(w, "%s.%s\t%s.%s\t%s\t%s\n",
				names[r.FromTableID], r.FromField,
				names[r.ToTableID], r.ToField,
				r.Cardinality, strings.Join(flags, ","))
		}
		return w.Flush()
	},
}

var profileCmd = &cobra.Command{
	Use:   "profile TABLE",
	Short: "Profile a table's columns",
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
		profiles, err := cat.ProfileTable(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("profiling %s: %w", t.Name, err)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "COLUMN\tTYPE\tDISTINCT\tMISSING\tFLAGS")
		for _, p := range profiles {
			var flags []string
			if p.IsPrimaryKeyCandidate {
				flags = append(flags, "pk")
			}
			if p.IsStrictUnique {
				flags = append(flags, "unique")
			}
			if p.IsIdentityLike {
				flags = append(flags, "identity")
			}
			if p.IsNullable {
				flags = append(flags, "nullable")
			}
			if p.StatsAnomaly {
				flags = append(flags, "anomaly")
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				p.Name, p.Type, p.DistinctCount, p.MissingCount, strings.Join(flags, ","))
		}
		return w.Flush()
	},
}

var shapeCmd = &cobra.Command{
	Use:   "shape TABLE",
	Short: "Classify a table's shape and suggest a reshape direction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cat, cfg, _, err := openCatalog(ctx)
		if err != nil {
			return err
		}
		defer cat.Close()

		t, err := resolveTable(cmd, cat, args[0])
		if err != nil {
			return err
		}
		a, err := cat.AnalyzeShapeWith(ctx, t.ID, cfg.Engine.Thresholds())
		if err != nil {
			return fmt.Errorf("analyzing %s: %w", t.Name, err)
		}

		fmt.Printf("shape:     %s\n", a.Shape)
		fmt.Printf("direction: %s\n", a.RecommendedDirection)
		fmt.Printf("reason:    %s\n", a.Reason)
		if len(a.SuggestedIDVars) > 0 {
			fmt.Printf("id vars:   %s\n", strings.Join(a.SuggestedIDVars, ", "))
		}
		if len(a.SuggestedValueVars) > 0 {
			fmt.Printf("value vars: %s\n", strings.Join(a.SuggestedValueVars, ", "))
		}
		return nil
	},
}

// resolveTable accepts either a numeric table ID or a table name.
func resolveTable(cmd *cobra.Command, cat *catalog.Catalog, arg string) (*catalog.Table, error) {
	ctx := cmd.Context()
	if id, err := strconv.ParseInt(arg, 10, 64); err == nil {
		t, err := cat.GetTable(ctx, id)
		if err == nil {
			return t, nil
		}
	}
	t, err := cat.GetTableByName(ctx, arg)
	if err != nil {
		return nil, fmt.Errorf("table %q: %w", arg, err)
	}
	return t, nil
}

func tableNames(cmd *cobra.Command, cat *catalog.Catalog) (map[int64]string, error) {
	tables, err := cat.ListTables(cmd.Context())
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	names := make(map[int64]string, len(tables))
	for _, t := range tables {
		names[t.ID] = t.Name
	}
	return names, nil
}

func init() {
	rootCmd.AddCommand(inferCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(shapeCmd)
}
