package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/tablewright/tablewright/internal/wizard"
)

var reshapeCmd = &cobra.Command{
	Use:   "reshape",
	Short: "Interactively reshape a table between wide and long form",
	Long: `Launch the interactive reshape wizard. Pick a table, review the
shape analysis, assign column roles, and apply a melt or pivot. The
result replaces the table as a new version; use undo to revert.`,
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
		if len(tables) == 0 {
			return fmt.Errorf("catalog is empty: import a table first")
		}

		model := wizard.NewReshapeModel(ctx, cat, tables)
		p := tea.NewProgram(model)
		final, err := p.Run()
		if err != nil {
			return fmt.Errorf("running wizard: %w", err)
		}

		m, ok := final.(wizard.ReshapeModel)
		if !ok || m.Cancelled() {
			fmt.Println("reshape cancelled")
			return nil
		}
		if t := m.Result(); t != nil {
			fmt.Printf("reshaped %s: now %d columns, %d rows (version %d)\n",
				t.Name, len(t.Columns), t.RowCount, t.CurrentVersion)
		}
		return nil
	},
}

var undoCmd = &cobra.Command{
	Use:   "undo TABLE",
	Short: "Undo the most recent transform on a table",
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
		name := t.Name
		t, err = cat.Undo(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("undo %s: %w", name, err)
		}
		fmt.Printf("reverted %s to version %d (%d rows)\n", t.Name, t.CurrentVersion, t.RowCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(reshapeCmd)
	rootCmd.AddCommand(undoCmd)
}
