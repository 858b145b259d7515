package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"seams/internal/repository/sqlite"
)

func tablesCommand(e *env) *cobra.Command {
	tablesCmd := &cobra.Command{
		Use:   "tables",
		Short: "Inspect and drop database tables",
	}

	tablesCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List tables with their row counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := e.tables()
			if err != nil {
				return err
			}
			tables, err := admin.ListTables()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TABLE\tROWS")
			for _, t := range tables {
				fmt.Fprintf(w, "%s\t%d\n", t.Name, t.Rows)
			}
			return w.Flush()
		},
	})

	tablesCmd.AddCommand(&cobra.Command{
		Use:   "schema TABLE",
		Short: "Show the columns of a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, err := e.tables()
			if err != nil {
				return err
			}
			columns, err := admin.TableSchema(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "#\tCOLUMN\tTYPE\tNOT NULL\tPK")
			for _, c := range columns {
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%t\n", c.Position, c.Name, c.Type, c.NotNull, c.PrimaryKey)
			}
			return w.Flush()
		},
	})

	var yes bool
	dropCmd := &cobra.Command{
		Use:   "drop TABLE",
		Short: "Drop a table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop %s without --yes", args[0])
			}
			admin, err := e.tables()
			if err != nil {
				return err
			}
			if err := admin.DropTable(args[0]); err != nil {
				return err
			}
			log, err := e.logger()
			if err != nil {
				return err
			}
			log.Warning("Dropped table %s from the command line", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped table %s\n", args[0])
			return nil
		},
	}
	dropCmd.Flags().BoolVar(&yes, "yes", false, "Confirm the drop")
	tablesCmd.AddCommand(dropCmd)

	return tablesCmd
}

func (e *env) tables() (*sqlite.TableAdmin, error) {
	db, err := e.database()
	if err != nil {
		return nil, err
	}
	return sqlite.NewTableAdmin(db), nil
}
