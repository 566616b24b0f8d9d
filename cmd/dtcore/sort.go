package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/datatable/pkg/metrics"
	"github.com/ajitpratap0/datatable/pkg/tablefile"
)

func newSortCommand(a *app) *cobra.Command {
	var (
		col int
		out string
	)
	cmd := &cobra.Command{
		Use:   "sort <dir>",
		Short: "Sort a stored table by one column",
		Long: `Sort a stored table by column --col (NAs first, ties in row order) and
report the timing. With --out the sorted rows are written as a new table.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.storageOptions()
			if err != nil {
				return err
			}
			dt, err := tablefile.Load(args[0], opts)
			if err != nil {
				return err
			}
			defer dt.Close()

			timer := metrics.NewTimer()
			if err := dt.SortBy(a.sorter(), col); err != nil {
				return err
			}
			elapsed := timer.Stop()
			a.log.Info("sorted table",
				zap.String("dir", args[0]),
				zap.Int("column", col),
				zap.Int64("rows", dt.NRows()),
				zap.Duration("elapsed", elapsed))
			fmt.Fprintf(cmd.OutOrStdout(), "sorted %d rows by column %d in %s\n", dt.NRows(), col, elapsed)

			if out == "" {
				return nil
			}
			if err := tablefile.Save(dt, out, opts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sorted table to %s\n", out)
			return nil
		},
	}
	cmd.Flags().IntVar(&col, "col", 0, "Index of the column to sort by")
	cmd.Flags().StringVar(&out, "out", "", "Write the sorted table to this directory")
	return cmd
}
