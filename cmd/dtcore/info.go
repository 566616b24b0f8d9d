package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/ajitpratap0/datatable/pkg/tablefile"
)

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info <dir>",
		Short: "Describe the columns of a stored table",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			desc, err := tablefile.ReadDescriptor(args[0])
			if err != nil {
				return err
			}
			printDescriptor(cmd.OutOrStdout(), args[0], desc)
			return nil
		},
	}
}

func printDescriptor(out io.Writer, dir string, desc *tablefile.Descriptor) {
	var raw, stored int64
	for _, e := range desc.Columns {
		raw += e.Size
		stored += e.StoredSize
	}
	fmt.Fprintf(out, "%s: %d rows, %d columns, %s (%s on disk)\n",
		dir, desc.NRows, len(desc.Columns), humanize.Bytes(uint64(raw)), humanize.Bytes(uint64(stored)))

	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Col", "File", "SType", "Meta", "Compression", "Size", "Stored", "%"})
	for i, e := range desc.Columns {
		codec := e.Compression
		if codec == "" {
			codec = "none"
		}
		ratio := "-"
		if e.Size > 0 {
			ratio = fmt.Sprintf("%.2f", float64(e.StoredSize)/float64(e.Size)*100)
		}
		table.Append([]string{
			strconv.Itoa(i),
			e.File,
			e.SType,
			e.Meta,
			codec,
			humanize.Bytes(uint64(e.Size)),
			humanize.Bytes(uint64(e.StoredSize)),
			ratio,
		})
	}
	table.Render()
}
