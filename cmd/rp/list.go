package main

import (
	"fmt"
	"path/filepath"
	"text/tabwriter"

	"github.com/ZanzyTHEbar/repo-parser/rp/trees"

	"github.com/spf13/cobra"
)

func newListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list KIND [root]",
		Short: "List every resource of a kind",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newParser(cmd)
			if err != nil {
				return err
			}

			res, err := p.Parse(cmd.Context(), a.rootArg(args, 1))
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, r := range trees.Collect(res.Root, args[0]) {
				rel, err := filepath.Rel(res.RepoRoot, r.SourcePath)
				if err != nil {
					rel = r.SourcePath
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, filepath.ToSlash(rel), r.LastModified.UTC().Format("2006-01-02"))
			}
			return tw.Flush()
		},
	}
}
