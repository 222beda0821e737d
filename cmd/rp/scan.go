package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/trees"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const (
	formatTree = "tree"
	formatJSON = "json"
	formatYAML = "yaml"
)

func newScanCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "Build the resource tree and print it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newParser(cmd)
			if err != nil {
				return err
			}

			res, err := p.Parse(cmd.Context(), a.rootArg(args, 0))
			if err != nil {
				return err
			}

			a.logger.Info().
				Str("run", res.RunID).
				Str("repo", res.RepoRoot).
				Int("resources", res.Metrics.Resources()).
				Int("files", res.Metrics.Files).
				Dur("duration", res.Duration).
				Msg("Scan finished")

			return writeTree(cmd.OutOrStdout(), res.Root, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", formatTree, "Output format (tree|json|yaml)")
	return cmd
}

// writeTree serializes the finished tree for external consumers
func writeTree(w io.Writer, root *trees.Resource, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(root)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(root); err != nil {
			return err
		}
		return enc.Close()
	case formatTree:
		var err error
		trees.Walk(root, func(r *trees.Resource, depth int) bool {
			if err != nil {
				return false
			}
			_, err = fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), describe(r))
			return true
		})
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func describe(r *trees.Resource) string {
	label := r.Name
	if r.IsFile() {
		label = r.Path
	}
	return fmt.Sprintf("%s [%s] %s", label, r.Kind, r.LastModified.UTC().Format(time.RFC3339))
}
