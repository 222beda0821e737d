package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newWhichCmd(a *app) *cobra.Command {
	var root string

	cmd := &cobra.Command{
		Use:   "which PATH",
		Short: "Show the resource that owns a path",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newParser(cmd)
			if err != nil {
				return err
			}

			if root == "" {
				root = a.cfg.Scan.Root
			}
			res, err := p.Parse(cmd.Context(), root)
			if err != nil {
				return err
			}

			target, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("failed to resolve %s: %w", args[0], err)
			}
			if resolved, err := filepath.EvalSymlinks(target); err == nil {
				target = resolved
			}

			owner, err := res.Owner(target)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), describe(owner))
			return err
		},
	}

	cmd.Flags().StringVar(&root, "root", "", "Repository root to scan (default: scan.root)")
	return cmd
}
