package main

import (
	"time"

	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/watcher"

	"github.com/spf13/cobra"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [root]",
		Short: "Rebuild the resource tree whenever files change",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.newParser(cmd)
			if err != nil {
				return err
			}

			debounce := time.Duration(a.cfg.Watch.DebounceMillis) * time.Millisecond
			return p.Watch(cmd.Context(), a.rootArg(args, 0), debounce, func(res *filesystem.Result, events []watcher.Event) {
				a.logger.Info().
					Str("run", res.RunID).
					Int("resources", res.Metrics.Resources()).
					Int("files", res.Metrics.Files).
					Int("changes", len(events)).
					Msg("Resource tree rebuilt")

				for _, ev := range events {
					owner, ok := res.Index.Owner(ev.Path)
					if !ok {
						continue
					}
					a.logger.Debug().
						Str("path", ev.Path).
						Str("change", ev.Type.String()).
						Str("resource", owner.Name).
						Str("kind", owner.Kind).
						Msg("Changed")
				}
			})
		},
	}
}
