// Command rp extracts a resource tree from a git repository.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	internal "github.com/ZanzyTHEbar/repo-parser/rp"
	"github.com/ZanzyTHEbar/repo-parser/rp/classifier"
	"github.com/ZanzyTHEbar/repo-parser/rp/config"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem"
	"github.com/ZanzyTHEbar/repo-parser/rp/filesystem/options"
	"github.com/ZanzyTHEbar/repo-parser/rp/telemetry"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// app holds the state shared by all subcommands of one invocation
type app struct {
	cfgFile  string
	logLevel string

	subdirs   []string
	maxDepth  int
	ignore    []string
	noHistory bool

	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           internal.DefaultAppName,
		Short:         "rp - extract a resource tree from a git repository",
		Long:          `Scans a git working tree, promotes directories with manifest files into typed resources and stamps every node with its last commit time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := telemetry.Shutdown(ctx); err != nil {
				a.logger.Warn().Err(err).Msg("Telemetry shutdown failed")
			}
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "Config file (default: ./config.yaml or ~/.config/rp/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringSliceVar(&a.subdirs, "subdir", nil, "Scan only this subdirectory of the root (repeatable)")
	rootCmd.PersistentFlags().IntVar(&a.maxDepth, "max-depth", -1, "Directory depth limit, root = 0 (-1 = unlimited)")
	rootCmd.PersistentFlags().StringSliceVar(&a.ignore, "ignore", nil, "Regular expression for paths to skip (repeatable)")
	rootCmd.PersistentFlags().BoolVar(&a.noHistory, "no-history", false, "Skip the git history lookup")

	rootCmd.AddCommand(
		newScanCmd(a),
		newListCmd(a),
		newWhichCmd(a),
		newWatchCmd(a),
	)
	return rootCmd
}

// setup loads configuration and wires logging and telemetry
func (a *app) setup(cmd *cobra.Command) error {
	a.logger = internal.GetLogger()

	level, err := parseLevel(a.logLevel)
	if err != nil {
		return err
	}
	zerolog.SetGlobalLevel(level)
	slog.SetLogLoggerLevel(slogLevel(level))

	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	if err := telemetry.Init(cmd.Context(), cfg.Telemetry, internal.DefaultAppName); err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	return nil
}

// newParser merges configuration with command-line overrides
func (a *app) newParser(cmd *cobra.Command) (*filesystem.Parser, error) {
	classifiers, err := classifier.FromConfig(a.cfg.Classifiers)
	if err != nil {
		return nil, err
	}

	opts := options.FromConfig(a.cfg)
	flags := cmd.Flags()
	if flags.Changed("subdir") {
		opts.Scan.Subdirs = a.subdirs
	}
	if flags.Changed("max-depth") {
		opts.Scan.MaxDepth = a.maxDepth
	}
	if flags.Changed("ignore") {
		opts.Scan.IgnorePatterns = append(append([]string{}, opts.Scan.IgnorePatterns...), a.ignore...)
	}
	if a.noHistory {
		opts.History.Enabled = false
	}

	return filesystem.New(classifiers, opts), nil
}

// rootArg returns the scan root from args or configuration
func (a *app) rootArg(args []string, index int) string {
	if len(args) > index {
		return args[index]
	}
	return a.cfg.Scan.Root
}

func parseLevel(s string) (zerolog.Level, error) {
	level, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil || s == "" {
		return zerolog.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func slogLevel(level zerolog.Level) slog.Level {
	switch {
	case level <= zerolog.DebugLevel:
		return slog.LevelDebug
	case level == zerolog.InfoLevel:
		return slog.LevelInfo
	case level == zerolog.WarnLevel:
		return slog.LevelWarn
	default:
		return slog.LevelError
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
