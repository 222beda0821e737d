package options

import (
	"time"

	internal "github.com/ZanzyTHEbar/repo-parser/rp"
	"github.com/ZanzyTHEbar/repo-parser/rp/config"
)

// ScanOptions configures the filesystem scan.
//
// MaxDepth uses -1 for unlimited, so the zero value lists the scan root only
// and enters no subdirectory. Start from DefaultScanOptions for a full scan.
type ScanOptions struct {
	Subdirs        []string // Scan only these subdirectories of the root
	MaxDepth       int      // Directory depth limit, root = 0 (-1 = unlimited)
	IgnorePatterns []string // Regular expressions matched against the full path
	IgnoreFile     string   // Gitignore-syntax file at the scan root ("" = none)
}

// HistoryOptions configures the last-modified lookup
type HistoryOptions struct {
	Enabled   bool          // Query version-control history
	ChunkSize int           // Paths per history query
	Timeout   time.Duration // Per git command timeout
	GitBinary string        // git executable ("" = git from PATH)
}

// ParseOptions configures a full scan, build and history run
type ParseOptions struct {
	Scan    ScanOptions
	History HistoryOptions
}

// DefaultScanOptions returns an unrestricted scan honoring the default ignore file
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MaxDepth:   -1,
		IgnoreFile: internal.DefaultIgnoreFile,
	}
}

// DefaultParseOptions returns the defaults used when no configuration is loaded
func DefaultParseOptions() ParseOptions {
	return ParseOptions{
		Scan: DefaultScanOptions(),
		History: HistoryOptions{
			Enabled:   true,
			ChunkSize: internal.DefaultHistoryChunkSize,
			Timeout:   time.Duration(internal.DefaultGitTimeoutSecs) * time.Second,
			GitBinary: internal.DefaultGitBinary,
		},
	}
}

// FromConfig maps loaded configuration onto ParseOptions
func FromConfig(cfg *config.Config) ParseOptions {
	return ParseOptions{
		Scan: ScanOptions{
			Subdirs:        cfg.Scan.Subdirs,
			MaxDepth:       cfg.Scan.MaxDepth,
			IgnorePatterns: cfg.Scan.IgnorePatterns,
			IgnoreFile:     cfg.Scan.IgnoreFile,
		},
		History: HistoryOptions{
			Enabled:   cfg.History.Enabled,
			ChunkSize: cfg.History.ChunkSize,
			Timeout:   time.Duration(cfg.History.GitTimeoutSeconds) * time.Second,
			GitBinary: cfg.History.GitBinary,
		},
	}
}
