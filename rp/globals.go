package internal

import (
	"log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
)

var (
	DefaultAppName    = "rp"
	DefaultConfigPath = filepath.Join(getHomeDir(), ".config", DefaultAppName)

	// DefaultIgnoreFile is the optional gitignore-syntax file read from the scan root
	DefaultIgnoreFile = "." + DefaultAppName + "ignore"

	// DefaultHistoryChunkSize bounds the number of paths passed to a single history query
	DefaultHistoryChunkSize = 200
	DefaultGitTimeoutSecs   = 30
	DefaultGitBinary        = "git"
	DefaultDebounceMillis   = 500
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// GetLogger returns a properly configured zerolog logger instance
func GetLogger() zerolog.Logger {
	if fi, err := os.Stderr.Stat(); err == nil && fi.Mode()&os.ModeCharDevice != 0 {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
