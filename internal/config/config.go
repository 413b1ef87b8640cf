// Package config resolves siphon's on-disk state directory layout.
package config

import (
	"os"
	"path/filepath"
)

const dirName = ".siphon"

// GetSiphonDir returns the directory siphon uses for its lock file,
// debug logs, and history database. It does not guarantee the directory
// exists; call EnsureDirs for that.
func GetSiphonDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, dirName)
}

// GetLogsDir returns the directory debug logs are written to.
func GetLogsDir() string {
	return filepath.Join(GetSiphonDir(), "logs")
}

// GetHistoryPath returns the path to the completed/failed download ledger.
func GetHistoryPath() string {
	return filepath.Join(GetSiphonDir(), "history.db")
}

// EnsureDirs creates the siphon state directory and its logs subdirectory.
func EnsureDirs() error {
	if err := os.MkdirAll(GetLogsDir(), 0755); err != nil {
		return err
	}
	return nil
}
