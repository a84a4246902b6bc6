// Package storage persists engine options and game records.
package storage

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "shogiplay"

// DataDir returns the platform-specific data directory for the application.
// An override, such as the -datadir flag, wins when set.
// - macOS: ~/Library/Application Support/shogiplay/
// - Linux: $XDG_DATA_HOME/shogiplay or ~/.local/share/shogiplay/
// - Windows: %APPDATA%/shogiplay/
func DataDir(override string) (string, error) {
	if override != "" {
		if err := os.MkdirAll(override, 0o755); err != nil {
			return "", err
		}
		return override, nil
	}

	var baseDir string
	switch runtime.GOOS {
	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		baseDir = filepath.Join(homeDir, "Library", "Application Support")

	case "windows":
		baseDir = os.Getenv("APPDATA")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, "AppData", "Roaming")
		}

	default:
		baseDir = os.Getenv("XDG_DATA_HOME")
		if baseDir == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			baseDir = filepath.Join(homeDir, ".local", "share")
		}
	}

	dataDir := filepath.Join(baseDir, appName)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", err
	}
	return dataDir, nil
}

// NetworkDir returns the directory searched for network weight files.
func NetworkDir(dataDir string) (string, error) {
	return subdir(dataDir, "nnue")
}

// DatabaseDir returns the directory of the BadgerDB database.
func DatabaseDir(dataDir string) (string, error) {
	return subdir(dataDir, "db")
}

func subdir(dataDir, name string) (string, error) {
	dir := filepath.Join(dataDir, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	return dir, nil
}
