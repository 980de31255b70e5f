// Package paths centralizes file names used across the project.
// All data directory file names are defined here as the single source of truth.
package paths

import (
	"os"
	"path/filepath"
)

// ///////////////////////////////////////////////
// Constants
// ///////////////////////////////////////////////

// Data directory file names.
const (
	BinaryName = "procsvc"
	ConfigFile = "procsvc.toml"
	LogFile    = "procsvc.log"
)

// DefaultDataDir returns the directory holding the running executable. A
// service runs with an unrelated working directory and often without a home
// directory, so configuration lives next to the binary. Falls back to the
// working directory if the executable cannot be located.
func DefaultDataDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(exe)
}

// ///////////////////////////////////////////////
// DataDir
// ///////////////////////////////////////////////

// DataDir provides path construction methods rooted at a data directory.
type DataDir struct {
	Root string
}

// Config returns the full path to the config file.
func (d DataDir) Config() string { return filepath.Join(d.Root, ConfigFile) }

// Log returns the full path to the log file.
func (d DataDir) Log() string { return filepath.Join(d.Root, LogFile) }
