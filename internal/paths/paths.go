// Package paths resolves where logbook keeps its configuration and its
// data. Every process pointed at the same data directory shares one
// logbook and sees the others' writes.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-user directories.
const AppName = "logbook"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "LOGBOOK_CONFIG_DIR"
	EnvDataDir   = "LOGBOOK_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/logbook (fallback ~/.config/logbook)
// macOS:   ~/Library/Application Support/logbook
// Windows: %APPDATA%/logbook
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/logbook (fallback ~/.local/share/logbook)
// macOS:   ~/Library/Application Support/logbook/data
// Windows: %APPDATA%/logbook/data
func DefaultDataDir() (string, error) {
	if runtime.GOOS == "linux" {
		return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
	}
	dir, err := xdgDir("", "")
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "data"), nil
}

func xdgDir(env, homeRel string) (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv(env); env != "" && xdg != "" {
			return filepath.Join(xdg, AppName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, homeRel, AppName), nil
	}
	// macOS and Windows use os.UserConfigDir which returns
	// ~/Library/Application Support on macOS and %APPDATA% on Windows.
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, AppName), nil
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > LOGBOOK_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > LOGBOOK_DATA_DIR env > configValue > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	if configValue != "" {
		return filepath.Abs(configValue)
	}
	return DefaultDataDir()
}
