package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// PlatformConfigDir returns the platform-specific config directory.
//
// Platform paths:
//   - macOS:   ~/Library/Application Support/swipebraille/
//   - Linux:   $XDG_CONFIG_HOME/swipebraille/ or ~/.config/swipebraille/
//   - Windows: %APPDATA%\swipebraille\
//
// Falls back to ~/.swipebraille if the home directory is unknown.
func PlatformConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".swipebraille"
	}

	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "swipebraille")
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "swipebraille")
		}
		return filepath.Join(home, "AppData", "Roaming", "swipebraille")
	case "linux", "freebsd", "openbsd", "netbsd":
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "swipebraille")
		}
		return filepath.Join(home, ".config", "swipebraille")
	default:
		return filepath.Join(home, ".swipebraille")
	}
}
