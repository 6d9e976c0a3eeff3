package conf

import (
	"os"
	"path/filepath"
	"runtime"
)

// GetDefaultConfigPaths returns the directories searched for config.yaml, in order.
func GetDefaultConfigPaths() []string {
	paths := []string{"."}

	if homeDir, err := os.UserHomeDir(); err == nil {
		if runtime.GOOS == "windows" {
			paths = append(paths, filepath.Join(homeDir, "AppData", "Roaming", "gallery-migrate"))
		} else {
			paths = append(paths, filepath.Join(homeDir, ".config", "gallery-migrate"))
		}
	}

	if runtime.GOOS != "windows" {
		paths = append(paths, "/etc/gallery-migrate")
	}

	return paths
}
