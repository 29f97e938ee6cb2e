package config

import (
	"os"
	"path/filepath"
	"strings"
)

// ConfigDirName is the per-project directory holding config.yaml and the
// persisted tree state.
const ConfigDirName = ".treegrid"

// ConfigFileName is the config file inside ConfigDirName.
const ConfigFileName = "config.yaml"

// FindConfig walks up from dir looking for .treegrid/config.yaml. It stops at
// the filesystem root or the home directory. An empty dir means the current
// working directory. os.ErrNotExist is returned when nothing is found.
func FindConfig(dir string) (string, error) {
	if dir == "" {
		var err error
		dir, err = os.Getwd()
		if err != nil {
			return "", err
		}
	}
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	home, _ := os.UserHomeDir()

	for {
		candidate := filepath.Join(dir, ConfigDirName, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break // Reached filesystem root
		}
		// Don't go above home directory
		if home != "" && dir == home {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

// expandHome replaces a leading "~" with the user's home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
