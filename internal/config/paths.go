package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func userHome() string {
	if home, err := os.UserHomeDir(); err == nil && strings.TrimSpace(home) != "" {
		return home
	}
	return os.Getenv("HOME")
}

// expandConfiguredPath resolves $VARS and a leading "~" in a configured path.
func expandConfiguredPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", nil
	}

	expanded := os.ExpandEnv(trimmed)
	if expanded == "~" || strings.HasPrefix(expanded, "~/") {
		home := strings.TrimSpace(userHome())
		if home == "" || strings.HasPrefix(home, "~") {
			return "", fmt.Errorf("cannot expand %q: home directory unknown", path)
		}
		expanded = filepath.Join(home, strings.TrimPrefix(expanded, "~"))
	}
	return filepath.Clean(expanded), nil
}
