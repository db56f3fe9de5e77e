package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoConfigFound is returned by Resolve when no config file exists at
// an explicit path or any default search location.
var ErrNoConfigFound = fmt.Errorf("config: no config file found")

// Resolve returns the config file path to use: explicitPath if non-empty,
// otherwise the first of $XDG_CONFIG_HOME/binrep/config.sane (or
// ~/.config/binrep/config.sane when XDG_CONFIG_HOME is unset),
// ~/.binrep/config.sane, /etc/binrep/config.sane that exists on disk.
func Resolve(explicitPath string) (string, error) {
	if explicitPath != "" {
		return explicitPath, nil
	}
	for _, candidate := range defaultSearchPath() {
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", ErrNoConfigFound
}

// ResolveAndRead resolves the config path as Resolve does, then reads and
// decodes it.
func ResolveAndRead(explicitPath string) (Config, error) {
	path, err := Resolve(explicitPath)
	if err != nil {
		return Config{}, err
	}
	return ReadFromFile(path)
}

func defaultSearchPath() []string {
	var paths []string
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "binrep", "config.sane"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "binrep", "config.sane"))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".binrep", "config.sane"))
	}
	paths = append(paths, filepath.Join("/etc", "binrep", "config.sane"))
	return paths
}
