// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credcore Contributors

// Package xdg locates credcore files under the XDG Base Directory layout.
package xdg

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

const appName = "credcore"

// ConfigFileName is the config file looked up in ConfigDir.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for credcore.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", oops.Code("XDG_NO_HOME").Wrap(err)
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName), nil
}

// FindConfigFile returns the path of ConfigDir/config.yaml when it exists,
// or "" when it does not.
func FindConfigFile() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", oops.Code("XDG_STAT_FAILED").With("path", path).Wrap(err)
	}
	if info.IsDir() {
		return "", oops.Code("XDG_STAT_FAILED").With("path", path).Errorf("config path is a directory")
	}
	return path, nil
}
