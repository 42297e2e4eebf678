// Package config reads and writes the hmm configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hedgemm/hmm/internal/domain"

	"github.com/mitchellh/go-homedir"
)

// ParseConfigPath checks that path names an existing YAML file and returns it
// cleaned. A leading "~" is expanded; any other relative path is rejected, as
// is a path that walks up with "..".
func ParseConfigPath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("%w: config path cannot be empty", domain.ErrInvalidConfig)
	}
	if strings.Contains(path, "..") {
		return "", fmt.Errorf("%w: config path contains invalid traversal", domain.ErrInvalidConfig)
	}

	path, err := homedir.Expand(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidConfig, err)
	}
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: config path must be absolute", domain.ErrInvalidConfig)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return "", fmt.Errorf("%w: config file must have .yaml or .yml extension", domain.ErrInvalidConfig)
	}

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", fmt.Errorf("%w: config file %s does not exist", domain.ErrInvalidConfig, path)
	case err != nil:
		return "", err
	case info.IsDir():
		return "", fmt.Errorf("%w: %s is a directory", domain.ErrInvalidConfig, path)
	}

	return filepath.Clean(path), nil
}
