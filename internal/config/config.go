// Package config provides configuration helpers for promptcam commands.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Defaults shared by the CLI and the session.
const (
	DefaultSaveRoot   = "runs"
	DefaultInferEvery = 3
	DefaultConf       = 0.5
)

// Env returns the value of an environment variable or a fallback.
func Env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SaveDir resolves the directory saved frames are written to.
// When dir is empty it falls back to ./runs/<model-spec>/, mirroring the
// layout used for exported artifacts. The directory is created if missing.
func SaveDir(dir, modelSpec string) (string, error) {
	if dir == "" {
		spec := strings.ReplaceAll(modelSpec, "/", "-")
		if spec == "" {
			spec = "default"
		}
		dir = filepath.Join(DefaultSaveRoot, spec)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create save dir %s: %w", dir, err)
	}
	return dir, nil
}
