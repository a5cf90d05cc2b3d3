// Package home manages the chartgroup home directory layout.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the chartgroup home directory.
	DefaultDirName = ".chartgroup"

	// ResultsDirName is the subdirectory for saved classification envelopes.
	ResultsDirName = "results"

	// ExportsDirName is the subdirectory for assembled per-patient PDFs.
	ExportsDirName = "exports"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the chartgroup home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.chartgroup).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// ResultsDir returns the directory for saved classification envelopes.
func (d *Dir) ResultsDir() string {
	return filepath.Join(d.path, ResultsDirName)
}

// ResultPath returns the saved envelope path for a bundle file name.
func (d *Dir) ResultPath(bundleName string) string {
	base := bundleName[:len(bundleName)-len(filepath.Ext(bundleName))]
	return filepath.Join(d.ResultsDir(), base+".json")
}

// ExportsDir returns the directory for assembled per-patient PDFs.
func (d *Dir) ExportsDir() string {
	return filepath.Join(d.path, ExportsDirName)
}

// BundleExportsDir returns the exports directory for one bundle.
func (d *Dir) BundleExportsDir(bundleName string) string {
	base := bundleName[:len(bundleName)-len(filepath.Ext(bundleName))]
	return filepath.Join(d.ExportsDir(), base)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.ResultsDir(), d.ExportsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
