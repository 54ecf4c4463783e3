// Package manifest handles glox.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Manifest represents a glox.toml project configuration.
type Manifest struct {
	Project Project     `toml:"project"`
	Image   ImageConfig `toml:"image"`
	Heap    HeapConfig  `toml:"heap"`
	Trace   TraceConfig `toml:"trace"`

	// Dir is the directory containing the glox.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// ImageConfig configures compiled-image output and storage.
type ImageConfig struct {
	Output string `toml:"output"`
	Store  string `toml:"store"`
}

// HeapConfig configures the runtime heap.
type HeapConfig struct {
	Capacity int `toml:"capacity"`
}

// TraceConfig configures diagnostic output.
type TraceConfig struct {
	Disassemble bool `toml:"disassemble"`
}

// Load parses a glox.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "glox.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Image.Output == "" {
		m.Image.Output = "glox.image"
	}
	if m.Image.Store == "" {
		m.Image.Store = "glox.db"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a glox.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "glox.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// OutputPath returns the absolute path of the configured image output.
func (m *Manifest) OutputPath() string {
	return filepath.Join(m.Dir, m.Image.Output)
}

// StorePath returns the absolute path of the configured image store.
func (m *Manifest) StorePath() string {
	return filepath.Join(m.Dir, m.Image.Store)
}
