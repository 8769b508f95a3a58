// Package manifest handles synapse.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Manifest represents a synapse.toml project configuration.
type Manifest struct {
	Project Project `toml:"project"`
	Source  Source  `toml:"source"`
	VM      VM      `toml:"vm"`
	Build   Build   `toml:"build"`

	// Dir is the directory containing the synapse.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`
}

// Source configures where the program's entry source lives.
type Source struct {
	Entry string `toml:"entry"`
}

// VM configures execution limits. Zero values mean the machine's
// built-in defaults.
type VM struct {
	Registers int `toml:"registers"`
	CallDepth int `toml:"call-depth"`
}

// Build configures artifact output.
type Build struct {
	Output string `toml:"output"`
}

// Load parses a synapse.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "synapse.toml")
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
	if m.Source.Entry == "" {
		m.Source.Entry = "main.syn"
	}

	return &m, nil
}

// FindAndLoad walks up from startDir to find a synapse.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "synapse.toml")
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

// EntryPath returns the absolute path of the entry source file.
func (m *Manifest) EntryPath() string {
	return filepath.Join(m.Dir, m.Source.Entry)
}

// OutputPath returns the absolute path the build artifact goes to:
// the configured output, or the entry file with a .synb extension.
func (m *Manifest) OutputPath() string {
	if m.Build.Output != "" {
		return filepath.Join(m.Dir, m.Build.Output)
	}
	entry := m.Source.Entry
	if ext := filepath.Ext(entry); ext != "" {
		entry = strings.TrimSuffix(entry, ext)
	}
	return filepath.Join(m.Dir, entry+".synb")
}
