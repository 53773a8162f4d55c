// Package config loads the jinx.toml file that configures a Runtime the
// way maggie.toml configures the teacher's build: found by walking upward
// from a starting directory, the same search the teacher's manifest
// loader used.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// RuntimeConfig is the parsed contents of a jinx.toml file.
type RuntimeConfig struct {
	Runtime   Runtime                      `toml:"runtime"`
	Source    Source                       `toml:"source"`
	Libraries map[string]LibraryDependency `toml:"libraries"`

	// Dir is the directory containing the jinx.toml file (set at load time).
	Dir string `toml:"-"`
}

// Runtime configures the shared Runtime's own behavior.
type Runtime struct {
	Debug             bool  `toml:"debug"`
	InstructionBudget int64 `toml:"instruction-budget"`
}

// Source configures where a host looks for importable library source.
type Source struct {
	Dirs []string `toml:"dirs"`
}

// LibraryDependency declares where an importable library's precompiled
// bytecode or source lives, one entry per [libraries.<name>] table.
type LibraryDependency struct {
	Path     string `toml:"path"`
	Snapshot string `toml:"snapshot"`
}

const defaultInstructionBudget = 100000

// Load parses a jinx.toml file from the given directory.
func Load(dir string) (*RuntimeConfig, error) {
	path := filepath.Join(dir, "jinx.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var c RuntimeConfig
	if err := toml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	c.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(c.Source.Dirs) == 0 {
		c.Source.Dirs = []string{"lib"}
	}
	if c.Runtime.InstructionBudget == 0 {
		c.Runtime.InstructionBudget = defaultInstructionBudget
	}

	return &c, nil
}

// FindAndLoad walks up from startDir to find a jinx.toml file, then loads
// and returns it. Returns nil if no config file is found.
func FindAndLoad(startDir string) (*RuntimeConfig, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "jinx.toml")
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

// SourceDirPaths returns absolute paths for the configured library search
// directories.
func (c *RuntimeConfig) SourceDirPaths() []string {
	var paths []string
	for _, d := range c.Source.Dirs {
		paths = append(paths, filepath.Join(c.Dir, d))
	}
	return paths
}
