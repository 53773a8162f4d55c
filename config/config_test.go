package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[runtime]
debug = true
instruction-budget = 50000

[source]
dirs = ["lib", "vendor/lib"]

[libraries.strings]
path = "../strings"

[libraries.http]
snapshot = "http.jxc"
`
	if err := os.WriteFile(filepath.Join(dir, "jinx.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !c.Runtime.Debug {
		t.Error("runtime debug = false, want true")
	}
	if c.Runtime.InstructionBudget != 50000 {
		t.Errorf("instruction budget = %d, want 50000", c.Runtime.InstructionBudget)
	}
	if len(c.Source.Dirs) != 2 {
		t.Errorf("source dirs count = %d, want 2", len(c.Source.Dirs))
	}
	if len(c.Libraries) != 2 {
		t.Errorf("libraries count = %d, want 2", len(c.Libraries))
	}
	if lib, ok := c.Libraries["strings"]; !ok || lib.Path != "../strings" {
		t.Errorf("strings library = %v, want path ../strings", c.Libraries["strings"])
	}
	if lib, ok := c.Libraries["http"]; !ok || lib.Snapshot != "http.jxc" {
		t.Errorf("http library = %v, want snapshot http.jxc", c.Libraries["http"])
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	dir := t.TempDir()
	tomlContent := `
[runtime]
debug = false
`
	if err := os.WriteFile(filepath.Join(dir, "jinx.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(c.Source.Dirs) != 1 || c.Source.Dirs[0] != "lib" {
		t.Errorf("default source dirs = %v, want [lib]", c.Source.Dirs)
	}
	if c.Runtime.InstructionBudget != defaultInstructionBudget {
		t.Errorf("default instruction budget = %d, want %d", c.Runtime.InstructionBudget, defaultInstructionBudget)
	}
}

func TestFindAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	subDir := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	tomlContent := `[runtime]
debug = true
`
	if err := os.WriteFile(filepath.Join(dir, "jinx.toml"), []byte(tomlContent), 0644); err != nil {
		t.Fatal(err)
	}

	c, err := FindAndLoad(subDir)
	if err != nil {
		t.Fatalf("FindAndLoad failed: %v", err)
	}
	if c == nil {
		t.Fatal("FindAndLoad returned nil")
	}
	if !c.Runtime.Debug {
		t.Error("runtime debug = false, want true")
	}
}

func TestFindAndLoadConfigNotFound(t *testing.T) {
	dir := t.TempDir()
	c, err := FindAndLoad(dir)
	if err != nil {
		t.Fatalf("FindAndLoad error: %v", err)
	}
	if c != nil {
		t.Error("expected nil config when no jinx.toml exists")
	}
}

func TestSourceDirPaths(t *testing.T) {
	c := &RuntimeConfig{
		Dir: "/app",
		Source: Source{
			Dirs: []string{"lib", "vendor"},
		},
	}

	paths := c.SourceDirPaths()
	if len(paths) != 2 {
		t.Fatalf("expected 2 paths, got %d", len(paths))
	}
	if paths[0] != "/app/lib" {
		t.Errorf("paths[0] = %q, want /app/lib", paths[0])
	}
	if paths[1] != "/app/vendor" {
		t.Errorf("paths[1] = %q, want /app/vendor", paths[1])
	}
}
