// Jinx - embeddable scripting language runtime and CLI
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jboer/jinx/bytecode"
	"github.com/jboer/jinx/config"
	"github.com/jboer/jinx/runtime"
	"github.com/jboer/jinx/snapshot"
	"github.com/jboer/jinx/vm"
)

const versionStr = "0.1.0"

func main() {
	debug := flag.Bool("debug", false, "print lexer/parser diagnostics and a bytecode disassembly")
	version := flag.Bool("version", false, "print version and exit")
	output := flag.String("o", "", "output path for 'build' (defaults to the input file with a .jxc extension)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Jinx - embeddable scripting language\n\n")
		fmt.Fprintf(os.Stderr, "Usage:\n")
		fmt.Fprintf(os.Stderr, "  jinx run <file.jx>            compile and run a script to completion\n")
		fmt.Fprintf(os.Stderr, "  jinx -o out.jxc build <file.jx>   compile and write a snapshot\n")
		fmt.Fprintf(os.Stderr, "  jinx dump <file.jx|file.jxc>  print a bytecode disassembly\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *version {
		fmt.Printf("jinx version %s\n", versionStr)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(1)
	}

	cmd, path := args[0], args[1]
	var err error
	switch cmd {
	case "run":
		err = runCmd(path, *debug)
	case "build":
		err = buildCmd(path, *output, *debug)
	case "dump":
		err = dumpCmd(path)
	default:
		fmt.Fprintf(os.Stderr, "jinx: unknown command %q\n", cmd)
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "jinx: %v\n", err)
		os.Exit(1)
	}
}

func libraryName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func loadRuntimeConfig(path string) *config.RuntimeConfig {
	cfg, err := config.FindAndLoad(filepath.Dir(path))
	if err != nil || cfg == nil {
		return nil
	}
	return cfg
}

// instructionBudget reads the configured budget, falling back to the VM's
// own default when the script has no jinx.toml (cfg is nil).
func instructionBudget(cfg *config.RuntimeConfig) int64 {
	if cfg == nil {
		return vm.DefaultInstructionBudget
	}
	return cfg.Runtime.InstructionBudget
}

// compileFile reads and compiles path. Any [libraries.<name>] entries in
// cfg are granted to the parser as host-supplied imports, so a jinx.toml
// dependency is visible to the script without a matching in-source
// `import` line; cfg may be nil.
func compileFile(rt *runtime.Runtime, cfg *config.RuntimeConfig, path string, debug bool) (*bytecode.Chunk, string, error) {
	source, err := os.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("reading %s: %w", path, err)
	}

	name := libraryName(path)
	var imports []string
	if cfg != nil {
		for lib := range cfg.Libraries {
			imports = append(imports, lib)
		}
	}
	chunk, warnings, err := rt.Compile(string(source), name, imports)
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "jinx: warning: %s\n", w)
	}
	if err != nil {
		return nil, "", err
	}

	if debug {
		fmt.Fprint(os.Stderr, chunk.DisassembleWithName(name))
	}

	return chunk, name, nil
}

func runCmd(path string, debug bool) error {
	cfg := loadRuntimeConfig(path)
	rt := runtime.New(instructionBudget(cfg))
	defer rt.Close()

	if cfg != nil && cfg.Runtime.Debug {
		debug = true
	}
	chunk, _, err := compileFile(rt, cfg, path, debug)
	if err != nil {
		return err
	}

	script := rt.CreateScript(chunk)
	for !script.IsFinished() {
		if err := script.Execute(); err != nil {
			return fmt.Errorf("runtime error: %w", err)
		}
		if script.Status() == vm.StatusWaiting {
			// The CLI has no host event loop to change the properties a
			// guarded `wait` tests, so it stops at the first wait, bare or
			// guarded, and treats it as the program's end.
			break
		}
	}
	if script.Status() == vm.StatusError {
		return fmt.Errorf("script halted: %v", script.Err())
	}
	return nil
}

func buildCmd(path, output string, debug bool) error {
	cfg := loadRuntimeConfig(path)
	rt := runtime.New(instructionBudget(cfg))
	defer rt.Close()

	chunk, name, err := compileFile(rt, cfg, path, debug)
	if err != nil {
		return err
	}

	snap := snapshot.Export(name, chunk, nil)
	data, err := snapshot.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	if output == "" {
		output = strings.TrimSuffix(path, filepath.Ext(path)) + ".jxc"
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	fmt.Printf("jinx: wrote %s (%d bytes)\n", output, len(data))
	return nil
}

func dumpCmd(path string) error {
	if strings.HasSuffix(path, ".jxc") {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		snap, err := snapshot.Unmarshal(data)
		if err != nil {
			return fmt.Errorf("decoding snapshot: %w", err)
		}
		if err := snap.Verify(); err != nil {
			return err
		}
		chunk, err := snap.Chunk()
		if err != nil {
			return err
		}
		fmt.Print(chunk.DisassembleWithName(snap.Library))
		if len(snap.Imports) > 0 {
			fmt.Printf("; imports: %s\n", strings.Join(snap.Imports, ", "))
		}
		return nil
	}

	cfg := loadRuntimeConfig(path)
	rt := runtime.New(instructionBudget(cfg))
	defer rt.Close()
	chunk, name, err := compileFile(rt, cfg, path, false)
	if err != nil {
		return err
	}
	if lib, ok := rt.GetLibrary(name); ok {
		fmt.Printf("; library %s\n", name)
		for _, p := range lib.Properties {
			fmt.Printf(";   property %s (%s)\n", p.Name, p.Visibility)
		}
		for _, sig := range lib.Functions {
			fmt.Printf(";   function %s\n", sig.String())
		}
	}
	fmt.Print(chunk.DisassembleWithName(name))
	return nil
}
