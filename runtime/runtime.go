package runtime

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/jboer/jinx/bytecode"
	"github.com/jboer/jinx/compiler"
	"github.com/jboer/jinx/variant"
	"github.com/jboer/jinx/vm"
)

// Runtime is the thread-safe facade every Script runs against: the
// library registry, the property store, the function-definition table,
// and performance counters. Each is guarded by its own mutex, taken only
// for the duration of a single map operation, so no lock is ever held
// across a script instruction boundary.
type Runtime struct {
	libMu   sync.RWMutex
	libraries map[string]*Library

	propMu     sync.RWMutex
	properties map[bytecode.RuntimeID]variant.Variant

	funcMu    sync.RWMutex
	functions map[bytecode.RuntimeID]vm.FunctionDef

	perfMu sync.Mutex
	perf   PerfCounters

	instructionBudget int64
}

// Library is a named namespace for properties and functions. It is the
// registration target the Parser's Resolver interface reads from.
type Library struct {
	Name       string
	Properties map[string]bytecode.PropertyName
	Functions  []bytecode.FunctionSignature
}

// PerfCounters counts compiles, script creations and executed instructions.
// It records no durations: neither compile nor execute time is measured.
type PerfCounters struct {
	ScriptsCompiled int64
	ScriptsCreated  int64
	InstructionsRun int64
}

// New returns an empty Runtime with no libraries, properties, or functions
// registered. instructionBudget bounds how many opcodes any one Script's
// Execute call will dispatch before yielding back to the host with status
// Running; a value <= 0 falls back to vm.DefaultInstructionBudget. Callers
// typically pass config.RuntimeConfig.Runtime.InstructionBudget here.
func New(instructionBudget int64) *Runtime {
	return &Runtime{
		libraries:         make(map[string]*Library),
		properties:        make(map[bytecode.RuntimeID]variant.Variant),
		functions:         make(map[bytecode.RuntimeID]vm.FunctionDef),
		instructionBudget: instructionBudget,
	}
}

// Close tears down the Runtime. Collections held in properties may refer
// back to themselves through a chain of nested Variants; explicitly
// nulling out every collection-valued property entry before the map
// itself is cleared breaks that one cyclic hazard rather than relying on
// the garbage collector to untangle it.
func (r *Runtime) Close() {
	r.propMu.Lock()
	defer r.propMu.Unlock()
	for id, v := range r.properties {
		if v.IsCollection() {
			r.properties[id] = variant.Null
		}
	}
	r.properties = make(map[bytecode.RuntimeID]variant.Variant)
}

// ---------------------------------------------------------------------------
// Library registry
// ---------------------------------------------------------------------------

func (r *Runtime) getOrCreateLibrary(name string) *Library {
	r.libMu.Lock()
	defer r.libMu.Unlock()
	lib, ok := r.libraries[name]
	if !ok {
		lib = &Library{Name: name, Properties: make(map[string]bytecode.PropertyName)}
		r.libraries[name] = lib
	}
	return lib
}

// GetLibrary returns the named library, or false if it has never been
// compiled.
func (r *Runtime) GetLibrary(name string) (*Library, bool) {
	r.libMu.RLock()
	defer r.libMu.RUnlock()
	lib, ok := r.libraries[name]
	return lib, ok
}

// LibraryExists implements compiler.Resolver.
func (r *Runtime) LibraryExists(name string) bool {
	r.libMu.RLock()
	defer r.libMu.RUnlock()
	_, ok := r.libraries[name]
	return ok
}

// Functions implements compiler.Resolver.
func (r *Runtime) Functions(library string) []bytecode.FunctionSignature {
	r.libMu.RLock()
	defer r.libMu.RUnlock()
	lib, ok := r.libraries[library]
	if !ok {
		return nil
	}
	return lib.Functions
}

// PropertyVisibility implements compiler.Resolver.
func (r *Runtime) PropertyVisibility(library, name string) (bytecode.Visibility, bool) {
	r.libMu.RLock()
	defer r.libMu.RUnlock()
	lib, ok := r.libraries[library]
	if !ok {
		return 0, false
	}
	p, ok := lib.Properties[name]
	return p.Visibility, ok
}

// registerSignature records sig in its owning library's function table,
// rejecting a collision if a signature with the same derived id is
// already registered (matching PropertyName/FunctionSignature's invariant
// that two signatures are the same function iff their ids match).
func (r *Runtime) registerSignature(sig bytecode.FunctionSignature) error {
	lib := r.getOrCreateLibrary(sig.Library)
	r.libMu.Lock()
	defer r.libMu.Unlock()
	for _, existing := range lib.Functions {
		if existing.ID() == sig.ID() {
			return fmt.Errorf("runtime: duplicate function signature %s in library %q", sig.String(), sig.Library)
		}
	}
	lib.Functions = append(lib.Functions, sig)
	return nil
}

func (r *Runtime) registerProperty(p bytecode.PropertyName) {
	lib := r.getOrCreateLibrary(p.Library)
	r.libMu.Lock()
	lib.Properties[p.Name] = p
	r.libMu.Unlock()
}

// ---------------------------------------------------------------------------
// Property store
// ---------------------------------------------------------------------------

// GetProperty reads a property's current value by id.
func (r *Runtime) GetProperty(id bytecode.RuntimeID) (variant.Variant, bool) {
	r.propMu.RLock()
	defer r.propMu.RUnlock()
	v, ok := r.properties[id]
	return v, ok
}

// SetProperty writes a property's value by id, creating the entry if
// this is its first assignment.
func (r *Runtime) SetProperty(id bytecode.RuntimeID, v variant.Variant) {
	r.propMu.Lock()
	defer r.propMu.Unlock()
	r.properties[id] = v
}

// EraseProperty removes a property entirely.
func (r *Runtime) EraseProperty(id bytecode.RuntimeID) {
	r.propMu.Lock()
	defer r.propMu.Unlock()
	delete(r.properties, id)
}

// ---------------------------------------------------------------------------
// Function table
// ---------------------------------------------------------------------------

// RegisterFunction registers a bytecoded function's entry point.
func (r *Runtime) RegisterFunction(sig bytecode.FunctionSignature, chunk *bytecode.Chunk, offset int) error {
	if err := r.registerSignature(sig); err != nil {
		return err
	}
	r.funcMu.Lock()
	defer r.funcMu.Unlock()
	r.functions[sig.ID()] = vm.FunctionDef{Signature: sig, Chunk: chunk, Offset: offset}
	return nil
}

// RegisterNativeFunction registers a host-provided callback under sig.
func (r *Runtime) RegisterNativeFunction(sig bytecode.FunctionSignature, fn func(args []variant.Variant) (variant.Variant, error)) error {
	if err := r.registerSignature(sig); err != nil {
		return err
	}
	r.funcMu.Lock()
	defer r.funcMu.Unlock()
	r.functions[sig.ID()] = vm.FunctionDef{Signature: sig, Native: fn}
	return nil
}

// FindFunction looks up a registered function definition by id, implementing
// vm.Host for the Script execution loop's call protocol.
func (r *Runtime) FindFunction(id bytecode.RuntimeID) (vm.FunctionDef, bool) {
	r.funcMu.RLock()
	defer r.funcMu.RUnlock()
	def, ok := r.functions[id]
	return def, ok
}

// ---------------------------------------------------------------------------
// Compile / create / execute facade
// ---------------------------------------------------------------------------

// Compile lexes and parses source text against library name, with the
// given import list available for cross-library name resolution, and
// records the compile in the performance counters. The returned
// compiler.Diagnostics holds only warnings on success; on failure it holds
// the lex/parse errors that halted compilation and err wraps it.
func (r *Runtime) Compile(source, name string, imports []string) (*bytecode.Chunk, compiler.Diagnostics, error) {
	if source == "" {
		return nil, nil, fmt.Errorf("runtime: empty source")
	}
	p := compiler.NewParser(source, r, imports...)
	chunk, errs := p.Compile()

	r.perfMu.Lock()
	r.perf.ScriptsCompiled++
	r.perfMu.Unlock()

	if len(errs) > 0 {
		return nil, errs, fmt.Errorf("runtime: compile %q: %w", name, errs)
	}
	r.registerCompiledFunctions(chunk)
	return chunk, p.Warnings, nil
}

// registerCompiledFunctions walks the freshly compiled chunk looking for
// Function and Property declarations and registers each with the runtime:
// a function's bytecode entry point (the offset immediately following its
// signature), or a property's visibility and id. During ordinary execution
// a Function declaration is jumped over and a Property declaration only
// skips its operand, so this one-time decode pass — not the VM encountering
// the opcode live — is what actually populates the registries a script's
// library depends on.
func (r *Runtime) registerCompiledFunctions(chunk *bytecode.Chunk) {
	d := bytecode.NewDecoder(chunk.Code())
	for d.Remaining() > 0 {
		op, ok := d.ReadOp()
		if !ok {
			return
		}
		switch op {
		case bytecode.OpFunction:
			sig, err := d.ReadFunction()
			if err == nil {
				entry := d.Pos()
				_ = r.RegisterFunction(sig, chunk, entry)
			}
		case bytecode.OpProperty:
			p, err := d.ReadProperty()
			if err == nil {
				r.registerProperty(p)
			}
		default:
			d.SkipOperand(op)
		}
	}
}

// CreateScript binds compiled bytecode to this Runtime as a fresh Script
// instance, identified by a generated id for host bookkeeping.
func (r *Runtime) CreateScript(chunk *bytecode.Chunk) *vm.Script {
	r.perfMu.Lock()
	r.perf.ScriptsCreated++
	r.perfMu.Unlock()
	return vm.NewScript(uuid.NewString(), chunk, r, r.instructionBudget)
}

// ExecuteScript compiles source and runs it to completion in one call,
// the convenience wrapper the base specification names alongside Compile
// and CreateScript.
func (r *Runtime) ExecuteScript(source, name string, imports []string) (*vm.Script, error) {
	chunk, _, err := r.Compile(source, name, imports)
	if err != nil {
		return nil, err
	}
	script := r.CreateScript(chunk)
	for !script.IsFinished() {
		if err := script.Execute(); err != nil {
			return script, err
		}
	}
	return script, nil
}

// Stats returns a snapshot of the performance counters.
func (r *Runtime) Stats() PerfCounters {
	r.perfMu.Lock()
	defer r.perfMu.Unlock()
	return r.perf
}

// AddInstructionsRun is called by a Script after each execute() quantum to
// feed the shared perf counters.
func (r *Runtime) AddInstructionsRun(n int64) {
	r.perfMu.Lock()
	r.perf.InstructionsRun += n
	r.perfMu.Unlock()
}
