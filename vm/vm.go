// Package vm implements the stack-based virtual machine that executes
// compiled Jinx bytecode: an operand stack of Variants, a call-frame stack
// for function invocation and loop iterator state, and cooperative
// suspension at Wait opcodes.
package vm

import (
	"fmt"

	"github.com/jboer/jinx/bytecode"
	"github.com/jboer/jinx/variant"
)

// DefaultInstructionBudget is the number of opcodes a single Execute call
// will dispatch before yielding control back to the host with status
// Running, when the host does not configure a budget of its own, so one
// script can never monopolize the host's call thread.
const DefaultInstructionBudget = 100000

// Host is the surface a Script needs from the shared Runtime: the
// property store, the function table, and the performance counters.
// Defining it here rather than importing package runtime keeps the
// dependency edge pointing the natural way, the same reason package
// compiler defines its own Resolver interface instead of importing
// runtime.
type Host interface {
	GetProperty(id bytecode.RuntimeID) (variant.Variant, bool)
	SetProperty(id bytecode.RuntimeID, v variant.Variant)
	EraseProperty(id bytecode.RuntimeID)
	FindFunction(id bytecode.RuntimeID) (FunctionDef, bool)
	AddInstructionsRun(n int64)
}

// FunctionDef is either a bytecode entry point within a script's chunk, or
// a native Go callback the host registered directly.
type FunctionDef struct {
	Signature bytecode.FunctionSignature
	Chunk     *bytecode.Chunk
	Offset    int
	Native    func(args []variant.Variant) (variant.Variant, error)
}

// Status is a Script's coarse execution state.
type Status int

const (
	StatusReady Status = iota
	StatusRunning
	StatusWaiting
	StatusFinished
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusWaiting:
		return "waiting"
	case StatusFinished:
		return "finished"
	case StatusError:
		return "error"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// countLoop tracks a `loop from/to/by` counter across iterations. It lives
// in the owning frame, keyed by the LoopCount instruction's own offset,
// since the parser jumps back to that exact offset on every iteration
// instead of re-emitting the bound expressions.
type countLoop struct {
	current variant.Variant
	end     variant.Variant
	step    variant.Variant
}

// iterLoop tracks a `loop over` cursor the same way, keyed by the
// LoopOver instruction's offset.
type iterLoop struct {
	coll *variant.Collection
	idx  int
}

// frame is one function invocation: its own flat variable namespace (Jinx
// functions do not close over a caller's locals), the stack position its
// arguments start at, the code offset to resume at on return, and the
// loop state belonging to loops compiled inside this function body.
type frame struct {
	vars         map[string]variant.Variant
	stackBase    int
	returnAddr   int
	returnsValue bool

	countLoops map[int]*countLoop
	iterLoops  map[int]*iterLoop
	pendingIter *variant.Collection
}

func newFrame(stackBase, returnAddr int, returnsValue bool) *frame {
	return &frame{
		vars:       make(map[string]variant.Variant),
		stackBase:  stackBase,
		returnAddr: returnAddr,
		returnsValue: returnsValue,
		countLoops: make(map[int]*countLoop),
		iterLoops:  make(map[int]*iterLoop),
	}
}

// Script is one running instance of a compiled Chunk: the operand stack,
// the call-frame stack, and the cursor into the instruction stream.
type Script struct {
	id    string
	chunk *bytecode.Chunk
	host  Host

	r      *variant.Buffer
	stack  []variant.Variant
	frames []*frame

	instructionBudget int64
	status            Status
	err               error
}

// NewScript binds chunk to host as a fresh script, ready to run from the
// top, identified by id for the host's own bookkeeping. A budget <= 0
// falls back to DefaultInstructionBudget.
func NewScript(id string, chunk *bytecode.Chunk, host Host, budget int64) *Script {
	if budget <= 0 {
		budget = DefaultInstructionBudget
	}
	return &Script{
		id:                id,
		chunk:             chunk,
		host:              host,
		r:                 variant.NewReader(chunk.Code()),
		frames:            []*frame{newFrame(0, -1, false)},
		status:            StatusReady,
		instructionBudget: budget,
	}
}

// ID returns the script's host-assigned identifier.
func (s *Script) ID() string { return s.id }

// Status reports the script's current coarse state.
func (s *Script) Status() Status { return s.status }

// Err returns the error that halted the script, if status is Error.
func (s *Script) Err() error { return s.err }

// IsFinished reports whether the script has run to completion or halted
// on an error; neither state advances further on another Execute call.
func (s *Script) IsFinished() bool {
	return s.status == StatusFinished || s.status == StatusError
}

// SetVariable binds name to v in the script's root frame, the mechanism
// `external <name>` declarations at the top level rely on: the host sets
// the value before the first Execute call (or between calls, for a
// variable a `wait` guard checks).
func (s *Script) SetVariable(name string, v variant.Variant) {
	s.frames[0].vars[name] = v
}

func (s *Script) frame() *frame { return s.frames[len(s.frames)-1] }

func (s *Script) push(v variant.Variant) { s.stack = append(s.stack, v) }

func (s *Script) pop() (variant.Variant, error) {
	if len(s.stack) == 0 {
		return variant.Null, fmt.Errorf("vm: operand stack underflow")
	}
	v := s.stack[len(s.stack)-1]
	s.stack = s.stack[:len(s.stack)-1]
	return v, nil
}

func (s *Script) peek() (variant.Variant, error) {
	if len(s.stack) == 0 {
		return variant.Null, fmt.Errorf("vm: operand stack underflow")
	}
	return s.stack[len(s.stack)-1], nil
}

// fail halts the script with err, matching the specification's "a runtime
// type error halts only the offending script" rule: the Runtime and every
// other script are unaffected.
func (s *Script) fail(err error) error {
	s.status = StatusError
	s.err = err
	return err
}

// Execute runs the script for up to one instruction-budget quantum,
// stopping early at a Wait, a runtime error, or program end. It returns a
// non-nil error only when the script halted on a runtime error; a nil
// return with status Running means the budget was spent and the host
// should call Execute again.
func (s *Script) Execute() error {
	if s.IsFinished() {
		return s.err
	}
	s.status = StatusRunning

	var ran int64
	for ; ran < s.instructionBudget; ran++ {
		if s.r.Remaining() <= 0 {
			s.status = StatusFinished
			break
		}

		opStart := s.r.Pos()
		opByte, err := s.r.ReadByte()
		if err != nil {
			s.host.AddInstructionsRun(ran)
			return s.fail(fmt.Errorf("vm: %w", err))
		}
		op := bytecode.Opcode(opByte)

		if err := s.step(op, opStart); err != nil {
			s.host.AddInstructionsRun(ran + 1)
			return s.fail(err)
		}
		if s.status != StatusRunning {
			break
		}
	}

	s.host.AddInstructionsRun(ran)
	if s.status == StatusRunning {
		// Budget exhausted mid-program; status stays Running so the host
		// knows to call Execute again, as distinct from a Wait suspension.
	}
	return nil
}
