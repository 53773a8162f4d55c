package vm

import (
	"fmt"

	"github.com/jboer/jinx/bytecode"
	"github.com/jboer/jinx/variant"
)

// step decodes and executes the single instruction starting at opStart
// (already consumed as far as the opcode byte). It advances s.r past any
// operand the opcode carries, mutates the stack/frame/host state, and sets
// s.status away from StatusRunning for a Wait, a Return from the outermost
// frame, or Exit.
func (s *Script) step(op bytecode.Opcode, opStart int) error {
	switch op {
	case bytecode.OpNop:
		// no-op

	case bytecode.OpPop:
		if _, err := s.pop(); err != nil {
			return err
		}

	case bytecode.OpPushTop:
		v, err := s.peek()
		if err != nil {
			return err
		}
		s.push(v)

	case bytecode.OpPushVal:
		v, err := variant.Deserialize(s.r)
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		s.push(v)

	case bytecode.OpPushColl:
		count, err := s.r.ReadUint32()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		pairs, err := s.popN(int(count) * 2)
		if err != nil {
			return err
		}
		coll := variant.NewColl()
		for i := 0; i < len(pairs); i += 2 {
			if err := coll.Set(pairs[i], pairs[i+1]); err != nil {
				return fmt.Errorf("vm: %w", err)
			}
		}
		s.push(variant.NewCollection(coll))

	case bytecode.OpPushList:
		count, err := s.r.ReadUint32()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		elems, err := s.popN(int(count))
		if err != nil {
			return err
		}
		coll := variant.NewColl()
		for _, v := range elems {
			coll.Append(v)
		}
		s.push(variant.NewCollection(coll))

	case bytecode.OpPopCount:
		count, err := s.r.ReadUint32()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		if _, err := s.popN(int(count)); err != nil {
			return err
		}

	case bytecode.OpPushVar:
		name, err := s.r.ReadString()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		s.push(s.frame().vars[name].Clone())

	case bytecode.OpPushVarKey:
		name, err := s.r.ReadString()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		key, err := s.pop()
		if err != nil {
			return err
		}
		var val variant.Variant
		if existing := s.frame().vars[name]; existing.IsCollection() {
			val, _ = existing.Collection().Get(key)
		}
		s.push(val)

	case bytecode.OpSetVar:
		name, err := s.r.ReadString()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.frame().vars[name] = v.Clone()

	case bytecode.OpSetVarKey:
		name, err := s.r.ReadString()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		val, err := s.pop()
		if err != nil {
			return err
		}
		key, err := s.pop()
		if err != nil {
			return err
		}
		f := s.frame()
		existing, ok := f.vars[name]
		var coll *variant.Collection
		if ok && existing.IsCollection() {
			coll = existing.Collection()
		} else {
			coll = variant.NewColl()
		}
		if err := coll.Set(key, val.Clone()); err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		f.vars[name] = variant.NewCollection(coll)

	case bytecode.OpEraseVar:
		name, err := s.r.ReadString()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		delete(s.frame().vars, name)

	case bytecode.OpEraseVarElem:
		name, err := s.r.ReadString()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		key, err := s.pop()
		if err != nil {
			return err
		}
		if coll := s.frame().vars[name].Collection(); coll != nil {
			coll.Delete(key)
		}

	case bytecode.OpPushProp:
		id, err := s.readRuntimeID()
		if err != nil {
			return err
		}
		v, _ := s.host.GetProperty(id)
		s.push(v.Clone())

	case bytecode.OpPushPropKeyVal:
		id, err := s.readRuntimeID()
		if err != nil {
			return err
		}
		key, err := s.pop()
		if err != nil {
			return err
		}
		prop, _ := s.host.GetProperty(id)
		var val variant.Variant
		if prop.IsCollection() {
			val, _ = prop.Collection().Get(key)
		}
		s.push(val)

	case bytecode.OpSetProp:
		id, err := s.readRuntimeID()
		if err != nil {
			return err
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.host.SetProperty(id, v.Clone())

	case bytecode.OpSetPropKeyVal:
		id, err := s.readRuntimeID()
		if err != nil {
			return err
		}
		val, err := s.pop()
		if err != nil {
			return err
		}
		key, err := s.pop()
		if err != nil {
			return err
		}
		prop, ok := s.host.GetProperty(id)
		var coll *variant.Collection
		if ok && prop.IsCollection() {
			coll = prop.Collection()
		} else {
			coll = variant.NewColl()
		}
		if err := coll.Set(key, val.Clone()); err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		s.host.SetProperty(id, variant.NewCollection(coll))

	case bytecode.OpEraseProp:
		id, err := s.readRuntimeID()
		if err != nil {
			return err
		}
		s.host.EraseProperty(id)

	case bytecode.OpErasePropElem:
		id, err := s.readRuntimeID()
		if err != nil {
			return err
		}
		key, err := s.pop()
		if err != nil {
			return err
		}
		if prop, ok := s.host.GetProperty(id); ok && prop.IsCollection() {
			prop.Collection().Delete(key)
		}

	case bytecode.OpAdd:
		return s.binaryOp(variant.Add)
	case bytecode.OpSubtract:
		return s.binaryOp(variant.Subtract)
	case bytecode.OpMultiply:
		return s.binaryOp(variant.Multiply)
	case bytecode.OpDivide:
		return s.binaryOp(variant.Divide)
	case bytecode.OpModulo:
		return s.binaryOp(variant.Modulo)

	case bytecode.OpNegate:
		v, err := s.pop()
		if err != nil {
			return err
		}
		switch v.Kind() {
		case variant.KindInteger:
			s.push(variant.NewInteger(-v.AsInt()))
		case variant.KindNumber:
			s.push(variant.NewNumber(-v.AsFloat()))
		default:
			return fmt.Errorf("vm: cannot negate %s", v.Kind())
		}

	case bytecode.OpEqual:
		b, a, err := s.pop2()
		if err != nil {
			return err
		}
		s.push(variant.NewBoolean(a.Equal(b)))

	case bytecode.OpNotEqual:
		b, a, err := s.pop2()
		if err != nil {
			return err
		}
		s.push(variant.NewBoolean(!a.Equal(b)))

	case bytecode.OpLess:
		return s.compareOp(func(c int) bool { return c < 0 })
	case bytecode.OpLessEqual:
		return s.compareOp(func(c int) bool { return c <= 0 })
	case bytecode.OpGreater:
		return s.compareOp(func(c int) bool { return c > 0 })
	case bytecode.OpGreaterEqual:
		return s.compareOp(func(c int) bool { return c >= 0 })

	case bytecode.OpAnd:
		b, a, err := s.pop2()
		if err != nil {
			return err
		}
		s.push(variant.NewBoolean(a.IsTruthy() && b.IsTruthy()))

	case bytecode.OpOr:
		b, a, err := s.pop2()
		if err != nil {
			return err
		}
		s.push(variant.NewBoolean(a.IsTruthy() || b.IsTruthy()))

	case bytecode.OpNot:
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.push(variant.NewBoolean(!v.IsTruthy()))

	case bytecode.OpCast:
		kindByte, err := s.r.ReadByte()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		v, err := s.pop()
		if err != nil {
			return err
		}
		out, err := variant.Cast(v, variant.Kind(kindByte))
		if err != nil {
			return err
		}
		s.push(out)

	case bytecode.OpType:
		v, err := s.pop()
		if err != nil {
			return err
		}
		s.push(variant.NewValueType(v.Kind()))

	case bytecode.OpJump:
		target, err := s.r.ReadUint32()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		s.r.Seek(int(target))

	case bytecode.OpJumpFalse:
		target, err := s.r.ReadUint32()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		cond, err := s.pop()
		if err != nil {
			return err
		}
		if !cond.IsTruthy() {
			s.r.Seek(int(target))
		}

	case bytecode.OpJumpTrue:
		target, err := s.r.ReadUint32()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		cond, err := s.pop()
		if err != nil {
			return err
		}
		if cond.IsTruthy() {
			s.r.Seek(int(target))
		}

	case bytecode.OpPushItr:
		v, err := s.pop()
		if err != nil {
			return err
		}
		if !v.IsCollection() {
			return fmt.Errorf("vm: cannot loop over %s", v.Kind())
		}
		s.frame().pendingIter = v.Collection()

	case bytecode.OpLoopCount:
		return s.loopCount(opStart)

	case bytecode.OpLoopOver:
		return s.loopOver(opStart)

	case bytecode.OpScopeBegin, bytecode.OpScopeEnd:
		// Reserved: the compiler never emits scope-boundary bytecode. Lexical
		// blocks exist only in the compiler's VariableStackFrame; at run time
		// each call frame has one flat variable namespace.

	case bytecode.OpLibrary:
		if _, err := s.r.ReadString(); err != nil {
			return fmt.Errorf("vm: %w", err)
		}

	case bytecode.OpProperty:
		// Registered once at compile time by the Runtime's decode walk.
		// A property declaration is not wrapped in a skip-jump, so this is
		// reached live each time the declaration runs and only skips its
		// operand.
		if _, err := bytecode.DeserializeProperty(s.r); err != nil {
			return fmt.Errorf("vm: %w", err)
		}

	case bytecode.OpFunction:
		if _, err := bytecode.DeserializeFunction(s.r); err != nil {
			return fmt.Errorf("vm: %w", err)
		}

	case bytecode.OpSetIndex:
		return s.setIndex()

	case bytecode.OpCallFunc:
		return s.callFunc()

	case bytecode.OpReturn:
		return s.doReturn(variant.Null)

	case bytecode.OpReturnValue:
		v, err := s.pop()
		if err != nil {
			return err
		}
		return s.doReturn(v)

	case bytecode.OpWait:
		s.status = StatusWaiting

	case bytecode.OpExit:
		s.status = StatusFinished

	default:
		return fmt.Errorf("vm: unhandled opcode %s at offset %d", op, opStart)
	}
	return nil
}

func (s *Script) readRuntimeID() (bytecode.RuntimeID, error) {
	v, err := s.r.ReadUint64()
	if err != nil {
		return 0, fmt.Errorf("vm: %w", err)
	}
	return bytecode.RuntimeID(v), nil
}

// popN pops the top n values off the stack, returning them in their
// original push order (oldest first).
func (s *Script) popN(n int) ([]variant.Variant, error) {
	if len(s.stack) < n {
		return nil, fmt.Errorf("vm: operand stack underflow")
	}
	out := make([]variant.Variant, n)
	copy(out, s.stack[len(s.stack)-n:])
	s.stack = s.stack[:len(s.stack)-n]
	return out, nil
}

// pop2 pops the top two values, returning (top, second-from-top) — i.e.
// the right-hand and left-hand operands of a binary instruction, since the
// left operand is always pushed first.
func (s *Script) pop2() (b, a variant.Variant, err error) {
	b, err = s.pop()
	if err != nil {
		return
	}
	a, err = s.pop()
	return
}

func (s *Script) binaryOp(f func(a, b variant.Variant) (variant.Variant, error)) error {
	b, a, err := s.pop2()
	if err != nil {
		return err
	}
	out, err := f(a, b)
	if err != nil {
		return err
	}
	s.push(out)
	return nil
}

func (s *Script) compareOp(pred func(c int) bool) error {
	b, a, err := s.pop2()
	if err != nil {
		return err
	}
	c, err := variant.Compare(a, b)
	if err != nil {
		return err
	}
	s.push(variant.NewBoolean(pred(c)))
	return nil
}

// loopCount implements `loop from/to/by`: on first reaching the LoopCount
// instruction at opStart, the three bound expressions (from, to, by) are
// still sitting on the operand stack in that order, by is on top since it
// was pushed last. Every later reach of the same opStart (the parser always
// jumps back to this exact offset) advances the stored counter instead.
func (s *Script) loopCount(opStart int) error {
	name, err := s.r.ReadString()
	if err != nil {
		return fmt.Errorf("vm: %w", err)
	}
	f := s.frame()
	loop, active := f.countLoops[opStart]
	if !active {
		by, to, from, err := s.pop3()
		if err != nil {
			return err
		}
		loop = &countLoop{current: from, end: to, step: by}
		f.countLoops[opStart] = loop
	} else {
		next, err := variant.Add(loop.current, loop.step)
		if err != nil {
			return err
		}
		loop.current = next
	}
	cont, err := loopContinues(loop.current, loop.end, loop.step)
	if err != nil {
		return err
	}
	if cont && name != "" {
		f.vars[name] = loop.current
	}
	if !cont {
		delete(f.countLoops, opStart)
	}
	s.push(variant.NewBoolean(cont))
	return nil
}

// loopContinues reports whether a count-loop's current value has not yet
// passed end, the direction determined by step's sign.
func loopContinues(current, end, step variant.Variant) (bool, error) {
	c, err := variant.Compare(current, end)
	if err != nil {
		return false, err
	}
	if step.AsFloat() < 0 {
		return c >= 0, nil
	}
	return c <= 0, nil
}

func (s *Script) pop3() (c, b, a variant.Variant, err error) {
	c, err = s.pop()
	if err != nil {
		return
	}
	b, err = s.pop()
	if err != nil {
		return
	}
	a, err = s.pop()
	return
}

// loopOver implements `loop over`: the collection was already popped into
// frame.pendingIter by the OpPushItr instruction immediately preceding the
// loop's entry, which only runs once per entry into this code path (it
// sits outside the jump-back target), so a nested `loop over` inside an
// outer loop's body gets a fresh pendingIter every time the outer loop
// re-enters it.
func (s *Script) loopOver(opStart int) error {
	name, err := s.r.ReadString()
	if err != nil {
		return fmt.Errorf("vm: %w", err)
	}
	f := s.frame()
	loop, active := f.iterLoops[opStart]
	// A pending collection means PushItr just ran, i.e. a fresh entry, even
	// if state from an earlier run of this loop that ended in a break remains.
	if !active || f.pendingIter != nil {
		if f.pendingIter == nil {
			return fmt.Errorf("vm: loop over with no pending collection")
		}
		loop = &iterLoop{coll: f.pendingIter, idx: 0}
		f.iterLoops[opStart] = loop
		f.pendingIter = nil
	} else {
		loop.idx++
	}
	_, val, ok := loop.coll.At(loop.idx)
	if ok && name != "" {
		f.vars[name] = val
	}
	if !ok {
		delete(f.iterLoops, opStart)
	}
	s.push(variant.NewBoolean(ok))
	return nil
}

// setIndex binds a function parameter: the caller's arguments remain on the
// stack below the callee's own temporaries, untouched by the call itself,
// so the parameter is read non-destructively at stackBase+index rather
// than popped.
func (s *Script) setIndex() error {
	name, err := s.r.ReadString()
	if err != nil {
		return fmt.Errorf("vm: %w", err)
	}
	index, err := s.r.ReadInt32()
	if err != nil {
		return fmt.Errorf("vm: %w", err)
	}
	typedByte, err := s.r.ReadByte()
	if err != nil {
		return fmt.Errorf("vm: %w", err)
	}
	var kind variant.Kind
	typed := typedByte != 0
	if typed {
		kb, err := s.r.ReadByte()
		if err != nil {
			return fmt.Errorf("vm: %w", err)
		}
		kind = variant.Kind(kb)
	}

	f := s.frame()
	pos := f.stackBase + int(index)
	if pos < 0 || pos >= len(s.stack) {
		return fmt.Errorf("vm: parameter index %d out of range", index)
	}
	v := s.stack[pos]
	if typed {
		v, err = variant.Cast(v, kind)
		if err != nil {
			return err
		}
	}
	f.vars[name] = v.Clone()
	return nil
}

func countParams(sig bytecode.FunctionSignature) int {
	n := 0
	for _, p := range sig.Parts {
		if p.Kind == bytecode.PartParameter {
			n++
		}
	}
	return n
}

// callFunc dispatches a call by RuntimeID: a native function pops its
// arguments and runs to completion immediately, while a bytecoded function
// pushes a new frame and transfers control, leaving its arguments in place
// on the shared operand stack for the callee's SetIndex instructions to
// read.
func (s *Script) callFunc() error {
	id, err := s.readRuntimeID()
	if err != nil {
		return err
	}
	def, ok := s.host.FindFunction(id)
	if !ok {
		return fmt.Errorf("vm: call to unregistered function %d", id)
	}
	argc := countParams(def.Signature)

	if def.Native != nil {
		args, err := s.popN(argc)
		if err != nil {
			return err
		}
		result, err := def.Native(args)
		if err != nil {
			return err
		}
		if def.Signature.ReturnsValue {
			s.push(result)
		}
		return nil
	}

	if len(s.stack) < argc {
		return fmt.Errorf("vm: operand stack underflow calling %s", def.Signature.String())
	}
	stackBase := len(s.stack) - argc
	nf := newFrame(stackBase, s.r.Pos(), def.Signature.ReturnsValue)
	s.frames = append(s.frames, nf)
	s.r.Seek(def.Offset)
	return nil
}

// doReturn pops the current call frame, restoring the caller's instruction
// pointer and truncating the operand stack back to the arguments' base —
// or, if this is the script's outermost frame, finishes the script instead,
// since there is no caller left to resume.
func (s *Script) doReturn(v variant.Variant) error {
	f := s.frame()
	if len(s.frames) == 1 {
		s.status = StatusFinished
		return nil
	}
	s.stack = s.stack[:f.stackBase]
	if f.returnsValue {
		s.push(v)
	}
	returnAddr := f.returnAddr
	s.frames = s.frames[:len(s.frames)-1]
	s.r.Seek(returnAddr)
	return nil
}
