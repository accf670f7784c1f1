// frame.go - per-function stack frame and variable map (C5)
//
// Grounded on the teacher's stack slot bookkeeping in codegen.go (a
// name-to-offset map growing downward from the frame pointer) and on
// stack_validator.go for push/pop balance tracking, generalised to typed
// variable slots keyed by declared Type instead of the teacher's untyped
// stack-cell model.
package main

import "fmt"

// varSlot is one local variable's location within the current frame: a
// byte offset from the frame base (negative, growing down, per the amd64
// and arm64 conventions §4.7 uses).
type varSlot struct {
	offset int
	typ    *Type
}

// Frame tracks every local variable and temporary of one function body
// during lowering, plus the running low-water mark used to size the
// prologue's stack allocation.
type Frame struct {
	types    *TypeTable
	vars     map[string]varSlot
	size     int // bytes currently allocated, always a positive count
	deferIdx int // next _defer<N> guard variable suffix
	stack    *StackValidator
}

func NewFrame(types *TypeTable) *Frame {
	return &Frame{
		types: types,
		vars:  make(map[string]varSlot),
		stack: NewStackValidator(),
	}
}

// EnterPrologue and LeaveEpilogue bracket the single push/pop of the frame
// pointer every FnDecl/Epilogue pair emits (§4.7), so StackValidator has a
// real balance to check: a checkpoint taken before the prologue must equal
// the depth seen again after the epilogue, for every ISA this backend
// targets. label names the function, for the validator's panic message.
func (f *Frame) EnterPrologue(label string) int {
	checkpoint := f.stack.Checkpoint(label)
	f.stack.Push("rbp")
	return checkpoint
}

func (f *Frame) LeaveEpilogue(checkpoint int, label string) {
	f.stack.Pop("rbp")
	f.stack.Validate(checkpoint, label)
}

// SetVerbose mirrors Generator/Lowerer verbosity onto the frame's stack
// validator, so -v also traces prologue/epilogue push/pop balance.
func (f *Frame) SetVerbose(v bool) {
	f.stack.Verbose = v
}

// AllocateVar reserves a frame slot sized and aligned for t and binds name
// to it. Re-declaring an existing name in the same frame is a generator
// bug: the AST's scope resolution should already have rejected shadowing
// or renamed the later binding (§5 "variable map").
func (f *Frame) AllocateVar(name string, t *Type) int {
	if _, exists := f.vars[name]; exists {
		nError("variable %q allocated twice in the same frame", name)
	}
	size := f.types.SizeOf(t)
	align := f.types.AlignOf(t)
	f.size = alignUp(f.size, align) + size
	offset := -f.size
	f.vars[name] = varSlot{offset: offset, typ: t}
	return offset
}

// AllocateBytes reserves n raw bytes of frame space under a synthetic
// name, with the same growing-down accounting AllocateVar uses but no
// declared Type — for generator-introduced scratch storage (the itoa
// conversion buffer in lower_expr.go) rather than a source-level variable.
func (f *Frame) AllocateBytes(name string, n int) int {
	if _, exists := f.vars[name]; exists {
		nError("variable %q allocated twice in the same frame", name)
	}
	f.size = alignUp(f.size, 8) + n
	offset := -f.size
	f.vars[name] = varSlot{offset: offset, typ: &Type{Kind: KindI64}}
	return offset
}

// AllocateStruct reserves a frame slot for an aggregate return value or a
// struct-typed local, same accounting as AllocateVar but named separately
// to match §5's vocabulary ("allocate_struct").
func (f *Frame) AllocateStruct(name string, t *Type) int {
	if t.Kind != KindStruct {
		nError("AllocateStruct called with non-struct type %s", t.Kind)
	}
	return f.AllocateVar(name, t)
}

// GetVarOffset returns the frame offset bound to name. Looking up an
// unbound name is a generator bug: the typechecker should have rejected
// the reference already.
func (f *Frame) GetVarOffset(name string) int {
	slot, ok := f.vars[name]
	if !ok {
		nError("reference to unallocated variable %q", name)
	}
	return slot.offset
}

// VarType returns the declared type bound to name.
func (f *Frame) VarType(name string) *Type {
	slot, ok := f.vars[name]
	if !ok {
		nError("reference to unallocated variable %q", name)
	}
	return slot.typ
}

// HasVar reports whether name is bound in this frame, without panicking.
func (f *Frame) HasVar(name string) bool {
	_, ok := f.vars[name]
	return ok
}

// NewDeferGuard allocates a boolean guard slot for one defer statement,
// named _defer<N> per §4.6, and returns both the synthetic name and its
// frame offset. Defer guards are 1-byte booleans initialised to false at
// the top of the function and set true at the defer site, so the epilogue
// knows which deferred blocks actually ran.
func (f *Frame) NewDeferGuard() (string, int) {
	name := fmt.Sprintf("_defer%d", f.deferIdx)
	f.deferIdx++
	offset := f.AllocateVar(name, &Type{Kind: KindBool})
	return name, offset
}

// FrameSize returns the total stack space to reserve in the prologue,
// rounded up to 16 bytes to satisfy both ABIs' stack alignment rule.
func (f *Frame) FrameSize() int {
	return alignUp(f.size, 16)
}
