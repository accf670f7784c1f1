// lower.go - AST-directed lowering, orchestration (C6)
//
// Grounded on the teacher's statement/expression dispatch in codegen.go
// (a giant switch over node kind driving x86_64/arm64 emission inline) but
// split into its own pass operating purely against Backend/Buffer/Frame/
// LabelTable, independent of any container format.
package main

import "fmt"

// Lowerer holds every piece of per-function-body state the AST-directed
// passes need. One Lowerer is created per function; its Frame/LabelTable/
// BranchStack do not survive past that function's body.
type Lowerer struct {
	types   *TypeTable
	backend *Backend
	buf     *Buffer
	strings *StringPool
	labels  *LabelTable
	frame   *Frame
	branch  *BranchStack
	diags   *Diagnostics
	calls   *DependencyGraph

	funcLabels map[string]int // function name -> its entry label id
	externs    map[string]bool
	curFunc    string
	verbose    bool
	itoaSeq    int // next synthetic frame-slot suffix for inline decimal conversion
	structSeq  int // next synthetic frame-slot suffix for a struct literal with no named destination

	pendingDefers []*pendingDefer // defers registered so far in the current function, in declaration order

	rodataPatches []rodataPatch
	externCalls   []externCallRef
}

// pendingDefer is a DeferStmt collected during lowering, held until the
// enclosing function's epilogue so it can run in reverse declaration order
// (§4.5/§4.6) instead of inline at the defer site.
type pendingDefer struct {
	guardOffset int32
	body        []Stmt
}

// rodataPatch is a pending reference to a pooled string's eventual .rodata
// address, recorded at the instruction that computed it (LearelRodata) so
// Generator.Generate can rewrite it once the pool has been laid out and
// the container's base address is known.
type rodataPatch struct {
	instrPos  int // buffer position LearelRodata returned
	stringIdx int
}

// externCallRef records a call-site whose callee isn't defined in this
// compilation unit, so Generator can emit a .rela.text entry for it when
// writing the linkable ELF container (§6/§11).
type externCallRef struct {
	instrPos int
	symbol   string
}

// NewLowerer wires one Lowerer against the shared, whole-program state
// (types, backend, buffer, string pool, diagnostics, call graph, label
// table) that every function body's lowering shares, plus the per-function
// state it owns outright. labels is shared across every function in the
// compilation unit, not just this one: a call site in one function patches
// against another function's entry label, so both ends of that patch must
// live in the same arena (§9's "patch lists as arena+index, never
// pointers", generalized from one function to the whole program).
func NewLowerer(types *TypeTable, backend *Backend, buf *Buffer, strings *StringPool, diags *Diagnostics, calls *DependencyGraph, labels *LabelTable, funcLabels map[string]int, externs map[string]bool, verbose bool) *Lowerer {
	return &Lowerer{
		types: types, backend: backend, buf: buf, strings: strings,
		diags: diags, calls: calls, labels: labels,
		funcLabels: funcLabels, externs: externs, verbose: verbose,
	}
}

// LowerFunc lowers one function declaration's full body: prologue,
// parameter spills, statements, implicit-void epilogue if control falls
// off the end, then patches every forward label reference the body
// created.
func (lw *Lowerer) LowerFunc(fn *FuncDecl) {
	lw.curFunc = fn.Name
	lw.frame = NewFrame(lw.types)
	lw.frame.SetVerbose(lw.verbose)
	lw.branch = NewBranchStack()
	lw.pendingDefers = nil

	// Reserve frame slots for parameters before lowering the body, so a
	// parameter reference inside the body always resolves.
	for _, p := range fn.Params {
		lw.frame.AllocateVar(p.Name, p.Type)
	}

	entryLabel, ok := lw.funcLabels[fn.Name]
	if !ok {
		nError("function %q has no entry label (missed registration pass)", fn.Name)
	}
	lw.labels.Bind(entryLabel, lw.buf.Pos())

	// The frame size isn't known until every local has been walked once,
	// but amd64/arm64 prologues need it up front. Two passes: the first
	// only allocates frame slots (by walking statements without emitting),
	// the second emits code against the now-final frame size.
	lw.allocateLocals(fn.Body)
	checkpoint := lw.frame.EnterPrologue(fn.Name)
	lw.backend.FnDecl(lw.buf, int32(lw.frame.FrameSize()))

	for _, p := range fn.Params {
		reg := lw.backend.IntArgReg(indexOfParam(fn.Params, p.Name))
		lw.backend.MovRegToVar(lw.buf, reg, int32(lw.frame.GetVarOffset(p.Name)))
	}

	for _, s := range fn.Body {
		lw.lowerStmt(s)
	}

	lw.emitPendingDefers()
	lw.backend.Epilogue(lw.buf)
	lw.frame.LeaveEpilogue(checkpoint, fn.Name)
	// lw.labels is shared across every function; resolving it is the whole
	// program's job, done once by Generator after every function (and every
	// builtin) has been lowered — see generator.go.
}

func indexOfParam(params []Param, name string) int {
	for i, p := range params {
		if p.Name == name {
			return i
		}
	}
	nError("parameter %q not found in its own declaration", name)
	return -1
}

// allocateLocals walks every statement reachable in body and reserves a
// frame slot for each local it declares, without emitting any code. This
// mirrors how the teacher's compiler pre-scans a function body to size its
// stack frame before emitting the prologue.
func (lw *Lowerer) allocateLocals(body []Stmt) {
	for _, s := range body {
		lw.allocateLocalsStmt(s)
	}
}

func (lw *Lowerer) allocateLocalsStmt(s Stmt) {
	switch n := s.(type) {
	case *AssignStmt:
		if !lw.frame.HasVar(n.Name) {
			lw.frame.AllocateVar(n.Name, lw.inferType(n.Value))
		}
		if lit, ok := n.Value.(*StructInitExpr); ok {
			// Assigned straight into an already-sized named slot (lowerAssign
			// writes its fields there directly), so only its field values,
			// not the literal itself, need a further walk.
			for _, f := range lit.Fields {
				lw.allocateLocalsExpr(f.Value)
			}
		} else {
			lw.allocateLocalsExpr(n.Value)
		}
	case *ReturnStmt:
		if n.Value != nil {
			lw.allocateLocalsExpr(n.Value)
		}
	case *BlockStmt:
		lw.allocateLocals(n.Stmts)
	case *DeferStmt:
		lw.frame.NewDeferGuard()
		lw.allocateLocals(n.Body)
	case *ForCStmt:
		if n.Init != nil {
			lw.allocateLocalsStmt(n.Init)
		}
		lw.allocateLocals(n.Body)
	case *ForRangeStmt:
		lw.frame.AllocateVar(n.Var, &Type{Kind: KindInt})
		lw.allocateLocals(n.Body)
	case *ForGenericStmt:
		lw.allocateLocals(n.Body)
	case *ExprStmt:
		if ifx, ok := n.X.(*IfExpr); ok {
			lw.allocateLocals(ifx.Then)
			lw.allocateLocals(ifx.Else)
		}
		if call, ok := n.X.(*CallExpr); ok {
			lw.preallocatePrintInt(call)
			lw.allocateLocalsExpr(call)
		}
	}
}

// allocateLocalsExpr walks e for struct-literal subexpressions with no
// named destination of their own (a return value, a call argument, a
// nested field value) and reserves each one its own synthetic frame slot,
// in the same left-to-right order lowerStructInit's emission walk visits
// them in, so the two passes agree on identical offsets.
func (lw *Lowerer) allocateLocalsExpr(e Expr) {
	switch n := e.(type) {
	case *StructInitExpr:
		lw.frame.AllocateStruct(structInitSlotName(lw.structSeq), n.Type)
		lw.structSeq++
		for _, f := range n.Fields {
			lw.allocateLocalsExpr(f.Value)
		}
	case *InfixExpr:
		lw.allocateLocalsExpr(n.Left)
		lw.allocateLocalsExpr(n.Right)
	case *PrefixExpr:
		lw.allocateLocalsExpr(n.Operand)
	case *ParenExpr:
		lw.allocateLocalsExpr(n.Inner)
	case *UnsafeExpr:
		lw.allocateLocalsExpr(n.Inner)
	case *LikelyExpr:
		lw.allocateLocalsExpr(n.Inner)
	case *LockExpr:
		lw.allocateLocalsExpr(n.Inner)
	case *CastExpr:
		lw.allocateLocalsExpr(n.Operand)
	case *CallExpr:
		for _, a := range n.Args {
			lw.allocateLocalsExpr(a)
		}
	}
}

// preallocatePrintInt mirrors lowerPrintInt's frame-slot allocation for a
// println-family call whose argument isn't a string literal, so the
// prologue's frame size (computed from this pre-pass, before FnDecl emits
// any code) already accounts for the itoa scratch buffer the emission pass
// will address into. Must allocate in the same order, under the same
// itoaSeq-keyed names, as lowerPrintInt — neither pass re-allocates what
// the other already sized.
func (lw *Lowerer) preallocatePrintInt(n *CallExpr) {
	if !isPrintCallee(n.Callee) || len(n.Args) != 1 {
		return
	}
	if _, isStr := n.Args[0].(*StringLiteral); isStr {
		return
	}
	bufName, negName, valName, ptrName := itoaSlotNames(lw.itoaSeq)
	lw.itoaSeq++
	lw.frame.AllocateBytes(bufName, itoaBufSize)
	lw.frame.AllocateBytes(negName, 8)
	lw.frame.AllocateBytes(valName, 8)
	lw.frame.AllocateBytes(ptrName, 8)
}

func isPrintCallee(name string) bool {
	switch name {
	case "println", "print", "eprintln", "eprint":
		return true
	default:
		return false
	}
}

// inferType returns the static type already attached to expr by the
// (out-of-scope) typechecker. A nil Type here is a generator bug: every
// expression reaching this backend must already be fully typed (§1).
func (lw *Lowerer) inferType(e Expr) *Type {
	switch n := e.(type) {
	case *IntLiteral:
		return n.Type
	case *FloatLiteral:
		return n.Type
	case *BoolLiteral:
		return &Type{Kind: KindBool}
	case *Identifier:
		return n.Type
	case *InfixExpr:
		return n.Type
	case *PrefixExpr:
		return n.Type
	case *CallExpr:
		return n.ReturnType
	case *CastExpr:
		return n.Target
	case *Selector:
		return n.FieldType
	case *StructInitExpr:
		return n.Type
	case *ParenExpr:
		return lw.inferType(n.Inner)
	default:
		nError("lower: cannot infer type of %T", e)
		return nil
	}
}

// reportNError raises a generator bug tagged with the offending node's
// source location where one is available, matching §7's n_error: these are
// AST shapes the backend refuses to lower, never a recoverable condition.
func (lw *Lowerer) reportNError(loc SourceLocation, format string, args ...any) {
	nError("%s: %s", loc, fmt.Sprintf(format, args...))
}
