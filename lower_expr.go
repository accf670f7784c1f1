// lower_expr.go - expression lowering (C6)
package main

import "strconv"

// scratchOrder lists the generator's fixed expression-evaluation scratch
// registers, in preference order, per ISA. Expression lowering never nests
// deeper than this set can cover (§9 "no register allocation beyond a
// fixed convention").
func (lw *Lowerer) scratchOrder() []string {
	if lw.backend.Tag == ArchArm64 {
		return []string{"x9", "x10", "x11", "x12"}
	}
	return []string{"rax", "rcx", "rdx", "rbx"}
}

// lowerExpr emits code to evaluate e and returns the register holding its
// result. Aggregate-typed expressions are the exception: lowerExpr never
// returns a register for them (callers needing a struct's value use its
// address instead, via lowerAddr).
func (lw *Lowerer) lowerExpr(e Expr) string {
	switch n := e.(type) {
	case *IntLiteral:
		dst := lw.scratchOrder()[0]
		lw.backend.Mov64(lw.buf, dst, int32(n.Value))
		return dst

	case *FloatLiteral:
		lw.diags.Warning(n.Loc(), "floating point literal lowered via integer bit pattern scratch path")
		dst := lw.scratchOrder()[0]
		lw.backend.MovAbs(lw.buf, dst, uint64(n.Value))
		return dst

	case *BoolLiteral:
		dst := lw.scratchOrder()[0]
		v := int32(0)
		if n.Value {
			v = 1
		}
		lw.backend.Mov64(lw.buf, dst, v)
		return dst

	case *StringLiteral:
		idx, err := lw.strings.Intern(n.Escaped, n.Raw)
		if err != nil {
			lw.diags.VError(n.Loc(), "invalid string literal: %v", err)
			return lw.scratchOrder()[0]
		}
		dst := lw.scratchOrder()[0]
		pos := lw.backend.LearelRodata(lw.buf, dst)
		lw.rodataPatches = append(lw.rodataPatches, rodataPatch{instrPos: pos, stringIdx: idx})
		return dst

	case *Identifier:
		if n.Type != nil && n.Type.Kind == KindStruct {
			// §4.6 "Identifier ... struct -> load effective address into R0":
			// a struct-typed identifier in value position stands for its
			// address, never a copy of its bytes into a scratch register.
			return lw.lowerAddr(n)
		}
		dst := lw.scratchOrder()[0]
		lw.backend.MovVarToReg(lw.buf, dst, int32(lw.frame.GetVarOffset(n.Name)))
		return dst

	case *ParenExpr:
		return lw.lowerExpr(n.Inner)

	case *UnsafeExpr:
		return lw.lowerExpr(n.Inner)

	case *LikelyExpr:
		return lw.lowerExpr(n.Inner)

	case *LockExpr:
		lw.diags.Warning(n.Loc(), "lock() has no effect in a single-threaded generated body")
		return lw.lowerExpr(n.Inner)

	case *CastExpr:
		return lw.lowerExpr(n.Operand)

	case *PrefixExpr:
		return lw.lowerPrefix(n)

	case *PostfixExpr:
		return lw.lowerPostfix(n)

	case *InfixExpr:
		return lw.lowerInfix(n)

	case *Selector:
		return lw.lowerSelector(n)

	case *CallExpr:
		return lw.lowerCall(n)

	case *IfExpr:
		return lw.lowerIfExpr(n)

	case *MatchExpr:
		return lw.lowerMatchExpr(n)

	case *StructInitExpr:
		return lw.lowerStructInit(n)

	default:
		lw.reportNError(e.Loc(), "unsupported expression kind %T", e)
		return ""
	}
}

func (lw *Lowerer) lowerPrefix(n *PrefixExpr) string {
	reg := lw.lowerExpr(n.Operand)
	switch n.Op {
	case "-":
		lw.backend.Mov64(lw.buf, lw.scratchOrder()[1], 0)
		lw.backend.SubReg(lw.buf, lw.scratchOrder()[1], reg)
		return lw.scratchOrder()[1]
	case "!":
		// Boolean negation on a 0/1 operand: 1 - reg flips either value.
		one := lw.scratchOrder()[1]
		lw.backend.Mov64(lw.buf, one, 1)
		lw.backend.SubReg(lw.buf, one, reg)
		return one
	case "&":
		return lw.lowerAddr(n.Operand)
	case "*":
		dst := lw.scratchOrder()[1]
		lw.backend.MovDeref(lw.buf, dst, reg)
		return dst
	default:
		lw.reportNError(n.Loc(), "unsupported prefix operator %q", n.Op)
		return ""
	}
}

func (lw *Lowerer) lowerPostfix(n *PostfixExpr) string {
	offset := int32(lw.frame.GetVarOffset(n.Operand.Name))
	switch n.Op {
	case "++":
		lw.backend.IncVar(lw.buf, offset)
	case "--":
		lw.backend.DecVar(lw.buf, offset)
	default:
		lw.reportNError(n.Loc(), "unsupported postfix operator %q", n.Op)
	}
	dst := lw.scratchOrder()[0]
	lw.backend.MovVarToReg(lw.buf, dst, offset)
	return dst
}

func (lw *Lowerer) lowerInfix(n *InfixExpr) string {
	lhs := lw.lowerExpr(n.Left)
	rhs := lw.lowerExpr(n.Right)
	switch n.Op {
	case "+":
		lw.backend.AddReg(lw.buf, lhs, rhs)
		return lhs
	case "-":
		lw.backend.SubReg(lw.buf, lhs, rhs)
		return lhs
	case "&":
		lw.backend.BitandReg(lw.buf, lhs, rhs)
		return lhs
	case "*":
		lw.backend.MulReg(lw.buf, lhs, rhs)
		return lhs
	case "==", "!=", "<", "<=", ">", ">=":
		// Leaves flags set from this comparison but returns the raw lhs
		// register, not a materialized 0/1: a comparison used directly as
		// a branch condition goes through lowerCond instead, which knows
		// to skip re-evaluating it. A comparison used in value position
		// (assigned to a bool, for instance) gets the pre-comparison lhs
		// value here, which is a known gap — this fixed instruction set
		// has no SETcc/CSET equivalent to turn flags into a boolean value.
		lw.backend.CmpReg(lw.buf, lhs, rhs)
		return lhs
	default:
		lw.reportNError(n.Loc(), "unsupported infix operator %q", n.Op)
		return ""
	}
}

// condCodeForOp maps a comparison operator to the CondCode that is true
// exactly when the operator holds, for direct use by a Cjmp right after
// lowerCond's CmpReg.
var condCodeForOp = map[string]CondCode{
	"==": CondEQ, "!=": CondNE,
	"<": CondLT, "<=": CondLE,
	">": CondGT, ">=": CondGE,
}

// invertCond returns the condition that holds exactly when cc does not,
// for branching away from a condition's true path (e.g. an if's else
// branch, or falling out of a loop).
func invertCond(cc CondCode) CondCode {
	switch cc {
	case CondEQ:
		return CondNE
	case CondNE:
		return CondEQ
	case CondLT:
		return CondGE
	case CondLE:
		return CondGT
	case CondGT:
		return CondLE
	case CondGE:
		return CondLT
	default:
		return CondNE
	}
}

// lowerCond evaluates e as a branch condition and leaves the CPU flags set
// so that a Cjmp using the returned CondCode takes e's true path. A direct
// comparison (==, !=, <, <=, >, >=) lowers its operands once and reports
// its own natural condition instead of materializing a 0/1 value and
// re-comparing it; anything else (a bool variable, a call result, a
// literal) is evaluated as a plain value and compared against zero, with
// nonzero counting as true.
func (lw *Lowerer) lowerCond(e Expr) CondCode {
	if inf, ok := e.(*InfixExpr); ok {
		if cc, isCmp := condCodeForOp[inf.Op]; isCmp {
			lhs := lw.lowerExpr(inf.Left)
			rhs := lw.lowerExpr(inf.Right)
			lw.backend.CmpReg(lw.buf, lhs, rhs)
			return cc
		}
	}
	reg := lw.lowerExpr(e)
	zero := lw.scratchOrder()[2]
	lw.backend.Mov64(lw.buf, zero, 0)
	lw.backend.CmpReg(lw.buf, reg, zero)
	return CondNE
}

// lowerAddr computes the address of an lvalue expression, used by &expr
// and by struct-initialisation/assignment into aggregate slots.
func (lw *Lowerer) lowerAddr(e Expr) string {
	switch n := e.(type) {
	case *Identifier:
		dst := lw.scratchOrder()[0]
		lw.backend.LeaVarToReg(lw.buf, dst, int32(lw.frame.GetVarOffset(n.Name)))
		return dst
	case *Selector:
		base := lw.lowerAddr(n.Base)
		off := lw.types.FieldOffset(n.StructDecl, n.FieldIndex)
		if off != 0 {
			lw.backend.Add(lw.buf, base, int32(off))
		}
		return base
	case *StructInitExpr:
		return lw.lowerStructInit(n)
	default:
		lw.reportNError(e.Loc(), "cannot take the address of %T", e)
		return ""
	}
}

// structInitSlotName names the synthetic frame slot a struct literal with
// no named destination of its own gets, keyed by idx so allocateLocalsExpr's
// pre-sizing walk and lowerStructInit's emission walk agree on identical
// offsets without either one re-allocating what the other already sized.
func structInitSlotName(idx int) string {
	return "_structinit" + strconv.Itoa(idx)
}

// structFieldIndex finds name's declaration-order index within decl, for
// turning a struct literal's field name into the byte offset TypeTable
// already knows how to compute.
func structFieldIndex(decl *StructDecl, name string) int {
	for i, f := range decl.Fields {
		if f.Name == name {
			return i
		}
	}
	nError("struct literal references unknown field %q", name)
	return -1
}

// lowerStructInitInto emits one store per field of n directly into the
// frame slot at destOffset and returns that slot's address — §4.6's
// "allocate frame slot, emit per-field stores, leave address in R0",
// specialised to reuse a slot the caller already owns instead of carving
// out a fresh synthetic one.
func (lw *Lowerer) lowerStructInitInto(n *StructInitExpr, destOffset int) string {
	decl := lw.types.Structs[n.DeclIndex]
	for _, f := range n.Fields {
		idx := structFieldIndex(decl, f.Name)
		fieldOff := lw.types.FieldOffset(n.DeclIndex, idx)
		valReg := lw.lowerExpr(f.Value)
		lw.backend.MovRegToVar(lw.buf, valReg, int32(destOffset+fieldOff))
	}
	dst := lw.scratchOrder()[0]
	lw.backend.LeaVarToReg(lw.buf, dst, int32(destOffset))
	return dst
}

// lowerStructInit lowers a struct literal with no destination slot of its
// own (a return value, a call argument, a nested field initialiser): it
// claims the next synthetic slot allocateLocalsExpr reserved for it and
// materialises into that.
func (lw *Lowerer) lowerStructInit(n *StructInitExpr) string {
	name := structInitSlotName(lw.structSeq)
	lw.structSeq++
	return lw.lowerStructInitInto(n, lw.frame.GetVarOffset(name))
}

func (lw *Lowerer) lowerSelector(n *Selector) string {
	base := lw.lowerAddr(n.Base)
	dst := lw.scratchOrder()[1]
	lw.backend.MovDeref(lw.buf, dst, base)
	return dst
}

// lowerCall lowers the three special call forms named in §4.6 (exit,
// println family, C.syscall) plus plain user calls.
func (lw *Lowerer) lowerCall(n *CallExpr) string {
	switch n.Callee {
	case "exit":
		if len(n.Args) != 1 {
			lw.reportNError(n.Loc(), "exit() takes exactly one argument")
		}
		code := lw.lowerExpr(n.Args[0])
		lw.backend.Mov(lw.buf, lw.backend.IntArgReg(0), code)
		lw.backend.GenExit(lw.buf, 0)
		return ""

	case "println", "print", "eprintln", "eprint":
		return lw.lowerPrintCall(n)

	case "C.syscall":
		return lw.lowerSyscallCall(n)

	default:
		return lw.lowerPlainCall(n)
	}
}

func (lw *Lowerer) lowerPlainCall(n *CallExpr) string {
	if lw.curFunc != "" {
		lw.calls.AddCall(lw.curFunc, n.Callee)
	}
	cc := lw.backend
	// Each argument is evaluated into whatever fixed scratch register
	// scratchOrder() hands back (§4.7), and with more than one argument a
	// later argument's evaluation can reuse the same scratch register an
	// earlier argument's value is still sitting in. Pushing every value
	// onto the stack the instant it's computed, then popping them off in
	// reverse order straight into the calling convention's argument
	// registers, keeps an already-computed argument safe from a sibling
	// argument's scratch reuse without needing a general allocator.
	for _, arg := range n.Args {
		reg := lw.lowerExpr(arg)
		cc.Push(lw.buf, reg)
	}
	for i := len(n.Args) - 1; i >= 0; i-- {
		cc.Pop(lw.buf, cc.IntArgReg(i))
	}
	targetLabel, defined := lw.funcLabels[n.Callee]
	if !defined && !lw.externs[n.Callee] {
		lw.diags.VError(n.Loc(), "undefined function %q", n.Callee)
		return ""
	}
	pos := lw.backend.CallFn(lw.buf)
	if defined {
		lw.registerBranchPatch(pos, targetLabel)
	} else {
		// An extern call's target is resolved by the linker (linker.go), not
		// by this LabelTable: container_elf.go's WriteELFLinkable emits a
		// .rela.text entry for it instead.
		lw.externCalls = append(lw.externCalls, externCallRef{instrPos: pos, symbol: n.Callee})
	}
	if n.ReturnType == nil {
		return ""
	}
	return lw.backend.IntReturnReg()
}

// lowerPrintCall writes one argument's bytes to stdout (fd 1) or stderr
// (fd 2) via the write syscall, appending a trailing newline for the 'ln'
// variants (§4.6). A string-literal argument is written verbatim; an
// integer-typed argument is decimal-converted inline first (lowerPrintInt)
// since the argument's static type decides the lowering, per §4.6's "three
// special forms detected by callee name... lowered against the argument's
// static type".
func (lw *Lowerer) lowerPrintCall(n *CallExpr) string {
	if len(n.Args) != 1 {
		lw.reportNError(n.Loc(), "%s() takes exactly one argument", n.Callee)
	}
	fd := int32(1)
	if n.Callee == "eprintln" || n.Callee == "eprint" {
		fd = 2
	}
	newline := n.Callee == "println" || n.Callee == "eprintln"

	if str, ok := n.Args[0].(*StringLiteral); ok {
		lw.lowerPrintString(str, n.Loc(), fd, newline)
		return ""
	}

	argType := lw.inferType(n.Args[0])
	if argType == nil || !isIntegerKind(argType.Kind) {
		lw.diags.VError(n.Loc(), "%s() only supports a string or integer argument", n.Callee)
		return ""
	}
	lw.lowerPrintInt(n.Args[0], fd, newline)
	return ""
}

func isIntegerKind(k Kind) bool {
	switch k {
	case KindI8, KindU8, KindI16, KindU16, KindInt, KindU32, KindI64, KindU64, KindIsize, KindUsize, KindIntLiteral:
		return true
	default:
		return false
	}
}

// lowerPrintString interns str and writes its pooled bytes directly; the
// length is known at generation time, so no runtime conversion is needed.
func (lw *Lowerer) lowerPrintString(str *StringLiteral, loc SourceLocation, fd int32, newline bool) {
	idx, err := lw.strings.Intern(str.Escaped, str.Raw)
	if err != nil {
		lw.diags.VError(loc, "invalid string literal: %v", err)
		return
	}
	length := lw.strings.Len(idx)
	if newline {
		length++ // the pooled string is NUL-terminated; a trailing newline
		// is appended by the string pool at layout time for *ln variants,
		// tracked by the caller rather than duplicated here.
	}
	cc := lw.backend
	dst := cc.IntArgReg(1)
	pos := cc.LearelRodata(lw.buf, dst)
	lw.rodataPatches = append(lw.rodataPatches, rodataPatch{instrPos: pos, stringIdx: idx})
	lenReg := cc.IntArgReg(2)
	cc.Mov64(lw.buf, lenReg, int32(length))
	lw.emitWriteSyscall(fd, dst, lenReg)
}

const itoaBufSize = 24 // 19 digits + sign + a trailing newline slot, 8-aligned

// itoaSlotNames returns the four synthetic frame-slot names one inline
// decimal conversion needs, keyed by idx so the pre-sizing walk
// (allocateLocalsStmt) and the emitting walk (lowerPrintInt) agree on
// identical offsets without either one re-allocating what the other
// already sized.
func itoaSlotNames(idx int) (buf, neg, val, ptr string) {
	s := strconv.Itoa(idx)
	return "_itoabuf" + s, "_itoaneg" + s, "_itoaval" + s, "_itoaptr" + s
}

// itoaPtrReg names a scratch register guaranteed free right after
// SignedDivRem10 returns, for holding the write cursor into the decimal
// buffer across iterations without colliding with the quotient/remainder
// registers that call leaves live.
func (lw *Lowerer) itoaPtrReg() string {
	if lw.backend.Tag == ArchArm64 {
		return "x9"
	}
	return "rbx"
}

// lowerPrintInt decimal-converts an integer-typed expression inline and
// writes the result, right-justified in a small per-call frame buffer
// built backward from its last byte. The buffer's lifetime is this
// function's own frame, never a callee's, so there's no cross-call
// ownership question the way a shared builtin returning a pointer into its
// own torn-down stack would have (§8 "get_builtin_arg_reg" covers the
// simpler fixed single-argument builtins; decimal conversion needs a
// caller-owned output buffer instead, so it is lowered here rather than
// through builtins.go).
func (lw *Lowerer) lowerPrintInt(e Expr, fd int32, newline bool) {
	valReg := lw.lowerExpr(e)
	dividend := lw.scratchOrder()[0]
	if valReg != dividend {
		lw.backend.Mov(lw.buf, dividend, valReg)
	}

	bufName, negName, valName, ptrName := itoaSlotNames(lw.itoaSeq)
	lw.itoaSeq++
	bufOffset := int32(lw.frame.GetVarOffset(bufName))
	negOffset := int32(lw.frame.GetVarOffset(negName))
	valOffset := int32(lw.frame.GetVarOffset(valName))
	ptrOffset := int32(lw.frame.GetVarOffset(ptrName))

	tmp := lw.scratchOrder()[1]
	zero := lw.scratchOrder()[2]

	// neg := dividend < 0; dividend = |dividend|
	lw.backend.Mov64(lw.buf, zero, 0)
	lw.backend.CmpReg(lw.buf, dividend, zero)
	negLabel := lw.labels.NewLabel()
	signDoneLabel := lw.labels.NewLabel()
	patchPos := lw.backend.Cjmp(lw.buf, CondLT)
	lw.registerBranchPatch(patchPos, negLabel)
	lw.backend.Mov64(lw.buf, tmp, 0)
	lw.backend.MovRegToVar(lw.buf, tmp, negOffset)
	jmpPos := lw.backend.Jmp(lw.buf)
	lw.registerBranchPatch(jmpPos, signDoneLabel)
	lw.labels.Bind(negLabel, lw.buf.Pos())
	lw.backend.Mov64(lw.buf, tmp, 1)
	lw.backend.MovRegToVar(lw.buf, tmp, negOffset)
	lw.backend.Mov64(lw.buf, tmp, 0)
	lw.backend.SubReg(lw.buf, tmp, dividend)
	lw.backend.Mov(lw.buf, dividend, tmp)
	lw.labels.Bind(signDoneLabel, lw.buf.Pos())
	lw.backend.MovRegToVar(lw.buf, dividend, valOffset)

	// ptr starts one byte before the buffer's reserved newline slot, and
	// every digit gets written behind it, so ptr always marks "one past
	// the first unwritten byte" the way a pre-decrement stack push does.
	ptrReg := lw.itoaPtrReg()
	lw.backend.LeaVarToReg(lw.buf, ptrReg, bufOffset)
	lw.backend.Add(lw.buf, ptrReg, int32(itoaBufSize-1))
	nlReg := lw.scratchOrder()[1]
	lw.backend.Mov64(lw.buf, nlReg, int32('\n'))
	lw.backend.MovStoreByte(lw.buf, ptrReg, nlReg)
	lw.backend.MovRegToVar(lw.buf, ptrReg, ptrOffset)

	loopLabel := lw.labels.NewLabel()
	lw.labels.Bind(loopLabel, lw.buf.Pos())
	lw.backend.MovVarToReg(lw.buf, lw.scratchOrder()[0], valOffset)
	quot, rem := lw.backend.SignedDivRem10(lw.buf)
	lw.backend.Add(lw.buf, rem, int32('0'))

	cursor := lw.itoaPtrReg()
	lw.backend.MovVarToReg(lw.buf, cursor, ptrOffset)
	lw.backend.Sub(lw.buf, cursor, 1)
	lw.backend.MovStoreByte(lw.buf, cursor, rem)
	lw.backend.MovRegToVar(lw.buf, cursor, ptrOffset)
	lw.backend.MovRegToVar(lw.buf, quot, valOffset)

	lw.backend.Mov64(lw.buf, rem, 0)
	lw.backend.CmpReg(lw.buf, quot, rem)
	loopPatchPos := lw.backend.Cjmp(lw.buf, CondNE)
	lw.registerBranchPatch(loopPatchPos, loopLabel)

	// if neg { *--ptr = '-' }
	lw.backend.MovVarToReg(lw.buf, tmp, negOffset)
	lw.backend.Mov64(lw.buf, zero, 0)
	lw.backend.CmpReg(lw.buf, tmp, zero)
	skipSignLabel := lw.labels.NewLabel()
	skipPatchPos := lw.backend.Cjmp(lw.buf, CondEQ)
	lw.registerBranchPatch(skipPatchPos, skipSignLabel)
	signPtr := lw.itoaPtrReg()
	lw.backend.MovVarToReg(lw.buf, signPtr, ptrOffset)
	lw.backend.Sub(lw.buf, signPtr, 1)
	dash := lw.scratchOrder()[1]
	lw.backend.Mov64(lw.buf, dash, int32('-'))
	lw.backend.MovStoreByte(lw.buf, signPtr, dash)
	lw.backend.MovRegToVar(lw.buf, signPtr, ptrOffset)
	lw.labels.Bind(skipSignLabel, lw.buf.Pos())

	finalPtr := lw.scratchOrder()[0]
	lw.backend.MovVarToReg(lw.buf, finalPtr, ptrOffset)
	end := lw.scratchOrder()[1]
	lw.backend.LeaVarToReg(lw.buf, end, bufOffset)
	endOff := int32(itoaBufSize - 1)
	if newline {
		endOff++
	}
	lw.backend.Add(lw.buf, end, endOff)
	lw.backend.SubReg(lw.buf, end, finalPtr) // end = length
	lw.emitWriteSyscall(fd, finalPtr, end)
}

// emitWriteSyscall moves fd/ptrReg/lenReg into the calling convention's
// first three argument registers (skipping a register that's already
// holding the right value) and emits the write syscall.
func (lw *Lowerer) emitWriteSyscall(fd int32, ptrReg, lenReg string) {
	cc := lw.backend
	cc.Mov64(lw.buf, cc.IntArgReg(0), fd)
	if ptrReg != cc.IntArgReg(1) {
		cc.Mov(lw.buf, cc.IntArgReg(1), ptrReg)
	}
	if lenReg != cc.IntArgReg(2) {
		cc.Mov(lw.buf, cc.IntArgReg(2), lenReg)
	}
	writeSyscallNum := int32(1)
	if lw.backend.Tag == ArchArm64 {
		writeSyscallNum = 64
	}
	cc.MovAbs(lw.buf, syscallNumReg(lw.backend.Tag), uint64(writeSyscallNum))
	cc.Syscall(lw.buf)
}

func syscallNumReg(arch Arch) string {
	if arch == ArchArm64 {
		return "x8"
	}
	return "rax"
}

// lowerSyscallCall lowers C.syscall(num, args...): move the syscall number
// and up to six arguments into the fixed syscall registers and emit
// `syscall`/`svc #0` (§4.6).
func (lw *Lowerer) lowerSyscallCall(n *CallExpr) string {
	if len(n.Args) < 1 {
		lw.reportNError(n.Loc(), "C.syscall() requires a syscall number argument")
	}
	numReg := lw.lowerExpr(n.Args[0])
	lw.backend.Mov(lw.buf, syscallNumReg(lw.backend.Tag), numReg)
	for i, arg := range n.Args[1:] {
		reg := lw.lowerExpr(arg)
		lw.backend.Mov(lw.buf, lw.backend.IntArgReg(i), reg)
	}
	lw.backend.Syscall(lw.buf)
	return lw.backend.IntReturnReg()
}

// lowerIfExpr lowers if/else, whether used as a statement (via ExprStmt)
// or in expression position (its result, if any, is left in the integer
// return-style scratch register by convention).
func (lw *Lowerer) lowerIfExpr(n *IfExpr) string {
	cc := lw.lowerCond(n.Cond)
	elseLabel := lw.labels.NewLabel()
	endLabel := lw.labels.NewLabel()

	patchPos := lw.backend.Cjmp(lw.buf, invertCond(cc))
	lw.registerBranchPatch(patchPos, elseLabel)

	for _, s := range n.Then {
		lw.lowerStmt(s)
	}
	jmpPos := lw.backend.Jmp(lw.buf)
	lw.registerBranchPatch(jmpPos, endLabel)

	lw.labels.Bind(elseLabel, lw.buf.Pos())
	for _, s := range n.Else {
		lw.lowerStmt(s)
	}
	lw.labels.Bind(endLabel, lw.buf.Pos())
	return ""
}

// registerBranchPatch records a pending branch patch at the backend's
// native displacement width: a separate rel32 field after the opcode on
// amd64, or the whole instruction word on arm64 (§9).
func (lw *Lowerer) registerBranchPatch(instrPos int, target int) {
	if lw.backend.BranchIsWholeInstruction() {
		lw.labels.AddPatch(instrPos, 4, target, instrPos)
		return
	}
	lw.labels.AddPatch(instrPos, 4, target, lw.buf.Pos())
}

// lowerMatchExpr lowers match as a linear chain of equality comparisons
// against the subject, falling through to the default arm. This is
// deliberately simple: the AST's match never carries pattern bindings,
// only value lists per arm (§4.6).
func (lw *Lowerer) lowerMatchExpr(n *MatchExpr) string {
	subjectReg := lw.lowerExpr(n.Subject)
	endLabel := lw.labels.NewLabel()

	for _, arm := range n.Arms {
		if arm.Values == nil {
			for _, s := range arm.Body {
				lw.lowerStmt(s)
			}
			continue
		}
		nextLabel := lw.labels.NewLabel()
		bodyLabel := lw.labels.NewLabel()
		for i, v := range arm.Values {
			valReg := lw.lowerExpr(v)
			lw.backend.CmpReg(lw.buf, subjectReg, valReg)
			if i == len(arm.Values)-1 {
				// Last value: subject matched none of this arm's values,
				// fall through to the next arm.
				patchPos := lw.backend.Cjmp(lw.buf, CondNE)
				lw.registerBranchPatch(patchPos, nextLabel)
			} else {
				// Subject equals any listed value runs the arm (§4.6), so an
				// earlier match jumps straight to the body instead of
				// requiring every remaining value to match too.
				patchPos := lw.backend.Cjmp(lw.buf, CondEQ)
				lw.registerBranchPatch(patchPos, bodyLabel)
			}
		}
		lw.labels.Bind(bodyLabel, lw.buf.Pos())
		for _, s := range arm.Body {
			lw.lowerStmt(s)
		}
		jmpPos := lw.backend.Jmp(lw.buf)
		lw.registerBranchPatch(jmpPos, endLabel)
		lw.labels.Bind(nextLabel, lw.buf.Pos())
	}

	lw.labels.Bind(endLabel, lw.buf.Pos())
	return ""
}
