package main

import "testing"

func newTestFrame() *Frame {
	return NewFrame(NewTypeTable())
}

func TestFrameAllocateVarGrowsDownAndAligns(t *testing.T) {
	f := newTestFrame()
	off1 := f.AllocateVar("a", &Type{Kind: KindI8})
	off2 := f.AllocateVar("b", &Type{Kind: KindI64})
	if off1 != -1 {
		t.Errorf("first i8 slot offset = %d, want -1", off1)
	}
	if off2 != -16 {
		t.Errorf("second (i64, 8-aligned) slot offset = %d, want -16", off2)
	}
}

func TestFrameAllocateVarTwiceNameReuse(t *testing.T) {
	f := newTestFrame()
	f.AllocateVar("x", &Type{Kind: KindI64})
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic re-allocating an already-bound variable name")
		}
	}()
	f.AllocateVar("x", &Type{Kind: KindI64})
}

func TestFrameGetVarOffsetUnknownPanics(t *testing.T) {
	f := newTestFrame()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic looking up an unallocated variable")
		}
	}()
	f.GetVarOffset("nope")
}

func TestFrameHasVar(t *testing.T) {
	f := newTestFrame()
	if f.HasVar("x") {
		t.Fatal("HasVar true before allocation")
	}
	f.AllocateVar("x", &Type{Kind: KindInt})
	if !f.HasVar("x") {
		t.Fatal("HasVar false after allocation")
	}
}

func TestFrameAllocateBytesDoesNotCollideWithTypedVars(t *testing.T) {
	f := newTestFrame()
	f.AllocateVar("a", &Type{Kind: KindI64})
	bufOff := f.AllocateBytes("_itoabuf0", 24)
	if bufOff != -40 {
		t.Errorf("scratch buffer offset = %d, want -40", bufOff)
	}
	if got := f.GetVarOffset("_itoabuf0"); got != bufOff {
		t.Errorf("GetVarOffset(_itoabuf0) = %d, want %d", got, bufOff)
	}
}

func TestFrameSizeRoundsUpTo16(t *testing.T) {
	f := newTestFrame()
	f.AllocateVar("a", &Type{Kind: KindI8})
	if got := f.FrameSize(); got != 16 {
		t.Errorf("FrameSize() = %d, want 16", got)
	}
}

func TestFrameDeferGuardIsBoolSized(t *testing.T) {
	f := newTestFrame()
	name, off := f.NewDeferGuard()
	if name != "_defer0" {
		t.Errorf("first defer guard name = %q, want _defer0", name)
	}
	if f.VarType(name).Kind != KindBool {
		t.Errorf("defer guard type = %v, want KindBool", f.VarType(name).Kind)
	}
	if off != f.GetVarOffset(name) {
		t.Errorf("NewDeferGuard offset %d disagrees with GetVarOffset %d", off, f.GetVarOffset(name))
	}
}

func TestFramePrologueEpilogueBalances(t *testing.T) {
	f := newTestFrame()
	checkpoint := f.EnterPrologue("main")
	f.LeaveEpilogue(checkpoint, "main") // must not panic: push/pop balanced
}

func TestFrameEnterPrologueUnbalancedPanics(t *testing.T) {
	f := newTestFrame()
	checkpoint := f.EnterPrologue("main")
	f.stack.Push("rax") // an extra push the epilogue never pops back off
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic validating an unbalanced stack depth")
		}
	}()
	f.stack.Validate(checkpoint, "main")
}
