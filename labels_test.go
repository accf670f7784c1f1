package main

import "testing"

func TestLabelBindAndPos(t *testing.T) {
	lt := NewLabelTable()
	id := lt.NewLabel()
	if lt.IsBound(id) {
		t.Fatal("freshly allocated label reported bound")
	}
	lt.Bind(id, 42)
	if !lt.IsBound(id) {
		t.Fatal("label not bound after Bind")
	}
	if got := lt.Pos(id); got != 42 {
		t.Errorf("Pos() = %d, want 42", got)
	}
}

func TestLabelBindTwicePanics(t *testing.T) {
	lt := NewLabelTable()
	id := lt.NewLabel()
	lt.Bind(id, 0)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic binding a label twice")
		}
	}()
	lt.Bind(id, 1)
}

func TestResolveAllPatchesForwardBranch(t *testing.T) {
	lt := NewLabelTable()
	buf := &Buffer{}
	target := lt.NewLabel()

	buf.AppendByte(0xe9)
	patchPos := buf.AppendI32(0)
	instrEnd := buf.Pos()
	lt.AddPatch(patchPos, 4, target, instrEnd)

	buf.AppendN(0x90, 8)
	lt.Bind(target, buf.Pos())

	lt.ResolveAll(buf)

	want := int32(lt.Pos(target) - instrEnd)
	if got := int32(buf.ReadU32(patchPos)); got != want {
		t.Errorf("patched displacement = %d, want %d", got, want)
	}
}

func TestResolveAllUnboundLabelPanics(t *testing.T) {
	lt := NewLabelTable()
	buf := &Buffer{}
	target := lt.NewLabel()
	pos := buf.AppendI32(0)
	lt.AddPatch(pos, 4, target, buf.Pos())

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic resolving a patch against an unbound label")
		}
	}()
	lt.ResolveAll(buf)
}

func TestBranchStackUnlabelledInnermostLoop(t *testing.T) {
	bs := NewBranchStack()
	bs.Push("", 1, 2)
	bs.Push("", 3, 4)

	id, ok := bs.Resolve("", true)
	if !ok || id != 3 {
		t.Errorf("innermost break target = (%d, %v), want (3, true)", id, ok)
	}
	id, ok = bs.Resolve("", false)
	if !ok || id != 4 {
		t.Errorf("innermost continue target = (%d, %v), want (4, true)", id, ok)
	}

	bs.Pop()
	id, ok = bs.Resolve("", true)
	if !ok || id != 1 {
		t.Errorf("after pop, break target = (%d, %v), want (1, true)", id, ok)
	}
}

func TestBranchStackLabelledOuterLoop(t *testing.T) {
	bs := NewBranchStack()
	bs.Push("outer", 10, 20)
	bs.Push("", 30, 40)

	id, ok := bs.Resolve("outer", true)
	if !ok || id != 10 {
		t.Errorf("labelled break target = (%d, %v), want (10, true)", id, ok)
	}
}

func TestBranchStackUnknownLabelNotOK(t *testing.T) {
	bs := NewBranchStack()
	bs.Push("loop1", 1, 2)
	if _, ok := bs.Resolve("loop2", true); ok {
		t.Fatal("expected ok=false for a label naming no enclosing loop")
	}
}

func TestBranchStackEmptyStackNotOK(t *testing.T) {
	bs := NewBranchStack()
	if _, ok := bs.Resolve("", true); ok {
		t.Fatal("expected ok=false breaking outside any loop")
	}
}
