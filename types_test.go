package main

import "testing"

func TestSizeOfPrimitives(t *testing.T) {
	tt := NewTypeTable()
	cases := []struct {
		kind Kind
		want int
	}{
		{KindI8, 1}, {KindU8, 1}, {KindBool, 1}, {KindChar, 1},
		{KindI16, 2}, {KindU16, 2},
		{KindInt, 4}, {KindU32, 4}, {KindF32, 4}, {KindRune, 4},
		{KindI64, 8}, {KindU64, 8}, {KindIsize, 8}, {KindUsize, 8}, {KindF64, 8},
		{KindPointer, PointerSize},
		{KindEnum, 4},
	}
	for _, c := range cases {
		if got := tt.SizeOf(&Type{Kind: c.kind}); got != c.want {
			t.Errorf("SizeOf(%s) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestAlignOfMatchesSizeForPrimitives(t *testing.T) {
	tt := NewTypeTable()
	for _, k := range []Kind{KindI8, KindI16, KindInt, KindI64, KindF64, KindPointer} {
		typ := &Type{Kind: k}
		if tt.AlignOf(typ) != tt.SizeOf(typ) {
			t.Errorf("AlignOf(%s) = %d, want %d (== SizeOf)", k, tt.AlignOf(typ), tt.SizeOf(typ))
		}
	}
}

func TestStructLayoutSequentialNoPadding(t *testing.T) {
	tt := NewTypeTable()
	tt.Structs[0] = &StructDecl{
		Name: "Pair",
		Fields: []Field{
			{Name: "a", Type: &Type{Kind: KindI64}},
			{Name: "b", Type: &Type{Kind: KindI64}},
		},
	}
	typ := &Type{Kind: KindStruct, DeclIndex: 0}
	if got := tt.SizeOf(typ); got != 16 {
		t.Errorf("SizeOf(Pair{i64,i64}) = %d, want 16", got)
	}
	if got := tt.AlignOf(typ); got != 8 {
		t.Errorf("AlignOf(Pair{i64,i64}) = %d, want 8", got)
	}
	if got := tt.FieldOffset(0, 1); got != 8 {
		t.Errorf("FieldOffset(1) = %d, want 8", got)
	}
}

func TestStructLayoutInsertsPadding(t *testing.T) {
	tt := NewTypeTable()
	tt.Structs[0] = &StructDecl{
		Name: "Mixed",
		Fields: []Field{
			{Name: "flag", Type: &Type{Kind: KindI8}},
			{Name: "big", Type: &Type{Kind: KindI64}},
		},
	}
	typ := &Type{Kind: KindStruct, DeclIndex: 0}
	if got := tt.FieldOffset(0, 1); got != 8 {
		t.Errorf("FieldOffset(big) = %d, want 8 (padded to i64 alignment)", got)
	}
	if got := tt.SizeOf(typ); got != 16 {
		t.Errorf("SizeOf(Mixed) = %d, want 16 (rounded up to max align)", got)
	}
}

func TestStructLayoutMemoised(t *testing.T) {
	tt := NewTypeTable()
	tt.Structs[0] = &StructDecl{
		Name:   "Solo",
		Fields: []Field{{Name: "x", Type: &Type{Kind: KindInt}}},
	}
	typ := &Type{Kind: KindStruct, DeclIndex: 0}
	first := tt.SizeOf(typ)
	tt.Structs[0].Fields = append(tt.Structs[0].Fields, Field{Name: "y", Type: &Type{Kind: KindI64}})
	second := tt.SizeOf(typ)
	if first != second {
		t.Errorf("layout changed after memoisation: first=%d second=%d, want equal", first, second)
	}
}

func TestCyclicStructPanics(t *testing.T) {
	tt := NewTypeTable()
	tt.Structs[0] = &StructDecl{
		Name:   "Self",
		Fields: []Field{{Name: "next", Type: &Type{Kind: KindStruct, DeclIndex: 0}}},
	}
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic laying out a cyclic struct")
		}
	}()
	tt.SizeOf(&Type{Kind: KindStruct, DeclIndex: 0})
}

func TestRegisterEnumOrdinaryIncrements(t *testing.T) {
	tt := NewTypeTable()
	tt.RegisterEnum(0, "Color", false, []string{"Red", "Green", "Blue"}, nil)
	for name, want := range map[string]int{"Red": 0, "Green": 1, "Blue": 2} {
		got, ok := tt.EnumValue(0, name)
		if !ok || got != want {
			t.Errorf("EnumValue(%s) = (%d, %v), want (%d, true)", name, got, ok, want)
		}
	}
}

func TestRegisterEnumFlagsDouble(t *testing.T) {
	tt := NewTypeTable()
	tt.RegisterEnum(0, "Perm", true, []string{"Read", "Write", "Exec"}, nil)
	for name, want := range map[string]int{"Read": 1, "Write": 2, "Exec": 4} {
		got, ok := tt.EnumValue(0, name)
		if !ok || got != want {
			t.Errorf("EnumValue(%s) = (%d, %v), want (%d, true)", name, got, ok, want)
		}
	}
}

func TestRegisterEnumOverrideRebasesSubsequent(t *testing.T) {
	tt := NewTypeTable()
	tt.RegisterEnum(0, "Status", false, []string{"Ok", "Retry", "Fail"}, map[string]int{"Retry": 10})
	for name, want := range map[string]int{"Ok": 0, "Retry": 10, "Fail": 11} {
		got, ok := tt.EnumValue(0, name)
		if !ok || got != want {
			t.Errorf("EnumValue(%s) = (%d, %v), want (%d, true)", name, got, ok, want)
		}
	}
}

func TestEnumValueUnknownDeclNotOK(t *testing.T) {
	tt := NewTypeTable()
	if _, ok := tt.EnumValue(99, "Red"); ok {
		t.Fatal("expected ok=false for an unregistered enum decl")
	}
}
