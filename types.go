// types.go - type-layout engine (C2)
//
// Grounded on the teacher's types.go (Vibe67Type/TypeKind, switch-based
// String()/predicate methods) but generalised to the primitive/struct/enum
// kind set §4.2 actually needs, instead of the teacher's native/foreign
// split for a dynamically-typed map-based language.
package main

// Kind is the category of a resolved AST type.
type Kind int

const (
	KindI8 Kind = iota
	KindU8
	KindI16
	KindU16
	KindInt // plain "int", 4 bytes per §4.2
	KindU32
	KindF32
	KindI64
	KindU64
	KindIsize
	KindUsize
	KindF64
	KindFloatLiteral
	KindIntLiteral
	KindBool
	KindChar
	KindRune
	KindPointer
	KindStruct
	KindEnum
)

func (k Kind) String() string {
	switch k {
	case KindI8:
		return "i8"
	case KindU8:
		return "u8"
	case KindI16:
		return "i16"
	case KindU16:
		return "u16"
	case KindInt:
		return "int"
	case KindU32:
		return "u32"
	case KindF32:
		return "f32"
	case KindI64:
		return "i64"
	case KindU64:
		return "u64"
	case KindIsize:
		return "isize"
	case KindUsize:
		return "usize"
	case KindF64:
		return "f64"
	case KindFloatLiteral:
		return "float_literal"
	case KindIntLiteral:
		return "int_literal"
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindRune:
		return "rune"
	case KindPointer:
		return "pointer"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	default:
		return "unknown"
	}
}

// Type is a resolved AST type reference. Struct/Enum carry an index into
// the shared TypeTable rather than embedding their declaration, so two
// references to the same struct type compare/layout identically.
type Type struct {
	Kind      Kind
	Elem      *Type // KindPointer: pointee type
	DeclIndex int   // KindStruct/KindEnum: index into TypeTable
}

// IsFloat reports whether arithmetic on this type uses the float register
// convention (F0) rather than the integer one (R0).
func (t *Type) IsFloat() bool {
	return t.Kind == KindF32 || t.Kind == KindF64 || t.Kind == KindFloatLiteral
}

// IsAggregate reports whether values of this type live in memory rather
// than a single register.
func (t *Type) IsAggregate() bool {
	return t.Kind == KindStruct
}

// Field is one declared struct field, in declaration order.
type Field struct {
	Name string
	Type *Type
}

// StructDecl is a struct type's declaration: fields in source order, no
// layout information (that is computed lazily and memoised, §4.2).
type StructDecl struct {
	Name   string
	Fields []Field
}

// EnumDecl is an enum type's declaration. Flag enums double their values
// starting at 1; ordinary enums increment from 0 unless a field overrides
// its value with a constant expression (§3 "Enum-value table").
type EnumDecl struct {
	Name    string
	IsFlags bool
	Values  map[string]int
}

// structLayout is the memoised result of laying out one struct type: total
// size, alignment, and each field's byte offset in declaration order.
type structLayout struct {
	size    int
	align   int
	offsets []int
}

// TypeTable is the shared AST type table the generator consumes. Per the
// Design Notes (§9), the generator keeps its own side table of struct
// layouts keyed by declaration index rather than mutating the upstream
// type table in place — behaviourally identical, friendlier to test in
// isolation.
type TypeTable struct {
	Structs map[int]*StructDecl
	Enums   map[int]*EnumDecl

	layouts  map[int]*structLayout
	visiting map[int]bool // cycle guard while computing layouts
}

func NewTypeTable() *TypeTable {
	return &TypeTable{
		Structs:  make(map[int]*StructDecl),
		Enums:    make(map[int]*EnumDecl),
		layouts:  make(map[int]*structLayout),
		visiting: make(map[int]bool),
	}
}

// primitiveSize is the hard-wired size from §4.2. Alignment for every
// primitive equals its size: none of i8..pointer needs a wider natural
// alignment than its own width on amd64/arm64.
func primitiveSize(k Kind) int {
	switch k {
	case KindI8, KindU8, KindBool, KindChar:
		return 1
	case KindI16, KindU16:
		return 2
	case KindInt, KindU32, KindF32, KindRune:
		return 4
	case KindI64, KindU64, KindIsize, KindUsize, KindF64, KindFloatLiteral, KindIntLiteral, KindPointer:
		return 8
	default:
		nError("primitiveSize: not a primitive kind: %s", k)
		return 0
	}
}

// SizeOf returns size_of(t) in bytes (§4.2).
func (tt *TypeTable) SizeOf(t *Type) int {
	switch t.Kind {
	case KindPointer:
		return PointerSize
	case KindEnum:
		return 4
	case KindStruct:
		return tt.layoutOf(t.DeclIndex).size
	default:
		return primitiveSize(t.Kind)
	}
}

// AlignOf returns align_of(t) in bytes (§4.2).
func (tt *TypeTable) AlignOf(t *Type) int {
	switch t.Kind {
	case KindPointer:
		return PointerSize
	case KindEnum:
		return 4
	case KindStruct:
		return tt.layoutOf(t.DeclIndex).align
	default:
		return primitiveSize(t.Kind)
	}
}

// FieldOffset returns the byte offset of field index i within struct decl
// declIndex, per the memoised layout.
func (tt *TypeTable) FieldOffset(declIndex, fieldIndex int) int {
	return tt.layoutOf(declIndex).offsets[fieldIndex]
}

// layoutOf computes (and memoises) a struct's layout on first query: fields
// laid out sequentially, padding inserted so each field satisfies its own
// alignment, struct alignment is the max field alignment, and total size is
// rounded up to that alignment (§4.2, §8 invariants).
func (tt *TypeTable) layoutOf(declIndex int) *structLayout {
	if l, ok := tt.layouts[declIndex]; ok {
		return l
	}
	if tt.visiting[declIndex] {
		nError("cyclic struct type detected (decl #%d); upstream should have rejected this", declIndex)
	}
	decl, ok := tt.Structs[declIndex]
	if !ok {
		nError("unknown struct type: decl #%d", declIndex)
	}

	tt.visiting[declIndex] = true
	defer delete(tt.visiting, declIndex)

	offsets := make([]int, len(decl.Fields))
	offset := 0
	maxAlign := 1
	for i, f := range decl.Fields {
		falign := tt.AlignOf(f.Type)
		fsize := tt.SizeOf(f.Type)
		if falign > maxAlign {
			maxAlign = falign
		}
		offset = alignUp(offset, falign)
		offsets[i] = offset
		offset += fsize
	}
	size := alignUp(offset, maxAlign)

	l := &structLayout{size: size, align: maxAlign, offsets: offsets}
	tt.layouts[declIndex] = l
	return l
}

func alignUp(n, align int) int {
	if align <= 1 {
		return n
	}
	rem := n % align
	if rem == 0 {
		return n
	}
	return n + (align - rem)
}

// EnumValue returns the numeric value of a named field of enum decl
// declIndex, computed eagerly when the enum decl was registered.
func (tt *TypeTable) EnumValue(declIndex int, name string) (int, bool) {
	decl, ok := tt.Enums[declIndex]
	if !ok {
		return 0, false
	}
	v, ok := decl.Values[name]
	return v, ok
}

// RegisterEnum computes and stores an enum's value table eagerly (§3
// "Enum-value table"): flag enums double starting at 1, ordinary enums
// increment from 0, unless overridden by the supplied explicit values.
func (tt *TypeTable) RegisterEnum(declIndex int, name string, isFlags bool, fieldNames []string, overrides map[string]int) {
	decl := &EnumDecl{Name: name, IsFlags: isFlags, Values: make(map[string]int)}
	next := 0
	if isFlags {
		next = 1
	}
	for _, fname := range fieldNames {
		if v, ok := overrides[fname]; ok {
			decl.Values[fname] = v
			if isFlags {
				next = v * 2
			} else {
				next = v + 1
			}
			continue
		}
		decl.Values[fname] = next
		if isFlags {
			next *= 2
		} else {
			next++
		}
	}
	tt.Enums[declIndex] = decl
}
