// ast.go - the typechecked AST the generator consumes
//
// This module treats the lexer/parser/typechecker as external collaborators
// (§1): the node set below is exactly what §4.6 names, grounded on the
// teacher's ast.go shape (a Node/Statement/Expression interface family, one
// concrete struct per node kind) but with the teacher's dynamically-typed,
// map-based node set replaced by this spec's typed AST.
package main

// Node is the root of the AST interface family.
type Node interface {
	node()
}

// Expr is any expression node; every concrete expression type satisfies it.
type Expr interface {
	Node
	exprNode()
	Loc() SourceLocation
}

// Stmt is any statement node.
type Stmt interface {
	Node
	stmtNode()
	Loc() SourceLocation
}

type baseExpr struct{ Pos SourceLocation }

func (baseExpr) node()             {}
func (baseExpr) exprNode()         {}
func (b baseExpr) Loc() SourceLocation { return b.Pos }

type baseStmt struct{ Pos SourceLocation }

func (baseStmt) node()             {}
func (baseStmt) stmtNode()         {}
func (b baseStmt) Loc() SourceLocation { return b.Pos }

// ---- Expressions (§4.6) ----

type IntLiteral struct {
	baseExpr
	Value int64
	Type  *Type
}

type FloatLiteral struct {
	baseExpr
	Value float64
	Type  *Type
}

type BoolLiteral struct {
	baseExpr
	Value bool
}

// StringLiteral carries the still-escaped source text; decoding happens in
// the string pool at emission time (§4.3), not at parse time, per spec.
type StringLiteral struct {
	baseExpr
	Raw     bool
	Escaped string
}

type Identifier struct {
	baseExpr
	Name string
	Type *Type
}

// Selector is field access: Base.Field.
type Selector struct {
	baseExpr
	Base       Expr
	Field      string
	StructDecl int // declaration index of Base's struct type
	FieldIndex int
	FieldType  *Type
}

type InfixExpr struct {
	baseExpr
	Op    string
	Left  Expr
	Right Expr
	Type  *Type
}

type PrefixExpr struct {
	baseExpr
	Op      string
	Operand Expr
	Type    *Type
}

// PostfixExpr is ++/-- on an identifier; it mutates the identifier in place
// (§4.6).
type PostfixExpr struct {
	baseExpr
	Op      string // "++" or "--"
	Operand *Identifier
}

// CallExpr covers plain calls plus the three special forms recognised by
// callee name: exit, println/print/eprintln/eprint, C.syscall (§4.6).
type CallExpr struct {
	baseExpr
	Callee string
	Args   []Expr
	// ReturnType is nil for void calls.
	ReturnType *Type
}

type IfExpr struct {
	baseExpr
	Cond Expr
	Then []Stmt
	Else []Stmt // nil if no else branch
}

type MatchArm struct {
	// Values is nil for the default arm.
	Values []Expr
	Body   []Stmt
}

type MatchExpr struct {
	baseExpr
	Subject Expr
	Arms    []MatchArm
}

type CastExpr struct {
	baseExpr
	Operand Expr
	Target  *Type
}

type ParenExpr struct {
	baseExpr
	Inner Expr
}

type UnsafeExpr struct {
	baseExpr
	Inner Expr
}

type LikelyExpr struct {
	baseExpr
	Inner    Expr
	Likely   bool // true for likely(), false for unlikely()
}

type LockExpr struct {
	baseExpr
	Inner Expr
}

type StructInitField struct {
	Name  string
	Value Expr
}

type StructInitExpr struct {
	baseExpr
	DeclIndex int
	Fields    []StructInitField
	Type      *Type
}

// ---- Statements (§4.6) ----

type AssignStmt struct {
	baseStmt
	Name  string
	Value Expr
}

type BlockStmt struct {
	baseStmt
	Stmts []Stmt
}

// BranchStmt is break/continue, optionally targeting a named loop label.
type BranchStmt struct {
	baseStmt
	IsBreak bool
	Label   string // empty for the innermost loop
}

// ConstDecl is a no-op at emission time: constants are folded upstream by
// the constant-evaluator collaborator (§4.6).
type ConstDecl struct {
	baseStmt
	Name string
}

type DeferStmt struct {
	baseStmt
	Body []Stmt
}

type ExprStmt struct {
	baseStmt
	X Expr
}

type Param struct {
	Name string
	Type *Type
}

type FuncDecl struct {
	baseStmt
	Name       string // qualified as <receiver-type>.<method> for methods
	Params     []Param
	ReturnType *Type // nil for void
	Body       []Stmt
}

// ForCStmt is the C-style three-clause for loop.
type ForCStmt struct {
	baseStmt
	Init  Stmt // may be nil
	Cond  Expr // may be nil
	Post  Stmt // may be nil
	Body  []Stmt
	Label string
}

// ForRangeStmt is the numeric `a in lo..hi` form; other iteration kinds are
// fatal per §4.6.
type ForRangeStmt struct {
	baseStmt
	Var   string
	Lo    Expr
	Hi    Expr
	Body  []Stmt
	Label string
}

// ForGenericStmt is any non-numeric-range iteration form. The generator
// always rejects it (§4.6 "other iteration kinds are fatal"); it exists in
// the AST solely so that rejection is a deliberate, named check rather than
// an unreachable default case.
type ForGenericStmt struct {
	baseStmt
	Kind string // descriptive only, e.g. "slice", "map"
	Body []Stmt
}

// HashStmt injects a literal hex byte sequence verbatim into the text
// section (§4.6).
type HashStmt struct {
	baseStmt
	Bytes []byte
}

// AsmStmt is a small inline-assembly mnemonic sequence, one instruction per
// entry, matching the teacher's Emit() mini-DSL (emit.go) but trimmed to
// the mnemonics this backend actually supports.
type AsmStmt struct {
	baseStmt
	Lines []string
}

type AssertStmt struct {
	baseStmt
	Cond Expr
}

// ImportStmt/ModuleStmt are no-ops at emission time (§4.6).
type ImportStmt struct {
	baseStmt
	Path string
}

type ModuleStmt struct {
	baseStmt
	Name string
}

// StructDeclStmt/EnumDeclStmt are no-ops at emission time: the layout and
// enum-value work happens once, up front, via TypeTable (§4.2, §3).
type StructDeclStmt struct {
	baseStmt
	DeclIndex int
}

type EnumDeclStmt struct {
	baseStmt
	DeclIndex int
}

type ReturnStmt struct {
	baseStmt
	Value Expr // nil for bare return
}

// File is one parsed top-level compilation unit.
type File struct {
	Path  string
	Stmts []Stmt
}
