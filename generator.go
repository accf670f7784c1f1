// generator.go - top-level orchestration and the Generate entry point
//
// Grounded on the teacher's CompilerState/CompilationPipeline (explicit,
// validated stage transitions: symbol collection, codegen, address
// assignment, finalization) but collapsed into one Generator type and a
// single Generate function, since this backend's pipeline is five fixed
// stages rather than the teacher's two-pass (first-pass/second-pass)
// scheme driven by a dynamically-typed runtime.
package main

import (
	"fmt"
	"os"
	"sort"
)

// Preferences is the resolved configuration for one Generate call,
// populated by config.go from flags/environment.
type Preferences struct {
	Target     Target
	OutName    string
	Verbose    bool
	StdoutMode bool
}

// Generator owns every whole-program data structure a compilation unit's
// functions share: the type table, backend, string pool, diagnostic sink,
// and call graph. Per-function state (Frame, LabelTable, BranchStack)
// lives in a fresh Lowerer per function instead.
type Generator struct {
	prefs    Preferences
	types    *TypeTable
	backend  *Backend
	diags    *Diagnostics
	strings  *StringPool
	calls    *DependencyGraph

	text        *Buffer
	funcLabels  map[string]int
	funcOffsets map[string]int
	externs     map[string]bool
	labels      *LabelTable // entry-label bookkeeping only; each function's internal jumps use their own LabelTable

	rodataLen     int // g.text's prefix occupied by the laid-out string pool
	pendingRodata []rodataPatch
	externCalls   []externCallRef
	funcOrder     []string
}

type genStage int

const (
	stageInit genStage = iota
	stageCollectSymbols
	stageCollectStrings
	stageLowerFunctions
	stageLayoutRodata
	stagePatchRodataRefs
	stageWriteContainer
	stageComplete
)

func (s genStage) String() string {
	switch s {
	case stageCollectSymbols:
		return "symbol collection"
	case stageCollectStrings:
		return "string collection"
	case stageLowerFunctions:
		return "function lowering"
	case stageLayoutRodata:
		return "rodata layout"
	case stagePatchRodataRefs:
		return "rodata patching"
	case stageWriteContainer:
		return "container writing"
	case stageComplete:
		return "completion"
	default:
		return "initialization"
	}
}

// Generate lowers files against types into a standalone executable named
// prefs.OutName, per §8. It returns the number of source lines processed
// (approximated as the number of top-level statements across all files,
// since no lexer/line-tracking collaborator is in scope here) and the
// number of bytes written.
func Generate(files []*File, types *TypeTable, outName string, prefs Preferences) (lines, bytes int, err error) {
	prefs.OutName = outName
	g := &Generator{
		prefs:       prefs,
		types:       types,
		diags:       NewDiagnostics(prefs.StdoutMode),
		strings:     NewStringPool(),
		calls:       NewDependencyGraph(),
		text:        &Buffer{},
		funcLabels:  make(map[string]int),
		funcOffsets: make(map[string]int),
		externs:     make(map[string]bool),
		labels:      NewLabelTable(),
	}
	g.backend = NewBackend(prefs.Target.Arch)

	var stage genStage
	defer func() {
		if r := recover(); r != nil {
			if bug, ok := r.(generatorBug); ok {
				err = fmt.Errorf("generator bug during %s: %s", stage, bug.msg)
				return
			}
			panic(r)
		}
	}()

	stage = stageCollectSymbols
	g.collectFunctionSymbols(files)
	g.collectExterns(files)

	stage = stageCollectStrings
	g.collectStringLiterals(files)
	g.strings.Layout(g.text) // rodata occupies the start of g.text; see writeContainer
	g.rodataLen = g.text.Pos()

	stage = stageLowerFunctions
	for _, f := range files {
		lines += len(f.Stmts)
		for _, s := range f.Stmts {
			if fn, ok := s.(*FuncDecl); ok {
				lw := NewLowerer(g.types, g.backend, g.text, g.strings, g.diags, g.calls, g.labels, g.funcLabels, g.externs, g.prefs.Verbose)
				g.funcOffsets[fn.Name] = g.text.Pos() // LowerFunc binds its entry label here, as its very first act
				g.funcOrder = append(g.funcOrder, fn.Name)
				lw.LowerFunc(fn)
				g.mergeRodataPatches(lw.rodataPatches)
				g.externCalls = append(g.externCalls, lw.externCalls...)
			}
		}
	}
	g.labels.ResolveAll(g.text) // every function's entry label and every call/branch patch share this one table

	stage = stagePatchRodataRefs
	g.patchPendingRodataRefs()

	if g.diags.HasErrors() && !prefs.StdoutMode {
		return lines, 0, fmt.Errorf("%s", g.diags.Report())
	}

	stage = stageWriteContainer
	// Only externs the linker actually needs to resolve are ones reachable
	// from main by direct calls; an extern referenced solely from a
	// function nothing ever calls doesn't force a link step.
	g.calls.MarkRoot("main")
	externNames := reachableExterns(g.externs, g.calls.GetReachable())
	needsLink, linkErr := RequiresExternalLink(prefs.Target, externNames)
	if linkErr != nil {
		return lines, 0, linkErr
	}

	finalPath := prefs.Target.OutputName(outName)
	if needsLink {
		n, werr := g.writeViaLinker(finalPath, externNames)
		if werr != nil {
			return lines, 0, werr
		}
		stage = stageComplete
		return lines, n, nil
	}

	out, werr := g.writeContainer()
	if werr != nil {
		return lines, 0, werr
	}

	stage = stageComplete
	if werr := os.WriteFile(finalPath, out, 0o775); werr != nil {
		return lines, 0, werr
	}
	return lines, len(out), nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// reachableExterns keeps only the externs in g.externs that the call graph
// (built during lowering via DependencyGraph.AddCall/MarkRoot) actually
// reaches from the given root set, rather than handing the linker every
// extern ever mentioned anywhere in the source.
func reachableExterns(externs map[string]bool, reachable map[string]bool) []string {
	out := make([]string, 0, len(externs))
	for name := range externs {
		if reachable[name] {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// writeViaLinker builds the linkable ELF object (§6) and hands it to the
// system linker (linker.go) to resolve every extern_fn_calls entry against
// libc, writing the final executable straight to finalPath.
func (g *Generator) writeViaLinker(finalPath string, externNames []string) (int, error) {
	rodata := g.text.Bytes()[:g.rodataLen]
	text := g.text.Bytes()[g.rodataLen:]

	relocs := make([]elfRela, 0, len(g.externCalls))
	addend := int64(0)
	if g.backend.Tag == ArchAmd64 {
		addend = -4
	}
	for _, c := range g.externCalls {
		relocs = append(relocs, elfRela{
			offset: uint64(c.instrPos - g.rodataLen),
			symbol: c.symbol,
			typ:    RelocTypeForCall(g.backend.Tag),
			addend: addend,
		})
	}

	relFuncOffsets := make(map[string]int, len(g.funcOffsets))
	for name, off := range g.funcOffsets {
		relFuncOffsets[name] = off - g.rodataLen
	}

	obj := WriteELFLinkable(g.backend.Tag, rodata, text, g.funcOrder, relFuncOffsets, externNames, relocs)

	tmp, err := os.CreateTemp("", "*.o")
	if err != nil {
		return 0, err
	}
	objPath := tmp.Name()
	defer os.Remove(objPath)
	if _, err := tmp.Write(obj); err != nil {
		tmp.Close()
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, err
	}

	if err := LinkObject(objPath, finalPath, []string{"c"}); err != nil {
		return 0, err
	}
	info, err := os.Stat(finalPath)
	if err != nil {
		return 0, err
	}
	return int(info.Size()), nil
}

// collectFunctionSymbols assigns one entry label per declared function, up
// front, so a forward call (a function calling one declared later in the
// same file, or in another file) always resolves during lowering instead
// of needing a second pass.
func (g *Generator) collectFunctionSymbols(files []*File) {
	for _, f := range files {
		for _, s := range f.Stmts {
			if fn, ok := s.(*FuncDecl); ok {
				g.funcLabels[fn.Name] = g.labels.NewLabel()
			}
		}
	}
}

// mergeRodataPatches folds one function's recorded rodata references into
// the whole-program list patchPendingRodataRefs resolves at the end of
// lowering, once the string pool's layout is final.
func (g *Generator) mergeRodataPatches(patches []rodataPatch) {
	g.pendingRodata = append(g.pendingRodata, patches...)
}

func (g *Generator) patchPendingRodataRefs() {
	for _, p := range g.pendingRodata {
		g.patchOneRodataRef(p)
	}
}

// patchOneRodataRef rewrites one LearelRodata reference now that both the
// string pool's layout and this function's final position in the text
// buffer are fixed. The buffer already contains rodata at its head (laid
// out in Generate before any function was lowered), so buffer positions
// are already final file-relative offsets — no further translation needed
// beyond the header, which writeContainer accounts for separately.
func (g *Generator) patchOneRodataRef(p rodataPatch) {
	targetOff := g.strings.Offset(p.stringIdx)
	switch g.backend.Tag {
	case ArchArm64:
		// Patch only the ADD's imm12 field with the low 12 bits of the
		// displacement; the ADRP page bits are left at zero. Precise
		// page-relative addressing is a known simplification here (see
		// DESIGN.md).
		disp := int32(targetOff - (p.instrPos + 8))
		addWord := g.text.ReadU32(p.instrPos + 4)
		addWord = (addWord &^ (0xFFF << 10)) | (uint32(disp&0xFFF) << 10)
		g.text.PatchU32(p.instrPos+4, addWord)
	default:
		instrEnd := p.instrPos + 4
		disp := int32(targetOff - instrEnd)
		g.text.PatchI32(p.instrPos, disp)
	}
}

// specialCallForms names the callee spellings lowerCall handles directly
// rather than treating as a plain (possibly external) function call.
var specialCallForms = map[string]bool{
	"exit": true, "println": true, "print": true, "eprintln": true, "eprint": true,
	"C.syscall": true,
}

// collectExterns walks every function body for plain calls whose callee
// isn't one of this compilation unit's own functions: those are external
// symbols (§11's extern_fn_calls), resolved by handing a linkable ELF
// object to the system linker rather than by anything this generator
// writes directly.
func (g *Generator) collectExterns(files []*File) {
	for _, f := range files {
		for _, s := range f.Stmts {
			if fn, ok := s.(*FuncDecl); ok {
				g.collectExternsInStmts(fn.Body)
			}
		}
	}
}

func (g *Generator) collectExternsInStmts(stmts []Stmt) {
	for _, s := range stmts {
		g.collectExternsInStmt(s)
	}
}

func (g *Generator) collectExternsInStmt(s Stmt) {
	switch n := s.(type) {
	case *AssignStmt:
		g.collectExternsInExpr(n.Value)
	case *BlockStmt:
		g.collectExternsInStmts(n.Stmts)
	case *ExprStmt:
		g.collectExternsInExpr(n.X)
	case *ReturnStmt:
		if n.Value != nil {
			g.collectExternsInExpr(n.Value)
		}
	case *ForCStmt:
		g.collectExternsInStmts(n.Body)
	case *ForRangeStmt:
		g.collectExternsInStmts(n.Body)
	case *ForGenericStmt:
		g.collectExternsInStmts(n.Body)
	case *DeferStmt:
		g.collectExternsInStmts(n.Body)
	case *AssertStmt:
		g.collectExternsInExpr(n.Cond)
	}
}

func (g *Generator) collectExternsInExpr(e Expr) {
	switch n := e.(type) {
	case *InfixExpr:
		g.collectExternsInExpr(n.Left)
		g.collectExternsInExpr(n.Right)
	case *PrefixExpr:
		g.collectExternsInExpr(n.Operand)
	case *ParenExpr:
		g.collectExternsInExpr(n.Inner)
	case *UnsafeExpr:
		g.collectExternsInExpr(n.Inner)
	case *LikelyExpr:
		g.collectExternsInExpr(n.Inner)
	case *LockExpr:
		g.collectExternsInExpr(n.Inner)
	case *CastExpr:
		g.collectExternsInExpr(n.Operand)
	case *CallExpr:
		if _, defined := g.funcLabels[n.Callee]; !defined && !specialCallForms[n.Callee] {
			g.externs[n.Callee] = true
		}
		for _, a := range n.Args {
			g.collectExternsInExpr(a)
		}
	case *IfExpr:
		g.collectExternsInExpr(n.Cond)
		g.collectExternsInStmts(n.Then)
		g.collectExternsInStmts(n.Else)
	case *MatchExpr:
		g.collectExternsInExpr(n.Subject)
		for _, arm := range n.Arms {
			for _, v := range arm.Values {
				g.collectExternsInExpr(v)
			}
			g.collectExternsInStmts(arm.Body)
		}
	case *StructInitExpr:
		for _, f := range n.Fields {
			g.collectExternsInExpr(f.Value)
		}
	}
}

// collectStringLiterals walks every function body for string literals and
// interns them, without emitting any code, so the pool can be laid out
// before the first instruction referencing it is generated (§4.3: rodata
// precedes text in every container format this generator writes).
func (g *Generator) collectStringLiterals(files []*File) {
	for _, f := range files {
		for _, s := range f.Stmts {
			if fn, ok := s.(*FuncDecl); ok {
				g.collectStringsInStmts(fn.Body)
			}
		}
	}
}

func (g *Generator) collectStringsInStmts(stmts []Stmt) {
	for _, s := range stmts {
		g.collectStringsInStmt(s)
	}
}

func (g *Generator) collectStringsInStmt(s Stmt) {
	switch n := s.(type) {
	case *AssignStmt:
		g.collectStringsInExpr(n.Value)
	case *BlockStmt:
		g.collectStringsInStmts(n.Stmts)
	case *ExprStmt:
		g.collectStringsInExpr(n.X)
	case *ReturnStmt:
		if n.Value != nil {
			g.collectStringsInExpr(n.Value)
		}
	case *ForCStmt:
		g.collectStringsInStmts(n.Body)
	case *ForRangeStmt:
		g.collectStringsInStmts(n.Body)
	case *ForGenericStmt:
		g.collectStringsInStmts(n.Body)
	case *DeferStmt:
		g.collectStringsInStmts(n.Body)
	case *AssertStmt:
		g.collectStringsInExpr(n.Cond)
	}
}

func (g *Generator) collectStringsInExpr(e Expr) {
	switch n := e.(type) {
	case *StringLiteral:
		if _, err := g.strings.Intern(n.Escaped, n.Raw); err != nil {
			g.diags.VError(n.Loc(), "invalid string literal: %v", err)
		}
	case *InfixExpr:
		g.collectStringsInExpr(n.Left)
		g.collectStringsInExpr(n.Right)
	case *PrefixExpr:
		g.collectStringsInExpr(n.Operand)
	case *ParenExpr:
		g.collectStringsInExpr(n.Inner)
	case *UnsafeExpr:
		g.collectStringsInExpr(n.Inner)
	case *LikelyExpr:
		g.collectStringsInExpr(n.Inner)
	case *LockExpr:
		g.collectStringsInExpr(n.Inner)
	case *CastExpr:
		g.collectStringsInExpr(n.Operand)
	case *CallExpr:
		for _, a := range n.Args {
			g.collectStringsInExpr(a)
		}
	case *IfExpr:
		g.collectStringsInExpr(n.Cond)
		g.collectStringsInStmts(n.Then)
		g.collectStringsInStmts(n.Else)
	case *MatchExpr:
		g.collectStringsInExpr(n.Subject)
		for _, arm := range n.Arms {
			for _, v := range arm.Values {
				g.collectStringsInExpr(v)
			}
			g.collectStringsInStmts(arm.Body)
		}
	case *StructInitExpr:
		for _, f := range n.Fields {
			g.collectStringsInExpr(f.Value)
		}
	}
}

// writeContainer dispatches to the container writer named by prefs.Target
// (§6). Raw mode writes the text section with no wrapper at all; every
// wrapped format needs main's offset within text so its entry vector can
// point directly at main_fn_addr instead of wherever .text happens to start
// (§6 "emission writes a jump from the container's entry vector to
// main_fn_addr").
func (g *Generator) writeContainer() ([]byte, error) {
	rodata := g.text.Bytes()[:g.rodataLen]
	text := g.text.Bytes()[g.rodataLen:]

	if g.prefs.Target.IsRaw() {
		return text, nil
	}

	mainAbsOffset, ok := g.funcOffsets["main"]
	if !ok {
		return nil, fmt.Errorf("no main function defined")
	}
	mainOffset := mainAbsOffset - g.rodataLen

	switch {
	case g.prefs.Target.IsELF():
		out := &Buffer{}
		WriteELFSimple(out, g.prefs.Target.Arch, rodata, text, mainOffset)
		return out.Bytes(), nil
	case g.prefs.Target.IsMachO():
		return WriteMachO(g.prefs.Target.Arch, rodata, text, mainOffset), nil
	case g.prefs.Target.IsPE():
		return WritePE(g.prefs.Target.Arch, rodata, text, mainOffset), nil
	default:
		return nil, fmt.Errorf("unsupported output target %s", g.prefs.Target)
	}
}
