// errors.go - diagnostic sink (C11)
//
// Three kinds, per §7/§9: a generator bug (n_error) is an AST construct the
// backend refuses to lower and is always fatal; a user-visible error
// (v_error) is located in source but not lowerable, fatal only in
// stdout-mode; a warning never halts compilation.
package main

import (
	"fmt"
	"os"
	"strings"
)

// Severity classifies a diagnostic.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
	SeverityFatal
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal error"
	default:
		return "unknown"
	}
}

// SourceLocation is a position in the original source, carried through the
// AST so diagnostics can point back at it.
type SourceLocation struct {
	File   string
	Line   int
	Column int
}

func (loc SourceLocation) String() string {
	if loc.File == "" && loc.Line == 0 {
		return "<generator>"
	}
	if loc.File == "" {
		return fmt.Sprintf("%d:%d", loc.Line, loc.Column)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Line, loc.Column)
}

// Diagnostic is a single collected message.
type Diagnostic struct {
	Severity Severity
	Message  string
	Location SourceLocation
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Location, d.Severity, d.Message)
}

// generatorBug is a panic payload for n_error: an internal invariant the AST
// violated that should never happen given a typechecked input. It unwinds
// through Generate, which recovers it at the top level.
type generatorBug struct{ msg string }

func (g generatorBug) Error() string { return g.msg }

func newGeneratorBug(format string, args ...any) error {
	return generatorBug{msg: fmt.Sprintf(format, args...)}
}

// nError raises a generator bug. It always panics; callers use it as the
// tail of a function that has no sensible fallthrough ("should never
// happen" paths), matching §4.11/§7's n_error.
func nError(format string, args ...any) {
	panic(generatorBug{msg: fmt.Sprintf(format, args...)})
}

// Diagnostics is the shared message channel described in §2/C11: every
// component that can fail reports through the Generator's single sink
// instead of returning ad-hoc errors, so the driver sees one coherent
// warning/error list at the end of a build.
type Diagnostics struct {
	warnings []Diagnostic
	errors   []Diagnostic
	// StdoutMode mirrors Preferences.OutputMode == stdout: a v_error
	// triggers immediate termination instead of being merely collected.
	StdoutMode bool
}

func NewDiagnostics(stdoutMode bool) *Diagnostics {
	return &Diagnostics{StdoutMode: stdoutMode}
}

// Warning appends a non-fatal pedantic note (§7). Optionally printed to
// stderr immediately when running in stdout-mode, matching the teacher's
// convention of surfacing warnings as they're produced rather than only at
// the end of a build.
func (d *Diagnostics) Warning(loc SourceLocation, format string, args ...any) {
	diag := Diagnostic{Severity: SeverityWarning, Message: fmt.Sprintf(format, args...), Location: loc}
	d.warnings = append(d.warnings, diag)
	if d.StdoutMode {
		fmt.Fprintln(os.Stderr, diag.String())
	}
}

// VError records a user-visible error: accepted by the AST but not
// lowerable (§7). In stdout-mode this exits the process immediately;
// otherwise it is collected for the driver to report.
func (d *Diagnostics) VError(loc SourceLocation, format string, args ...any) {
	diag := Diagnostic{Severity: SeverityError, Message: fmt.Sprintf(format, args...), Location: loc}
	d.errors = append(d.errors, diag)
	if d.StdoutMode {
		fmt.Fprintln(os.Stderr, diag.String())
		os.Exit(1)
	}
}

func newUserError(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

func (d *Diagnostics) HasErrors() bool { return len(d.errors) > 0 }

func (d *Diagnostics) Errors() []Diagnostic { return d.errors }

func (d *Diagnostics) Warnings() []Diagnostic { return d.warnings }

// Report renders every collected diagnostic, errors first, for a driver
// that isn't running in stdout-mode.
func (d *Diagnostics) Report() string {
	var sb strings.Builder
	for _, e := range d.errors {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	for _, w := range d.warnings {
		sb.WriteString(w.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
