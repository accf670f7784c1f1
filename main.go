// main.go - CLI entry point
//
// Grounded on the teacher's main.go (flag.Parse driving a single Compile
// call) but trimmed down: the lexer/parser/typechecker are out-of-scope
// collaborators here (§1), so this driver's only job is resolving
// Preferences (config.go) and handing already-built *File ASTs to
// Generate. Since no parser is wired up, -demo builds one of a handful of
// canned programs in-process; a real frontend would otherwise populate the
// []*File slice passed to Generate.
package main

import (
	"fmt"
	"os"
)

const versionString = "natgen 0.1.0"

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-V" || os.Args[1] == "-version" || os.Args[1] == "--version") {
		fmt.Println(versionString)
		return
	}

	args := os.Args[1:]
	demoName := ""
	var filtered []string
	for i := 0; i < len(args); i++ {
		if args[i] == "-demo" && i+1 < len(args) {
			demoName = args[i+1]
			i++
			continue
		}
		filtered = append(filtered, args[i])
	}

	prefs, outName, sourcePaths, err := ResolvePreferences(filtered)
	if err != nil && demoName == "" {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var files []*File
	if demoName != "" {
		demo, ok := demoPrograms[demoName]
		if !ok {
			fmt.Fprintf(os.Stderr, "unknown -demo program %q (known: hello, arith, loop)\n", demoName)
			os.Exit(1)
		}
		files = []*File{demo()}
	} else {
		fmt.Fprintf(os.Stderr, "natgen: no source parser is wired up; pass -demo <hello|arith|loop> to exercise the backend directly (source files requested: %v)\n", sourcePaths)
		os.Exit(1)
	}

	types := NewTypeTable()
	lines, bytes, err := Generate(files, types, outName, prefs)
	if err != nil {
		fmt.Fprintln(os.Stderr, "natgen:", err)
		os.Exit(1)
	}
	if prefs.Verbose {
		fmt.Fprintf(os.Stderr, "natgen: wrote %s (%d bytes from %d lines)\n", prefs.Target.OutputName(outName), bytes, lines)
	}
}
