// config.go - resolves Preferences from flags and environment (C2)
//
// Grounded on the teacher's CLI flag parsing (cli.go's CommandContext) for
// the flag surface, and on github.com/xyproto/env/v2 for the environment-
// variable override layer the teacher's go.mod already carries but never
// wires up anywhere in its own CLI.
package main

import (
	"flag"
	"fmt"

	env "github.com/xyproto/env/v2"
)

// ResolvePreferences builds a Preferences value from command-line args,
// falling back to NATGEN_* environment variables, and finally to the
// host's own GOARCH/GOOS-equivalent defaults (amd64/linux) when neither is
// set. Flags always win over environment variables.
func ResolvePreferences(args []string) (prefs Preferences, outName string, sourcePaths []string, err error) {
	fs := flag.NewFlagSet("natgen", flag.ContinueOnError)
	archFlag := fs.String("arch", "", "target architecture: amd64, arm64 (default: $NATGEN_ARCH or amd64)")
	osFlag := fs.String("os", "", "target OS: linux, macos, windows, raw (default: $NATGEN_OS or linux)")
	outFlag := fs.String("o", "", "output path (default: $NATGEN_OUT or a.out)")
	verboseFlag := fs.Bool("v", env.Bool("NATGEN_VERBOSE"), "verbose diagnostics")
	stdoutFlag := fs.Bool("stdout-mode", false, "treat the first v_error as immediately fatal")

	if err := fs.Parse(args); err != nil {
		return Preferences{}, "", nil, err
	}

	archName := *archFlag
	if archName == "" {
		archName = env.Str("NATGEN_ARCH", "amd64")
	}
	arch, err := ParseArch(archName)
	if err != nil {
		return Preferences{}, "", nil, err
	}

	osName := *osFlag
	if osName == "" {
		osName = env.Str("NATGEN_OS", "linux")
	}
	targetOS, err := ParseOS(osName)
	if err != nil {
		return Preferences{}, "", nil, err
	}

	outName = *outFlag
	if outName == "" {
		outName = env.Str("NATGEN_OUT", "a.out")
	}

	if fs.NArg() == 0 {
		return Preferences{}, "", nil, fmt.Errorf("usage: natgen [flags] <source-file>...")
	}

	prefs = Preferences{
		Target:     Target{Arch: arch, OS: targetOS},
		Verbose:    *verboseFlag,
		StdoutMode: *stdoutFlag,
	}
	return prefs, outName, fs.Args(), nil
}
