package main

import (
	"bytes"
	"debug/macho"
	"encoding/binary"
	"testing"
)

func TestWriteMachOParsesWithDebugMacho(t *testing.T) {
	raw := WriteMachO(ArchAmd64, []byte("hi\x00"), []byte{0x90, 0x90, 0xc3}, 0)
	f, err := macho.NewFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("debug/macho rejected generated image: %v", err)
	}
	defer f.Close()

	if f.Magic != machMagic64 {
		t.Errorf("magic = %#x, want %#x", f.Magic, machMagic64)
	}
	if f.Type != macho.TypeExec {
		t.Errorf("filetype = %v, want TypeExec", f.Type)
	}
	if f.Cpu != macho.CpuAmd64 {
		t.Errorf("cputype = %v, want CpuAmd64", f.Cpu)
	}

	var sawText bool
	for _, sec := range f.Sections {
		if sec.Name == "__text" {
			sawText = true
			if sec.Seg != "__TEXT" {
				t.Errorf("__text segname = %q, want __TEXT", sec.Seg)
			}
		}
	}
	if !sawText {
		t.Fatal("no __text section found")
	}
}

func TestWriteMachOArm64CPUType(t *testing.T) {
	raw := WriteMachO(ArchArm64, nil, []byte{0xc0, 0x03, 0x5f, 0xd6}, 0)
	f, err := macho.NewFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("debug/macho rejected arm64 image: %v", err)
	}
	defer f.Close()
	if f.Cpu != macho.CpuArm64 {
		t.Errorf("cputype = %v, want CpuArm64", f.Cpu)
	}
}

// TestWriteMachOEntryPointHonorsMainOffset is a regression test for the
// same entry-vector bug TestWriteELFSimpleEntryPointHonorsMainOffset
// documents, checked by picking the LC_UNIXTHREAD load command out of
// f.Loads and reading the rip slot machoWriteThreadCommand wrote into it
// (debug/macho doesn't parse LC_UNIXTHREAD into its own Load type, so this
// reads the raw command bytes the same way the writer laid them out).
func TestWriteMachOEntryPointHonorsMainOffset(t *testing.T) {
	rodata := []byte("hi\x00")
	text := []byte{0x90, 0x90, 0x90, 0xc3}
	const mainOffset = 3
	raw := WriteMachO(ArchAmd64, rodata, text, mainOffset)
	f, err := macho.NewFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("debug/macho rejected generated image: %v", err)
	}
	defer f.Close()

	var threadCmd []byte
	for _, l := range f.Loads {
		raw := l.Raw()
		if len(raw) >= 4 && binary.LittleEndian.Uint32(raw[0:4]) == lcUnixthread {
			threadCmd = raw
		}
	}
	if threadCmd == nil {
		t.Fatal("no LC_UNIXTHREAD load command found")
	}
	const ripOffset = 8 + 8 + 16*8 // header + flavor/count + regs[0:ripIndex]
	entry := binary.LittleEndian.Uint64(threadCmd[ripOffset : ripOffset+8])

	const baseAddr = 0x100000000
	segCmdSize := 72 + 80
	threadCmdSize := 8 + 8 + 42*8
	headerSize := 32
	fileOff := uint64(headerSize + segCmdSize + threadCmdSize)
	want := baseAddr + fileOff + uint64(len(rodata)) + uint64(mainOffset)
	if entry != want {
		t.Errorf("entry = %#x, want %#x (start of text + mainOffset)", entry, want)
	}
}
