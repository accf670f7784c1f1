package main

import (
	"bytes"
	"debug/elf"
	"testing"
)

func TestWriteELFSimpleMagicAndClass(t *testing.T) {
	out := &Buffer{}
	WriteELFSimple(out, ArchAmd64, []byte("hi\x00"), []byte{0x90, 0x90}, 0)
	bs := out.Bytes()
	if string(bs[0:4]) != "\x7fELF" {
		t.Fatalf("magic = %x, want 7f 45 4c 46", bs[0:4])
	}
	if bs[4] != 2 {
		t.Errorf("EI_CLASS = %d, want 2 (ELFCLASS64)", bs[4])
	}
	if bs[5] != 1 {
		t.Errorf("EI_DATA = %d, want 1 (ELFDATA2LSB)", bs[5])
	}
}

func TestWriteELFSimpleEntryPointAfterHeaderAndRodata(t *testing.T) {
	out := &Buffer{}
	rodata := []byte("hello\x00")
	WriteELFSimple(out, ArchAmd64, rodata, []byte{0x90}, 0)
	bs := out.Bytes()
	entry := leU64(bs[24:32])
	want := uint64(elfBaseAddr + elfHeaderSize + progHeaderSize + len(rodata))
	if entry != want {
		t.Errorf("e_entry = %#x, want %#x", entry, want)
	}
}

// TestWriteELFSimpleEntryPointHonorsMainOffset is a regression test for the
// entry-vector bug found while reviewing this package: the entry point
// always pointed at the start of .text regardless of where main actually
// landed within it, so a program whose first lowered function wasn't main
// would start executing the wrong code.
func TestWriteELFSimpleEntryPointHonorsMainOffset(t *testing.T) {
	out := &Buffer{}
	rodata := []byte("hello\x00")
	text := []byte{0x90, 0x90, 0x90, 0xc3} // some earlier function, then main at offset 3
	const mainOffset = 3
	WriteELFSimple(out, ArchAmd64, rodata, text, mainOffset)
	bs := out.Bytes()
	entry := leU64(bs[24:32])
	want := uint64(elfBaseAddr + elfHeaderSize + progHeaderSize + len(rodata) + mainOffset)
	if entry != want {
		t.Errorf("e_entry = %#x, want %#x (start of text + mainOffset)", entry, want)
	}
}

func TestWriteELFLinkableParsesWithDebugElf(t *testing.T) {
	text := []byte{0xe8, 0, 0, 0, 0, 0xc3} // call rel32; ret
	relocs := []elfRela{{offset: 1, symbol: "puts", typ: rX8664PLT32, addend: -4}}
	raw := WriteELFLinkable(ArchAmd64, []byte("data\x00"), text, []string{"main"},
		map[string]int{"main": 0}, []string{"puts"}, relocs)

	f, err := elf.NewFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("debug/elf rejected generated object: %v", err)
	}
	defer f.Close()

	if f.Type != elf.ET_REL {
		t.Errorf("e_type = %v, want ET_REL", f.Type)
	}
	if f.Machine != elf.EM_X86_64 {
		t.Errorf("e_machine = %v, want EM_X86_64", f.Machine)
	}

	syms, err := f.Symbols()
	if err != nil {
		t.Fatalf("Symbols(): %v", err)
	}
	var sawMain, sawPuts bool
	for _, s := range syms {
		switch s.Name {
		case "main":
			sawMain = true
		case "puts":
			sawPuts = true
			if s.Section != elf.SHN_UNDEF {
				t.Errorf("puts section = %v, want SHN_UNDEF", s.Section)
			}
		}
	}
	if !sawMain || !sawPuts {
		t.Fatalf("symtab missing expected entries: main=%v puts=%v", sawMain, sawPuts)
	}

	rels, err := f.Section(".rela.text").Data()
	if err != nil || len(rels) != 24 {
		t.Fatalf(".rela.text data = %d bytes, err=%v, want 24 bytes", len(rels), err)
	}
}

func TestRelocTypeForCallPerArch(t *testing.T) {
	if got := RelocTypeForCall(ArchAmd64); got != rX8664PLT32 {
		t.Errorf("RelocTypeForCall(amd64) = %d, want %d", got, rX8664PLT32)
	}
	if got := RelocTypeForCall(ArchArm64); got != rAarch64Call26 {
		t.Errorf("RelocTypeForCall(arm64) = %d, want %d", got, rAarch64Call26)
	}
}

func leU64(b []byte) uint64 {
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
