package main

import (
	"bytes"
	"debug/pe"
	"testing"
)

func TestWritePEParsesWithDebugPE(t *testing.T) {
	raw := WritePE(ArchAmd64, []byte("hi\x00"), []byte{0x90, 0x90, 0xc3}, 0)
	f, err := pe.NewFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("debug/pe rejected generated image: %v", err)
	}
	defer f.Close()

	if f.Machine != pe.IMAGE_FILE_MACHINE_AMD64 {
		t.Errorf("Machine = %#x, want IMAGE_FILE_MACHINE_AMD64", f.Machine)
	}
	if len(f.Sections) != 2 {
		t.Fatalf("NumberOfSections = %d, want 2", len(f.Sections))
	}
	if f.Sections[0].Name != ".text" {
		t.Errorf("section[0].Name = %q, want .text", f.Sections[0].Name)
	}
	if f.Sections[1].Name != ".rdata" {
		t.Errorf("section[1].Name = %q, want .rdata", f.Sections[1].Name)
	}
}

func TestWritePEArm64MachineType(t *testing.T) {
	raw := WritePE(ArchArm64, nil, []byte{0xc0, 0x03, 0x5f, 0xd6}, 0)
	f, err := pe.NewFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("debug/pe rejected arm64 image: %v", err)
	}
	defer f.Close()
	if f.Machine != pe.IMAGE_FILE_MACHINE_ARM64 {
		t.Errorf("Machine = %#x, want IMAGE_FILE_MACHINE_ARM64", f.Machine)
	}
}

// TestWritePEEntryPointHonorsMainOffset is a regression test for the same
// entry-vector bug TestWriteELFSimpleEntryPointHonorsMainOffset documents,
// checked via debug/pe's OptionalHeader64.AddressOfEntryPoint.
func TestWritePEEntryPointHonorsMainOffset(t *testing.T) {
	text := []byte{0x90, 0x90, 0x90, 0xc3}
	const mainOffset = 3
	raw := WritePE(ArchAmd64, []byte("hi\x00"), text, mainOffset)
	f, err := pe.NewFile(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("debug/pe rejected generated image: %v", err)
	}
	defer f.Close()

	opt, ok := f.OptionalHeader.(*pe.OptionalHeader64)
	if !ok {
		t.Fatalf("OptionalHeader is %T, want *pe.OptionalHeader64", f.OptionalHeader)
	}
	const textVirtAddr = 0x1000 // peSectionAlign
	want := uint32(textVirtAddr + mainOffset)
	if opt.AddressOfEntryPoint != want {
		t.Errorf("AddressOfEntryPoint = %#x, want %#x (start of .text + mainOffset)", opt.AddressOfEntryPoint, want)
	}
}
