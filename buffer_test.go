package main

import "testing"

func TestBufferAppendAndPos(t *testing.T) {
	b := &Buffer{}
	if b.Pos() != 0 {
		t.Fatalf("expected empty buffer at position 0, got %d", b.Pos())
	}
	p1 := b.AppendByte(0x90)
	p2 := b.AppendU32(0xdeadbeef)
	if p1 != 0 {
		t.Errorf("first append position = %d, want 0", p1)
	}
	if p2 != 1 {
		t.Errorf("second append position = %d, want 1", p2)
	}
	if b.Pos() != 5 {
		t.Errorf("final position = %d, want 5", b.Pos())
	}
}

func TestBufferLittleEndian(t *testing.T) {
	b := &Buffer{}
	b.AppendU32(0x01020304)
	want := []byte{0x04, 0x03, 0x02, 0x01}
	if got := b.Bytes(); string(got) != string(want) {
		t.Errorf("AppendU32 bytes = %x, want %x", got, want)
	}
}

func TestBufferPatchI32(t *testing.T) {
	b := &Buffer{}
	b.AppendByte(0xe9) // jmp opcode placeholder
	pos := b.AppendI32(0)
	b.PatchI32(pos, -42)
	if got := int32(b.ReadU32(pos)); got != -42 {
		t.Errorf("patched displacement = %d, want -42", got)
	}
}

func TestBufferPatchDoesNotDisturbSurroundingBytes(t *testing.T) {
	b := &Buffer{}
	b.AppendByte(0xaa)
	pos := b.AppendU32(0)
	b.AppendByte(0xbb)
	b.PatchU32(pos, 0x11223344)
	bs := b.Bytes()
	if bs[0] != 0xaa || bs[len(bs)-1] != 0xbb {
		t.Fatalf("patch disturbed neighboring bytes: %x", bs)
	}
}

func TestBufferAppendStringNUL(t *testing.T) {
	b := &Buffer{}
	pos := b.AppendStringNUL("hi")
	bs := b.Bytes()
	if string(bs[pos:pos+2]) != "hi" || bs[pos+2] != 0 {
		t.Errorf("AppendStringNUL = %x, want \"hi\\x00\"", bs[pos:])
	}
}

func TestBufferAppendStringPaddedTruncatesAndZeroPads(t *testing.T) {
	b := &Buffer{}
	b.AppendStringPadded("toolongname", 4)
	b.AppendStringPadded("ok", 4)
	bs := b.Bytes()
	if string(bs[0:4]) != "tool" {
		t.Errorf("truncated field = %q, want %q", bs[0:4], "tool")
	}
	if bs[4] != 'o' || bs[5] != 'k' || bs[6] != 0 || bs[7] != 0 {
		t.Errorf("padded field = %x, want ok\\x00\\x00", bs[4:8])
	}
}
