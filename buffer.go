// buffer.go - append-only machine code buffer with random-access patching (C1)
//
// Grounded on the teacher's BufferWrapper (emit.go) and SafeBuffer
// (safe_buffer.go): little-endian emit at the append cursor, explicit
// write-back at a previously returned position. Endianness is fixed little
// for both target ISAs (§4.1); there is no bounds check beyond the
// underlying slice — an out-of-range patch is a programmer error and panics
// like any other out-of-range slice access.
package main

import "encoding/binary"

// Buffer is the append-only code/data buffer described in §3: once a
// position is returned by Pos, the byte at that position may only be
// overwritten by an explicit Patch* call of a known width.
type Buffer struct {
	data []byte
}

// Pos returns the current append cursor — the position the next Append*
// call will write to, and the only kind of value patch sites are allowed to
// remember (§3 "Code buffer" invariant).
func (b *Buffer) Pos() int { return len(b.data) }

func (b *Buffer) Len() int { return len(b.data) }

func (b *Buffer) Bytes() []byte { return b.data }

// AppendByte appends a single byte and returns its position.
func (b *Buffer) AppendByte(v byte) int {
	pos := len(b.data)
	b.data = append(b.data, v)
	return pos
}

// AppendBytes appends a raw byte sequence and returns the position of its
// first byte.
func (b *Buffer) AppendBytes(bs []byte) int {
	pos := len(b.data)
	b.data = append(b.data, bs...)
	return pos
}

// AppendN appends n copies of v (used for header padding).
func (b *Buffer) AppendN(v byte, n int) int {
	pos := len(b.data)
	for i := 0; i < n; i++ {
		b.data = append(b.data, v)
	}
	return pos
}

// AppendU16/U32/U64 append a little-endian word and return its position.
func (b *Buffer) AppendU16(v uint16) int {
	pos := len(b.data)
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
	return pos
}

func (b *Buffer) AppendU32(v uint32) int {
	pos := len(b.data)
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
	return pos
}

func (b *Buffer) AppendU64(v uint64) int {
	pos := len(b.data)
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	b.data = append(b.data, tmp[:]...)
	return pos
}

// AppendI32 appends a signed 32-bit displacement (rel32 placeholders and
// patched call/jump offsets are most often written through this).
func (b *Buffer) AppendI32(v int32) int { return b.AppendU32(uint32(v)) }

// AppendStringNUL appends bytes followed by a single NUL terminator.
func (b *Buffer) AppendStringNUL(s string) int {
	pos := len(b.data)
	b.data = append(b.data, s...)
	b.data = append(b.data, 0)
	return pos
}

// AppendStringPadded appends s truncated or zero-padded to exactly width
// bytes — used for fixed-width header fields such as PE section names.
func (b *Buffer) AppendStringPadded(s string, width int) int {
	pos := len(b.data)
	bs := make([]byte, width)
	copy(bs, s)
	b.data = append(b.data, bs...)
	return pos
}

// ReadU32 reads a little-endian 32-bit word at offset, per §4.1.
func (b *Buffer) ReadU32(offset int) uint32 {
	return binary.LittleEndian.Uint32(b.data[offset : offset+4])
}

// PatchU16/U32/U64 overwrite a previously-emitted word at offset. offset
// must be a position earlier returned by an Append* call on this buffer.
func (b *Buffer) PatchU16(offset int, v uint16) {
	binary.LittleEndian.PutUint16(b.data[offset:offset+2], v)
}

func (b *Buffer) PatchU32(offset int, v uint32) {
	binary.LittleEndian.PutUint32(b.data[offset:offset+4], v)
}

func (b *Buffer) PatchI32(offset int, v int32) {
	b.PatchU32(offset, uint32(v))
}

func (b *Buffer) PatchU64(offset int, v uint64) {
	binary.LittleEndian.PutUint64(b.data[offset:offset+8], v)
}

// PatchBytes overwrites width bytes at offset verbatim. Used when a patch
// width isn't a plain power-of-two word (e.g. a 1-byte rel8 displacement).
func (b *Buffer) PatchBytes(offset int, bs []byte) {
	copy(b.data[offset:offset+len(bs)], bs)
}
