// container_pe.go - PE container writer (C9)
//
// Grounded on the teacher's pe.go (DOS header/stub, COFF header, PE32+
// optional header field layout, section header layout) but trimmed to a
// no-import, two-section image: .text (code) and .rdata (string pool).
// External symbol resolution through an import table belongs to the
// linking path that C10 declines for Windows (§11 Design Notes).
package main

const (
	peDosHeaderSize      = 64
	peDosStubSize        = 128
	peSignatureSize      = 4
	peCoffHeaderSize     = 20
	peOptionalHeaderSize = 240 // PE32+
	peSectionHeaderSize  = 40

	peImageBase    = 0x140000000
	peSectionAlign = 0x1000
	peFileAlign    = 0x200

	peScnMemExecute  = 0x20000000
	peScnMemRead     = 0x40000000
	peScnMemWrite    = 0x80000000
	peScnCntCode     = 0x00000020
	peScnCntInitData = 0x00000040

	peMachineAmd64 = 0x8664
	peMachineArm64 = 0xAA64
)

func peAlignUp(v, align uint32) uint32 {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

func peMachineType(arch Arch) uint16 {
	if arch == ArchArm64 {
		return peMachineArm64
	}
	return peMachineAmd64
}

// WritePE emits a minimal PE32+ console executable: DOS header and stub,
// PE signature, COFF header, PE32+ optional header, and two sections
// (.text, .rdata), no import table (§6, §11). mainOffset is main's own
// offset within text; AddressOfEntryPoint is an RVA (already relative to
// the image base), so the same TextOffsetToVirtAddr arithmetic the ELF/
// Mach-O writers use applies with a zero base.
func WritePE(arch Arch, rodata, text []byte, mainOffset int) []byte {
	const numSections = 2

	headersSize := peAlignUp(peDosHeaderSize+peDosStubSize+peSignatureSize+peCoffHeaderSize+
		peOptionalHeaderSize+numSections*peSectionHeaderSize, peFileAlign)

	textVirtAddr := peSectionAlign
	textRawAddr := int(headersSize)
	textRawSize := int(peAlignUp(uint32(len(text)), peFileAlign))

	rdataVirtAddr := textVirtAddr + int(peAlignUp(uint32(len(text)), peSectionAlign))
	rdataRawAddr := textRawAddr + textRawSize
	rdataRawSize := int(peAlignUp(uint32(len(rodata)), peFileAlign))

	imageSize := peAlignUp(uint32(rdataVirtAddr)+peAlignUp(uint32(len(rodata)), peSectionAlign), peSectionAlign)
	addrs := NewAddressSpace(0, 0, VirtualAddr(textVirtAddr))
	entryRVA := uint32(addrs.TextOffsetToVirtAddr(TextOffset(mainOffset)))

	out := &Buffer{}

	// DOS header: just the magic and the e_lfanew pointer to the PE header.
	out.AppendU16(0x5A4D)
	out.AppendN(0, 58)
	out.AppendU32(peDosHeaderSize + peDosStubSize)

	stubMsg := []byte("This program requires Windows.\r\n$")
	out.AppendBytes(stubMsg)
	out.AppendN(0, peDosStubSize-len(stubMsg))

	out.AppendU32(0x00004550) // "PE\0\0"

	// COFF file header.
	out.AppendU16(peMachineType(arch))
	out.AppendU16(numSections)
	out.AppendU32(0) // TimeDateStamp: fixed for reproducible builds
	out.AppendU32(0) // symbol table pointer (deprecated)
	out.AppendU32(0) // number of symbols (deprecated)
	out.AppendU16(peOptionalHeaderSize)
	out.AppendU16(0x0022) // EXECUTABLE_IMAGE | LARGE_ADDRESS_AWARE

	// Optional header (PE32+).
	out.AppendU16(0x020B)
	out.AppendByte(1) // major linker version
	out.AppendByte(0) // minor linker version
	out.AppendU32(uint32(textRawSize))
	out.AppendU32(uint32(rdataRawSize))
	out.AppendU32(0) // size of uninitialized data
	out.AppendU32(entryRVA)
	out.AppendU32(uint32(textVirtAddr))

	out.AppendU64(peImageBase)
	out.AppendU32(peSectionAlign)
	out.AppendU32(peFileAlign)
	out.AppendU16(6) // major OS version
	out.AppendU16(0)
	out.AppendU16(0) // major image version
	out.AppendU16(0)
	out.AppendU16(6) // major subsystem version
	out.AppendU16(0)
	out.AppendU32(0) // Win32 version (reserved)
	out.AppendU32(imageSize)
	out.AppendU32(headersSize)
	out.AppendU32(0) // checksum
	out.AppendU16(3) // IMAGE_SUBSYSTEM_WINDOWS_CUI
	out.AppendU16(0x8120)
	out.AppendU64(0x100000)
	out.AppendU64(0x1000)
	out.AppendU64(0x100000)
	out.AppendU64(0x1000)
	out.AppendU32(0)  // loader flags
	out.AppendU32(16) // number of data directories
	for i := 0; i < 16; i++ {
		out.AppendU64(0) // no import/export/etc directories
	}

	writeSectionHeader := func(name string, virtSize, virtAddr, rawSize, rawAddr, characteristics uint32) {
		out.AppendStringPadded(name, 8)
		out.AppendU32(virtSize)
		out.AppendU32(virtAddr)
		out.AppendU32(rawSize)
		out.AppendU32(rawAddr)
		out.AppendU32(0) // pointer to relocations
		out.AppendU32(0) // pointer to line numbers
		out.AppendU16(0) // number of relocations
		out.AppendU16(0) // number of line numbers
		out.AppendU32(characteristics)
	}
	writeSectionHeader(".text", uint32(len(text)), uint32(textVirtAddr), uint32(textRawSize), uint32(textRawAddr),
		peScnCntCode|peScnMemExecute|peScnMemRead)
	writeSectionHeader(".rdata", uint32(len(rodata)), uint32(rdataVirtAddr), uint32(rdataRawSize), uint32(rdataRawAddr),
		peScnCntInitData|peScnMemRead)

	// Pad up to the end of headers, then lay out each section at its file
	// offset with file-alignment padding between them.
	out.AppendN(0, int(headersSize)-out.Len())
	out.AppendBytes(text)
	out.AppendN(0, textRawSize-len(text))
	out.AppendBytes(rodata)
	out.AppendN(0, rdataRawSize-len(rodata))

	return out.Bytes()
}
