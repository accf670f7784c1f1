// container_elf.go - ELF container writer (C9)
//
// Grounded on the teacher's elf.go (header layout, base address/page size
// constants), elf_sections.go (section/symbol/relocation type constants)
// and elf_dynamic.go (PT_LOAD layout for a statically-linked position-
// independent image). Two variants per §6: Simple is a single-segment,
// no-relocation executable; Linkable is a relocatable object file carrying
// .rela.text, .symtab and .strtab for every extern_fn_calls entry, meant to
// be handed to the system linker (C10).
package main

import "encoding/binary"

const (
	elfHeaderSize  = 64
	progHeaderSize = 56
	sectionHeaderSize = 64

	elfBaseAddr = 0x400000
	elfPageSize = 0x1000

	shtNull     = 0
	shtProgbits = 1
	shtSymtab   = 2
	shtStrtab   = 3
	shtRela     = 4

	shfWrite     = 0x1
	shfAlloc     = 0x2
	shfExecinstr = 0x4

	stbLocal  = 0
	stbGlobal = 1
	sttNotype = 0
	sttFunc   = 2

	rX8664PC32    = 2
	rX8664PLT32   = 4
	rAarch64Call26 = 283
)

// elfSymbol is one entry destined for .symtab.
type elfSymbol struct {
	name  uint32
	info  byte
	shndx uint16
	value uint64
	size  uint64
}

// elfRela is one entry destined for .rela.text. Symbol names the target by
// name rather than by symtab index: the index isn't known until
// WriteELFLinkable has finished assigning one to every defined/extern
// symbol, so resolution happens inside WriteELFLinkable itself.
type elfRela struct {
	offset uint64
	symbol string
	typ    uint32
	addend int64
}

func elfSymInfo(binding, typ byte) byte { return (binding << 4) | (typ & 0xf) }

// WriteELFSimple emits a single-segment ET_EXEC image with no section
// headers and no relocations (§6 "simple" variant): text immediately
// follows .rodata, loaded at a fixed base address, entry point computed
// from the header and rodata sizes plus mainOffset, main's own offset
// within text, so the entry vector lands on main_fn_addr rather than
// whichever function happened to be lowered first (§6).
func WriteELFSimple(out *Buffer, arch Arch, rodata, text []byte, mainOffset int) {
	headerSize := elfHeaderSize + progHeaderSize
	addrs := NewAddressSpace(VirtualAddr(elfBaseAddr), FileOffset(headerSize+len(rodata)),
		VirtualAddr(elfBaseAddr+headerSize+len(rodata)))
	entry := uint64(addrs.TextOffsetToVirtAddr(TextOffset(mainOffset)))
	fileSize := uint64(headerSize + len(rodata) + len(text))

	out.AppendByte(0x7f)
	out.AppendByte('E')
	out.AppendByte('L')
	out.AppendByte('F')
	out.AppendByte(2) // ELFCLASS64
	out.AppendByte(1) // ELFDATA2LSB
	out.AppendByte(1) // EV_CURRENT
	out.AppendByte(3) // ELFOSABI_LINUX (GNU)
	out.AppendN(0, 8) // ABI version + padding

	out.AppendU16(2) // ET_EXEC
	out.AppendU16(ELFMachineType(arch))
	out.AppendU32(1) // EV_CURRENT

	out.AppendU64(entry)
	out.AppendU64(elfHeaderSize)    // e_phoff
	out.AppendU64(0)                // e_shoff: no section headers
	out.AppendU32(0)                // e_flags
	out.AppendU16(elfHeaderSize)
	out.AppendU16(progHeaderSize)
	out.AppendU16(1) // e_phnum
	out.AppendU16(sectionHeaderSize)
	out.AppendU16(0) // e_shnum
	out.AppendU16(0) // e_shstrndx

	// Single PT_LOAD segment covering the whole file, R+X.
	out.AppendU32(1) // PT_LOAD
	out.AppendU32(7) // PF_R|PF_W|PF_X
	out.AppendU64(0)
	out.AppendU64(elfBaseAddr)
	out.AppendU64(elfBaseAddr)
	out.AppendU64(fileSize)
	out.AppendU64(fileSize)
	out.AppendU64(elfPageSize)

	out.AppendBytes(rodata)
	out.AppendBytes(text)
}

// WriteELFLinkable emits a relocatable ET_REL object file: a .text section
// carrying the function bodies, a .rodata section, a .symtab entry per
// defined function plus one per extern_fn_calls target, a .strtab backing
// both, and a .rela.text section recording every call-site patch the system
// linker must resolve (§6 "linkable" variant).
//
// externs names every function the generated code calls but does not
// define; relocs locates each call instruction's rel32 operand (its buffer
// offset within text) against the corresponding extern's symtab index.
func WriteELFLinkable(arch Arch, rodata, text []byte, definedFuncs []string, funcOffsets map[string]int, externs []string, relocs []elfRela) []byte {
	var strtab []byte
	strtab = append(strtab, 0)
	strOff := make(map[string]uint32)
	intern := func(s string) uint32 {
		if off, ok := strOff[s]; ok {
			return off
		}
		off := uint32(len(strtab))
		strtab = append(strtab, []byte(s)...)
		strtab = append(strtab, 0)
		strOff[s] = off
		return off
	}

	var symbols []elfSymbol
	symbols = append(symbols, elfSymbol{}) // index 0: null symbol
	symIndex := make(map[string]uint32)

	// Section indices: 0 null, 1 .text, 2 .rodata, 3 .symtab, 4 .strtab,
	// 5 .rela.text.
	const (
		secText = 1
		secRodata = 2
	)

	for _, name := range definedFuncs {
		symbols = append(symbols, elfSymbol{
			name:  intern(name),
			info:  elfSymInfo(stbGlobal, sttFunc),
			shndx: secText,
			value: uint64(funcOffsets[name]),
		})
		symIndex[name] = uint32(len(symbols) - 1)
	}
	for _, name := range externs {
		if _, exists := symIndex[name]; exists {
			continue
		}
		symbols = append(symbols, elfSymbol{
			name:  intern(name),
			info:  elfSymInfo(stbGlobal, sttNotype),
			shndx: 0, // SHN_UNDEF
		})
		symIndex[name] = uint32(len(symbols) - 1)
	}

	symtabBytes := make([]byte, 0, len(symbols)*24)
	for _, s := range symbols {
		var tmp [24]byte
		binary.LittleEndian.PutUint32(tmp[0:4], s.name)
		tmp[4] = s.info
		tmp[5] = 0 // other
		binary.LittleEndian.PutUint16(tmp[6:8], s.shndx)
		binary.LittleEndian.PutUint64(tmp[8:16], s.value)
		binary.LittleEndian.PutUint64(tmp[16:24], s.size)
		symtabBytes = append(symtabBytes, tmp[:]...)
	}

	relaBytes := make([]byte, 0, len(relocs)*24)
	for _, r := range relocs {
		symIdx, ok := symIndex[r.symbol]
		if !ok {
			nError("relocation against unknown symbol %q", r.symbol)
		}
		var tmp [24]byte
		binary.LittleEndian.PutUint64(tmp[0:8], r.offset)
		info := (uint64(symIdx) << 32) | uint64(r.typ)
		binary.LittleEndian.PutUint64(tmp[8:16], info)
		binary.LittleEndian.PutUint64(tmp[16:24], uint64(r.addend))
		relaBytes = append(relaBytes, tmp[:]...)
	}

	// shstrtab backs section-header names only (.symtab/.strtab back symbol
	// names instead): a real linker looks sections up by name, not just by
	// sh_type, so every section defined here needs one.
	var shstrtab []byte
	shstrtab = append(shstrtab, 0)
	shstrOff := make(map[string]uint32)
	internShstr := func(s string) uint32 {
		if off, ok := shstrOff[s]; ok {
			return off
		}
		off := uint32(len(shstrtab))
		shstrtab = append(shstrtab, []byte(s)...)
		shstrtab = append(shstrtab, 0)
		shstrOff[s] = off
		return off
	}
	nameText := internShstr(".text")
	nameRodata := internShstr(".rodata")
	nameSymtab := internShstr(".symtab")
	nameStrtab := internShstr(".strtab")
	nameRela := internShstr(".rela.text")
	nameShstrtab := internShstr(".shstrtab")

	out := &Buffer{}
	// e_shoff is only known once text/rodata/section bodies are laid out;
	// compute section file offsets up front.
	base := elfHeaderSize
	textOff := base
	rodataOff := textOff + len(text)
	symtabOff := rodataOff + len(rodata)
	strtabOff := symtabOff + len(symtabBytes)
	relaOff := strtabOff + len(strtab)
	shstrtabOff := relaOff + len(relaBytes)
	shoff := shstrtabOff + len(shstrtab)

	out.AppendByte(0x7f)
	out.AppendByte('E')
	out.AppendByte('L')
	out.AppendByte('F')
	out.AppendByte(2)
	out.AppendByte(1)
	out.AppendByte(1)
	out.AppendByte(0) // ELFOSABI_SYSV
	out.AppendN(0, 8)

	out.AppendU16(1) // ET_REL
	out.AppendU16(ELFMachineType(arch))
	out.AppendU32(1)

	out.AppendU64(0) // e_entry: none for a relocatable object
	out.AppendU64(0) // e_phoff: no program headers
	out.AppendU64(uint64(shoff))
	out.AppendU32(0)
	out.AppendU16(elfHeaderSize)
	out.AppendU16(0) // e_phentsize
	out.AppendU16(0) // e_phnum
	out.AppendU16(sectionHeaderSize)
	out.AppendU16(7) // e_shnum: null, text, rodata, symtab, strtab, rela, shstrtab
	out.AppendU16(6) // e_shstrndx: .shstrtab holds section-header names

	out.AppendBytes(text)
	out.AppendBytes(rodata)
	out.AppendBytes(symtabBytes)
	out.AppendBytes(strtab)
	out.AppendBytes(relaBytes)
	out.AppendBytes(shstrtab)

	writeShdr := func(nameOff uint32, typ uint32, flags uint64, offset, size, link, info, addralign, entsize uint64) {
		out.AppendU32(nameOff)
		out.AppendU32(typ)
		out.AppendU64(flags)
		out.AppendU64(0) // addr
		out.AppendU64(offset)
		out.AppendU64(size)
		out.AppendU32(uint32(link))
		out.AppendU32(uint32(info))
		out.AppendU64(addralign)
		out.AppendU64(entsize)
	}
	writeShdr(0, shtNull, 0, 0, 0, 0, 0, 0, 0)
	writeShdr(nameText, shtProgbits, shfAlloc|shfExecinstr, uint64(textOff), uint64(len(text)), 0, 0, 16, 0)
	writeShdr(nameRodata, shtProgbits, shfAlloc, uint64(rodataOff), uint64(len(rodata)), 0, 0, 8, 0)
	writeShdr(nameSymtab, shtSymtab, 0, uint64(symtabOff), uint64(len(symtabBytes)), 4, uint64(len(definedFuncs)+1), 8, 24)
	writeShdr(nameStrtab, shtStrtab, 0, uint64(strtabOff), uint64(len(strtab)), 0, 0, 1, 0)
	writeShdr(nameRela, shtRela, 0, uint64(relaOff), uint64(len(relaBytes)), 3, 1, 8, 24)
	writeShdr(nameShstrtab, shtStrtab, 0, uint64(shstrtabOff), uint64(len(shstrtab)), 0, 0, 1, 0)

	return out.Bytes()
}

// RelocTypeForCall returns the PC-relative relocation type a direct call
// instruction's rel32 operand needs for arch.
func RelocTypeForCall(arch Arch) uint32 {
	if arch == ArchArm64 {
		return rAarch64Call26
	}
	return rX8664PLT32
}
