// backend.go - ISA backend dispatch (C7)
//
// Per the Design Notes (§9): Backend is a closed sum type over {amd64,
// arm64}, dispatched by a switch on Tag. This deliberately replaces the
// teacher's CodeGenerator interface (ARM64Backend/x86 implementations
// behind a shared interface, with a back-pointer to *ExecutableBuilder):
// there are exactly two ISAs, they will never grow a third, and a switch
// keeps every capability's per-ISA behavior visible in one place instead
// of scattered across interface implementations that each need their own
// back-reference to the compiler state.
package main

// Backend wraps exactly one of Amd64 or Arm64, selected by Tag. Every
// method below switches on Tag and forwards to the matching concrete
// backend; callers never switch on Tag themselves.
type Backend struct {
	Tag   Arch
	Amd64 *Amd64Backend
	Arm64 *Arm64Backend
}

// NewBackend builds the capability set for arch. Any arch other than
// amd64/arm64 is a generator bug: the CLI/config layer should have
// rejected it already via ParseArch.
func NewBackend(arch Arch) *Backend {
	switch arch {
	case ArchAmd64:
		return &Backend{Tag: ArchAmd64, Amd64: NewAmd64Backend()}
	case ArchArm64:
		return &Backend{Tag: ArchArm64, Arm64: NewArm64Backend()}
	default:
		nError("no backend for architecture %s", arch)
		return nil
	}
}

func (b *Backend) Mov(buf *Buffer, dst, src string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.Mov(buf, dst, src)
	case ArchArm64:
		b.Arm64.Mov(buf, dst, src)
	}
}

func (b *Backend) Mov64(buf *Buffer, dst string, imm int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.Mov64(buf, dst, imm)
	case ArchArm64:
		b.Arm64.Mov64(buf, dst, imm)
	}
}

func (b *Backend) MovAbs(buf *Buffer, dst string, imm uint64) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.MovAbs(buf, dst, imm)
	case ArchArm64:
		b.Arm64.MovAbs(buf, dst, imm)
	}
}

func (b *Backend) MovRegToVar(buf *Buffer, src string, offset int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.MovRegToVar(buf, src, offset)
	case ArchArm64:
		b.Arm64.MovRegToVar(buf, src, offset)
	}
}

func (b *Backend) MovVarToReg(buf *Buffer, dst string, offset int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.MovVarToReg(buf, dst, offset)
	case ArchArm64:
		b.Arm64.MovVarToReg(buf, dst, offset)
	}
}

func (b *Backend) MovDeref(buf *Buffer, dst, src string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.MovDeref(buf, dst, src)
	case ArchArm64:
		b.Arm64.MovDeref(buf, dst, src)
	}
}

func (b *Backend) MovStore(buf *Buffer, dst, src string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.MovStore(buf, dst, src)
	case ArchArm64:
		b.Arm64.MovStore(buf, dst, src)
	}
}

func (b *Backend) LeaVarToReg(buf *Buffer, dst string, offset int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.LeaVarToReg(buf, dst, offset)
	case ArchArm64:
		b.Arm64.LeaVarToReg(buf, dst, offset)
	}
}

func (b *Backend) LearelRodata(buf *Buffer, dst string) int {
	switch b.Tag {
	case ArchAmd64:
		return b.Amd64.LearelRodata(buf, dst)
	case ArchArm64:
		return b.Arm64.LearelRodata(buf, dst)
	}
	return 0
}

func (b *Backend) Add(buf *Buffer, dst string, imm int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.Add(buf, dst, imm)
	case ArchArm64:
		b.Arm64.Add(buf, dst, imm)
	}
}

func (b *Backend) Sub(buf *Buffer, dst string, imm int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.Sub(buf, dst, imm)
	case ArchArm64:
		b.Arm64.Sub(buf, dst, imm)
	}
}

func (b *Backend) AddReg(buf *Buffer, dst, src string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.AddReg(buf, dst, src)
	case ArchArm64:
		b.Arm64.AddReg(buf, dst, src)
	}
}

func (b *Backend) SubReg(buf *Buffer, dst, src string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.SubReg(buf, dst, src)
	case ArchArm64:
		b.Arm64.SubReg(buf, dst, src)
	}
}

func (b *Backend) BitandReg(buf *Buffer, dst, src string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.BitandReg(buf, dst, src)
	case ArchArm64:
		b.Arm64.BitandReg(buf, dst, src)
	}
}

func (b *Backend) MulReg(buf *Buffer, dst, src string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.MulReg(buf, dst, src)
	case ArchArm64:
		b.Arm64.MulReg(buf, dst, src)
	}
}

func (b *Backend) MovStoreByte(buf *Buffer, dst, src string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.MovStoreByte(buf, dst, src)
	case ArchArm64:
		b.Arm64.MovStoreByte(buf, dst, src)
	}
}

// SignedDivRem10 divides this ISA's fixed dividend scratch register by 10
// for itoa-style decimal conversion, returning which registers now hold
// the quotient and remainder (§4.6). Only lowerPrintCall's decimal
// expansion calls this; general division is not part of the fixed
// capability set (§9's open item).
func (b *Backend) SignedDivRem10(buf *Buffer) (quotient, remainder string) {
	switch b.Tag {
	case ArchAmd64:
		return b.Amd64.SignedDivRem10(buf)
	case ArchArm64:
		return b.Arm64.SignedDivRem10(buf)
	}
	return "", ""
}

func (b *Backend) CmpVar(buf *Buffer, offset int32, imm int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.CmpVar(buf, offset, imm)
	case ArchArm64:
		b.Arm64.CmpVar(buf, offset, imm)
	}
}

func (b *Backend) CmpReg(buf *Buffer, lhs, rhs string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.CmpReg(buf, lhs, rhs)
	case ArchArm64:
		b.Arm64.CmpReg(buf, lhs, rhs)
	}
}

func (b *Backend) Jmp(buf *Buffer) int {
	switch b.Tag {
	case ArchAmd64:
		return b.Amd64.Jmp(buf)
	case ArchArm64:
		return b.Arm64.Jmp(buf)
	}
	return 0
}

func (b *Backend) Cjmp(buf *Buffer, cc CondCode) int {
	switch b.Tag {
	case ArchAmd64:
		return b.Amd64.Cjmp(buf, cc)
	case ArchArm64:
		return b.Arm64.Cjmp(buf, cc)
	}
	return 0
}

// BranchPatchWidth reports the displacement field width a Jmp/Cjmp patch
// needs: amd64 patches a rel32 field that sits after the full instruction
// opcode bytes, arm64 patches the low bits of the branch instruction word
// itself. lower.go uses this to decide how ResolveAll should treat the
// recorded patch position.
func (b *Backend) BranchIsWholeInstruction() bool {
	return b.Tag == ArchArm64
}

func (b *Backend) Push(buf *Buffer, reg string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.Push(buf, reg)
	case ArchArm64:
		b.Arm64.Push(buf, reg)
	}
}

func (b *Backend) Pop(buf *Buffer, reg string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.Pop(buf, reg)
	case ArchArm64:
		b.Arm64.Pop(buf, reg)
	}
}

func (b *Backend) PopSSE(buf *Buffer, reg string) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.PopSSE(buf, reg)
	case ArchArm64:
		b.Arm64.PopSSE(buf, reg)
	}
}

func (b *Backend) IncVar(buf *Buffer, offset int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.IncVar(buf, offset)
	case ArchArm64:
		b.Arm64.IncVar(buf, offset)
	}
}

func (b *Backend) DecVar(buf *Buffer, offset int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.DecVar(buf, offset)
	case ArchArm64:
		b.Arm64.DecVar(buf, offset)
	}
}

func (b *Backend) CallFn(buf *Buffer) int {
	switch b.Tag {
	case ArchAmd64:
		return b.Amd64.CallFn(buf)
	case ArchArm64:
		return b.Arm64.CallFn(buf)
	}
	return 0
}

func (b *Backend) Syscall(buf *Buffer) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.Syscall(buf)
	case ArchArm64:
		b.Arm64.Syscall(buf)
	}
}

func (b *Backend) GenExit(buf *Buffer, code int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.GenExit(buf, code)
	case ArchArm64:
		b.Arm64.GenExit(buf, code)
	}
}

func (b *Backend) FnDecl(buf *Buffer, frameSize int32) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.FnDecl(buf, frameSize)
	case ArchArm64:
		b.Arm64.FnDecl(buf, frameSize)
	}
}

func (b *Backend) Epilogue(buf *Buffer) {
	switch b.Tag {
	case ArchAmd64:
		b.Amd64.Epilogue(buf)
	case ArchArm64:
		b.Arm64.Epilogue(buf)
	}
}

// IntArgReg/ReturnReg forward to the fixed calling convention for this
// ISA (calling_convention.go), kept here so lowering code has one place to
// ask "which backend, which convention" together.
func (b *Backend) IntArgReg(index int) string {
	return GetCallingConvention(b.Tag).GetIntegerArgReg(index)
}

func (b *Backend) IntReturnReg() string {
	return GetCallingConvention(b.Tag).GetIntegerReturnReg()
}
