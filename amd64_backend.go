// amd64_backend.go - amd64 instruction selection (C7)
//
// Grounded on the teacher's per-mnemonic encoder files (mov.go, add.go,
// sub.go, cmp.go, jmp.go, call.go, push.go, lea.go before consolidation)
// for the REX+ModRM encoding patterns, but collected into one concrete
// backend type implementing the fixed capability set §4.7/§6 names,
// instead of one file per mnemonic.
package main

// amd64Reg is a 4-bit register encoding plus whether it needs REX.B/X/R.
type amd64Reg struct {
	code byte // low 3 bits of the encoding
	ext  bool // true for r8-r15 (needs a REX extension bit)
}

var amd64Regs = map[string]amd64Reg{
	"rax": {0, false}, "rcx": {1, false}, "rdx": {2, false}, "rbx": {3, false},
	"rsp": {4, false}, "rbp": {5, false}, "rsi": {6, false}, "rdi": {7, false},
	"r8": {0, true}, "r9": {1, true}, "r10": {2, true}, "r11": {3, true},
	"r12": {4, true}, "r13": {5, true}, "r14": {6, true}, "r15": {7, true},
}

var amd64XmmRegs = map[string]amd64Reg{
	"xmm0": {0, false}, "xmm1": {1, false}, "xmm2": {2, false}, "xmm3": {3, false},
	"xmm4": {4, false}, "xmm5": {5, false}, "xmm6": {6, false}, "xmm7": {7, false},
}

// Amd64Backend lowers the fixed capability set onto amd64 machine code. It
// has no back-pointer to a generator or compiler: it only ever touches the
// Buffer passed to each call, and returns patch positions to the caller
// (labels.go/frame.go own the bookkeeping, not the backend).
type Amd64Backend struct{}

func NewAmd64Backend() *Amd64Backend { return &Amd64Backend{} }

func amd64Rex(w, r, x, b bool) byte {
	var rex byte = 0x40
	if w {
		rex |= 0x08
	}
	if r {
		rex |= 0x04
	}
	if x {
		rex |= 0x02
	}
	if b {
		rex |= 0x01
	}
	return rex
}

func amd64ModRM(mod, reg, rm byte) byte {
	return (mod << 6) | ((reg & 7) << 3) | (rm & 7)
}

func (a *Amd64Backend) reg(name string) amd64Reg {
	r, ok := amd64Regs[name]
	if !ok {
		nError("amd64: unknown integer register %q", name)
	}
	return r
}

// Mov emits `mov dst, src` (register to register, 64-bit).
func (a *Amd64Backend) Mov(buf *Buffer, dst, src string) {
	d, s := a.reg(dst), a.reg(src)
	buf.AppendByte(amd64Rex(true, s.ext, false, d.ext))
	buf.AppendByte(0x89)
	buf.AppendByte(amd64ModRM(3, s.code, d.code))
}

// Mov64 emits `mov dst, imm32` sign-extended into a 64-bit register.
func (a *Amd64Backend) Mov64(buf *Buffer, dst string, imm int32) {
	d := a.reg(dst)
	buf.AppendByte(amd64Rex(true, false, false, d.ext))
	buf.AppendByte(0xC7)
	buf.AppendByte(amd64ModRM(3, 0, d.code))
	buf.AppendI32(imm)
}

// MovAbs emits `movabs dst, imm64`, the only way to load a full 64-bit
// immediate on amd64.
func (a *Amd64Backend) MovAbs(buf *Buffer, dst string, imm uint64) {
	d := a.reg(dst)
	buf.AppendByte(amd64Rex(true, false, false, d.ext))
	buf.AppendByte(0xB8 + d.code)
	buf.AppendU64(imm)
}

// MovRegToVar emits `mov [rbp+offset], src` — spill a register to a frame
// slot.
func (a *Amd64Backend) MovRegToVar(buf *Buffer, src string, offset int32) {
	s := a.reg(src)
	buf.AppendByte(amd64Rex(true, s.ext, false, false))
	buf.AppendByte(0x89)
	buf.AppendByte(amd64ModRM(2, s.code, 5)) // rm=101 (rbp) forces disp32 mode
	buf.AppendI32(offset)
}

// MovVarToReg emits `mov dst, [rbp+offset]` — reload a frame slot.
func (a *Amd64Backend) MovVarToReg(buf *Buffer, dst string, offset int32) {
	d := a.reg(dst)
	buf.AppendByte(amd64Rex(true, d.ext, false, false))
	buf.AppendByte(0x8B)
	buf.AppendByte(amd64ModRM(2, d.code, 5))
	buf.AppendI32(offset)
}

// MovDeref emits `mov dst, [src]` — load through a pointer held in a
// register.
func (a *Amd64Backend) MovDeref(buf *Buffer, dst, src string) {
	d, s := a.reg(dst), a.reg(src)
	buf.AppendByte(amd64Rex(true, d.ext, false, s.ext))
	buf.AppendByte(0x8B)
	buf.AppendByte(amd64ModRM(0, d.code, s.code))
}

// MovStore emits `mov [dst], src` — store through a pointer held in a
// register.
func (a *Amd64Backend) MovStore(buf *Buffer, dst, src string) {
	d, s := a.reg(dst), a.reg(src)
	buf.AppendByte(amd64Rex(true, s.ext, false, d.ext))
	buf.AppendByte(0x89)
	buf.AppendByte(amd64ModRM(0, s.code, d.code))
}

// LeaVarToReg emits `lea dst, [rbp+offset]` — compute a frame slot's
// address.
func (a *Amd64Backend) LeaVarToReg(buf *Buffer, dst string, offset int32) {
	d := a.reg(dst)
	buf.AppendByte(amd64Rex(true, d.ext, false, false))
	buf.AppendByte(0x8D)
	buf.AppendByte(amd64ModRM(2, d.code, 5))
	buf.AppendI32(offset)
}

// LearelRodata emits a RIP-relative `lea dst, [rip+disp32]` targeting a
// .rodata offset, returning the buffer position of the disp32 field so the
// caller can patch it once the final rodata base is known.
func (a *Amd64Backend) LearelRodata(buf *Buffer, dst string) int {
	d := a.reg(dst)
	buf.AppendByte(amd64Rex(true, d.ext, false, false))
	buf.AppendByte(0x8D)
	buf.AppendByte(amd64ModRM(0, d.code, 5)) // mod=00, rm=101: RIP-relative
	return buf.AppendI32(0)
}

// Add/Sub emit `add dst, imm32` / `sub dst, imm32`.
func (a *Amd64Backend) Add(buf *Buffer, dst string, imm int32) {
	a.aluImm(buf, dst, imm, 0)
}

func (a *Amd64Backend) Sub(buf *Buffer, dst string, imm int32) {
	a.aluImm(buf, dst, imm, 5)
}

func (a *Amd64Backend) aluImm(buf *Buffer, dst string, imm int32, ext byte) {
	d := a.reg(dst)
	buf.AppendByte(amd64Rex(true, false, false, d.ext))
	buf.AppendByte(0x81)
	buf.AppendByte(amd64ModRM(3, ext, d.code))
	buf.AppendI32(imm)
}

// AddReg/SubReg emit register-to-register add/sub, used for binary
// expression lowering where both operands are already in registers.
func (a *Amd64Backend) AddReg(buf *Buffer, dst, src string) {
	d, s := a.reg(dst), a.reg(src)
	buf.AppendByte(amd64Rex(true, s.ext, false, d.ext))
	buf.AppendByte(0x01)
	buf.AppendByte(amd64ModRM(3, s.code, d.code))
}

func (a *Amd64Backend) SubReg(buf *Buffer, dst, src string) {
	d, s := a.reg(dst), a.reg(src)
	buf.AppendByte(amd64Rex(true, s.ext, false, d.ext))
	buf.AppendByte(0x29)
	buf.AppendByte(amd64ModRM(3, s.code, d.code))
}

// BitandReg emits register-to-register bitwise AND.
func (a *Amd64Backend) BitandReg(buf *Buffer, dst, src string) {
	d, s := a.reg(dst), a.reg(src)
	buf.AppendByte(amd64Rex(true, s.ext, false, d.ext))
	buf.AppendByte(0x21)
	buf.AppendByte(amd64ModRM(3, s.code, d.code))
}

// MulReg emits `imul dst, src` (0F AF /r), signed 64-bit two-operand
// multiply with the result left in dst.
func (a *Amd64Backend) MulReg(buf *Buffer, dst, src string) {
	d, s := a.reg(dst), a.reg(src)
	buf.AppendByte(amd64Rex(true, d.ext, false, s.ext))
	buf.AppendByte(0x0F)
	buf.AppendByte(0xAF)
	buf.AppendByte(amd64ModRM(3, d.code, s.code))
}

// MovStoreByte emits `mov [dst], src` using src's low 8 bits only — a
// single-byte store through a pointer, for writing one ASCII character at
// a time into a decimal-conversion buffer without clobbering its neighbors
// the way the 8-byte MovStore would.
func (a *Amd64Backend) MovStoreByte(buf *Buffer, dst, src string) {
	d, s := a.reg(dst), a.reg(src)
	if s.ext || d.ext {
		buf.AppendByte(amd64Rex(false, s.ext, false, d.ext))
	}
	buf.AppendByte(0x88)
	buf.AppendByte(amd64ModRM(0, s.code, d.code))
}

// SignedDivRem10 divides the primary scratch register (rax) by the
// constant 10, following amd64's fixed IDIV convention: sign-extend rax
// into rdx:rax via CQO, load the divisor into rcx, then IDIV rcx leaves
// the quotient in rax and the remainder in rdx. Used only by itoa-style
// decimal conversion (§4.6 println/print of non-string arguments), never
// by general infix lowering, so it can own rax/rcx/rdx outright instead of
// threading them through a general two-register division contract.
func (a *Amd64Backend) SignedDivRem10(buf *Buffer) (quotient, remainder string) {
	buf.AppendByte(amd64Rex(true, false, false, false))
	buf.AppendByte(0x99) // cqo
	a.Mov64(buf, "rcx", 10)
	buf.AppendByte(amd64Rex(true, false, false, false))
	buf.AppendByte(0xF7)
	buf.AppendByte(amd64ModRM(3, 7, a.reg("rcx").code))
	return "rax", "rdx"
}

// CmpVar emits `cmp [rbp+offset], imm32`.
func (a *Amd64Backend) CmpVar(buf *Buffer, offset int32, imm int32) {
	buf.AppendByte(amd64Rex(true, false, false, false))
	buf.AppendByte(0x81)
	buf.AppendByte(amd64ModRM(2, 7, 5))
	buf.AppendI32(offset)
	buf.AppendI32(imm)
}

// CmpReg emits `cmp lhs, rhs` (register to register).
func (a *Amd64Backend) CmpReg(buf *Buffer, lhs, rhs string) {
	l, r := a.reg(lhs), a.reg(rhs)
	buf.AppendByte(amd64Rex(true, r.ext, false, l.ext))
	buf.AppendByte(0x39)
	buf.AppendByte(amd64ModRM(3, r.code, l.code))
}

// Jmp emits an unconditional near jump with a placeholder rel32, returning
// the buffer position of the displacement field for the caller to register
// as a label patch.
func (a *Amd64Backend) Jmp(buf *Buffer) int {
	buf.AppendByte(0xE9)
	return buf.AppendI32(0)
}

// CondCode names the six comparison outcomes the generator ever lowers an
// `if`/branch condition to (§4.6 infix comparison operators).
type CondCode int

const (
	CondEQ CondCode = iota
	CondNE
	CondLT
	CondLE
	CondGT
	CondGE
)

var amd64JccOp = map[CondCode]byte{
	CondEQ: 0x84, CondNE: 0x85, CondLT: 0x8C, CondLE: 0x8E, CondGT: 0x8F, CondGE: 0x8D,
}

// Cjmp emits a conditional near jump (0F 8x) with a placeholder rel32,
// returning the displacement field's buffer position.
func (a *Amd64Backend) Cjmp(buf *Buffer, cc CondCode) int {
	buf.AppendByte(0x0F)
	buf.AppendByte(amd64JccOp[cc])
	return buf.AppendI32(0)
}

// Push/Pop emit single-register stack operations.
func (a *Amd64Backend) Push(buf *Buffer, reg string) {
	r := a.reg(reg)
	if r.ext {
		buf.AppendByte(amd64Rex(false, false, false, true))
	}
	buf.AppendByte(0x50 + r.code)
}

func (a *Amd64Backend) Pop(buf *Buffer, reg string) {
	r := a.reg(reg)
	if r.ext {
		buf.AppendByte(amd64Rex(false, false, false, true))
	}
	buf.AppendByte(0x58 + r.code)
}

// PopSSE emits `movq xmm, [rsp]` followed by `add rsp, 8`, the idiom this
// backend uses in place of a true SSE push/pop pair (SSE has no dedicated
// stack instructions).
func (a *Amd64Backend) PopSSE(buf *Buffer, reg string) {
	x, ok := amd64XmmRegs[reg]
	if !ok {
		nError("amd64: unknown xmm register %q", reg)
	}
	buf.AppendByte(0xF3)
	buf.AppendByte(amd64Rex(false, x.ext, false, false))
	buf.AppendByte(0x0F)
	buf.AppendByte(0x7E)
	buf.AppendByte(amd64ModRM(0, x.code, 4)) // [rsp]
	buf.AppendByte(0x24)                     // SIB: rsp base
	a.Add(buf, "rsp", 8)
}

// IncVar/DecVar emit `inc`/`dec [rbp+offset]` as 32-bit memory operations.
func (a *Amd64Backend) IncVar(buf *Buffer, offset int32) {
	buf.AppendByte(0xFF)
	buf.AppendByte(amd64ModRM(2, 0, 5))
	buf.AppendI32(offset)
}

func (a *Amd64Backend) DecVar(buf *Buffer, offset int32) {
	buf.AppendByte(0xFF)
	buf.AppendByte(amd64ModRM(2, 1, 5))
	buf.AppendI32(offset)
}

// CallFn emits `call rel32` with a placeholder displacement, returning its
// buffer position for the caller to register as a label or extern-symbol
// patch.
func (a *Amd64Backend) CallFn(buf *Buffer) int {
	buf.AppendByte(0xE8)
	return buf.AppendI32(0)
}

// Syscall emits the `syscall` instruction.
func (a *Amd64Backend) Syscall(buf *Buffer) {
	buf.AppendByte(0x0F)
	buf.AppendByte(0x05)
}

// GenExit lowers `exit(code)`: load code into edi (the exit_group syscall's
// first argument) and rax with the syscall number, then `syscall`. §4.8
// ties exit's syscall number to the x86_64 table (60 = exit_group).
func (a *Amd64Backend) GenExit(buf *Buffer, code int32) {
	a.Mov64(buf, "rdi", code)
	a.MovAbs(buf, "rax", 60)
	a.Syscall(buf)
}

// FnDecl emits the standard prologue for a function with frameSize bytes
// of locals: push rbp; mov rbp, rsp; sub rsp, frameSize.
func (a *Amd64Backend) FnDecl(buf *Buffer, frameSize int32) {
	a.Push(buf, "rbp")
	a.Mov(buf, "rbp", "rsp")
	if frameSize > 0 {
		a.Sub(buf, "rsp", frameSize)
	}
}

// Epilogue emits the matching `leave; ret` for FnDecl's prologue.
func (a *Amd64Backend) Epilogue(buf *Buffer) {
	buf.AppendByte(0xC9) // leave
	buf.AppendByte(0xC3) // ret
}
