// calling_convention.go - fixed per-ISA calling convention (§4.7)
//
// Grounded on the teacher's calling_convention.go (SystemVAMD64/MicrosoftX64
// structs behind a CallingConvention interface) but trimmed to the two
// conventions this spec actually defines: the System V AMD64 subset and the
// AAPCS64 subset, selected by instruction set alone. §4.7 is explicit that
// both apply regardless of target OS, so there is no Windows-specific
// convention here the way the teacher had one for Microsoft x64.
package main

// CallingConvention exposes the argument/return register assignment and
// save/restore obligations for one ISA.
type CallingConvention interface {
	GetIntegerArgReg(index int) string
	GetFloatArgReg(index int) string
	GetIntegerReturnReg() string
	GetFloatReturnReg() string
	GetCallerSavedRegs() []string
	GetCalleeSavedRegs() []string
	GetStackAlignment() int
}

// SystemVAMD64 is the amd64 subset from §4.7: rdi/rsi/rdx/rcx/r8/r9 for
// integer args, xmm0-7 for float args, rax/xmm0 for return values.
type SystemVAMD64 struct{}

func (cc *SystemVAMD64) GetIntegerArgReg(index int) string {
	regs := []string{"rdi", "rsi", "rdx", "rcx", "r8", "r9"}
	if index < len(regs) {
		return regs[index]
	}
	return ""
}

func (cc *SystemVAMD64) GetFloatArgReg(index int) string {
	regs := []string{"xmm0", "xmm1", "xmm2", "xmm3", "xmm4", "xmm5", "xmm6", "xmm7"}
	if index < len(regs) {
		return regs[index]
	}
	return ""
}

func (cc *SystemVAMD64) GetIntegerReturnReg() string { return "rax" }
func (cc *SystemVAMD64) GetFloatReturnReg() string   { return "xmm0" }

func (cc *SystemVAMD64) GetCallerSavedRegs() []string {
	return []string{"rax", "rcx", "rdx", "rsi", "rdi", "r8", "r9", "r10", "r11"}
}

func (cc *SystemVAMD64) GetCalleeSavedRegs() []string {
	return []string{"rbx", "rbp", "r12", "r13", "r14", "r15"}
}

func (cc *SystemVAMD64) GetStackAlignment() int { return 16 }

// AAPCS64 is the arm64 subset from §4.7: x0-x7 for integer args, x29 the
// frame pointer, x30/lr the return address, x0 the return value. The float
// argument/return path is the unimplemented stub named in §9: GetFloatArgReg
// always raises a generator bug here rather than returning a plausible-
// looking but untested register assignment.
type AAPCS64 struct{}

func (cc *AAPCS64) GetIntegerArgReg(index int) string {
	regs := []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7"}
	if index < len(regs) {
		return regs[index]
	}
	return ""
}

func (cc *AAPCS64) GetFloatArgReg(index int) string {
	nError("arm64 floating-point argument passing is not implemented")
	return ""
}

func (cc *AAPCS64) GetIntegerReturnReg() string { return "x0" }

func (cc *AAPCS64) GetFloatReturnReg() string {
	nError("arm64 floating-point return values are not implemented")
	return ""
}

func (cc *AAPCS64) GetCallerSavedRegs() []string {
	return []string{"x0", "x1", "x2", "x3", "x4", "x5", "x6", "x7", "x8", "x9", "x10", "x11", "x12", "x13", "x14", "x15"}
}

func (cc *AAPCS64) GetCalleeSavedRegs() []string {
	return []string{"x19", "x20", "x21", "x22", "x23", "x24", "x25", "x26", "x27", "x28", "x29", "x30"}
}

func (cc *AAPCS64) GetStackAlignment() int { return 16 }

// GetCallingConvention selects the fixed convention for arch, independent
// of the target OS (§4.7).
func GetCallingConvention(arch Arch) CallingConvention {
	switch arch {
	case ArchArm64:
		return &AAPCS64{}
	default:
		return &SystemVAMD64{}
	}
}
