package hart

// SYSTEM opcode privileged sub-encodings (funct7:rs2, rd=rs1=0 for the
// fence/return/wait forms).
const (
	privSRET = 0x08<<5 | 0x02
	privWFI  = 0x08<<5 | 0x05
	privSFENCE = 0x09
)

func (h *Hart) execSystem(insn uint32) StepResult {
	f3 := funct3(insn)
	if f3 == 0 {
		return h.execPrivileged(insn)
	}
	return h.execCSR(insn, f3)
}

func (h *Hart) execPrivileged(insn uint32) StepResult {
	f7 := funct7(insn)
	r2 := uint32(rs2(insn))

	switch {
	case insn == 0x00000073: // ECALL
		h.ECallA7 = h.GetX(17)
		h.ECallA6 = h.GetX(16)
		h.PC += 4
		h.Retired++
		return StepECall

	case insn == 0x00100073: // EBREAK
		h.enterTrap(CauseBreakpoint, h.PC)
		h.LastTrap = CauseBreakpoint
		return StepTrap

	case f7<<5|r2 == privSRET: // SRET
		h.sret()
		h.Retired++
		return StepOK

	case f7<<5|r2 == privWFI: // WFI
		h.PC += 4
		h.Retired++
		return StepWFI

	case f7 == privSFENCE: // SFENCE.VMA
		// No TLB cache to invalidate in this model.
		h.PC += 4
		h.Retired++
		return StepOK
	}

	h.enterTrap(CauseIllegalInsn, insn)
	h.LastTrap = CauseIllegalInsn
	return StepTrap
}

func (h *Hart) execCSR(insn uint32, f3 uint32) StepResult {
	addr := insn >> 20
	isImm := f3&0x4 != 0
	var operand uint32
	if isImm {
		operand = uint32(rs1(insn))
	} else {
		operand = h.GetX(rs1(insn))
	}

	old, ok := h.CSRRead(addr)
	if !ok {
		h.enterTrap(CauseIllegalInsn, insn)
		h.LastTrap = CauseIllegalInsn
		return StepTrap
	}

	writesBack := isImm && operand != 0 || !isImm && rs1(insn) != 0
	switch f3 & 0x3 {
	case 0x1: // CSRRW / CSRRWI: always writes.
		writesBack = true
		if !h.CSRWrite(addr, operand) {
			h.enterTrap(CauseIllegalInsn, insn)
			h.LastTrap = CauseIllegalInsn
			return StepTrap
		}
	case 0x2: // CSRRS / CSRRSI: rs1/uimm == 0 is a pure read.
		if writesBack {
			h.CSRWrite(addr, old|operand)
		}
	case 0x3: // CSRRC / CSRRCI: rs1/uimm == 0 is a pure read.
		if writesBack {
			h.CSRWrite(addr, old&^operand)
		}
	}

	h.SetX(rd(insn), old)
	h.PC += 4
	h.Retired++
	return StepOK
}
