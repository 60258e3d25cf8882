package hart

import "github.com/rcornwell/rv32emu/emu/mmu"

// Step executes one instruction (or takes one pending trap) and reports
// what happened. The caller is expected to have already OR'd ACLINT/PLIC
// interrupt lines into h.Sip before calling Step.
func (h *Hart) Step(bus Bus) StepResult {
	if cause, ok := h.pendingInterrupt(); ok {
		h.CurrentPC = h.PC
		h.enterTrap(cause, 0)
		h.LastTrap = cause
		return StepTrap
	}

	h.CurrentPC = h.PC

	if h.PC&0x3 != 0 {
		h.enterTrap(CauseInsnMisaligned, h.PC)
		h.LastTrap = CauseInsnMisaligned
		return StepTrap
	}

	paddr, fault := h.translate(bus, h.PC, mmu.AccessFetch)
	if fault != mmu.FaultNone {
		cause := CauseInsnPageFault
		if fault == mmu.FaultAccess {
			cause = CauseInsnFault
		}
		h.enterTrap(cause, h.PC)
		h.LastTrap = cause
		return StepTrap
	}

	insn, ok := bus.Fetch(paddr)
	if !ok {
		h.enterTrap(CauseInsnFault, h.PC)
		h.LastTrap = CauseInsnFault
		return StepTrap
	}

	return h.execute(bus, insn)
}

func (h *Hart) execute(bus Bus, insn uint32) StepResult {
	nextPC := h.PC + 4
	result := StepOK

	switch opcode(insn) {
	case opLui:
		h.SetX(rd(insn), uint32(decodeU(insn)))

	case opAuipc:
		h.SetX(rd(insn), h.PC+uint32(decodeU(insn)))

	case opJal:
		target := h.PC + uint32(decodeJ(insn))
		h.SetX(rd(insn), nextPC) // rd updated before misalignment is checked
		if target&0x3 != 0 {
			h.enterTrap(CauseInsnMisaligned, target)
			h.LastTrap = CauseInsnMisaligned
			return StepTrap
		}
		nextPC = target

	case opJalr:
		base := h.GetX(rs1(insn))
		target := (base + uint32(decodeI(insn))) &^ 1
		h.SetX(rd(insn), nextPC) // rd updated before misalignment is checked
		if target&0x3 != 0 {
			h.enterTrap(CauseInsnMisaligned, target)
			h.LastTrap = CauseInsnMisaligned
			return StepTrap
		}
		nextPC = target

	case opBranch:
		if h.evalBranch(insn) {
			target := h.PC + uint32(decodeB(insn))
			if target&0x3 != 0 {
				h.enterTrap(CauseInsnMisaligned, target)
				h.LastTrap = CauseInsnMisaligned
				return StepTrap
			}
			nextPC = target
		}

	case opLoad:
		if !h.execLoad(bus, insn) {
			return StepTrap
		}

	case opStore:
		if !h.execStore(bus, insn) {
			return StepTrap
		}

	case opOpImm:
		h.execOpImm(insn)

	case opOp:
		if funct7(insn) == 0x01 {
			h.execMulDiv(insn)
		} else {
			h.execOp(insn)
		}

	case opMiscMem:
		// FENCE / FENCE.I: no-op, this model has no caches to flush.

	case opAmo:
		if !h.execAmo(bus, insn) {
			return StepTrap
		}

	case opSystem:
		result = h.execSystem(insn)
		if result != StepOK {
			return result
		}

	default:
		h.enterTrap(CauseIllegalInsn, insn)
		h.LastTrap = CauseIllegalInsn
		return StepTrap
	}

	h.PC = nextPC
	h.Retired++
	return result
}

func (h *Hart) evalBranch(insn uint32) bool {
	a := h.GetX(rs1(insn))
	b := h.GetX(rs2(insn))
	switch funct3(insn) {
	case 0x0: // BEQ
		return a == b
	case 0x1: // BNE
		return a != b
	case 0x4: // BLT
		return int32(a) < int32(b)
	case 0x5: // BGE
		return int32(a) >= int32(b)
	case 0x6: // BLTU
		return a < b
	case 0x7: // BGEU
		return a >= b
	}
	return false
}

func (h *Hart) execOpImm(insn uint32) {
	a := h.GetX(rs1(insn))
	imm := uint32(decodeI(insn))
	var v uint32
	switch funct3(insn) {
	case 0x0: // ADDI
		v = a + imm
	case 0x1: // SLLI
		v = a << (imm & 0x1f)
	case 0x2: // SLTI
		v = boolToWord(int32(a) < int32(imm))
	case 0x3: // SLTIU
		v = boolToWord(a < imm)
	case 0x4: // XORI
		v = a ^ imm
	case 0x5: // SRLI / SRAI
		if imm&0x400 != 0 {
			v = uint32(int32(a) >> (imm & 0x1f))
		} else {
			v = a >> (imm & 0x1f)
		}
	case 0x6: // ORI
		v = a | imm
	case 0x7: // ANDI
		v = a & imm
	}
	h.SetX(rd(insn), v)
}

func (h *Hart) execOp(insn uint32) {
	a := h.GetX(rs1(insn))
	b := h.GetX(rs2(insn))
	sub := funct7(insn) == 0x20
	var v uint32
	switch funct3(insn) {
	case 0x0: // ADD / SUB
		if sub {
			v = a - b
		} else {
			v = a + b
		}
	case 0x1: // SLL
		v = a << (b & 0x1f)
	case 0x2: // SLT
		v = boolToWord(int32(a) < int32(b))
	case 0x3: // SLTU
		v = boolToWord(a < b)
	case 0x4: // XOR
		v = a ^ b
	case 0x5: // SRL / SRA
		if sub {
			v = uint32(int32(a) >> (b & 0x1f))
		} else {
			v = a >> (b & 0x1f)
		}
	case 0x6: // OR
		v = a | b
	case 0x7: // AND
		v = a & b
	}
	h.SetX(rd(insn), v)
}

func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
