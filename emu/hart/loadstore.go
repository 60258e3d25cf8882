package hart

import "github.com/rcornwell/rv32emu/emu/mmu"

func (h *Hart) execLoad(bus Bus, insn uint32) bool {
	vaddr := h.GetX(rs1(insn)) + uint32(decodeI(insn))
	width, signed := loadWidth(funct3(insn))
	if !h.checkAlign(vaddr, width, CauseLoadMisaligned) {
		return false
	}

	paddr, fault := h.translate(bus, vaddr, mmu.AccessLoad)
	if fault != mmu.FaultNone {
		cause := CauseLoadPageFault
		if fault == mmu.FaultAccess {
			cause = CauseLoadFault
		}
		h.enterTrap(cause, vaddr)
		h.LastTrap = cause
		return false
	}

	raw, ok := bus.Load(paddr, width)
	if !ok {
		h.enterTrap(CauseLoadFault, vaddr)
		h.LastTrap = CauseLoadFault
		return false
	}

	v := raw
	if signed {
		v = signExtendWidth(raw, width)
	}
	h.SetX(rd(insn), v)
	return true
}

func (h *Hart) execStore(bus Bus, insn uint32) bool {
	vaddr := h.GetX(rs1(insn)) + uint32(decodeS(insn))
	width := int(1) << funct3(insn)
	if !h.checkAlign(vaddr, width, CauseStoreMisaligned) {
		return false
	}

	paddr, fault := h.translate(bus, vaddr, mmu.AccessStore)
	if fault != mmu.FaultNone {
		cause := CauseStorePageFault
		if fault == mmu.FaultAccess {
			cause = CauseStoreFault
		}
		h.enterTrap(cause, vaddr)
		h.LastTrap = cause
		return false
	}

	v := h.GetX(rs2(insn))
	if !bus.Store(paddr, width, v) {
		h.enterTrap(CauseStoreFault, vaddr)
		h.LastTrap = CauseStoreFault
		return false
	}
	return true
}

func loadWidth(f3 uint32) (width int, signed bool) {
	switch f3 {
	case 0x0:
		return 1, true
	case 0x1:
		return 2, true
	case 0x2:
		return 4, false
	case 0x4:
		return 1, false
	case 0x5:
		return 2, false
	}
	return 4, false
}

func signExtendWidth(v uint32, width int) uint32 {
	switch width {
	case 1:
		return uint32(int32(int8(v)))
	case 2:
		return uint32(int32(int16(v)))
	default:
		return v
	}
}

func (h *Hart) checkAlign(vaddr uint32, width int, cause TrapCause) bool {
	if vaddr%uint32(width) != 0 {
		h.enterTrap(cause, vaddr)
		h.LastTrap = cause
		return false
	}
	return true
}

// AMO funct5 encodings (RV32A, .W only).
const (
	amoLR      = 0x02
	amoSC      = 0x03
	amoSwap    = 0x01
	amoAdd     = 0x00
	amoXor     = 0x04
	amoAnd     = 0x0c
	amoOr      = 0x08
	amoMin     = 0x10
	amoMax     = 0x14
	amoMinu    = 0x18
	amoMaxu    = 0x1c
)

func (h *Hart) execAmo(bus Bus, insn uint32) bool {
	vaddr := h.GetX(rs1(insn))
	op := funct5(insn)

	misalignCause := CauseStoreMisaligned
	if op == amoLR {
		misalignCause = CauseLoadMisaligned
	}
	if !h.checkAlign(vaddr, 4, misalignCause) {
		return false
	}

	if op == amoLR {
		paddr, fault := h.translate(bus, vaddr, mmu.AccessLoad)
		if fault != mmu.FaultNone {
			cause := CauseLoadPageFault
			if fault == mmu.FaultAccess {
				cause = CauseLoadFault
			}
			h.enterTrap(cause, vaddr)
			h.LastTrap = cause
			return false
		}
		v, ok := bus.Load(paddr, 4)
		if !ok {
			h.enterTrap(CauseLoadFault, vaddr)
			h.LastTrap = CauseLoadFault
			return false
		}
		h.reservationValid = true
		h.reservationAddr = paddr
		h.SetX(rd(insn), v)
		return true
	}

	paddr, fault := h.translate(bus, vaddr, mmu.AccessStore)
	if fault != mmu.FaultNone {
		cause := CauseStorePageFault
		if fault == mmu.FaultAccess {
			cause = CauseStoreFault
		}
		h.enterTrap(cause, vaddr)
		h.LastTrap = cause
		return false
	}

	if op == amoSC {
		matched := h.reservationValid && h.reservationAddr == paddr
		h.reservationValid = false
		if matched {
			ok := bus.Store(paddr, 4, h.GetX(rs2(insn)))
			if !ok {
				h.enterTrap(CauseStoreFault, vaddr)
				h.LastTrap = CauseStoreFault
				return false
			}
			h.SetX(rd(insn), 0)
			return true
		}
		// No matching reservation: SC always fails and never stores.
		h.SetX(rd(insn), 1)
		return true
	}

	old, ok := bus.Load(paddr, 4)
	if !ok {
		h.enterTrap(CauseLoadFault, vaddr)
		h.LastTrap = CauseLoadFault
		return false
	}
	rhs := h.GetX(rs2(insn))
	neu := amoCombine(op, old, rhs)
	if !bus.Store(paddr, 4, neu) {
		h.enterTrap(CauseStoreFault, vaddr)
		h.LastTrap = CauseStoreFault
		return false
	}
	h.SetX(rd(insn), old)
	return true
}

func amoCombine(op uint32, old, rhs uint32) uint32 {
	switch op {
	case amoSwap:
		return rhs
	case amoAdd:
		return old + rhs
	case amoXor:
		return old ^ rhs
	case amoAnd:
		return old & rhs
	case amoOr:
		return old | rhs
	case amoMin:
		if int32(old) < int32(rhs) {
			return old
		}
		return rhs
	case amoMax:
		if int32(old) > int32(rhs) {
			return old
		}
		return rhs
	case amoMinu:
		if old < rhs {
			return old
		}
		return rhs
	case amoMaxu:
		if old > rhs {
			return old
		}
		return rhs
	}
	return old
}
