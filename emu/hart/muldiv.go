package hart

func (h *Hart) execMulDiv(insn uint32) {
	a := h.GetX(rs1(insn))
	b := h.GetX(rs2(insn))
	var v uint32
	switch funct3(insn) {
	case 0x0: // MUL
		v = a * b
	case 0x1: // MULH
		v = uint32((int64(int32(a)) * int64(int32(b))) >> 32)
	case 0x2: // MULHSU
		v = uint32((int64(int32(a)) * int64(uint64(b))) >> 32)
	case 0x3: // MULHU
		v = uint32((uint64(a) * uint64(b)) >> 32)
	case 0x4: // DIV
		v = divS32(int32(a), int32(b))
	case 0x5: // DIVU
		v = divU32(a, b)
	case 0x6: // REM
		v = remS32(int32(a), int32(b))
	case 0x7: // REMU
		v = remU32(a, b)
	}
	h.SetX(rd(insn), v)
}

func divS32(a, b int32) uint32 {
	if b == 0 {
		return 0xffffffff
	}
	if a == -0x80000000 && b == -1 {
		return uint32(a)
	}
	return uint32(a / b)
}

func remS32(a, b int32) uint32 {
	if b == 0 {
		return uint32(a)
	}
	if a == -0x80000000 && b == -1 {
		return 0
	}
	return uint32(a % b)
}

func divU32(a, b uint32) uint32 {
	if b == 0 {
		return 0xffffffff
	}
	return a / b
}

func remU32(a, b uint32) uint32 {
	if b == 0 {
		return a
	}
	return a % b
}
