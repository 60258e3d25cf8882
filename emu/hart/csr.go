package hart

import "github.com/rcornwell/rv32emu/emu/mmu"

// Supervisor CSR addresses.
const (
	csrSstatus    = 0x100
	csrSie        = 0x104
	csrStvec      = 0x105
	csrScounteren = 0x106
	csrSscratch   = 0x140
	csrSepc       = 0x141
	csrScause     = 0x142
	csrStval      = 0x143
	csrSip        = 0x144
	csrSatp       = 0x180

	csrCycleBase   = 0xc00
	csrCycleHBase  = 0xc80
	csrCounterLast = 0xc1f
)

// sstatus bit positions relevant to S-mode.
const (
	sstatusSIE  = 1 << 1
	sstatusSPIE = 1 << 5
	sstatusSPP  = 1 << 8
	sstatusSUM  = 1 << 18
	sstatusMXR  = 1 << 19
)

// sstatusMask covers the bits a Sv32/S-mode-only implementation defines;
// writes are masked to these bits, reads return only these bits set.
const sstatusMask = sstatusSIE | sstatusSPIE | sstatusSPP | sstatusSUM | sstatusMXR

// sipWritable is the subset of sip a supervisor CSR write may change
// directly; STIP/SEIP are driven by ACLINT/PLIC and read-only to software.
const sipWritable = 1 << 1 // SSIP

// sieMask covers the three interrupt-enable bits Sv32 S-mode defines.
const sieMask = (1 << 1) | (1 << 5) | (1 << 9) // SSIE, STIE, SEIE

// CSRRead returns the value of CSR addr and whether it exists.
func (h *Hart) CSRRead(addr uint32) (uint32, bool) {
	switch addr {
	case csrSstatus:
		return h.Sstatus & sstatusMask, true
	case csrSie:
		return h.Sie & sieMask, true
	case csrStvec:
		return h.Stvec, true
	case csrScounteren:
		return h.Scounteren, true
	case csrSscratch:
		return h.Sscratch, true
	case csrSepc:
		return h.Sepc, true
	case csrScause:
		return h.Scause, true
	case csrStval:
		return h.Stval, true
	case csrSip:
		return h.Sip & sieMask, true
	case csrSatp:
		return h.Satp, true
	default:
		if addr >= csrCycleBase && addr <= csrCounterLast {
			if !h.counterAllowed(addr - csrCycleBase) {
				return 0, false
			}
			return uint32(h.Retired), true
		}
		if addr >= csrCycleHBase && addr <= csrCycleHBase+0x1f {
			if !h.counterAllowed(addr - csrCycleHBase) {
				return 0, false
			}
			return uint32(h.Retired >> 32), true
		}
		return 0, false
	}
}

// counterAllowed reports whether a U-mode read of counter idx is
// permitted by scounteren; S-mode may always read the counters.
func (h *Hart) counterAllowed(idx uint32) bool {
	if h.Priv != mmu.User {
		return true
	}
	return h.Scounteren&(1<<idx) != 0
}

// CSRWrite sets CSR addr to value and reports whether it exists.
// Counter CSRs (0xC00-0xC1F, 0xC80-0xC9F) are read-only per spec.
func (h *Hart) CSRWrite(addr uint32, value uint32) bool {
	switch addr {
	case csrSstatus:
		h.Sstatus = (h.Sstatus &^ sstatusMask) | (value & sstatusMask)
		return true
	case csrSie:
		h.Sie = (h.Sie &^ sieMask) | (value & sieMask)
		return true
	case csrStvec:
		h.Stvec = value &^ 0x2 // reserved mode bit
		return true
	case csrScounteren:
		h.Scounteren = value
		return true
	case csrSscratch:
		h.Sscratch = value
		return true
	case csrSepc:
		h.Sepc = value &^ 1
		return true
	case csrScause:
		h.Scause = value
		return true
	case csrStval:
		h.Stval = value
		return true
	case csrSip:
		h.Sip = (h.Sip &^ sipWritable) | (value & sipWritable)
		return true
	case csrSatp:
		h.Satp = value
		return true
	default:
		return false
	}
}
