package hart

import "github.com/rcornwell/rv32emu/emu/mmu"

// TrapCause is scause's encoding: bit 31 set for interrupts, the low
// bits the exception/interrupt code.
type TrapCause uint32

const interruptBit TrapCause = 1 << 31

// Exception causes.
const (
	CauseInsnMisaligned TrapCause = 0
	CauseInsnFault      TrapCause = 1
	CauseIllegalInsn    TrapCause = 2
	CauseBreakpoint     TrapCause = 3
	CauseLoadMisaligned TrapCause = 4
	CauseLoadFault      TrapCause = 5
	CauseStoreMisaligned TrapCause = 6
	CauseStoreFault     TrapCause = 7
	CauseECallU         TrapCause = 8
	CauseECallS         TrapCause = 9
	CauseInsnPageFault  TrapCause = 12
	CauseLoadPageFault  TrapCause = 13
	CauseStorePageFault TrapCause = 15
)

// Interrupt causes (bit 31 already folded in by InterruptCause).
const (
	InterruptSSI TrapCause = 1
	InterruptSTI TrapCause = 5
	InterruptSEI TrapCause = 9
)

func InterruptCause(code TrapCause) TrapCause {
	return code | interruptBit
}

// pendingInterrupt returns the highest-priority pending, enabled
// interrupt, scanning SEI, STI, SSI in that priority order, matching
// the original's "scan sip&sie for the highest set bit" rule.
func (h *Hart) pendingInterrupt() (TrapCause, bool) {
	if h.Sstatus&sstatusSIE == 0 && h.Priv != mmu.User {
		return 0, false
	}
	pending := h.Sip & h.Sie & sieMask
	if pending == 0 {
		return 0, false
	}
	switch {
	case pending&(1<<9) != 0:
		return InterruptCause(InterruptSEI), true
	case pending&(1<<5) != 0:
		return InterruptCause(InterruptSTI), true
	case pending&(1<<1) != 0:
		return InterruptCause(InterruptSSI), true
	}
	return 0, false
}

// enterTrap redirects control to stvec, saving sepc/scause/stval and
// the privilege/interrupt-enable state sret will restore.
func (h *Hart) enterTrap(cause TrapCause, tval uint32) {
	h.Sepc = h.CurrentPC
	h.Scause = uint32(cause)
	h.Stval = tval

	if h.Sstatus&sstatusSIE != 0 {
		h.Sstatus |= sstatusSPIE
	} else {
		h.Sstatus &^= sstatusSPIE
	}
	h.Sstatus &^= sstatusSIE

	if h.Priv == mmu.Supervisor {
		h.Sstatus |= sstatusSPP
	} else {
		h.Sstatus &^= sstatusSPP
	}
	h.Priv = mmu.Supervisor

	// Vectored mode (stvec[0]==1) is not offered to Linux guests by
	// SBI firmware in practice; only direct mode is implemented.
	h.PC = h.Stvec &^ 0x3
}

// sret restores the privilege/interrupt-enable state enterTrap saved
// and resumes at sepc.
func (h *Hart) sret() {
	if h.Sstatus&sstatusSPIE != 0 {
		h.Sstatus |= sstatusSIE
	} else {
		h.Sstatus &^= sstatusSIE
	}
	h.Sstatus |= sstatusSPIE

	if h.Sstatus&sstatusSPP != 0 {
		h.Priv = mmu.Supervisor
	} else {
		h.Priv = mmu.User
	}
	h.Sstatus &^= sstatusSPP

	h.PC = h.Sepc
}
