/*
 * rv32emu - Per-hart register file, decode/execute loop and trap pipeline.
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package hart implements a single RV32 IMA + Zicsr + Zifencei hart:
// its register file, Sv32-aware fetch/load/store, decode/execute, and
// the trap pipeline that feeds the SBI/HSM layer above it.
package hart

import "github.com/rcornwell/rv32emu/emu/mmu"

// HSMState mirrors the SBI HSM extension's per-hart lifecycle states.
type HSMState int

const (
	HSMStopped HSMState = iota
	HSMStartPending
	HSMStarted
	HSMStopPending
	HSMSuspended
)

// Bus is everything a hart needs from the platform to execute: physical
// fetch/load/store plus the backing RAM for page-table walks. Virtual
// addresses are translated by the hart itself via emu/mmu before any
// Bus call.
type Bus interface {
	RAM() RAMReader
	Fetch(paddr uint32) (uint32, bool)
	Load(paddr uint32, width int) (uint32, bool)
	Store(paddr uint32, width int, value uint32) bool
}

// RAMReader is the subset of emu/memory.RAM the MMU walker needs.
type RAMReader interface {
	ReadWord(addr uint32) (uint32, bool)
	WriteWord(addr uint32, v uint32) bool
}

// StepResult reports what a single Step call produced, so the machine
// scheduler knows whether to keep running the hart, hand an ecall to
// SBI, or park it on WFI.
type StepResult int

const (
	StepOK StepResult = iota
	StepTrap
	StepECall
	StepWFI
)

// Hart is one RISC-V hart's architectural state.
type Hart struct {
	ID uint32

	X  [32]uint32
	PC uint32

	// CurrentPC is the address of the instruction currently being
	// executed; a trap saves it into sepc.
	CurrentPC uint32

	Priv mmu.Privilege

	// Supervisor CSRs.
	Sstatus    uint32
	Sie        uint32
	Sip        uint32
	Stvec      uint32
	Sscratch   uint32
	Sepc       uint32
	Scause     uint32
	Stval      uint32
	Satp       uint32
	Scounteren uint32

	Retired uint64

	reservationValid bool
	reservationAddr  uint32

	HSM HSMState

	LastTrap TrapCause
	ECallA7  uint32 // SBI extension id, valid after StepECall
	ECallA6  uint32 // SBI function id, valid after StepECall
}

// New creates a hart at its reset state: PC 0, supervisor mode, HSM
// stopped. machine.New sets hart 0's boot PC and marks it started.
func New(id uint32) *Hart {
	return &Hart{ID: id, Priv: mmu.Supervisor, HSM: HSMStopped}
}

// SetX writes GPR n, silently discarding writes to x0 per the RV32
// convention that x0 is hard-wired to zero.
func (h *Hart) SetX(n int, v uint32) {
	if n == 0 {
		return
	}
	h.X[n] = v
}

// GetX reads GPR n; x0 always reads as zero.
func (h *Hart) GetX(n int) uint32 {
	if n == 0 {
		return 0
	}
	return h.X[n]
}

// InvalidateReservation clears this hart's LR/SC reservation, called by
// the machine whenever any hart's store overlaps the reserved word.
func (h *Hart) InvalidateReservation() {
	h.reservationValid = false
}

// ReservationAddr returns the currently reserved physical address and whether a
// reservation is held.
func (h *Hart) ReservationAddr() (uint32, bool) {
	return h.reservationAddr, h.reservationValid
}

func (h *Hart) satpMode() bool {
	return h.Satp&(1<<31) != 0
}

func (h *Hart) translate(bus Bus, vaddr uint32, access mmu.Access) (uint32, mmu.Fault) {
	if !h.satpMode() {
		return vaddr, mmu.FaultNone
	}
	sum := h.Sstatus&sstatusSUM != 0
	mxr := h.Sstatus&sstatusMXR != 0
	ppn := h.Satp & 0x3fffff
	return mmu.Translate(bus.RAM(), ppn, vaddr, access, h.Priv, sum, mxr)
}
