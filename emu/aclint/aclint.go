/*
 * rv32emu - ACLINT MTIMER, MSWI and SSWI.
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

// Package aclint implements the ACLINT MTIMER/MSWI/SSWI register windows.
package aclint

const (
	// MTIMER window.
	MTimerSize     = 0x8000
	mtimecmpStride = 8
	mtimeOffset    = 0x7ff8

	// MSWI / SSWI windows: one 32-bit msip/ssip word per hart, 4 bytes
	// apart, LSB significant only.
	SwiSize   = 0x4000
	swiStride = 4
)

// MTimer models the ACLINT MTIMER aperture: a shared mtime counter and
// one mtimecmp register per hart. A hart's timer interrupt is pending
// whenever mtime >= mtimecmp[hart].
type MTimer struct {
	nHarts   int
	mtime    uint64
	mtimecmp []uint64
	pending  []bool
}

func NewMTimer(nHarts int) *MTimer {
	return &MTimer{
		nHarts:   nHarts,
		mtimecmp: make([]uint64, nHarts),
		pending:  make([]bool, nHarts),
	}
}

// SetTime sets the shared mtime value (driven by emu/clock) and
// recomputes every hart's pending bit.
func (m *MTimer) SetTime(t uint64) {
	m.mtime = t
	m.updateInterrupts()
}

func (m *MTimer) Time() uint64 {
	return m.mtime
}

// Pending reports whether hart's timer interrupt line is asserted.
func (m *MTimer) Pending(hart int) bool {
	if hart < 0 || hart >= m.nHarts {
		return false
	}
	return m.pending[hart]
}

// NextInterrupt returns the smallest mtimecmp across all harts whose
// comparator is still ahead of mtime, the deadline §4.x calls
// "next_interrupt_at"; ok is false if every hart is already pending or
// there are no harts.
func (m *MTimer) NextInterrupt() (deadline uint64, ok bool) {
	found := false
	var best uint64
	for h := 0; h < m.nHarts; h++ {
		if m.pending[h] {
			continue
		}
		if !found || m.mtimecmp[h] < best {
			best = m.mtimecmp[h]
			found = true
		}
	}
	return best, found
}

func (m *MTimer) updateInterrupts() {
	for h := 0; h < m.nHarts; h++ {
		m.pending[h] = m.mtime >= m.mtimecmp[h]
	}
}

func (m *MTimer) regRead(addr uint32) (uint32, bool) {
	if addr >= mtimeOffset && addr < mtimeOffset+8 {
		if addr&0x4 != 0 {
			return uint32(m.mtime >> 32), true
		}
		return uint32(m.mtime), true
	}
	if addr >= uint32(m.nHarts)*mtimecmpStride {
		return 0, false
	}
	hart := addr / mtimecmpStride
	hi := addr&0x4 != 0
	v := m.mtimecmp[hart]
	if hi {
		return uint32(v >> 32), true
	}
	return uint32(v), true
}

func (m *MTimer) regWrite(addr uint32, value uint32) bool {
	if addr >= mtimeOffset && addr < mtimeOffset+8 {
		if addr&0x4 != 0 {
			m.mtime = (m.mtime & 0xffffffff) | uint64(value)<<32
		} else {
			m.mtime = (m.mtime &^ 0xffffffff) | uint64(value)
		}
		m.updateInterrupts()
		return true
	}
	if addr >= uint32(m.nHarts)*mtimecmpStride {
		return false
	}
	hart := addr / mtimecmpStride
	if addr&0x4 != 0 {
		m.mtimecmp[hart] = (m.mtimecmp[hart] & 0xffffffff) | uint64(value)<<32
	} else {
		m.mtimecmp[hart] = (m.mtimecmp[hart] &^ 0xffffffff) | uint64(value)
	}
	m.updateInterrupts()
	return true
}

// Load implements the device.Device contract for the MTIMER window.
func (m *MTimer) Load(offset uint32, _ int) (uint32, bool) {
	return m.regRead(offset)
}

func (m *MTimer) Store(offset uint32, _ int, value uint32) bool {
	return m.regWrite(offset, value)
}

func (m *MTimer) InterruptPending() bool { return false }
func (m *MTimer) Shutdown()              {}

// swi is the shared implementation behind MSWI and SSWI: one
// level-triggered, LSB-only word per hart.
type swi struct {
	nHarts int
	bits   []bool
}

func newSwi(nHarts int) swi {
	return swi{nHarts: nHarts, bits: make([]bool, nHarts)}
}

func (s *swi) Pending(hart int) bool {
	if hart < 0 || hart >= s.nHarts {
		return false
	}
	return s.bits[hart]
}

func (s *swi) Set(hart int, v bool) {
	if hart < 0 || hart >= s.nHarts {
		return
	}
	s.bits[hart] = v
}

func (s *swi) Load(offset uint32, _ int) (uint32, bool) {
	hart := offset / swiStride
	if hart >= uint32(s.nHarts) || offset%swiStride != 0 {
		return 0, false
	}
	if s.bits[hart] {
		return 1, true
	}
	return 0, true
}

func (s *swi) Store(offset uint32, _ int, value uint32) bool {
	hart := offset / swiStride
	if hart >= uint32(s.nHarts) || offset%swiStride != 0 {
		return false
	}
	s.bits[hart] = value&1 != 0
	return true
}

// MSWI is the machine-level software-interrupt window. This model never
// simulates M-mode, so MSIP has no CSR consumer; the register window is
// kept for platform-memory-map fidelity and SBI implementations that
// probe for its presence.
type MSWI struct{ swi }

func NewMSWI(nHarts int) *MSWI { return &MSWI{newSwi(nHarts)} }

func (m *MSWI) InterruptPending() bool { return false }
func (m *MSWI) Shutdown()              {}

// SSWI is the supervisor-level software-interrupt window: the SBI IPI
// extension raises a target hart's bit here, which feeds sip.SSIP.
type SSWI struct{ swi }

func NewSSWI(nHarts int) *SSWI { return &SSWI{newSwi(nHarts)} }

func (s *SSWI) InterruptPending() bool { return false }
func (s *SSWI) Shutdown()              {}
