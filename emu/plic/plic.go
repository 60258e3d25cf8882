/*
 * rv32emu - Platform-Level Interrupt Controller.
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

// Package plic implements a no-priority, 32-source Platform-Level
// Interrupt Controller: every source shares one priority, and a hart's
// external-interrupt line is asserted whenever ip&ie is nonzero.
package plic

import "math/bits"

const (
	NumSources = 32

	regPending   = 0x1000
	regEnable    = 0x2000
	regThreshold = 0x200000
	regClaim     = 0x200004
	enableStride = 0x80
	contextSize  = 0x1000
)

// PLIC holds the shared pending/active/masked bitmaps and one
// interrupt-enable bitmap per hart context.
type PLIC struct {
	nHarts  int
	active  uint32 // sources currently asserted by their device
	masked  uint32 // sources claimed but not yet completed
	ip      uint32 // sources pending delivery
	ie      []uint32
}

func New(nHarts int) *PLIC {
	return &PLIC{nHarts: nHarts, ie: make([]uint32, nHarts)}
}

// SetLevel sets or clears source line n (1..31).
func (p *PLIC) SetLevel(source uint32, level bool) {
	if source == 0 || source >= NumSources {
		return
	}
	bit := uint32(1) << source
	if level {
		p.active |= bit
	} else {
		p.active &^= bit
	}
	p.updateInterrupts()
}

func (p *PLIC) updateInterrupts() {
	p.ip |= p.active &^ p.masked
	p.masked |= p.active
}

// Pending reports whether hart's external-interrupt line should be
// asserted: ip & ie[hart] != 0.
func (p *PLIC) Pending(hart int) bool {
	if hart < 0 || hart >= p.nHarts {
		return false
	}
	return p.ip&p.ie[hart] != 0
}

// Claim returns the highest-numbered pending, enabled source for hart
// and clears it from ip, or 0 if none is pending.
func (p *PLIC) Claim(hart int) uint32 {
	if hart < 0 || hart >= p.nHarts {
		return 0
	}
	candidates := p.ip & p.ie[hart]
	if candidates == 0 {
		return 0
	}
	source := uint32(bits.Len32(candidates) - 1)
	p.ip &^= 1 << source
	return source
}

// Complete clears masked for source, re-arming it, but only if it is
// still enabled for hart — matching the original's guard against a
// stray completion from a disabled context.
func (p *PLIC) Complete(hart int, source uint32) {
	if hart < 0 || hart >= p.nHarts || source == 0 || source >= NumSources {
		return
	}
	if p.ie[hart]&(1<<source) != 0 {
		p.masked &^= 1 << source
	}
}

func (p *PLIC) regRead(addr uint32) (uint32, bool) {
	switch {
	case addr >= regPending && addr < regPending+4:
		return p.ip, true
	case addr >= regEnable && addr < regEnable+uint32(p.nHarts)*enableStride:
		hart := (addr - regEnable) / enableStride
		if (addr-regEnable)%enableStride != 0 {
			return 0, false
		}
		return p.ie[hart], true
	case addr >= regThreshold:
		off := addr - regThreshold
		hart := off / contextSize
		if hart >= uint32(p.nHarts) {
			return 0, false
		}
		switch off % contextSize {
		case 0:
			return 0, true // priority threshold hardwired to 0
		case 4:
			return p.Claim(int(hart)), true
		}
	}
	return 0, false
}

func (p *PLIC) regWrite(addr uint32, value uint32) bool {
	switch {
	case addr >= regEnable && addr < regEnable+uint32(p.nHarts)*enableStride:
		if (addr-regEnable)%enableStride != 0 {
			return false
		}
		hart := (addr - regEnable) / enableStride
		p.ie[hart] = value &^ 1 // source 0 does not exist
		p.updateInterrupts()
		return true
	case addr >= regThreshold:
		off := addr - regThreshold
		hart := off / contextSize
		if hart >= uint32(p.nHarts) {
			return false
		}
		switch off % contextSize {
		case 0:
			return true // threshold writes accepted, ignored
		case 4:
			p.Complete(int(hart), value)
			return true
		}
	}
	return false
}

// Load/Store implement the device.Device contract for the PLIC window.
func (p *PLIC) Load(offset uint32, _ int) (uint32, bool) {
	return p.regRead(offset)
}

func (p *PLIC) Store(offset uint32, _ int, value uint32) bool {
	return p.regWrite(offset, value)
}

func (p *PLIC) InterruptPending() bool { return false }
func (p *PLIC) Shutdown()              {}
