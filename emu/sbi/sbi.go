/*
 * rv32emu - SBI firmware layer.
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

// Package sbi implements the Base/Timer/IPI/RFENCE/HSM/SRST SBI
// extensions a guest OS ecalls into. M-mode firmware is not simulated
// as guest-visible state; ecalls are intercepted directly by the host
// scheduler and dispatched here.
package sbi

import "github.com/rcornwell/rv32emu/emu/hart"

// Extension ids.
const (
	EIDBase    = 0x10
	EIDTimer   = 0x54494d45
	EIDIPI     = 0x735049
	EIDRFence  = 0x52464e43
	EIDHSM     = 0x48534d
	EIDSRST    = 0x53525354
)

// Status codes.
const (
	Success          = 0
	ErrFailed        = -1
	ErrNotSupported  = -2
	ErrInvalidParam  = -3
	ErrAlreadyStarted = -8
)

const specVersion = 0x00020000 // SBI 2.0

// ResetKind mirrors the SRST extension's reset-type argument.
type ResetKind uint32

const (
	ResetShutdown ResetKind = 0
	ResetColdReboot ResetKind = 1
	ResetWarmReboot ResetKind = 2
)

// Platform is everything the SBI layer needs from the machine: hart
// lookups for HSM, per-hart timer programming, and an IPI/reset sink.
type Platform interface {
	NumHarts() int
	Hart(id int) *hart.Hart
	// SetTimer arms hart's next timer interrupt deadline (ACLINT mtimecmp).
	SetTimer(hartID int, deadline uint64) bool
	// SendIPI raises the supervisor-software-interrupt line on hart.
	SendIPI(hartID int) bool
	// StartHart transitions a STOPPED hart to START_PENDING at startAddr
	// with a1=opaque, returning false if the hart cannot be started.
	StartHart(hartID int, startAddr uint32, opaque uint32) bool
	// RequestReset records a host-visible shutdown/reboot request.
	RequestReset(kind ResetKind, reason uint32)
}

// Call dispatches the ecall currently parked on h (h.ECallA7/ECallA6)
// and writes a0/a1 with the result, matching the SBI calling
// convention. h must have HSM state Started.
func Call(p Platform, h *hart.Hart) {
	eid := h.ECallA7
	fid := h.ECallA6
	a0 := h.GetX(10)
	a1 := h.GetX(11)

	var err int32
	var value uint32

	switch eid {
	case EIDBase:
		err, value = base(fid, a0)
	case EIDTimer:
		err, value = timer(p, h, fid, a0, a1)
	case EIDIPI:
		err, value = ipi(p, fid, a0, a1)
	case EIDRFence:
		err, value = rfence(fid)
	case EIDHSM:
		err, value = hsm(p, int(h.ID), fid, a0, a1, a2(h))
	case EIDSRST:
		err, value = srst(p, fid, a0, a1)
	default:
		err, value = ErrNotSupported, 0
	}

	h.SetX(10, uint32(err))
	h.SetX(11, value)
}

func a2(h *hart.Hart) uint32 { return h.GetX(12) }

func base(fid uint32, a0 uint32) (int32, uint32) {
	switch fid {
	case 0:
		return Success, specVersion
	case 1:
		return Success, 0 // implementation id: not registered upstream
	case 2:
		return Success, 1 // implementation version
	case 3: // probe_extension
		switch a0 {
		case EIDBase, EIDTimer, EIDIPI, EIDRFence, EIDHSM, EIDSRST:
			return Success, 1
		default:
			return Success, 0
		}
	case 4, 5, 6:
		return Success, 0
	}
	return ErrNotSupported, 0
}

func timer(p Platform, h *hart.Hart, fid uint32, a0, a1 uint32) (int32, uint32) {
	if fid != 0 {
		return ErrNotSupported, 0
	}
	deadline := uint64(a0) | uint64(a1)<<32
	p.SetTimer(int(h.ID), deadline)
	return Success, 0
}

func ipi(p Platform, fid uint32, hartMask, hartMaskBase uint32) (int32, uint32) {
	if fid != 0 {
		return ErrNotSupported, 0
	}
	if hartMaskBase == 0xffffffff {
		for id := 0; id < p.NumHarts(); id++ {
			p.SendIPI(id)
		}
		return Success, 0
	}
	for bit := 0; bit < 32; bit++ {
		if hartMask&(1<<uint(bit)) != 0 {
			p.SendIPI(int(hartMaskBase) + bit)
		}
	}
	return Success, 0
}

func rfence(fid uint32) (int32, uint32) {
	switch fid {
	case 0, 1, 2: // remote_fence_i / sfence_vma / sfence_vma_asid
		return Success, 0 // no TLB cache to invalidate in this model
	}
	return ErrNotSupported, 0
}

func hsm(p Platform, self int, fid uint32, a0, a1, a2 uint32) (int32, uint32) {
	switch fid {
	case 0: // hart_start
		target := int(a0)
		if target < 0 || target >= p.NumHarts() {
			return ErrInvalidParam, 0
		}
		th := p.Hart(target)
		if th.HSM != hart.HSMStopped {
			return ErrAlreadyStarted, 0
		}
		if !p.StartHart(target, a1, a2) {
			return ErrFailed, 0
		}
		return Success, 0

	case 1: // hart_stop: a calling hart stops itself
		h := p.Hart(self)
		h.HSM = hart.HSMStopPending
		return Success, 0

	case 2: // hart_get_status
		target := int(a0)
		if target < 0 || target >= p.NumHarts() {
			return ErrInvalidParam, 0
		}
		return Success, uint32(p.Hart(target).HSM)

	case 3: // hart_suspend
		h := p.Hart(self)
		h.HSM = hart.HSMSuspended
		return Success, 0
	}
	return ErrNotSupported, 0
}

func srst(p Platform, fid uint32, a0, a1 uint32) (int32, uint32) {
	if fid != 0 {
		return ErrNotSupported, 0
	}
	p.RequestReset(ResetKind(a0), a1)
	return Success, 0
}
