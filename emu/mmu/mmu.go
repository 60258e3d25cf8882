/*
 * rv32emu - Sv32 page table walker.
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

// Package mmu implements the Sv32 two-level page table walk.
package mmu

// RAM is the subset of physical memory the page-table walker needs. The
// walker addresses it in whatever space its caller's satpPPN/vaddr
// already agree on — the caller owns any physical-to-local address
// translation (e.g. a platform RAM window based at a nonzero physical
// address).
type RAM interface {
	ReadWord(addr uint32) (uint32, bool)
	WriteWord(addr uint32, v uint32) bool
}

// Access distinguishes the three fault variants Sv32 can raise.
type Access int

const (
	AccessFetch Access = iota
	AccessLoad
	AccessStore
)

// Privilege is the two modes Sv32 translation cares about.
type Privilege int

const (
	User Privilege = iota
	Supervisor
)

// Fault enumerates why a translation failed.
type Fault int

const (
	FaultNone Fault = iota
	FaultPage           // no valid leaf found, or permission denied
	FaultAccess         // PTE fetch itself fell outside physical memory
)

// PTE flag bits.
const (
	PteV = 1 << 0
	PteR = 1 << 1
	PteW = 1 << 2
	PteX = 1 << 3
	PteU = 1 << 4
	PteG = 1 << 5
	PteA = 1 << 6
	PteD = 1 << 7
)

const (
	pteSize    = 4
	ptesPerPage = 1024
	pageShift  = 12
	pageSize   = 1 << pageShift
)

// Translate walks satp's page table for vaddr under access/priv, with
// sum (permit S-mode access to U pages) and mxr (make executable-only
// pages readable) taken from sstatus. satpMode false means bare (Sv32
// disabled, identity map); callers check that before calling Translate.
func Translate(ram RAM, satpPPN uint32, vaddr uint32, access Access, priv Privilege, sum, mxr bool) (paddr uint32, fault Fault) {
	vpn := [2]uint32{(vaddr >> 12) & 0x3ff, (vaddr >> 22) & 0x3ff}
	offset := vaddr & (pageSize - 1)

	a := satpPPN * pageSize
	level := 1

	for {
		pteAddr := a + vpn[level]*pteSize
		pteWord, ok := ram.ReadWord(pteAddr)
		if !ok {
			return 0, FaultAccess
		}

		if pteWord&PteV == 0 || (pteWord&PteR == 0 && pteWord&PteW != 0) {
			return 0, FaultPage
		}

		isLeaf := pteWord&(PteR|PteX) != 0
		if !isLeaf {
			if level == 0 {
				return 0, FaultPage
			}
			a = (pteWord >> 10) * pageSize
			level--
			continue
		}

		// Superpage alignment: a level-1 leaf must have PPN[0] == 0.
		if level == 1 && (pteWord>>10)&0x3ff != 0 {
			return 0, FaultPage
		}

		if !checkPermission(pteWord, access, priv, sum, mxr) {
			return 0, FaultPage
		}

		pteWord = setAccessedDirty(pteWord, access)
		_ = ram.WriteWord(pteAddr, pteWord)

		ppn := pteWord >> 10
		var base uint32
		if level == 1 {
			// Superpage: PPN[1] from the PTE, PPN[0] from the VA.
			base = (ppn &^ 0x3ff) * pageSize
			return base | (vaddr & 0x3fffff), FaultNone
		}
		base = ppn * pageSize
		return base | offset, FaultNone
	}
}

func checkPermission(pte uint32, access Access, priv Privilege, sum, mxr bool) bool {
	u := pte&PteU != 0
	if priv == User && !u {
		return false
	}
	if priv == Supervisor && u && (!sum || access == AccessFetch) {
		return false
	}

	switch access {
	case AccessFetch:
		return pte&PteX != 0
	case AccessLoad:
		if pte&PteR != 0 {
			return true
		}
		return mxr && pte&PteX != 0
	case AccessStore:
		return pte&PteW != 0
	}
	return false
}

func setAccessedDirty(pte uint32, access Access) uint32 {
	pte |= PteA
	if access == AccessStore {
		pte |= PteD
	}
	return pte
}
