/*
 * rv32emu - Platform aggregate: address decoder and N-hart scheduler.
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

// Package machine aggregates RAM, harts, ACLINT, PLIC and devices behind
// one platform address decoder, and drives the hart scheduler.
package machine

import (
	"log/slog"
	"sync"

	"github.com/rcornwell/rv32emu/emu/aclint"
	"github.com/rcornwell/rv32emu/emu/clock"
	"github.com/rcornwell/rv32emu/emu/device"
	"github.com/rcornwell/rv32emu/emu/hart"
	"github.com/rcornwell/rv32emu/emu/memory"
	"github.com/rcornwell/rv32emu/emu/plic"
	"github.com/rcornwell/rv32emu/emu/sbi"
)

// Default platform memory map.
const (
	RAMBase          = 0x80000000
	ACLINTMswiBase   = 0x02000000
	ACLINTSswiBase   = 0x02004000
	ACLINTMtimerBase = 0x02010000
	PLICBase         = 0x0c000000
	PLICSize         = 0x04000000

	PLICUARTSource = 1 // the reference pulse device's PLIC source number
)

// Config describes how to build a Machine.
type Config struct {
	NHarts  int
	RAMSize uint32
	Kernel  []byte
	Initrd  []byte
	DTB     []byte
	// KernelAddr/InitrdAddr/DTBAddr are physical load addresses; harts
	// boot with a1 pointing at DTBAddr per the Linux/RISC-V boot ABI.
	KernelAddr uint32
	InitrdAddr uint32
	DTBAddr    uint32
}

// Machine is the full platform: memory, harts, interrupt fabric and bus.
type Machine struct {
	mu sync.Mutex

	ram    *memory.RAM
	harts  []*hart.Hart
	mtimer *aclint.MTimer
	mswi   *aclint.MSWI
	sswi   *aclint.SSWI
	plic   *plic.PLIC

	devices []device.Window

	clock *clock.Clock

	resetRequested bool
	resetKind      sbi.ResetKind
	resetReason    uint32

	runners []*hartRunner

	paused      bool
	resume      chan struct{}
	breakpoints map[uint32]bool
}

// New builds a Machine from cfg; hart 0 boots STARTED at cfg.KernelAddr,
// every other hart boots STOPPED awaiting an SBI HSM hart_start.
func New(cfg Config) *Machine {
	if cfg.NHarts <= 0 {
		cfg.NHarts = 1
	}

	m := &Machine{
		ram:    memory.New(cfg.RAMSize),
		mtimer: aclint.NewMTimer(cfg.NHarts),
		mswi:   aclint.NewMSWI(cfg.NHarts),
		sswi:   aclint.NewSSWI(cfg.NHarts),
		plic:   plic.New(plic.NumSources),
	}

	if cfg.Kernel != nil {
		m.ram.LoadImage(cfg.KernelAddr-RAMBase, cfg.Kernel)
	}
	if cfg.Initrd != nil {
		m.ram.LoadImage(cfg.InitrdAddr-RAMBase, cfg.Initrd)
	}
	if cfg.DTB != nil {
		m.ram.LoadImage(cfg.DTBAddr-RAMBase, cfg.DTB)
	}

	for i := 0; i < cfg.NHarts; i++ {
		h := hart.New(uint32(i))
		if i == 0 {
			h.PC = cfg.KernelAddr
			h.HSM = hart.HSMStarted
			h.SetX(11, cfg.DTBAddr)
		}
		m.harts = append(m.harts, h)
	}

	m.clock = clock.New(func() {
		m.mu.Lock()
		m.mtimer.SetTime(m.clock.Now())
		m.mu.Unlock()
	})

	m.runners = make([]*hartRunner, cfg.NHarts)
	for i, h := range m.harts {
		m.runners[i] = newHartRunner(h, &busView{m: m})
	}

	m.resume = make(chan struct{}, 1)
	m.breakpoints = make(map[uint32]bool)

	return m
}

// AttachDevice registers a device window in the platform address space.
func (m *Machine) AttachDevice(base, size, irq uint32, d device.Device) {
	m.devices = append(m.devices, device.Window{Base: base, Size: size, IRQ: irq, Device: d})
}

func (m *Machine) RAM() *memory.RAM { return m.ram }

// Clock exposes the platform's mtime source, for tests and the monitor
// console driving ACLINT ticks without a real wall-clock wait.
func (m *Machine) Clock() *clock.Clock { return m.clock }

// Bus returns the platform's physical bus, for single-stepping a hart
// directly from the monitor console or a test.
func (m *Machine) Bus() hart.Bus { return &busView{m: m} }

// NumHarts implements sbi.Platform.
func (m *Machine) NumHarts() int { return len(m.harts) }

// Hart implements sbi.Platform.
func (m *Machine) Hart(id int) *hart.Hart { return m.harts[id] }

// SetTimer implements sbi.Platform.
func (m *Machine) SetTimer(hartID int, deadline uint64) bool {
	if hartID < 0 || hartID >= len(m.harts) {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mtimer.Store(uint32(hartID)*8, 4, uint32(deadline))
	m.mtimer.Store(uint32(hartID)*8+4, 4, uint32(deadline>>32))
	return true
}

// SendIPI implements sbi.Platform: raises the SSWI line for hartID.
func (m *Machine) SendIPI(hartID int) bool {
	if hartID < 0 || hartID >= len(m.harts) {
		return false
	}
	m.mu.Lock()
	m.sswi.Set(hartID, true)
	m.mu.Unlock()
	return true
}

// StartHart implements sbi.Platform.
func (m *Machine) StartHart(hartID int, startAddr, opaque uint32) bool {
	if hartID < 0 || hartID >= len(m.harts) {
		return false
	}
	h := m.harts[hartID]
	h.PC = startAddr
	h.SetX(10, uint32(hartID))
	h.SetX(11, opaque)
	h.HSM = hart.HSMStartPending
	return true
}

// RequestReset implements sbi.Platform.
func (m *Machine) RequestReset(kind sbi.ResetKind, reason uint32) {
	m.mu.Lock()
	m.resetRequested = true
	m.resetKind = kind
	m.resetReason = reason
	m.mu.Unlock()
	slog.Info("sbi system reset requested", "kind", kind, "reason", reason)
}

// ResetRequested reports whether a guest asked to shut down or reboot.
func (m *Machine) ResetRequested() (sbi.ResetKind, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resetKind, m.resetRequested
}

// SyncClock copies the platform clock's tick count into ACLINT mtime,
// recomputing every hart's timer-pending bit. The background ticker
// does this itself once started; tests drive it directly after calling
// Clock().Tick() without starting the ticker.
func (m *Machine) SyncClock() {
	m.mu.Lock()
	m.mtimer.SetTime(m.clock.Now())
	m.mu.Unlock()
}

func (m *Machine) invalidateReservations(addr uint32, width uint32) {
	for _, h := range m.harts {
		if ra, ok := h.ReservationAddr(); ok && addr < ra+4 && ra < addr+width {
			h.InvalidateReservation()
		}
	}
}

// AddBreakpoint/RemoveBreakpoint/Breakpoints/HasBreakpoints/Paused/Pause/
// Resume give the monitor console a way to stop the scheduler at a PC
// without it needing to reach into Machine's internals.

func (m *Machine) AddBreakpoint(addr uint32) {
	m.mu.Lock()
	m.breakpoints[addr] = true
	m.mu.Unlock()
}

func (m *Machine) RemoveBreakpoint(addr uint32) {
	m.mu.Lock()
	delete(m.breakpoints, addr)
	m.mu.Unlock()
}

func (m *Machine) Breakpoints() []uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint32, 0, len(m.breakpoints))
	for addr := range m.breakpoints {
		out = append(out, addr)
	}
	return out
}

func (m *Machine) hasBreakpoints() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.breakpoints) > 0
}

// hitBreakpoint reports whether any started hart's PC currently sits on
// a breakpoint; called between rounds, never mid-round.
func (m *Machine) hitBreakpoint() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.harts {
		if h.HSM == hart.HSMStarted && m.breakpoints[h.PC] {
			return true
		}
	}
	return false
}

// Paused reports whether Run has stopped the scheduler at a breakpoint
// or an explicit monitor Pause.
func (m *Machine) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Pause stops the scheduler after its current round.
func (m *Machine) Pause() {
	m.mu.Lock()
	m.paused = true
	m.mu.Unlock()
}

// Resume wakes a scheduler parked by Pause or a breakpoint stop.
func (m *Machine) Resume() {
	m.mu.Lock()
	wasPaused := m.paused
	m.paused = false
	m.mu.Unlock()
	if wasPaused {
		select {
		case m.resume <- struct{}{}:
		default:
		}
	}
}
