package machine

import (
	"github.com/rcornwell/rv32emu/emu/device"
	"github.com/rcornwell/rv32emu/emu/hart"
	"github.com/rcornwell/rv32emu/emu/memory"
)

// busView adapts Machine to hart.Bus: physical fetch/load/store through
// the platform address decoder, cascading RAM, ACLINT, PLIC and
// registered device windows in that priority order.
type busView struct {
	m *Machine
}

// RAM returns the page-table walker's view of guest physical memory:
// full platform physical addresses (as a kernel's page tables hold
// them), translated to the backing RAM's own zero-based offsets.
func (b *busView) RAM() hart.RAMReader { return ramWindow{ram: b.m.ram} }

// ramWindow re-bases platform physical addresses (RAMBase-relative)
// onto the flat, zero-based emu/memory.RAM backing store.
type ramWindow struct {
	ram *memory.RAM
}

func (w ramWindow) ReadWord(addr uint32) (uint32, bool) {
	return w.ram.ReadWord(addr - RAMBase)
}

func (w ramWindow) WriteWord(addr uint32, v uint32) bool {
	return w.ram.WriteWord(addr-RAMBase, v)
}

func (b *busView) Fetch(paddr uint32) (uint32, bool) {
	return b.m.decodeLoad(paddr, 4)
}

func (b *busView) Load(paddr uint32, width int) (uint32, bool) {
	return b.m.decodeLoad(paddr, width)
}

func (b *busView) Store(paddr uint32, width int, value uint32) bool {
	ok := b.m.decodeStore(paddr, width, value)
	if ok {
		b.m.invalidateReservations(paddr, uint32(width))
	}
	return ok
}

const (
	aclintSwiSize    = 0x4000
	aclintMtimerSize = 0x8000
)

func (m *Machine) decodeLoad(addr uint32, width int) (uint32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if addr >= RAMBase && addr < RAMBase+m.ram.Size() {
		return ramLoad(m.ram, addr-RAMBase, width)
	}
	if addr >= ACLINTMswiBase && addr < ACLINTMswiBase+aclintSwiSize {
		return m.mswi.Load(addr-ACLINTMswiBase, width)
	}
	if addr >= ACLINTSswiBase && addr < ACLINTSswiBase+aclintSwiSize {
		return m.sswi.Load(addr-ACLINTSswiBase, width)
	}
	if addr >= ACLINTMtimerBase && addr < ACLINTMtimerBase+aclintMtimerSize {
		return m.mtimer.Load(addr-ACLINTMtimerBase, width)
	}
	if addr >= PLICBase && addr < PLICBase+PLICSize {
		return m.plic.Load(addr-PLICBase, width)
	}
	for _, w := range m.devices {
		if addr >= w.Base && addr < w.Base+w.Size {
			v, ok := w.Device.Load(addr-w.Base, width)
			m.refreshDeviceLine(w)
			return v, ok
		}
	}
	return 0, false
}

func (m *Machine) decodeStore(addr uint32, width int, value uint32) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if addr >= RAMBase && addr < RAMBase+m.ram.Size() {
		return ramStore(m.ram, addr-RAMBase, width, value)
	}
	if addr >= ACLINTMswiBase && addr < ACLINTMswiBase+aclintSwiSize {
		return m.mswi.Store(addr-ACLINTMswiBase, width, value)
	}
	if addr >= ACLINTSswiBase && addr < ACLINTSswiBase+aclintSwiSize {
		return m.sswi.Store(addr-ACLINTSswiBase, width, value)
	}
	if addr >= ACLINTMtimerBase && addr < ACLINTMtimerBase+aclintMtimerSize {
		return m.mtimer.Store(addr-ACLINTMtimerBase, width, value)
	}
	if addr >= PLICBase && addr < PLICBase+PLICSize {
		return m.plic.Store(addr-PLICBase, width, value)
	}
	for _, w := range m.devices {
		if addr >= w.Base && addr < w.Base+w.Size {
			ok := w.Device.Store(addr-w.Base, width, value)
			m.refreshDeviceLine(w)
			return ok
		}
	}
	return false
}

// refreshDeviceLine re-asserts a device's PLIC source after an access;
// called with m.mu already held.
func (m *Machine) refreshDeviceLine(w device.Window) {
	if w.IRQ != 0 {
		m.plic.SetLevel(w.IRQ, w.Device.InterruptPending())
	}
}

func ramLoad(r *memory.RAM, offset uint32, width int) (uint32, bool) {
	switch width {
	case 1:
		v, ok := r.ReadByte(offset)
		return uint32(v), ok
	case 2:
		v, ok := r.ReadHalf(offset)
		return uint32(v), ok
	default:
		return r.ReadWord(offset)
	}
}

func ramStore(r *memory.RAM, offset uint32, width int, value uint32) bool {
	switch width {
	case 1:
		return r.WriteByte(offset, uint8(value))
	case 2:
		return r.WriteHalf(offset, uint16(value))
	default:
		return r.WriteWord(offset, value)
	}
}
