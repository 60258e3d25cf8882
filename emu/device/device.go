/*
rv32emu Platform bus device interface.

	Copyright (c) 2024, Richard Cornwell

	Permission is hereby granted, free of charge, to any person obtaining a
	copy of this software and associated documentation files (the "Software"),
	to deal in the Software without restriction, including without limitation
	the rights to use, copy, modify, merge, publish, distribute, sublicense,
	and/or sell copies of the Software, and to permit persons to whom the
	Software is furnished to do so, subject to the following conditions:

	The above copyright notice and this permission notice shall be included in
	all copies or substantial portions of the Software.

	THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
	IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
	FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
	RICHARD CORNWELL BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
	IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
	CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/
package device

// Device is the narrow contract a platform bus window plugs into: word
// and byte load/store over its own register window, plus one PLIC line.
// UART, virtio-blk and virtio-net implementations live outside this
// module and satisfy this interface.
type Device interface {
	Load(offset uint32, width int) (value uint32, ok bool)
	Store(offset uint32, width int, value uint32) (ok bool)
	// InterruptPending reports whether the device currently wants its
	// PLIC line asserted.
	InterruptPending() bool
	Shutdown()
}

// Window describes one device's mapping into the physical address space.
type Window struct {
	Base   uint32
	Size   uint32
	IRQ    uint32 // PLIC source number, 0 if the device has none
	Device Device
}

// Pulse is the minimal reference device used to exercise the bus decoder
// and PLIC wiring: one control register raises/lowers its own line, one
// status register reads back whether the line is raised.
type Pulse struct {
	raised bool
}

func NewPulse() *Pulse {
	return &Pulse{}
}

func (p *Pulse) Load(offset uint32, _ int) (uint32, bool) {
	switch offset {
	case 0:
		return 0, true
	case 4:
		if p.raised {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

func (p *Pulse) Store(offset uint32, _ int, value uint32) bool {
	if offset != 0 {
		return false
	}
	p.raised = value&1 != 0
	return true
}

func (p *Pulse) InterruptPending() bool {
	return p.raised
}

func (p *Pulse) Shutdown() {}
