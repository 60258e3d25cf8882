/*
 * rv32emu - Flat physical RAM and typed accessors.
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

// Package memory implements the flat guest RAM backing the platform's
// physical address space.
package memory

// RAM is byte-addressable guest physical memory starting at address 0.
type RAM struct {
	bytes []byte
}

// New allocates size bytes of guest RAM.
func New(size uint32) *RAM {
	return &RAM{bytes: make([]byte, size)}
}

// Size returns the RAM size in bytes.
func (r *RAM) Size() uint32 {
	return uint32(len(r.bytes))
}

// CheckAddr reports whether addr..addr+width is entirely inside RAM.
func (r *RAM) CheckAddr(addr uint32, width uint32) bool {
	if addr+width < addr {
		return false
	}
	return addr+width <= r.Size()
}

func (r *RAM) ReadByte(addr uint32) (uint8, bool) {
	if !r.CheckAddr(addr, 1) {
		return 0, false
	}
	return r.bytes[addr], true
}

func (r *RAM) WriteByte(addr uint32, v uint8) bool {
	if !r.CheckAddr(addr, 1) {
		return false
	}
	r.bytes[addr] = v
	return true
}

func (r *RAM) ReadHalf(addr uint32) (uint16, bool) {
	if !r.CheckAddr(addr, 2) {
		return 0, false
	}
	return uint16(r.bytes[addr]) | uint16(r.bytes[addr+1])<<8, true
}

func (r *RAM) WriteHalf(addr uint32, v uint16) bool {
	if !r.CheckAddr(addr, 2) {
		return false
	}
	r.bytes[addr] = byte(v)
	r.bytes[addr+1] = byte(v >> 8)
	return true
}

func (r *RAM) ReadWord(addr uint32) (uint32, bool) {
	if !r.CheckAddr(addr, 4) {
		return 0, false
	}
	return uint32(r.bytes[addr]) | uint32(r.bytes[addr+1])<<8 |
		uint32(r.bytes[addr+2])<<16 | uint32(r.bytes[addr+3])<<24, true
}

func (r *RAM) WriteWord(addr uint32, v uint32) bool {
	if !r.CheckAddr(addr, 4) {
		return false
	}
	r.bytes[addr] = byte(v)
	r.bytes[addr+1] = byte(v >> 8)
	r.bytes[addr+2] = byte(v >> 16)
	r.bytes[addr+3] = byte(v >> 24)
	return true
}

// LoadImage copies data into RAM starting at addr, for kernel/initrd/dtb
// loading. Returns false if the image does not fit.
func (r *RAM) LoadImage(addr uint32, data []byte) bool {
	if !r.CheckAddr(addr, uint32(len(data))) {
		return false
	}
	copy(r.bytes[addr:], data)
	return true
}
