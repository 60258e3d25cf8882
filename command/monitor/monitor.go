/*
 * rv32emu - Monitor console command parser.
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

// Package monitor implements the operator console: a small line command
// language for inspecting and stepping a running machine.Machine.
package monitor

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/rcornwell/rv32emu/emu/hart"
	"github.com/rcornwell/rv32emu/emu/machine"
)

type cmd struct {
	name    string // Command name.
	min     int    // Minimum unambiguous prefix length.
	process func(*cmdLine, *machine.Machine) (string, bool, error)
}

// cmdLine is a position-cursor tokenizer over one command line.
type cmdLine struct {
	line string
	pos  int
}

var cmdList = []cmd{
	{name: "reg", min: 1, process: cmdReg},
	{name: "mem", min: 1, process: cmdMem},
	{name: "break", min: 3, process: cmdBreak},
	{name: "breaks", min: 6, process: cmdBreaks},
	{name: "delete", min: 3, process: cmdDelete},
	{name: "step", min: 1, process: cmdStep},
	{name: "continue", min: 1, process: cmdContinue},
	{name: "harts", min: 2, process: cmdHarts},
	{name: "quit", min: 1, process: cmdQuit},
}

// ProcessCommand executes one command line against m, returning its
// textual output, whether the console should exit, and any parse or
// execution error.
func ProcessCommand(commandLine string, m *machine.Machine) (string, bool, error) {
	line := cmdLine{line: commandLine}
	name := line.getWord()

	match := matchList(name)
	if len(match) == 0 {
		return "", false, errors.New("command not found: " + name)
	}
	if len(match) > 1 {
		return "", false, errors.New("ambiguous command: " + name)
	}
	return match[0].process(&line, m)
}

// CompleteCmd returns the command names matching a partial line, for
// liner's tab completion.
func CompleteCmd(commandLine string) []string {
	line := cmdLine{line: commandLine}
	name := line.getWord()
	if !line.isEOL() {
		return nil
	}
	matches := matchList(name)
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.name
	}
	return out
}

func matchCommand(c cmd, name string) bool {
	if len(name) > len(c.name) || len(name) < c.min {
		return false
	}
	return c.name[:len(name)] == name
}

func matchList(name string) []cmd {
	if name == "" {
		return nil
	}
	var out []cmd
	for _, c := range cmdList {
		if matchCommand(c, name) {
			out = append(out, c)
		}
	}
	return out
}

func (l *cmdLine) skipSpace() {
	for l.pos < len(l.line) && unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
}

func (l *cmdLine) isEOL() bool {
	return l.pos >= len(l.line)
}

// getWord reads the next run of non-space characters, lower-cased.
func (l *cmdLine) getWord() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.line) && !unicode.IsSpace(rune(l.line[l.pos])) {
		l.pos++
	}
	return strings.ToLower(l.line[start:l.pos])
}

// getHart parses an optional trailing hart index, defaulting to 0.
func getHart(l *cmdLine) (int, error) {
	w := l.getWord()
	if w == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(w)
	if err != nil {
		return 0, fmt.Errorf("invalid hart index %q", w)
	}
	return n, nil
}

// parseAddr accepts a bare or 0x-prefixed hex address.
func parseAddr(w string) (uint32, error) {
	w = strings.TrimPrefix(strings.TrimPrefix(w, "0x"), "0X")
	n, err := strconv.ParseUint(w, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q", w)
	}
	return uint32(n), nil
}

func privName(p hart.HSMState) string {
	switch p {
	case hart.HSMStopped:
		return "STOPPED"
	case hart.HSMStartPending:
		return "START_PENDING"
	case hart.HSMStarted:
		return "STARTED"
	case hart.HSMStopPending:
		return "STOP_PENDING"
	case hart.HSMSuspended:
		return "SUSPENDED"
	default:
		return "UNKNOWN"
	}
}

func cmdReg(l *cmdLine, m *machine.Machine) (string, bool, error) {
	id, err := getHart(l)
	if err != nil {
		return "", false, err
	}
	if id < 0 || id >= m.NumHarts() {
		return "", false, fmt.Errorf("no such hart: %d", id)
	}
	h := m.Hart(id)

	var b strings.Builder
	fmt.Fprintf(&b, "hart%d pc=%08x priv=%d hsm=%s\n", id, h.PC, h.Priv, privName(h.HSM))
	for i := 0; i < 32; i += 4 {
		fmt.Fprintf(&b, "x%-2d=%08x x%-2d=%08x x%-2d=%08x x%-2d=%08x\n",
			i, h.X[i], i+1, h.X[i+1], i+2, h.X[i+2], i+3, h.X[i+3])
	}
	fmt.Fprintf(&b, "sstatus=%08x sie=%08x sip=%08x stvec=%08x\n", h.Sstatus, h.Sie, h.Sip, h.Stvec)
	fmt.Fprintf(&b, "sepc=%08x scause=%08x stval=%08x satp=%08x\n", h.Sepc, h.Scause, h.Stval, h.Satp)
	return b.String(), false, nil
}

func cmdMem(l *cmdLine, m *machine.Machine) (string, bool, error) {
	addrStr := l.getWord()
	if addrStr == "" {
		return "", false, errors.New("mem requires an address")
	}
	addr, err := parseAddr(addrStr)
	if err != nil {
		return "", false, err
	}

	count := 8
	if cw := l.getWord(); cw != "" {
		n, err := strconv.Atoi(cw)
		if err != nil || n <= 0 {
			return "", false, fmt.Errorf("invalid word count %q", cw)
		}
		count = n
	}

	words := make([]uint32, 0, count)
	bus := m.Bus()
	for i := 0; i < count; i++ {
		v, ok := bus.Load(addr+uint32(i*4), 4)
		if !ok {
			return "", false, fmt.Errorf("load faulted at %08x", addr+uint32(i*4))
		}
		words = append(words, v)
	}

	var b strings.Builder
	for i := 0; i < len(words); i += 4 {
		end := i + 4
		if end > len(words) {
			end = len(words)
		}
		fmt.Fprintf(&b, "%08x:", addr+uint32(i*4))
		for _, w := range words[i:end] {
			fmt.Fprintf(&b, " %08x", w)
		}
		b.WriteByte('\n')
	}
	return b.String(), false, nil
}

func cmdBreak(l *cmdLine, m *machine.Machine) (string, bool, error) {
	addrStr := l.getWord()
	if addrStr == "" {
		return "", false, errors.New("break requires an address")
	}
	addr, err := parseAddr(addrStr)
	if err != nil {
		return "", false, err
	}
	m.AddBreakpoint(addr)
	return fmt.Sprintf("breakpoint set at %08x\n", addr), false, nil
}

func cmdDelete(l *cmdLine, m *machine.Machine) (string, bool, error) {
	addrStr := l.getWord()
	if addrStr == "" {
		return "", false, errors.New("delete requires an address")
	}
	addr, err := parseAddr(addrStr)
	if err != nil {
		return "", false, err
	}
	m.RemoveBreakpoint(addr)
	return fmt.Sprintf("breakpoint cleared at %08x\n", addr), false, nil
}

func cmdBreaks(_ *cmdLine, m *machine.Machine) (string, bool, error) {
	addrs := m.Breakpoints()
	if len(addrs) == 0 {
		return "no breakpoints set\n", false, nil
	}
	var b strings.Builder
	for _, a := range addrs {
		fmt.Fprintf(&b, "%08x\n", a)
	}
	return b.String(), false, nil
}

func cmdStep(l *cmdLine, m *machine.Machine) (string, bool, error) {
	id, err := getHart(l)
	if err != nil {
		return "", false, err
	}
	if !m.StepHart(id) {
		return "", false, fmt.Errorf("hart %d is not started", id)
	}
	return fmt.Sprintf("hart%d pc=%08x\n", id, m.Hart(id).PC), false, nil
}

func cmdContinue(_ *cmdLine, m *machine.Machine) (string, bool, error) {
	m.Resume()
	return "", false, nil
}

func cmdHarts(_ *cmdLine, m *machine.Machine) (string, bool, error) {
	var b strings.Builder
	for i := 0; i < m.NumHarts(); i++ {
		h := m.Hart(i)
		fmt.Fprintf(&b, "hart%d %s pc=%08x\n", i, privName(h.HSM), h.PC)
	}
	return b.String(), false, nil
}

func cmdQuit(_ *cmdLine, m *machine.Machine) (string, bool, error) {
	m.Resume()
	return "", true, nil
}
