package monitor

import (
	"strings"
	"testing"

	"github.com/rcornwell/rv32emu/emu/machine"
)

func newTestMachine(t *testing.T) *machine.Machine {
	t.Helper()
	m := machine.New(machine.Config{NHarts: 2, RAMSize: 0x10000, KernelAddr: machine.RAMBase})
	t.Cleanup(m.Shutdown)
	return m
}

func TestProcessCommandUnknown(t *testing.T) {
	m := newTestMachine(t)
	if _, _, err := ProcessCommand("bogus", m); err == nil {
		t.Fatal("expected an error for an unknown command")
	}
}

func TestProcessCommandBelowMinimumPrefix(t *testing.T) {
	m := newTestMachine(t)
	// "b" is shorter than the minimum prefix of both break (3) and
	// breaks (6), so it matches no command.
	if _, _, err := ProcessCommand("b", m); err == nil {
		t.Fatal("expected an error for a prefix below every command's minimum")
	}
}

func TestCmdReg(t *testing.T) {
	m := newTestMachine(t)
	out, quit, err := ProcessCommand("reg 0", m)
	if err != nil || quit {
		t.Fatalf("got out=%q quit=%v err=%v", out, quit, err)
	}
	if !strings.Contains(out, "hart0") {
		t.Fatalf("reg output missing hart id: %q", out)
	}
}

func TestCmdRegOutOfRange(t *testing.T) {
	m := newTestMachine(t)
	if _, _, err := ProcessCommand("reg 5", m); err == nil {
		t.Fatal("expected an error for an out-of-range hart")
	}
}

func TestCmdMem(t *testing.T) {
	m := newTestMachine(t)
	m.RAM().WriteWord(0, 0xdeadbeef)

	out, _, err := ProcessCommand("mem 80000000 1", m)
	if err != nil {
		t.Fatalf("ProcessCommand: %v", err)
	}
	if !strings.Contains(out, "deadbeef") {
		t.Fatalf("mem output missing word: %q", out)
	}
}

func TestBreakDeleteBreaks(t *testing.T) {
	m := newTestMachine(t)

	if _, _, err := ProcessCommand("break 80000100", m); err != nil {
		t.Fatalf("break: %v", err)
	}
	out, _, err := ProcessCommand("breaks", m)
	if err != nil {
		t.Fatalf("breaks: %v", err)
	}
	if !strings.Contains(out, "80000100") {
		t.Fatalf("breaks output missing address: %q", out)
	}

	if _, _, err := ProcessCommand("delete 80000100", m); err != nil {
		t.Fatalf("delete: %v", err)
	}
	out, _, err = ProcessCommand("breaks", m)
	if err != nil {
		t.Fatalf("breaks: %v", err)
	}
	if !strings.Contains(out, "no breakpoints") {
		t.Fatalf("expected no breakpoints after delete, got %q", out)
	}
}

func TestCmdStepAdvancesPC(t *testing.T) {
	m := newTestMachine(t)
	m.RAM().WriteWord(0, 0x00000013) // ADDI x0,x0,0 (nop)

	out, _, err := ProcessCommand("step 0", m)
	if err != nil {
		t.Fatalf("step: %v", err)
	}
	if !strings.Contains(out, "80000004") {
		t.Fatalf("step output missing advanced PC: %q", out)
	}
}

func TestCmdStepUnstartedHart(t *testing.T) {
	m := newTestMachine(t)
	if _, _, err := ProcessCommand("step 1", m); err == nil {
		t.Fatal("expected an error stepping a stopped hart")
	}
}

func TestCmdHarts(t *testing.T) {
	m := newTestMachine(t)
	out, _, err := ProcessCommand("harts", m)
	if err != nil {
		t.Fatalf("harts: %v", err)
	}
	if !strings.Contains(out, "hart0") || !strings.Contains(out, "hart1") {
		t.Fatalf("harts output missing a hart: %q", out)
	}
}

func TestCmdQuit(t *testing.T) {
	m := newTestMachine(t)
	_, quit, err := ProcessCommand("quit", m)
	if err != nil || !quit {
		t.Fatalf("got quit=%v err=%v, want quit=true", quit, err)
	}
}

func TestCompleteCmd(t *testing.T) {
	matches := CompleteCmd("re")
	if len(matches) != 1 || matches[0] != "reg" {
		t.Fatalf("got %v want [reg]", matches)
	}
}
