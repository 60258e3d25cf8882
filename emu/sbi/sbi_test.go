package sbi

import (
	"testing"

	"github.com/rcornwell/rv32emu/emu/hart"
)

type fakePlatform struct {
	harts       []*hart.Hart
	timers      map[int]uint64
	ipis        map[int]bool
	started     map[int][2]uint32
	resetKind   ResetKind
	resetCalled bool
}

func newFakePlatform(n int) *fakePlatform {
	p := &fakePlatform{
		timers:  map[int]uint64{},
		ipis:    map[int]bool{},
		started: map[int][2]uint32{},
	}
	for i := 0; i < n; i++ {
		p.harts = append(p.harts, hart.New(uint32(i)))
	}
	return p
}

func (p *fakePlatform) NumHarts() int       { return len(p.harts) }
func (p *fakePlatform) Hart(id int) *hart.Hart { return p.harts[id] }

func (p *fakePlatform) SetTimer(hartID int, deadline uint64) bool {
	p.timers[hartID] = deadline
	return true
}

func (p *fakePlatform) SendIPI(hartID int) bool {
	p.ipis[hartID] = true
	return true
}

func (p *fakePlatform) StartHart(hartID int, startAddr, opaque uint32) bool {
	p.started[hartID] = [2]uint32{startAddr, opaque}
	p.harts[hartID].HSM = hart.HSMStartPending
	return true
}

func (p *fakePlatform) RequestReset(kind ResetKind, _ uint32) {
	p.resetKind = kind
	p.resetCalled = true
}

func callWith(h *hart.Hart, eid, fid, a0, a1, a2 uint32) {
	h.ECallA7 = eid
	h.ECallA6 = fid
	h.SetX(10, a0)
	h.SetX(11, a1)
	h.SetX(12, a2)
}

func TestProbeExtension(t *testing.T) {
	p := newFakePlatform(1)
	h := p.Hart(0)
	callWith(h, EIDBase, 3, EIDHSM, 0, 0)
	Call(p, h)
	if h.GetX(10) != Success || h.GetX(11) != 1 {
		t.Fatalf("expected HSM supported, got a0=%d a1=%d", int32(h.GetX(10)), h.GetX(11))
	}
}

func TestSetTimer(t *testing.T) {
	p := newFakePlatform(1)
	h := p.Hart(0)
	callWith(h, EIDTimer, 0, 0x1000, 0, 0)
	Call(p, h)
	if p.timers[0] != 0x1000 {
		t.Fatalf("got %d want 0x1000", p.timers[0])
	}
	if int32(h.GetX(10)) != Success {
		t.Fatal("expected success")
	}
}

func TestIPIBroadcastToMask(t *testing.T) {
	p := newFakePlatform(4)
	h := p.Hart(0)
	callWith(h, EIDIPI, 0, 0b1010, 0, 0) // target harts 1 and 3
	Call(p, h)
	if !p.ipis[1] || !p.ipis[3] || p.ipis[0] || p.ipis[2] {
		t.Fatalf("got %v", p.ipis)
	}
}

func TestHSMStartRejectsAlreadyStarted(t *testing.T) {
	p := newFakePlatform(2)
	p.harts[1].HSM = hart.HSMStarted
	h := p.Hart(0)
	callWith(h, EIDHSM, 0, 1, 0x8000, 0x42)
	Call(p, h)
	if int32(h.GetX(10)) != ErrAlreadyStarted {
		t.Fatalf("got %d", int32(h.GetX(10)))
	}
}

func TestHSMStartSucceeds(t *testing.T) {
	p := newFakePlatform(2)
	h := p.Hart(0)
	callWith(h, EIDHSM, 0, 1, 0x8000, 0x42)
	Call(p, h)
	if int32(h.GetX(10)) != Success {
		t.Fatalf("got %d", int32(h.GetX(10)))
	}
	if p.started[1] != [2]uint32{0x8000, 0x42} {
		t.Fatalf("got %v", p.started[1])
	}
	if p.harts[1].HSM != hart.HSMStartPending {
		t.Fatal("target hart should be START_PENDING")
	}
}

func TestSystemReset(t *testing.T) {
	p := newFakePlatform(1)
	h := p.Hart(0)
	callWith(h, EIDSRST, 0, uint32(ResetShutdown), 0, 0)
	Call(p, h)
	if !p.resetCalled || p.resetKind != ResetShutdown {
		t.Fatal("expected a shutdown reset request")
	}
}

func TestUnknownExtensionNotSupported(t *testing.T) {
	p := newFakePlatform(1)
	h := p.Hart(0)
	callWith(h, 0xdeadbeef, 0, 0, 0, 0)
	Call(p, h)
	if int32(h.GetX(10)) != ErrNotSupported {
		t.Fatalf("got %d", int32(h.GetX(10)))
	}
}
