package device

import "testing"

func TestPulseStartsLow(t *testing.T) {
	p := NewPulse()
	if p.InterruptPending() {
		t.Fatal("a fresh pulse device should not start raised")
	}
	v, ok := p.Load(4, 1)
	if !ok || v != 0 {
		t.Fatalf("got v=%d ok=%v want 0,true", v, ok)
	}
}

func TestPulseRaiseAndLower(t *testing.T) {
	p := NewPulse()

	if !p.Store(0, 1, 1) {
		t.Fatal("store to the control register should succeed")
	}
	if !p.InterruptPending() {
		t.Fatal("line should be raised after storing 1 to the control register")
	}
	v, ok := p.Load(4, 1)
	if !ok || v != 1 {
		t.Fatalf("status register got v=%d ok=%v want 1,true", v, ok)
	}

	if !p.Store(0, 1, 0) {
		t.Fatal("store to the control register should succeed")
	}
	if p.InterruptPending() {
		t.Fatal("line should lower after storing 0 to the control register")
	}
}

func TestPulseOnlyLowBitOfControlMatters(t *testing.T) {
	p := NewPulse()
	p.Store(0, 1, 0xfe) // even value, low bit clear
	if p.InterruptPending() {
		t.Fatal("only bit 0 of the control register should raise the line")
	}
	p.Store(0, 1, 0xff) // odd value, low bit set
	if !p.InterruptPending() {
		t.Fatal("a set low bit should raise the line regardless of the rest")
	}
}

func TestPulseRejectsUnknownOffsets(t *testing.T) {
	p := NewPulse()
	if _, ok := p.Load(8, 1); ok {
		t.Fatal("load from an unmapped offset should fail")
	}
	if p.Store(8, 1, 1) {
		t.Fatal("store to an unmapped offset should fail")
	}
}

func TestPulseShutdownIsANoop(t *testing.T) {
	p := NewPulse()
	p.Store(0, 1, 1)
	p.Shutdown()
	if !p.InterruptPending() {
		t.Fatal("Shutdown should not alter device state")
	}
}
