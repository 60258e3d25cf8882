package hart

import (
	"testing"

	"github.com/rcornwell/rv32emu/emu/memory"
	"github.com/rcornwell/rv32emu/emu/mmu"
)

type testBus struct {
	ram *memory.RAM
}

func newTestBus(size uint32) *testBus {
	return &testBus{ram: memory.New(size)}
}

func (b *testBus) RAM() RAMReader { return b.ram }

func (b *testBus) Fetch(paddr uint32) (uint32, bool) { return b.ram.ReadWord(paddr) }

func (b *testBus) Load(paddr uint32, width int) (uint32, bool) {
	switch width {
	case 1:
		v, ok := b.ram.ReadByte(paddr)
		return uint32(v), ok
	case 2:
		v, ok := b.ram.ReadHalf(paddr)
		return uint32(v), ok
	default:
		return b.ram.ReadWord(paddr)
	}
}

func (b *testBus) Store(paddr uint32, width int, value uint32) bool {
	switch width {
	case 1:
		return b.ram.WriteByte(paddr, uint8(value))
	case 2:
		return b.ram.WriteHalf(paddr, uint16(value))
	default:
		return b.ram.WriteWord(paddr, value)
	}
}

// addi x(rd), x(rs1), imm
func encI(opc uint32, f3 uint32, rdv, rs1v int, imm int32) uint32 {
	return (uint32(imm)&0xfff)<<20 | uint32(rs1v)<<15 | f3<<12 | uint32(rdv)<<7 | opc
}

func encR(opc, f7, f3 uint32, rdv, rs1v, rs2v int) uint32 {
	return f7<<25 | uint32(rs2v)<<20 | uint32(rs1v)<<15 | f3<<12 | uint32(rdv)<<7 | opc
}

func TestX0AlwaysZero(t *testing.T) {
	h := New(0)
	h.SetX(0, 0xdeadbeef)
	if h.GetX(0) != 0 {
		t.Fatal("x0 must read as zero regardless of writes")
	}
}

func TestJalWritesRdBeforeMisalignCheck(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.PC = 0
	// JAL x1, 2 (forces a misaligned target since +2 is not word aligned)
	imm := int32(2)
	insn := uint32(imm&0x100000)<<(31-20) |
		uint32((imm>>12)&0xff)<<12 |
		uint32((imm>>11)&0x1)<<20 |
		uint32((imm>>1)&0x3ff)<<21 |
		1<<7 | opJal
	bus.ram.WriteWord(0, insn)

	h.Step(bus)

	if h.GetX(1) != 4 {
		t.Fatalf("rd should hold return address 4, got %#x", h.GetX(1))
	}
	if h.PC != h.Stvec&^0x3 {
		t.Fatal("misaligned jump target should trap, leaving PC at stvec")
	}
	if h.LastTrap != CauseInsnMisaligned {
		t.Fatalf("expected misaligned trap, got %v", h.LastTrap)
	}
}

func TestShiftAmountMaskedTo5Bits(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.X[1] = 1
	h.X[2] = 32 // shift amount register value, masked to &0x1f == 0
	insn := encR(opOp, 0, 0x1, 3, 1, 2) // SLL x3, x1, x2
	bus.ram.WriteWord(0, insn)

	h.Step(bus)

	if h.X[3] != 1 {
		t.Fatalf("shift by 32 should mask to a no-op shift, got %#x", h.X[3])
	}
}

func TestCSRRSWithRs1ZeroIsPureRead(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.Sscratch = 0x1234
	// CSRRS x5, sscratch, x0
	insn := uint32(csrSscratch)<<20 | 0<<15 | 0x2<<12 | 5<<7 | uint32(opSystem)
	bus.ram.WriteWord(0, insn)

	h.Step(bus)

	if h.X[5] != 0x1234 {
		t.Fatalf("got %#x", h.X[5])
	}
	if h.Sscratch != 0x1234 {
		t.Fatal("CSRRS with rs1=x0 must not modify the CSR")
	}
}

func TestLRSCRoundTrip(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	bus.ram.WriteWord(0x100, 42)
	h.X[1] = 0x100
	h.X[2] = 99

	lr := encR(opAmo, amoLR<<2, 0x2, 3, 1, 0)
	sc := encR(opAmo, amoSC<<2, 0x2, 4, 1, 2)
	bus.ram.WriteWord(0, lr)
	bus.ram.WriteWord(4, sc)

	h.Step(bus)
	if h.X[3] != 42 {
		t.Fatalf("LR should load 42, got %d", h.X[3])
	}
	h.Step(bus)
	if h.X[4] != 0 {
		t.Fatal("SC with a live matching reservation must succeed (write 0)")
	}
	v, _ := bus.ram.ReadWord(0x100)
	if v != 99 {
		t.Fatalf("SC should have stored the new value, got %d", v)
	}
}

func TestSCFailsWithoutReservation(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.X[1] = 0x100
	h.X[2] = 99
	sc := encR(opAmo, amoSC<<2, 0x2, 4, 1, 2)
	bus.ram.WriteWord(0, sc)

	h.Step(bus)
	if h.X[4] != 1 {
		t.Fatal("SC without a matching reservation must fail (write 1)")
	}
}

func TestLRMisalignedRaisesLoadMisalign(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.X[1] = 0x101 // not word-aligned
	lr := encR(opAmo, amoLR<<2, 0x2, 3, 1, 0)
	bus.ram.WriteWord(0, lr)

	h.Step(bus)

	if h.LastTrap != CauseLoadMisaligned {
		t.Fatalf("got %v want CauseLoadMisaligned", h.LastTrap)
	}
}

func TestSCMisalignedRaisesStoreMisalign(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.X[1] = 0x101
	sc := encR(opAmo, amoSC<<2, 0x2, 4, 1, 2)
	bus.ram.WriteWord(0, sc)

	h.Step(bus)

	if h.LastTrap != CauseStoreMisaligned {
		t.Fatalf("got %v want CauseStoreMisaligned", h.LastTrap)
	}
}

func TestSCClearsReservationOnAddressMismatch(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	bus.ram.WriteWord(0x100, 42)
	h.X[1] = 0x100
	h.X[2] = 1
	h.X[5] = 0x200
	h.X[6] = 99

	lr := encR(opAmo, amoLR<<2, 0x2, 3, 1, 0)     // LR x3, (x1), reserves 0x100
	scOther := encR(opAmo, amoSC<<2, 0x2, 4, 5, 6) // SC x4, x6, (x5), targets 0x200
	scSame := encR(opAmo, amoSC<<2, 0x2, 7, 1, 2)  // SC x7, x2, (x1), targets 0x100 again

	bus.ram.WriteWord(0, lr)
	bus.ram.WriteWord(4, scOther)
	bus.ram.WriteWord(8, scSame)

	h.Step(bus) // LR: reservation on 0x100
	h.Step(bus) // SC to a different address: must fail and clear the reservation
	if h.X[4] != 1 {
		t.Fatal("SC to a non-reserved address must fail")
	}

	h.Step(bus) // SC back to 0x100: reservation was already cleared, must still fail
	if h.X[7] != 1 {
		t.Fatal("SC must fail once the reservation has been cleared by a prior SC")
	}
}

func TestDivByZero(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.X[1] = 17
	h.X[2] = 0
	insn := encR(opOp, 0x01, 0x4, 3, 1, 2) // DIV x3, x1, x2
	bus.ram.WriteWord(0, insn)
	h.Step(bus)
	if h.X[3] != 0xffffffff {
		t.Fatalf("division by zero should yield all-ones, got %#x", h.X[3])
	}
}

func TestUModeCounterReadGatedByScounteren(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.Priv = mmu.User
	h.Retired = 7
	// CSRRS x5, cycle, x0
	insn := uint32(csrCycleBase)<<20 | 0<<15 | 0x2<<12 | 5<<7 | uint32(opSystem)
	bus.ram.WriteWord(0, insn)

	h.Step(bus)
	if h.LastTrap != CauseIllegalInsn {
		t.Fatalf("U-mode cycle read without scounteren[0] should be illegal, got %v", h.LastTrap)
	}

	h2 := New(0)
	h2.Priv = mmu.User
	h2.Retired = 7
	h2.Scounteren = 1 // grant bit 0 (cycle)
	bus2 := newTestBus(4096)
	bus2.ram.WriteWord(0, insn)

	h2.Step(bus2)
	if h2.X[5] != 7 {
		t.Fatalf("got %#x want 7 once scounteren grants the cycle counter", h2.X[5])
	}
}

func TestECallIntercepted(t *testing.T) {
	h := New(0)
	bus := newTestBus(4096)
	h.X[17] = 0x10 // a7
	h.X[16] = 0x1  // a6
	bus.ram.WriteWord(0, 0x00000073)

	res := h.Step(bus)
	if res != StepECall {
		t.Fatalf("got %v want StepECall", res)
	}
	if h.ECallA7 != 0x10 || h.ECallA6 != 0x1 {
		t.Fatal("ecall extension/function ids not captured")
	}
	if h.PC != 4 {
		t.Fatal("ecall should advance past itself, SBI layer handles dispatch")
	}
}
