package memory

import "testing"

func TestWordRoundTrip(t *testing.T) {
	r := New(4096)
	if !r.WriteWord(0x100, 0xdeadbeef) {
		t.Fatal("write in range failed")
	}
	v, ok := r.ReadWord(0x100)
	if !ok || v != 0xdeadbeef {
		t.Fatalf("got %#x, %v", v, ok)
	}
}

func TestOutOfRange(t *testing.T) {
	r := New(16)
	if r.WriteWord(13, 1) {
		t.Fatal("expected out-of-range write to fail")
	}
	if _, ok := r.ReadWord(16); ok {
		t.Fatal("expected out-of-range read to fail")
	}
}

func TestHalfAndByte(t *testing.T) {
	r := New(16)
	r.WriteHalf(4, 0xabcd)
	if v, _ := r.ReadHalf(4); v != 0xabcd {
		t.Fatalf("got %#x", v)
	}
	r.WriteByte(8, 0x7f)
	if v, _ := r.ReadByte(8); v != 0x7f {
		t.Fatalf("got %#x", v)
	}
}

func TestLoadImage(t *testing.T) {
	r := New(16)
	if !r.LoadImage(4, []byte{1, 2, 3}) {
		t.Fatal("load should fit")
	}
	if r.LoadImage(14, []byte{1, 2, 3}) {
		t.Fatal("load should not fit")
	}
}

func TestCheckAddrOverflow(t *testing.T) {
	r := New(16)
	if r.CheckAddr(0xfffffff0, 0x20) {
		t.Fatal("wrapping range must not be considered in range")
	}
}
