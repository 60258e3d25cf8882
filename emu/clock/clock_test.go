package clock

import "testing"

func TestTickAdvances(t *testing.T) {
	c := New(nil)
	defer c.Shutdown()

	if c.Now() != 0 {
		t.Fatalf("fresh clock should read 0, got %d", c.Now())
	}
	c.Tick()
	c.Tick()
	if c.Now() != 2 {
		t.Fatalf("got %d want 2", c.Now())
	}
}

func TestRebase(t *testing.T) {
	c := New(nil)
	defer c.Shutdown()

	c.Rebase(1000)
	if c.Now() != 1000 {
		t.Fatalf("got %d want 1000", c.Now())
	}
}
