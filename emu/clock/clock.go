/*
 * rv32emu - Rebasable monotonic clock for ACLINT mtime.
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

// Package clock drives the platform's ACLINT mtime forward, either by a
// real wall-clock ticker (normal operation) or by explicit ticks (tests,
// deterministic replay).
package clock

import (
	"log/slog"
	"sync"
	"time"
)

// TickInterval is the background ticker's wall-clock period; each tick
// advances mtime by exactly one regardless of host timing jitter.
const TickInterval = 10 * time.Millisecond

// Clock owns a monotonically increasing tick count, advanced either by
// its own background ticker goroutine or by a caller driving it directly
// in tests.
type Clock struct {
	mu      sync.Mutex
	ticks   uint64
	running bool

	enable chan bool
	done   chan struct{}
	wg     sync.WaitGroup

	onTick func()
}

// New creates a Clock. onTick, if non-nil, is invoked after every real
// wall-clock tick once the clock is started.
func New(onTick func()) *Clock {
	c := &Clock{
		enable: make(chan bool, 1),
		done:   make(chan struct{}),
		onTick: onTick,
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Start enables the background ticker.
func (c *Clock) Start() {
	c.enable <- true
}

// Stop disables the background ticker without shutting it down.
func (c *Clock) Stop() {
	c.enable <- false
}

// Shutdown terminates the background ticker goroutine.
func (c *Clock) Shutdown() {
	close(c.done)
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		slog.Warn("timed out waiting for clock to stop")
	}
}

func (c *Clock) run() {
	defer c.wg.Done()
	ticker := time.NewTicker(TickInterval)
	defer ticker.Stop()

	running := false
	for {
		select {
		case <-ticker.C:
			if running {
				c.Tick()
				if c.onTick != nil {
					c.onTick()
				}
			}
		case running = <-c.enable:
		case <-c.done:
			return
		}
	}
}

// Tick advances mtime by one, usable directly in tests without a
// real-time ticker running.
func (c *Clock) Tick() {
	c.mu.Lock()
	c.ticks++
	c.mu.Unlock()
}

// Now returns the current tick count (ACLINT mtime).
func (c *Clock) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// Rebase sets the tick count directly, e.g. to resume from a saved state.
func (c *Clock) Rebase(ticks uint64) {
	c.mu.Lock()
	c.ticks = ticks
	c.mu.Unlock()
}
