package machine

import (
	"github.com/rcornwell/rv32emu/emu/hart"
	"github.com/rcornwell/rv32emu/emu/sbi"
)

// InstructionBudget bounds how many instructions a hart runs before the
// scheduler gives the next hart a turn.
const InstructionBudget = 1000

// hartOutcome is why a hartRunner's run returned control to the
// scheduler.
type hartOutcome int

const (
	outcomeBudget hartOutcome = iota
	outcomeECall
	outcomeWFI
)

// hartRunner parks one hart's execution on a goroutine, handed a fresh
// instruction budget over resume and reporting back over result. This
// gives every hart its own resumable context, as a real scheduler would,
// while the scheduler itself only ever has one runner unblocked at a
// time — so bus/ACLINT/PLIC state never needs per-access locking beyond
// what Machine.mu already provides for SBI calls racing the clock's own
// goroutine.
type hartRunner struct {
	h      *hart.Hart
	bus    hart.Bus
	resume chan int
	result chan hartOutcome
}

func newHartRunner(h *hart.Hart, bus hart.Bus) *hartRunner {
	r := &hartRunner{
		h:      h,
		bus:    bus,
		resume: make(chan int),
		result: make(chan hartOutcome),
	}
	go r.loop()
	return r
}

func (r *hartRunner) loop() {
	for budget := range r.resume {
		if budget < 0 {
			return
		}
		outcome := outcomeBudget
	stepLoop:
		for i := 0; i < budget; i++ {
			switch r.h.Step(r.bus) {
			case hart.StepECall:
				outcome = outcomeECall
				break stepLoop
			case hart.StepWFI:
				outcome = outcomeWFI
				break stepLoop
			}
		}
		r.result <- outcome
	}
}

// run hands the runner a budget and blocks for its outcome.
func (r *hartRunner) run(budget int) hartOutcome {
	r.resume <- budget
	return <-r.result
}

// stop terminates the runner's goroutine.
func (r *hartRunner) stop() {
	close(r.resume)
}

// sipBits maps the platform's three interrupt sources onto sip's
// SSIP/STIP/SEIP bits.
const (
	sipSSIP = 1 << 1
	sipSTIP = 1 << 5
	sipSEIP = 1 << 9
)

// injectInterrupts latches the ACLINT/PLIC interrupt lines into hart
// i's sip register; called with m.mu held.
func (m *Machine) injectInterrupts(i int) {
	h := m.harts[i]
	set := func(bit uint32, level bool) {
		if level {
			h.Sip |= bit
		} else {
			h.Sip &^= bit
		}
	}
	set(sipSSIP, m.sswi.Pending(i))
	set(sipSTIP, m.mtimer.Pending(i))
	set(sipSEIP, m.plic.Pending(i))
}

// RunRound gives every HSM-started hart one turn of at most budget
// instructions, promoting StartPending harts to Started and retiring
// StopPending harts to Stopped first. ECalls are dispatched to the SBI
// layer inline before the scheduler moves to the next hart.
func (m *Machine) RunRound(budget int) {
	for i, h := range m.harts {
		m.mu.Lock()
		switch h.HSM {
		case hart.HSMStartPending:
			h.HSM = hart.HSMStarted
		case hart.HSMStopPending:
			h.HSM = hart.HSMStopped
		}
		active := h.HSM == hart.HSMStarted
		if active {
			m.injectInterrupts(i)
		}
		m.mu.Unlock()

		if !active {
			continue
		}

		switch m.runners[i].run(budget) {
		case outcomeECall:
			sbi.Call(m, h)
		case outcomeWFI:
			m.mu.Lock()
			if m.sswi.Pending(i) || m.mtimer.Pending(i) || m.plic.Pending(i) {
				h.HSM = hart.HSMStarted
			}
			m.mu.Unlock()
		}
	}
}

// Start enables the background wall-clock ticker driving ACLINT mtime.
// Tests that drive mtime directly via Clock.Tick need not call this.
func (m *Machine) Start() {
	m.clock.Start()
}

// Run drives the scheduler until a guest requests shutdown/reboot or
// every hart has stopped with no reset pending, and returns the reset
// kind observed (ResetShutdown if no hart ever asked). Callers own the
// clock and runner goroutines' lifetime via Start/Shutdown.
//
// While any breakpoint is set, each round runs a single instruction per
// hart so a breakpoint hit is never overrun by the rest of a round's
// budget; Pause/Resume let the monitor console stop the scheduler
// between rounds without racing hart state.
func (m *Machine) Run() sbi.ResetKind {
	for {
		if kind, requested := m.ResetRequested(); requested {
			return kind
		}
		if !m.anyRunnable() {
			return sbi.ResetShutdown
		}
		if m.Paused() {
			<-m.resume
			continue
		}

		budget := InstructionBudget
		if m.hasBreakpoints() {
			budget = 1
		}
		m.RunRound(budget)

		if m.hasBreakpoints() && m.hitBreakpoint() {
			m.Pause()
		}
	}
}

// StepHart advances exactly one hart by one instruction, independent of
// the round-robin scheduler; used by the monitor console's "step"
// command while the machine is paused. Reports false if hartID is out
// of range or the hart isn't started.
func (m *Machine) StepHart(hartID int) bool {
	if hartID < 0 || hartID >= len(m.harts) {
		return false
	}
	h := m.harts[hartID]

	m.mu.Lock()
	switch h.HSM {
	case hart.HSMStartPending:
		h.HSM = hart.HSMStarted
	case hart.HSMStopPending:
		h.HSM = hart.HSMStopped
	}
	if h.HSM != hart.HSMStarted {
		m.mu.Unlock()
		return false
	}
	m.injectInterrupts(hartID)
	m.mu.Unlock()

	switch m.runners[hartID].run(1) {
	case outcomeECall:
		sbi.Call(m, h)
	case outcomeWFI:
		m.mu.Lock()
		if m.sswi.Pending(hartID) || m.mtimer.Pending(hartID) || m.plic.Pending(hartID) {
			h.HSM = hart.HSMStarted
		}
		m.mu.Unlock()
	}
	return true
}

func (m *Machine) anyRunnable() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range m.harts {
		switch h.HSM {
		case hart.HSMStarted, hart.HSMStartPending, hart.HSMSuspended:
			return true
		}
	}
	return false
}

// Shutdown tears down every hart's runner goroutine and the clock.
func (m *Machine) Shutdown() {
	for _, r := range m.runners {
		r.stop()
	}
	m.clock.Shutdown()
	for _, w := range m.devices {
		w.Device.Shutdown()
	}
}
