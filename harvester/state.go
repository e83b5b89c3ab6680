package harvester

import "time"

// State is the harvester's position in the convergence state machine.
type State int

const (
	StateInitializing State = iota
	StateAwaitingGrowth
	StateStalled
	StateTerminal
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAwaitingGrowth:
		return "awaiting_growth"
	case StateStalled:
		return "stalled"
	case StateTerminal:
		return "terminal"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Observation is one poll sample of the page.
type Observation struct {
	ItemCount  int
	DocHeight  int
	MarkerSeen bool
}

// Cycle-timeout adjustment steps. Growth means batches are arriving fast, so
// the next cycle can give up sooner; a stall means the page is slow, so the
// next cycle waits longer before counting another stall.
const (
	shrinkStep = 500 * time.Millisecond
	growStep   = time.Second
)

// machine is the pure transition core of the harvester. It consumes explicit
// observations and never touches a clock or a driver, so every transition is
// replayable in tests.
type machine struct {
	policy       Policy
	state        State
	lastCount    int
	lastHeight   int
	stalls       int
	cycleTimeout time.Duration
}

func newMachine(p Policy) *machine {
	return &machine{
		policy:       p,
		state:        StateInitializing,
		cycleTimeout: p.CycleTimeout,
	}
}

// booted records the ready+populated page that ends Initializing.
func (m *machine) booted(o Observation) {
	m.lastCount = o.ItemCount
	m.lastHeight = o.DocHeight
	m.state = StateAwaitingGrowth
}

// observe folds one in-cycle poll sample. It returns true when the sample
// ends the current cycle: either a terminal marker was seen or new content
// arrived. The marker takes precedence over everything else.
func (m *machine) observe(o Observation) bool {
	if o.MarkerSeen {
		m.state = StateTerminal
		return true
	}
	if o.ItemCount > m.lastCount || o.DocHeight > m.lastHeight {
		m.lastCount = o.ItemCount
		m.lastHeight = o.DocHeight
		m.stalls = 0
		m.state = StateAwaitingGrowth
		if m.cycleTimeout-shrinkStep >= m.policy.MinCycleTimeout {
			m.cycleTimeout -= shrinkStep
		}
		return true
	}
	return false
}

// cycleExpired records a cycle that elapsed without growth. Stalls are
// retried internally; only the threshold turns one into Terminal.
func (m *machine) cycleExpired() {
	m.stalls++
	if m.stalls >= m.policy.StallThreshold {
		m.state = StateTerminal
		return
	}
	m.state = StateStalled
	if m.cycleTimeout+growStep <= m.policy.MaxCycleTimeout {
		m.cycleTimeout += growStep
	}
}

// resume restarts growth-waiting after a non-fatal stall.
func (m *machine) resume() {
	m.state = StateAwaitingGrowth
}

func (m *machine) fail() {
	m.state = StateFailed
}
