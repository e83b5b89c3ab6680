package harvester

import (
	"testing"
	"time"
)

func testPolicy() Policy {
	p := Policy{
		CycleTimeout:    8 * time.Second,
		MinCycleTimeout: 3 * time.Second,
		MaxCycleTimeout: 12 * time.Second,
		StallThreshold:  3,
	}
	p.normalize()
	return p
}

func TestMachine_GrowthResetsStalls(t *testing.T) {
	m := newMachine(testPolicy())
	m.booted(Observation{ItemCount: 1, DocHeight: 100})

	m.cycleExpired()
	m.cycleExpired()
	if m.stalls != 2 {
		t.Fatalf("expected 2 stalls, got %d", m.stalls)
	}

	if !m.observe(Observation{ItemCount: 2, DocHeight: 200}) {
		t.Fatal("growth observation should end the cycle")
	}
	if m.stalls != 0 {
		t.Errorf("growth should reset the stall counter, got %d", m.stalls)
	}
	if m.state != StateAwaitingGrowth {
		t.Errorf("expected awaiting_growth after growth, got %s", m.state)
	}
}

func TestMachine_StallThresholdReachesTerminal(t *testing.T) {
	m := newMachine(testPolicy())
	m.booted(Observation{ItemCount: 5, DocHeight: 500})

	for i := 0; i < 2; i++ {
		m.cycleExpired()
		if m.state == StateTerminal {
			t.Fatalf("terminal after only %d stalls", i+1)
		}
		m.resume()
	}
	m.cycleExpired()
	if m.state != StateTerminal {
		t.Errorf("expected terminal after 3 stalls, got %s", m.state)
	}
}

func TestMachine_MarkerBeatsGrowth(t *testing.T) {
	m := newMachine(testPolicy())
	m.booted(Observation{ItemCount: 1, DocHeight: 100})

	// The marker short-circuits even when the same sample shows growth.
	if !m.observe(Observation{ItemCount: 50, DocHeight: 5000, MarkerSeen: true}) {
		t.Fatal("marker observation should end the cycle")
	}
	if m.state != StateTerminal {
		t.Errorf("expected terminal on marker, got %s", m.state)
	}
}

func TestMachine_HeightGrowthCounts(t *testing.T) {
	m := newMachine(testPolicy())
	m.booted(Observation{ItemCount: 3, DocHeight: 300})

	// Item count flat but document height grew: still growth.
	if !m.observe(Observation{ItemCount: 3, DocHeight: 400}) {
		t.Error("height growth alone should end the cycle")
	}
}

func TestMachine_TimeoutAdaptationStaysBounded(t *testing.T) {
	m := newMachine(testPolicy())
	m.booted(Observation{ItemCount: 1, DocHeight: 100})

	// Stalls grow the timeout, capped at MaxCycleTimeout.
	for i := 0; i < 20; i++ {
		m.stalls = 0 // keep it out of terminal
		m.cycleExpired()
		m.resume()
	}
	if m.cycleTimeout > m.policy.MaxCycleTimeout {
		t.Errorf("cycle timeout %v exceeds max %v", m.cycleTimeout, m.policy.MaxCycleTimeout)
	}

	// Growth shrinks it, floored at MinCycleTimeout.
	for i := 0; i < 40; i++ {
		m.observe(Observation{ItemCount: i + 2, DocHeight: (i + 2) * 100})
	}
	if m.cycleTimeout < m.policy.MinCycleTimeout {
		t.Errorf("cycle timeout %v below min %v", m.cycleTimeout, m.policy.MinCycleTimeout)
	}
}
