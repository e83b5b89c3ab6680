package harvester

import (
	"time"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/config"
)

// DefaultItemSelector matches one feed entry in the dynamic list.
const DefaultItemSelector = ".bili-dyn-item, [data-did]"

// Policy is the convergence policy for one harvest: how long to wait at each
// stage and when to declare the infinite scroll complete.
type Policy struct {
	// ItemSelector matches individual feed entries.
	ItemSelector string

	// BootTimeout bounds the initial wait for a ready, populated page.
	BootTimeout time.Duration

	// CheckInterval is the poll period for item count and document height.
	CheckInterval time.Duration

	// CycleTimeout is the initial per-cycle wait for growth after a scroll.
	// It adapts within [MinCycleTimeout, MaxCycleTimeout]: fast cycles
	// shrink it, stalled cycles grow it.
	CycleTimeout    time.Duration
	MinCycleTimeout time.Duration
	MaxCycleTimeout time.Duration

	// StallThreshold is the number of consecutive no-growth cycles after
	// which the page is assumed fully loaded.
	StallThreshold int

	// SettleDelay is the fixed wait before the final capture.
	SettleDelay time.Duration

	// TerminalMarkers are page texts that assert no further content exists;
	// seeing one ends the harvest regardless of the stall counter.
	TerminalMarkers []string
}

// PolicyFromConfig builds a Policy from the loaded configuration.
func PolicyFromConfig(cfg config.HarvesterConfig) Policy {
	return Policy{
		ItemSelector:    DefaultItemSelector,
		BootTimeout:     cfg.BootTimeout,
		CheckInterval:   cfg.CheckInterval,
		CycleTimeout:    cfg.CycleTimeout,
		MinCycleTimeout: cfg.MinCycleTimeout,
		MaxCycleTimeout: cfg.MaxCycleTimeout,
		StallThreshold:  cfg.StallThreshold,
		SettleDelay:     cfg.SettleDelay,
		TerminalMarkers: cfg.TerminalMarkers,
	}
}

// normalize fills zero fields with usable defaults so a partially built
// Policy (common in tests) still drives a bounded loop.
func (p *Policy) normalize() {
	if p.ItemSelector == "" {
		p.ItemSelector = DefaultItemSelector
	}
	if p.BootTimeout <= 0 {
		p.BootTimeout = 15 * time.Second
	}
	if p.CheckInterval <= 0 {
		p.CheckInterval = 300 * time.Millisecond
	}
	if p.CycleTimeout <= 0 {
		p.CycleTimeout = 8 * time.Second
	}
	if p.MinCycleTimeout <= 0 {
		p.MinCycleTimeout = p.CheckInterval
	}
	if p.MaxCycleTimeout < p.CycleTimeout {
		p.MaxCycleTimeout = p.CycleTimeout
	}
	if p.StallThreshold <= 0 {
		p.StallThreshold = 3
	}
}
