// Package harvester drives a page through repeated scroll/load cycles until
// the infinite-scroll feed converges, then captures the document exactly once
// as an immutable snapshot.
package harvester

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/browser"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
)

const (
	feedURLPrefix = "https://space.bilibili.com/"
	feedURLSuffix = "/dynamic"

	// titleSep splits the page title "<name>个人动态-..." when the name
	// element itself is missing.
	titleSep = "个人动态-"

	nameSelector = ".h-name, .n-name"
)

// FeedURL returns the dynamic page address for a user id.
func FeedURL(uid string) string {
	return feedURLPrefix + uid + feedURLSuffix
}

// Harvester owns one PageDriver for the duration of a Harvest call. The
// driver must not be shared with any other concurrent harvest.
type Harvester struct {
	driver browser.PageDriver
	policy Policy
}

// New creates a Harvester over the driver with the given convergence policy.
func New(d browser.PageDriver, p Policy) *Harvester {
	p.normalize()
	return &Harvester{driver: d, policy: p}
}

// Harvest navigates to the user's dynamic feed, scrolls until the page stops
// producing new content (or signals the end explicitly), and returns exactly
// one Snapshot. Stalled cycles are retried internally; boot timeouts, driver
// faults and cancellation abort the attempt without retry.
func (h *Harvester) Harvest(ctx context.Context, uid string) (*models.Snapshot, error) {
	start := time.Now()
	url := FeedURL(uid)
	m := newMachine(h.policy)

	if err := h.driver.Navigate(url); err != nil {
		m.fail()
		return nil, driverError(err, "navigation to dynamic page failed")
	}

	if err := h.boot(ctx, m); err != nil {
		m.fail()
		return nil, err
	}

	displayName := h.resolveDisplayName(uid)
	slog.Info("harvest started", "uid", uid, "user", displayName, "items", m.lastCount)

	cycles := 0
	for m.state == StateAwaitingGrowth || m.state == StateStalled {
		if err := ctx.Err(); err != nil {
			m.fail()
			return nil, cancelError(err)
		}
		m.resume()

		if _, err := h.driver.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
			m.fail()
			return nil, driverError(err, "scroll command failed")
		}

		grown, err := h.awaitGrowth(ctx, m)
		if err != nil {
			m.fail()
			return nil, err
		}
		if !grown && m.state != StateTerminal {
			m.cycleExpired()
		}

		cycles++
		slog.Debug("scroll cycle finished",
			"cycle", cycles,
			"state", m.state.String(),
			"items", m.lastCount,
			"height", m.lastHeight,
			"stalls", m.stalls,
			"cycleTimeout", m.cycleTimeout,
		)
	}

	if m.state != StateTerminal {
		return nil, models.NewCrawlError(models.ErrCodeInternal,
			"harvest loop left in state "+m.state.String(), nil)
	}

	// Settle: let in-flight rendering finish before the single capture.
	if h.policy.SettleDelay > 0 {
		select {
		case <-time.After(h.policy.SettleDelay):
		case <-ctx.Done():
			m.fail()
			return nil, cancelError(ctx.Err())
		}
	}

	html, err := h.driver.HTML()
	if err != nil {
		m.fail()
		return nil, driverError(err, "failed to capture page HTML")
	}
	finalURL, err := h.driver.CurrentURL()
	if err != nil || finalURL == "" {
		finalURL = url
	}

	snap := &models.Snapshot{
		UID:             uid,
		DisplayName:     displayName,
		CapturedAt:      time.Now(),
		SourceURL:       finalURL,
		HTML:            html,
		CaptureDuration: time.Since(start),
	}
	slog.Info("harvest complete",
		"uid", uid,
		"items", m.lastCount,
		"cycles", cycles,
		"bytes", len(html),
		"duration", snap.CaptureDuration,
	)
	return snap, nil
}

// boot waits for the page to report readyState "complete" with at least one
// feed item. A terminal marker during boot (an empty feed announcing itself)
// ends the harvest immediately instead of timing out.
func (h *Harvester) boot(ctx context.Context, m *machine) error {
	deadline := time.Now().Add(h.policy.BootTimeout)
	for {
		if err := ctx.Err(); err != nil {
			return cancelError(err)
		}

		obs, err := h.observe()
		if err != nil {
			return driverError(err, "boot poll failed")
		}
		if obs.MarkerSeen {
			m.state = StateTerminal
			return nil
		}

		ready, err := h.driver.Eval(`() => document.readyState`)
		if err != nil {
			return driverError(err, "readyState query failed")
		}
		if ready.Str() == "complete" && obs.ItemCount > 0 {
			m.booted(obs)
			return nil
		}

		if time.Now().After(deadline) {
			return models.NewCrawlError(models.ErrCodeBootTimeout,
				"page never reached a ready, populated state", nil)
		}
		if err := sleep(ctx, h.policy.CheckInterval); err != nil {
			return cancelError(err)
		}
	}
}

// awaitGrowth polls until new content arrives, a terminal marker appears, or
// the adaptive cycle timeout elapses. Returns whether the cycle observed
// growth (marker detection reports false; the machine is already Terminal).
func (h *Harvester) awaitGrowth(ctx context.Context, m *machine) (bool, error) {
	deadline := time.Now().Add(m.cycleTimeout)
	for time.Now().Before(deadline) {
		obs, err := h.observe()
		if err != nil {
			return false, driverError(err, "growth poll failed")
		}
		if m.observe(obs) {
			return m.state == StateAwaitingGrowth, nil
		}
		if err := sleep(ctx, h.policy.CheckInterval); err != nil {
			return false, cancelError(err)
		}
	}
	return false, nil
}

// observe takes one sample of item count, document height and marker state.
func (h *Harvester) observe() (Observation, error) {
	count, err := h.driver.CountNodes(h.policy.ItemSelector)
	if err != nil {
		return Observation{}, err
	}
	height, err := h.driver.Eval(`() => document.body.scrollHeight`)
	if err != nil {
		return Observation{}, err
	}
	for _, marker := range h.policy.TerminalMarkers {
		seen, err := h.driver.ContainsText(marker)
		if err != nil {
			return Observation{}, err
		}
		if seen {
			return Observation{ItemCount: count, DocHeight: height.Int(), MarkerSeen: true}, nil
		}
	}
	return Observation{ItemCount: count, DocHeight: height.Int()}, nil
}

// resolveDisplayName tries the profile name element, then the page title
// prefix, then falls back to a uid-derived placeholder.
func (h *Harvester) resolveDisplayName(uid string) string {
	if name, err := h.driver.ElementText(nameSelector); err == nil && name != "" {
		return name
	}
	if title, err := h.driver.Title(); err == nil {
		if idx := strings.Index(title, titleSep); idx > 0 {
			return title[:idx]
		}
	}
	return "用户" + uid
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// driverError wraps a raw driver fault, distinguishing external cancellation
// from real communication failures.
func driverError(err error, msg string) *models.CrawlError {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return cancelError(err)
	}
	return models.NewCrawlError(models.ErrCodeDriverFault, msg, err)
}

func cancelError(err error) *models.CrawlError {
	return models.NewCrawlError(models.ErrCodeCancelled, "harvest cancelled", err)
}
