package browser

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/config"
	"github.com/xuan12345678900/Bilibili-user-dynamic-content-crawler/models"
)

// Browser manages the global Chromium lifecycle. One Browser can serve many
// harvests, each on its own page; a single page is never shared between two
// concurrent harvests.
type Browser struct {
	browser     *rod.Browser
	cfg         config.BrowserConfig
	activePages atomic.Int32
}

// New launches a headless browser with automation-hiding flags.
func New(cfg config.BrowserConfig) (*Browser, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		NoSandbox(cfg.NoSandbox)

	if cfg.BrowserBin != "" {
		l = l.Bin(cfg.BrowserBin)
	}
	if cfg.DefaultProxy != "" {
		l = l.Proxy(cfg.DefaultProxy)
	}

	// ── Stealth flags ────────────────────────────────────────────────
	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "AudioServiceOutOfProcess,TranslateUI")
	l.Set(flags.Flag("disable-popup-blocking"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))

	controlURL, err := l.Launch()
	if err != nil {
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to launch browser",
			err,
		)
	}
	slog.Info("browser launched", "controlURL", controlURL)

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to connect to browser",
			err,
		)
	}

	return &Browser{browser: browser, cfg: cfg}, nil
}

// NewDriver creates a fresh page bound to ctx, with stealth JS, cookies and
// extra headers installed before any navigation (they only take effect for
// navigations that happen after installation).
func (b *Browser) NewDriver(ctx context.Context) (PageDriver, error) {
	page, err := b.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, models.NewCrawlError(
			models.ErrCodeBrowserCrash,
			"failed to create page",
			err,
		)
	}
	b.activePages.Add(1)

	if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
		slog.Warn("stealth injection failed, proceeding without stealth",
			"error", evalErr,
		)
	}

	if b.cfg.Cookie != "" {
		headers := proto.NetworkHeaders{"Cookie": gson.New(b.cfg.Cookie)}
		_ = proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(page)
	}

	router := setupHijack(page, b.cfg.BlockedResourceTypes)

	return &pageDriver{
		page:   page.Context(ctx),
		raw:    page,
		router: router,
		owner:  b,
	}, nil
}

// ActivePages reports how many harvest pages are currently open.
func (b *Browser) ActivePages() int {
	return int(b.activePages.Load())
}

// Close kills the browser process. Call on graceful shutdown to prevent
// zombie Chrome processes.
func (b *Browser) Close() {
	slog.Info("browser shutting down")
	b.browser.MustClose()
	slog.Info("browser shutdown complete")
}
