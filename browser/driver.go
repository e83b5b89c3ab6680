package browser

import (
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/ysmood/gson"
)

// PageDriver is the automation capability the harvester consumes. Keeping it
// an interface lets the convergence loop run against a scripted fake in tests
// instead of a live browser.
type PageDriver interface {
	// Navigate loads the URL and returns once the load event fires.
	Navigate(url string) error

	// Eval runs a JS function expression in the page and returns its value.
	Eval(js string) (gson.JSON, error)

	// CountNodes returns how many elements match the CSS selector.
	CountNodes(selector string) (int, error)

	// ContainsText reports whether the document text contains the marker.
	ContainsText(marker string) (bool, error)

	// ElementText returns the trimmed text of the first matching element,
	// or "" when none matches. It never waits for the element to appear.
	ElementText(selector string) (string, error)

	// Title returns the current document title.
	Title() (string, error)

	// HTML returns the full serialized document.
	HTML() (string, error)

	// CurrentURL returns the page's current location.
	CurrentURL() (string, error)

	// Close releases the page.
	Close() error
}

// pageDriver implements PageDriver over a rod page. The page field carries
// the harvest context; raw is the unbound original used for cleanup so that
// closing still works after the context expires.
type pageDriver struct {
	page   *rod.Page
	raw    *rod.Page
	router *rod.HijackRouter
	owner  *Browser
}

func (d *pageDriver) Navigate(url string) error {
	return d.page.Navigate(url)
}

func (d *pageDriver) Eval(js string) (gson.JSON, error) {
	res, err := d.page.Eval(js)
	if err != nil {
		return gson.New(nil), err
	}
	return res.Value, nil
}

func (d *pageDriver) CountNodes(selector string) (int, error) {
	res, err := d.page.Eval(`(sel) => document.querySelectorAll(sel).length`, selector)
	if err != nil {
		return 0, err
	}
	return res.Value.Int(), nil
}

func (d *pageDriver) ContainsText(marker string) (bool, error) {
	res, err := d.page.Eval(
		`(m) => document.body ? document.body.textContent.includes(m) : false`,
		marker,
	)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (d *pageDriver) ElementText(selector string) (string, error) {
	res, err := d.page.Eval(`(sel) => {
		const el = document.querySelector(sel);
		return el ? el.textContent.trim() : "";
	}`, selector)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (d *pageDriver) Title() (string, error) {
	res, err := d.page.Eval(`() => document.title`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

func (d *pageDriver) HTML() (string, error) {
	return d.page.HTML()
}

func (d *pageDriver) CurrentURL() (string, error) {
	res, err := d.page.Eval(`() => window.location.href`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Close blanks and closes the page using the original (context-free) page
// reference, so cleanup succeeds even when the harvest context has expired.
func (d *pageDriver) Close() error {
	if d.router != nil {
		_ = d.router.Stop()
	}
	if navErr := d.raw.Navigate("about:blank"); navErr != nil {
		slog.Warn("cleanup: failed to navigate to about:blank", "error", navErr)
	}
	err := d.raw.Close()
	d.owner.activePages.Add(-1)
	return err
}
