// Package browsertest wraps Playwright with test-friendly lifecycle and UI
// helpers. Launch skips the calling test when Playwright or the browser is
// unavailable, so browser suites degrade gracefully on machines without the
// driver installed.
package browsertest

import (
	"testing"

	"github.com/playwright-community/playwright-go"
)

// Browser owns a Playwright driver and a launched Chromium instance.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	cfg     *Config
}

// Launch starts Playwright and launches Chromium using the environment
// config. The test is skipped if the driver or browser cannot start, and
// failed if the configuration itself is invalid. Teardown is registered via
// t.Cleanup.
func Launch(t *testing.T) *Browser {
	t.Helper()

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("invalid browser configuration: %v", err)
	}

	pw, err := playwright.Run()
	if err != nil {
		t.Skip("Playwright not available:", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(cfg.Headless),
		SlowMo:   playwright.Float(cfg.SlowMoMS),
	})
	if err != nil {
		_ = pw.Stop()
		t.Skip("Could not launch browser:", err)
	}

	b := &Browser{pw: pw, browser: browser, cfg: cfg}
	t.Cleanup(b.Close)
	return b
}

// Close shuts down the browser and the Playwright driver.
func (b *Browser) Close() {
	if b.browser != nil {
		_ = b.browser.Close()
		b.browser = nil
	}
	if b.pw != nil {
		_ = b.pw.Stop()
		b.pw = nil
	}
}

// NewPage creates a page with the configured default timeouts.
func (b *Browser) NewPage(t *testing.T) playwright.Page {
	t.Helper()

	page, err := b.browser.NewPage()
	if err != nil {
		t.Fatalf("could not create page: %v", err)
	}
	page.SetDefaultTimeout(b.cfg.TimeoutMS)
	page.SetDefaultNavigationTimeout(b.cfg.TimeoutMS)
	t.Cleanup(func() { _ = page.Close() })
	return page
}

// NewContext creates a browser context with the configured default timeouts.
func (b *Browser) NewContext(t *testing.T) playwright.BrowserContext {
	t.Helper()
	return b.NewContextWithOptions(t, playwright.BrowserNewContextOptions{})
}

// NewContextWithOptions creates a browser context with caller-provided options.
func (b *Browser) NewContextWithOptions(t *testing.T, options playwright.BrowserNewContextOptions) playwright.BrowserContext {
	t.Helper()

	ctx, err := b.browser.NewContext(options)
	if err != nil {
		t.Fatalf("could not create browser context: %v", err)
	}
	ctx.SetDefaultTimeout(b.cfg.TimeoutMS)
	ctx.SetDefaultNavigationTimeout(b.cfg.TimeoutMS)
	t.Cleanup(func() { _ = ctx.Close() })
	return ctx
}

// SetSessionCookie injects a session cookie into a browser context, for tests
// that need a pre-authenticated page without driving the login UI.
func SetSessionCookie(t *testing.T, ctx playwright.BrowserContext, name, value, domain string) {
	t.Helper()
	err := ctx.AddCookies([]playwright.OptionalCookie{
		{
			Name:     name,
			Value:    value,
			Domain:   playwright.String(domain),
			Path:     playwright.String("/"),
			HttpOnly: playwright.Bool(true),
			Secure:   playwright.Bool(false),
			SameSite: playwright.SameSiteAttributeLax,
		},
	})
	if err != nil {
		t.Fatalf("Failed to set session cookie: %v", err)
	}
}
