package browsertest

import (
	"testing"

	"github.com/playwright-community/playwright-go"
)

// Navigate goes to baseURL+path and waits for DOMContentLoaded.
func Navigate(t *testing.T, page playwright.Page, baseURL, path string) {
	t.Helper()

	_, err := page.Goto(baseURL+path, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	if err != nil {
		t.Fatalf("Failed to navigate to %s: %v", path, err)
	}
}

// WaitForSelector waits for an element to be visible and returns its locator.
// On failure it logs the current URL, title, and a content preview to make
// flaky selectors diagnosable from CI output.
func WaitForSelector(t *testing.T, page playwright.Page, selector string) playwright.Locator {
	t.Helper()

	first := page.Locator(selector).First()
	err := first.WaitFor(playwright.LocatorWaitForOptions{
		State: playwright.WaitForSelectorStateVisible,
	})
	if err != nil {
		currentURL := page.URL()
		title, _ := page.Title()
		content, _ := page.Content()
		if len(content) > 500 {
			content = content[:500] + "..."
		}
		t.Logf("Current URL: %s", currentURL)
		t.Logf("Current title: %s", title)
		t.Logf("Content preview: %s", content)
		t.Fatalf("Failed to wait for selector %s: %v", selector, err)
	}
	return first
}

// Fill waits for the selector and fills it with value.
func Fill(t *testing.T, page playwright.Page, selector, value string) {
	t.Helper()

	locator := WaitForSelector(t, page, selector)
	if err := locator.Fill(value); err != nil {
		t.Fatalf("Failed to fill %s: %v", selector, err)
	}
}

// Click waits for the selector and clicks it.
func Click(t *testing.T, page playwright.Page, selector string) {
	t.Helper()

	locator := WaitForSelector(t, page, selector)
	if err := locator.Click(); err != nil {
		t.Fatalf("Failed to click %s: %v", selector, err)
	}
}

// SubmitForm fills each selector with its value and clicks the submit
// control, then waits for the next DOMContentLoaded.
func SubmitForm(t *testing.T, page playwright.Page, fields map[string]string, submitSelector string) {
	t.Helper()

	for selector, value := range fields {
		Fill(t, page, selector, value)
	}
	Click(t, page, submitSelector)

	err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State: playwright.LoadStateDomcontentloaded,
	})
	if err != nil {
		t.Fatalf("Failed to wait for page load after submit: %v", err)
	}
}

// Screenshot captures a full-page screenshot to path.
func Screenshot(t *testing.T, page playwright.Page, path string) {
	t.Helper()

	_, err := page.Screenshot(playwright.PageScreenshotOptions{
		Path:     playwright.String(path),
		FullPage: playwright.Bool(true),
	})
	if err != nil {
		t.Fatalf("Failed to capture screenshot to %s: %v", path, err)
	}
}
