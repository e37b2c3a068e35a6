package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// Page adapts a playwright page.
type Page struct {
	page       playwright.Page
	navTimeout time.Duration
}

// Navigate loads url and waits for the DOM to be ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	timeout, err := budget(ctx, p.navTimeout)
	if err != nil {
		return err
	}
	opts := playwright.PageGotoOptions{WaitUntil: playwright.WaitUntilStateDomcontentloaded}
	if timeout > 0 {
		opts.Timeout = playwright.Float(ms(timeout))
	}
	if _, err := p.page.Goto(url, opts); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitVisible waits for the first element matching selector to become visible.
func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	timeout, err := budget(ctx, timeout)
	if err != nil {
		return err
	}
	err = p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(ms(timeout)),
	})
	if err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// WaitIdle waits for the network to go quiet.
func (p *Page) WaitIdle(ctx context.Context, timeout time.Duration) error {
	timeout, err := budget(ctx, timeout)
	if err != nil {
		return err
	}
	return p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateNetworkidle,
		Timeout: playwright.Float(ms(timeout)),
	})
}

// BodyText returns the rendered text of the page body.
func (p *Page) BodyText() (string, error) {
	return p.page.Locator("body").InnerText()
}

// HTML returns the serialized document.
func (p *Page) HTML() (string, error) {
	return p.page.Content()
}

// Screenshot captures the full page as PNG.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
}

// Query implements portal.Scope.
func (p *Page) Query(css string) ([]portal.Element, error) {
	return all(p.page.Locator(css))
}

// ByText implements portal.Scope.
func (p *Page) ByText(text string, exact bool) ([]portal.Element, error) {
	return all(p.page.GetByText(text, playwright.PageGetByTextOptions{Exact: playwright.Bool(exact)}))
}

// ByLabel implements portal.Scope.
func (p *Page) ByLabel(label string, exact bool) ([]portal.Element, error) {
	return all(p.page.GetByLabel(label, playwright.PageGetByLabelOptions{Exact: playwright.Bool(exact)}))
}

// ByTestID implements portal.Scope.
func (p *Page) ByTestID(id string) ([]portal.Element, error) {
	return all(p.page.GetByTestId(id))
}

var _ portal.Page = (*Page)(nil)
