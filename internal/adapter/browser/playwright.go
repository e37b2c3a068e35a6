// Package browser drives a real Chromium through playwright and exposes it as portal
// interfaces.
package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"

	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// closeTimeout bounds each shutdown call; playwright's Stop can hang on a wedged browser.
const closeTimeout = 10 * time.Second

// Driver launches Chromium through playwright.
type Driver struct {
	// InstallBrowsers downloads the browser binaries before the first launch.
	InstallBrowsers bool
}

// NewDriver creates a playwright Driver.
func NewDriver(installBrowsers bool) *Driver {
	return &Driver{InstallBrowsers: installBrowsers}
}

// Open starts playwright, launches a browser and opens a single page.
// Whatever was started is returned alongside a launch error so it can be closed.
func (d *Driver) Open(ctx context.Context, opts portal.Options) (portal.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if d.InstallBrowsers {
		if err := playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}}); err != nil {
			return nil, fmt.Errorf("install browsers: %w", err)
		}
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	b := &Browser{pw: pw}

	b.browser, err = pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		return b, fmt.Errorf("launch chromium: %w", err)
	}

	ctxOpts := playwright.BrowserNewContextOptions{}
	if opts.ViewportWidth > 0 && opts.ViewportHeight > 0 {
		ctxOpts.Viewport = &playwright.Size{Width: opts.ViewportWidth, Height: opts.ViewportHeight}
	}
	if opts.UserAgent != "" {
		ctxOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	b.context, err = b.browser.NewContext(ctxOpts)
	if err != nil {
		return b, fmt.Errorf("create browser context: %w", err)
	}
	if opts.ActionTimeout > 0 {
		b.context.SetDefaultTimeout(ms(opts.ActionTimeout))
	}
	if opts.NavigationTimeout > 0 {
		b.context.SetDefaultNavigationTimeout(ms(opts.NavigationTimeout))
	}

	page, err := b.context.NewPage()
	if err != nil {
		return b, fmt.Errorf("open page: %w", err)
	}
	b.page = &Page{page: page, navTimeout: opts.NavigationTimeout}
	return b, nil
}

// Browser owns the playwright process, the browser and its only page.
type Browser struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	page    *Page
}

// Page returns the page opened at launch, or nil when the launch failed before it.
func (b *Browser) Page() portal.Page {
	if b.page == nil {
		return nil
	}
	return b.page
}

// Close shuts everything down in reverse launch order and returns the first error.
func (b *Browser) Close() error {
	var errs []error
	if b.context != nil {
		errs = append(errs, bounded(func() error { return b.context.Close() }))
	}
	if b.browser != nil {
		errs = append(errs, bounded(func() error { return b.browser.Close() }))
	}
	if b.pw != nil {
		errs = append(errs, bounded(b.pw.Stop))
	}
	return errors.Join(errs...)
}

func bounded(fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(closeTimeout):
		return fmt.Errorf("browser shutdown did not finish within %s", closeTimeout)
	}
}

// ms converts a duration to playwright's float milliseconds.
func ms(d time.Duration) float64 {
	return float64(d.Milliseconds())
}

// budget returns the smaller of timeout and the time left on ctx.
// It fails when ctx is already done.
func budget(ctx context.Context, timeout time.Duration) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		left := time.Until(deadline)
		if left <= 0 {
			return 0, context.DeadlineExceeded
		}
		if timeout <= 0 || left < timeout {
			return left, nil
		}
	}
	return timeout, nil
}

var _ portal.Browser = (*Browser)(nil)
