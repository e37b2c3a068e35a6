// Package fakeportal is an in-memory portal for tests. Screens are plain HTML parsed with
// goquery; clicks on elements carrying a data-action attribute run registered handlers, which
// usually swap the screen.
package fakeportal

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// Handler reacts to a click on an element with data-action. target is that element.
type Handler func(p *Page, target *goquery.Selection)

// FillHook runs after a successful Fill.
type FillHook func(p *Page, el *goquery.Selection, value string)

// Fill records one value typed or selected into a control.
type Fill struct {
	Field string
	Value string
}

// Page implements portal.Page over a goquery document.
type Page struct {
	mu          sync.Mutex
	doc         *goquery.Document
	screen      string
	screens     []string
	handlers    map[string]Handler
	fillHook    FillHook
	fills       []Fill
	clicks      []string
	navigations []string
	shots       int

	// IdleErr is returned by WaitIdle.
	IdleErr error
	// ScreenshotErr is returned by Screenshot.
	ScreenshotErr error
	// OnNavigate runs on every Navigate.
	OnNavigate func(p *Page, url string)
}

// NewPage creates a page showing a blank screen.
func NewPage() *Page {
	p := &Page{handlers: make(map[string]Handler)}
	p.Show("blank", "<html><body></body></html>")
	return p
}

// Show replaces the rendered document.
func (p *Page) Show(screen, html string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		panic(fmt.Sprintf("fakeportal: parse screen %s: %v", screen, err))
	}
	p.doc = doc
	p.screen = screen
	p.screens = append(p.screens, screen)
}

// On registers the handler for a data-action value.
func (p *Page) On(action string, h Handler) {
	p.handlers[action] = h
}

// OnFill registers the hook run after fills.
func (p *Page) OnFill(h FillHook) {
	p.fillHook = h
}

// Doc exposes the current document to handlers.
func (p *Page) Doc() *goquery.Document { return p.doc }

// Screen is the name of the current screen.
func (p *Page) Screen() string { return p.screen }

// Screens lists every screen shown, in order.
func (p *Page) Screens() []string { return append([]string(nil), p.screens...) }

// Fills lists every recorded fill, in order.
func (p *Page) Fills() []Fill {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Fill(nil), p.fills...)
}

// Value returns the last value filled into field.
func (p *Page) Value(field string) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := len(p.fills) - 1; i >= 0; i-- {
		if p.fills[i].Field == field {
			return p.fills[i].Value, true
		}
	}
	return "", false
}

// Clicks lists a description of every click, in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Navigations lists every URL navigated to.
func (p *Page) Navigations() []string { return append([]string(nil), p.navigations...) }

// ScreenshotCount is the number of screenshots taken.
func (p *Page) ScreenshotCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shots
}

// Navigate implements portal.Page.
func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.navigations = append(p.navigations, url)
	if p.OnNavigate != nil {
		p.OnNavigate(p, url)
	}
	return nil
}

// WaitVisible implements portal.Page. Nothing renders asynchronously, so a missing
// element times out at once.
func (p *Page) WaitVisible(ctx context.Context, selector string, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.doc.Find(selector).Length() > 0 {
		return nil
	}
	return fmt.Errorf("waiting for %q: %w", selector, domain.ErrTimeout)
}

// WaitIdle implements portal.Page.
func (p *Page) WaitIdle(ctx context.Context, _ time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.IdleErr
}

// BodyText implements portal.Page.
func (p *Page) BodyText() (string, error) {
	return portal.RenderText(p.doc.Find("body").Nodes...), nil
}

// HTML implements portal.Page.
func (p *Page) HTML() (string, error) {
	return p.doc.Html()
}

// Screenshot implements portal.Page.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.ScreenshotErr != nil {
		return nil, p.ScreenshotErr
	}
	p.mu.Lock()
	p.shots++
	p.mu.Unlock()
	return []byte("PNG:" + p.screen), nil
}

// Query implements portal.Scope.
func (p *Page) Query(css string) ([]portal.Element, error) {
	return p.root().Query(css)
}

// ByText implements portal.Scope.
func (p *Page) ByText(text string, exact bool) ([]portal.Element, error) {
	return p.root().ByText(text, exact)
}

// ByLabel implements portal.Scope.
func (p *Page) ByLabel(label string, exact bool) ([]portal.Element, error) {
	return p.root().ByLabel(label, exact)
}

// ByTestID implements portal.Scope.
func (p *Page) ByTestID(id string) ([]portal.Element, error) {
	return p.root().ByTestID(id)
}

func (p *Page) root() *Element {
	return &Element{page: p, sel: p.doc.Selection}
}

func (p *Page) recordFill(field, value string) {
	p.mu.Lock()
	p.fills = append(p.fills, Fill{Field: field, Value: value})
	p.mu.Unlock()
}

func (p *Page) recordClick(desc string) {
	p.mu.Lock()
	p.clicks = append(p.clicks, desc)
	p.mu.Unlock()
}

var _ portal.Page = (*Page)(nil)
