package browser

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// Element adapts a playwright locator pinned to a single node.
type Element struct {
	loc playwright.Locator
}

// all expands a locator into one Element per node currently in the DOM.
func all(loc playwright.Locator) ([]portal.Element, error) {
	nodes, err := loc.All()
	if err != nil {
		return nil, err
	}
	out := make([]portal.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Element{loc: n})
	}
	return out, nil
}

// Click implements portal.Element.
func (e *Element) Click() error {
	return e.loc.Click()
}

// Fill implements portal.Element.
func (e *Element) Fill(value string) error {
	return e.loc.Fill(value)
}

// Select picks the option whose label matches, then the one whose value matches.
func (e *Element) Select(option string) error {
	_, err := e.loc.SelectOption(playwright.SelectOptionValues{Labels: &[]string{option}})
	if err == nil {
		return nil
	}
	if _, valErr := e.loc.SelectOption(playwright.SelectOptionValues{Values: &[]string{option}}); valErr != nil {
		return fmt.Errorf("select %q: %w", option, err)
	}
	return nil
}

// Text returns the rendered text. When the element has no layout it renders the inner
// HTML instead; raw text content would run adjacent blocks together.
func (e *Element) Text() (string, error) {
	text, err := e.loc.InnerText()
	if err == nil && strings.TrimSpace(text) != "" {
		return text, nil
	}
	if inner, err := e.loc.InnerHTML(); err == nil {
		if text, err := portal.HTMLText(inner); err == nil {
			return text, nil
		}
	}
	return e.loc.TextContent()
}

// Attribute implements portal.Element.
func (e *Element) Attribute(name string) (string, error) {
	return e.loc.GetAttribute(name)
}

// Query implements portal.Scope.
func (e *Element) Query(css string) ([]portal.Element, error) {
	return all(e.loc.Locator(css))
}

// ByText implements portal.Scope.
func (e *Element) ByText(text string, exact bool) ([]portal.Element, error) {
	return all(e.loc.GetByText(text, playwright.LocatorGetByTextOptions{Exact: playwright.Bool(exact)}))
}

// ByLabel implements portal.Scope.
func (e *Element) ByLabel(label string, exact bool) ([]portal.Element, error) {
	return all(e.loc.GetByLabel(label, playwright.LocatorGetByLabelOptions{Exact: playwright.Bool(exact)}))
}

// ByTestID implements portal.Scope.
func (e *Element) ByTestID(id string) ([]portal.Element, error) {
	return all(e.loc.GetByTestId(id))
}

var _ portal.Element = (*Element)(nil)
