package fakeportal

import (
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// ErrNotActionable is returned when an action does not apply to the element.
var ErrNotActionable = errors.New("element not actionable")

// Element implements portal.Element over a single node.
type Element struct {
	page *Page
	sel  *goquery.Selection
}

func (e *Element) wrap(s *goquery.Selection) []portal.Element {
	out := make([]portal.Element, 0, s.Length())
	s.Each(func(_ int, one *goquery.Selection) {
		out = append(out, &Element{page: e.page, sel: one})
	})
	return out
}

// Query implements portal.Scope.
func (e *Element) Query(css string) ([]portal.Element, error) {
	return e.wrap(e.sel.Find(css)), nil
}

// ByText returns the innermost elements whose text matches. A non-exact match is a
// case-insensitive substring; an exact match compares the whole trimmed text.
func (e *Element) ByText(text string, exact bool) ([]portal.Element, error) {
	matches := func(s *goquery.Selection) bool {
		if s.Is("script, style, head, title, html, body") {
			return false
		}
		return textMatches(portal.RenderText(s.Nodes...), text, exact)
	}
	var nodes []*html.Node
	e.sel.Find("*").Each(func(_ int, s *goquery.Selection) {
		if !matches(s) {
			return
		}
		inner := false
		s.Children().Each(func(_ int, c *goquery.Selection) {
			if matches(c) {
				inner = true
			}
		})
		if !inner {
			nodes = append(nodes, s.Nodes[0])
		}
	})
	return e.wrap(e.sel.FindNodes(nodes...)), nil
}

// ByLabel resolves label elements (by "for" or by nesting) and aria-label attributes.
func (e *Element) ByLabel(label string, exact bool) ([]portal.Element, error) {
	var nodes []*html.Node
	seen := make(map[*html.Node]bool)
	add := func(s *goquery.Selection) {
		s.Each(func(_ int, one *goquery.Selection) {
			n := one.Nodes[0]
			if !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		})
	}

	e.sel.Find("label").Each(func(_ int, l *goquery.Selection) {
		if !textMatches(l.Text(), label, exact) {
			return
		}
		if id, ok := l.Attr("for"); ok && id != "" {
			add(e.sel.Find(fmt.Sprintf(`[id="%s"]`, id)))
			return
		}
		add(l.Find("input, select, textarea"))
	})
	e.sel.Find("[aria-label]").Each(func(_ int, s *goquery.Selection) {
		if v, _ := s.Attr("aria-label"); textMatches(v, label, exact) {
			add(s)
		}
	})
	return e.wrap(e.sel.FindNodes(nodes...)), nil
}

// ByTestID implements portal.Scope.
func (e *Element) ByTestID(id string) ([]portal.Element, error) {
	return e.wrap(e.sel.Find(fmt.Sprintf(`[data-testid="%s"]`, id))), nil
}

// Click checks radios and checkboxes, follows labels to their control and runs the
// handler of the nearest element carrying data-action.
func (e *Element) Click() error {
	target := e.sel
	if target.Is("label") {
		if control := e.labelled(); control.Length() > 0 {
			target = control
		}
	}
	if target.Is(`input[type="radio"], input[type="checkbox"]`) {
		if target.Is(`input[type="radio"]`) {
			if name, ok := target.Attr("name"); ok {
				e.page.doc.Find(fmt.Sprintf(`input[type="radio"][name="%s"]`, name)).RemoveAttr("checked")
			}
		}
		target.SetAttr("checked", "checked")
	}

	actionable := target
	if _, ok := actionable.Attr("data-action"); !ok {
		actionable = target.ParentsFiltered("[data-action]").First()
	}
	action, _ := actionable.Attr("data-action")
	e.page.recordClick(describe(target, action))

	if action == "" {
		return nil
	}
	if h, ok := e.page.handlers[action]; ok {
		h(e.page, actionable)
	}
	return nil
}

func (e *Element) labelled() *goquery.Selection {
	if id, ok := e.sel.Attr("for"); ok && id != "" {
		return e.page.doc.Find(fmt.Sprintf(`[id="%s"]`, id))
	}
	return e.sel.Find("input, select, textarea").First()
}

// Fill implements portal.Element.
func (e *Element) Fill(value string) error {
	if !e.sel.Is("input, textarea") {
		return fmt.Errorf("fill %s: %w", describe(e.sel, ""), ErrNotActionable)
	}
	if _, ok := e.sel.Attr("disabled"); ok {
		return fmt.Errorf("fill %s: disabled: %w", describe(e.sel, ""), ErrNotActionable)
	}
	e.sel.SetAttr("value", value)
	e.page.recordFill(fieldKey(e.sel), value)
	if e.page.fillHook != nil {
		e.page.fillHook(e.page, e.sel, value)
	}
	return nil
}

// Select implements portal.Element.
func (e *Element) Select(option string) error {
	if !e.sel.Is("select") {
		return fmt.Errorf("select %s: %w", describe(e.sel, ""), ErrNotActionable)
	}
	var chosen *goquery.Selection
	e.sel.Find("option").EachWithBreak(func(_ int, o *goquery.Selection) bool {
		if strings.TrimSpace(o.Text()) == option {
			chosen = o
			return false
		}
		return true
	})
	if chosen == nil {
		e.sel.Find("option").EachWithBreak(func(_ int, o *goquery.Selection) bool {
			if v, _ := o.Attr("value"); v == option {
				chosen = o
				return false
			}
			return true
		})
	}
	if chosen == nil {
		return fmt.Errorf("select %s: option %q not found: %w", describe(e.sel, ""), option, ErrNotActionable)
	}
	e.sel.Find("option").RemoveAttr("selected")
	chosen.SetAttr("selected", "selected")
	value, ok := chosen.Attr("value")
	if !ok {
		value = strings.TrimSpace(chosen.Text())
	}
	e.page.recordFill(fieldKey(e.sel), value)
	return nil
}

// Text implements portal.Element. Adjacent elements are separated by a space, as a
// browser's rendered text separates blocks.
func (e *Element) Text() (string, error) {
	return portal.RenderText(e.sel.Nodes...), nil
}

// Attribute implements portal.Element. A missing attribute is the empty string.
func (e *Element) Attribute(name string) (string, error) {
	v, _ := e.sel.Attr(name)
	return v, nil
}

func textMatches(have, want string, exact bool) bool {
	have = collapse(have)
	if exact {
		return have == strings.TrimSpace(want)
	}
	return want != "" && strings.Contains(strings.ToLower(have), strings.ToLower(want))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func fieldKey(s *goquery.Selection) string {
	for _, attr := range []string{"id", "name", "data-testid", "aria-label"} {
		if v, ok := s.Attr(attr); ok && v != "" {
			return v
		}
	}
	return goquery.NodeName(s)
}

func describe(s *goquery.Selection, action string) string {
	if action != "" {
		return action
	}
	if text := portal.RenderText(s.Nodes...); text != "" {
		return goquery.NodeName(s) + ":" + text
	}
	return goquery.NodeName(s) + "#" + fieldKey(s)
}

var _ portal.Element = (*Element)(nil)
