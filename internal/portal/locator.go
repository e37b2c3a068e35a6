package portal

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoMatch is returned when no strategy of a locator finds an element.
var ErrNoMatch = errors.New("no locator strategy matched")

// StrategyKind names how a strategy looks elements up.
type StrategyKind string

const (
	KindTestID StrategyKind = "test_id"
	KindLabel  StrategyKind = "label"
	KindText   StrategyKind = "text"
	KindCSS    StrategyKind = "css"
	// KindInputScan walks every form control and matches the value against its
	// aria-label, placeholder, name and id.
	KindInputScan StrategyKind = "input_scan"
)

// Valid reports whether k is a known strategy kind.
func (k StrategyKind) Valid() bool {
	switch k {
	case KindTestID, KindLabel, KindText, KindCSS, KindInputScan:
		return true
	}
	return false
}

// Pick chooses among several candidates of one strategy.
type Pick string

const (
	PickFirst Pick = "first"
	PickLast  Pick = "last"
)

// LocatorStrategy is one way of finding an element.
type LocatorStrategy struct {
	Kind  StrategyKind `yaml:"kind"`
	Value string       `yaml:"value"`
	Exact bool         `yaml:"exact,omitempty"`
	Pick  Pick         `yaml:"pick,omitempty"`
}

func (s LocatorStrategy) String() string {
	return fmt.Sprintf("%s=%q", s.Kind, s.Value)
}

// ElementLocator tries its strategies in order until one finds something.
type ElementLocator struct {
	Name       string
	Strategies []LocatorStrategy
}

// NewLocator builds a locator from strategies.
func NewLocator(name string, strategies ...LocatorStrategy) ElementLocator {
	return ElementLocator{Name: name, Strategies: strategies}
}

// CSS, TestID, Label, Text and InputScan build strategies.
func CSS(selector string) LocatorStrategy { return LocatorStrategy{Kind: KindCSS, Value: selector} }
func TestID(id string) LocatorStrategy    { return LocatorStrategy{Kind: KindTestID, Value: id} }
func Label(label string) LocatorStrategy  { return LocatorStrategy{Kind: KindLabel, Value: label} }
func Text(text string) LocatorStrategy    { return LocatorStrategy{Kind: KindText, Value: text} }
func InputScan(label string) LocatorStrategy {
	return LocatorStrategy{Kind: KindInputScan, Value: label}
}

// ExactText matches the whole trimmed text of an element.
func ExactText(text string) LocatorStrategy {
	return LocatorStrategy{Kind: KindText, Value: text, Exact: true}
}

// Last returns a copy of s that picks the last candidate.
func (s LocatorStrategy) Last() LocatorStrategy {
	s.Pick = PickLast
	return s
}

// With substitutes {key} placeholders in every strategy value.
func (l ElementLocator) With(vars map[string]string) ElementLocator {
	out := ElementLocator{Name: l.Name, Strategies: make([]LocatorStrategy, len(l.Strategies))}
	for i, s := range l.Strategies {
		for k, v := range vars {
			s.Value = strings.ReplaceAll(s.Value, "{"+k+"}", v)
		}
		out.Strategies[i] = s
	}
	return out
}

// Resolve returns the element chosen by the first strategy that finds any candidate.
func (l ElementLocator) Resolve(scope Scope) (Element, error) {
	for _, s := range l.Strategies {
		found, err := s.find(scope)
		if err != nil || len(found) == 0 {
			continue
		}
		if s.Pick == PickLast {
			return found[len(found)-1], nil
		}
		return found[0], nil
	}
	return nil, l.noMatch()
}

// ResolveNth returns the n-th candidate (zero based) of the first strategy that has one.
// It serves repeated forms that share a page without a per-item container.
func (l ElementLocator) ResolveNth(scope Scope, n int) (Element, error) {
	for _, s := range l.Strategies {
		found, err := s.find(scope)
		if err != nil || len(found) <= n {
			continue
		}
		return found[n], nil
	}
	return nil, l.noMatch()
}

// ResolveAll returns every candidate of the first strategy that finds any.
func (l ElementLocator) ResolveAll(scope Scope) ([]Element, error) {
	for _, s := range l.Strategies {
		found, err := s.find(scope)
		if err != nil || len(found) == 0 {
			continue
		}
		return found, nil
	}
	return nil, l.noMatch()
}

func (l ElementLocator) noMatch() error {
	return fmt.Errorf("%s: %w", l.Name, ErrNoMatch)
}

func (s LocatorStrategy) find(scope Scope) ([]Element, error) {
	switch s.Kind {
	case KindTestID:
		return scope.ByTestID(s.Value)
	case KindLabel:
		return scope.ByLabel(s.Value, s.Exact)
	case KindText:
		return scope.ByText(s.Value, s.Exact)
	case KindCSS:
		return scope.Query(s.Value)
	case KindInputScan:
		return scanInputs(scope, s.Value)
	default:
		return nil, fmt.Errorf("unknown strategy kind %q", s.Kind)
	}
}

var scannedAttributes = []string{"aria-label", "placeholder", "name", "id"}

func scanInputs(scope Scope, label string) ([]Element, error) {
	controls, err := scope.Query("input, select, textarea")
	if err != nil {
		return nil, err
	}
	want := normalize(label)
	var out []Element
	for _, c := range controls {
		for _, attr := range scannedAttributes {
			v, err := c.Attribute(attr)
			if err == nil && v != "" && strings.Contains(normalize(v), want) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

// normalize lowercases and drops separators so "first_name", "firstName" and
// "First name" compare equal.
func normalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch r {
		case ' ', '_', '-', '.':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
