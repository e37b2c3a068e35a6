package portal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeNode is a tiny in-memory Scope and Element. Lookups return the
// children registered under the matching key.
type fakeNode struct {
	name    string
	attrs   map[string]string
	css     map[string][]Element
	text    map[string][]Element
	label   map[string][]Element
	testIDs map[string][]Element
	failCSS bool
}

func newNode(name string) *fakeNode {
	return &fakeNode{
		name:    name,
		attrs:   map[string]string{},
		css:     map[string][]Element{},
		text:    map[string][]Element{},
		label:   map[string][]Element{},
		testIDs: map[string][]Element{},
	}
}

func (n *fakeNode) Query(css string) ([]Element, error) {
	if n.failCSS {
		return nil, errors.New("detached")
	}
	return n.css[css], nil
}
func (n *fakeNode) ByText(text string, _ bool) ([]Element, error) { return n.text[text], nil }
func (n *fakeNode) ByLabel(label string, _ bool) ([]Element, error) {
	return n.label[label], nil
}
func (n *fakeNode) ByTestID(id string) ([]Element, error) { return n.testIDs[id], nil }
func (n *fakeNode) Click() error                         { return nil }
func (n *fakeNode) Fill(string) error                    { return nil }
func (n *fakeNode) Select(string) error                  { return nil }
func (n *fakeNode) Text() (string, error)                { return n.name, nil }
func (n *fakeNode) Attribute(name string) (string, error) {
	v, ok := n.attrs[name]
	if !ok {
		return "", errors.New("no attribute")
	}
	return v, nil
}

func nodeName(t *testing.T, el Element) string {
	t.Helper()
	text, err := el.Text()
	require.NoError(t, err)
	return text
}

func TestResolve_FallsThroughStrategies(t *testing.T) {
	page := newNode("page")
	byLabel := newNode("label-match")
	page.label["From"] = []Element{byLabel}

	loc := NewLocator(Origin, TestID("origin"), CSS(`input[name="origin"]`), Label("From"))

	el, err := loc.Resolve(page)
	require.NoError(t, err)
	assert.Equal(t, "label-match", nodeName(t, el))
}

func TestResolve_FirstStrategyWins(t *testing.T) {
	page := newNode("page")
	page.testIDs["origin"] = []Element{newNode("by-test-id")}
	page.label["From"] = []Element{newNode("by-label")}

	el, err := NewLocator(Origin, TestID("origin"), Label("From")).Resolve(page)
	require.NoError(t, err)
	assert.Equal(t, "by-test-id", nodeName(t, el))
}

func TestResolve_ErroringStrategyIsSkipped(t *testing.T) {
	page := newNode("page")
	page.failCSS = true
	page.text["Search"] = []Element{newNode("search-button")}

	el, err := NewLocator(SearchSubmit, CSS("button.search"), Text("Search")).Resolve(page)
	require.NoError(t, err)
	assert.Equal(t, "search-button", nodeName(t, el))
}

func TestResolve_PickLast(t *testing.T) {
	page := newNode("page")
	page.text["BOOK"] = []Element{newNode("first"), newNode("second"), newNode("third")}

	el, err := NewLocator(BookAction, ExactText("BOOK").Last()).Resolve(page)
	require.NoError(t, err)
	assert.Equal(t, "third", nodeName(t, el))

	el, err = NewLocator(BookAction, ExactText("BOOK")).Resolve(page)
	require.NoError(t, err)
	assert.Equal(t, "first", nodeName(t, el))
}

func TestResolve_NoMatch(t *testing.T) {
	_, err := NewLocator(NetPrice, TestID("net-price"), CSS(".net-price")).Resolve(newNode("page"))

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoMatch))
	assert.Contains(t, err.Error(), NetPrice)
}

func TestResolve_UnknownKindNeverMatches(t *testing.T) {
	page := newNode("page")
	page.css["x"] = []Element{newNode("x")}

	_, err := NewLocator("broken", LocatorStrategy{Kind: "xpath", Value: "x"}).Resolve(page)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolveNth(t *testing.T) {
	page := newNode("page")
	page.css[`input[name="firstName"]`] = []Element{newNode("pax0")}
	page.label["First name"] = []Element{newNode("label0"), newNode("label1")}

	loc := NewLocator(FirstName, CSS(`input[name="firstName"]`), Label("First name"))

	el, err := loc.ResolveNth(page, 0)
	require.NoError(t, err)
	assert.Equal(t, "pax0", nodeName(t, el))

	el, err = loc.ResolveNth(page, 1)
	require.NoError(t, err)
	assert.Equal(t, "label1", nodeName(t, el), "a strategy with too few candidates is skipped")

	_, err = loc.ResolveNth(page, 2)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolveAll(t *testing.T) {
	page := newNode("page")
	page.css[".flight-card"] = []Element{newNode("a"), newNode("b")}

	all, err := NewLocator(ResultCard, TestID("flight-result"), CSS(".flight-card")).ResolveAll(page)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = NewLocator(ResultCard, TestID("flight-result")).ResolveAll(page)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestWith_SubstitutesPlaceholders(t *testing.T) {
	base := NewLocator(CalendarDay, CSS(`[data-date="{date}"]`))

	loc := base.With(map[string]string{"date": "2025-03-10"})

	assert.Equal(t, `[data-date="2025-03-10"]`, loc.Strategies[0].Value)
	assert.Equal(t, `[data-date="{date}"]`, base.Strategies[0].Value, "the base locator is untouched")
}

func TestInputScan_MatchesNormalizedAttributes(t *testing.T) {
	page := newNode("page")
	byName := newNode("by-name")
	byName.attrs["name"] = "first_name"
	byPlaceholder := newNode("by-placeholder")
	byPlaceholder.attrs["placeholder"] = "First Name"
	other := newNode("other")
	other.attrs["name"] = "lastName"
	page.css["input, select, textarea"] = []Element{other, byName, byPlaceholder}

	all, err := NewLocator(FirstName, InputScan("firstName")).ResolveAll(page)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "by-name", nodeName(t, all[0]))
	assert.Equal(t, "by-placeholder", nodeName(t, all[1]))
}

func TestNormalize(t *testing.T) {
	assert.Equal(t, "firstname", normalize("first_name"))
	assert.Equal(t, "firstname", normalize("First Name"))
	assert.Equal(t, "dateofbirth", normalize("date-of.birth"))
}

func TestStrategyKind_Valid(t *testing.T) {
	for _, k := range []StrategyKind{KindTestID, KindLabel, KindText, KindCSS, KindInputScan} {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, StrategyKind("xpath").Valid())
	assert.False(t, StrategyKind("").Valid())
}

func TestLocatorStrategy_String(t *testing.T) {
	assert.Equal(t, `css="button.book"`, CSS("button.book").String())
}
