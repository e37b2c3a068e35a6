package automation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

const amount = `\d{1,3}(?:,\d{3})+(?:\.\d+)?|\d+(?:\.\d+)?`

var (
	amountPattern = regexp.MustCompile(amount)
	symbolPattern = regexp.MustCompile(`[$€£¥₹]\s?(` + amount + `)|(` + amount + `)\s?[$€£¥₹]`)
)

// ParsePrice reads the quoted amount from text, allowing thousands separators.
// An amount next to the currency code wins, then one next to a currency symbol, then
// the first number, so counts like "2 pax" in a label are not read as the price.
func ParsePrice(text, currency string) (decimal.Decimal, error) {
	patterns := []*regexp.Regexp{symbolPattern}
	if code := strings.ToUpper(strings.TrimSpace(currency)); code != "" {
		c := regexp.QuoteMeta(code)
		coded := regexp.MustCompile(`(?i)\b` + c + `\s?(` + amount + `)|(` + amount + `)\s?` + c + `\b`)
		patterns = []*regexp.Regexp{coded, symbolPattern}
	}

	raw := ""
	for _, p := range patterns {
		if m := p.FindStringSubmatch(text); m != nil {
			raw = m[1] + m[2]
			break
		}
	}
	if raw == "" {
		raw = amountPattern.FindString(text)
	}
	if raw == "" {
		return decimal.Zero, fmt.Errorf("no amount in %q", text)
	}
	return decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
}

// PriceValidator enforces that the net price never exceeds what the customer paid.
type PriceValidator struct {
	catalog *portal.Catalog
	log     *logger.Logger
}

// NewPriceValidator creates a PriceValidator.
func NewPriceValidator(catalog *portal.Catalog, log *logger.Logger) *PriceValidator {
	return &PriceValidator{catalog: catalog, log: log}
}

// Validate reads the quoted net price. It must run before any passenger data is entered.
func (v *PriceValidator) Validate(ctx context.Context, page portal.Page, pricing domain.Pricing) (decimal.Decimal, error) {
	fail := func(err error) error {
		return domain.NewStepError(StepPrice, domain.ErrPriceValidation, err)
	}
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fail(err)
	}

	el, err := v.catalog.Locator(portal.NetPrice).Resolve(page)
	if err != nil {
		return decimal.Zero, fail(err)
	}
	text, err := el.Text()
	if err != nil {
		return decimal.Zero, fail(fmt.Errorf("read net price: %w", err))
	}
	price, err := ParsePrice(text, pricing.Currency)
	if err != nil {
		return decimal.Zero, fail(err)
	}

	if price.GreaterThan(pricing.CustomerPaid) {
		return price, fail(fmt.Errorf("net price %s %s exceeds customer paid %s",
			price.StringFixed(2), pricing.Currency, pricing.CustomerPaid.StringFixed(2)))
	}

	if pricing.ExpectedNetPrice.Valid && !price.Equal(pricing.ExpectedNetPrice.Decimal) {
		v.log.Warn().
			Str("net_price", price.String()).
			Str("expected_net_price", pricing.ExpectedNetPrice.Decimal.String()).
			Msg("Net price differs from the price quoted at sale")
	}

	v.log.Info().
		Str("net_price", price.String()).
		Str("customer_paid", pricing.CustomerPaid.String()).
		Str("margin", pricing.CustomerPaid.Sub(price).String()).
		Msg("Price validated")
	return price, nil
}
