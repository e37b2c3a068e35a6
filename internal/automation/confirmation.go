package automation

import (
	"context"
	"regexp"
	"strings"

	"github.com/flight-search/consolidator-rebooking/internal/domain"
	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/internal/portal"
)

// pnrPatterns are tried in order; the first capture wins.
var pnrPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(?i:PNR)\s*(?:[:#]|(?i:is))?\s*([A-Z0-9]{6})\b`),
	regexp.MustCompile(`\b(?i:confirmation)(?:\s+(?i:number|code|no\.?))?\s*[:#]\s*([A-Z0-9]{6})\b`),
	regexp.MustCompile(`\b(?i:record\s+locator)\s*[:#]?\s*([A-Z0-9]{6})\b`),
	regexp.MustCompile(`\b([A-Z]{6})\b`),
}

// bareTokenStoplist holds uppercase words that look like locators on confirmation pages.
var bareTokenStoplist = map[string]bool{
	"ADULTS": true, "AGENCY": true, "AIRWAY": true, "ARRIVE": true, "BOOKED": true,
	"CANCEL": true, "CHARGE": true, "CREDIT": true, "DEPART": true, "FLIGHT": true,
	"INFANT": true, "NUMBER": true, "PAYMNT": true, "PRINTS": true, "RETURN": true,
	"STATUS": true, "TICKET": true, "TRAVEL": true, "UNITED": true, "ISSUED": true,
}

var (
	eticketPattern   = regexp.MustCompile(`\b\d{3}-?\d{10}\b`)
	referencePattern = regexp.MustCompile(`\b(?i:booking\s+reference|booking\s+ref\.?|booking\s+id|order|reference)(?:\s+(?i:number|no\.?|id))?\s*[:#]\s*([A-Za-z0-9][A-Za-z0-9-]{3,})`)
)

// ExtractPNR returns the booking locator in text, or "" when there is none.
func ExtractPNR(text string) string {
	last := len(pnrPatterns) - 1
	for i, re := range pnrPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			token := m[1]
			if i == last && bareTokenStoplist[token] {
				continue
			}
			return token
		}
	}
	return ""
}

// ExtractETickets returns the distinct 13-digit ticket numbers in text.
func ExtractETickets(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range eticketPattern.FindAllString(text, -1) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// ExtractReference returns the consolidator's own booking reference, if labelled.
func ExtractReference(text string) string {
	m := referencePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimRight(m[1], "-")
}

// VisibleText renders the text of an HTML document without script and style content.
func VisibleText(doc string) (string, error) {
	return portal.HTMLText(doc)
}

// ConfirmationReader scrapes the confirmation page.
type ConfirmationReader struct {
	log *logger.Logger
}

// NewConfirmationReader creates a ConfirmationReader.
func NewConfirmationReader(log *logger.Logger) *ConfirmationReader {
	return &ConfirmationReader{log: log}
}

// Read extracts what it can from the page. A missing PNR is not an error: the booking
// has been submitted and must be reconciled by hand.
func (r *ConfirmationReader) Read(ctx context.Context, page portal.Page) domain.Confirmation {
	text := r.pageText(page)
	conf := domain.Confirmation{
		PNR:                   ExtractPNR(text),
		ETicketNumbers:        ExtractETickets(text),
		ConsolidatorReference: ExtractReference(text),
	}

	if conf.PNR == "" {
		r.log.Warn().Err(domain.ErrConfirmationParse).Msg("No PNR on confirmation page, manual reconciliation required")
	} else {
		r.log.Info().
			Str("pnr", conf.PNR).
			Strs("etickets", conf.ETicketNumbers).
			Str("consolidator_reference", conf.ConsolidatorReference).
			Msg("Confirmation read")
	}
	return conf
}

func (r *ConfirmationReader) pageText(page portal.Page) string {
	if doc, err := page.HTML(); err == nil {
		if text, err := VisibleText(doc); err == nil && text != "" {
			return text
		}
	}
	text, err := page.BodyText()
	if err != nil {
		r.log.Warn().Err(err).Msg("Confirmation page text unavailable")
		return ""
	}
	return text
}
