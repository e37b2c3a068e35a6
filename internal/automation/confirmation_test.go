package automation

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flight-search/consolidator-rebooking/internal/infrastructure/logger"
	"github.com/flight-search/consolidator-rebooking/test/fakeportal"
)

func TestExtractPNR(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "PNR label", text: "Your booking is complete. PNR: XK4T9Q", want: "XK4T9Q"},
		{name: "PNR lowercase label", text: "pnr# ABC123 issued", want: "ABC123"},
		{name: "confirmation number", text: "Confirmation number: 7HJK2L", want: "7HJK2L"},
		{name: "confirmation needs a separator", text: "Confirmation pending ABCDEF", want: "ABCDEF"},
		{name: "record locator", text: "Record Locator: AB12CD", want: "AB12CD"},
		{name: "PNR wins over record locator", text: "Record Locator: AB12CD PNR: ZZ99YY", want: "ZZ99YY"},
		{name: "bare token", text: "Thank you. QWERTY is your code.", want: "QWERTY"},
		{name: "stoplist skipped", text: "STATUS TICKET ISSUED for LMNOPQ", want: "LMNOPQ"},
		{name: "mixed case is not a locator", text: "Thanks Abcdef", want: ""},
		{name: "seven letters is not a locator", text: "ABCDEFG", want: ""},
		{name: "nothing", text: "Thank you for your booking", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractPNR(tt.text))
		})
	}
}

func TestExtractETickets(t *testing.T) {
	text := "Tickets 016-2345678901 and 0162345678902; again 016-2345678901. Phone 555-1234567"
	assert.Equal(t, []string{"016-2345678901", "0162345678902"}, ExtractETickets(text))
	assert.Empty(t, ExtractETickets("no tickets yet"))
}

func TestExtractReference(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{text: "Booking Reference: CX-99812.", want: "CX-99812"},
		{text: "Order #A77120", want: "A77120"},
		{text: "Booking ID: 883412", want: "883412"},
		{text: "Reference number: REF2024", want: "REF2024"},
		{text: "Thanks for booking", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractReference(tt.text))
		})
	}
}

func TestVisibleText(t *testing.T) {
	text, err := VisibleText(`<html><head><title>Done</title><style>.x{}</style>
		<script>var pnr = "ZZZZZZ";</script></head>
		<body><h1>Booked</h1><noscript>FALLBK</noscript><p>Record   Locator:
		AB12CD</p></body></html>`)

	require.NoError(t, err)
	assert.Equal(t, "Done Booked Record Locator: AB12CD", text)
	assert.NotContains(t, text, "ZZZZZZ")
}

func TestConfirmationReader_Read(t *testing.T) {
	p := fakeportal.NewPage()
	p.Show("confirmation", `<html><head><script>ZZZZZZ</script></head><body>
		<div>PNR: Q1W2E3</div><div>E-ticket 125-1234567890</div><div>Booking Reference: CX-1</div>
		</body></html>`)

	conf := NewConfirmationReader(logger.Nop()).Read(context.Background(), p)

	assert.Equal(t, "Q1W2E3", conf.PNR)
	assert.Equal(t, []string{"125-1234567890"}, conf.ETicketNumbers)
	assert.Equal(t, "CX-1", conf.ConsolidatorReference)
}
