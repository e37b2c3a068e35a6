package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTMLText_SeparatesAdjacentElements(t *testing.T) {
	text, err := HTMLText(`<div class="flight-card"><div>United Airlines</div><div>UA 226</div>` +
		`<div>07:05 BOS &rarr; 10:38 IAH</div><div>$410.00</div></div>`)

	require.NoError(t, err)
	assert.Equal(t, "United Airlines UA 226 07:05 BOS → 10:38 IAH $410.00", text)
}

func TestHTMLText_DropsScriptAndStyle(t *testing.T) {
	text, err := HTMLText(`<html><head><title>Done</title><style>.x{}</style>
		<script>var pnr = "ZZZZZZ";</script></head>
		<body><h1>Booked</h1><noscript>FALLBK</noscript><p>Record   Locator:
		AB12CD</p></body></html>`)

	require.NoError(t, err)
	assert.Equal(t, "Done Booked Record Locator: AB12CD", text)
}

func TestRenderText_NoNodes(t *testing.T) {
	assert.Empty(t, RenderText())
}
