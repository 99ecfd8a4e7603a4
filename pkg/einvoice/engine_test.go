package einvoice_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/einvoice-engine/pkg/einvoice"
)

func TestEndToEnd(t *testing.T) {
	raw := einvoice.RawExtraction{
		InvoiceNumber: "RE-2026-042",
		InvoiceDate:   "2026-03-15",
		Currency:      "EUR",
		Seller:        einvoice.RawParty{Name: "Muster GmbH", CountryCode: "DE", VATID: "DE123456789"},
		Buyer:         einvoice.RawParty{Name: "Beispiel AG"},
		LineItems: []einvoice.RawLineItem{
			{Description: "Consulting", Quantity: 10, UnitPrice: "150,00", TotalPrice: "1.500,00", TaxRate: 19},
			{Description: "Support", Quantity: 1, UnitPrice: 500, TotalPrice: 500, TaxRate: 19},
		},
		Subtotal:    "2.000,00",
		TaxAmount:   "380,00",
		TotalAmount: "2.380,00",
	}

	inv := einvoice.Normalize(raw)
	require.NotNil(t, inv)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), inv.IssueDate)
	assert.Equal(t, 2380.0, inv.Totals.TotalAmount)

	result := einvoice.Validate(inv)
	assert.True(t, result.Valid)

	output, err := einvoice.Generate(einvoice.FormatPeppolBIS, inv)
	require.NoError(t, err)
	assert.Contains(t, output.XMLContent, "RE-2026-042")
}

func TestAvailableFormats(t *testing.T) {
	formats := einvoice.AvailableFormats()

	assert.Len(t, formats, 9)
	assert.Contains(t, formats, einvoice.FormatFatturaPA)
}
