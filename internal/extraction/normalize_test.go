package extraction_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rezonia/einvoice-engine/internal/extraction"
	"github.com/rezonia/einvoice-engine/internal/model"
)

func TestNormalize_EuropeanAmounts(t *testing.T) {
	raw := model.RawExtraction{
		InvoiceNumber: "RE-001",
		InvoiceDate:   "2026-03-15",
		Currency:      "eur",
		Seller:        model.RawParty{Name: "  Muster GmbH  ", CountryCode: "de"},
		Buyer:         model.RawParty{Name: "Beispiel AG"},
		LineItems: []model.RawLineItem{
			{Description: "Widget", Quantity: "1", UnitPrice: "1.234,56", TotalPrice: "1.234,56", TaxRate: "19"},
		},
		Subtotal:    "1.234,56",
		TaxAmount:   "234,57",
		TotalAmount: "1.469,13",
	}

	inv := extraction.Normalize(raw, zap.NewNop())

	assert.Equal(t, "RE-001", inv.InvoiceNumber)
	assert.Equal(t, "EUR", inv.Currency)
	assert.Equal(t, "Muster GmbH", inv.Seller.Name)
	assert.Equal(t, "DE", inv.Seller.CountryCode)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), inv.IssueDate)

	require.Len(t, inv.LineItems, 1)
	assert.InDelta(t, 1234.56, inv.LineItems[0].UnitPrice, 1e-9)
	assert.InDelta(t, 1234.56, inv.LineItems[0].TotalPrice, 1e-9)
	assert.Equal(t, 19.0, inv.LineItems[0].TaxRate)

	assert.InDelta(t, 1234.56, inv.Totals.Subtotal, 1e-9)
	assert.InDelta(t, 1469.13, inv.Totals.TotalAmount, 1e-9)
}

func TestNormalize_UnparseableTotalDefaultsToZero(t *testing.T) {
	raw := model.RawExtraction{
		TotalAmount: "N/A",
		Subtotal:    "100,00",
		TaxAmount:   "19,00",
	}

	inv := extraction.Normalize(raw, zap.NewNop())

	// Zero, not NaN: the explicit logged fallback. The validator flags the
	// resulting total mismatch downstream.
	assert.Equal(t, 0.0, inv.Totals.TotalAmount)
	assert.InDelta(t, 100.0, inv.Totals.Subtotal, 1e-9)
}

func TestNormalize_UnparseableSubtotalPropagatesNaN(t *testing.T) {
	raw := model.RawExtraction{
		Subtotal:    "unknown",
		TotalAmount: "119,00",
	}

	inv := extraction.Normalize(raw, zap.NewNop())

	assert.True(t, math.IsNaN(inv.Totals.Subtotal))
}

func TestNormalize_ArrayTaxRateLeftUnset(t *testing.T) {
	raw := model.RawExtraction{
		TaxRate:     []any{19.0, 7.0},
		TotalAmount: "119,00",
	}

	inv := extraction.Normalize(raw, zap.NewNop())

	assert.Nil(t, inv.TaxRate)
}

func TestNormalize_PaymentAndDates(t *testing.T) {
	raw := model.RawExtraction{
		InvoiceDate: "15.03.2026",
		TotalAmount: "100",
		Payment: model.RawPayment{
			IBAN:    "DE89 3704 0044 0532 0130 00",
			BIC:     "COBADEFFXXX",
			DueDate: "2026-04-14",
		},
	}

	inv := extraction.Normalize(raw, zap.NewNop())

	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), inv.IssueDate)
	assert.Equal(t, "DE89370400440532013000", inv.Payment.IBAN)
	require.NotNil(t, inv.Payment.DueDate)
	assert.Equal(t, time.Date(2026, 4, 14, 0, 0, 0, 0, time.UTC), *inv.Payment.DueDate)
}
