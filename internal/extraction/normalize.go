package extraction

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/numeric"
)

// Date layouts providers emit, most common first.
var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"2006/01/02",
	time.RFC3339,
}

// Normalize converts a provider's raw field set into a canonical invoice.
//
// Every monetary and line-item numeric field goes through the locale-aware
// parser. Unparseable values propagate as NaN so the validator can flag
// them, with one exception: an unparseable total amount becomes 0, logged,
// because NaN must never reach persisted data. The validator still flags the
// zero as a total mismatch.
func Normalize(raw model.RawExtraction, logger *zap.Logger) *model.CanonicalInvoice {
	if logger == nil {
		logger = zap.NewNop()
	}

	inv := &model.CanonicalInvoice{
		InvoiceNumber:    strings.TrimSpace(raw.InvoiceNumber),
		Currency:         strings.ToUpper(strings.TrimSpace(raw.Currency)),
		DocumentTypeCode: raw.DocumentTypeCode,
		BuyerReference:   raw.BuyerReference,
		Notes:            raw.Notes,
		Seller:           normalizeParty(raw.Seller),
		Buyer:            normalizeParty(raw.Buyer),
		Payment:          normalizePayment(raw.Payment),
	}

	if date, ok := parseDate(raw.InvoiceDate); ok {
		inv.IssueDate = date
	}

	for _, item := range raw.LineItems {
		inv.LineItems = append(inv.LineItems, model.LineItem{
			Description: strings.TrimSpace(item.Description),
			Quantity:    numeric.ParseNumber(item.Quantity),
			UnitPrice:   numeric.ParseNumber(item.UnitPrice),
			TotalPrice:  numeric.ParseNumber(item.TotalPrice),
			TaxRate:     lineTaxRate(item.TaxRate),
			UnitCode:    item.Unit,
		})
	}

	inv.Totals.Subtotal = numeric.ParseNumber(raw.Subtotal)
	inv.Totals.TaxAmount = numeric.ParseNumber(raw.TaxAmount)

	inv.Totals.TotalAmount = numeric.ParseNumber(raw.TotalAmount)
	if math.IsNaN(inv.Totals.TotalAmount) {
		logger.Warn("total amount unparseable, defaulting to zero",
			zap.Any("raw_value", raw.TotalAmount),
			zap.String("invoice_number", inv.InvoiceNumber),
		)
		inv.Totals.TotalAmount = 0
	}

	// An array-valued document rate means mixed per-line rates; leave the
	// document-level rate unset rather than invent one.
	if rate, ok := numeric.ParseOptional(raw.TaxRate); ok {
		inv.TaxRate = &rate
	}

	return inv
}

// lineTaxRate treats an unstated or unrepresentable rate as zero: a line
// without a rate simply does not participate in per-line reconciliation.
func lineTaxRate(v any) float64 {
	rate, ok := numeric.ParseOptional(v)
	if !ok {
		return 0
	}
	return rate
}

func normalizeParty(raw model.RawParty) model.Party {
	return model.Party{
		Name:         strings.TrimSpace(raw.Name),
		Email:        strings.TrimSpace(raw.Email),
		AddressLine1: strings.TrimSpace(raw.AddressLine1),
		AddressLine2: strings.TrimSpace(raw.AddressLine2),
		City:         strings.TrimSpace(raw.City),
		PostalCode:   strings.TrimSpace(raw.PostalCode),
		CountryCode:  strings.ToUpper(strings.TrimSpace(raw.CountryCode)),
		VATID:        strings.TrimSpace(raw.VATID),
		TaxNumber:    strings.TrimSpace(raw.TaxNumber),
		Phone:        strings.TrimSpace(raw.Phone),
	}
}

func normalizePayment(raw model.RawPayment) model.Payment {
	payment := model.Payment{
		IBAN:  strings.ReplaceAll(strings.TrimSpace(raw.IBAN), " ", ""),
		BIC:   strings.TrimSpace(raw.BIC),
		Terms: strings.TrimSpace(raw.Terms),
	}
	if due, ok := parseDate(raw.DueDate); ok {
		payment.DueDate = &due
	}
	return payment
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
