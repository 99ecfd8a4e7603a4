package validate_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/validate"
)

func validInvoice() *model.CanonicalInvoice {
	return &model.CanonicalInvoice{
		InvoiceNumber: "RE-2026-001",
		IssueDate:     time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		Currency:      "EUR",
		Seller:        model.Party{Name: "Muster GmbH", CountryCode: "DE", VATID: "DE123456789"},
		Buyer:         model.Party{Name: "Beispiel AG", CountryCode: "DE"},
		LineItems: []model.LineItem{
			{Description: "Consulting", Quantity: 10, UnitPrice: 150, TotalPrice: 1500, TaxRate: 19},
			{Description: "Support", Quantity: 5, UnitPrice: 100, TotalPrice: 500, TaxRate: 19},
		},
		Totals: model.Totals{Subtotal: 2000, TaxAmount: 380, TotalAmount: 2380},
	}
}

func TestValidate_ConsistentInvoice(t *testing.T) {
	result := validate.Validate(validInvoice())

	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
}

func TestValidate_RequiredFields(t *testing.T) {
	inv := validInvoice()
	inv.InvoiceNumber = ""
	inv.IssueDate = time.Time{}
	inv.Seller.Name = ""
	inv.Buyer.Name = ""

	result := validate.Validate(inv)

	assert.False(t, result.Valid)
	fields := issueFields(result)
	assert.Contains(t, fields, "invoiceNumber")
	assert.Contains(t, fields, "issueDate")
	assert.Contains(t, fields, "seller.name")
	assert.Contains(t, fields, "buyer.name")
}

func TestValidate_NoLineItems_ShortCircuits(t *testing.T) {
	inv := validInvoice()
	inv.LineItems = nil
	// Totals are also inconsistent, but the line-item issue must be the
	// only math-related finding.
	inv.Totals = model.Totals{Subtotal: 100, TaxAmount: 0, TotalAmount: 999}

	result := validate.Validate(inv)

	require.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "lineItems", result.Issues[0].Field)
}

func TestValidate_NegativeAmounts(t *testing.T) {
	inv := validInvoice()
	inv.LineItems[0].UnitPrice = -150
	inv.Totals.TaxAmount = -380

	result := validate.Validate(inv)

	assert.False(t, result.Valid)
	fields := issueFields(result)
	assert.Contains(t, fields, "lineItems[0].unitPrice")
	assert.Contains(t, fields, "totals.taxAmount")
}

func TestValidate_LineMismatch(t *testing.T) {
	inv := validInvoice()
	inv.LineItems[0].TotalPrice = 1400
	inv.Totals = model.Totals{Subtotal: 1900, TaxAmount: 361, TotalAmount: 2261}

	result := validate.Validate(inv)

	require.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, "lineItems[0].totalPrice", issue.Field)
	require.NotNil(t, issue.Expected)
	require.NotNil(t, issue.Actual)
	assert.Equal(t, 1500.0, *issue.Expected)
	assert.Equal(t, 1400.0, *issue.Actual)
}

func TestValidate_SubtotalMismatch(t *testing.T) {
	inv := validInvoice()
	inv.Totals.Subtotal = 2100
	inv.Totals.TaxAmount = 399
	inv.Totals.TotalAmount = 2499

	result := validate.Validate(inv)

	assert.False(t, result.Valid)
	assert.Contains(t, issueFields(result), "totals.subtotal")
}

func TestValidate_DocumentLevelTaxRate(t *testing.T) {
	rate := 19.0
	inv := validInvoice()
	for i := range inv.LineItems {
		inv.LineItems[i].TaxRate = 0
	}
	inv.TaxRate = &rate

	result := validate.Validate(inv)
	assert.True(t, result.Valid, "issues: %v", result.Issues)

	inv.Totals.TaxAmount = 400
	inv.Totals.TotalAmount = 2400
	result = validate.Validate(inv)
	assert.False(t, result.Valid)
	assert.Contains(t, issueFields(result), "totals.taxAmount")
}

func TestValidate_PerLineTaxToleranceScalesWithLineCount(t *testing.T) {
	inv := validInvoice()
	inv.LineItems = nil
	for i := 0; i < 10; i++ {
		inv.LineItems = append(inv.LineItems, model.LineItem{
			Description: "Item", Quantity: 1, UnitPrice: 200, TotalPrice: 200, TaxRate: 19,
		})
	}
	// Exact tax would be 380; 380.05 sits inside the scaled tolerance for
	// ten lines but outside the fixed document-level one.
	inv.Totals = model.Totals{Subtotal: 2000, TaxAmount: 380.05, TotalAmount: 2380.05}

	result := validate.Validate(inv)
	assert.True(t, result.Valid, "issues: %v", result.Issues)
}

func TestValidate_ZeroedTotalAmountFlagged(t *testing.T) {
	// The normalizer turns an unparseable total into 0; the validator must
	// then flag the mismatch rather than accept the zero.
	inv := validInvoice()
	inv.Totals.TotalAmount = 0

	result := validate.Validate(inv)

	require.False(t, result.Valid)
	fields := issueFields(result)
	assert.Contains(t, fields, "totals.totalAmount")
}

func TestValidate_GrandTotalMismatch(t *testing.T) {
	inv := validInvoice()
	inv.Totals.TotalAmount = 2400

	result := validate.Validate(inv)

	require.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, "totals.totalAmount", issue.Field)
	assert.Equal(t, 2380.0, *issue.Expected)
}

func issueFields(result model.ValidationResult) []string {
	fields := make([]string, 0, len(result.Issues))
	for _, issue := range result.Issues {
		fields = append(fields, issue.Field)
	}
	return fields
}
