// Package validate checks the mathematical and structural consistency of a
// canonical invoice.
//
// Business-rule violations are reported through the result value, never as
// errors: the retry loop, the review UI, and the API all need the full issue
// list, not the first failure.
package validate

import (
	"fmt"
	"math"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/numeric"
)

// Fixed tolerances absorbing floating-point and rounding drift. These encode
// acceptable numeric error, not business flexibility, so they are not
// configurable per call.
const (
	lineTolerance     = 0.01
	subtotalTolerance = 0.02
	taxTolerance      = 0.02
	totalTolerance    = 0.02

	// Per-line tax accumulation adds rounding error with every line, so the
	// per-line strategy scales its tolerance linearly with line count.
	taxTolerancePerLine = 0.005
)

// Validate checks required fields, non-negativity, and totals reconciliation.
// It never mutates the invoice; every finding is reported in the result.
func Validate(inv *model.CanonicalInvoice) model.ValidationResult {
	var issues []model.ValidationIssue

	issues = append(issues, requiredFieldIssues(inv)...)

	// No line items: report exactly that and skip the math checks, which
	// would otherwise divide meaning out of an empty set.
	if len(inv.LineItems) == 0 {
		issues = append(issues, model.ValidationIssue{
			Field:   "lineItems",
			Message: "invoice must contain at least one line item",
		})
		return result(issues)
	}

	issues = append(issues, amountSignIssues(inv)...)
	issues = append(issues, lineReconciliationIssues(inv)...)
	issues = append(issues, subtotalIssue(inv)...)
	issues = append(issues, taxIssue(inv)...)
	issues = append(issues, totalIssue(inv)...)

	return result(issues)
}

func result(issues []model.ValidationIssue) model.ValidationResult {
	return model.ValidationResult{Valid: len(issues) == 0, Issues: issues}
}

func requiredFieldIssues(inv *model.CanonicalInvoice) []model.ValidationIssue {
	var issues []model.ValidationIssue

	if inv.InvoiceNumber == "" {
		issues = append(issues, model.ValidationIssue{Field: "invoiceNumber", Message: "invoice number is required"})
	}
	if inv.IssueDate.IsZero() {
		issues = append(issues, model.ValidationIssue{Field: "issueDate", Message: "invoice date is required"})
	}
	if inv.Seller.Name == "" {
		issues = append(issues, model.ValidationIssue{Field: "seller.name", Message: "seller name is required"})
	}
	if inv.Buyer.Name == "" {
		issues = append(issues, model.ValidationIssue{Field: "buyer.name", Message: "buyer name is required"})
	}

	return issues
}

func amountSignIssues(inv *model.CanonicalInvoice) []model.ValidationIssue {
	var issues []model.ValidationIssue

	if inv.Totals.Subtotal < 0 {
		issues = append(issues, negativeIssue("totals.subtotal", inv.Totals.Subtotal))
	}
	if inv.Totals.TaxAmount < 0 {
		issues = append(issues, negativeIssue("totals.taxAmount", inv.Totals.TaxAmount))
	}
	if inv.Totals.TotalAmount < 0 {
		issues = append(issues, negativeIssue("totals.totalAmount", inv.Totals.TotalAmount))
	}

	for i, item := range inv.LineItems {
		if item.UnitPrice < 0 {
			issues = append(issues, negativeIssue(lineField(i, "unitPrice"), item.UnitPrice))
		}
		if item.TotalPrice < 0 {
			issues = append(issues, negativeIssue(lineField(i, "totalPrice"), item.TotalPrice))
		}
	}

	return issues
}

func lineReconciliationIssues(inv *model.CanonicalInvoice) []model.ValidationIssue {
	var issues []model.ValidationIssue

	for i, item := range inv.LineItems {
		expected := numeric.Round2(item.UnitPrice * item.Quantity)
		if !numeric.WithinTolerance(expected, item.TotalPrice, lineTolerance) {
			issues = append(issues, mismatchIssue(
				lineField(i, "totalPrice"),
				"line total does not match unit price times quantity",
				expected, item.TotalPrice,
			))
		}
	}

	return issues
}

func subtotalIssue(inv *model.CanonicalInvoice) []model.ValidationIssue {
	totals := make([]float64, len(inv.LineItems))
	for i, item := range inv.LineItems {
		totals[i] = item.TotalPrice
	}

	expected := numeric.Round2(numeric.Sum(totals))
	if numeric.WithinTolerance(expected, inv.Totals.Subtotal, subtotalTolerance) {
		return nil
	}
	return []model.ValidationIssue{mismatchIssue(
		"totals.subtotal",
		"subtotal does not match sum of line totals",
		expected, inv.Totals.Subtotal,
	)}
}

// taxIssue selects one of two mutually exclusive reconciliation strategies:
// per-line rates when any line carries a positive rate, the document-level
// rate as a fallback. Neither applies when the data states no rate at all.
func taxIssue(inv *model.CanonicalInvoice) []model.ValidationIssue {
	if inv.HasLineRates() {
		var expected float64
		for _, item := range inv.LineItems {
			if math.IsNaN(item.TotalPrice) || math.IsNaN(item.TaxRate) {
				expected = math.NaN()
				break
			}
			expected += item.TotalPrice * item.TaxRate / 100
		}
		expected = numeric.Round2(expected)

		tol := taxTolerance + taxTolerancePerLine*float64(len(inv.LineItems))
		if numeric.WithinTolerance(expected, inv.Totals.TaxAmount, tol) {
			return nil
		}
		return []model.ValidationIssue{mismatchIssue(
			"totals.taxAmount",
			"tax amount does not match per-line tax rates",
			expected, inv.Totals.TaxAmount,
		)}
	}

	if inv.TaxRate != nil && !math.IsNaN(inv.Totals.Subtotal) {
		expected := numeric.Round2(inv.Totals.Subtotal * *inv.TaxRate / 100)
		if numeric.WithinTolerance(expected, inv.Totals.TaxAmount, taxTolerance) {
			return nil
		}
		return []model.ValidationIssue{mismatchIssue(
			"totals.taxAmount",
			"tax amount does not match document tax rate",
			expected, inv.Totals.TaxAmount,
		)}
	}

	return nil
}

func totalIssue(inv *model.CanonicalInvoice) []model.ValidationIssue {
	expected := numeric.Round2(inv.Totals.Subtotal + inv.Totals.TaxAmount)
	if numeric.WithinTolerance(expected, inv.Totals.TotalAmount, totalTolerance) {
		return nil
	}
	return []model.ValidationIssue{mismatchIssue(
		"totals.totalAmount",
		"total does not match subtotal plus tax",
		expected, inv.Totals.TotalAmount,
	)}
}

func negativeIssue(field string, actual float64) model.ValidationIssue {
	return model.ValidationIssue{
		Field:   field,
		Message: "amount must not be negative",
		Actual:  &actual,
	}
}

func mismatchIssue(field, message string, expected, actual float64) model.ValidationIssue {
	issue := model.ValidationIssue{Field: field, Message: message}
	if !math.IsNaN(expected) {
		issue.Expected = &expected
	}
	if !math.IsNaN(actual) {
		issue.Actual = &actual
	}
	return issue
}

func lineField(index int, name string) string {
	return fmt.Sprintf("lineItems[%d].%s", index, name)
}
