// Package einvoice provides a public API for generating and cross-validating
// European e-invoices from extracted document data.
//
// Example usage:
//
//	inv := einvoice.Normalize(raw)
//	result := einvoice.Validate(inv)
//	if result.Valid {
//	    output, err := einvoice.Generate(einvoice.FormatXRechnungUBL, inv)
//	    ...
//	}
package einvoice

import "github.com/rezonia/einvoice-engine/internal/model"

// Re-export core types for public API
type (
	CanonicalInvoice = model.CanonicalInvoice
	Party            = model.Party
	Payment          = model.Payment
	LineItem         = model.LineItem
	Totals           = model.Totals
	BillingPeriod    = model.BillingPeriod
	OutputFormat     = model.OutputFormat
	ValidationIssue  = model.ValidationIssue
	ValidationResult = model.ValidationResult
	RawExtraction    = model.RawExtraction
	RawParty         = model.RawParty
	RawPayment       = model.RawPayment
	RawLineItem      = model.RawLineItem
)

// Re-export output formats
const (
	FormatXRechnungCII   = model.FormatXRechnungCII
	FormatXRechnungUBL   = model.FormatXRechnungUBL
	FormatPeppolBIS      = model.FormatPeppolBIS
	FormatFacturXEN16931 = model.FormatFacturXEN16931
	FormatFacturXBasic   = model.FormatFacturXBasic
	FormatFatturaPA      = model.FormatFatturaPA
	FormatKSeF           = model.FormatKSeF
	FormatNLCIUS         = model.FormatNLCIUS
	FormatCIUSRO         = model.FormatCIUSRO
)

// Re-export document type codes
const (
	DocTypeCommercialInvoice = model.DocTypeCommercialInvoice
	DocTypeCreditNote        = model.DocTypeCreditNote
	DocTypeCorrectedInvoice  = model.DocTypeCorrectedInvoice
)

// Re-export error types
type (
	ValidationError      = model.ValidationError
	ExtractionError      = model.ExtractionError
	UnknownFormatError   = model.UnknownFormatError
	GeneratorSchemaError = model.GeneratorSchemaError
	OptimisticLockError  = model.OptimisticLockError
)
