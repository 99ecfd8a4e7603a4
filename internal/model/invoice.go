// Package model defines the canonical invoice representation shared by the
// extraction pipeline, the validator, and every format generator.
//
// The canonical invoice is format-agnostic: one instance is built per
// extraction (or review edit), handed to generators by read-only reference,
// and replaced wholesale rather than mutated in place.
package model

import "time"

// OutputFormat identifies a target e-invoice standard.
type OutputFormat string

// Supported output formats.
const (
	FormatXRechnungCII    OutputFormat = "xrechnung-cii"
	FormatXRechnungUBL    OutputFormat = "xrechnung-ubl"
	FormatPeppolBIS       OutputFormat = "peppol-bis"
	FormatFacturXEN16931  OutputFormat = "facturx-en16931"
	FormatFacturXBasic    OutputFormat = "facturx-basic"
	FormatFatturaPA       OutputFormat = "fatturapa"
	FormatKSeF            OutputFormat = "ksef"
	FormatNLCIUS          OutputFormat = "nlcius"
	FormatCIUSRO          OutputFormat = "cius-ro"
)

// DocumentTypeCode values (UNTDID 1001 subset).
const (
	DocTypeCommercialInvoice = "380"
	DocTypeCreditNote        = "381"
	DocTypeCorrectedInvoice  = "384"
)

// Party is a seller or buyer on the invoice.
type Party struct {
	Name              string `json:"name"`
	Email             string `json:"email,omitempty"`
	AddressLine1      string `json:"address_line1,omitempty"`
	AddressLine2      string `json:"address_line2,omitempty"`
	City              string `json:"city,omitempty"`
	PostalCode        string `json:"postal_code,omitempty"`
	CountryCode       string `json:"country_code,omitempty"` // ISO 3166-1 alpha-2
	VATID             string `json:"vat_id,omitempty"`
	TaxNumber         string `json:"tax_number,omitempty"`
	ElectronicAddress string `json:"electronic_address,omitempty"`
	ElectronicScheme  string `json:"electronic_scheme,omitempty"` // EAS code, e.g. "EM", "0204"
	ContactName       string `json:"contact_name,omitempty"`
	Phone             string `json:"phone,omitempty"`
}

// Payment holds settlement instructions.
type Payment struct {
	IBAN    string     `json:"iban,omitempty"`
	BIC     string     `json:"bic,omitempty"`
	Terms   string     `json:"terms,omitempty"`
	DueDate *time.Time `json:"due_date,omitempty"`
}

// LineItem is a single invoice line.
//
// Monetary fields are float64; NaN marks a value the extraction could not
// parse, which the validator reports rather than silently zeroing.
type LineItem struct {
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	UnitPrice       float64 `json:"unit_price"`
	TotalPrice      float64 `json:"total_price"`
	TaxRate         float64 `json:"tax_rate,omitempty"`
	TaxCategoryCode string  `json:"tax_category_code,omitempty"` // UNTDID 5305, e.g. "S", "E", "Z"
	UnitCode        string  `json:"unit_code,omitempty"`         // UN/ECE Rec 20, e.g. "C62", "HUR"
}

// Totals are the document-level amounts.
type Totals struct {
	Subtotal    float64 `json:"subtotal"`
	TaxAmount   float64 `json:"tax_amount"`
	TotalAmount float64 `json:"total_amount"`
}

// BillingPeriod is an optional invoicing period.
type BillingPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// CanonicalInvoice is the pivot entity every generator consumes.
type CanonicalInvoice struct {
	Format             OutputFormat   `json:"format"`
	InvoiceNumber      string         `json:"invoice_number"`
	IssueDate          time.Time      `json:"issue_date"`
	Currency           string         `json:"currency"`
	DocumentTypeCode   string         `json:"document_type_code,omitempty"`
	BuyerReference     string         `json:"buyer_reference,omitempty"` // Leitweg-ID for XRechnung
	Notes              string         `json:"notes,omitempty"`
	PrecedingInvoiceRef string        `json:"preceding_invoice_ref,omitempty"`
	BillingPeriod      *BillingPeriod `json:"billing_period,omitempty"`

	Seller  Party   `json:"seller"`
	Buyer   Party   `json:"buyer"`
	Payment Payment `json:"payment"`

	LineItems []LineItem `json:"line_items"`
	Totals    Totals     `json:"totals"`

	// TaxRate is the document-level rate, used only when no line item
	// carries its own positive rate. Nil means "not stated".
	TaxRate *float64 `json:"tax_rate,omitempty"`
}

// HasLineRates reports whether any line item carries a positive tax rate,
// which selects the per-line tax reconciliation strategy.
func (inv *CanonicalInvoice) HasLineRates() bool {
	for _, item := range inv.LineItems {
		if item.TaxRate > 0 {
			return true
		}
	}
	return false
}

// DocType returns the document type code, defaulting to a commercial invoice.
func (inv *CanonicalInvoice) DocType() string {
	if inv.DocumentTypeCode == "" {
		return DocTypeCommercialInvoice
	}
	return inv.DocumentTypeCode
}

// ValidationIssue is a single reported inconsistency.
type ValidationIssue struct {
	Field    string   `json:"field"`
	Message  string   `json:"message"`
	Expected *float64 `json:"expected,omitempty"`
	Actual   *float64 `json:"actual,omitempty"`
}

// ValidationResult is the outcome of validating a canonical invoice.
// It is ephemeral: consumed by the retry loop, never persisted as-is.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues,omitempty"`
}
