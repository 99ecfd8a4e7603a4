package model

// RawExtraction mirrors the loose JSON shape AI providers return.
//
// Numeric fields are deliberately typed as any: providers emit numbers,
// locale-formatted strings ("1.234,56"), nulls, and occasionally arrays
// (e.g. [19, 7] for a mixed-rate document). The numeric normalizer decides
// what each of those means; nothing here does.
type RawExtraction struct {
	InvoiceNumber    string     `json:"invoice_number"`
	InvoiceDate      string     `json:"invoice_date"`
	Currency         string     `json:"currency"`
	DocumentTypeCode string     `json:"document_type_code"`
	BuyerReference   string     `json:"buyer_reference"`
	Notes            string     `json:"notes"`
	Seller           RawParty   `json:"seller"`
	Buyer            RawParty   `json:"buyer"`
	Payment          RawPayment `json:"payment"`

	LineItems []RawLineItem `json:"line_items"`

	Subtotal    any `json:"subtotal"`
	TaxAmount   any `json:"tax_amount"`
	TotalAmount any `json:"total_amount"`
	TaxRate     any `json:"tax_rate"`
}

// RawParty is the provider-shaped seller/buyer block.
type RawParty struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	PostalCode   string `json:"postal_code"`
	CountryCode  string `json:"country_code"`
	VATID        string `json:"vat_id"`
	TaxNumber    string `json:"tax_number"`
	Phone        string `json:"phone"`
}

// RawPayment is the provider-shaped payment block.
type RawPayment struct {
	IBAN    string `json:"iban"`
	BIC     string `json:"bic"`
	Terms   string `json:"terms"`
	DueDate string `json:"due_date"`
}

// RawLineItem is a provider-shaped invoice line.
type RawLineItem struct {
	Description string `json:"description"`
	Quantity    any    `json:"quantity"`
	UnitPrice   any    `json:"unit_price"`
	TotalPrice  any    `json:"total_price"`
	TaxRate     any    `json:"tax_rate"`
	Unit        string `json:"unit"`
}
