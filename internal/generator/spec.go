package generator

import (
	"github.com/rezonia/einvoice-engine/internal/model"
)

// syntaxFamily is the XML dialect a format is expressed in.
type syntaxFamily int

const (
	syntaxUBL syntaxFamily = iota
	syntaxCII
	syntaxFatturaPA
	syntaxKSeF
)

// mandatedField names a canonical field a format's schema requires.
type mandatedField struct {
	name    string
	hint    string
	present func(*model.CanonicalInvoice) bool
}

// formatSpec is the declarative descriptor driving a builder.
type formatSpec struct {
	id       model.OutputFormat
	syntax   syntaxFamily
	embedPDF bool

	// UBL: cbc:CustomizationID / cbc:ProfileID.
	// CII: guideline and business process context parameters.
	customizationID string
	profileID       string

	mandated []mandatedField
}

func baseMandated() []mandatedField {
	return []mandatedField{
		{
			name:    "invoiceNumber",
			present: func(inv *model.CanonicalInvoice) bool { return inv.InvoiceNumber != "" },
		},
		{
			name:    "issueDate",
			present: func(inv *model.CanonicalInvoice) bool { return !inv.IssueDate.IsZero() },
		},
		{
			name:    "currency",
			present: func(inv *model.CanonicalInvoice) bool { return inv.Currency != "" },
		},
		{
			name:    "seller.name",
			present: func(inv *model.CanonicalInvoice) bool { return inv.Seller.Name != "" },
		},
		{
			name:    "buyer.name",
			present: func(inv *model.CanonicalInvoice) bool { return inv.Buyer.Name != "" },
		},
		{
			name:    "lineItems",
			hint:    "at least one line item",
			present: func(inv *model.CanonicalInvoice) bool { return len(inv.LineItems) > 0 },
		},
	}
}

func withMandated(extra ...mandatedField) []mandatedField {
	return append(baseMandated(), extra...)
}

var buyerReferenceMandated = mandatedField{
	name:    "buyerReference",
	hint:    "XRechnung requires the Leitweg-ID as buyer reference",
	present: func(inv *model.CanonicalInvoice) bool { return inv.BuyerReference != "" },
}

var sellerVATMandated = mandatedField{
	name:    "seller.vatId",
	present: func(inv *model.CanonicalInvoice) bool { return inv.Seller.VATID != "" },
}

var sellerCountryMandated = mandatedField{
	name:    "seller.countryCode",
	present: func(inv *model.CanonicalInvoice) bool { return inv.Seller.CountryCode != "" },
}

var sellerTaxIDMandated = mandatedField{
	name:    "seller.taxNumber",
	hint:    "KSeF requires the seller NIP",
	present: func(inv *model.CanonicalInvoice) bool { return inv.Seller.TaxNumber != "" || inv.Seller.VATID != "" },
}

// formatSpecs is the single source of truth for which formats exist.
// Registration order defines the order AvailableFormats reports.
var formatSpecs = []*formatSpec{
	{
		id:              model.FormatXRechnungCII,
		syntax:          syntaxCII,
		customizationID: "urn:cen.eu:en16931:2017#compliant#urn:xeinkauf.de:kosit:xrechnung_3.0",
		mandated:        withMandated(buyerReferenceMandated),
	},
	{
		id:              model.FormatXRechnungUBL,
		syntax:          syntaxUBL,
		customizationID: "urn:cen.eu:en16931:2017#compliant#urn:xeinkauf.de:kosit:xrechnung_3.0",
		profileID:       "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0",
		mandated:        withMandated(buyerReferenceMandated),
	},
	{
		id:              model.FormatPeppolBIS,
		syntax:          syntaxUBL,
		customizationID: "urn:cen.eu:en16931:2017#compliant#urn:fdc:peppol.eu:2017:poacc:billing:3.0",
		profileID:       "urn:fdc:peppol.eu:2017:poacc:billing:01:1.0",
		mandated:        withMandated(sellerCountryMandated),
	},
	{
		id:              model.FormatFacturXEN16931,
		syntax:          syntaxCII,
		customizationID: "urn:cen.eu:en16931:2017",
		embedPDF:        true,
		mandated:        withMandated(sellerVATMandated),
	},
	{
		id:              model.FormatFacturXBasic,
		syntax:          syntaxCII,
		customizationID: "urn:cen.eu:en16931:2017#compliant#urn:factur-x.eu:1p0:basic",
		embedPDF:        true,
		mandated:        withMandated(sellerVATMandated),
	},
	{
		id:       model.FormatFatturaPA,
		syntax:   syntaxFatturaPA,
		mandated: withMandated(sellerVATMandated, sellerCountryMandated),
	},
	{
		id:       model.FormatKSeF,
		syntax:   syntaxKSeF,
		mandated: withMandated(sellerTaxIDMandated),
	},
	{
		id:              model.FormatNLCIUS,
		syntax:          syntaxUBL,
		customizationID: "urn:cen.eu:en16931:2017#compliant#urn:fdc:nen.nl:nlcius:v1.0",
		mandated:        withMandated(sellerCountryMandated),
	},
	{
		id:              model.FormatCIUSRO,
		syntax:          syntaxUBL,
		customizationID: "urn:cen.eu:en16931:2017#compliant#urn:efactura.mfinante.ro:CIUS-RO:1.0.1",
		mandated:        withMandated(sellerCountryMandated),
	},
}
