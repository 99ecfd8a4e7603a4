package generator

import (
	"fmt"
	"math"

	"github.com/beevik/etree"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/numeric"
)

// UBL 2.1 namespaces shared by every UBL-based format.
const (
	nsUBLInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	nsUBLCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	nsUBLCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
)

// ublGenerator renders the UBL 2.1 syntax; the descriptor selects the
// customization (XRechnung, Peppol BIS, NLCIUS, CIUS-RO).
type ublGenerator struct {
	spec *formatSpec
}

func newUBLGenerator(spec *formatSpec) *ublGenerator {
	return &ublGenerator{spec: spec}
}

func (g *ublGenerator) Format() model.OutputFormat {
	return g.spec.id
}

func (g *ublGenerator) Generate(inv *model.CanonicalInvoice) (*Output, error) {
	if err := checkMandated(g.spec, inv); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("ubl:Invoice")
	root.CreateAttr("xmlns:ubl", nsUBLInvoice)
	root.CreateAttr("xmlns:cac", nsUBLCac)
	root.CreateAttr("xmlns:cbc", nsUBLCbc)

	root.CreateElement("cbc:CustomizationID").SetText(g.spec.customizationID)
	if g.spec.profileID != "" {
		root.CreateElement("cbc:ProfileID").SetText(g.spec.profileID)
	}
	root.CreateElement("cbc:ID").SetText(inv.InvoiceNumber)
	root.CreateElement("cbc:IssueDate").SetText(inv.IssueDate.Format("2006-01-02"))
	if inv.Payment.DueDate != nil {
		root.CreateElement("cbc:DueDate").SetText(inv.Payment.DueDate.Format("2006-01-02"))
	}
	root.CreateElement("cbc:InvoiceTypeCode").SetText(inv.DocType())
	if inv.Notes != "" {
		root.CreateElement("cbc:Note").SetText(inv.Notes)
	}
	root.CreateElement("cbc:DocumentCurrencyCode").SetText(inv.Currency)
	if inv.BuyerReference != "" {
		root.CreateElement("cbc:BuyerReference").SetText(inv.BuyerReference)
	}

	if inv.BillingPeriod != nil {
		period := root.CreateElement("cac:InvoicePeriod")
		period.CreateElement("cbc:StartDate").SetText(inv.BillingPeriod.Start.Format("2006-01-02"))
		period.CreateElement("cbc:EndDate").SetText(inv.BillingPeriod.End.Format("2006-01-02"))
	}

	if inv.PrecedingInvoiceRef != "" {
		billing := root.CreateElement("cac:BillingReference")
		ref := billing.CreateElement("cac:InvoiceDocumentReference")
		ref.CreateElement("cbc:ID").SetText(inv.PrecedingInvoiceRef)
	}

	g.addParty(root, "cac:AccountingSupplierParty", &inv.Seller)
	g.addParty(root, "cac:AccountingCustomerParty", &inv.Buyer)
	g.addPaymentMeans(root, inv)
	g.addTaxTotal(root, inv)
	g.addMonetaryTotal(root, inv)

	for i, item := range inv.LineItems {
		g.addInvoiceLine(root, inv, i, &item)
	}

	doc.Indent(2)
	xml, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", g.spec.id, err)
	}

	return &Output{XMLContent: xml}, nil
}

func (g *ublGenerator) addParty(root *etree.Element, tag string, party *model.Party) {
	wrapper := root.CreateElement(tag)
	p := wrapper.CreateElement("cac:Party")

	if party.ElectronicAddress != "" {
		endpoint := p.CreateElement("cbc:EndpointID")
		if party.ElectronicScheme != "" {
			endpoint.CreateAttr("schemeID", party.ElectronicScheme)
		}
		endpoint.SetText(party.ElectronicAddress)
	}

	address := p.CreateElement("cac:PostalAddress")
	if party.AddressLine1 != "" {
		address.CreateElement("cbc:StreetName").SetText(party.AddressLine1)
	}
	if party.AddressLine2 != "" {
		address.CreateElement("cbc:AdditionalStreetName").SetText(party.AddressLine2)
	}
	if party.City != "" {
		address.CreateElement("cbc:CityName").SetText(party.City)
	}
	if party.PostalCode != "" {
		address.CreateElement("cbc:PostalZone").SetText(party.PostalCode)
	}
	if party.CountryCode != "" {
		country := address.CreateElement("cac:Country")
		country.CreateElement("cbc:IdentificationCode").SetText(party.CountryCode)
	}

	if party.VATID != "" {
		taxScheme := p.CreateElement("cac:PartyTaxScheme")
		taxScheme.CreateElement("cbc:CompanyID").SetText(party.VATID)
		scheme := taxScheme.CreateElement("cac:TaxScheme")
		scheme.CreateElement("cbc:ID").SetText("VAT")
	}

	legal := p.CreateElement("cac:PartyLegalEntity")
	legal.CreateElement("cbc:RegistrationName").SetText(party.Name)
	if party.TaxNumber != "" {
		legal.CreateElement("cbc:CompanyID").SetText(party.TaxNumber)
	}

	if party.ContactName != "" || party.Email != "" || party.Phone != "" {
		contact := p.CreateElement("cac:Contact")
		if party.ContactName != "" {
			contact.CreateElement("cbc:Name").SetText(party.ContactName)
		}
		if party.Phone != "" {
			contact.CreateElement("cbc:Telephone").SetText(party.Phone)
		}
		if party.Email != "" {
			contact.CreateElement("cbc:ElectronicMail").SetText(party.Email)
		}
	}
}

func (g *ublGenerator) addPaymentMeans(root *etree.Element, inv *model.CanonicalInvoice) {
	if inv.Payment.IBAN == "" && inv.Payment.Terms == "" {
		return
	}

	if inv.Payment.IBAN != "" {
		means := root.CreateElement("cac:PaymentMeans")
		// 58 = SEPA credit transfer.
		means.CreateElement("cbc:PaymentMeansCode").SetText("58")
		account := means.CreateElement("cac:PayeeFinancialAccount")
		account.CreateElement("cbc:ID").SetText(inv.Payment.IBAN)
		if inv.Payment.BIC != "" {
			branch := account.CreateElement("cac:FinancialInstitutionBranch")
			branch.CreateElement("cbc:ID").SetText(inv.Payment.BIC)
		}
	}

	if inv.Payment.Terms != "" {
		terms := root.CreateElement("cac:PaymentTerms")
		terms.CreateElement("cbc:Note").SetText(inv.Payment.Terms)
	}
}

func (g *ublGenerator) addTaxTotal(root *etree.Element, inv *model.CanonicalInvoice) {
	taxTotal := root.CreateElement("cac:TaxTotal")
	amount := taxTotal.CreateElement("cbc:TaxAmount")
	amount.CreateAttr("currencyID", inv.Currency)
	amount.SetText(numeric.FormatAmount(inv.Totals.TaxAmount))

	for _, group := range taxBreakdown(inv) {
		subtotal := taxTotal.CreateElement("cac:TaxSubtotal")
		taxable := subtotal.CreateElement("cbc:TaxableAmount")
		taxable.CreateAttr("currencyID", inv.Currency)
		taxable.SetText(numeric.FormatAmount(group.Basis))
		sub := subtotal.CreateElement("cbc:TaxAmount")
		sub.CreateAttr("currencyID", inv.Currency)
		sub.SetText(numeric.FormatAmount(group.Amount))

		category := subtotal.CreateElement("cac:TaxCategory")
		category.CreateElement("cbc:ID").SetText(group.CategoryCode)
		category.CreateElement("cbc:Percent").SetText(numeric.FormatRate(group.Rate))
		scheme := category.CreateElement("cac:TaxScheme")
		scheme.CreateElement("cbc:ID").SetText("VAT")
	}
}

func (g *ublGenerator) addMonetaryTotal(root *etree.Element, inv *model.CanonicalInvoice) {
	total := root.CreateElement("cac:LegalMonetaryTotal")
	for _, entry := range []struct {
		tag   string
		value float64
	}{
		{"cbc:LineExtensionAmount", inv.Totals.Subtotal},
		{"cbc:TaxExclusiveAmount", inv.Totals.Subtotal},
		{"cbc:TaxInclusiveAmount", inv.Totals.TotalAmount},
		{"cbc:PayableAmount", inv.Totals.TotalAmount},
	} {
		e := total.CreateElement(entry.tag)
		e.CreateAttr("currencyID", inv.Currency)
		e.SetText(numeric.FormatAmount(entry.value))
	}
}

func (g *ublGenerator) addInvoiceLine(root *etree.Element, inv *model.CanonicalInvoice, index int, item *model.LineItem) {
	line := root.CreateElement("cac:InvoiceLine")
	line.CreateElement("cbc:ID").SetText(fmt.Sprintf("%d", index+1))

	qty := line.CreateElement("cbc:InvoicedQuantity")
	qty.CreateAttr("unitCode", unitCodeOrDefault(item.UnitCode))
	qty.SetText(numeric.FormatRate(item.Quantity))

	ext := line.CreateElement("cbc:LineExtensionAmount")
	ext.CreateAttr("currencyID", inv.Currency)
	ext.SetText(numeric.FormatAmount(item.TotalPrice))

	itemEl := line.CreateElement("cac:Item")
	itemEl.CreateElement("cbc:Name").SetText(item.Description)

	category := itemEl.CreateElement("cac:ClassifiedTaxCategory")
	category.CreateElement("cbc:ID").SetText(taxCategory(item, inv))
	category.CreateElement("cbc:Percent").SetText(numeric.FormatRate(effectiveRate(item, inv)))
	scheme := category.CreateElement("cac:TaxScheme")
	scheme.CreateElement("cbc:ID").SetText("VAT")

	price := line.CreateElement("cac:Price")
	priceAmount := price.CreateElement("cbc:PriceAmount")
	priceAmount.CreateAttr("currencyID", inv.Currency)
	priceAmount.SetText(numeric.FormatAmount(item.UnitPrice))
}

// taxGroup is one VAT breakdown bucket (rate + category).
type taxGroup struct {
	Rate         float64
	CategoryCode string
	Basis        float64
	Amount       float64
}

// taxBreakdown buckets line items by effective rate and category, falling
// back to the document-level rate when lines carry none.
func taxBreakdown(inv *model.CanonicalInvoice) []taxGroup {
	type key struct {
		rate     float64
		category string
	}

	order := make([]key, 0, 2)
	groups := make(map[key]*taxGroup)

	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		k := key{rate: effectiveRate(item, inv), category: taxCategory(item, inv)}
		g, ok := groups[k]
		if !ok {
			g = &taxGroup{Rate: k.rate, CategoryCode: k.category}
			groups[k] = g
			order = append(order, k)
		}
		if !math.IsNaN(item.TotalPrice) {
			g.Basis += item.TotalPrice
		}
		g.Amount = numeric.Round2(g.Basis * g.Rate / 100)
	}

	result := make([]taxGroup, 0, len(order))
	for _, k := range order {
		g := groups[k]
		g.Basis = numeric.Round2(g.Basis)
		result = append(result, *g)
	}
	return result
}

// effectiveRate is the line's own rate, or the document-level fallback.
func effectiveRate(item *model.LineItem, inv *model.CanonicalInvoice) float64 {
	if item.TaxRate > 0 {
		return item.TaxRate
	}
	if !inv.HasLineRates() && inv.TaxRate != nil {
		return *inv.TaxRate
	}
	return item.TaxRate
}

// taxCategory maps a line to its UNTDID 5305 category: explicit code wins,
// zero-rate lines are E (exempt), everything else is S (standard).
func taxCategory(item *model.LineItem, inv *model.CanonicalInvoice) string {
	if item.TaxCategoryCode != "" {
		return item.TaxCategoryCode
	}
	if effectiveRate(item, inv) == 0 {
		return "E"
	}
	return "S"
}

func unitCodeOrDefault(code string) string {
	if code == "" {
		return "C62" // UN/ECE Rec 20: "one" (piece)
	}
	return code
}
