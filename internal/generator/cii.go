package generator

import (
	"fmt"

	"github.com/beevik/etree"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/numeric"
)

// UN/CEFACT Cross-Industry Invoice namespaces.
const (
	nsCIIRsm = "urn:un:unece:uncefact:data:standard:CrossIndustryInvoice:100"
	nsCIIRam = "urn:un:unece:uncefact:data:standard:ReusableAggregateBusinessInformationEntity:100"
	nsCIIUdt = "urn:un:unece:uncefact:data:standard:UnqualifiedDataType:100"
)

// ciiGenerator renders the CII syntax; the descriptor selects the guideline
// (XRechnung CII, Factur-X EN16931, Factur-X Basic). Factur-X descriptors
// additionally embed the XML into a PDF/A-3 container.
type ciiGenerator struct {
	spec     *formatSpec
	embedder *pdfEmbedder
}

func newCIIGenerator(spec *formatSpec) *ciiGenerator {
	g := &ciiGenerator{spec: spec}
	if spec.embedPDF {
		g.embedder = newPDFEmbedder()
	}
	return g
}

func (g *ciiGenerator) Format() model.OutputFormat {
	return g.spec.id
}

func (g *ciiGenerator) Generate(inv *model.CanonicalInvoice) (*Output, error) {
	if err := checkMandated(g.spec, inv); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("rsm:CrossIndustryInvoice")
	root.CreateAttr("xmlns:rsm", nsCIIRsm)
	root.CreateAttr("xmlns:ram", nsCIIRam)
	root.CreateAttr("xmlns:udt", nsCIIUdt)

	g.addDocumentContext(root)
	g.addExchangedDocument(root, inv)
	g.addTransaction(root, inv)

	doc.Indent(2)
	xml, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", g.spec.id, err)
	}

	output := &Output{XMLContent: xml}

	if g.embedder != nil {
		pdf, err := g.embedder.Embed(inv, []byte(xml))
		if err != nil {
			return nil, fmt.Errorf("embedding %s XML into PDF/A-3: %w", g.spec.id, err)
		}
		output.PDFContent = pdf
	}

	return output, nil
}

func (g *ciiGenerator) addDocumentContext(root *etree.Element) {
	ctx := root.CreateElement("rsm:ExchangedDocumentContext")
	guideline := ctx.CreateElement("ram:GuidelineSpecifiedDocumentContextParameter")
	guideline.CreateElement("ram:ID").SetText(g.spec.customizationID)
	if g.spec.profileID != "" {
		process := ctx.CreateElement("ram:BusinessProcessSpecifiedDocumentContextParameter")
		process.CreateElement("ram:ID").SetText(g.spec.profileID)
	}
}

func (g *ciiGenerator) addExchangedDocument(root *etree.Element, inv *model.CanonicalInvoice) {
	doc := root.CreateElement("rsm:ExchangedDocument")
	doc.CreateElement("ram:ID").SetText(inv.InvoiceNumber)
	doc.CreateElement("ram:TypeCode").SetText(inv.DocType())

	issue := doc.CreateElement("ram:IssueDateTime")
	date := issue.CreateElement("udt:DateTimeString")
	date.CreateAttr("format", "102") // CCYYMMDD
	date.SetText(inv.IssueDate.Format("20060102"))

	if inv.Notes != "" {
		note := doc.CreateElement("ram:IncludedNote")
		note.CreateElement("ram:Content").SetText(inv.Notes)
	}
}

func (g *ciiGenerator) addTransaction(root *etree.Element, inv *model.CanonicalInvoice) {
	txn := root.CreateElement("rsm:SupplyChainTradeTransaction")

	for i := range inv.LineItems {
		g.addLineItem(txn, inv, i)
	}

	g.addAgreement(txn, inv)

	// Delivery block is structurally mandated even when empty.
	txn.CreateElement("ram:ApplicableHeaderTradeDelivery")

	g.addSettlement(txn, inv)
}

func (g *ciiGenerator) addLineItem(txn *etree.Element, inv *model.CanonicalInvoice, index int) {
	item := &inv.LineItems[index]
	line := txn.CreateElement("ram:IncludedSupplyChainTradeLineItem")

	lineDoc := line.CreateElement("ram:AssociatedDocumentLineDocument")
	lineDoc.CreateElement("ram:LineID").SetText(fmt.Sprintf("%d", index+1))

	product := line.CreateElement("ram:SpecifiedTradeProduct")
	product.CreateElement("ram:Name").SetText(item.Description)

	agreement := line.CreateElement("ram:SpecifiedLineTradeAgreement")
	price := agreement.CreateElement("ram:NetPriceProductTradePrice")
	price.CreateElement("ram:ChargeAmount").SetText(numeric.FormatAmount(item.UnitPrice))

	delivery := line.CreateElement("ram:SpecifiedLineTradeDelivery")
	qty := delivery.CreateElement("ram:BilledQuantity")
	qty.CreateAttr("unitCode", unitCodeOrDefault(item.UnitCode))
	qty.SetText(numeric.FormatRate(item.Quantity))

	settlement := line.CreateElement("ram:SpecifiedLineTradeSettlement")
	tax := settlement.CreateElement("ram:ApplicableTradeTax")
	tax.CreateElement("ram:TypeCode").SetText("VAT")
	tax.CreateElement("ram:CategoryCode").SetText(taxCategory(item, inv))
	tax.CreateElement("ram:RateApplicablePercent").SetText(numeric.FormatRate(effectiveRate(item, inv)))

	summation := settlement.CreateElement("ram:SpecifiedTradeSettlementLineMonetarySummation")
	summation.CreateElement("ram:LineTotalAmount").SetText(numeric.FormatAmount(item.TotalPrice))
}

func (g *ciiGenerator) addAgreement(txn *etree.Element, inv *model.CanonicalInvoice) {
	agreement := txn.CreateElement("ram:ApplicableHeaderTradeAgreement")
	if inv.BuyerReference != "" {
		agreement.CreateElement("ram:BuyerReference").SetText(inv.BuyerReference)
	}
	g.addTradeParty(agreement, "ram:SellerTradeParty", &inv.Seller)
	g.addTradeParty(agreement, "ram:BuyerTradeParty", &inv.Buyer)
}

func (g *ciiGenerator) addTradeParty(parent *etree.Element, tag string, party *model.Party) {
	p := parent.CreateElement(tag)
	p.CreateElement("ram:Name").SetText(party.Name)

	if party.ContactName != "" || party.Email != "" || party.Phone != "" {
		contact := p.CreateElement("ram:DefinedTradeContact")
		if party.ContactName != "" {
			contact.CreateElement("ram:PersonName").SetText(party.ContactName)
		}
		if party.Phone != "" {
			phone := contact.CreateElement("ram:TelephoneUniversalCommunication")
			phone.CreateElement("ram:CompleteNumber").SetText(party.Phone)
		}
		if party.Email != "" {
			email := contact.CreateElement("ram:EmailURIUniversalCommunication")
			email.CreateElement("ram:URIID").SetText(party.Email)
		}
	}

	address := p.CreateElement("ram:PostalTradeAddress")
	if party.PostalCode != "" {
		address.CreateElement("ram:PostcodeCode").SetText(party.PostalCode)
	}
	if party.AddressLine1 != "" {
		address.CreateElement("ram:LineOne").SetText(party.AddressLine1)
	}
	if party.AddressLine2 != "" {
		address.CreateElement("ram:LineTwo").SetText(party.AddressLine2)
	}
	if party.City != "" {
		address.CreateElement("ram:CityName").SetText(party.City)
	}
	if party.CountryCode != "" {
		address.CreateElement("ram:CountryID").SetText(party.CountryCode)
	}

	if party.ElectronicAddress != "" {
		uri := p.CreateElement("ram:URIUniversalCommunication")
		id := uri.CreateElement("ram:URIID")
		if party.ElectronicScheme != "" {
			id.CreateAttr("schemeID", party.ElectronicScheme)
		}
		id.SetText(party.ElectronicAddress)
	}

	if party.VATID != "" {
		reg := p.CreateElement("ram:SpecifiedTaxRegistration")
		id := reg.CreateElement("ram:ID")
		id.CreateAttr("schemeID", "VA")
		id.SetText(party.VATID)
	}
	if party.TaxNumber != "" {
		reg := p.CreateElement("ram:SpecifiedTaxRegistration")
		id := reg.CreateElement("ram:ID")
		id.CreateAttr("schemeID", "FC")
		id.SetText(party.TaxNumber)
	}
}

func (g *ciiGenerator) addSettlement(txn *etree.Element, inv *model.CanonicalInvoice) {
	settlement := txn.CreateElement("ram:ApplicableHeaderTradeSettlement")
	settlement.CreateElement("ram:InvoiceCurrencyCode").SetText(inv.Currency)

	if inv.Payment.IBAN != "" {
		means := settlement.CreateElement("ram:SpecifiedTradeSettlementPaymentMeans")
		means.CreateElement("ram:TypeCode").SetText("58")
		account := means.CreateElement("ram:PayeePartyCreditorFinancialAccount")
		account.CreateElement("ram:IBANID").SetText(inv.Payment.IBAN)
		if inv.Payment.BIC != "" {
			institution := means.CreateElement("ram:PayeeSpecifiedCreditorFinancialInstitution")
			institution.CreateElement("ram:BICID").SetText(inv.Payment.BIC)
		}
	}

	for _, group := range taxBreakdown(inv) {
		tax := settlement.CreateElement("ram:ApplicableTradeTax")
		tax.CreateElement("ram:CalculatedAmount").SetText(numeric.FormatAmount(group.Amount))
		tax.CreateElement("ram:TypeCode").SetText("VAT")
		tax.CreateElement("ram:BasisAmount").SetText(numeric.FormatAmount(group.Basis))
		tax.CreateElement("ram:CategoryCode").SetText(group.CategoryCode)
		tax.CreateElement("ram:RateApplicablePercent").SetText(numeric.FormatRate(group.Rate))
	}

	if inv.BillingPeriod != nil {
		period := settlement.CreateElement("ram:BillingSpecifiedPeriod")
		start := period.CreateElement("ram:StartDateTime").CreateElement("udt:DateTimeString")
		start.CreateAttr("format", "102")
		start.SetText(inv.BillingPeriod.Start.Format("20060102"))
		end := period.CreateElement("ram:EndDateTime").CreateElement("udt:DateTimeString")
		end.CreateAttr("format", "102")
		end.SetText(inv.BillingPeriod.End.Format("20060102"))
	}

	if inv.Payment.Terms != "" || inv.Payment.DueDate != nil {
		terms := settlement.CreateElement("ram:SpecifiedTradePaymentTerms")
		if inv.Payment.Terms != "" {
			terms.CreateElement("ram:Description").SetText(inv.Payment.Terms)
		}
		if inv.Payment.DueDate != nil {
			due := terms.CreateElement("ram:DueDateDateTime").CreateElement("udt:DateTimeString")
			due.CreateAttr("format", "102")
			due.SetText(inv.Payment.DueDate.Format("20060102"))
		}
	}

	summation := settlement.CreateElement("ram:SpecifiedTradeSettlementHeaderMonetarySummation")
	summation.CreateElement("ram:LineTotalAmount").SetText(numeric.FormatAmount(inv.Totals.Subtotal))
	summation.CreateElement("ram:TaxBasisTotalAmount").SetText(numeric.FormatAmount(inv.Totals.Subtotal))
	taxTotal := summation.CreateElement("ram:TaxTotalAmount")
	taxTotal.CreateAttr("currencyID", inv.Currency)
	taxTotal.SetText(numeric.FormatAmount(inv.Totals.TaxAmount))
	summation.CreateElement("ram:GrandTotalAmount").SetText(numeric.FormatAmount(inv.Totals.TotalAmount))
	summation.CreateElement("ram:DuePayableAmount").SetText(numeric.FormatAmount(inv.Totals.TotalAmount))

	if inv.PrecedingInvoiceRef != "" {
		ref := settlement.CreateElement("ram:InvoiceReferencedDocument")
		ref.CreateElement("ram:IssuerAssignedID").SetText(inv.PrecedingInvoiceRef)
	}
}
