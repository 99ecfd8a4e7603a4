package generator

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/numeric"
)

const nsFatturaPA = "http://ivaservizi.agenziaentrate.gov.it/docs/xsd/fatture/v1.2"

// naturaExempt marks non-taxable line items ("operazioni non soggette").
// The Agenzia delle Entrate rejects a zero-rate summary row without it.
const naturaExempt = "N2.2"

// fatturaPAGenerator renders the Italian FatturaPA 1.2 schema (FPR12,
// private-sector exchange).
type fatturaPAGenerator struct {
	spec *formatSpec
}

func newFatturaPAGenerator(spec *formatSpec) *fatturaPAGenerator {
	return &fatturaPAGenerator{spec: spec}
}

func (g *fatturaPAGenerator) Format() model.OutputFormat {
	return g.spec.id
}

func (g *fatturaPAGenerator) Generate(inv *model.CanonicalInvoice) (*Output, error) {
	if err := checkMandated(g.spec, inv); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("p:FatturaElettronica")
	root.CreateAttr("xmlns:p", nsFatturaPA)
	root.CreateAttr("versione", "FPR12")

	g.addHeader(root, inv)
	g.addBody(root, inv)

	doc.Indent(2)
	xml, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", g.spec.id, err)
	}

	return &Output{XMLContent: xml}, nil
}

func (g *fatturaPAGenerator) addHeader(root *etree.Element, inv *model.CanonicalInvoice) {
	header := root.CreateElement("FatturaElettronicaHeader")

	transmission := header.CreateElement("DatiTrasmissione")
	transmitter := transmission.CreateElement("IdTrasmittente")
	country, code := splitVATID(inv.Seller.VATID, inv.Seller.CountryCode)
	transmitter.CreateElement("IdPaese").SetText(country)
	transmitter.CreateElement("IdCodice").SetText(code)
	transmission.CreateElement("ProgressivoInvio").SetText(inv.InvoiceNumber)
	transmission.CreateElement("FormatoTrasmissione").SetText("FPR12")
	// Recipient SDI code unknown at generation time; seven zeros routes
	// via the recipient's registered PEC/address.
	transmission.CreateElement("CodiceDestinatario").SetText("0000000")

	g.addParty(header, "CedentePrestatore", &inv.Seller, true)
	g.addParty(header, "CessionarioCommittente", &inv.Buyer, false)
}

func (g *fatturaPAGenerator) addParty(header *etree.Element, tag string, party *model.Party, seller bool) {
	p := header.CreateElement(tag)

	registry := p.CreateElement("DatiAnagrafici")
	if party.VATID != "" {
		vat := registry.CreateElement("IdFiscaleIVA")
		country, code := splitVATID(party.VATID, party.CountryCode)
		vat.CreateElement("IdPaese").SetText(country)
		vat.CreateElement("IdCodice").SetText(code)
	}
	if party.TaxNumber != "" {
		registry.CreateElement("CodiceFiscale").SetText(party.TaxNumber)
	}
	name := registry.CreateElement("Anagrafica")
	name.CreateElement("Denominazione").SetText(party.Name)
	if seller {
		// RF01 = regime ordinario.
		registry.CreateElement("RegimeFiscale").SetText("RF01")
	}

	address := p.CreateElement("Sede")
	address.CreateElement("Indirizzo").SetText(addressOrDefault(party.AddressLine1))
	if party.PostalCode != "" {
		address.CreateElement("CAP").SetText(party.PostalCode)
	}
	address.CreateElement("Comune").SetText(addressOrDefault(party.City))
	address.CreateElement("Nazione").SetText(countryOrDefault(party.CountryCode))
}

func (g *fatturaPAGenerator) addBody(root *etree.Element, inv *model.CanonicalInvoice) {
	body := root.CreateElement("FatturaElettronicaBody")

	general := body.CreateElement("DatiGenerali")
	docData := general.CreateElement("DatiGeneraliDocumento")
	docData.CreateElement("TipoDocumento").SetText(fatturaPADocType(inv.DocType()))
	docData.CreateElement("Divisa").SetText(inv.Currency)
	docData.CreateElement("Data").SetText(inv.IssueDate.Format("2006-01-02"))
	docData.CreateElement("Numero").SetText(inv.InvoiceNumber)
	docData.CreateElement("ImportoTotaleDocumento").SetText(numeric.FormatAmount(inv.Totals.TotalAmount))
	if inv.Notes != "" {
		docData.CreateElement("Causale").SetText(inv.Notes)
	}

	goods := body.CreateElement("DatiBeniServizi")
	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		line := goods.CreateElement("DettaglioLinee")
		line.CreateElement("NumeroLinea").SetText(fmt.Sprintf("%d", i+1))
		line.CreateElement("Descrizione").SetText(item.Description)
		line.CreateElement("Quantita").SetText(numeric.FormatAmount(item.Quantity))
		line.CreateElement("PrezzoUnitario").SetText(numeric.FormatAmount(item.UnitPrice))
		line.CreateElement("PrezzoTotale").SetText(numeric.FormatAmount(item.TotalPrice))
		rate := effectiveRate(item, inv)
		line.CreateElement("AliquotaIVA").SetText(numeric.FormatAmount(rate))
		if rate == 0 {
			line.CreateElement("Natura").SetText(naturaExempt)
		}
	}

	for _, group := range taxBreakdown(inv) {
		summary := goods.CreateElement("DatiRiepilogo")
		summary.CreateElement("AliquotaIVA").SetText(numeric.FormatAmount(group.Rate))
		if group.Rate == 0 {
			summary.CreateElement("Natura").SetText(naturaExempt)
		}
		summary.CreateElement("ImponibileImporto").SetText(numeric.FormatAmount(group.Basis))
		summary.CreateElement("Imposta").SetText(numeric.FormatAmount(group.Amount))
		summary.CreateElement("EsigibilitaIVA").SetText("I")
	}

	if inv.Payment.IBAN != "" || inv.Payment.DueDate != nil {
		payment := body.CreateElement("DatiPagamento")
		// TP02 = pagamento completo.
		payment.CreateElement("CondizioniPagamento").SetText("TP02")
		detail := payment.CreateElement("DettaglioPagamento")
		// MP05 = bonifico.
		detail.CreateElement("ModalitaPagamento").SetText("MP05")
		if inv.Payment.DueDate != nil {
			detail.CreateElement("DataScadenzaPagamento").SetText(inv.Payment.DueDate.Format("2006-01-02"))
		}
		detail.CreateElement("ImportoPagamento").SetText(numeric.FormatAmount(inv.Totals.TotalAmount))
		if inv.Payment.IBAN != "" {
			detail.CreateElement("IBAN").SetText(inv.Payment.IBAN)
		}
	}
}

// splitVATID separates the country prefix from a VAT identifier
// ("IT01234567890" -> "IT", "01234567890"), falling back to the party
// country when the identifier carries no prefix.
func splitVATID(vatID, countryCode string) (string, string) {
	if len(vatID) > 2 && isAlpha(vatID[:2]) {
		return strings.ToUpper(vatID[:2]), vatID[2:]
	}
	return countryOrDefault(countryCode), vatID
}

func isAlpha(s string) bool {
	for _, r := range s {
		if (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return true
}

func addressOrDefault(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func countryOrDefault(code string) string {
	if code == "" {
		return "IT"
	}
	return code
}

func fatturaPADocType(untdid string) string {
	switch untdid {
	case model.DocTypeCreditNote:
		return "TD04"
	default:
		return "TD01"
	}
}
