package generator

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/numeric"
)

const nsKSeF = "http://crd.gov.pl/wzor/2023/06/29/12648/"

// ksefGenerator renders the Polish KSeF FA(2) structured invoice.
//
// The schema's DataWytworzeniaFa (creation timestamp) is derived from the
// invoice issue date rather than the wall clock, keeping output fully
// deterministic for identical input.
type ksefGenerator struct {
	spec *formatSpec
}

func newKSeFGenerator(spec *formatSpec) *ksefGenerator {
	return &ksefGenerator{spec: spec}
}

func (g *ksefGenerator) Format() model.OutputFormat {
	return g.spec.id
}

func (g *ksefGenerator) Generate(inv *model.CanonicalInvoice) (*Output, error) {
	if err := checkMandated(g.spec, inv); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("Faktura")
	root.CreateAttr("xmlns", nsKSeF)

	g.addHeader(root, inv)
	g.addParty(root, "Podmiot1", &inv.Seller)
	g.addParty(root, "Podmiot2", &inv.Buyer)
	g.addInvoiceData(root, inv)

	doc.Indent(2)
	xml, err := doc.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("serializing %s: %w", g.spec.id, err)
	}

	return &Output{XMLContent: xml}, nil
}

func (g *ksefGenerator) addHeader(root *etree.Element, inv *model.CanonicalInvoice) {
	header := root.CreateElement("Naglowek")
	form := header.CreateElement("KodFormularza")
	form.CreateAttr("kodSystemowy", "FA (2)")
	form.CreateAttr("wersjaSchemy", "1-0E")
	form.SetText("FA")
	header.CreateElement("WariantFormularza").SetText("2")
	header.CreateElement("DataWytworzeniaFa").SetText(inv.IssueDate.UTC().Format("2006-01-02T15:04:05Z"))
	header.CreateElement("SystemInfo").SetText("einvoice-engine")
}

func (g *ksefGenerator) addParty(root *etree.Element, tag string, party *model.Party) {
	p := root.CreateElement(tag)

	ident := p.CreateElement("DaneIdentyfikacyjne")
	if nip := formatNIP(party); nip != "" {
		ident.CreateElement("NIP").SetText(nip)
	}
	ident.CreateElement("Nazwa").SetText(party.Name)

	address := p.CreateElement("Adres")
	address.CreateElement("KodKraju").SetText(countryOrPL(party.CountryCode))
	line := party.AddressLine1
	if party.PostalCode != "" || party.City != "" {
		line = strings.TrimSpace(line + ", " + strings.TrimSpace(party.PostalCode+" "+party.City))
	}
	address.CreateElement("AdresL1").SetText(addressOrDefault(line))
}

func (g *ksefGenerator) addInvoiceData(root *etree.Element, inv *model.CanonicalInvoice) {
	fa := root.CreateElement("Fa")
	fa.CreateElement("KodWaluty").SetText(inv.Currency)
	fa.CreateElement("P_1").SetText(inv.IssueDate.Format("2006-01-02"))
	fa.CreateElement("P_2").SetText(inv.InvoiceNumber)
	fa.CreateElement("P_13_1").SetText(numeric.FormatAmount(inv.Totals.Subtotal))
	fa.CreateElement("P_14_1").SetText(numeric.FormatAmount(inv.Totals.TaxAmount))
	fa.CreateElement("P_15").SetText(numeric.FormatAmount(inv.Totals.TotalAmount))

	// VAT = basic invoice type.
	fa.CreateElement("RodzajFaktury").SetText("VAT")

	if inv.PrecedingInvoiceRef != "" {
		similar := fa.CreateElement("DaneFaKorygowanej")
		similar.CreateElement("NrFaKorygowanej").SetText(inv.PrecedingInvoiceRef)
	}

	for i := range inv.LineItems {
		item := &inv.LineItems[i]
		row := fa.CreateElement("FaWiersz")
		row.CreateElement("NrWierszaFa").SetText(fmt.Sprintf("%d", i+1))
		row.CreateElement("P_7").SetText(item.Description)
		if item.UnitCode != "" {
			row.CreateElement("P_8A").SetText(item.UnitCode)
		}
		row.CreateElement("P_8B").SetText(numeric.FormatRate(item.Quantity))
		row.CreateElement("P_9A").SetText(numeric.FormatAmount(item.UnitPrice))
		row.CreateElement("P_11").SetText(numeric.FormatAmount(item.TotalPrice))
		row.CreateElement("P_12").SetText(numeric.FormatRate(effectiveRate(item, inv)))
	}

	if inv.Payment.IBAN != "" || inv.Payment.DueDate != nil {
		payment := fa.CreateElement("Platnosc")
		if inv.Payment.DueDate != nil {
			due := payment.CreateElement("TerminPlatnosci")
			due.CreateElement("Termin").SetText(inv.Payment.DueDate.Format("2006-01-02"))
		}
		if inv.Payment.IBAN != "" {
			account := payment.CreateElement("RachunekBankowy")
			account.CreateElement("NrRB").SetText(inv.Payment.IBAN)
			if inv.Payment.BIC != "" {
				account.CreateElement("SWIFT").SetText(inv.Payment.BIC)
			}
		}
	}
}

// formatNIP renders the Polish tax identifier as bare digits: KSeF rejects
// the "PL" prefix and any separator characters.
func formatNIP(party *model.Party) string {
	source := party.TaxNumber
	if source == "" {
		source = party.VATID
	}
	var digits strings.Builder
	for _, r := range source {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return digits.String()
}

func countryOrPL(code string) string {
	if code == "" {
		return "PL"
	}
	return code
}
