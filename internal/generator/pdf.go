package generator

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/numeric"
)

// facturXAttachmentName is the filename mandated by the Factur-X convention
// for the embedded XML.
const facturXAttachmentName = "factur-x.xml"

// pdfEmbedder builds the PDF/A-3 carrier document for the Factur-X family:
// a human-readable summary page with the invoice XML attached as an
// embedded file.
type pdfEmbedder struct {
	conf *pdfmodel.Configuration
}

func newPDFEmbedder() *pdfEmbedder {
	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed
	return &pdfEmbedder{conf: conf}
}

// Embed renders the summary page and attaches the XML. The attachment
// modification time is taken from the invoice issue date so repeated runs
// over the same input produce identical attachments.
func (e *pdfEmbedder) Embed(inv *model.CanonicalInvoice, xml []byte) ([]byte, error) {
	base, err := e.renderSummaryPage(inv)
	if err != nil {
		return nil, fmt.Errorf("rendering carrier page: %w", err)
	}

	ctx, err := api.ReadContext(bytes.NewReader(base), e.conf)
	if err != nil {
		return nil, fmt.Errorf("reading carrier PDF: %w", err)
	}

	modTime := inv.IssueDate
	attachment := pdfmodel.Attachment{
		Reader:   bytes.NewReader(xml),
		ID:       facturXAttachmentName,
		FileName: facturXAttachmentName,
		Desc:     "Factur-X invoice data",
		ModTime:  &modTime,
	}
	if err := ctx.AddAttachment(attachment, false); err != nil {
		return nil, fmt.Errorf("attaching invoice XML: %w", err)
	}

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, fmt.Errorf("writing PDF/A-3: %w", err)
	}
	return out.Bytes(), nil
}

// pageDescription is the pdfcpu create-JSON page model.
type pageDescription struct {
	Pages map[string]pageContent `json:"pages"`
}

type pageContent struct {
	Content pageText `json:"content"`
}

type pageText struct {
	Text []textBox `json:"text"`
}

type textBox struct {
	Value    string   `json:"value"`
	Anchor   string   `json:"anchor"`
	Dx       float64  `json:"dx"`
	Dy       float64  `json:"dy"`
	Font     fontSpec `json:"font"`
	FillCol  string   `json:"fillCol,omitempty"`
}

type fontSpec struct {
	Name string `json:"name"`
	Size int    `json:"size"`
}

func (e *pdfEmbedder) renderSummaryPage(inv *model.CanonicalInvoice) ([]byte, error) {
	lines := []textBox{
		{Value: "Invoice " + inv.InvoiceNumber, Anchor: "tl", Dx: 50, Dy: 50, Font: fontSpec{Name: "Helvetica-Bold", Size: 16}},
		{Value: "Issue date: " + inv.IssueDate.Format("2006-01-02"), Anchor: "tl", Dx: 50, Dy: 80, Font: fontSpec{Name: "Helvetica", Size: 11}},
		{Value: "Seller: " + inv.Seller.Name, Anchor: "tl", Dx: 50, Dy: 100, Font: fontSpec{Name: "Helvetica", Size: 11}},
		{Value: "Buyer: " + inv.Buyer.Name, Anchor: "tl", Dx: 50, Dy: 120, Font: fontSpec{Name: "Helvetica", Size: 11}},
		{Value: fmt.Sprintf("Net %s %s, VAT %s, Total %s",
			inv.Currency,
			numeric.FormatAmount(inv.Totals.Subtotal),
			numeric.FormatAmount(inv.Totals.TaxAmount),
			numeric.FormatAmount(inv.Totals.TotalAmount)),
			Anchor: "tl", Dx: 50, Dy: 150, Font: fontSpec{Name: "Helvetica", Size: 11}},
		{Value: "Machine-readable invoice data is attached as " + facturXAttachmentName + ".",
			Anchor: "tl", Dx: 50, Dy: 180, Font: fontSpec{Name: "Helvetica", Size: 9}},
	}

	desc := pageDescription{Pages: map[string]pageContent{
		"1": {Content: pageText{Text: lines}},
	}}

	declaration, err := json.Marshal(desc)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := api.Create(nil, bytes.NewReader(declaration), &buf, e.conf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
