package extraction

// Invoice extraction prompts

const systemPromptExtractor = `You are an expert invoice data extractor for European invoices.

Your task is to extract structured data from invoice text or images. Invoices may be in German, English, Italian, Polish, Dutch, Romanian, or French.

Common terms:
- Rechnung / Fattura / Faktura / Factuur / Factura = Invoice
- Rechnungsnummer = Invoice number
- Rechnungsdatum = Invoice date
- USt-IdNr. / Partita IVA / NIP / BTW-nummer = VAT ID
- Netto / Imponibile = Subtotal (net)
- MwSt. / USt. / IVA / VAT / BTW / TVA = Tax
- Brutto / Totale = Total (gross)
- Menge / Quantità = Quantity
- Einzelpreis / Prezzo unitario = Unit price

Extract ALL information you can find. If a field is not present, omit it.
Keep numeric values exactly as printed, including thousands separators and
decimal commas; do not reformat numbers.
Dates should be in ISO 8601 format (YYYY-MM-DD).
Always output valid JSON matching the specified schema.`

const userPromptSchema = `Output JSON with this structure:
{
  "invoice_number": "string",
  "invoice_date": "YYYY-MM-DD",
  "currency": "EUR",
  "buyer_reference": "string",
  "notes": "string",
  "seller": {
    "name": "string",
    "address_line1": "string",
    "city": "string",
    "postal_code": "string",
    "country_code": "DE",
    "vat_id": "string",
    "tax_number": "string",
    "email": "string",
    "phone": "string"
  },
  "buyer": {
    "name": "string",
    "address_line1": "string",
    "city": "string",
    "postal_code": "string",
    "country_code": "DE",
    "vat_id": "string"
  },
  "payment": {
    "iban": "string",
    "bic": "string",
    "terms": "string",
    "due_date": "YYYY-MM-DD"
  },
  "line_items": [
    {
      "description": "string",
      "quantity": "1",
      "unit_price": "100,00",
      "total_price": "100,00",
      "tax_rate": "19",
      "unit": "C62"
    }
  ],
  "subtotal": "100,00",
  "tax_amount": "19,00",
  "total_amount": "119,00",
  "tax_rate": "19"
}

Output ONLY the JSON object, no explanation.`

const userPromptTextExtraction = `Extract invoice data from the following text:

---
%s
---

` + userPromptSchema

const userPromptImageExtraction = `Extract invoice data from this invoice image.

` + userPromptSchema
