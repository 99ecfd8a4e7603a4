package einvoice

import (
	"github.com/rezonia/einvoice-engine/internal/extraction"
	"github.com/rezonia/einvoice-engine/internal/generator"
	"github.com/rezonia/einvoice-engine/internal/validate"
)

// Output is the result of generating one invoice document.
type Output = generator.Output

// Normalize converts a raw provider extraction into a canonical invoice.
func Normalize(raw RawExtraction) *CanonicalInvoice {
	return extraction.Normalize(raw, nil)
}

// Validate cross-checks a canonical invoice's amounts and required fields.
func Validate(inv *CanonicalInvoice) ValidationResult {
	return validate.Validate(inv)
}

// Generate renders the invoice in the given output format.
func Generate(format OutputFormat, inv *CanonicalInvoice) (*Output, error) {
	gen, err := generator.Create(format)
	if err != nil {
		return nil, err
	}
	return gen.Generate(inv)
}

// AvailableFormats lists every supported output format.
func AvailableFormats() []OutputFormat {
	return generator.AvailableFormats()
}
