// Package generator serializes canonical invoices into the supported
// e-invoice standards.
//
// Each format is described by a declarative descriptor (syntax family,
// customization identifiers, mandated fields, country rules); the builders
// are parametrized by the descriptor rather than branching per format, so
// adding a format means registering a descriptor, not another conditional.
package generator

import (
	"github.com/rezonia/einvoice-engine/internal/model"
)

// Output is the product of one generation run. XMLContent is always
// non-empty; PDFContent is set only by formats that embed the XML into a
// PDF/A-3 container (the Factur-X family).
type Output struct {
	XMLContent string
	PDFContent []byte
}

// Generator serializes a canonical invoice into one target format.
// Implementations never mutate the invoice and produce identical output for
// identical input.
type Generator interface {
	Generate(inv *model.CanonicalInvoice) (*Output, error)
	Format() model.OutputFormat
}

// checkMandated verifies every field the descriptor mandates and fails fast
// with a schema error; a non-compliant document must never be produced
// silently.
func checkMandated(spec *formatSpec, inv *model.CanonicalInvoice) error {
	for _, f := range spec.mandated {
		if !f.present(inv) {
			return model.NewGeneratorSchemaError(spec.id, f.name, f.hint)
		}
	}
	return nil
}
