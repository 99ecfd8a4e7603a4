package generator

import (
	"sync"

	"github.com/rezonia/einvoice-engine/internal/model"
)

// Factory is the single source of truth for which output formats exist.
// It caches one generator instance per format: construction loads the format
// descriptor and (for Factur-X) the PDF embedder, which is worth doing once.
type Factory struct {
	mu    sync.Mutex
	cache map[model.OutputFormat]Generator
}

// NewFactory creates an empty generator factory.
func NewFactory() *Factory {
	return &Factory{cache: make(map[model.OutputFormat]Generator)}
}

// defaultFactory backs the package-level convenience functions.
var defaultFactory = NewFactory()

// Create returns the cached generator for the format, constructing it on
// first use. Two calls with the same format return the identical instance;
// unrecognized formats yield UnknownFormatError.
func (f *Factory) Create(format model.OutputFormat) (Generator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if g, ok := f.cache[format]; ok {
		return g, nil
	}

	spec := lookupSpec(format)
	if spec == nil {
		return nil, model.NewUnknownFormatError(format)
	}

	g := construct(spec)
	f.cache[format] = g
	return g, nil
}

// AvailableFormats lists every registered format in registration order.
func (f *Factory) AvailableFormats() []model.OutputFormat {
	formats := make([]model.OutputFormat, len(formatSpecs))
	for i, spec := range formatSpecs {
		formats[i] = spec.id
	}
	return formats
}

// Clear drops every cached instance; subsequent Create calls construct fresh
// generators. Tests use this to avoid leaking state across cases.
func (f *Factory) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache = make(map[model.OutputFormat]Generator)
}

// Create returns a generator from the process-wide default factory.
func Create(format model.OutputFormat) (Generator, error) {
	return defaultFactory.Create(format)
}

// AvailableFormats lists the default factory's formats.
func AvailableFormats() []model.OutputFormat {
	return defaultFactory.AvailableFormats()
}

func lookupSpec(format model.OutputFormat) *formatSpec {
	for _, spec := range formatSpecs {
		if spec.id == format {
			return spec
		}
	}
	return nil
}

func construct(spec *formatSpec) Generator {
	switch spec.syntax {
	case syntaxUBL:
		return newUBLGenerator(spec)
	case syntaxCII:
		return newCIIGenerator(spec)
	case syntaxFatturaPA:
		return newFatturaPAGenerator(spec)
	default:
		return newKSeFGenerator(spec)
	}
}
