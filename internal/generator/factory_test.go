package generator_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/einvoice-engine/internal/generator"
	"github.com/rezonia/einvoice-engine/internal/model"
)

func TestFactory_CreateReturnsCachedInstance(t *testing.T) {
	factory := generator.NewFactory()

	first, err := factory.Create(model.FormatXRechnungUBL)
	require.NoError(t, err)
	second, err := factory.Create(model.FormatXRechnungUBL)
	require.NoError(t, err)

	assert.Same(t, first, second)
}

func TestFactory_DistinctFormatsDistinctInstances(t *testing.T) {
	factory := generator.NewFactory()

	ubl, err := factory.Create(model.FormatXRechnungUBL)
	require.NoError(t, err)
	cii, err := factory.Create(model.FormatXRechnungCII)
	require.NoError(t, err)

	assert.NotSame(t, ubl, cii)
	assert.Equal(t, model.FormatXRechnungUBL, ubl.Format())
	assert.Equal(t, model.FormatXRechnungCII, cii.Format())
}

func TestFactory_ClearInvalidatesCache(t *testing.T) {
	factory := generator.NewFactory()

	before, err := factory.Create(model.FormatPeppolBIS)
	require.NoError(t, err)

	factory.Clear()

	after, err := factory.Create(model.FormatPeppolBIS)
	require.NoError(t, err)

	assert.NotSame(t, before, after)
}

func TestFactory_UnknownFormat(t *testing.T) {
	factory := generator.NewFactory()

	_, err := factory.Create("edifact")

	require.Error(t, err)
	var unknownErr *model.UnknownFormatError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, model.OutputFormat("edifact"), unknownErr.Format)
}

func TestFactory_AvailableFormats(t *testing.T) {
	factory := generator.NewFactory()

	formats := factory.AvailableFormats()

	assert.Equal(t, []model.OutputFormat{
		model.FormatXRechnungCII,
		model.FormatXRechnungUBL,
		model.FormatPeppolBIS,
		model.FormatFacturXEN16931,
		model.FormatFacturXBasic,
		model.FormatFatturaPA,
		model.FormatKSeF,
		model.FormatNLCIUS,
		model.FormatCIUSRO,
	}, formats)
}

func TestFactory_ConcurrentCreateIsSafe(t *testing.T) {
	factory := generator.NewFactory()

	done := make(chan generator.Generator, 16)
	for i := 0; i < 16; i++ {
		go func() {
			g, err := factory.Create(model.FormatKSeF)
			require.NoError(t, err)
			done <- g
		}()
	}

	first := <-done
	for i := 1; i < 16; i++ {
		assert.Same(t, first, <-done)
	}
}
