package extraction_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezonia/einvoice-engine/internal/extraction"
	"github.com/rezonia/einvoice-engine/internal/model"
)

// fakeExtractor scripts a sequence of results and records which capability
// was invoked for each call.
type fakeExtractor struct {
	results []model.RawExtraction
	calls   []string
	prompts []string
}

func (f *fakeExtractor) Name() string { return "fake" }

func (f *fakeExtractor) next() *extraction.Result {
	raw := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return &extraction.Result{Data: raw, RawOutput: "{}", Confidence: 0.9}
}

func (f *fakeExtractor) Extract(_ context.Context, _ []byte, _ string) (*extraction.Result, error) {
	f.calls = append(f.calls, "extract")
	return f.next(), nil
}

func (f *fakeExtractor) ExtractWithText(_ context.Context, _ []byte, _, _ string) (*extraction.Result, error) {
	f.calls = append(f.calls, "text")
	return f.next(), nil
}

func (f *fakeExtractor) ExtractWithRetry(_ context.Context, _ []byte, _, prompt string) (*extraction.Result, error) {
	f.calls = append(f.calls, "retry")
	f.prompts = append(f.prompts, prompt)
	return f.next(), nil
}

// basicExtractor declares only the baseline capability.
type basicExtractor struct {
	raw model.RawExtraction
}

func (b *basicExtractor) Name() string { return "basic" }

func (b *basicExtractor) Extract(_ context.Context, _ []byte, _ string) (*extraction.Result, error) {
	return &extraction.Result{Data: b.raw, RawOutput: "{}"}, nil
}

func goodRaw() model.RawExtraction {
	return model.RawExtraction{
		InvoiceNumber: "RE-1",
		InvoiceDate:   "2026-03-15",
		Currency:      "EUR",
		Seller:        model.RawParty{Name: "Muster GmbH"},
		Buyer:         model.RawParty{Name: "Beispiel AG"},
		LineItems: []model.RawLineItem{
			{Description: "Widget", Quantity: "2", UnitPrice: "50", TotalPrice: "100", TaxRate: "19"},
		},
		Subtotal:    "100",
		TaxAmount:   "19",
		TotalAmount: "119",
	}
}

func badRaw() model.RawExtraction {
	raw := goodRaw()
	raw.TotalAmount = "200" // breaks subtotal + tax = total
	return raw
}

func TestPipeline_ValidFirstAttempt(t *testing.T) {
	fake := &fakeExtractor{results: []model.RawExtraction{goodRaw()}}
	pipeline := extraction.NewPipeline(fake)

	outcome, err := pipeline.Run(context.Background(), []byte("pdf"), "application/pdf", "")

	require.NoError(t, err)
	assert.True(t, outcome.Validation.Valid)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, []string{"extract"}, fake.calls)
}

func TestPipeline_RetriesThenSucceeds(t *testing.T) {
	fake := &fakeExtractor{results: []model.RawExtraction{badRaw(), goodRaw()}}
	pipeline := extraction.NewPipeline(fake)

	outcome, err := pipeline.Run(context.Background(), []byte("pdf"), "application/pdf", "")

	require.NoError(t, err)
	assert.True(t, outcome.Validation.Valid)
	assert.Equal(t, 2, outcome.Attempts)
	assert.Equal(t, []string{"extract", "retry"}, fake.calls)
	require.Len(t, fake.prompts, 1)
	assert.Contains(t, fake.prompts[0], "totals.totalAmount")
}

func TestPipeline_ExhaustsRetries_SurfacesLastIssues(t *testing.T) {
	fake := &fakeExtractor{results: []model.RawExtraction{badRaw()}}
	pipeline := extraction.NewPipeline(fake)

	outcome, err := pipeline.Run(context.Background(), []byte("pdf"), "application/pdf", "")

	require.NoError(t, err)
	assert.False(t, outcome.Validation.Valid)
	assert.Equal(t, extraction.MaxRetries+1, outcome.Attempts)
	assert.NotEmpty(t, outcome.Validation.Issues)
}

func TestPipeline_PreSuppliedTextSelectsTextCapability(t *testing.T) {
	fake := &fakeExtractor{results: []model.RawExtraction{goodRaw()}}
	pipeline := extraction.NewPipeline(fake)

	_, err := pipeline.Run(context.Background(), []byte("pdf"), "application/pdf", "Invoice RE-1 ...")

	require.NoError(t, err)
	assert.Equal(t, []string{"text"}, fake.calls)
}

func TestPipeline_BasicProviderDoesNotRetry(t *testing.T) {
	basic := &basicExtractor{raw: badRaw()}
	pipeline := extraction.NewPipeline(basic)

	outcome, err := pipeline.Run(context.Background(), []byte("pdf"), "application/pdf", "text is ignored without the capability")

	require.NoError(t, err)
	assert.False(t, outcome.Validation.Valid)
	assert.Equal(t, 1, outcome.Attempts)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"json code block", "Here:\n```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"generic code block", "```\n{\"a\": 2}\n```", `{"a": 2}`},
		{"raw json", `{"a": 3}`, `{"a": 3}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, extraction.ExtractJSON(tt.input))
		})
	}
}
