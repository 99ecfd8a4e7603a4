// Package extraction turns documents into canonical invoices: it calls an AI
// provider, normalizes the loose field set it returns, validates the result,
// and drives a bounded corrective retry loop when validation fails.
package extraction

import (
	"context"
	"time"

	"github.com/rezonia/einvoice-engine/internal/model"
)

// Result is what a provider returns for one extraction round-trip.
type Result struct {
	Data           model.RawExtraction
	RawOutput      string // verbatim provider output, embedded in retry prompts
	Confidence     float64
	ProcessingTime time.Duration
}

// Extractor is the minimum capability every provider adapter supports.
type Extractor interface {
	// Extract runs the provider's built-in document understanding
	// (vision or OCR) on the raw file.
	Extract(ctx context.Context, file []byte, mimeType string) (*Result, error)

	// Name identifies the provider in errors and logs.
	Name() string
}

// TextExtractor is implemented by providers that can skip their built-in OCR
// when the caller already has the document text (two-phase OCR-then-chat).
type TextExtractor interface {
	Extractor
	ExtractWithText(ctx context.Context, file []byte, mimeType, extractedText string) (*Result, error)
}

// RetryExtractor is implemented by providers that accept a corrective
// instruction built from a prior failed attempt.
//
// Capabilities are declared through these interfaces and selected with
// explicit type assertions; there are no optional methods to probe.
type RetryExtractor interface {
	Extractor
	ExtractWithRetry(ctx context.Context, file []byte, mimeType, retryPrompt string) (*Result, error)
}
