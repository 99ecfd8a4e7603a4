package extraction

import (
	"context"

	"go.uber.org/zap"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/validate"
)

// Pipeline runs extract -> normalize -> validate with a bounded corrective
// retry loop.
type Pipeline struct {
	extractor Extractor
	logger    *zap.Logger
}

// PipelineOption configures the pipeline
type PipelineOption func(*Pipeline)

// WithLogger sets the pipeline logger
func WithLogger(logger *zap.Logger) PipelineOption {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// NewPipeline creates an extraction pipeline around the given provider.
func NewPipeline(extractor Extractor, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		extractor: extractor,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Outcome is the terminal state of one pipeline run. Validation holds the
// last issue list verbatim even when retries are exhausted, so a reviewer
// can correct fields manually.
type Outcome struct {
	Invoice    *model.CanonicalInvoice
	Validation model.ValidationResult
	Confidence float64
	Attempts   int
}

// Run extracts the document and validates the normalized result, retrying
// with a corrective prompt while the provider supports it and attempts
// remain. extractedText, when non-empty, selects the pre-supplied-text
// strategy on providers that declare it.
func (p *Pipeline) Run(ctx context.Context, file []byte, mimeType, extractedText string) (*Outcome, error) {
	result, err := p.firstAttempt(ctx, file, mimeType, extractedText)
	if err != nil {
		return nil, err
	}

	attempt := 0
	for {
		inv := Normalize(result.Data, p.logger)
		validation := validate.Validate(inv)

		if validation.Valid {
			return &Outcome{
				Invoice:    inv,
				Validation: validation,
				Confidence: result.Confidence,
				Attempts:   attempt + 1,
			}, nil
		}

		retrier, retryable := p.extractor.(RetryExtractor)
		if !retryable || !ShouldRetry(attempt) {
			p.logger.Info("extraction validation failed, surfacing issues",
				zap.Int("attempts", attempt+1),
				zap.Int("issues", len(validation.Issues)),
			)
			return &Outcome{
				Invoice:    inv,
				Validation: validation,
				Confidence: result.Confidence,
				Attempts:   attempt + 1,
			}, nil
		}

		attempt++
		p.logger.Info("retrying extraction with corrective prompt",
			zap.Int("attempt", attempt),
			zap.Int("issues", len(validation.Issues)),
		)

		prompt := BuildRetryPrompt(result.RawOutput, validation.Issues, extractedText, attempt)
		result, err = retrier.ExtractWithRetry(ctx, file, mimeType, prompt)
		if err != nil {
			return nil, err
		}
	}
}

// firstAttempt selects the richest strategy the provider declares.
func (p *Pipeline) firstAttempt(ctx context.Context, file []byte, mimeType, extractedText string) (*Result, error) {
	if extractedText != "" {
		if te, ok := p.extractor.(TextExtractor); ok {
			return te.ExtractWithText(ctx, file, mimeType, extractedText)
		}
	}
	return p.extractor.Extract(ctx, file, mimeType)
}
