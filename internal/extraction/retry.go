package extraction

import (
	"fmt"
	"strings"

	"github.com/rezonia/einvoice-engine/internal/model"
	"github.com/rezonia/einvoice-engine/internal/numeric"
)

const (
	// MaxRetries bounds the corrective loop after the initial attempt.
	MaxRetries = 2

	// maxExcerptLength caps the source-text excerpt appended to retry
	// prompts.
	maxExcerptLength = 2000
)

// ShouldRetry reports whether another corrective attempt is allowed. This is
// the only place the retry decision lives; the prompt builder below has no
// opinion on whether retrying will help.
func ShouldRetry(attempt int) bool {
	return attempt < MaxRetries
}

// BuildRetryPrompt formats a deterministic corrective instruction from the
// prior output and the validation issues it produced. The prior raw output is
// embedded verbatim; an optional excerpt of the source text is appended,
// truncated to a fixed length, for cross-reference.
func BuildRetryPrompt(originalOutput string, issues []model.ValidationIssue, extractedText string, attempt int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your previous extraction (attempt %d) failed validation with the following errors:\n\n", attempt)

	for i, issue := range issues {
		fmt.Fprintf(&b, "%d. Field %q: %s", i+1, issue.Field, issue.Message)
		if issue.Expected != nil && issue.Actual != nil {
			fmt.Fprintf(&b, " (expected %s, got %s)",
				numeric.FormatAmount(*issue.Expected),
				numeric.FormatAmount(*issue.Actual))
		} else if issue.Actual != nil {
			fmt.Fprintf(&b, " (got %s)", numeric.FormatAmount(*issue.Actual))
		}
		b.WriteString("\n")
	}

	b.WriteString("\nYour previous output was:\n\n")
	b.WriteString(originalOutput)
	b.WriteString("\n")

	if extractedText != "" {
		excerpt := extractedText
		if len(excerpt) > maxExcerptLength {
			excerpt = excerpt[:maxExcerptLength]
		}
		b.WriteString("\nFor cross-reference, the source document text begins:\n\n")
		b.WriteString(excerpt)
		b.WriteString("\n")
	}

	b.WriteString("\nRe-extract the invoice data, correcting every error listed above. ")
	b.WriteString("Check that line totals equal unit price times quantity, that the subtotal equals the sum of line totals, and that subtotal plus tax equals the total. ")
	b.WriteString("Respond with strict JSON only: no markdown, no commentary, no code fences.")

	return b.String()
}
