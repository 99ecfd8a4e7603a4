package store

import (
	"time"

	"github.com/rezonia/einvoice-engine/internal/model"
)

// ConversionStatus tracks a conversion record through its lifecycle.
type ConversionStatus string

const (
	StatusPending    ConversionStatus = "pending"
	StatusProcessing ConversionStatus = "processing"
	StatusCompleted  ConversionStatus = "completed"
	StatusFailed     ConversionStatus = "failed"
)

// ConversionRecord is the persisted outcome of one conversion job: the
// canonical invoice recovered from the source document plus the generated
// output payloads.
//
// RowVersion is managed exclusively by the store. Callers read it, hand it
// back to Update as the expected version, and never set it themselves.
type ConversionRecord struct {
	ID         string                  `json:"id"`
	JobID      string                  `json:"jobId,omitempty"`
	SourceFile string                  `json:"sourceFile,omitempty"`
	Status     ConversionStatus        `json:"status"`
	Format     model.OutputFormat      `json:"format,omitempty"`
	Invoice    *model.CanonicalInvoice `json:"invoice,omitempty"`
	XMLContent string                  `json:"xmlContent,omitempty"`
	PDFContent []byte                  `json:"pdfContent,omitempty"`
	Issues     []model.ValidationIssue `json:"issues,omitempty"`
	Error      string                  `json:"error,omitempty"`
	CreatedAt  time.Time               `json:"createdAt"`
	UpdatedAt  time.Time               `json:"updatedAt"`
	RowVersion int64                   `json:"rowVersion"`
}
