package server

import (
	"github.com/rezonia/einvoice-engine/internal/model"
)

// FormatsResponse lists the registered output formats.
type FormatsResponse struct {
	Formats []model.OutputFormat `json:"formats"`
}

// GenerateResponse is the response for generate and convert endpoints.
// PDFContent is base64-encoded by JSON marshaling.
type GenerateResponse struct {
	Format     model.OutputFormat `json:"format"`
	XMLContent string             `json:"xml_content"`
	PDFContent []byte             `json:"pdf_content,omitempty"`
}

// ConvertResponse is the response for the convert endpoint: the normalized
// invoice, its validation outcome, and the generated output.
type ConvertResponse struct {
	Invoice    *model.CanonicalInvoice `json:"invoice"`
	Validation model.ValidationResult  `json:"validation"`
	Format     model.OutputFormat      `json:"format"`
	XMLContent string                  `json:"xml_content,omitempty"`
	PDFContent []byte                  `json:"pdf_content,omitempty"`
}

// ProcessResponse is the response for the process endpoint.
type ProcessResponse struct {
	Invoice    *model.CanonicalInvoice `json:"invoice"`
	Validation model.ValidationResult  `json:"validation"`
	Confidence float64                 `json:"confidence"`
	Attempts   int                     `json:"attempts"`
	Format     model.OutputFormat      `json:"format"`
	XMLContent string                  `json:"xml_content,omitempty"`
	PDFContent []byte                  `json:"pdf_content,omitempty"`
}

// ErrorResponse is the standard error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
