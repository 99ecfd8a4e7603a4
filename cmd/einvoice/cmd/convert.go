package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/rezonia/einvoice-engine/internal/extraction"
	"github.com/rezonia/einvoice-engine/internal/generator"
	"github.com/rezonia/einvoice-engine/internal/jobs"
	"github.com/rezonia/einvoice-engine/internal/store"
	"github.com/rezonia/einvoice-engine/pkg/einvoice"
)

var (
	convertFormat      string
	convertOutDir      string
	convertConcurrency int
	convertRate        float64
	convertTimeout     time.Duration
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert documents into e-invoices via AI extraction",
	Long: `Convert scanned or photographed invoices (PDF, PNG, JPEG) into
structured e-invoice documents. Extraction runs through the configured AI
provider and requires an API key; extracted data is cross-validated and
retried with corrective prompts before generation.

With --db, every conversion is recorded in the local database.

Examples:
  einvoice convert scan.pdf --format xrechnung-ubl --api-key <key>
  einvoice convert scans/*.jpg --format peppol-bis --concurrency 4 -o out/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertFormat, "format", "f", "", "Target output format (required)")
	convertCmd.Flags().StringVarP(&convertOutDir, "output", "o", ".", "Output directory")
	convertCmd.Flags().IntVar(&convertConcurrency, "concurrency", 2, "Concurrent conversions")
	convertCmd.Flags().Float64Var(&convertRate, "rate", 1, "Provider requests per second")
	convertCmd.Flags().DurationVar(&convertTimeout, "timeout", 5*time.Minute, "Total batch timeout")
	convertCmd.MarkFlagRequired("format")
}

// ConvertResult holds the conversion outcome for a single file
type ConvertResult struct {
	File       string                     `json:"file"`
	Invoice    *einvoice.CanonicalInvoice `json:"invoice,omitempty"`
	Confidence float64                    `json:"confidence,omitempty"`
	Attempts   int                        `json:"attempts,omitempty"`
	Issues     []einvoice.ValidationIssue `json:"issues,omitempty"`
	Output     string                     `json:"output,omitempty"`
	Error      string                     `json:"error,omitempty"`
}

func runConvert(cmd *cobra.Command, args []string) error {
	if apiKey == "" {
		return fmt.Errorf("an API key is required for conversion (--api-key or LLM_API_KEY)")
	}

	format := einvoice.OutputFormat(convertFormat)
	logger := newLogger()

	if err := os.MkdirAll(convertOutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var opts []extraction.ExtractorOption
	if llmBaseURL != "" {
		opts = append(opts, extraction.WithBaseURL(llmBaseURL))
	}
	if llmModel != "" {
		opts = append(opts, extraction.WithModel(llmModel))
	}
	extractor := extraction.NewOpenAIExtractor(apiKey, opts...)
	pipeline := extraction.NewPipeline(extractor, extraction.WithLogger(logger))

	quota := jobs.NewQuota(rate.Limit(convertRate), 1)
	defer quota.Close()

	procOpts := []jobs.ProcessorOption{
		jobs.WithQuota(quota),
		jobs.WithProcessorLogger(logger),
	}
	if dbPath != "" {
		db, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()
		procOpts = append(procOpts, jobs.WithStore(db))
	}
	processor := jobs.NewProcessor(pipeline, generator.NewFactory(), procOpts...)

	batch := make([]*jobs.Job, 0, len(args))
	for _, file := range args {
		data, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("reading %s: %w", file, err)
		}
		job := jobs.NewJob(file, data, mimeTypeForFile(file), format)
		job.OnProgress = func(percent int) {
			printVerbose("%s: %d%%\n", file, percent)
		}
		batch = append(batch, job)
	}

	ctx, cancel := context.WithTimeout(context.Background(), convertTimeout)
	defer cancel()

	batchResult := processor.RunBatch(ctx, batch, convertConcurrency)

	results := make([]*ConvertResult, len(batch))
	for i, job := range batch {
		results[i] = convertResultFor(job, batchResult.Results[i], batchResult.Errors[i])
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return err
	}

	if batchResult.Failed > 0 {
		return fmt.Errorf("%d of %d conversions failed", batchResult.Failed, len(batch))
	}
	return nil
}

func convertResultFor(job *jobs.Job, result *jobs.Result, runErr error) *ConvertResult {
	out := &ConvertResult{File: job.SourceFile}

	if result != nil && result.Outcome != nil {
		out.Invoice = result.Outcome.Invoice
		out.Confidence = result.Outcome.Confidence
		out.Attempts = result.Outcome.Attempts
		out.Issues = result.Outcome.Validation.Issues
	}
	if runErr != nil {
		out.Error = runErr.Error()
		return out
	}
	if result == nil || result.Output == nil {
		out.Error = "no output produced"
		return out
	}

	base := strings.TrimSuffix(filepath.Base(job.SourceFile), filepath.Ext(job.SourceFile))
	xmlPath := filepath.Join(convertOutDir, fmt.Sprintf("%s.%s.xml", base, job.Format))
	if err := os.WriteFile(xmlPath, []byte(result.Output.XMLContent), 0o644); err != nil {
		out.Error = fmt.Sprintf("writing XML: %v", err)
		return out
	}
	out.Output = xmlPath

	if len(result.Output.PDFContent) > 0 {
		pdfPath := filepath.Join(convertOutDir, fmt.Sprintf("%s.%s.pdf", base, job.Format))
		if err := os.WriteFile(pdfPath, result.Output.PDFContent, 0o644); err != nil {
			out.Error = fmt.Sprintf("writing PDF: %v", err)
			return out
		}
		out.Output = pdfPath
	}

	return out
}

func mimeTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".tiff", ".tif":
		return "image/tiff"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
