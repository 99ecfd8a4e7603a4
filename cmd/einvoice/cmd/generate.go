package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rezonia/einvoice-engine/pkg/einvoice"
)

var (
	generateFormat string
	generateOutDir string
)

var generateCmd = &cobra.Command{
	Use:   "generate [files...]",
	Short: "Generate e-invoice documents from canonical invoice JSON",
	Long: `Generate e-invoice documents from one or more canonical invoice JSON
files. Each input is validated first; files that fail validation are skipped
with a non-zero exit status.

Factur-X formats additionally write a PDF/A-3 next to the XML.

Examples:
  einvoice generate invoice.json --format xrechnung-ubl
  einvoice generate invoices/*.json --format facturx-en16931 -o out/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().StringVarP(&generateFormat, "format", "f", "", "Target output format (required)")
	generateCmd.Flags().StringVarP(&generateOutDir, "output", "o", ".", "Output directory")
	generateCmd.MarkFlagRequired("format")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	format := einvoice.OutputFormat(generateFormat)

	if err := os.MkdirAll(generateOutDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	var failed bool
	for _, file := range args {
		if err := generateFile(file, format); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed = true
		}
	}

	if failed {
		return fmt.Errorf("generation failed for one or more files")
	}
	return nil
}

func generateFile(path string, format einvoice.OutputFormat) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	var inv einvoice.CanonicalInvoice
	if err := json.Unmarshal(data, &inv); err != nil {
		return fmt.Errorf("invalid invoice JSON: %w", err)
	}

	validation := einvoice.Validate(&inv)
	if !validation.Valid {
		for _, issue := range validation.Issues {
			fmt.Fprintf(os.Stderr, "  %s: %s\n", issue.Field, issue.Message)
		}
		return fmt.Errorf("invoice failed validation (%d issue(s))", len(validation.Issues))
	}

	output, err := einvoice.Generate(format, &inv)
	if err != nil {
		return err
	}

	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	xmlPath := filepath.Join(generateOutDir, fmt.Sprintf("%s.%s.xml", base, format))
	if err := os.WriteFile(xmlPath, []byte(output.XMLContent), 0o644); err != nil {
		return fmt.Errorf("writing XML: %w", err)
	}
	printVerbose("Wrote %s\n", xmlPath)

	if len(output.PDFContent) > 0 {
		pdfPath := filepath.Join(generateOutDir, fmt.Sprintf("%s.%s.pdf", base, format))
		if err := os.WriteFile(pdfPath, output.PDFContent, 0o644); err != nil {
			return fmt.Errorf("writing PDF: %w", err)
		}
		printVerbose("Wrote %s\n", pdfPath)
	}

	return nil
}
