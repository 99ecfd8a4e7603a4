package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/einvoice-engine/pkg/einvoice"
)

var validateCmd = &cobra.Command{
	Use:   "validate [files...]",
	Short: "Cross-validate canonical invoice JSON files",
	Long: `Validate one or more canonical invoice JSON files: required fields,
per-line arithmetic, subtotal/tax/total reconciliation.

Exit status is non-zero when any file fails validation.

Examples:
  einvoice validate invoice.json
  einvoice validate invoices/*.json -O table`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

// ValidateResult holds the validation outcome for a single file
type ValidateResult struct {
	File   string                     `json:"file"`
	Valid  bool                       `json:"valid"`
	Issues []einvoice.ValidationIssue `json:"issues,omitempty"`
	Error  string                     `json:"error,omitempty"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	results := make([]*ValidateResult, 0, len(args))
	failed := false

	for _, file := range args {
		result := validateFile(file)
		if !result.Valid {
			failed = true
		}
		results = append(results, result)
	}

	if err := outputValidateResults(results); err != nil {
		return err
	}
	if failed {
		return fmt.Errorf("validation failed")
	}
	return nil
}

func validateFile(path string) *ValidateResult {
	result := &ValidateResult{File: path}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = fmt.Sprintf("failed to read file: %v", err)
		return result
	}

	var inv einvoice.CanonicalInvoice
	if err := json.Unmarshal(data, &inv); err != nil {
		result.Error = fmt.Sprintf("invalid invoice JSON: %v", err)
		return result
	}

	validation := einvoice.Validate(&inv)
	result.Valid = validation.Valid
	result.Issues = validation.Issues
	return result
}

func outputValidateResults(results []*ValidateResult) error {
	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(results)
	case "table":
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FILE\tVALID\tISSUES")
		for _, r := range results {
			if r.Error != "" {
				fmt.Fprintf(tw, "%s\tERROR\t%s\n", r.File, r.Error)
				continue
			}
			fmt.Fprintf(tw, "%s\t%t\t%d\n", r.File, r.Valid, len(r.Issues))
			for _, issue := range r.Issues {
				fmt.Fprintf(tw, "\t\t%s: %s\n", issue.Field, issue.Message)
			}
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}
