package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version = "1.0.0"

	// Global flags
	verbose      bool
	outputFormat string
	apiKey       string
	llmBaseURL   string
	llmModel     string
	dbPath       string
)

var rootCmd = &cobra.Command{
	Use:   "einvoice",
	Short: "Generate and cross-validate European e-invoices",
	Long: `einvoice converts extracted invoice data into compliant e-invoice
documents across European standards.

Supported output formats:
  xrechnung-cii, xrechnung-ubl, peppol-bis, facturx-en16931,
  facturx-basic, fatturapa, ksef, nlcius, cius-ro

Examples:
  # List supported formats
  einvoice formats

  # Validate a canonical invoice
  einvoice validate invoice.json

  # Generate an XRechnung from a canonical invoice
  einvoice generate invoice.json --format xrechnung-ubl -o out/

  # Convert a scanned document via AI extraction
  einvoice convert scan.pdf --format peppol-bis --api-key <openrouter-key>

  # Start the HTTP API server
  einvoice serve --address :8080`,
	Version: version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output-format", "O", "json", "CLI output format (json, table)")
	rootCmd.PersistentFlags().StringVar(&apiKey, "api-key", "", "API key for AI provider (env: LLM_API_KEY)")
	rootCmd.PersistentFlags().StringVar(&llmBaseURL, "llm-base-url", "", "AI provider base URL (env: LLM_BASE_URL)")
	rootCmd.PersistentFlags().StringVar(&llmModel, "llm-model", "", "AI model for extraction (env: LLM_MODEL)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to the conversion database (env: EINVOICE_DB)")

	// Load from environment variables if not set via flags
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// A .env file is optional; flags and real env vars win.
	_ = godotenv.Load()

	if apiKey == "" {
		apiKey = os.Getenv("LLM_API_KEY")
	}
	if llmBaseURL == "" {
		llmBaseURL = os.Getenv("LLM_BASE_URL")
	}
	if llmModel == "" {
		llmModel = os.Getenv("LLM_MODEL")
	}
	if dbPath == "" {
		dbPath = os.Getenv("EINVOICE_DB")
	}
}

func newLogger() *zap.Logger {
	if !verbose {
		return zap.NewNop()
	}
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func printVerbose(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}
