package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rezonia/einvoice-engine/internal/server"
)

var (
	serverAddr   string
	serverDebug  bool
	readTimeout  time.Duration
	writeTimeout time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for validating, generating and converting
e-invoices.

The API provides endpoints for:
  - GET  /health                - Health check
  - GET  /api/v1/formats        - List supported output formats
  - POST /api/v1/validate       - Validate a canonical invoice
  - POST /api/v1/generate       - Generate a document from a canonical invoice
  - POST /api/v1/convert        - Normalize, validate and generate from raw extraction data
  - POST /api/v1/process        - Extract, validate and generate from a document (needs API key)

Examples:
  # Start server on default port
  einvoice serve

  # Start on custom port with AI extraction enabled
  einvoice serve --address :8080 --api-key <key>

  # Start in debug mode with persistence
  einvoice serve --debug --db conversions.db`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverAddr, "address", ":8080", "Server listen address")
	serveCmd.Flags().BoolVar(&serverDebug, "debug", false, "Enable debug mode")
	serveCmd.Flags().DurationVar(&readTimeout, "read-timeout", 30*time.Second, "HTTP read timeout")
	serveCmd.Flags().DurationVar(&writeTimeout, "write-timeout", 5*time.Minute, "HTTP write timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	config := &server.Config{
		Address:      serverAddr,
		APIKey:       apiKey,
		LLMBaseURL:   llmBaseURL,
		LLMModel:     llmModel,
		StorePath:    dbPath,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
		Debug:        serverDebug,
		Logger:       newLogger(),
	}

	srv, err := server.NewServer(config)
	if err != nil {
		return err
	}

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		fmt.Println("\nShutting down server...")
		srv.Close()
		os.Exit(0)
	}()

	fmt.Printf("Starting server on %s\n", serverAddr)
	if apiKey != "" {
		fmt.Println("AI extraction enabled")
	} else {
		fmt.Println("AI extraction disabled (no API key)")
	}

	return srv.Run()
}
