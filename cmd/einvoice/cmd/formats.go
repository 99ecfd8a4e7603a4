package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rezonia/einvoice-engine/pkg/einvoice"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported output formats",
	RunE:  runFormats,
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}

// formatDescriptions maps format IDs to a short human label.
var formatDescriptions = map[einvoice.OutputFormat]string{
	einvoice.FormatXRechnungCII:   "XRechnung (UN/CEFACT CII syntax, Germany)",
	einvoice.FormatXRechnungUBL:   "XRechnung (UBL syntax, Germany)",
	einvoice.FormatPeppolBIS:      "Peppol BIS Billing 3.0",
	einvoice.FormatFacturXEN16931: "Factur-X / ZUGFeRD EN 16931 profile (PDF/A-3)",
	einvoice.FormatFacturXBasic:   "Factur-X / ZUGFeRD BASIC profile (PDF/A-3)",
	einvoice.FormatFatturaPA:      "FatturaPA FPR12 (Italy)",
	einvoice.FormatKSeF:           "KSeF FA(2) (Poland)",
	einvoice.FormatNLCIUS:         "NLCIUS (Netherlands)",
	einvoice.FormatCIUSRO:         "CIUS-RO (Romania)",
}

func runFormats(cmd *cobra.Command, args []string) error {
	formats := einvoice.AvailableFormats()

	switch outputFormat {
	case "json":
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(formats)
	case "table":
		tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "FORMAT\tDESCRIPTION")
		for _, f := range formats {
			fmt.Fprintf(tw, "%s\t%s\n", f, formatDescriptions[f])
		}
		return tw.Flush()
	default:
		return fmt.Errorf("unsupported output format: %s", outputFormat)
	}
}
