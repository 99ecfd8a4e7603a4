package main

import (
	"os"

	"github.com/rezonia/einvoice-engine/cmd/einvoice/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
