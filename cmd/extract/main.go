// Command extract runs the ingestion pipeline on a local file and prints the
// sanitized text.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
