// Command speakerid resolves speaker identities for diarized meeting
// transcripts.
package main

import (
	"fmt"
	"os"

	"github.com/kbukum/speakerid/cmd/speakerid/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
