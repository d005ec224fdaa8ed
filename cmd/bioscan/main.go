// Command bioscan analyzes lab exam PDFs from the terminal.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(rootOptions{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
