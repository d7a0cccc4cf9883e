// tierhubctl is the operator CLI for TierHub. It validates and imports
// question graph files and rolls out revised tier policy tables without
// going through the service itself.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
