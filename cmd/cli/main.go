// Command pages-cli runs the orchestration jobs and build operations once,
// outside the daily schedule.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pages-cli:", err)
		os.Exit(1)
	}
}
