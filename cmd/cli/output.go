package main

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/cloud-gov/pages-core-sub005/internal/batch"
)

var (
	titleColor   = color.New(color.FgCyan, color.Bold)
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	dimColor     = color.New(color.FgHiBlack)
)

// printSummary writes a job's counts and failure reasons.
func printSummary(w io.Writer, summary batch.Summary) {
	titleColor.Fprintln(w, summary.Name)
	successColor.Fprintf(w, "  %d succeeded\n", summary.Succeeded)
	if summary.Failed == 0 {
		dimColor.Fprintln(w, "  0 failed")
		return
	}
	errorColor.Fprintf(w, "  %d failed\n", summary.Failed)
	for _, reason := range summary.Reasons {
		fmt.Fprintf(w, "    - %s\n", reason)
	}
}

// reportJob prints the summary and returns the job error so the exit status
// reflects failures.
func reportJob(w io.Writer, summary batch.Summary, err error) error {
	if summary.Name != "" {
		printSummary(w, summary)
	}
	return err
}
