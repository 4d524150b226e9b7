// cmd/estimate checks a local PDF against the upload rules without
// touching the network: the same validation and processing-time
// estimate the creation dialog applies.
//
// Usage:
//   ./estimate -input report.pdf
//   ./estimate -input report.pdf -max 10
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/equibase/jobdash/internal/create"
)

func main() {
	input := flag.String("input", "", "Input file path (required)")
	maxMB := flag.Int("max", create.DefaultMaxUploadMB, "Upload size cap in MB")
	flag.Parse()

	if *input == "" {
		fmt.Println("Error: -input flag is required")
		flag.Usage()
		os.Exit(1)
	}

	info, err := os.Stat(*input)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	wf := create.NewWorkflow(nil, nil, nil, *maxMB, nil)
	if err := wf.Select(*input); err != nil {
		var verr *create.ValidationError
		if errors.As(err, &verr) {
			fmt.Printf("rejected: %s\n", verr.Reason)
		} else {
			fmt.Printf("Error: %v\n", err)
		}
		os.Exit(1)
	}

	name := filepath.Base(*input)
	fmt.Printf("file:     %s\n", name)
	fmt.Printf("title:    %s\n", strings.TrimSuffix(name, filepath.Ext(name)))
	fmt.Printf("size:     %s\n", create.FormatFileSize(info.Size()))
	fmt.Printf("estimate: %s\n", create.EstimateLabel(info.Size()))
}
