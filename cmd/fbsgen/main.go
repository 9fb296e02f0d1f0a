// Package main provides the CLI entrypoint for fbsgen.
//
// fbsgen renders FlatBuffers schemas from declared types:
//   - Loads annotated Go packages (go/packages + go/types) and YAML manifests
//   - Derives the type model of every declared table, struct, enum and union
//   - Writes canonical .fbs text, checks it for staleness, or watches sources
package main

import (
	"fmt"
	"os"

	"github.com/cockroachdb/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, errStale) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)

			for _, hint := range errors.GetAllHints(err) {
				fmt.Fprintf(os.Stderr, "hint: %s\n", hint)
			}
		}

		os.Exit(1)
	}
}
