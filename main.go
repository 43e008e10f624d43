// Command gomodprefetch resolves a Go module's dependency graph against
// a scoped, disposable module cache and reports the result as an SBOM.
package main

import (
	"fmt"
	"os"

	"github.com/hermeto/gomodprefetch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
